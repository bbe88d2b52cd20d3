//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	schemarepo "github.com/weaviate/graphmeta/adapters/repos/schema"
	"github.com/weaviate/graphmeta/adapters/repos/wal"
	"github.com/weaviate/graphmeta/cluster/snapshot"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/usecases/config"
	"github.com/weaviate/graphmeta/usecases/monitoring"
	"github.com/weaviate/graphmeta/usecases/schema"
)

// Options are shared by all commands
type Options struct {
	config.Flags
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("apply", "Apply a DDL batch",
		"Executes the YAML batch file against the current catalog and appends it to the log.", &applyCommand{})
	parser.AddCommand("catalog", "Print the catalog",
		"Prints the latest catalog, or a stored version of it.", &catalogCommand{})
	parser.AddCommand("serve", "Run the schema owner",
		"Opens the schema owner and serves metrics until interrupted.", &serveCommand{})
	parser.AddCommand("wal-init", "Create the log topic", "", &walInitCommand{})
	parser.AddCommand("wal-destroy", "Delete the log topic", "", &walDestroyCommand{})
	parser.AddCommand("wal-dump", "Print the operations of a partition", "", &walDumpCommand{})
	parser.AddCommand("wal-trim", "Delete entries before an offset",
		"Deletes the entries of a partition before an offset covered by the last checkpoint.", &walTrimCommand{})

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// app holds the resources of a command run.
type app struct {
	cfg     config.Config
	logger  *logrus.Logger
	metrics *monitoring.PrometheusMetrics
	log     *wal.Log
	store   *schemarepo.Store
	server  *http.Server
}

func newApp() (*app, error) {
	logger := logrus.New()
	cfg, err := config.LoadConfig(&opts.Flags, logger)
	if err != nil {
		return nil, err
	}
	if logger, err = cfg.NewLogger(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.metrics = monitoring.NewPrometheusMetrics(monitoring.Registerer(cfg.Monitoring.Enabled))

	if a.log, err = wal.New(cfg.WAL, logger, a.metrics); err != nil {
		return nil, err
	}
	a.store = schemarepo.NewStore(cfg.CatalogPath(), logger)
	if err := a.store.Open(); err != nil {
		a.log.Close()
		return nil, err
	}
	if cfg.Monitoring.Enabled {
		if err := a.serveMetrics(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) serveMetrics() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Monitoring.Port))
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	enterrors.GoWrapper(func() {
		if err := a.server.Serve(a.metrics.CountingListener(ln)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithField("action", "metrics_server").WithError(err).Error("metrics server stopped")
		}
	}, a.logger)
	a.logger.WithField("port", a.cfg.Monitoring.Port).Info("serving metrics")
	return nil
}

// manager opens the schema owner on top of the app resources.
func (a *app) manager(ctx context.Context) (*schema.Manager, *snapshot.Coordinator, error) {
	coord := snapshot.NewCoordinator(a.logger, a.metrics)
	m := schema.NewManager(a.log, a.store, coord, a.cfg.Append, a.logger, a.metrics)
	if err := m.Open(ctx); err != nil {
		return nil, nil, err
	}
	return m, coord, nil
}

func (a *app) Close() error {
	var errs *multierror.Error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := a.log.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// run sets up the app, calls fn and releases the app again.
func run(fn func(ctx context.Context, a *app) error) (err error) {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(context.Background(), a)
}
