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

package monitoring

import "github.com/prometheus/client_golang/prometheus"

var noop prometheus.Registerer = &NoopRegisterer{}

// NoopRegisterer accepts and drops every collector. It backs the metrics of
// a process running with monitoring disabled.
type NoopRegisterer struct{}

func (n *NoopRegisterer) Register(prometheus.Collector) error {
	return nil
}

func (n *NoopRegisterer) MustRegister(...prometheus.Collector) {
}

func (n *NoopRegisterer) Unregister(prometheus.Collector) bool {
	return true
}

// Registerer returns the default registerer if enabled, a no-op one
// otherwise.
func Registerer(enabled bool) prometheus.Registerer {
	if enabled {
		return prometheus.DefaultRegisterer
	}
	return noop
}
