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

package priorityqueue

import "cmp"

// Queue is a min-heap of ordered items. It is not safe for concurrent use.
type Queue[T cmp.Ordered] struct {
	items []T
}

// NewMin constructs a queue with the specified initial capacity (initial
// length is always 0).
func NewMin[T cmp.Ordered](capacity int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0, capacity),
	}
}

// Pop removes the smallest item and returns it.
func (q *Queue[T]) Pop() T {
	if len(q.items) == 0 {
		panic("priority queue is empty")
	}
	out := q.items[0]
	last := len(q.items) - 1
	q.items[0] = q.items[last]
	q.items = q.items[:last]
	q.heapify(0)
	return out
}

// Top peeks at the smallest item.
func (q *Queue[T]) Top() T {
	return q.items[0]
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Reset clears all items from the queue.
func (q *Queue[T]) Reset() {
	q.items = q.items[:0]
}

// Insert adds item and returns its position in the heap.
func (q *Queue[T]) Insert(item T) int {
	q.items = append(q.items, item)
	i := len(q.items) - 1
	for i != 0 && q.items[i] < q.items[q.parent(i)] {
		q.swap(i, q.parent(i))
		i = q.parent(i)
	}
	return i
}

// Remove deletes one occurrence of item and reports whether it was found.
func (q *Queue[T]) Remove(item T) bool {
	for i, v := range q.items {
		if v != item {
			continue
		}
		last := len(q.items) - 1
		q.items[i] = q.items[last]
		q.items = q.items[:last]
		if i < last {
			q.heapify(i)
			q.up(i)
		}
		return true
	}
	return false
}

func (q *Queue[T]) up(i int) {
	for i != 0 && q.items[i] < q.items[q.parent(i)] {
		q.swap(i, q.parent(i))
		i = q.parent(i)
	}
}

func (q *Queue[T]) left(i int) int { return 2*i + 1 }

func (q *Queue[T]) right(i int) int { return 2*i + 2 }

func (q *Queue[T]) parent(i int) int { return (i - 1) / 2 }

func (q *Queue[T]) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

// heapify maintains the min-heap property.
func (q *Queue[T]) heapify(i int) {
	left := q.left(i)
	right := q.right(i)
	smallest := i
	if left < len(q.items) && q.items[left] < q.items[i] {
		smallest = left
	}

	if right < len(q.items) && q.items[right] < q.items[smallest] {
		smallest = right
	}

	if smallest != i {
		q.swap(i, smallest)
		q.heapify(smallest)
	}
}
