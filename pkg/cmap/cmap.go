/*
 * Copyright 2024 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cmap provides a sharded map that is safe for concurrent use.
package cmap

import (
	"fmt"
	"hash/fnv"
	"sync"
)

const shardCount = 16

type bucket[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// Map is a concurrent map split into shards so that unrelated keys do not
// contend on the same lock.
type Map[K comparable, V any] struct {
	buckets [shardCount]*bucket[K, V]
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{}
	for i := range m.buckets {
		m.buckets[i] = &bucket[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) bucketOf(key K) *bucket[K, V] {
	h := fnv.New32a()
	switch k := any(key).(type) {
	case string:
		_, _ = h.Write([]byte(k))
	case fmt.Stringer:
		_, _ = h.Write([]byte(k.String()))
	default:
		_, _ = h.Write([]byte(fmt.Sprint(key)))
	}
	return m.buckets[h.Sum32()%shardCount]
}

// Set stores the value under the key.
func (m *Map[K, V]) Set(key K, value V) {
	b := m.bucketOf(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[key] = value
}

// Get returns the value stored under the key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	b := m.bucketOf(key)
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.items[key]
	return v, ok
}

// Has reports whether the key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// UpsertFunc computes the new value from the current one.
type UpsertFunc[V any] func(value V, exists bool) V

// Upsert stores the result of fn under the key while holding the shard lock,
// and returns it.
func (m *Map[K, V]) Upsert(key K, fn UpsertFunc[V]) V {
	b := m.bucketOf(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.items[key]
	v = fn(v, ok)
	b.items[key] = v
	return v
}

// DeleteFunc decides under the shard lock whether the entry is removed.
type DeleteFunc[V any] func(value V, exists bool) bool

// Delete removes the key if fn approves and reports whether it was removed.
func (m *Map[K, V]) Delete(key K, fn DeleteFunc[V]) bool {
	b := m.bucketOf(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.items[key]
	if !fn(v, ok) || !ok {
		return false
	}
	delete(b.items, key)
	return true
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, b := range m.buckets {
		b.mu.RLock()
		n += len(b.items)
		b.mu.RUnlock()
	}
	return n
}

// Keys returns a snapshot of the keys in no particular order.
func (m *Map[K, V]) Keys() []K {
	var keys []K
	for _, b := range m.buckets {
		b.mu.RLock()
		for k := range b.items {
			keys = append(keys, k)
		}
		b.mu.RUnlock()
	}
	return keys
}

// Values returns a snapshot of the values in no particular order.
func (m *Map[K, V]) Values() []V {
	var values []V
	for _, b := range m.buckets {
		b.mu.RLock()
		for _, v := range b.items {
			values = append(values, v)
		}
		b.mu.RUnlock()
	}
	return values
}
