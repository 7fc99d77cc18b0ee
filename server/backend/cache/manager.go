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

// Package cache holds the caches of the backend.
package cache

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/inkwell-team/inkwell/api/types"
)

// ErrInvalidMaxSize is returned when the given max size is not positive.
var ErrInvalidMaxSize = errors.New("max size must be > 0")

// AccessTable is the owner and the grants of one document, as of the moment
// it was cached.
type AccessTable struct {
	Owner  string
	Shares map[string]types.Permission
}

// PermissionOf returns the permission the user holds in this table.
func (t *AccessTable) PermissionOf(userID string) (types.Permission, bool) {
	if userID == "" {
		return "", false
	}
	if userID == t.Owner {
		return types.PermWrite, true
	}
	perm, ok := t.Shares[userID]
	return perm, ok
}

// Manager manages the caches used in the backend.
type Manager struct {
	// Access caches the access table of documents so that every edit does
	// not re-read the document to authorize its sender.
	Access *expirable.LRU[types.ID, *AccessTable]

	hits   atomic.Int64
	misses atomic.Int64
}

// Options contains the configuration of the Manager.
type Options struct {
	AccessCacheSize int
	AccessCacheTTL  time.Duration
}

// New creates a new cache manager.
func New(opts Options) (*Manager, error) {
	if opts.AccessCacheSize <= 0 {
		return nil, ErrInvalidMaxSize
	}

	return &Manager{
		Access: expirable.NewLRU[types.ID, *AccessTable](opts.AccessCacheSize, nil, opts.AccessCacheTTL),
	}, nil
}

// GetAccess returns the cached access table of the document.
func (m *Manager) GetAccess(id types.ID) (*AccessTable, bool) {
	table, ok := m.Access.Get(id)
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return table, ok
}

// PutAccess caches the access table of the document.
func (m *Manager) PutAccess(id types.ID, table *AccessTable) {
	m.Access.Add(id, table)
}

// InvalidateAccess drops the cached access table of the document.
func (m *Manager) InvalidateAccess(id types.ID) {
	m.Access.Remove(id)
}

// Stats returns the hit and miss counts of the access cache.
func (m *Manager) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}
