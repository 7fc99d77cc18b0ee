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

// Package sync provides named locks that serialize work on one document
// without blocking work on others.
package sync

import (
	"fmt"

	"github.com/moby/locker"
)

// Key is the name of a lock.
type Key string

// NewKey creates a new instance of Key.
func NewKey(key string) Key {
	return Key(key)
}

// String returns a string representation of this Key.
func (k Key) String() string {
	return string(k)
}

// LockerManager hands out Lockers backed by one shared table of named
// mutexes. Entries are dropped once no goroutine holds or waits on them.
type LockerManager struct {
	locks *locker.Locker
}

// New creates a new instance of LockerManager.
func New() *LockerManager {
	return &LockerManager{
		locks: locker.New(),
	}
}

// Locker returns the locker of the given key.
func (m *LockerManager) Locker(key Key) Locker {
	return &namedLocker{key: key.String(), locks: m.locks}
}

// Locker is a mutual exclusion lock bound to a key.
type Locker interface {
	// Lock blocks until the lock is acquired.
	Lock()

	// Unlock releases the lock.
	Unlock() error
}

type namedLocker struct {
	key   string
	locks *locker.Locker
}

func (l *namedLocker) Lock() {
	l.locks.Lock(l.key)
}

func (l *namedLocker) Unlock() error {
	if err := l.locks.Unlock(l.key); err != nil {
		return fmt.Errorf("unlock %s: %w", l.key, err)
	}
	return nil
}
