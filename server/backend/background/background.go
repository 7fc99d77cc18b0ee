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

// Package background tracks the long-lived goroutines of the backend, such
// as connection writers and backplane receivers, so that shutdown can wait
// for them.
package background

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/inkwell-team/inkwell/server/logging"
	"github.com/inkwell-team/inkwell/server/profiling/prometheus"
)

// Background manages the goroutines attached to the backend.
type Background struct {
	// closing is closed when the backend starts shutting down.
	closing chan struct{}

	// wgMu keeps AttachGoroutine from racing with Close.
	wgMu sync.RWMutex
	wg   sync.WaitGroup

	routineID atomic.Int32
	metrics   *prometheus.Metrics
}

// New creates a new background service.
func New(metrics *prometheus.Metrics) *Background {
	return &Background{
		closing: make(chan struct{}),
		metrics: metrics,
	}
}

// AttachGoroutine runs f in a tracked goroutine. The context handed to f is
// cancelled when Close is called. It returns false if the service is already
// closed, in which case f is not run.
func (b *Background) AttachGoroutine(f func(ctx context.Context), taskType string) bool {
	b.wgMu.RLock()
	defer b.wgMu.RUnlock()

	select {
	case <-b.closing:
		logging.DefaultLogger().Warnf("background closed; skipping %s", taskType)
		return false
	default:
	}

	b.wg.Add(1)
	logger := logging.New("b" + strconv.Itoa(int(b.routineID.Add(1))))
	if b.metrics != nil {
		b.metrics.AddBackgroundGoroutines(taskType)
	}

	ctx, cancel := context.WithCancel(logging.With(context.Background(), logger))
	go func() {
		defer func() {
			cancel()
			b.wg.Done()
			if b.metrics != nil {
				b.metrics.RemoveBackgroundGoroutines(taskType)
			}
		}()

		go func() {
			select {
			case <-b.closing:
				cancel()
			case <-ctx.Done():
			}
		}()

		f(ctx)
	}()
	return true
}

// Close stops accepting goroutines, cancels the running ones and waits for
// them to exit.
func (b *Background) Close() {
	b.wgMu.Lock()
	select {
	case <-b.closing:
	default:
		close(b.closing)
	}
	b.wgMu.Unlock()

	b.wg.Wait()
}
