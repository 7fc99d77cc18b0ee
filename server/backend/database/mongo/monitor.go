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

package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"

	"github.com/inkwell-team/inkwell/server/logging"
)

// QueryMonitor logs the commands sent to MongoDB and warns about slow ones.
type QueryMonitor struct {
	logger    logging.Logger
	threshold time.Duration
}

// NewQueryMonitor creates a QueryMonitor. A zero threshold disables slow
// query warnings.
func NewQueryMonitor(threshold time.Duration) *QueryMonitor {
	return &QueryMonitor{
		logger:    logging.New("mongo"),
		threshold: threshold,
	}
}

// CommandMonitor returns the driver hooks of this monitor.
func (m *QueryMonitor) CommandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(_ context.Context, evt *event.CommandStartedEvent) {
			if logging.Enabled(zap.DebugLevel) {
				m.logger.Debugf("STAR: %d(%s)", evt.RequestID, evt.CommandName)
			}
		},
		Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
			if m.threshold > 0 && evt.Duration > m.threshold {
				m.logger.Warnf("SLOW: %d(%s): %s", evt.RequestID, evt.CommandName, evt.Duration)
				return
			}
			if logging.Enabled(zap.DebugLevel) {
				m.logger.Debugf("SUCC: %d(%s): %s", evt.RequestID, evt.CommandName, evt.Duration)
			}
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			m.logger.Warnf("FAIL: %d(%s), %s: %s", evt.RequestID, evt.CommandName, evt.Failure, evt.Duration)
		},
	}
}
