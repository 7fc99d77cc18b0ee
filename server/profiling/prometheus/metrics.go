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

// Package prometheus collects the Prometheus metrics of the Inkwell server.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inkwell-team/inkwell/internal/version"
)

const (
	namespace     = "inkwell"
	eventLabel    = "event"
	resultLabel   = "result"
	taskTypeLabel = "task_type"
	hostnameLabel = "hostname"
)

// Metrics manages the metric information that Inkwell is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	gatewayConnections      prometheus.Gauge
	gatewayEventsTotal      *prometheus.CounterVec
	gatewaySentEventsTotal  *prometheus.CounterVec
	gatewayDroppedConnTotal prometheus.Counter

	syncRoomMembers         prometheus.Gauge
	syncRooms               prometheus.Gauge
	syncChangesTotal        *prometheus.CounterVec
	syncStaleChangesTotal   prometheus.Counter
	syncPersistSeconds      prometheus.Histogram
	syncBroadcastRecipients prometheus.Histogram

	backgroundGoroutinesTotal *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		gatewayConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "The number of open realtime connections.",
		}),
		gatewayEventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "received_events_total",
			Help:      "The total count of events received from clients by result.",
		}, []string{eventLabel, resultLabel}),
		gatewaySentEventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "sent_events_total",
			Help:      "The total count of events queued for clients.",
		}, []string{eventLabel}),
		gatewayDroppedConnTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "slow_connections_dropped_total",
			Help:      "The total count of connections closed because their send buffer was full.",
		}),
		syncRoomMembers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "room_members",
			Help:      "The number of users present in document rooms.",
		}),
		syncRooms: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "rooms",
			Help:      "The number of document rooms with at least one member.",
		}),
		syncChangesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "changes_total",
			Help:      "The total count of document changes by result.",
		}, []string{resultLabel, hostnameLabel}),
		syncStaleChangesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "stale_changes_total",
			Help:      "The total count of changes based on an outdated version.",
		}),
		syncPersistSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "persist_seconds",
			Help:      "The time spent appending a version to the store.",
		}),
		syncBroadcastRecipients: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "broadcast_recipients",
			Help:      "The number of local connections reached by a room broadcast.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AddConnection increases the number of open connections.
func (m *Metrics) AddConnection() {
	m.gatewayConnections.Inc()
}

// RemoveConnection decreases the number of open connections.
func (m *Metrics) RemoveConnection() {
	m.gatewayConnections.Dec()
}

// AddReceivedEvent counts an inbound event and how its handling ended.
func (m *Metrics) AddReceivedEvent(event, result string) {
	m.gatewayEventsTotal.With(prometheus.Labels{
		eventLabel:  event,
		resultLabel: result,
	}).Inc()
}

// AddSentEvent counts an outbound event.
func (m *Metrics) AddSentEvent(event string) {
	m.gatewaySentEventsTotal.With(prometheus.Labels{eventLabel: event}).Inc()
}

// AddDroppedConnection counts a connection closed for being too slow.
func (m *Metrics) AddDroppedConnection() {
	m.gatewayDroppedConnTotal.Inc()
}

// SetPresence records the size of the presence registry.
func (m *Metrics) SetPresence(rooms, members int) {
	m.syncRooms.Set(float64(rooms))
	m.syncRoomMembers.Set(float64(members))
}

// AddChange counts a document change by result: "persisted", "denied" or
// "failed".
func (m *Metrics) AddChange(result, hostname string) {
	m.syncChangesTotal.With(prometheus.Labels{
		resultLabel:   result,
		hostnameLabel: hostname,
	}).Inc()
}

// AddStaleChange counts a change whose base version was outdated.
func (m *Metrics) AddStaleChange() {
	m.syncStaleChangesTotal.Inc()
}

// ObservePersistSeconds records the duration of one version append.
func (m *Metrics) ObservePersistSeconds(seconds float64) {
	m.syncPersistSeconds.Observe(seconds)
}

// ObserveBroadcastRecipients records the fan-out of one broadcast.
func (m *Metrics) ObserveBroadcastRecipients(n int) {
	m.syncBroadcastRecipients.Observe(float64(n))
}

// AddBackgroundGoroutines adds the number of goroutines attached by a
// particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a
// particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Dec()
}
