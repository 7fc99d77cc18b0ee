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

// Package helper provides helper functions for testing.
package helper

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/server"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/gateway"
	"github.com/inkwell-team/inkwell/server/profiling"
	"github.com/inkwell-team/inkwell/server/profiling/prometheus"
	"github.com/inkwell-team/inkwell/server/web"
)

// Below are the values of the Inkwell config used in the test.
var (
	HTTPPort = 11101

	ProfilingPort = 11102

	HTTPMaxRequestBytes = int64(1 << 20)

	GatewaySendBufferSize  = 64
	GatewayMaxMessageBytes = int64(64 << 10)
	GatewayWriteTimeout    = 2 * gotime.Second
	GatewayPongTimeout     = 10 * gotime.Second
	GatewayPingInterval    = 5 * gotime.Second

	SecretKey             = "inkwell-test-secret"
	TokenDuration         = "1h"
	AccessCacheSize       = 100
	AccessCacheTTL        = 10 * gotime.Second
	PresenceStatsInterval = gotime.Second
)

var portOffset int32

// TestConfig returns config for creating Inkwell instance. Every call returns
// a config listening on fresh ports.
func TestConfig() *server.Config {
	offset := int(atomic.AddInt32(&portOffset, 100))
	return &server.Config{
		HTTP: &web.Config{
			Port:            HTTPPort + offset,
			MaxRequestBytes: HTTPMaxRequestBytes,
		},
		Gateway: &gateway.Config{
			SendBufferSize:  GatewaySendBufferSize,
			MaxMessageBytes: GatewayMaxMessageBytes,
			WriteTimeout:    GatewayWriteTimeout.String(),
			PongTimeout:     GatewayPongTimeout.String(),
			PingInterval:    GatewayPingInterval.String(),
		},
		Profiling: &profiling.Config{
			Port: ProfilingPort + offset,
		},
		Backend: &backend.Config{
			SecretKey:             SecretKey,
			TokenDuration:         TokenDuration,
			AccessCacheSize:       AccessCacheSize,
			AccessCacheTTL:        AccessCacheTTL.String(),
			PresenceStatsInterval: PresenceStatsInterval.String(),
			Hostname:              "inkwell-test",
		},
	}
}

// TestBackend returns a backend with the memory database and the memory
// backplane. It is shut down when the test finishes.
func TestBackend(t testing.TB) *backend.Backend {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(TestConfig().Backend, nil, nil, nil, metrics)
	require.NoError(t, err)
	require.NoError(t, be.Start(context.Background()))

	t.Cleanup(func() {
		if err := be.Shutdown(); err != nil {
			t.Logf("shutdown backend: %v", err)
		}
	})
	return be
}

// TestServer returns a new instance of Inkwell for testing.
func TestServer() *server.Inkwell {
	svr, err := server.New(TestConfig())
	if err != nil {
		log.Fatal(err)
	}
	return svr
}

// WaitForServerToStart waits for the server to start.
func WaitForServerToStart(addr string) error {
	maxRetries := 10
	initialDelay := 50 * gotime.Millisecond
	maxDelay := 2 * gotime.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		delay := min(initialDelay*gotime.Duration(1<<uint(attempt)), maxDelay)

		conn, err := net.DialTimeout("tcp", addr, gotime.Second)
		if err != nil {
			gotime.Sleep(delay)
			continue
		}

		if err := conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
		return nil
	}

	return fmt.Errorf("timeout for server to start: %s", addr)
}
