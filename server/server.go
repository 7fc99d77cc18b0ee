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

// Package server provides the Inkwell server which is the main entry point of
// the Inkwell system. The server is responsible for starting the HTTP server
// that carries the REST API and the websocket sessions, and the profiling
// server.
package server

import (
	"context"
	gosync "sync"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/collab"
	"github.com/inkwell-team/inkwell/server/gateway"
	"github.com/inkwell-team/inkwell/server/profiling"
	"github.com/inkwell-team/inkwell/server/profiling/prometheus"
	"github.com/inkwell-team/inkwell/server/web"
)

// Inkwell is a server of Inkwell.
// The server receives changes from the clients, stores them in the document
// store, and relays them to the other members of the document.
type Inkwell struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	gateway         *gateway.Gateway
	engine          *collab.Engine
	webServer       *web.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Inkwell.
func New(conf *Config) (*Inkwell, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(
		conf.Backend,
		conf.Mongo,
		conf.Redis,
		conf.Kafka,
		metrics,
	)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(conf.Gateway, be, conf.HTTP.AllowedOrigins)
	engine := collab.New(be, gw)
	gw.SetHandler(engine)

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Inkwell{
		conf:            conf,
		backend:         be,
		gateway:         gw,
		engine:          engine,
		webServer:       web.NewServer(conf.HTTP, be, gw),
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the HTTP port.
func (r *Inkwell) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.backend.Start(context.Background()); err != nil {
		return err
	}

	if r.profilingServer != nil {
		if err := r.profilingServer.Start(); err != nil {
			return err
		}
	}

	return r.webServer.Start()
}

// Shutdown shuts down this Inkwell server.
func (r *Inkwell) Shutdown(graceful bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.shutdown {
		return nil
	}

	r.gateway.Close()
	r.webServer.Shutdown(graceful)
	if r.profilingServer != nil {
		r.profilingServer.Shutdown(graceful)
	}

	if err := r.backend.Shutdown(); err != nil {
		return err
	}

	close(r.shutdownCh)
	r.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (r *Inkwell) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}

// HTTPAddr returns the address of the REST API and the websocket endpoint.
func (r *Inkwell) HTTPAddr() string {
	return r.conf.HTTPAddr()
}

// IssueToken mints a token for the given user. It is used for testing.
func (r *Inkwell) IssueToken(userID, username string) (string, error) {
	return r.backend.Tokens.Generate(types.Identity{UserID: userID, Username: username})
}

// LockHolder returns the member holding the lock of the given document.
func (r *Inkwell) LockHolder(docID types.ID) (types.Member, bool) {
	return r.engine.LockHolder(docID)
}
