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

// Package web serves the REST API of the notes and mounts the session gateway
// on the same port.
package web

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/logging"
)

const (
	pathHealth = "/"
	pathWS     = "/ws"
	pathNotes  = "/api/notes"
)

// Server serves the REST API and the websocket endpoint.
type Server struct {
	conf       *Config
	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a new instance of Server. ws serves the websocket
// endpoint.
func NewServer(conf *Config, be *backend.Backend, ws http.Handler) *Server {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(logging.New("http")))

	router.HandleFunc(pathHealth, health).Methods(http.MethodGet)
	router.Handle(pathWS, ws)

	notes := &notesHandler{be: be, maxRequestBytes: conf.MaxRequestBytes}
	api := router.PathPrefix(pathNotes).Subrouter()
	api.Use(be.Tokens.Middleware(writeError))
	api.HandleFunc("", notes.create).Methods(http.MethodPost)
	api.HandleFunc("", notes.list).Methods(http.MethodGet)
	api.HandleFunc("/{id}", notes.get).Methods(http.MethodGet)
	api.HandleFunc("/{id}", notes.update).Methods(http.MethodPut)
	api.HandleFunc("/{id}", notes.delete).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/share", notes.share).Methods(http.MethodPost)
	api.HandleFunc("/{id}/versions", notes.versions).Methods(http.MethodGet)
	api.HandleFunc("/{id}/users", notes.users).Methods(http.MethodGet)

	// Preflight requests carry no token, so CORS is answered before routing.
	handler := corsMiddleware(conf.AllowedOrigins)(router)

	return &Server{
		conf:    conf,
		handler: handler,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", conf.Port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts serving in the background. It fails fast if the port cannot be
// bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen HTTP on %d: %w", s.conf.Port, err)
	}

	logging.DefaultLogger().Infof("serving HTTP on %d", s.conf.Port)
	go func() {
		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ServeTLS(ln, s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Errorf("HTTP server: %v", err)
		}
	}()
	return nil
}

// Shutdown shuts down the server.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			logging.DefaultLogger().Errorf("HTTP server shutdown: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Errorf("HTTP server close: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijack: %T is not a http.Hijacker", r.ResponseWriter)
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func loggingMiddleware(logger logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(logging.With(r.Context(), logger)))

			if r.URL.Path != pathWS {
				logger.Debugf("HTTP: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
			}
		})
	}
}

func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	allowAll := len(allowed) == 0
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := set[origin]; ok || allowAll {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
