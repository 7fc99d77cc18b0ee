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

// Package backend provides the backend implementation of Inkwell. This package
// is responsible for managing the document store and the other resources the
// sync engine and the REST API share.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/inkwell-team/inkwell/server/auth"
	"github.com/inkwell-team/inkwell/server/backend/background"
	"github.com/inkwell-team/inkwell/server/backend/backplane"
	memplane "github.com/inkwell-team/inkwell/server/backend/backplane/memory"
	"github.com/inkwell-team/inkwell/server/backend/backplane/redis"
	"github.com/inkwell-team/inkwell/server/backend/cache"
	"github.com/inkwell-team/inkwell/server/backend/database"
	memdb "github.com/inkwell-team/inkwell/server/backend/database/memory"
	"github.com/inkwell-team/inkwell/server/backend/database/mongo"
	"github.com/inkwell-team/inkwell/server/backend/messagebroker"
	"github.com/inkwell-team/inkwell/server/backend/presence"
	"github.com/inkwell-team/inkwell/server/backend/sync"
	"github.com/inkwell-team/inkwell/server/logging"
	"github.com/inkwell-team/inkwell/server/profiling/prometheus"
)

// Backend manages Inkwell's backend such as Database and Backplane. It also
// provides in-memory cache, presence, and locker.
type Backend struct {
	Config *Config

	// Cache is the central cache manager for all caches.
	Cache *cache.Manager
	// Lockers is used to serialize writes per document.
	Lockers *sync.LockerManager
	// Presence tracks the users of this node and the rooms they are in.
	Presence *presence.Registry
	// Backplane fans room broadcasts out to every node.
	Backplane backplane.Backplane
	// Tokens mints and verifies the identity tokens of clients.
	Tokens *auth.TokenManager

	// Background is used to manage background tasks.
	Background *background.Background

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database instance.
	DB database.Database
	// MsgBroker is the message producer instance.
	MsgBroker *messagebroker.Brokers
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	redisConf *redis.Config,
	kafkaConf *messagebroker.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Use the hostname of the current machine if none is given.
	if conf.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("os.Hostname: %w", err)
		}
		conf.Hostname = hostname
	}

	// 02. Create the cache manager, lockers and the token manager.
	cacheManager, err := cache.New(cache.Options{
		AccessCacheSize: conf.AccessCacheSize,
		AccessCacheTTL:  conf.ParseAccessCacheTTL(),
	})
	if err != nil {
		return nil, err
	}
	lockers := sync.New()
	tokens := auth.NewTokenManager(conf.SecretKey, conf.ParseTokenDuration())

	// 03. Create the presence registry and background task manager.
	registry := presence.New()
	bg := background.New(metrics)

	// 04. Create the database instance. If the MongoDB configuration is given,
	// create a MongoDB instance. Otherwise, create a memory database instance.
	var db database.Database
	if mongoConf != nil {
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = memdb.New()
		if err != nil {
			return nil, err
		}
	}

	// 05. Create the backplane. If the Redis configuration is given, rooms are
	// shared with the other nodes through Redis. Otherwise, broadcasts stay
	// in this process.
	var plane backplane.Backplane
	if redisConf != nil {
		plane, err = redis.Dial(context.Background(), redisConf, bg)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		plane = memplane.New()
	}

	// 06. Create the message broker instance.
	broker := messagebroker.Ensure(kafkaConf)

	dbInfo := "memory"
	if mongoConf != nil {
		dbInfo = mongoConf.ConnectionURI
	}
	planeInfo := "memory"
	if redisConf != nil {
		planeInfo = redisConf.Address
	}
	logging.DefaultLogger().Infof("backend created: db: %s, backplane: %s", dbInfo, planeInfo)

	return &Backend{
		Config: conf,

		Cache:     cacheManager,
		Lockers:   lockers,
		Presence:  registry,
		Backplane: plane,
		Tokens:    tokens,

		Background: bg,

		Metrics:   metrics,
		DB:        db,
		MsgBroker: broker,
	}, nil
}

// Start starts the backend.
func (b *Backend) Start(_ context.Context) error {
	if b.Metrics != nil {
		interval := b.Config.ParsePresenceStatsInterval()
		b.Background.AttachGoroutine(func(ctx context.Context) {
			b.reportPresence(ctx, interval)
		}, "presence.stats")
	}

	logging.DefaultLogger().Infof("backend started")
	return nil
}

func (b *Backend) reportPresence(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := b.Presence.Stats()
			b.Metrics.SetPresence(stats["rooms"], stats["room_members"])
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	var errs []error

	if err := b.Backplane.Close(); err != nil {
		errs = append(errs, err)
	}

	b.Background.Close()

	if err := b.MsgBroker.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.DB.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
