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

// Package redis implements a backplane on Redis Pub/Sub so that broadcasts
// reach the members of a room connected to any server node.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend/background"
	"github.com/inkwell-team/inkwell/server/backend/backplane"
	"github.com/inkwell-team/inkwell/server/logging"
)

// ErrEmptyAddress is returned when the address is empty.
var ErrEmptyAddress = errors.New("redis address cannot be empty")

// Config is the configuration of the Redis backplane.
type Config struct {
	Address       string `yaml:"Address"`
	Password      string `yaml:"Password"`
	DB            int    `yaml:"DB"`
	ChannelPrefix string `yaml:"ChannelPrefix"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Address == "" {
		return ErrEmptyAddress
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db must not be negative, given %d", c.DB)
	}
	return nil
}

// Backplane relays room messages through Redis channels named
// "<prefix>room:<document id>".
type Backplane struct {
	conf   *Config
	client *redis.Client
	pubsub *redis.PubSub
	subs   *backplane.Subscribers
	logger logging.Logger

	// mu orders the remote (un)subscriptions of one node.
	mu sync.Mutex
}

// Dial connects to Redis and starts receiving messages in a goroutine
// attached to bg.
func Dial(ctx context.Context, conf *Config, bg *background.Background) (*Backplane, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", conf.Address, err)
	}

	b := &Backplane{
		conf:   conf,
		client: client,
		pubsub: client.Subscribe(ctx),
		subs:   backplane.NewSubscribers(),
		logger: logging.New("backplane"),
	}
	bg.AttachGoroutine(b.receive, "backplane.receive")

	logging.DefaultLogger().Infof("Redis backplane connected, address: %s", conf.Address)
	return b, nil
}

func (b *Backplane) channel(room types.ID) string {
	return b.conf.ChannelPrefix + "room:" + room.String()
}

func (b *Backplane) receive(ctx context.Context) {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}

			var msg backplane.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Warnf("BPLN: drop malformed message on %s: %v", m.Channel, err)
				continue
			}
			b.subs.Dispatch(msg)
		}
	}
}

// Publish sends the message to the channel of its room.
func (b *Backplane) Publish(ctx context.Context, msg backplane.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal backplane message: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel(msg.Room), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Room, err)
	}
	return nil
}

// Subscribe registers deliver for the room, subscribing this node to the
// room channel on the first local subscription.
func (b *Backplane) Subscribe(
	ctx context.Context,
	room types.ID,
	deliver backplane.DeliverFunc,
) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, first := b.subs.Add(room, deliver)
	if first {
		if err := b.pubsub.Subscribe(ctx, b.channel(room)); err != nil {
			b.subs.Remove(room, id)
			return nil, fmt.Errorf("subscribe to %s: %w", room, err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if b.subs.Remove(room, id) {
				if err := b.pubsub.Unsubscribe(context.Background(), b.channel(room)); err != nil {
					b.logger.Warnf("BPLN: unsubscribe from %s: %v", room, err)
				}
			}
		})
	}, nil
}

// Close closes the subscription and the client.
func (b *Backplane) Close() error {
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("close redis pubsub: %w", err)
	}
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
