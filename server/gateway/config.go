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

package gateway

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSendBufferSize occurs when the send buffer size is not positive.
	ErrInvalidSendBufferSize = errors.New("invalid send buffer size for gateway")
	// ErrInvalidMaxMessageBytes occurs when the max message size is not positive.
	ErrInvalidMaxMessageBytes = errors.New("invalid max message bytes for gateway")
	// ErrInvalidPingInterval occurs when pings would not arrive before the
	// pong timeout.
	ErrInvalidPingInterval = errors.New("ping interval must be shorter than pong timeout")
)

// Config is the configuration of the session gateway.
type Config struct {
	// SendBufferSize is the number of frames queued per connection. A
	// connection whose queue is full is closed.
	SendBufferSize int `yaml:"SendBufferSize"`

	// MaxMessageBytes is the largest inbound frame accepted.
	MaxMessageBytes int64 `yaml:"MaxMessageBytes"`

	// WriteTimeout bounds a single frame write.
	WriteTimeout string `yaml:"WriteTimeout"`

	// PongTimeout is how long a silent connection is kept.
	PongTimeout string `yaml:"PongTimeout"`

	// PingInterval is the interval of the keepalive pings.
	PingInterval string `yaml:"PingInterval"`

	// RequireToken rejects handshakes that carry no valid token instead of
	// accepting them with a claimed or anonymous identity.
	RequireToken bool `yaml:"RequireToken"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("given %d: %w", c.SendBufferSize, ErrInvalidSendBufferSize)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("given %d: %w", c.MaxMessageBytes, ErrInvalidMaxMessageBytes)
	}

	for flag, value := range map[string]string{
		"--gateway-write-timeout": c.WriteTimeout,
		"--gateway-pong-timeout":  c.PongTimeout,
		"--gateway-ping-interval": c.PingInterval,
	} {
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf(`invalid argument "%s" for "%s" flag: must be a positive duration`, value, flag)
		}
	}

	if c.ParsePingInterval() >= c.ParsePongTimeout() {
		return fmt.Errorf("%s >= %s: %w", c.PingInterval, c.PongTimeout, ErrInvalidPingInterval)
	}

	return nil
}

// ParseWriteTimeout returns the write timeout. It must be called after
// Validate.
func (c *Config) ParseWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// ParsePongTimeout returns the pong timeout. It must be called after
// Validate.
func (c *Config) ParsePongTimeout() time.Duration {
	d, _ := time.ParseDuration(c.PongTimeout)
	return d
}

// ParsePingInterval returns the ping interval. It must be called after
// Validate.
func (c *Config) ParsePingInterval() time.Duration {
	d, _ := time.ParseDuration(c.PingInterval)
	return d
}
