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

package backend

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptySecretKey is returned when no signing key is configured.
var ErrEmptySecretKey = errors.New("secret key cannot be empty")

// Config is the configuration for creating a Backend instance.
type Config struct {
	// SecretKey is the secret key for signing authentication tokens.
	SecretKey string `yaml:"SecretKey"`

	// TokenDuration is the lifetime of the tokens minted by the server.
	TokenDuration string `yaml:"TokenDuration"`

	// AccessCacheSize is the number of documents whose access table is cached.
	AccessCacheSize int `yaml:"AccessCacheSize"`

	// AccessCacheTTL is how long a cached access table is trusted.
	AccessCacheTTL string `yaml:"AccessCacheTTL"`

	// PresenceStatsInterval is the interval of the presence gauges refresh.
	PresenceStatsInterval string `yaml:"PresenceStatsInterval"`

	// Hostname is the name of this node. It is used by metrics and exported
	// events.
	Hostname string `yaml:"Hostname"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrEmptySecretKey
	}

	if _, err := time.ParseDuration(c.TokenDuration); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--token-duration" flag: %w`,
			c.TokenDuration,
			err,
		)
	}

	if c.AccessCacheSize <= 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--access-cache-size" flag: must be positive`,
			c.AccessCacheSize,
		)
	}

	if _, err := time.ParseDuration(c.AccessCacheTTL); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--access-cache-ttl" flag: %w`,
			c.AccessCacheTTL,
			err,
		)
	}

	if d, err := time.ParseDuration(c.PresenceStatsInterval); err != nil || d <= 0 {
		return fmt.Errorf(
			`invalid argument "%s" for "--presence-stats-interval" flag: must be a positive duration`,
			c.PresenceStatsInterval,
		)
	}

	return nil
}

// ParseTokenDuration returns the token lifetime. It must be called after
// Validate.
func (c *Config) ParseTokenDuration() time.Duration {
	d, _ := time.ParseDuration(c.TokenDuration)
	return d
}

// ParseAccessCacheTTL returns the TTL of the access cache. It must be called
// after Validate.
func (c *Config) ParseAccessCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.AccessCacheTTL)
	return d
}

// ParsePresenceStatsInterval returns the presence gauges refresh interval. It
// must be called after Validate.
func (c *Config) ParsePresenceStatsInterval() time.Duration {
	d, _ := time.ParseDuration(c.PresenceStatsInterval)
	return d
}
