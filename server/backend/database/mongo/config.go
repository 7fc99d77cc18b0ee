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
	"fmt"
	"time"
)

// Config is the configuration for creating a Client instance.
type Config struct {
	ConnectionTimeout  string `yaml:"ConnectionTimeout"`
	ConnectionURI      string `yaml:"ConnectionURI"`
	InkwellDatabase    string `yaml:"InkwellDatabase"`
	PingTimeout        string `yaml:"PingTimeout"`
	SlowQueryThreshold string `yaml:"SlowQueryThreshold"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.ConnectionTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--mongo-connection-timeout" flag: %w`,
			c.ConnectionTimeout,
			err,
		)
	}

	if _, err := time.ParseDuration(c.PingTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--mongo-ping-timeout" flag: %w`,
			c.PingTimeout,
			err,
		)
	}

	if c.SlowQueryThreshold != "" {
		if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
			return fmt.Errorf(
				`invalid argument "%s" for "--mongo-slow-query-threshold" flag: %w`,
				c.SlowQueryThreshold,
				err,
			)
		}
	}

	return nil
}

// ParseConnectionTimeout returns the connection timeout. It must be called
// after Validate.
func (c *Config) ParseConnectionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ConnectionTimeout)
	return d
}

// ParsePingTimeout returns the ping timeout. It must be called after Validate.
func (c *Config) ParsePingTimeout() time.Duration {
	d, _ := time.ParseDuration(c.PingTimeout)
	return d
}

// ParseSlowQueryThreshold returns the slow query threshold, zero if unset.
func (c *Config) ParseSlowQueryThreshold() time.Duration {
	if c.SlowQueryThreshold == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.SlowQueryThreshold)
	return d
}
