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

package messagebroker

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

var (
	// ErrEmptyAddress is returned when the address is empty.
	ErrEmptyAddress = errors.New("address cannot be empty")

	// ErrEmptyTopic is returned when no topic is configured.
	ErrEmptyTopic = errors.New("at least one topic must be set")
)

// Config is the configuration of the Kafka brokers.
type Config struct {
	Addresses           string `yaml:"Addresses"`
	DocumentEventsTopic string `yaml:"DocumentEventsTopic"`
	PresenceEventsTopic string `yaml:"PresenceEventsTopic"`
	WriteTimeout        string `yaml:"WriteTimeout"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Addresses == "" {
		return ErrEmptyAddress
	}

	for _, addr := range c.SplitAddresses() {
		if addr == "" {
			return fmt.Errorf(`%s: %w`, c.Addresses, ErrEmptyAddress)
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf(`parse address "%s": %w`, addr, err)
		}
	}

	if c.DocumentEventsTopic == "" && c.PresenceEventsTopic == "" {
		return ErrEmptyTopic
	}

	if c.WriteTimeout != "" {
		if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
			return fmt.Errorf(`invalid argument "%s" for "--kafka-write-timeout" flag: %w`, c.WriteTimeout, err)
		}
	}

	return nil
}

// SplitAddresses returns the comma separated addresses as a slice.
func (c *Config) SplitAddresses() []string {
	return strings.Split(c.Addresses, ",")
}

// MustParseWriteTimeout returns the write timeout, 5s if unset. It must be
// called after Validate.
func (c *Config) MustParseWriteTimeout() time.Duration {
	if c.WriteTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		panic(fmt.Sprintf("parse write timeout: %s", err))
	}
	return d
}
