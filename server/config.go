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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/backend/backplane/redis"
	"github.com/inkwell-team/inkwell/server/backend/database/mongo"
	"github.com/inkwell-team/inkwell/server/backend/messagebroker"
	"github.com/inkwell-team/inkwell/server/gateway"
	"github.com/inkwell-team/inkwell/server/profiling"
	"github.com/inkwell-team/inkwell/server/web"
)

// Below are the values of the default values of Inkwell config.
const (
	DefaultHTTPPort            = 8080
	DefaultProfilingPort       = 8081
	DefaultHTTPMaxRequestBytes = 4 << 20

	DefaultGatewaySendBufferSize  = 256
	DefaultGatewayMaxMessageBytes = 1 << 20
	DefaultGatewayWriteTimeout    = 10 * time.Second
	DefaultGatewayPongTimeout     = 60 * time.Second
	DefaultGatewayPingInterval    = 54 * time.Second

	DefaultSecretKey             = "inkwell-secret"
	DefaultTokenDuration         = 7 * 24 * time.Hour
	DefaultAccessCacheSize       = 5000
	DefaultAccessCacheTTL        = 10 * time.Second
	DefaultPresenceStatsInterval = 10 * time.Second
	DefaultHostname              = ""

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoInkwellDatabase   = "inkwell"

	DefaultRedisChannelPrefix = "inkwell:"

	DefaultKafkaDocumentEventsTopic = "inkwell-document-events"
	DefaultKafkaPresenceEventsTopic = "inkwell-presence-events"
	DefaultKafkaWriteTimeout        = 5 * time.Second
)

// Config is the configuration for creating an Inkwell instance.
type Config struct {
	HTTP      *web.Config           `yaml:"HTTP"`
	Gateway   *gateway.Config       `yaml:"Gateway"`
	Profiling *profiling.Config     `yaml:"Profiling"`
	Backend   *backend.Config       `yaml:"Backend"`
	Mongo     *mongo.Config         `yaml:"Mongo"`
	Redis     *redis.Config         `yaml:"Redis"`
	Kafka     *messagebroker.Config `yaml:"Kafka"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultHTTPPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// HTTPAddr returns the address of the REST API and the websocket endpoint.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("localhost:%d", c.HTTP.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}

	if err := c.Gateway.Validate(); err != nil {
		return err
	}

	if err := c.Profiling.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}

	if c.Kafka != nil {
		if err := c.Kafka.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	defaults := NewConfig()
	if c.HTTP == nil {
		c.HTTP = defaults.HTTP
	}
	if c.Gateway == nil {
		c.Gateway = defaults.Gateway
	}
	if c.Profiling == nil {
		c.Profiling = defaults.Profiling
	}
	if c.Backend == nil {
		c.Backend = defaults.Backend
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.MaxRequestBytes == 0 {
		c.HTTP.MaxRequestBytes = DefaultHTTPMaxRequestBytes
	}

	if c.Gateway.SendBufferSize == 0 {
		c.Gateway.SendBufferSize = DefaultGatewaySendBufferSize
	}
	if c.Gateway.MaxMessageBytes == 0 {
		c.Gateway.MaxMessageBytes = DefaultGatewayMaxMessageBytes
	}
	if c.Gateway.WriteTimeout == "" {
		c.Gateway.WriteTimeout = DefaultGatewayWriteTimeout.String()
	}
	if c.Gateway.PongTimeout == "" {
		c.Gateway.PongTimeout = DefaultGatewayPongTimeout.String()
	}
	if c.Gateway.PingInterval == "" {
		c.Gateway.PingInterval = DefaultGatewayPingInterval.String()
	}

	if c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Backend.SecretKey == "" {
		c.Backend.SecretKey = DefaultSecretKey
	}
	if c.Backend.TokenDuration == "" {
		c.Backend.TokenDuration = DefaultTokenDuration.String()
	}
	if c.Backend.AccessCacheSize == 0 {
		c.Backend.AccessCacheSize = DefaultAccessCacheSize
	}
	if c.Backend.AccessCacheTTL == "" {
		c.Backend.AccessCacheTTL = DefaultAccessCacheTTL.String()
	}
	if c.Backend.PresenceStatsInterval == "" {
		c.Backend.PresenceStatsInterval = DefaultPresenceStatsInterval.String()
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.InkwellDatabase == "" {
			c.Mongo.InkwellDatabase = DefaultMongoInkwellDatabase
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
	}

	if c.Redis != nil && c.Redis.ChannelPrefix == "" {
		c.Redis.ChannelPrefix = DefaultRedisChannelPrefix
	}

	if c.Kafka != nil && c.Kafka.Addresses != "" {
		if c.Kafka.DocumentEventsTopic == "" {
			c.Kafka.DocumentEventsTopic = DefaultKafkaDocumentEventsTopic
		}
		if c.Kafka.PresenceEventsTopic == "" {
			c.Kafka.PresenceEventsTopic = DefaultKafkaPresenceEventsTopic
		}
		if c.Kafka.WriteTimeout == "" {
			c.Kafka.WriteTimeout = DefaultKafkaWriteTimeout.String()
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		HTTP: &web.Config{
			Port:            port,
			MaxRequestBytes: DefaultHTTPMaxRequestBytes,
		},
		Gateway: &gateway.Config{
			SendBufferSize:  DefaultGatewaySendBufferSize,
			MaxMessageBytes: DefaultGatewayMaxMessageBytes,
			WriteTimeout:    DefaultGatewayWriteTimeout.String(),
			PongTimeout:     DefaultGatewayPongTimeout.String(),
			PingInterval:    DefaultGatewayPingInterval.String(),
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Backend: &backend.Config{
			SecretKey:             DefaultSecretKey,
			TokenDuration:         DefaultTokenDuration.String(),
			AccessCacheSize:       DefaultAccessCacheSize,
			AccessCacheTTL:        DefaultAccessCacheTTL.String(),
			PresenceStatsInterval: DefaultPresenceStatsInterval.String(),
			Hostname:              DefaultHostname,
		},
	}
}
