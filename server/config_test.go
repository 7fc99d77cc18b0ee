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

package server_test

import (
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell-team/inkwell/server"
)

func TestNewConfigFromFile(t *testing.T) {
	t.Run("fail read config file test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.Equal(t, conf.HTTPAddr(), "localhost:"+strconv.Itoa(server.DefaultHTTPPort))
		_, err := server.NewConfigFromFile("nowhere.yml")
		assert.Error(t, err)
		assert.Equal(t, conf.HTTP.Port, server.DefaultHTTPPort)
		assert.Equal(t, conf.HTTP.CertFile, "")
		assert.Equal(t, conf.HTTP.KeyFile, "")
		assert.Nil(t, conf.Mongo)
		assert.NoError(t, conf.Validate())
	})

	t.Run("read config file test", func(t *testing.T) {
		conf, err := server.NewConfigFromFile("config.sample.yml")
		assert.NoError(t, err)
		assert.NoError(t, conf.Validate())

		assert.Equal(t, conf.HTTP.Port, server.DefaultHTTPPort)
		assert.Equal(t, []string{"*"}, conf.HTTP.AllowedOrigins)
		assert.Equal(t, conf.Gateway.SendBufferSize, server.DefaultGatewaySendBufferSize)
		assert.Equal(t, conf.Gateway.ParsePingInterval(), server.DefaultGatewayPingInterval)
		assert.Equal(t, conf.Gateway.ParsePongTimeout(), server.DefaultGatewayPongTimeout)

		connTimeout, err := time.ParseDuration(conf.Mongo.ConnectionTimeout)
		assert.NoError(t, err)
		assert.Equal(t, connTimeout, server.DefaultMongoConnectionTimeout)
		assert.Equal(t, conf.Mongo.ConnectionURI, server.DefaultMongoConnectionURI)
		assert.Equal(t, conf.Mongo.InkwellDatabase, server.DefaultMongoInkwellDatabase)

		assert.Equal(t, conf.Backend.ParseTokenDuration(), server.DefaultTokenDuration)
		assert.Equal(t, conf.Backend.ParseAccessCacheTTL(), server.DefaultAccessCacheTTL)
		assert.Equal(t, conf.Backend.AccessCacheSize, server.DefaultAccessCacheSize)
		assert.Nil(t, conf.Redis)
		assert.Nil(t, conf.Kafka)
	})

	t.Run("default value test", func(t *testing.T) {
		path := t.TempDir() + "/partial.yml"
		assert.NoError(t, os.WriteFile(path, []byte("Redis:\n  Address: \"localhost:6379\"\n"), 0o600))

		conf, err := server.NewConfigFromFile(path)
		assert.NoError(t, err)
		assert.NoError(t, conf.Validate())
		assert.Equal(t, server.DefaultHTTPPort, conf.HTTP.Port)
		assert.Equal(t, server.DefaultProfilingPort, conf.Profiling.Port)
		assert.Equal(t, server.DefaultSecretKey, conf.Backend.SecretKey)
		assert.Equal(t, server.DefaultRedisChannelPrefix, conf.Redis.ChannelPrefix)
	})
}
