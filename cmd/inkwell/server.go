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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-team/inkwell/server"
	"github.com/inkwell-team/inkwell/server/backend/backplane/redis"
	"github.com/inkwell-team/inkwell/server/backend/database/mongo"
	"github.com/inkwell-team/inkwell/server/backend/messagebroker"
	"github.com/inkwell-team/inkwell/server/logging"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath  string
	flagLogLevel  string
	flagLogFormat string

	gatewayWriteTimeout   time.Duration
	gatewayPongTimeout    time.Duration
	gatewayPingInterval   time.Duration
	tokenDuration         time.Duration
	accessCacheTTL        time.Duration
	presenceStatsInterval time.Duration

	mongoConnectionURI       string
	mongoConnectionTimeout   time.Duration
	mongoInkwellDatabase     string
	mongoPingTimeout         time.Duration
	mongoSlowQueryThreshold  string
	redisAddress             string
	redisPassword            string
	redisDB                  int
	redisChannelPrefix       string
	kafkaAddresses           string
	kafkaDocumentEventsTopic string
	kafkaPresenceEventsTopic string
	kafkaWriteTimeout        time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start Inkwell server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindEnv(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Gateway.WriteTimeout = gatewayWriteTimeout.String()
			conf.Gateway.PongTimeout = gatewayPongTimeout.String()
			conf.Gateway.PingInterval = gatewayPingInterval.String()

			conf.Backend.TokenDuration = tokenDuration.String()
			conf.Backend.AccessCacheTTL = accessCacheTTL.String()
			conf.Backend.PresenceStatsInterval = presenceStatsInterval.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:      mongoConnectionURI,
					ConnectionTimeout:  mongoConnectionTimeout.String(),
					InkwellDatabase:    mongoInkwellDatabase,
					PingTimeout:        mongoPingTimeout.String(),
					SlowQueryThreshold: mongoSlowQueryThreshold,
				}
			}

			if redisAddress != "" {
				conf.Redis = &redis.Config{
					Address:       redisAddress,
					Password:      redisPassword,
					DB:            redisDB,
					ChannelPrefix: redisChannelPrefix,
				}
			}

			if kafkaAddresses != "" {
				conf.Kafka = &messagebroker.Config{
					Addresses:           kafkaAddresses,
					DocumentEventsTopic: kafkaDocumentEventsTopic,
					PresenceEventsTopic: kafkaPresenceEventsTopic,
					WriteTimeout:        kafkaWriteTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogFormat(flagLogFormat); err != nil {
				return err
			}
			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}

			svr, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := svr.Start(); err != nil {
				return err
			}

			if code := handleSignal(svr); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(r *server.Inkwell) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-r.ShutdownCh():
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := r.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Errorf("shutdown: %v", err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		"console",
		"Log format: console, json",
	)
	cmd.Flags().IntVar(
		&conf.HTTP.Port,
		"http-port",
		server.DefaultHTTPPort,
		"Port of the REST API and the websocket endpoint",
	)
	cmd.Flags().StringVar(
		&conf.HTTP.CertFile,
		"http-cert-file",
		"",
		"HTTP certification file's path",
	)
	cmd.Flags().StringVar(
		&conf.HTTP.KeyFile,
		"http-key-file",
		"",
		"HTTP key file's path",
	)
	cmd.Flags().Int64Var(
		&conf.HTTP.MaxRequestBytes,
		"http-max-request-bytes",
		server.DefaultHTTPMaxRequestBytes,
		"Maximum size of a request body in bytes",
	)
	cmd.Flags().StringSliceVar(
		&conf.HTTP.AllowedOrigins,
		"allowed-origins",
		nil,
		"Origins allowed by CORS and the websocket handshake. Every origin is allowed if empty.",
	)
	cmd.Flags().IntVar(
		&conf.Gateway.SendBufferSize,
		"gateway-send-buffer-size",
		server.DefaultGatewaySendBufferSize,
		"Number of frames queued per connection before it is dropped",
	)
	cmd.Flags().Int64Var(
		&conf.Gateway.MaxMessageBytes,
		"gateway-max-message-bytes",
		server.DefaultGatewayMaxMessageBytes,
		"Maximum size of an inbound websocket frame in bytes",
	)
	cmd.Flags().DurationVar(
		&gatewayWriteTimeout,
		"gateway-write-timeout",
		server.DefaultGatewayWriteTimeout,
		"Timeout of a single websocket write",
	)
	cmd.Flags().DurationVar(
		&gatewayPongTimeout,
		"gateway-pong-timeout",
		server.DefaultGatewayPongTimeout,
		"How long a silent connection is kept",
	)
	cmd.Flags().DurationVar(
		&gatewayPingInterval,
		"gateway-ping-interval",
		server.DefaultGatewayPingInterval,
		"Interval of keepalive pings. It must be shorter than the pong timeout.",
	)
	cmd.Flags().BoolVar(
		&conf.Gateway.RequireToken,
		"gateway-require-token",
		false,
		"Reject websocket handshakes that carry no valid token",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.SecretKey,
		"secret-key",
		server.DefaultSecretKey,
		"The secret key for signing authentication tokens.",
	)
	cmd.Flags().DurationVar(
		&tokenDuration,
		"token-duration",
		server.DefaultTokenDuration,
		"The duration of the authentication tokens.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.AccessCacheSize,
		"access-cache-size",
		server.DefaultAccessCacheSize,
		"The number of documents whose access table is cached.",
	)
	cmd.Flags().DurationVar(
		&accessCacheTTL,
		"access-cache-ttl",
		server.DefaultAccessCacheTTL,
		"How long a cached access table is trusted.",
	)
	cmd.Flags().DurationVar(
		&presenceStatsInterval,
		"presence-stats-interval",
		server.DefaultPresenceStatsInterval,
		"Interval of the presence metrics refresh.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Hostname,
		"hostname",
		server.DefaultHostname,
		"Name of this node. The machine hostname is used if empty.",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI. The in-memory store is used if empty.",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoInkwellDatabase,
		"mongo-inkwell-database",
		server.DefaultMongoInkwellDatabase,
		"Inkwell's database name in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)
	cmd.Flags().StringVar(
		&mongoSlowQueryThreshold,
		"mongo-slow-query-threshold",
		"",
		"Log MongoDB commands slower than this duration",
	)
	cmd.Flags().StringVar(
		&redisAddress,
		"redis-address",
		"",
		"Redis address of the backplane. Broadcasts stay in this process if empty.",
	)
	cmd.Flags().StringVar(
		&redisPassword,
		"redis-password",
		"",
		"Redis password",
	)
	cmd.Flags().IntVar(
		&redisDB,
		"redis-db",
		0,
		"Redis database number",
	)
	cmd.Flags().StringVar(
		&redisChannelPrefix,
		"redis-channel-prefix",
		server.DefaultRedisChannelPrefix,
		"Prefix of the backplane channels",
	)
	cmd.Flags().StringVar(
		&kafkaAddresses,
		"kafka-addresses",
		"",
		"Comma separated list of Kafka brokers. Events are not exported if empty.",
	)
	cmd.Flags().StringVar(
		&kafkaDocumentEventsTopic,
		"kafka-document-events-topic",
		server.DefaultKafkaDocumentEventsTopic,
		"Kafka topic of the document events",
	)
	cmd.Flags().StringVar(
		&kafkaPresenceEventsTopic,
		"kafka-presence-events-topic",
		server.DefaultKafkaPresenceEventsTopic,
		"Kafka topic of the presence events",
	)
	cmd.Flags().DurationVar(
		&kafkaWriteTimeout,
		"kafka-write-timeout",
		server.DefaultKafkaWriteTimeout,
		"Timeout of a single Kafka write",
	)

	rootCmd.AddCommand(cmd)
}
