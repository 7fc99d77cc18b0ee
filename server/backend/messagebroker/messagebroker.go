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

// Package messagebroker exports document and presence events to an external
// message broker for analytics and auditing.
package messagebroker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/logging"
)

// Message is a message that can be sent to the message broker.
type Message interface {
	Marshal() ([]byte, error)
}

// DocumentEventType is the type of a DocumentEventMessage.
type DocumentEventType string

// The document events exported to the broker.
const (
	DocumentChangedEvent  DocumentEventType = "document-changed"
	DocumentLockedEvent   DocumentEventType = "document-locked"
	DocumentUnlockedEvent DocumentEventType = "document-unlocked"
)

// PresenceEventType is the type of a PresenceEventMessage.
type PresenceEventType string

// The presence events exported to the broker.
const (
	UserJoinedEvent PresenceEventType = "user-joined"
	UserLeftEvent   PresenceEventType = "user-left"
)

// DocumentEventMessage records an event that happened to a document.
type DocumentEventMessage struct {
	DocumentID types.ID          `json:"document_id"`
	EventType  DocumentEventType `json:"event_type"`
	UserID     string            `json:"user_id"`
	Version    int               `json:"version,omitempty"`
	Hostname   string            `json:"hostname"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Marshal marshals the document event message to JSON.
func (m DocumentEventMessage) Marshal() ([]byte, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return encoded, nil
}

// PresenceEventMessage records a user joining or leaving a document room.
type PresenceEventMessage struct {
	DocumentID types.ID          `json:"document_id"`
	EventType  PresenceEventType `json:"event_type"`
	UserID     string            `json:"user_id"`
	Hostname   string            `json:"hostname"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Marshal marshals the presence event message to JSON.
func (m PresenceEventMessage) Marshal() ([]byte, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return encoded, nil
}

// Broker is an interface for the message broker.
type Broker interface {
	Produce(ctx context.Context, msg Message) error
	Close() error
}

// DiscardBroker drops every message. It stands in for the streams that have
// no kafka topic configured.
type DiscardBroker struct{}

// Produce drops the message.
func (DiscardBroker) Produce(context.Context, Message) error { return nil }

// Close is a no-op.
func (DiscardBroker) Close() error { return nil }

// Enabled reports whether messages given to the broker leave the process.
func Enabled(b Broker) bool {
	_, discard := b.(DiscardBroker)
	return b != nil && !discard
}

// Brokers groups the broker of each event stream.
type Brokers struct {
	documentEvents Broker
	presenceEvents Broker
}

// DocumentEvents returns the broker of document events.
func (b *Brokers) DocumentEvents() Broker {
	return b.documentEvents
}

// PresenceEvents returns the broker of presence events.
func (b *Brokers) PresenceEvents() Broker {
	return b.presenceEvents
}

// Close closes every broker.
func (b *Brokers) Close() error {
	var errs []string
	for _, broker := range []Broker{b.documentEvents, b.presenceEvents} {
		if err := broker.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close brokers: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Ensure creates the brokers of the configuration. Streams without a usable
// configuration get a DiscardBroker, so callers never check for nil.
func Ensure(conf *Config) *Brokers {
	brokers := &Brokers{
		documentEvents: DiscardBroker{},
		presenceEvents: DiscardBroker{},
	}

	if conf == nil {
		return brokers
	}
	if err := conf.Validate(); err != nil {
		logging.DefaultLogger().Warnf("invalid kafka configuration: %v", err)
		return brokers
	}

	logging.DefaultLogger().Infof(
		"connecting to kafka: %s, topics: %s,%s",
		conf.Addresses,
		conf.DocumentEventsTopic,
		conf.PresenceEventsTopic,
	)

	if conf.DocumentEventsTopic != "" {
		brokers.documentEvents = newKafkaBroker(conf, conf.DocumentEventsTopic)
	}
	if conf.PresenceEventsTopic != "" {
		brokers.presenceEvents = newKafkaBroker(conf, conf.PresenceEventsTopic)
	}
	return brokers
}
