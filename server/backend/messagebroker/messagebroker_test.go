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

package messagebroker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/server/backend/messagebroker"
)

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		conf := &messagebroker.Config{}
		assert.ErrorIs(t, conf.Validate(), messagebroker.ErrEmptyAddress)

		conf.Addresses = "localhost:29092,"
		assert.ErrorIs(t, conf.Validate(), messagebroker.ErrEmptyAddress)

		conf.Addresses = "localhost"
		assert.Error(t, conf.Validate())

		conf.Addresses = "localhost:29092,localhost:29093"
		assert.ErrorIs(t, conf.Validate(), messagebroker.ErrEmptyTopic)

		conf.PresenceEventsTopic = "presence-events"
		assert.NoError(t, conf.Validate())

		conf.WriteTimeout = "soon"
		assert.Error(t, conf.Validate())

		conf.WriteTimeout = "2s"
		assert.NoError(t, conf.Validate())
		assert.Equal(t, 2*time.Second, conf.MustParseWriteTimeout())
	})
}

func TestEnsure(t *testing.T) {
	t.Run("discard brokers without config test", func(t *testing.T) {
		brokers := messagebroker.Ensure(nil)
		assert.IsType(t, messagebroker.DiscardBroker{}, brokers.DocumentEvents())
		assert.IsType(t, messagebroker.DiscardBroker{}, brokers.PresenceEvents())
		assert.False(t, messagebroker.Enabled(brokers.DocumentEvents()))
		assert.NoError(t, brokers.DocumentEvents().Produce(context.Background(), messagebroker.DocumentEventMessage{}))
		assert.NoError(t, brokers.Close())
	})

	t.Run("discard broker for unset topic test", func(t *testing.T) {
		brokers := messagebroker.Ensure(&messagebroker.Config{
			Addresses:           "localhost:29092",
			DocumentEventsTopic: "document-events",
		})
		assert.IsType(t, &messagebroker.KafkaBroker{}, brokers.DocumentEvents())
		assert.IsType(t, messagebroker.DiscardBroker{}, brokers.PresenceEvents())
		assert.True(t, messagebroker.Enabled(brokers.DocumentEvents()))
		assert.False(t, messagebroker.Enabled(brokers.PresenceEvents()))
	})
}

func TestMessage(t *testing.T) {
	encoded, err := messagebroker.PresenceEventMessage{
		DocumentID: "doc1",
		EventType:  messagebroker.UserJoinedEvent,
		UserID:     "A",
		Hostname:   "node-1",
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}.Marshal()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, "doc1", decoded["document_id"])
	assert.Equal(t, "user-joined", decoded["event_type"])
}
