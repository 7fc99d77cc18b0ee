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

package events_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/api/types/events"
)

func TestDecode(t *testing.T) {
	t.Run("decode document change test", func(t *testing.T) {
		in, err := events.Decode([]byte(`{"event":"document-change","data":{` +
			`"documentId":"doc1","changes":{"content":"Hello","title":"Notes"},"version":3}}`))
		require.NoError(t, err)

		change, ok := in.(*events.DocumentChangePayload)
		require.True(t, ok)
		assert.Equal(t, events.DocumentChange, change.EventName())
		assert.Equal(t, types.ID("doc1"), change.Document())
		assert.Equal(t, "Hello", *change.Changes.Content)
		assert.Equal(t, "Notes", *change.Changes.Title)
		assert.Equal(t, 3, change.Version)
	})

	t.Run("decode every client event test", func(t *testing.T) {
		frames := map[events.Name]string{
			events.JoinDocument:   `{"documentId":"doc1","userId":"A","username":"alice"}`,
			events.GetDocument:    `{"documentId":"doc1"}`,
			events.CursorMove:     `{"documentId":"doc1","position":{"index":4}}`,
			events.LockDocument:   `{"documentId":"doc1"}`,
			events.UnlockDocument: `{"documentId":"doc1"}`,
			events.LeaveDocument:  `{"documentId":"doc1","userId":"A","username":"alice"}`,
		}
		for name, data := range frames {
			in, err := events.Decode([]byte(`{"event":"` + string(name) + `","data":` + data + `}`))
			require.NoError(t, err, name)
			assert.Equal(t, name, in.EventName())
			assert.Equal(t, types.ID("doc1"), in.Document())
		}
	})

	t.Run("reject malformed frames test", func(t *testing.T) {
		_, err := events.Decode([]byte(`not json`))
		assert.True(t, errors.Is(err, events.ErrMalformedEvent))

		_, err = events.Decode([]byte(`{"data":{}}`))
		assert.True(t, errors.Is(err, events.ErrMalformedEvent))

		_, err = events.Decode([]byte(`{"event":"delete-everything","data":{}}`))
		assert.True(t, errors.Is(err, events.ErrUnknownEvent))

		_, err = events.Decode([]byte(`{"event":"get-document"}`))
		assert.True(t, errors.Is(err, events.ErrInvalidPayload))

		_, err = events.Decode([]byte(`{"event":"get-document","data":{"documentId":""}}`))
		assert.True(t, errors.Is(err, events.ErrInvalidPayload))

		_, err = events.Decode([]byte(`{"event":"cursor-move","data":{"documentId":"doc1"}}`))
		assert.True(t, errors.Is(err, events.ErrInvalidPayload))

		_, err = events.Decode([]byte(`{"event":"document-change","data":{"documentId":"doc1","version":-1}}`))
		assert.True(t, errors.Is(err, events.ErrInvalidPayload))
	})

	t.Run("document change requires content test", func(t *testing.T) {
		_, err := events.Decode([]byte(`{"event":"document-change","data":{` +
			`"documentId":"doc1","changes":{"title":"x"},"version":2}}`))
		assert.True(t, errors.Is(err, events.ErrInvalidPayload))

		_, err = events.Decode([]byte(`{"event":"document-change","data":{` +
			`"documentId":"doc1","changes":{"content":null},"version":2}}`))
		assert.True(t, errors.Is(err, events.ErrInvalidPayload))

		in, err := events.Decode([]byte(`{"event":"document-change","data":{` +
			`"documentId":"doc1","changes":{"content":""},"version":2}}`))
		require.NoError(t, err)
		assert.Equal(t, "", *in.(*events.DocumentChangePayload).Changes.Content)
	})
}

func TestEncode(t *testing.T) {
	frame, err := events.Encode(events.DocumentError, events.DocumentErrorPayload{
		Message: "Document not found",
	})
	require.NoError(t, err)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, events.DocumentError, env.Event)
	assert.JSONEq(t, `{"message":"Document not found"}`, string(env.Data))
}
