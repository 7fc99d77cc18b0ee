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

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/server/backend/backplane"
	"github.com/inkwell-team/inkwell/server/backend/backplane/memory"
)

func TestBackplane(t *testing.T) {
	ctx := context.Background()
	bp := memory.New()
	defer func() {
		assert.NoError(t, bp.Close())
	}()

	var first, second []string
	unsubFirst, err := bp.Subscribe(ctx, "doc1", func(msg backplane.Message) {
		first = append(first, msg.Event)
	})
	require.NoError(t, err)
	_, err = bp.Subscribe(ctx, "doc2", func(msg backplane.Message) {
		second = append(second, msg.Event)
	})
	require.NoError(t, err)

	require.NoError(t, bp.Publish(ctx, backplane.Message{Room: "doc1", Event: "cursor-moved"}))
	require.NoError(t, bp.Publish(ctx, backplane.Message{Room: "doc2", Event: "user-left"}))
	assert.Equal(t, []string{"cursor-moved"}, first)
	assert.Equal(t, []string{"user-left"}, second)

	unsubFirst()
	unsubFirst()
	require.NoError(t, bp.Publish(ctx, backplane.Message{Room: "doc1", Event: "document-changed"}))
	assert.Equal(t, []string{"cursor-moved"}, first)
}
