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

package presence_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/backend/presence"
)

var (
	alice = types.Identity{UserID: "A", Username: "alice"}
	bob   = types.Identity{UserID: "B", Username: "bob"}
)

func TestRegistry(t *testing.T) {
	t.Run("join is idempotent test", func(t *testing.T) {
		r := presence.New()
		r.Register("c1", alice)
		r.Register("c1", alice)

		assert.True(t, r.AddToRoom("doc1", "A", "c1"))
		assert.False(t, r.AddToRoom("doc1", "A", "c1"))

		assert.Equal(t, []types.Member{{UserID: "A", Username: "alice"}}, r.ListRoom("doc1"))
	})

	t.Run("list room keeps join order test", func(t *testing.T) {
		r := presence.New()
		r.Register("c1", alice)
		r.Register("c2", bob)
		r.AddToRoom("doc1", "B", "c2")
		r.AddToRoom("doc1", "A", "c1")

		assert.Equal(t, []types.Member{
			{UserID: "B", Username: "bob"},
			{UserID: "A", Username: "alice"},
		}, r.ListRoom("doc1"))
		assert.Empty(t, r.ListRoom("doc2"))
	})

	t.Run("member without presence entry test", func(t *testing.T) {
		r := presence.New()
		r.AddToRoom("doc1", "ghost", "c9")

		assert.Equal(t, []types.Member{{UserID: "ghost", Username: ""}}, r.ListRoom("doc1"))
		_, ok := r.Username("ghost")
		assert.False(t, ok)
	})

	t.Run("anonymous identity is not registered test", func(t *testing.T) {
		r := presence.New()
		r.Register("c1", types.Identity{})
		assert.Equal(t, 0, r.Stats()["users"])
	})

	t.Run("remove from room deletes empty room test", func(t *testing.T) {
		r := presence.New()
		r.Register("c1", alice)
		r.AddToRoom("doc1", "A", "c1")

		assert.True(t, r.RemoveFromRoom("doc1", "A", "c1"))
		assert.False(t, r.RemoveFromRoom("doc1", "A", "c1"))
		assert.Equal(t, 0, r.Stats()["rooms"])
		assert.False(t, r.IsMember("doc1", "A"))
	})

	t.Run("unregister returns affected rooms test", func(t *testing.T) {
		r := presence.New()
		r.Register("c1", alice)
		r.Register("c2", bob)
		r.AddToRoom("doc2", "A", "c1")
		r.AddToRoom("doc1", "A", "c1")
		r.AddToRoom("doc1", "B", "c2")

		departures := r.Unregister("c1")
		assert.Equal(t, []presence.Departure{
			{DocumentID: "doc1", Member: types.Member{UserID: "A", Username: "alice"}},
			{DocumentID: "doc2", Member: types.Member{UserID: "A", Username: "alice"}},
		}, departures)

		assert.Equal(t, []types.Member{{UserID: "B", Username: "bob"}}, r.ListRoom("doc1"))
		_, ok := r.Username("A")
		assert.False(t, ok)
		assert.Empty(t, r.Unregister("c1"))
	})

	t.Run("second connection keeps membership test", func(t *testing.T) {
		r := presence.New()
		r.Register("c1", alice)
		r.Register("c3", types.Identity{UserID: "A", Username: "alice-tablet"})
		assert.True(t, r.AddToRoom("doc1", "A", "c1"))
		assert.False(t, r.AddToRoom("doc1", "A", "c3"))

		username, _ := r.Username("A")
		assert.Equal(t, "alice-tablet", username)

		assert.Empty(t, r.Unregister("c1"))
		assert.True(t, r.IsMember("doc1", "A"))

		departures := r.Unregister("c3")
		assert.Len(t, departures, 1)
		assert.False(t, r.IsMember("doc1", "A"))
	})

	t.Run("concurrent join and leave test", func(t *testing.T) {
		r := presence.New()
		wg := sync.WaitGroup{}
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				connID := fmt.Sprintf("c%d", i)
				userID := fmt.Sprintf("u%d", i)
				r.Register(connID, types.Identity{UserID: userID, Username: userID})
				r.AddToRoom("doc1", userID, connID)
				if i%2 == 0 {
					r.Unregister(connID)
				}
			}(i)
		}
		wg.Wait()

		assert.Len(t, r.ListRoom("doc1"), 25)
		assert.Equal(t, 25, r.Stats()["connections"])
	})
}
