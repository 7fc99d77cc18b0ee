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

package types_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell-team/inkwell/api/types"
)

func TestID(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		assert.NoError(t, types.ID("doc1").Validate())
		assert.NoError(t, types.ID("65f1c0a7e13f4a7c2b3d4e5f").Validate())
		assert.True(t, errors.Is(types.ID("").Validate(), types.ErrInvalidID))
		assert.True(t, errors.Is(types.ID("a/b").Validate(), types.ErrInvalidID))
	})
}

func TestPermission(t *testing.T) {
	t.Run("allows test", func(t *testing.T) {
		assert.True(t, types.PermWrite.Allows(types.PermRead))
		assert.True(t, types.PermWrite.Allows(types.PermWrite))
		assert.True(t, types.PermRead.Allows(types.PermRead))
		assert.False(t, types.PermRead.Allows(types.PermWrite))
		assert.False(t, types.Permission("").Allows(types.PermRead))
	})

	t.Run("valid test", func(t *testing.T) {
		assert.True(t, types.PermRead.Valid())
		assert.False(t, types.Permission("owner").Valid())
	})
}

func TestIdentity(t *testing.T) {
	assert.True(t, types.Identity{}.IsAnonymous())
	assert.False(t, types.Identity{UserID: "A", Username: "alice"}.IsAnonymous())
}
