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

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	t.Run("string test", func(t *testing.T) {
		assert.Equal(t, "not_found", ErrCodeNotFound.String())
		assert.Equal(t, "permission_denied", ErrCodePermissionDenied.String())
		assert.Equal(t, "internal", ErrCodeInternal.String())
		assert.Equal(t, "code_999", StatusCode(999).String())
	})

	t.Run("category test", func(t *testing.T) {
		for _, code := range []StatusCode{
			ErrCodeInvalidArgument, ErrCodeNotFound, ErrCodePermissionDenied,
			ErrCodeFailedPrecondition, ErrCodeUnauthenticated,
		} {
			assert.True(t, code.IsClientError(), code.String())
			assert.False(t, code.IsServerError(), code.String())
		}
		for _, code := range []StatusCode{ErrCodeInternal, ErrCodeUnavailable} {
			assert.False(t, code.IsClientError(), code.String())
			assert.True(t, code.IsServerError(), code.String())
		}
	})
}

func TestStatusError(t *testing.T) {
	t.Run("status of wrapped error test", func(t *testing.T) {
		base := NotFound("document not found").WithCode("ErrDocumentNotFound")
		wrapped := fmt.Errorf("find doc1: %w", base)

		assert.Equal(t, ErrCodeNotFound, StatusOf(wrapped))
		assert.Equal(t, "ErrDocumentNotFound", CodeOf(wrapped))
		assert.True(t, IsStatus(wrapped, ErrCodeNotFound))
		assert.True(t, errors.Is(wrapped, base))
		assert.True(t, IsClientError(wrapped))
	})

	t.Run("plain error test", func(t *testing.T) {
		err := errors.New("boom")
		assert.Equal(t, StatusCode(0), StatusOf(err))
		assert.Equal(t, "", CodeOf(err))
		assert.False(t, IsStatus(nil, ErrCodeNotFound))
		assert.False(t, IsServerError(err))
	})

	t.Run("with code keeps status test", func(t *testing.T) {
		err := Internal("store down").WithCode("ErrPersistence")
		assert.Equal(t, "store down", err.Error())
		assert.Equal(t, ErrCodeInternal, err.Status())
		assert.True(t, IsServerError(err))
	})
}
