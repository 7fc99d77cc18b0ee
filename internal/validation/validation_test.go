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

package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Run("ValidateValue test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("doc1", "required,document_id,max=64"))
		assert.NoError(t, ValidateValue("65f1c0a7e13f4a7c2b3d4e5f", "required,document_id"))

		err := ValidateValue("doc 1", "required,document_id")
		assert.Equal(t, "document_id", err.(Violation).Tag)

		err = ValidateValue("", "required,document_id")
		assert.Equal(t, "required", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("write", "permission"))
		err = ValidateValue("admin", "permission")
		assert.Equal(t, "permission", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("1h30m20s", "duration"))
		assert.NoError(t, ValidateValue("500ms", "duration"))
		err = ValidateValue("one hour", "duration")
		assert.Equal(t, "duration", err.(Violation).Tag)
	})

	t.Run("ValidateStruct test", func(t *testing.T) {
		type share struct {
			UserID     string `validate:"required"`
			Permission string `validate:"required,permission"`
		}

		err := ValidateStruct(share{Permission: "owner"})
		structError := &StructError{}
		assert.True(t, errors.As(err, &structError))
		assert.Len(t, structError.Violations, 2)
		assert.Equal(t, "UserID", structError.Violations[0].Field)
		assert.Contains(t, err.Error(), "Permission must be either read or write")

		assert.NoError(t, ValidateStruct(share{UserID: "u1", Permission: "read"}))
	})

	t.Run("custom rule test", func(t *testing.T) {
		assert.NoError(t, RegisterValidation("lowercase_doc", func(v FieldLevel) bool {
			return v.Field().String() == "doc"
		}))
		assert.NoError(t, RegisterTranslation("lowercase_doc", "{0} must be doc"))

		err := ValidateValue("DOC", "lowercase_doc")
		assert.Error(t, err)
		assert.Equal(t, "lowercase_doc", err.(Violation).Tag)
	})
}
