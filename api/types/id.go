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

// Package types provides the types shared by the Inkwell server, its HTTP and
// realtime surfaces, and the command line client.
package types

import (
	"errors"
	"fmt"

	"github.com/inkwell-team/inkwell/internal/validation"
)

// ErrInvalidID is returned when an ID contains characters outside the
// unreserved URI set.
var ErrInvalidID = errors.New("invalid ID")

// ID identifies a document. It is opaque to the protocol; documents created by
// the server use 24-character hexadecimal ids.
type ID string

// String returns the string form of this ID.
func (id ID) String() string {
	return string(id)
}

// Validate returns an error if this ID cannot address a document.
func (id ID) Validate() error {
	if err := validation.ValidateValue(string(id), "required,document_id,max=128"); err != nil {
		return fmt.Errorf("%q: %w", id, ErrInvalidID)
	}
	return nil
}
