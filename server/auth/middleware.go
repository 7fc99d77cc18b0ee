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

package auth

import (
	"net/http"
	"strings"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/pkg/errors"
)

// ErrUnauthenticated is returned when a request carries no valid token.
var ErrUnauthenticated = errors.Unauthenticated("authentication required").WithCode("ErrUnauthenticated")

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header, or an empty string.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Authenticate resolves the identity of the request from its bearer token.
func (m *TokenManager) Authenticate(r *http.Request) (types.Identity, error) {
	token := BearerToken(r)
	if token == "" {
		return types.Identity{}, ErrUnauthenticated
	}

	claims, err := m.Verify(token)
	if err != nil {
		return types.Identity{}, ErrUnauthenticated
	}
	return claims.Identity(), nil
}

// Middleware rejects requests without a valid bearer token and stores the
// identity of the others in the request context. onError renders the
// rejection.
func (m *TokenManager) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := m.Authenticate(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(CtxWithIdentity(r.Context(), identity)))
		})
	}
}
