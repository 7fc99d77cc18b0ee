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

package web

import (
	"encoding/json"
	"net/http"

	"github.com/inkwell-team/inkwell/pkg/errors"
	"github.com/inkwell-team/inkwell/server/logging"
)

// httpStatusOf maps the status of an error to an HTTP status code.
func httpStatusOf(err error) int {
	switch errors.StatusOf(err) {
	case errors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case errors.ErrCodePermissionDenied:
		return http.StatusForbidden
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAlreadyExists:
		return http.StatusConflict
	case errors.ErrCodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case errors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.From(r.Context()).Warnf("HTTP: encode response: %v", err)
	}
}

// writeError renders err. Server errors are logged and their message is not
// exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusOf(err)
	body := ErrorResponse{Message: err.Error(), Code: errors.CodeOf(err)}
	if status >= http.StatusInternalServerError {
		logging.From(r.Context()).Errorf("HTTP: %s %s: %v", r.Method, r.URL.Path, err)
		body.Message = http.StatusText(status)
	}
	writeJSON(w, r, status, body)
}
