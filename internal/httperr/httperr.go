// Copyright 2023 the pay2order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httperr implements middleware which serves returned errors as HTTP
// internal server errors.
package httperr

import (
	"context"
	"errors"
	"log"
	"net/http"
)

// Err associates an HTTP status code with an error. Handlers return it
// (via Error) when a status other than 500 fits better.
type Err struct {
	Code int
	Err  error
}

func (h *Err) Error() string {
	return h.Err.Error()
}

func (h *Err) Unwrap() error {
	return h.Err
}

func Error(code int, err error) error {
	return &Err{code, err}
}

// Handle turns an error-returning handler into an http.Handler. A nil
// return means the handler already wrote its response. Errors are
// logged and served as plain text with their status code, defaulting
// to 500. context.Canceled is discarded: the client went away.
func Handle(h func(http.ResponseWriter, *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path // will be modified during request processing
		err := h(w, r)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			return // client canceled the request
		}
		code := http.StatusInternalServerError
		unwrapped := err
		var he *Err
		if errors.As(err, &he) {
			code = he.Code
			unwrapped = he.Err
		}
		log.Printf("%s %s: HTTP %d %s", r.Method, path, code, unwrapped)
		http.Error(w, unwrapped.Error(), code)
	})
}
