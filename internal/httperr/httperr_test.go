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

package httperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandle(t *testing.T) {
	for _, test := range []struct {
		num      int
		err      error
		wantCode int
	}{
		{1, nil, http.StatusOK},
		{2, errors.New("boom"), http.StatusInternalServerError},
		{3, Error(http.StatusNotFound, errors.New("no such branch")), http.StatusNotFound},
		{4, fmt.Errorf("looking up branch: %w", Error(http.StatusBadRequest, errors.New("missing field"))), http.StatusBadRequest},
		{5, fmt.Errorf("generating: %w", context.Canceled), http.StatusOK},
	} {
		t.Run(fmt.Sprintf("%d", test.num), func(t *testing.T) {
			h := Handle(func(w http.ResponseWriter, r *http.Request) error {
				return test.err
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/paycode", nil))
			if got, want := rec.Code, test.wantCode; got != want {
				t.Errorf("got status %d, want %d", got, want)
			}
		})
	}
}
