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

// Package pay2order contains domain types for pay2order, like payment
// code requests or branch records.
package pay2order

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by directory lookups for unknown ids.
var ErrNotFound = errors.New("not found")

// A CodeRequest is received via MQTT or HTTP and describes one payment
// code image to generate.
type CodeRequest struct {
	// Target is the payment rail tag of the receiving company,
	// e.g. "PP" for PromptPay.
	Target string `json:"target"`

	PaymentID string `json:"payment_id"`
	BranchID  string `json:"branch"`
	UserID    string `json:"user"`

	// Amount is the monetary amount in fixed two-decimal textual
	// form, e.g. "100.00".
	Amount string `json:"amount"`

	IssuedAt time.Time `json:"-"`
}

// Seed returns the seed string which deterministically drives all
// non-structural content of the generated image. Field order and
// delimiters are part of the image format: any change here changes
// every generated image and must be treated as a breaking format
// change.
func (r *CodeRequest) Seed() string {
	return fmt.Sprintf("PAYTO:%s|payment_id=%s|branch=%s|user=%s|amount=%s|ts=%d",
		r.Target, r.PaymentID, r.BranchID, r.UserID, r.Amount, r.IssuedAt.Unix())
}

// A Branch is one physical restaurant location taking orders.
type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// CompanyID names the company whose account receives payments
	// made at this branch.
	CompanyID string `json:"company_id"`
}

// A Company is a payment target: the legal entity whose account the
// generated code points at.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Target is the payment rail tag, e.g. "PP" for PromptPay.
	Target string `json:"target"`
}

// BranchDirectory resolves branch ids to branch records.
type BranchDirectory interface {
	// BranchByID returns the branch with the given id, or an error
	// wrapping ErrNotFound.
	BranchByID(id string) (*Branch, error)
}

// CompanyDirectory resolves company ids to company records.
type CompanyDirectory interface {
	// CompanyByID returns the company with the given id, or an error
	// wrapping ErrNotFound.
	CompanyByID(id string) (*Company, error)
}
