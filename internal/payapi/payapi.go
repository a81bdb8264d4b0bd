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

// Package payapi implements the HTTP API of pay2order: point of sale
// terminals request payment code images (and printable receipts) for
// pending orders.
//
// # Example Usage
//
// You can use this API with curl on the command line like so:
//
//	curl -s -X POST -H "X-API-Key: $key" \
//	    -d payment_id=123 -d branch=1 -d user=42 -d amount=100.00 \
//	    http://localhost:7121/api/paycode > code.png
package payapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/trace"

	"github.com/manit/pay2order"
	"github.com/manit/pay2order/internal/httperr"
	"github.com/manit/pay2order/internal/payauth"
	"github.com/manit/pay2order/internal/payimage"
	"github.com/manit/pay2order/internal/receipt"
)

// API serves payment code requests. Publish, if non-nil, is called
// with every generated image so that it can be pushed to displays
// listening on MQTT.
type API struct {
	Branches  pay2order.BranchDirectory
	Companies pay2order.CompanyDirectory

	// Now returns the issue timestamp for new requests. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time

	Publish func(req *pay2order.CodeRequest, png []byte)
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// validAmount reports whether s is a plain decimal amount with exactly
// two fractional digits, e.g. "100.00".
func validAmount(s string) bool {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || whole == "" || len(frac) != 2 {
		return false
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// codeRequest builds a CodeRequest from the request form, resolving
// the branch and its company for the payment target.
func (a *API) codeRequest(r *http.Request) (*pay2order.CodeRequest, *pay2order.Branch, *pay2order.Company, error) {
	if got, want := r.Method, "POST"; got != want {
		return nil, nil, nil, httperr.Error(
			http.StatusMethodNotAllowed,
			fmt.Errorf("unexpected HTTP method: got %v, want %v", got, want))
	}
	req := &pay2order.CodeRequest{
		PaymentID: r.FormValue("payment_id"),
		BranchID:  r.FormValue("branch"),
		UserID:    r.FormValue("user"),
		Amount:    r.FormValue("amount"),
		IssuedAt:  a.now(),
	}
	if req.PaymentID == "" || req.BranchID == "" || req.UserID == "" {
		return nil, nil, nil, httperr.Error(
			http.StatusBadRequest,
			fmt.Errorf("missing one of the payment_id, branch, user form values"))
	}
	if !validAmount(req.Amount) {
		return nil, nil, nil, httperr.Error(
			http.StatusBadRequest,
			fmt.Errorf("malformed amount %q: want digits with exactly two decimals, e.g. 100.00", req.Amount))
	}
	branch, err := a.Branches.BranchByID(req.BranchID)
	if err != nil {
		if errors.Is(err, pay2order.ErrNotFound) {
			return nil, nil, nil, httperr.Error(http.StatusNotFound, err)
		}
		return nil, nil, nil, err
	}
	company, err := a.Companies.CompanyByID(branch.CompanyID)
	if err != nil {
		if errors.Is(err, pay2order.ErrNotFound) {
			return nil, nil, nil, httperr.Error(http.StatusNotFound, err)
		}
		return nil, nil, nil, err
	}
	req.Target = company.Target
	return req, branch, company, nil
}

// acceptsJSON reports whether the first media range in accept is
// application/json. Clients which prefer the JSON envelope list it
// first; everybody else gets the raw image.
func acceptsJSON(accept string) bool {
	first, _, _ := strings.Cut(accept, ",")
	mediatype, _, _ := strings.Cut(first, ";")
	return strings.TrimSpace(mediatype) == "application/json"
}

type codeReply struct {
	RequestID string `json:"requestId"`
	Image     string `json:"image"`
}

func (a *API) paycodeHandler(w http.ResponseWriter, r *http.Request) error {
	tr := trace.New("PayAPI", "paycode")
	defer tr.Finish()

	req, _, _, err := a.codeRequest(r)
	if err != nil {
		tr.LazyPrintf("bad request: %v", err)
		tr.SetError()
		return err
	}
	requestID := uuid.NewString()
	tr.LazyPrintf("request %s: payment %s at branch %s", requestID, req.PaymentID, req.BranchID)

	png, err := payimage.Generate(req.Seed())
	if err != nil {
		tr.SetError()
		return err
	}
	tr.LazyPrintf("generated %d bytes", len(png))

	if a.Publish != nil {
		a.Publish(req, png)
	}

	if acceptsJSON(r.Header.Get("Accept")) {
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(codeReply{
			RequestID: requestID,
			Image:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		})
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-Id", requestID)
	_, err = w.Write(png)
	return err
}

func (a *API) receiptHandler(w http.ResponseWriter, r *http.Request) error {
	tr := trace.New("PayAPI", "receipt")
	defer tr.Finish()

	req, branch, company, err := a.codeRequest(r)
	if err != nil {
		tr.LazyPrintf("bad request: %v", err)
		tr.SetError()
		return err
	}

	pdf, err := receipt.Generate(req, branch, company)
	if err != nil {
		tr.SetError()
		return fmt.Errorf("generating receipt: %v", err)
	}
	tr.LazyPrintf("generated %d bytes", len(pdf))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, req.PaymentID))
	_, err = w.Write(pdf)
	return err
}

type branchesReply struct {
	Branches []*pay2order.Branch `json:"branches"`
}

// Lister is implemented by branch directories which can enumerate
// their branches.
type Lister interface {
	Branches() map[string]*pay2order.Branch
}

func (a *API) branchesHandler(w http.ResponseWriter, r *http.Request) error {
	lister, ok := a.Branches.(Lister)
	if !ok {
		return httperr.Error(http.StatusNotFound, fmt.Errorf("branch listing not supported"))
	}
	var reply branchesReply
	for _, b := range lister.Branches() {
		reply.Branches = append(reply.Branches, b)
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(reply)
}

// ServeMux returns the API routes, with everything but login gated
// behind gate.
func ServeMux(a *API, gate *payauth.Gate) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/login", httperr.Handle(gate.LoginHandler))
	mux.Handle("/api/signout", httperr.Handle(gate.SignoutHandler))
	mux.Handle("/api/paycode", httperr.Handle(gate.Require(a.paycodeHandler)))
	mux.Handle("/api/receipt", httperr.Handle(gate.Require(a.receiptHandler)))
	mux.Handle("/api/branches", httperr.Handle(gate.Require(a.branchesHandler)))
	return mux
}
