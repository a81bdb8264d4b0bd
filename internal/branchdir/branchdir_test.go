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

package branchdir

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/manit/pay2order"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "companies", "acme.json"),
		`{"name": "ACME Foods", "target": "PP"}`)
	writeFile(t, filepath.Join(dir, "branches", "1.json"),
		`{"name": "Riverside", "company_id": "acme"}`)
	writeFile(t, filepath.Join(dir, "branches", "notes.txt"),
		`not a record`)

	l := NewLocked()
	if err := l.UpdateFromDir(dir); err != nil {
		t.Fatal(err)
	}

	b, err := l.BranchByID("1")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b.Name, "Riverside"; got != want {
		t.Errorf("branch name: got %q, want %q", got, want)
	}
	if got, want := b.ID, "1"; got != want {
		t.Errorf("branch id: got %q, want %q", got, want)
	}

	c, err := l.CompanyByID(b.CompanyID)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := c.Target, "PP"; got != want {
		t.Errorf("company target: got %q, want %q", got, want)
	}

	if got, want := len(l.Branches()), 1; got != want {
		t.Errorf("branch count: got %d, want %d", got, want)
	}
}

func TestNotFound(t *testing.T) {
	l := NewLocked()
	if err := l.UpdateFromDir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if _, err := l.BranchByID("77"); !errors.Is(err, pay2order.ErrNotFound) {
		t.Errorf("got %v, want a not-found error", err)
	}
	if _, err := l.CompanyByID("acme"); !errors.Is(err, pay2order.ErrNotFound) {
		t.Errorf("got %v, want a not-found error", err)
	}
}

func TestDanglingCompany(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "branches", "1.json"),
		`{"name": "Riverside", "company_id": "ghost"}`)
	l := NewLocked()
	if err := l.UpdateFromDir(dir); err == nil {
		t.Fatal("expected an error for a branch referencing an unknown company")
	}
}

func TestReloadReplaces(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "companies", "acme.json"),
		`{"name": "ACME Foods", "target": "PP"}`)
	writeFile(t, filepath.Join(dir, "branches", "1.json"),
		`{"name": "Riverside", "company_id": "acme"}`)
	l := NewLocked()
	if err := l.UpdateFromDir(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "branches", "1.json")); err != nil {
		t.Fatal(err)
	}
	if err := l.UpdateFromDir(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := l.BranchByID("1"); !errors.Is(err, pay2order.ErrNotFound) {
		t.Errorf("got %v, want a not-found error after reload", err)
	}
}
