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

// Package branchdir implements a mutex-protected directory of branches
// and their companies, loaded from JSON files on disk and reloadable at
// runtime.
package branchdir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/manit/pay2order"
)

type Locked struct {
	mu        sync.Mutex
	branches  map[string]*pay2order.Branch
	companies map[string]*pay2order.Company
}

func NewLocked() *Locked {
	return &Locked{}
}

func (l *Locked) BranchByID(id string) (*pay2order.Branch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.branches[id]
	if !ok {
		return nil, fmt.Errorf("branch %q: %w", id, pay2order.ErrNotFound)
	}
	return b, nil
}

func (l *Locked) CompanyByID(id string) (*pay2order.Company, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.companies[id]
	if !ok {
		return nil, fmt.Errorf("company %q: %w", id, pay2order.ErrNotFound)
	}
	return c, nil
}

// Branches returns a copy of the current branch map so that callers
// can iterate without holding the lock.
func (l *Locked) Branches() map[string]*pay2order.Branch {
	l.mu.Lock()
	defer l.mu.Unlock()
	branches := make(map[string]*pay2order.Branch, len(l.branches))
	for id, b := range l.branches {
		branches[id] = b
	}
	return branches
}

// loadJSONDir reads every *.json file in dir and calls load with the
// file name (without extension) and the file contents. A missing dir
// is not an error, it just loads empty.
func loadJSONDir(dir string, load func(id string, b []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing configured yet
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if err := load(strings.TrimSuffix(entry.Name(), ".json"), b); err != nil {
			return fmt.Errorf("parsing %s: %v", entry.Name(), err)
		}
	}
	return nil
}

// UpdateFromDir replaces the directory contents with what is on disk:
// dir/branches/<id>.json and dir/companies/<id>.json. The file name
// (without extension) is authoritative for the record id.
func (l *Locked) UpdateFromDir(dir string) error {
	branches := make(map[string]*pay2order.Branch)
	err := loadJSONDir(filepath.Join(dir, "branches"), func(id string, b []byte) error {
		var branch pay2order.Branch
		if err := json.Unmarshal(b, &branch); err != nil {
			return err
		}
		branches[id] = &branch
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading branches: %v", err)
	}
	companies := make(map[string]*pay2order.Company)
	err = loadJSONDir(filepath.Join(dir, "companies"), func(id string, b []byte) error {
		var company pay2order.Company
		if err := json.Unmarshal(b, &company); err != nil {
			return err
		}
		companies[id] = &company
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading companies: %v", err)
	}
	for id, b := range branches {
		b.ID = id
		if _, ok := companies[b.CompanyID]; !ok {
			return fmt.Errorf("branch %q references unknown company %q", id, b.CompanyID)
		}
	}
	for id, c := range companies {
		c.ID = id
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.branches = branches
	l.companies = companies
	return nil
}
