// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package idread resolves whether a requested ID allocation was already
// fulfilled. The request is looked up in the caller's own (possibly
// uncommitted) view while the allocated value is read from the committed
// operational data, where it is written asynchronously by the allocator.
package idread

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/resmgr/model"
)

// Status of a requested allocation.
type Status int

const (
	// Pending means the request exists but no value was assigned yet.
	Pending Status = iota
	// Assigned means the value was allocated and written back.
	Assigned
)

func (s Status) String() string {
	if s == Assigned {
		return "assigned"
	}
	return "pending"
}

// Result of Resolve.
type Result struct {
	Status Status
	Value  int
}

func (r Result) String() string {
	if r.Status == Assigned {
		return fmt.Sprintf("assigned(%d)", r.Value)
	}
	return r.Status.String()
}

// NotFoundKind tells which part of the request is missing.
type NotFoundKind int

const (
	// PoolNotFound is reported when the ID pool entry is missing.
	PoolNotFound NotFoundKind = iota
	// AllocationNotFound is reported when the allocation entry is missing.
	AllocationNotFound
)

// NotFoundError is returned when the request is missing from the caller's view.
type NotFoundError struct {
	Kind         NotFoundKind
	PoolName     string
	AllocationID string
}

func (e *NotFoundError) Error() string {
	if e.Kind == PoolNotFound {
		return fmt.Sprintf("pool %s not found", e.PoolName)
	}
	return fmt.Sprintf("allocation %s not found in pool %s", e.AllocationID, e.PoolName)
}

// IsNotFound returns the NotFoundError causing the error, if any.
func IsNotFound(err error) (*NotFoundError, bool) {
	nf, ok := errors.Cause(err).(*NotFoundError)
	return nf, ok
}

// Viewer opens read-only transactions over committed data.
type Viewer interface {
	View(ds confdb.Datastore, fn func(txn *confdb.ReadTxn) error) error
}

// Reader resolves the state of ID allocation requests.
type Reader struct {
	db Viewer
}

// NewReader returns a new Reader.
func NewReader(db Viewer) *Reader {
	return &Reader{db: db}
}

// Resolve returns Assigned with the value if it was already written back,
// Pending otherwise. A request missing from <view> is a NotFoundError.
func (r *Reader) Resolve(view confdb.Reader, poolName, allocationID string) (Result, error) {
	exists, err := view.Exists(model.PoolPath(poolName))
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, &NotFoundError{Kind: PoolNotFound, PoolName: poolName, AllocationID: allocationID}
	}
	exists, err = view.Exists(model.AllocationPath(poolName, allocationID))
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, &NotFoundError{Kind: AllocationNotFound, PoolName: poolName, AllocationID: allocationID}
	}

	var (
		value string
		found bool
	)
	err = r.db.View(confdb.Operational, func(txn *confdb.ReadTxn) (err error) {
		value, found, err = txn.Get(model.AssignedIDPath(poolName, allocationID))
		return err
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to read operational data")
	}
	if !found {
		return Result{Status: Pending}, nil
	}
	id, err := model.ParseAssignedID(value)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: Assigned, Value: id}, nil
}
