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

// Package diffproc reacts to changes of the resource-manager data tree:
// it allocates a value for every newly created allocation request, writes it
// back into the operational data and releases values of deleted allocations.
package diffproc

import (
	"github.com/ligato/cn-infra/logging"

	"github.com/contiv/resmgr/pkg/keypath"
	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/resmgr/model"
)

// UnmatchedPolicy selects how the diff iteration continues after a change
// not related to ID allocation.
type UnmatchedPolicy int

const (
	// RecurseUnmatched descends into children of unmatched changes.
	RecurseUnmatched UnmatchedPolicy = iota
	// SkipUnmatched skips children of unmatched changes.
	SkipUnmatched
	// StopUnmatched aborts the iteration at the first unmatched change.
	StopUnmatched
)

// ParseUnmatchedPolicy parses policy name as used in configuration.
func ParseUnmatchedPolicy(name string) (UnmatchedPolicy, bool) {
	switch name {
	case "", "recurse":
		return RecurseUnmatched, true
	case "skip":
		return SkipUnmatched, true
	case "stop":
		return StopUnmatched, true
	}
	return RecurseUnmatched, false
}

func (p UnmatchedPolicy) iterResult() confdb.IterResult {
	switch p {
	case SkipUnmatched:
		return confdb.IterContinue
	case StopUnmatched:
		return confdb.IterStop
	}
	return confdb.IterRecurse
}

func (p UnmatchedPolicy) String() string {
	switch p {
	case SkipUnmatched:
		return "skip"
	case StopUnmatched:
		return "stop"
	}
	return "recurse"
}

// Allocator allocates and releases values of ID pools.
type Allocator interface {
	Allocate(allocationID, poolName string) (value int, allocated bool, err error)
	Deallocate(allocationID, poolName string) (removed int, err error)
}

// DB gives access to transaction diffs and accepts write-backs.
type DB interface {
	Attach(tid int64) (*confdb.AttachedTxn, error)
	Update(ds confdb.Datastore, fn func(txn *confdb.WriteTxn) error) (tid int64, err error)
}

// Processor drives the Allocator by the changes of a committed transaction.
type Processor struct {
	db        DB
	allocator Allocator
	log       logging.Logger
	unmatched UnmatchedPolicy
}

// Option customizes the Processor.
type Option func(*Processor)

// WithLogger sets the logger used by the Processor.
func WithLogger(log logging.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// WithUnmatchedPolicy sets how to continue after unmatched changes.
func WithUnmatchedPolicy(policy UnmatchedPolicy) Option {
	return func(p *Processor) {
		p.unmatched = policy
	}
}

// NewProcessor returns a new Processor.
func NewProcessor(db DB, allocator Allocator, opts ...Option) *Processor {
	p := &Processor{db: db, allocator: allocator}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logging.ForPlugin("resmgr")
	}
	return p
}

// Process attaches to the transaction which triggered the kicker and walks
// its diff. The transaction is detached on return.
func (p *Processor) Process(input confdb.ActionInput) error {
	p.log.Infof("kicker-id: %s, path: %s, tid: %d", input.KickerID, input.Path, input.Tid)

	txn, err := p.db.Attach(input.Tid)
	if err != nil {
		p.log.Errorf("Failed to attach to transaction %d: %v", input.Tid, err)
		return err
	}
	defer txn.Detach()

	return txn.DiffIterate(p.processChange, confdb.WantPContainer)
}

func (p *Processor) processChange(kp keypath.KeyPath, op confdb.Op, oldValue, newValue string) confdb.IterResult {
	event := Classify(kp, op)
	switch event.Kind {
	case AllocationRequested:
		p.log.Debugf("Allocation requested: %v %v", op, kp)
		p.allocate(kp, event)
	case AllocationDeleted:
		p.log.Debugf("Allocation deleted: %v %v", op, kp)
		p.deallocate(kp, event)
	default:
		return p.unmatched.iterResult()
	}
	return confdb.IterRecurse
}

func (p *Processor) allocate(kp keypath.KeyPath, event Event) {
	value, allocated, err := p.allocator.Allocate(event.AllocationID, event.PoolName)
	if err != nil {
		p.log.Errorf("Failed to allocate ID for %s in pool %s: %v", event.AllocationID, event.PoolName, err)
		return
	}
	if !allocated {
		p.log.Errorf("Pool %s is exhausted, allocation %s left pending", event.PoolName, event.AllocationID)
		return
	}

	// the request container is a sibling of the response
	assignedPath := kp.Parent().Child(model.ResponseTag, model.AssignedIDTag)
	_, err = p.db.Update(confdb.Operational, func(txn *confdb.WriteTxn) error {
		return txn.SetInt(assignedPath, value)
	})
	if err != nil {
		p.log.Errorf("Failed to write assigned ID %d to %v: %v", value, assignedPath, err)
		return
	}
	p.log.Infof("Assigned ID %d from pool %s to %s", value, event.PoolName, event.AllocationID)
}

func (p *Processor) deallocate(kp keypath.KeyPath, event Event) {
	removed, err := p.allocator.Deallocate(event.AllocationID, event.PoolName)
	if err != nil {
		p.log.Errorf("Failed to release ID of %s in pool %s: %v", event.AllocationID, event.PoolName, err)
		return
	}
	p.log.Infof("Released %d ID(s) of %s in pool %s", removed, event.AllocationID, event.PoolName)

	// operational data of the entry go away with the entry
	_, err = p.db.Update(confdb.Operational, func(txn *confdb.WriteTxn) error {
		return txn.Delete(kp)
	})
	if err != nil {
		p.log.Errorf("Failed to remove operational data of %v: %v", kp, err)
	}
}
