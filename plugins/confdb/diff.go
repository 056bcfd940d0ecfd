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

package confdb

import (
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/contiv/resmgr/pkg/keypath"
)

// Change describes one changed node.
type Change struct {
	Path     keypath.KeyPath
	Op       Op
	OldValue string
	NewValue string

	kind     nodeKind
	children []*Change
}

// DiffIterFunc is called for every reported change during diff iteration.
type DiffIterFunc func(kp keypath.KeyPath, op Op, oldValue, newValue string) IterResult

// Diff is the ordered tree of changes made by one transaction.
type Diff struct {
	Tid       int64
	Datastore Datastore

	roots []*Change
	all   []*Change
}

// Changes returns all changes in depth-first pre-order.
func (d *Diff) Changes() []*Change {
	return d.all
}

// Iterate walks the changes depth-first in pre-order.
func (d *Diff) Iterate(fn DiffIterFunc, flags IterFlags) {
	iterate(d.roots, fn, flags)
}

// iterate returns true if the iteration was stopped.
func iterate(changes []*Change, fn DiffIterFunc, flags IterFlags) bool {
	for _, change := range changes {
		if change.kind == containerNode && flags&WantPContainer == 0 {
			if iterate(change.children, fn, flags) {
				return true
			}
			continue
		}
		switch fn(change.Path, change.Op, change.OldValue, change.NewValue) {
		case IterStop:
			return true
		case IterContinue:
			continue
		}
		if iterate(change.children, fn, flags) {
			return true
		}
	}
	return false
}

// newDiff arranges the changes into a tree ordered depth-first in pre-order.
func newDiff(tid int64, ds Datastore, changes []*Change) *Diff {
	sort.Slice(changes, func(i, j int) bool {
		return keypath.Compare(changes[i].Path, changes[j].Path) < 0
	})
	d := &Diff{Tid: tid, Datastore: ds, all: changes}

	var stack []*Change
	for _, change := range changes {
		for len(stack) > 0 && !stack[len(stack)-1].Path.IsAncestorOf(change.Path) {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			d.roots = append(d.roots, change)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, change)
		}
		stack = append(stack, change)
	}
	return d
}

// collapseDeleted drops deletions of nodes whose ancestor was deleted too.
func collapseDeleted(changes []*Change) []*Change {
	var deleted []keypath.KeyPath
	for _, change := range changes {
		if change.Op == OpDeleted {
			deleted = append(deleted, change.Path)
		}
	}
	res := changes[:0]
	for _, change := range changes {
		collapsed := false
		if change.Op == OpDeleted {
			for _, kp := range deleted {
				if kp.IsAncestorOf(change.Path) {
					collapsed = true
					break
				}
			}
		}
		if !collapsed {
			res = append(res, change)
		}
	}
	return res
}

// addModifiedAncestors reports every existing stored ancestor of a change
// as modified.
func addModifiedAncestors(bucket *bbolt.Bucket, changes []*Change) ([]*Change, error) {
	seen := map[string]bool{}
	for _, change := range changes {
		seen[change.Path.String()] = true
	}
	res := changes
	for _, change := range changes {
		for _, anc := range ancestors(change.Path) {
			key := anc.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			n, err := getNode(bucket, key)
			if err != nil {
				return nil, err
			}
			if n == nil {
				continue
			}
			res = append(res, &Change{Path: anc, Op: OpModified, kind: n.Kind})
		}
	}
	return res, nil
}

// AttachedTxn gives access to the diff of an applied transaction.
type AttachedTxn struct {
	sync.Mutex
	db   *DB
	diff *Diff
}

// Attach attaches to the transaction with the given ID. The diff of a
// transaction is available while its kickers are running.
func (db *DB) Attach(tid int64) (*AttachedTxn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	diff, ok := db.diffs[tid]
	if !ok {
		return nil, ErrUnknownTxn
	}
	return &AttachedTxn{db: db, diff: diff}, nil
}

// Tid returns the ID of the attached transaction.
func (t *AttachedTxn) Tid() int64 {
	t.Lock()
	defer t.Unlock()
	if t.diff == nil {
		return 0
	}
	return t.diff.Tid
}

// DiffIterate walks the changes of the transaction depth-first in pre-order.
func (t *AttachedTxn) DiffIterate(fn DiffIterFunc, flags IterFlags) error {
	t.Lock()
	diff := t.diff
	t.Unlock()
	if diff == nil {
		return ErrTxnClosed
	}
	diff.Iterate(fn, flags)
	return nil
}

// Detach releases the transaction. Safe to call more than once.
func (t *AttachedTxn) Detach() {
	t.Lock()
	defer t.Unlock()
	t.diff = nil
}
