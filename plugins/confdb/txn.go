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
	"strconv"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/contiv/resmgr/pkg/keypath"
)

// ReadTxn is a read-only view of committed data of one datastore.
type ReadTxn struct {
	ds     Datastore
	tx     *bbolt.Tx
	bucket *bbolt.Bucket
}

// Datastore returns the datastore the transaction reads from.
func (t *ReadTxn) Datastore() Datastore {
	return t.ds
}

// Exists returns true if the node exists.
func (t *ReadTxn) Exists(kp keypath.KeyPath) (bool, error) {
	if t.tx == nil {
		return false, ErrTxnClosed
	}
	if t.bucket.Get([]byte(kp.String())) != nil {
		return true, nil
	}
	// list nodes are not stored, they exist as long as they have an entry
	return len(subtreeKeys(t.bucket, kp)) > 0, nil
}

// Get returns the value of a leaf.
func (t *ReadTxn) Get(kp keypath.KeyPath) (value string, found bool, err error) {
	if t.tx == nil {
		return "", false, ErrTxnClosed
	}
	n, err := getNode(t.bucket, kp.String())
	if err != nil || n == nil || n.Kind != leafNode {
		return "", false, err
	}
	return n.Value, true, nil
}

// Close releases the transaction. Safe to call more than once.
func (t *ReadTxn) Close() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	return err
}

type opKind int

const (
	createOp opKind = iota
	setOp
	deleteOp
)

type txnOp struct {
	kind  opKind
	path  keypath.KeyPath
	value string
}

// WriteTxn collects changes of one datastore and applies them atomically.
// Reads through the transaction see the pending changes on top of the
// committed data.
type WriteTxn struct {
	db      *DB
	ds      Datastore
	ops     []txnOp
	applied bool
}

// Datastore returns the datastore the transaction writes into.
func (t *WriteTxn) Datastore() Datastore {
	return t.ds
}

// Create creates a container or a list entry, including missing ancestors.
// NOOP if the node already exists.
func (t *WriteTxn) Create(kp keypath.KeyPath) error {
	if t.applied {
		return ErrTxnClosed
	}
	if kp.Len() == 0 {
		return errors.New("cannot create the root node")
	}
	t.ops = append(t.ops, txnOp{kind: createOp, path: kp})
	return nil
}

// Set sets the value of a leaf, creating missing ancestors.
func (t *WriteTxn) Set(kp keypath.KeyPath, value string) error {
	if t.applied {
		return ErrTxnClosed
	}
	if elem, ok := kp.At(0); !ok || elem.IsKey() {
		return errors.Errorf("%v is not a leaf", kp)
	}
	t.ops = append(t.ops, txnOp{kind: setOp, path: kp, value: value})
	return nil
}

// SetInt sets an integer value of a leaf.
func (t *WriteTxn) SetInt(kp keypath.KeyPath, value int) error {
	return t.Set(kp, strconv.Itoa(value))
}

// Delete removes the node with its whole subtree. NOOP if it does not exist.
func (t *WriteTxn) Delete(kp keypath.KeyPath) error {
	if t.applied {
		return ErrTxnClosed
	}
	t.ops = append(t.ops, txnOp{kind: deleteOp, path: kp})
	return nil
}

// Exists returns true if the node exists, pending changes included.
func (t *WriteTxn) Exists(kp keypath.KeyPath) (bool, error) {
	for i := len(t.ops) - 1; i >= 0; i-- {
		op := t.ops[i]
		switch {
		case op.kind == deleteOp && (op.path.Equal(kp) || op.path.IsAncestorOf(kp)):
			return false, nil
		case op.kind != deleteOp && (op.path.Equal(kp) || kp.IsAncestorOf(op.path)):
			return true, nil
		}
	}
	var exists bool
	err := t.db.View(t.ds, func(txn *ReadTxn) (err error) {
		exists, err = txn.Exists(kp)
		return err
	})
	return exists, err
}

// Get returns the value of a leaf, pending changes included.
func (t *WriteTxn) Get(kp keypath.KeyPath) (value string, found bool, err error) {
	for i := len(t.ops) - 1; i >= 0; i-- {
		op := t.ops[i]
		switch {
		case op.kind == setOp && op.path.Equal(kp):
			return op.value, true, nil
		case op.kind == deleteOp && (op.path.Equal(kp) || op.path.IsAncestorOf(kp)):
			return "", false, nil
		}
	}
	n, err := t.db.readNode(t.ds, kp)
	if err != nil || n == nil || n.Kind != leafNode {
		return "", false, err
	}
	return n.Value, true, nil
}

// Apply commits the changes, runs kickers monitoring the changed data and
// returns the transaction ID. The transaction cannot be used afterwards.
func (t *WriteTxn) Apply() (tid int64, err error) {
	if t.applied {
		return 0, ErrTxnClosed
	}
	t.applied = true

	var changes []*Change
	err = t.db.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(t.ds.bucket())
		if bucket == nil {
			return errors.Errorf("datastore %v does not exist", t.ds)
		}
		var err error
		changes, err = applyOps(bucket, t.ops)
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to apply %v transaction", t.ds)
	}

	tid = t.db.nextTid()
	if len(changes) == 0 {
		return tid, nil
	}
	t.db.log.Debugf("Applied %v transaction %d with %d change(s)", t.ds, tid, len(changes))
	t.db.runKickers(newDiff(tid, t.ds, changes))
	return tid, nil
}

// applyOps writes the operations into the bucket and returns the changed nodes.
func applyOps(bucket *bbolt.Bucket, ops []txnOp) ([]*Change, error) {
	var (
		order  []string
		paths  = map[string]keypath.KeyPath{}
		before = map[string]*node{}
	)
	touch := func(key string, kp keypath.KeyPath) error {
		if _, seen := before[key]; seen {
			return nil
		}
		n, err := getNode(bucket, key)
		if err != nil {
			return err
		}
		before[key] = n
		paths[key] = kp
		order = append(order, key)
		return nil
	}
	ensure := func(kp keypath.KeyPath, kind nodeKind) error {
		key := kp.String()
		if err := touch(key, kp); err != nil {
			return err
		}
		existing, err := getNode(bucket, key)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Kind != kind {
				return errors.Errorf("%v is a %s, not a %s", kp, existing.Kind, kind)
			}
			return nil
		}
		return putNode(bucket, key, &node{Kind: kind})
	}

	for _, op := range ops {
		switch op.kind {
		case createOp, setOp:
			for _, anc := range ancestors(op.path) {
				if err := ensure(anc, kindOf(anc)); err != nil {
					return nil, err
				}
			}
			if op.kind == createOp {
				if err := ensure(op.path, kindOf(op.path)); err != nil {
					return nil, err
				}
				continue
			}
			key := op.path.String()
			if err := touch(key, op.path); err != nil {
				return nil, err
			}
			if existing, err := getNode(bucket, key); err != nil {
				return nil, err
			} else if existing != nil && existing.Kind != leafNode {
				return nil, errors.Errorf("%v is a %s, not a leaf", op.path, existing.Kind)
			}
			if err := putNode(bucket, key, &node{Kind: leafNode, Value: op.value}); err != nil {
				return nil, err
			}
		case deleteOp:
			for _, key := range subtreeKeys(bucket, op.path) {
				kp, err := keypath.Parse(key)
				if err != nil {
					return nil, errors.Wrapf(err, "corrupted key %s", key)
				}
				if err := touch(key, kp); err != nil {
					return nil, err
				}
				if err := bucket.Delete([]byte(key)); err != nil {
					return nil, err
				}
			}
		}
	}

	var changes []*Change
	for _, key := range order {
		prev := before[key]
		cur, err := getNode(bucket, key)
		if err != nil {
			return nil, err
		}
		change := &Change{Path: paths[key]}
		switch {
		case prev == nil && cur == nil:
			continue
		case prev == nil:
			change.Op, change.kind, change.NewValue = OpCreated, cur.Kind, cur.Value
			if cur.Kind == leafNode {
				change.Op = OpValueSet
			}
		case cur == nil:
			change.Op, change.kind, change.OldValue = OpDeleted, prev.Kind, prev.Value
		case cur.Kind == leafNode && cur.Value != prev.Value:
			change.Op, change.kind = OpValueSet, leafNode
			change.OldValue, change.NewValue = prev.Value, cur.Value
		default:
			continue
		}
		changes = append(changes, change)
	}
	return addModifiedAncestors(bucket, collapseDeleted(changes))
}
