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
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/contiv/resmgr/pkg/keypath"
)

// nodeKind distinguishes stored nodes.
type nodeKind string

const (
	containerNode nodeKind = "container"
	entryNode     nodeKind = "entry"
	leafNode      nodeKind = "leaf"
)

// node is the stored representation of a data tree node.
type node struct {
	Kind  nodeKind `json:"kind"`
	Value string   `json:"value,omitempty"`
}

// Reader provides read access to a data tree.
type Reader interface {
	// Exists returns true if the node exists.
	Exists(kp keypath.KeyPath) (bool, error)

	// Get returns the value of a leaf.
	Get(kp keypath.KeyPath) (value string, found bool, err error)
}

// DB is a bolt-backed store of the running and operational data trees.
type DB struct {
	bolt *bbolt.DB
	log  logging.Logger

	lastTid int64

	mu      sync.Mutex
	diffs   map[int64]*Diff
	kickers []*Kicker
}

// Open opens (or creates) the database file at <path>.
func Open(path string, timeout time.Duration, log logging.Logger) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if timeout == 0 {
		timeout = time.Second
	}
	boltDB, err := bbolt.Open(filepath.Clean(path), 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	if log == nil {
		log = logging.ForPlugin("confdb")
	}

	db := &DB{
		bolt:  boltDB,
		log:   log,
		diffs: map[int64]*Diff{},
	}
	err = boltDB.Update(func(tx *bbolt.Tx) error {
		for ds := range datastoreNames {
			if _, err := tx.CreateBucketIfNotExists(ds.bucket()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		boltDB.Close()
		return nil, errors.Wrap(err, "failed to create datastore buckets")
	}
	return db, nil
}

// Close closes the database file.
func (db *DB) Close() error {
	if db == nil || db.bolt == nil {
		return nil
	}
	return db.bolt.Close()
}

// NewReadTxn opens a read-only transaction. The transaction must be closed.
func (db *DB) NewReadTxn(ds Datastore) (*ReadTxn, error) {
	tx, err := db.bolt.Begin(false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin read transaction")
	}
	bucket := tx.Bucket(ds.bucket())
	if bucket == nil {
		tx.Rollback()
		return nil, errors.Errorf("datastore %v does not exist", ds)
	}
	return &ReadTxn{ds: ds, tx: tx, bucket: bucket}, nil
}

// View runs <fn> in a read-only transaction, closed on return.
func (db *DB) View(ds Datastore, fn func(txn *ReadTxn) error) error {
	txn, err := db.NewReadTxn(ds)
	if err != nil {
		return err
	}
	defer txn.Close()
	return fn(txn)
}

// NewWriteTxn starts a write transaction. Changes are not visible to others
// until Apply.
func (db *DB) NewWriteTxn(ds Datastore) *WriteTxn {
	return &WriteTxn{db: db, ds: ds}
}

// Update runs <fn> in a write transaction and applies it if <fn> succeeds.
func (db *DB) Update(ds Datastore, fn func(txn *WriteTxn) error) (tid int64, err error) {
	txn := db.NewWriteTxn(ds)
	if err := fn(txn); err != nil {
		return 0, err
	}
	return txn.Apply()
}

func (db *DB) nextTid() int64 {
	return atomic.AddInt64(&db.lastTid, 1)
}

// readNode reads a committed node.
func (db *DB) readNode(ds Datastore, kp keypath.KeyPath) (n *node, err error) {
	err = db.bolt.View(func(tx *bbolt.Tx) error {
		n, err = getNode(tx.Bucket(ds.bucket()), kp.String())
		return err
	})
	return n, err
}

func getNode(bucket *bbolt.Bucket, key string) (*node, error) {
	data := bucket.Get([]byte(key))
	if data == nil {
		return nil, nil
	}
	n := &node{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, errors.Wrapf(err, "corrupted node %s", key)
	}
	return n, nil
}

func putNode(bucket *bbolt.Bucket, key string, n *node) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(key), data)
}

// subtreeKeys returns keys of the node and all its stored descendants.
func subtreeKeys(bucket *bbolt.Bucket, kp keypath.KeyPath) []string {
	key := kp.String()
	keys := []string{}
	if bucket.Get([]byte(key)) != nil {
		keys = append(keys, key)
	}
	prefixes := []string{key + "/"}
	if elem, ok := kp.At(0); ok && !elem.IsKey() {
		// entries of a list
		prefixes = append(prefixes, key+"{")
	}
	if kp.Len() == 0 {
		prefixes = []string{"/"}
	}
	c := bucket.Cursor()
	for _, prefix := range prefixes {
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
	}
	return keys
}

// ancestors returns stored ancestors of the path, top-most first.
// A tag directly followed by a key is a list and is not stored.
func ancestors(kp keypath.KeyPath) []keypath.KeyPath {
	var res []keypath.KeyPath
	for i := kp.Len() - 1; i >= 1; i-- {
		anc := kp.Up(i)
		if child, _ := kp.At(i - 1); child.IsKey() {
			continue
		}
		res = append(res, anc)
	}
	return res
}

// kindOf returns the kind of a non-leaf node.
func kindOf(kp keypath.KeyPath) nodeKind {
	if elem, ok := kp.At(0); ok && elem.IsKey() {
		return entryNode
	}
	return containerNode
}
