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

// API defines methods provided by the confdb plugin for use by other plugins.
type API interface {
	// NewReadTxn opens a read-only transaction. The transaction must be closed.
	NewReadTxn(ds Datastore) (*ReadTxn, error)

	// View runs <fn> in a read-only transaction.
	View(ds Datastore, fn func(txn *ReadTxn) error) error

	// NewWriteTxn starts a write transaction.
	NewWriteTxn(ds Datastore) *WriteTxn

	// Update runs <fn> in a write transaction and applies it if <fn> succeeds.
	Update(ds Datastore, fn func(txn *WriteTxn) error) (tid int64, err error)

	// Attach attaches to the transaction which triggered a running kicker.
	Attach(tid int64) (*AttachedTxn, error)

	// RegisterKicker registers (or replaces) the kicker and returns its ID.
	RegisterKicker(kicker Kicker) (id string, err error)

	// UnregisterKicker removes the kicker.
	UnregisterKicker(id string)
}
