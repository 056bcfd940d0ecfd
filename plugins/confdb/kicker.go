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
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/pkg/keypath"
)

// ActionInput is passed to a kicker handler.
type ActionInput struct {
	// KickerID identifies the kicker.
	KickerID string
	// Path is the monitored path of the kicker.
	Path string
	// Tid identifies the transaction which triggered the kicker.
	Tid int64
}

// KickerHandler reacts to a transaction changing the monitored data.
type KickerHandler func(input ActionInput) error

// Kicker invokes the handler after every applied transaction of the datastore
// that changes data at or below the monitored path.
type Kicker struct {
	// ID identifies the kicker; generated if empty. Registering a kicker
	// with the ID of an existing one replaces it.
	ID string
	// Datastore to monitor.
	Datastore Datastore
	// Monitor is the path to monitor, e.g. /resource-manager/id-pool/allocation.
	// A list without key matches all its entries.
	Monitor string
	// Handler is invoked synchronously once the transaction is committed.
	Handler KickerHandler

	monitor keypath.KeyPath
}

// RegisterKicker registers (or replaces) the kicker and returns its ID.
func (db *DB) RegisterKicker(kicker Kicker) (id string, err error) {
	if kicker.Handler == nil {
		return "", errors.New("kicker handler is missing")
	}
	kicker.monitor, err = keypath.Parse(kicker.Monitor)
	if err != nil {
		return "", errors.Wrap(err, "invalid kicker monitor")
	}
	if kicker.ID == "" {
		kicker.ID = uuid.New().String()
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	for i, existing := range db.kickers {
		if existing.ID == kicker.ID {
			db.kickers[i] = &kicker
			return kicker.ID, nil
		}
	}
	db.kickers = append(db.kickers, &kicker)
	db.log.Debugf("Registered kicker %s monitoring %v %s", kicker.ID, kicker.Datastore, kicker.Monitor)
	return kicker.ID, nil
}

// UnregisterKicker removes the kicker. NOOP if it does not exist.
func (db *DB) UnregisterKicker(id string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, existing := range db.kickers {
		if existing.ID == id {
			db.kickers = append(db.kickers[:i], db.kickers[i+1:]...)
			return
		}
	}
}

// runKickers keeps the diff attachable while invoking the handlers of kickers
// matching the changes.
func (db *DB) runKickers(diff *Diff) {
	db.mu.Lock()
	var matching []*Kicker
	for _, kicker := range db.kickers {
		if kicker.Datastore == diff.Datastore && kicker.matches(diff) {
			matching = append(matching, kicker)
		}
	}
	if len(matching) > 0 {
		db.diffs[diff.Tid] = diff
	}
	db.mu.Unlock()

	if len(matching) == 0 {
		return
	}
	defer func() {
		db.mu.Lock()
		delete(db.diffs, diff.Tid)
		db.mu.Unlock()
	}()

	for _, kicker := range matching {
		input := ActionInput{KickerID: kicker.ID, Path: kicker.Monitor, Tid: diff.Tid}
		if err := kicker.Handler(input); err != nil {
			db.log.Errorf("Kicker %s failed for transaction %d: %v", kicker.ID, diff.Tid, err)
		}
	}
}

func (k *Kicker) matches(diff *Diff) bool {
	for _, change := range diff.all {
		if monitors(k.monitor, change.Path) {
			return true
		}
	}
	return false
}

// monitors returns true if <kp> is at or below the monitored path.
// Key elements missing in the monitored path match any key.
func monitors(monitor, kp keypath.KeyPath) bool {
	mon := monitor.RootFirst()
	j := 0
	for _, elem := range kp.RootFirst() {
		if j == len(mon) {
			break
		}
		if elem.IsKey() && !mon[j].IsKey() {
			continue
		}
		if !elem.Equal(mon[j]) {
			return false
		}
		j++
	}
	return j == len(mon)
}
