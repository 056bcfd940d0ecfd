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

package diffproc

import (
	"fmt"

	"github.com/contiv/resmgr/pkg/keypath"
	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/resmgr/model"
)

// EventKind is the meaning of a change recognized by its path shape.
type EventKind int

const (
	// NoMatch is any change not related to ID allocation.
	NoMatch EventKind = iota
	// AllocationRequested is the creation of the request container
	// of an allocation entry.
	AllocationRequested
	// AllocationDeleted is the deletion of an allocation entry.
	AllocationDeleted
)

func (k EventKind) String() string {
	switch k {
	case NoMatch:
		return "no-match"
	case AllocationRequested:
		return "allocation-requested"
	case AllocationDeleted:
		return "allocation-deleted"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a classified change.
type Event struct {
	Kind         EventKind
	AllocationID string
	PoolName     string
}

// Classify recognizes allocation requests and removals purely by the shape of
// the (leaf-first) path:
//  - created .../id-pool{<pool>}/allocation{<id>}/request:
//    [request, {id}, allocation, {pool}, ...]
//  - deleted .../id-pool{<pool>}/allocation{<id>}:
//    [{id}, allocation, {pool}, ...]
func Classify(kp keypath.KeyPath, op confdb.Op) Event {
	switch {
	case op == confdb.OpCreated && kp.Len() > 3 && kp.IsTag(0, model.RequestTag):
		id, idOk := kp.FirstKeyValue(1)
		pool, poolOk := kp.FirstKeyValue(3)
		if idOk && poolOk {
			return Event{Kind: AllocationRequested, AllocationID: id, PoolName: pool}
		}
	case op == confdb.OpDeleted && kp.Len() > 2 && kp.IsTag(1, model.AllocationTag):
		id, idOk := kp.FirstKeyValue(0)
		pool, poolOk := kp.FirstKeyValue(2)
		if idOk && poolOk {
			return Event{Kind: AllocationDeleted, AllocationID: id, PoolName: pool}
		}
	}
	return Event{Kind: NoMatch}
}
