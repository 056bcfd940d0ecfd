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
	"fmt"

	"github.com/pkg/errors"
)

// Datastore selects one of the data trees kept by the DB.
type Datastore int

const (
	// Running is the committed configuration.
	Running Datastore = iota
	// Operational is the state produced by services and allocators.
	Operational
)

var datastoreNames = map[Datastore]string{
	Running:     "running",
	Operational: "operational",
}

func (ds Datastore) String() string {
	if name, ok := datastoreNames[ds]; ok {
		return name
	}
	return fmt.Sprintf("datastore(%d)", int(ds))
}

func (ds Datastore) bucket() []byte {
	return []byte(ds.String())
}

// Op is the kind of change of a single node.
type Op int

const (
	// OpCreated is reported for a node that did not exist before the transaction.
	OpCreated Op = iota + 1
	// OpDeleted is reported for the topmost deleted node; its subtree is not reported.
	OpDeleted
	// OpModified is reported for an existing node with changes below it.
	OpModified
	// OpValueSet is reported for a leaf whose value was set.
	OpValueSet
	// OpMovedAfter is reported for a moved entry of an ordered list.
	OpMovedAfter
	// OpAttrSet is reported for a node whose attribute was set.
	OpAttrSet
)

var opNames = map[Op]string{
	OpCreated:    "CREATED",
	OpDeleted:    "DELETED",
	OpModified:   "MODIFIED",
	OpValueSet:   "VALUE_SET",
	OpMovedAfter: "MOVED_AFTER",
	OpAttrSet:    "ATTR_SET",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return fmt.Sprintf("%s(%d)", name, int(op))
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(op))
}

// IterResult tells the diff iteration how to continue after a node.
type IterResult int

const (
	// IterStop aborts the iteration.
	IterStop IterResult = iota
	// IterRecurse continues with the children of the node.
	IterRecurse
	// IterContinue skips the children of the node and continues with its siblings.
	IterContinue
)

func (r IterResult) String() string {
	switch r {
	case IterStop:
		return "stop"
	case IterRecurse:
		return "recurse"
	case IterContinue:
		return "continue"
	}
	return fmt.Sprintf("IterResult(%d)", int(r))
}

// IterFlags modify diff iteration.
type IterFlags int

const (
	// WantPContainer includes changes of containers. By default only list
	// entries and leaves are reported and containers are passed through.
	WantPContainer IterFlags = 1 << iota
)

var (
	// ErrUnknownTxn is returned when attaching to a transaction whose diff is not available.
	ErrUnknownTxn = errors.New("unknown transaction")

	// ErrTxnClosed is returned when using a finished transaction.
	ErrTxnClosed = errors.New("transaction closed")
)
