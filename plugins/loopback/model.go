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

package loopback

import (
	"fmt"

	"github.com/contiv/resmgr/pkg/keypath"
)

// Tags of the loopback data tree:
//
//	/loopback{<name>}
//	    /pool                    (running: optional ID pool, operational: pool in use)
//	    /address                 (running: written by the service)
//	    /mask                    (running: written by the service)
//	    /plan/state{<s>}/status  (operational)
const (
	LoopbackTag = "loopback"
	PoolTag     = "pool"
	AddressTag  = "address"
	MaskTag     = "mask"
)

// StateRequestedAllocations is reached once the ID was requested.
const StateRequestedAllocations = "requested-allocations"

// Monitor is the path matching all loopback entries.
const Monitor = "/" + LoopbackTag

// LoopbackPath returns path of a loopback entry.
func LoopbackPath(name string) keypath.KeyPath {
	return keypath.New().Entry(LoopbackTag, name)
}

// PoolPath returns path of the pool leaf of a loopback.
func PoolPath(name string) keypath.KeyPath {
	return LoopbackPath(name).Child(PoolTag)
}

// AddressPath returns path of the address leaf of a loopback.
func AddressPath(name string) keypath.KeyPath {
	return LoopbackPath(name).Child(AddressTag)
}

// MaskPath returns path of the mask leaf of a loopback.
func MaskPath(name string) keypath.KeyPath {
	return LoopbackPath(name).Child(MaskTag)
}

// AllocationID returns ID of the allocation requested for the loopback.
func AllocationID(name string) string {
	return fmt.Sprintf("%s-%d", name, 1)
}

func callbackKickerID(name string) string {
	return fmt.Sprintf("loopback-%s-callback", name)
}
