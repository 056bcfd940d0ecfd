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

package idalloc

import (
	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
)

// API defines methods provided by the IDAllocator plugin for use by other plugins
// to allocate and release values of ID pools.
type API interface {
	// Allocate binds the smallest unbound value of the pool to the given ID.
	// Returns allocated=false if the pool is exhausted.
	Allocate(allocationID, poolName string) (value int, allocated bool, err error)

	// Deallocate releases all values bound to the given ID in the pool
	// and returns their count. NOOP if there are none.
	Deallocate(allocationID, poolName string) (removed int, err error)

	// InitPool creates ID pool with the given range unless it already exists.
	InitPool(poolName string, poolRange idallocation.Range) error

	// Pools returns a snapshot of all ID pools.
	Pools() (idallocation.Pools, error)
}
