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

// Package restapi defines the REST API of the IDAllocator plugin.
package restapi

const (
	// RestURLPools is the URL of the REST API listing all ID pools.
	RestURLPools = "/resmgr/v1/idalloc/pools"

	// PoolNameVar is the name of the URL variable selecting one pool.
	PoolNameVar = "pool"

	// RestURLPool is the URL of the REST API returning a single ID pool.
	RestURLPool = RestURLPools + "/{" + PoolNameVar + "}"
)

// PoolAllocations is returned by the REST API for one ID pool.
type PoolAllocations struct {
	Name        string       `json:"name"`
	Start       int          `json:"start"`
	End         int          `json:"end"`
	Free        uint64       `json:"free"`
	Allocations []Allocation `json:"allocations"`
}

// Allocation is one value bound to a requester ID.
type Allocation struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}
