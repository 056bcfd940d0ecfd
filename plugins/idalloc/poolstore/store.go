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

// Package poolstore implements durable storage of ID allocation pools.
// The whole set of pools is always loaded and saved at once.
package poolstore

import (
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
)

// ErrStoreNotFound is returned when the backing store does not exist
// and no default pool was supplied to bootstrap it.
var ErrStoreNotFound = errors.New("store not found")

// Store is a load/replace-all persistence of ID allocation pools.
type Store interface {
	// Load returns all pools kept by the store.
	Load() (idallocation.Pools, error)

	// Save replaces the content of the store with the given pools.
	Save(pools idallocation.Pools) error
}

// bootstrapPools returns the content of a freshly initialized store.
func bootstrapPools(defaultPool string) idallocation.Pools {
	return idallocation.Pools{
		defaultPool: idallocation.NewPool(idallocation.DefaultRange()),
	}
}

// normalize makes sure every pool has a non-nil list of allocations.
func normalize(pools idallocation.Pools) idallocation.Pools {
	if pools == nil {
		pools = idallocation.Pools{}
	}
	for name, pool := range pools {
		if pool == nil {
			pools[name] = idallocation.NewPool(idallocation.Range{})
			continue
		}
		if pool.Allocations == nil {
			pool.Allocations = []idallocation.Allocation{}
		}
	}
	return pools
}
