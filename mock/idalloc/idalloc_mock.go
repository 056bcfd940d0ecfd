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
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
)

// Call records arguments of one Allocate / Deallocate call.
type Call struct {
	AllocationID string
	PoolName     string
}

// MockIDAllocator is an in-memory allocator recording its calls.
type MockIDAllocator struct {
	sync.Mutex

	pools idallocation.Pools

	AllocateCalls   []Call
	DeallocateCalls []Call

	// Err, if set, is returned by Allocate and Deallocate.
	Err error
}

// NewMockIDAllocator returns mock allocator with the given pools.
func NewMockIDAllocator(ranges map[string]idallocation.Range) *MockIDAllocator {
	m := &MockIDAllocator{pools: idallocation.Pools{}}
	for name, r := range ranges {
		m.pools[name] = idallocation.NewPool(r)
	}
	return m
}

// Allocate binds the smallest free value (duplicates are allowed).
func (m *MockIDAllocator) Allocate(allocationID, poolName string) (value int, allocated bool, err error) {
	m.Lock()
	defer m.Unlock()
	m.AllocateCalls = append(m.AllocateCalls, Call{AllocationID: allocationID, PoolName: poolName})
	if m.Err != nil {
		return 0, false, m.Err
	}
	pool, exists := m.pools[poolName]
	if !exists {
		return 0, false, errors.Errorf("unknown pool %s", poolName)
	}
	bound := map[int]bool{}
	for _, alloc := range pool.Allocations {
		bound[alloc.Value] = true
	}
	for v := pool.Range.Start; v <= pool.Range.End; v++ {
		if !bound[v] {
			pool.Allocations = append(pool.Allocations, idallocation.Allocation{ID: allocationID, Value: v})
			return v, true, nil
		}
	}
	return 0, false, nil
}

// Deallocate removes all bindings of the ID.
func (m *MockIDAllocator) Deallocate(allocationID, poolName string) (removed int, err error) {
	m.Lock()
	defer m.Unlock()
	m.DeallocateCalls = append(m.DeallocateCalls, Call{AllocationID: allocationID, PoolName: poolName})
	if m.Err != nil {
		return 0, m.Err
	}
	pool, exists := m.pools[poolName]
	if !exists {
		return 0, errors.Errorf("unknown pool %s", poolName)
	}
	var kept []idallocation.Allocation
	for _, alloc := range pool.Allocations {
		if alloc.ID == allocationID {
			removed++
			continue
		}
		kept = append(kept, alloc)
	}
	pool.Allocations = kept
	return removed, nil
}

// InitPool creates the pool unless it exists.
func (m *MockIDAllocator) InitPool(poolName string, poolRange idallocation.Range) error {
	m.Lock()
	defer m.Unlock()
	if _, exists := m.pools[poolName]; !exists {
		m.pools[poolName] = idallocation.NewPool(poolRange)
	}
	return nil
}

// Pools returns a copy of all pools.
func (m *MockIDAllocator) Pools() (idallocation.Pools, error) {
	m.Lock()
	defer m.Unlock()
	return m.pools.Copy(), nil
}

// Bound returns values bound in the pool, sorted.
func (m *MockIDAllocator) Bound(poolName string) []int {
	m.Lock()
	defer m.Unlock()
	var values []int
	if pool, exists := m.pools[poolName]; exists {
		for _, alloc := range pool.Allocations {
			values = append(values, alloc.Value)
		}
	}
	sort.Ints(values)
	return values
}

// Reset clears recorded calls.
func (m *MockIDAllocator) Reset() {
	m.Lock()
	defer m.Unlock()
	m.AllocateCalls = nil
	m.DeallocateCalls = nil
}
