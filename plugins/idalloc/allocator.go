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

	"github.com/bits-and-blooms/bitset"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/idalloc/poolstore"
)

// ErrUnknownPool is returned (wrapped) for operations on a pool missing from the store.
var ErrUnknownPool = errors.New("unknown pool")

// IsUnknownPool returns true if the error was caused by a missing pool.
func IsUnknownPool(err error) bool {
	return errors.Cause(err) == ErrUnknownPool
}

// Metrics receives notifications about allocator operations.
type Metrics interface {
	Allocated(pool string, bound int)
	Deallocated(pool string, removed, bound int)
	Exhausted(pool string)
}

// Allocator assigns values of ID pools to requester IDs.
// All operations over all pools of one Allocator are serialized by a single
// lock and every mutating operation rewrites the whole store.
type Allocator struct {
	sync.Mutex

	store      poolstore.Store
	log        logging.Logger
	metrics    Metrics
	idempotent bool
}

// AllocatorOption customizes the Allocator.
type AllocatorOption func(*Allocator)

// WithLogger sets the logger used by the Allocator.
func WithLogger(log logging.Logger) AllocatorOption {
	return func(a *Allocator) {
		a.log = log
	}
}

// WithMetrics sets the receiver of allocation metrics.
func WithMetrics(m Metrics) AllocatorOption {
	return func(a *Allocator) {
		a.metrics = m
	}
}

// WithIdempotentAllocation makes Allocate return the value already bound to
// the requester ID instead of binding another one.
func WithIdempotentAllocation() AllocatorOption {
	return func(a *Allocator) {
		a.idempotent = true
	}
}

// NewAllocator returns Allocator operating over the given store.
func NewAllocator(store poolstore.Store, opts ...AllocatorOption) *Allocator {
	a := &Allocator{store: store}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = logging.ForPlugin("idalloc")
	}
	return a
}

// Allocate binds the smallest unbound value of the pool to <allocationID>.
// Returns allocated=false (and no error) if every value of the pool is bound.
//
// By default a repeated call for the same ID binds another value; the ID is
// not checked for existing bindings unless WithIdempotentAllocation was used.
func (a *Allocator) Allocate(allocationID, poolName string) (value int, allocated bool, err error) {
	a.Lock()
	defer a.Unlock()

	pools, err := a.store.Load()
	if err != nil {
		a.log.Errorf("Failed to load ID pools: %v", err)
		return 0, false, err
	}
	pool, exists := pools[poolName]
	if !exists {
		return 0, false, errors.Wrapf(ErrUnknownPool, "pool %s", poolName)
	}

	if a.idempotent {
		if values := pool.Values(allocationID); len(values) > 0 {
			sort.Ints(values)
			a.log.Debugf("ID %s already holds value %d in pool %s", allocationID, values[0], poolName)
			return values[0], true, nil
		}
	}

	value, found := firstUnbound(pool)
	if !found {
		a.log.Warnf("ID pool %s (%v) is exhausted, cannot allocate value for %s",
			poolName, pool.Range, allocationID)
		if a.metrics != nil {
			a.metrics.Exhausted(poolName)
		}
		return 0, false, nil
	}

	pool.Allocations = append(pool.Allocations, idallocation.Allocation{
		ID:    allocationID,
		Value: value,
	})
	if err := a.store.Save(pools); err != nil {
		a.log.Errorf("Failed to persist allocation of %d to %s in pool %s: %v",
			value, allocationID, poolName, err)
		return 0, false, err
	}
	if a.metrics != nil {
		a.metrics.Allocated(poolName, len(pool.Allocations))
	}

	a.log.Debugf("Allocated value %d in pool %s for %s", value, poolName, allocationID)
	return value, true, nil
}

// Deallocate removes all bindings of <allocationID> in the pool and returns
// their count. The store is rewritten only if something was removed.
func (a *Allocator) Deallocate(allocationID, poolName string) (removed int, err error) {
	a.Lock()
	defer a.Unlock()

	pools, err := a.store.Load()
	if err != nil {
		a.log.Errorf("Failed to load ID pools: %v", err)
		return 0, err
	}
	pool, exists := pools[poolName]
	if !exists {
		return 0, errors.Wrapf(ErrUnknownPool, "pool %s", poolName)
	}

	kept := pool.Allocations[:0]
	for _, alloc := range pool.Allocations {
		if alloc.ID == allocationID {
			removed++
			continue
		}
		kept = append(kept, alloc)
	}
	if removed == 0 {
		return 0, nil
	}
	pool.Allocations = kept

	if err := a.store.Save(pools); err != nil {
		a.log.Errorf("Failed to persist release of %s in pool %s: %v", allocationID, poolName, err)
		return 0, err
	}
	if a.metrics != nil {
		a.metrics.Deallocated(poolName, removed, len(pool.Allocations))
	}

	a.log.Debugf("Released %d value(s) of %s in pool %s", removed, allocationID, poolName)
	return removed, nil
}

// InitPool creates the pool with the given range if it does not exist yet.
// An existing pool with a different range is reported as an error.
func (a *Allocator) InitPool(poolName string, poolRange idallocation.Range) error {
	a.Lock()
	defer a.Unlock()

	if poolRange.Size() == 0 {
		return errors.Errorf("invalid range %v for pool %s", poolRange, poolName)
	}
	pools, err := a.store.Load()
	if err != nil {
		return err
	}
	if pool, exists := pools[poolName]; exists {
		if pool.Range == poolRange {
			return nil
		}
		return errors.Errorf("ID pool %s already exists with different range %v", poolName, pool.Range)
	}
	pools[poolName] = idallocation.NewPool(poolRange)
	if err := a.store.Save(pools); err != nil {
		return err
	}
	a.log.Infof("Initialized ID pool %s with range %v", poolName, poolRange)
	return nil
}

// Pools returns a snapshot of all pools.
func (a *Allocator) Pools() (idallocation.Pools, error) {
	a.Lock()
	defer a.Unlock()

	pools, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	return pools.Copy(), nil
}

// firstUnbound returns the smallest value of the pool range not bound to any ID.
// The smallest free offset never exceeds the number of bindings, so only
// offsets up to that bound are tracked.
func firstUnbound(pool *idallocation.Pool) (int, bool) {
	size := pool.Range.Size()
	if size == 0 {
		return 0, false
	}
	limit := uint64(len(pool.Allocations)) + 1
	if limit > size {
		limit = size
	}
	bound := bitset.New(uint(limit))
	for _, alloc := range pool.Allocations {
		if !pool.Range.Contains(alloc.Value) {
			continue
		}
		if offset := pool.Range.Offset(alloc.Value); offset < limit {
			bound.Set(uint(offset))
		}
	}
	idx, found := bound.NextClear(0)
	if !found || uint64(idx) >= limit {
		return 0, false
	}
	return pool.Range.Start + int(idx), true
}
