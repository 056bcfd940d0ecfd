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

// Package idallocation defines the data model of ID allocation pools
// and the layout of the pools in a key-value data store.
package idallocation

import (
	"fmt"
	"math"
)

const (
	// DefaultRangeStart is the first value of a bootstrapped pool.
	DefaultRangeStart = 1
	// DefaultRangeEnd is the last value of a bootstrapped pool.
	DefaultRangeEnd = 10
)

// Range is an inclusive range of integer identifiers.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DefaultRange returns the range used for bootstrapped pools.
func DefaultRange() Range {
	return Range{Start: DefaultRangeStart, End: DefaultRangeEnd}
}

// Size returns the number of values in the range (0 for an empty range).
// The size of the range spanning all int64 values saturates at MaxUint64.
func (r Range) Size() uint64 {
	if r.End < r.Start {
		return 0
	}
	span := uint64(int64(r.End)) - uint64(int64(r.Start))
	if span == math.MaxUint64 {
		return math.MaxUint64
	}
	return span + 1
}

// Offset returns the distance of the value from the range start.
func (r Range) Offset(value int) uint64 {
	return uint64(int64(value)) - uint64(int64(r.Start))
}

// Contains returns true if the value lies within the range.
func (r Range) Contains(value int) bool {
	return value >= r.Start && value <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Allocation binds one value of a pool to a requester ID.
type Allocation struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

// Pool is a named, range-bounded space of integer identifiers.
type Pool struct {
	Range       Range        `json:"range"`
	Allocations []Allocation `json:"allocations"`
}

// NewPool returns an empty pool with the given range.
func NewPool(r Range) *Pool {
	return &Pool{Range: r, Allocations: []Allocation{}}
}

// Values returns values bound to the given requester ID, in binding order.
func (p *Pool) Values(id string) (values []int) {
	for _, alloc := range p.Allocations {
		if alloc.ID == id {
			values = append(values, alloc.Value)
		}
	}
	return values
}

// Pools maps pool names to pools; it is the whole content of a pool store.
type Pools map[string]*Pool

// Copy returns a deep copy of the pools.
func (p Pools) Copy() Pools {
	c := make(Pools, len(p))
	for name, pool := range p {
		if pool == nil {
			c[name] = nil
			continue
		}
		allocs := make([]Allocation, len(pool.Allocations))
		copy(allocs, pool.Allocations)
		c[name] = &Pool{Range: pool.Range, Allocations: allocs}
	}
	return c
}
