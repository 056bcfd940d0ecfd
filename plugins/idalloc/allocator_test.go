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
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/idalloc/poolstore"
)

// countingStore counts Save calls of the wrapped store.
type countingStore struct {
	poolstore.Store
	saves int
}

func (s *countingStore) Save(pools idallocation.Pools) error {
	s.saves++
	return s.Store.Save(pools)
}

func newTestAllocator(t *testing.T, pools idallocation.Pools, opts ...AllocatorOption) (*Allocator, *countingStore, func()) {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "idalloc")
	Expect(err).ToNot(HaveOccurred())
	fileStore, err := poolstore.NewFileStore(filepath.Join(dir, poolstore.DefaultPoolFile), "pool-1")
	Expect(err).ToNot(HaveOccurred())
	if pools != nil {
		Expect(fileStore.Save(pools)).To(Succeed())
	}

	store := &countingStore{Store: fileStore}
	opts = append([]AllocatorOption{WithLogger(logrus.DefaultLogger())}, opts...)
	return NewAllocator(store, opts...), store, func() { os.RemoveAll(dir) }
}

func onePool(name string, start, end int) idallocation.Pools {
	return idallocation.Pools{name: idallocation.NewPool(idallocation.Range{Start: start, End: end})}
}

func TestAllocateWithinRange(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, onePool("p", 100, 105))
	defer cleanup()

	value, allocated, err := a.Allocate("svc-1", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(allocated).To(BeTrue())
	Expect(value).To(Equal(100))
}

func TestBootstrappedDefaultPool(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, nil)
	defer cleanup()

	value, allocated, err := a.Allocate("svc-1", "pool-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(allocated).To(BeTrue())
	Expect(value).To(BeNumerically(">=", idallocation.DefaultRangeStart))
	Expect(value).To(BeNumerically("<=", idallocation.DefaultRangeEnd))
}

func TestExhaustion(t *testing.T) {
	a, store, cleanup := newTestAllocator(t, onePool("p", 1, 3))
	defer cleanup()

	values := map[int]bool{}
	for _, id := range []string{"a", "b", "c"} {
		value, allocated, err := a.Allocate(id, "p")
		Expect(err).ToNot(HaveOccurred())
		Expect(allocated).To(BeTrue())
		Expect(values).ToNot(HaveKey(value))
		values[value] = true
	}
	saves := store.saves

	for i := 0; i < 2; i++ {
		value, allocated, err := a.Allocate("d", "p")
		Expect(err).ToNot(HaveOccurred())
		Expect(allocated).To(BeFalse())
		Expect(value).To(BeZero())
	}
	Expect(store.saves).To(Equal(saves))
}

func TestSmallestAvailableReused(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, onePool("p", 1, 3))
	defer cleanup()

	value, _, err := a.Allocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(value).To(Equal(1))
	value, _, err = a.Allocate("B", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(value).To(Equal(2))

	removed, err := a.Deallocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(removed).To(Equal(1))

	value, _, err = a.Allocate("C", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(value).To(Equal(1))
}

func TestDeallocateUnknownIDDoesNotRewrite(t *testing.T) {
	a, store, cleanup := newTestAllocator(t, onePool("p", 1, 3))
	defer cleanup()

	_, _, err := a.Allocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	saves := store.saves

	removed, err := a.Deallocate("unknown", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(removed).To(BeZero())
	Expect(store.saves).To(Equal(saves))
}

func TestDuplicateRequestBindsTwice(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, onePool("p", 1, 3))
	defer cleanup()

	first, _, err := a.Allocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	second, allocated, err := a.Allocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(allocated).To(BeTrue())
	Expect(second).ToNot(Equal(first))

	pools, err := a.Pools()
	Expect(err).ToNot(HaveOccurred())
	Expect(pools["p"].Values("A")).To(ConsistOf(first, second))

	// deallocate cleans up all duplicates
	removed, err := a.Deallocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(removed).To(Equal(2))
}

func TestIdempotentAllocation(t *testing.T) {
	a, store, cleanup := newTestAllocator(t, onePool("p", 1, 3), WithIdempotentAllocation())
	defer cleanup()

	first, _, err := a.Allocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	saves := store.saves

	second, allocated, err := a.Allocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(allocated).To(BeTrue())
	Expect(second).To(Equal(first))
	Expect(store.saves).To(Equal(saves))

	pools, err := a.Pools()
	Expect(err).ToNot(HaveOccurred())
	Expect(pools["p"].Allocations).To(HaveLen(1))
}

func TestUnknownPool(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, onePool("p", 1, 3))
	defer cleanup()

	_, _, err := a.Allocate("A", "nope")
	Expect(IsUnknownPool(err)).To(BeTrue())
	_, err = a.Deallocate("A", "nope")
	Expect(IsUnknownPool(err)).To(BeTrue())
	Expect(IsUnknownPool(errors.New("other"))).To(BeFalse())
}

func TestInitPool(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, nil)
	defer cleanup()

	Expect(a.InitPool("p2", idallocation.Range{Start: 5, End: 6})).To(Succeed())
	Expect(a.InitPool("p2", idallocation.Range{Start: 5, End: 6})).To(Succeed())
	Expect(a.InitPool("p2", idallocation.Range{Start: 5, End: 7})).ToNot(Succeed())
	Expect(a.InitPool("p3", idallocation.Range{Start: 7, End: 6})).ToNot(Succeed())

	value, _, err := a.Allocate("A", "p2")
	Expect(err).ToNot(HaveOccurred())
	Expect(value).To(Equal(5))
}

func TestAllocateFromWideRange(t *testing.T) {
	pools := onePool("p", 1, 1<<31)
	pools["p"].Allocations = []idallocation.Allocation{{ID: "last", Value: 1 << 31}}
	a, _, cleanup := newTestAllocator(t, pools)
	defer cleanup()

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	for i, id := range []string{"A", "B"} {
		value, allocated, err := a.Allocate(id, "p")
		Expect(err).ToNot(HaveOccurred())
		Expect(allocated).To(BeTrue())
		Expect(value).To(Equal(i + 1))
	}
	runtime.ReadMemStats(&after)
	Expect(after.TotalAlloc - before.TotalAlloc).To(BeNumerically("<", 16<<20))
}

func TestAllocateFromUnboundedRange(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, onePool("p", -1, math.MaxInt64))
	defer cleanup()

	value, allocated, err := a.Allocate("A", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(allocated).To(BeTrue())
	Expect(value).To(Equal(-1))

	value, allocated, err = a.Allocate("B", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(allocated).To(BeTrue())
	Expect(value).To(Equal(0))
}

func TestConcurrentAllocationsAreUnique(t *testing.T) {
	a, _, cleanup := newTestAllocator(t, onePool("p", 1, 50))
	defer cleanup()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = map[int]string{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i))
			value, allocated, err := a.Allocate(id, "p")
			mu.Lock()
			defer mu.Unlock()
			if err == nil && allocated {
				values[value] = id
			}
		}(i)
	}
	wg.Wait()
	Expect(values).To(HaveLen(50))

	_, allocated, err := a.Allocate("overflow", "p")
	Expect(err).ToNot(HaveOccurred())
	Expect(allocated).To(BeFalse())
}

func TestAllocatorMetrics(t *testing.T) {
	m := newPoolMetrics()
	a, _, cleanup := newTestAllocator(t, onePool("p", 1, 2), WithMetrics(m))
	defer cleanup()

	for _, id := range []string{"A", "B", "C"} {
		_, _, err := a.Allocate(id, "p")
		Expect(err).ToNot(HaveOccurred())
	}
	_, err := a.Deallocate("A", "p")
	Expect(err).ToNot(HaveOccurred())

	Expect(metricValue(m.counterVecs[allocationsMetric].WithLabelValues("p"))).To(Equal(2.0))
	Expect(metricValue(m.counterVecs[exhaustionsMetric].WithLabelValues("p"))).To(Equal(1.0))
	Expect(metricValue(m.counterVecs[deallocationsMetric].WithLabelValues("p"))).To(Equal(1.0))
	Expect(metricValue(m.boundValues.WithLabelValues("p"))).To(Equal(1.0))
}

func metricValue(metric prometheus.Metric) float64 {
	m := &dto.Metric{}
	Expect(metric.Write(m)).To(Succeed())
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}
