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

package poolstore

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/mock/broker"
	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
)

func TestKVStoreBootstrap(t *testing.T) {
	RegisterTestingT(t)

	b := &broker.MockBroker{}
	store, err := NewKVStore(b, "pool-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(b.Keys()).To(Equal([]string{idallocation.Key("pool-1")}))

	pools, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	Expect(pools).To(HaveLen(1))
	Expect(pools["pool-1"].Range).To(Equal(idallocation.DefaultRange()))
}

func TestKVStoreNotFound(t *testing.T) {
	RegisterTestingT(t)

	b := &broker.MockBroker{}
	_, err := NewKVStore(b, "")
	Expect(errors.Cause(err)).To(Equal(ErrStoreNotFound))
	Expect(b.Keys()).To(BeEmpty())
}

func TestKVStoreSave(t *testing.T) {
	RegisterTestingT(t)

	b := &broker.MockBroker{}
	b.Data = map[string][]byte{
		idallocation.Key("a"): []byte(`{"range": {"start": 1, "end": 2}, "allocations": []}`),
		idallocation.Key("b"): []byte(`{"range": {"start": 3, "end": 4}, "allocations": [{"id": "x", "value": 3}]}`),
		"unrelated/key":       []byte("data"),
	}
	store, err := NewKVStore(b, "default")
	Expect(err).ToNot(HaveOccurred())

	pools, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	Expect(pools).To(HaveLen(2))
	Expect(pools["b"].Allocations).To(Equal([]idallocation.Allocation{{ID: "x", Value: 3}}))

	// drop pool "b", bind a value in pool "a"
	delete(pools, "b")
	pools["a"].Allocations = append(pools["a"].Allocations, idallocation.Allocation{ID: "y", Value: 1})
	Expect(store.Save(pools)).To(Succeed())
	Expect(b.Keys()).To(Equal([]string{idallocation.Key("a"), "unrelated/key"}))

	reloaded, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	Expect(reloaded).To(Equal(pools))
}

func TestKVStorePoolNameWithSlash(t *testing.T) {
	RegisterTestingT(t)

	b := &broker.MockBroker{}
	store, err := NewKVStore(b, "a")
	Expect(err).ToNot(HaveOccurred())

	pools, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	pools["tenant/a"] = idallocation.NewPool(idallocation.Range{Start: 5, End: 9})
	pools["tenant/a"].Allocations = []idallocation.Allocation{{ID: "x", Value: 5}}
	Expect(store.Save(pools)).To(Succeed())
	Expect(b.Keys()).To(Equal([]string{idallocation.Key("a"), idallocation.Key("tenant/a")}))

	reloaded, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	Expect(reloaded).To(HaveKey("tenant/a"))
	Expect(reloaded).To(Equal(pools))

	// removing the pool deletes its key
	delete(pools, "tenant/a")
	Expect(store.Save(pools)).To(Succeed())
	Expect(b.Keys()).To(Equal([]string{idallocation.Key("a")}))
}

func TestKVStoreBrokerError(t *testing.T) {
	RegisterTestingT(t)

	b := &broker.MockBroker{Err: errors.New("connection lost")}
	_, err := NewKVStore(b, "pool-1")
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).To(ContainSubstring("connection lost"))
}
