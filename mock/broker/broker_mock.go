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

package broker

import (
	"sort"
	"strings"
	"sync"

	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
)

// MockBroker is an in-memory bytes broker.
type MockBroker struct {
	sync.Mutex
	Data map[string][]byte

	// PutCount counts successful Put calls.
	PutCount int
	// Err, if set, is returned by every operation.
	Err error
}

// Keys returns sorted keys present in the broker.
func (mb *MockBroker) Keys() []string {
	mb.Lock()
	defer mb.Unlock()
	var res []string
	for k := range mb.Data {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func (mb *MockBroker) Put(key string, data []byte, opts ...datasync.PutOption) error {
	mb.Lock()
	defer mb.Unlock()
	if mb.Err != nil {
		return mb.Err
	}
	if mb.Data == nil {
		mb.Data = map[string][]byte{}
	}
	mb.Data[key] = append([]byte(nil), data...)
	mb.PutCount++
	return nil
}

func (mb *MockBroker) Delete(key string, opts ...datasync.DelOption) (found bool, err error) {
	mb.Lock()
	defer mb.Unlock()
	if mb.Err != nil {
		return false, mb.Err
	}
	_, found = mb.Data[key]
	delete(mb.Data, key)
	return found, nil
}

func (mb *MockBroker) GetValue(key string) (data []byte, found bool, revision int64, err error) {
	mb.Lock()
	defer mb.Unlock()
	if mb.Err != nil {
		return nil, false, 0, mb.Err
	}
	data, found = mb.Data[key]
	return data, found, 0, nil
}

func (mb *MockBroker) ListValues(key string) (keyval.BytesKeyValIterator, error) {
	mb.Lock()
	defer mb.Unlock()
	if mb.Err != nil {
		return nil, mb.Err
	}
	it := &mockIt{}
	for k, v := range mb.Data {
		if strings.HasPrefix(k, key) {
			it.match = append(it.match, &mockKv{key: k, val: v})
		}
	}
	sort.Slice(it.match, func(i, j int) bool { return it.match[i].key < it.match[j].key })
	return it, nil
}

type mockIt struct {
	match []*mockKv
	index int
}

func (mi *mockIt) GetNext() (kv keyval.BytesKeyVal, stop bool) {
	if mi.index >= len(mi.match) {
		return nil, true
	}
	kv = mi.match[mi.index]
	mi.index++
	return kv, false
}

func (mi *mockIt) Close() error {
	return nil
}

type mockKv struct {
	key string
	val []byte
}

func (mk *mockKv) GetValue() []byte {
	return mk.val
}

func (mk *mockKv) GetPrevValue() []byte {
	return nil
}

func (mk *mockKv) GetKey() string {
	return mk.key
}

func (mk *mockKv) GetRevision() int64 {
	return 0
}
