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
	"encoding/json"

	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
)

// Broker is the subset of keyval.BytesBroker used by the KV store.
type Broker interface {
	Put(key string, data []byte, opts ...datasync.PutOption) error
	ListValues(key string) (keyval.BytesKeyValIterator, error)
	Delete(key string, opts ...datasync.DelOption) (existed bool, err error)
}

// KVStore keeps every pool under its own key (see idallocation.Key)
// of a key-value data store.
type KVStore struct {
	broker Broker
}

// NewKVStore returns store backed by the given broker. If the broker holds no
// pools and <defaultPool> is not empty, the default pool is written into it.
func NewKVStore(broker Broker, defaultPool string) (*KVStore, error) {
	s := &KVStore{broker: broker}
	pools, err := s.list()
	if err != nil {
		return nil, err
	}
	if len(pools) > 0 {
		return s, nil
	}
	if defaultPool == "" {
		return nil, errors.Wrapf(ErrStoreNotFound, "no pools under %s", idallocation.KeyPrefix())
	}
	if err := s.Save(bootstrapPools(defaultPool)); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads all pools from the data store.
func (s *KVStore) Load() (idallocation.Pools, error) {
	pools, err := s.list()
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, errors.Wrapf(ErrStoreNotFound, "no pools under %s", idallocation.KeyPrefix())
	}
	return normalize(pools), nil
}

// Save writes every pool under its key and removes keys of pools no longer present.
func (s *KVStore) Save(pools idallocation.Pools) error {
	pools = normalize(pools)
	existing, err := s.list()
	if err != nil {
		return err
	}
	for name, pool := range pools {
		data, err := json.Marshal(pool)
		if err != nil {
			return errors.Wrapf(err, "failed to encode pool %s", name)
		}
		if err := s.broker.Put(idallocation.Key(name), data); err != nil {
			return errors.Wrapf(err, "failed to write pool %s", name)
		}
	}
	for name := range existing {
		if _, keep := pools[name]; keep {
			continue
		}
		if _, err := s.broker.Delete(idallocation.Key(name)); err != nil {
			return errors.Wrapf(err, "failed to delete pool %s", name)
		}
	}
	return nil
}

func (s *KVStore) list() (idallocation.Pools, error) {
	it, err := s.broker.ListValues(idallocation.KeyPrefix())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pools")
	}
	pools := idallocation.Pools{}
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		name := idallocation.ParseKey(kv.GetKey())
		if name == "" {
			continue
		}
		pool := &idallocation.Pool{}
		if err := json.Unmarshal(kv.GetValue(), pool); err != nil {
			return nil, errors.Wrapf(err, "failed to decode pool %s", name)
		}
		pools[name] = pool
	}
	return pools, nil
}
