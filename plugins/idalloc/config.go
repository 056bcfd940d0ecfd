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
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/idalloc/poolstore"
)

const (
	// FileBackend keeps pools in a local JSON file.
	FileBackend = "file"
	// EtcdBackend keeps pools in etcd, one key per pool.
	EtcdBackend = "etcd"

	defaultPoolName = "pool-1"
	defaultKVPrefix = "/resmgr/"
)

// Config represents configuration of the IDAllocator plugin.
// The path to the configuration file can be specified in two ways:
//  - using the `-idalloc-config=<path to config>` argument, or
//  - using the `IDALLOC_CONFIG=<path to config>` environment variable
type Config struct {
	Backend     string `json:"backend,omitempty"`
	PoolFile    string `json:"poolFile,omitempty"`
	DefaultPool string `json:"defaultPool,omitempty"`

	EtcdConfig  string `json:"etcdConfig,omitempty"`
	KVKeyPrefix string `json:"kvKeyPrefix,omitempty"`

	// IdempotentAllocation enables lookup of an existing binding before allocation.
	IdempotentAllocation bool `json:"idempotentAllocation,omitempty"`

	// Pools are created at startup unless they already exist.
	Pools map[string]idallocation.Range `json:"pools,omitempty"`
}

// DefaultConfig returns configuration used when no config file is found.
func DefaultConfig() *Config {
	return &Config{
		Backend:     FileBackend,
		PoolFile:    poolstore.DefaultPoolFile,
		DefaultPool: defaultPoolName,
		KVKeyPrefix: defaultKVPrefix,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case FileBackend, EtcdBackend:
	default:
		return errors.Errorf("unsupported pool store backend %q", c.Backend)
	}
	for name, r := range c.Pools {
		if r.Size() == 0 {
			return errors.Errorf("invalid range %v of pool %s", r, name)
		}
	}
	return nil
}
