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
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/infra"
	prometheusplugin "github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/idalloc/poolstore"
)

// IDAllocator plugin implements allocation of numeric identifiers from ID pools
// persisted in a pool store.
type IDAllocator struct {
	Deps

	config    *Config
	allocator *Allocator
	metrics   *poolMetrics
	etcdConn  *etcd.BytesConnectionEtcd
}

// Deps lists dependencies of the IDAllocator plugin.
type Deps struct {
	infra.PluginDeps

	HTTPHandlers rest.HTTPHandlers      // optional
	Prometheus   prometheusplugin.API // optional
}

// Init loads the configuration, opens the pool store and creates configured pools.
func (p *IDAllocator) Init() (err error) {
	p.config = DefaultConfig()
	if p.Cfg != nil {
		found, err := p.Cfg.LoadValue(p.config)
		if err != nil {
			return errors.Wrap(err, "failed to load idalloc configuration")
		}
		if !found {
			p.Log.Debug("idalloc config not found, using defaults")
		}
	}
	if err = p.config.Validate(); err != nil {
		return err
	}
	p.Log.Infof("IDAllocator configuration: %+v", *p.config)

	store, err := p.openStore()
	if err != nil {
		return err
	}

	opts := []AllocatorOption{WithLogger(p.Log)}
	if p.config.IdempotentAllocation {
		opts = append(opts, WithIdempotentAllocation())
	}
	if p.Prometheus != nil {
		if err = p.registerMetrics(); err != nil {
			return err
		}
		opts = append(opts, WithMetrics(p.metrics))
	}
	p.allocator = NewAllocator(store, opts...)

	for name, poolRange := range p.config.Pools {
		if err = p.allocator.InitPool(name, poolRange); err != nil {
			return err
		}
	}
	return nil
}

// AfterInit registers REST handlers.
func (p *IDAllocator) AfterInit() error {
	p.registerRESTHandlers()
	return nil
}

// Close closes the etcd connection, if used.
func (p *IDAllocator) Close() error {
	if p.etcdConn != nil {
		return p.etcdConn.Close()
	}
	return nil
}

// Allocate binds the smallest unbound value of the pool to the given ID.
func (p *IDAllocator) Allocate(allocationID, poolName string) (value int, allocated bool, err error) {
	return p.allocator.Allocate(allocationID, poolName)
}

// Deallocate releases all values bound to the given ID in the pool.
func (p *IDAllocator) Deallocate(allocationID, poolName string) (removed int, err error) {
	return p.allocator.Deallocate(allocationID, poolName)
}

// InitPool creates ID pool with the given range unless it already exists.
func (p *IDAllocator) InitPool(poolName string, poolRange idallocation.Range) error {
	return p.allocator.InitPool(poolName, poolRange)
}

// Pools returns a snapshot of all ID pools.
func (p *IDAllocator) Pools() (idallocation.Pools, error) {
	return p.allocator.Pools()
}

// openStore opens the pool store selected by the configuration.
func (p *IDAllocator) openStore() (poolstore.Store, error) {
	switch p.config.Backend {
	case EtcdBackend:
		store, conn, err := poolstore.NewEtcdStore(p.config.EtcdConfig, p.config.KVKeyPrefix,
			p.config.DefaultPool, p.Log)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open etcd pool store")
		}
		p.etcdConn = conn
		p.Log.Infof("Using etcd pool store with prefix %s", p.config.KVKeyPrefix)
		return store, nil
	default:
		store, err := poolstore.NewFileStore(p.config.PoolFile, p.config.DefaultPool)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open pool store file")
		}
		p.Log.Infof("Using pool store file %s", store.Path())
		return store, nil
	}
}

// registerMetrics creates prometheus registry for ID pool statistics.
func (p *IDAllocator) registerMetrics() error {
	err := p.Prometheus.NewRegistry(prometheusStatsPath,
		promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError, ErrorLog: p.Log})
	if err != nil {
		return err
	}
	p.metrics = newPoolMetrics()
	for name, metric := range p.metrics.collectors() {
		if err = p.Prometheus.Register(prometheusStatsPath, metric); err != nil {
			p.Log.Errorf("failed to register %v metric %v", name, err)
			return err
		}
	}
	return nil
}
