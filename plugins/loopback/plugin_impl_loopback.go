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

package loopback

import (
	"net"

	"github.com/go-errors/errors"
	"github.com/ligato/cn-infra/infra"

	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/idalloc"
	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/resmgr"
)

// KickerID identifies the kicker deploying loopbacks.
const KickerID = "loopback"

// Config represents configuration of the loopback plugin.
type Config struct {
	// Network is the subnet loopback addresses are assigned from.
	Network string `json:"network,omitempty"`
	// DefaultPool is the ID pool of loopbacks without the pool leaf.
	DefaultPool string `json:"defaultPool,omitempty"`
	// PoolRange is the range of the default pool created during setup.
	PoolRange idallocation.Range `json:"poolRange,omitempty"`
	// SkipSetup disables creation of the default pool after init.
	SkipSetup bool `json:"skipSetup,omitempty"`
}

// Plugin deploys loopbacks configured in the running datastore.
type Plugin struct {
	Deps

	config  *Config
	service *Service
}

// Deps lists dependencies of the loopback plugin.
type Deps struct {
	infra.PluginDeps

	ConfDB  confdb.API
	ResMgr  resmgr.API
	IDAlloc idalloc.API
}

// Init builds the service and registers the kicker monitoring loopbacks.
func (p *Plugin) Init() error {
	p.config = &Config{
		Network:     DefaultNetwork,
		DefaultPool: DefaultPool,
		PoolRange:   idallocation.DefaultRange(),
	}
	if p.Cfg != nil {
		if _, err := p.Cfg.LoadValue(p.config); err != nil {
			return errors.Errorf("failed to load loopback configuration: %v", err)
		}
	}
	_, network, err := net.ParseCIDR(p.config.Network)
	if err != nil {
		return errors.Errorf("invalid loopback network %q: %v", p.config.Network, err)
	}

	opts := []ServiceOption{
		WithLogger(p.Log),
		WithNetwork(network),
		WithDefaultPool(p.config.DefaultPool),
	}
	if p.IDAlloc != nil {
		opts = append(opts, WithPoolInitializer(p.IDAlloc, p.config.PoolRange))
	}
	p.service = NewService(p.ConfDB, p.ResMgr, opts...)

	_, err = p.ConfDB.RegisterKicker(confdb.Kicker{
		ID:        KickerID,
		Datastore: confdb.Running,
		Monitor:   Monitor,
		Handler:   p.service.ProcessChanges,
	})
	return err
}

// AfterInit sets up the default ID pool.
func (p *Plugin) AfterInit() error {
	if p.config.SkipSetup {
		return nil
	}
	return p.service.Setup(p.config.DefaultPool)
}

// Close unregisters the kicker.
func (p *Plugin) Close() error {
	if p.ConfDB != nil {
		p.ConfDB.UnregisterKicker(KickerID)
	}
	return nil
}

// Service returns the loopback service.
func (p *Plugin) Service() *Service {
	return p.service
}
