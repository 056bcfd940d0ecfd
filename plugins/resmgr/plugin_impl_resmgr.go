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

package resmgr

import (
	"github.com/ligato/cn-infra/infra"
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/idalloc"
	"github.com/contiv/resmgr/plugins/resmgr/diffproc"
	"github.com/contiv/resmgr/plugins/resmgr/idread"
	"github.com/contiv/resmgr/plugins/resmgr/model"
)

// KickerID identifies the kicker of the resource-manager.
const KickerID = "resource-manager"

// Config represents configuration of the resource-manager plugin.
type Config struct {
	// UnmatchedPolicy is one of "recurse" (default), "skip", "stop".
	UnmatchedPolicy string `json:"unmatchedPolicy,omitempty"`
}

// Plugin fulfills ID allocation requests.
type Plugin struct {
	Deps

	config    *Config
	processor *diffproc.Processor
	reader    *idread.Reader
}

// Deps lists dependencies of the resource-manager plugin.
type Deps struct {
	infra.PluginDeps

	ConfDB  confdb.API
	IDAlloc idalloc.API
}

// Init creates the diff processor and registers it as a kicker.
func (p *Plugin) Init() error {
	p.config = &Config{}
	if p.Cfg != nil {
		if _, err := p.Cfg.LoadValue(p.config); err != nil {
			return errors.Wrap(err, "failed to load resmgr configuration")
		}
	}
	policy, ok := diffproc.ParseUnmatchedPolicy(p.config.UnmatchedPolicy)
	if !ok {
		return errors.Errorf("invalid unmatched policy %q", p.config.UnmatchedPolicy)
	}

	p.processor = diffproc.NewProcessor(p.ConfDB, p.IDAlloc,
		diffproc.WithLogger(p.Log), diffproc.WithUnmatchedPolicy(policy))
	p.reader = idread.NewReader(p.ConfDB)

	_, err := p.ConfDB.RegisterKicker(confdb.Kicker{
		ID:        KickerID,
		Datastore: confdb.Running,
		Monitor:   model.AllocationMonitor,
		Handler:   p.processor.Process,
	})
	if err != nil {
		return err
	}
	p.Log.Infof("Resource manager monitoring %s (unmatched changes: %v)", model.AllocationMonitor, policy)
	return nil
}

// Close unregisters the kicker.
func (p *Plugin) Close() error {
	if p.ConfDB != nil {
		p.ConfDB.UnregisterKicker(KickerID)
	}
	return nil
}

// Resolve returns the state of the ID allocation request.
func (p *Plugin) Resolve(view confdb.Reader, poolName, allocationID string) (idread.Result, error) {
	return p.reader.Resolve(view, poolName, allocationID)
}
