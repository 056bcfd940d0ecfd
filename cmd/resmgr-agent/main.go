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

package main

import (
	"github.com/ligato/cn-infra/agent"
	"github.com/ligato/cn-infra/health/probe"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/idalloc"
	"github.com/contiv/resmgr/plugins/loopback"
	"github.com/contiv/resmgr/plugins/resmgr"
)

// MicroserviceLabel is the label of the resource manager agent.
const MicroserviceLabel = "resmgr"

// ResourceManager allocates IDs for requests written into the configuration
// database and deploys loopbacks with addresses derived from them.
type ResourceManager struct {
	ServiceLabel servicelabel.ReaderAPI
	HealthProbe  *probe.Plugin
	HTTP         *rest.Plugin
	Prometheus   *prometheus.Plugin
	ConfDB       *confdb.Plugin
	IDAlloc      *idalloc.IDAllocator
	ResMgr       *resmgr.Plugin
	Loopback     *loopback.Plugin
}

func (r *ResourceManager) String() string {
	return "ResourceManager"
}

// Init is called at startup phase. Method added in order to implement Plugin interface.
func (r *ResourceManager) Init() error {
	return nil
}

// Close is called at cleanup phase. Method added in order to implement Plugin interface.
func (r *ResourceManager) Close() error {
	return nil
}

func main() {
	servicelabel.DefaultPlugin.MicroserviceLabel = MicroserviceLabel

	resourceManager := &ResourceManager{
		ServiceLabel: &servicelabel.DefaultPlugin,
		HealthProbe:  &probe.DefaultPlugin,
		HTTP:         &rest.DefaultPlugin,
		Prometheus:   &prometheus.DefaultPlugin,
		ConfDB:       &confdb.DefaultPlugin,
		IDAlloc:      &idalloc.DefaultPlugin,
		ResMgr:       &resmgr.DefaultPlugin,
		Loopback:     &loopback.DefaultPlugin,
	}

	a := agent.NewAgent(agent.AllPlugins(resourceManager))
	if err := a.Run(); err != nil {
		logrus.DefaultLogger().Fatal(err)
	}
}
