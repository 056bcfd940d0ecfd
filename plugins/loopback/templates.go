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
	"github.com/go-errors/errors"

	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/resmgr/model"
)

// Names of the templates applied by the services.
const (
	ResourceRequestTemplate = "resource-request"
	ServiceCallbackTemplate = "service-callback"
	LoopbackTemplate        = "loopback-template"
	SetupTemplate           = "setup-template"
)

// Template variables.
const (
	VarPoolName     = "POOL_NAME"
	VarAllocationID = "ALLOCATION_ID"
	VarAddress      = "ADDRESS"
	VarMask         = "MASK"
)

// Vars are values substituted into a template.
type Vars map[string]string

func (v Vars) get(name string) (string, error) {
	value, ok := v[name]
	if !ok || value == "" {
		return "", errors.Errorf("template variable %s is not set", name)
	}
	return value, nil
}

// templateContext is the service instance a template is applied to.
type templateContext struct {
	svc     *Service
	name    string
	running *confdb.WriteTxn
}

type template func(ctx *templateContext, vars Vars) error

var templates map[string]template

func init() {
	templates = map[string]template{
		ResourceRequestTemplate: resourceRequest,
		ServiceCallbackTemplate: serviceCallback,
		LoopbackTemplate:        loopbackAddress,
		SetupTemplate:           setupPool,
	}
}

func applyTemplate(name string, ctx *templateContext, vars Vars) error {
	apply, ok := templates[name]
	if !ok {
		return errors.Errorf("unknown template %s", name)
	}
	if err := apply(ctx, vars); err != nil {
		return errors.Errorf("failed to apply template %s: %v", name, err)
	}
	return nil
}

// resourceRequest creates the allocation request.
func resourceRequest(ctx *templateContext, vars Vars) error {
	pool, err := vars.get(VarPoolName)
	if err != nil {
		return err
	}
	id, err := vars.get(VarAllocationID)
	if err != nil {
		return err
	}
	return ctx.running.Create(model.RequestPath(pool, id))
}

// serviceCallback re-deploys the loopback once the response is written.
func serviceCallback(ctx *templateContext, vars Vars) error {
	pool, err := vars.get(VarPoolName)
	if err != nil {
		return err
	}
	id, err := vars.get(VarAllocationID)
	if err != nil {
		return err
	}
	name, svc := ctx.name, ctx.svc
	_, err = svc.db.RegisterKicker(confdb.Kicker{
		ID:        callbackKickerID(name),
		Datastore: confdb.Operational,
		Monitor:   model.ResponsePath(pool, id).String(),
		Handler: func(input confdb.ActionInput) error {
			svc.log.Debugf("Response for loopback %s written in transaction %d", name, input.Tid)
			return svc.Deploy(name)
		},
	})
	return err
}

// loopbackAddress configures the loopback.
func loopbackAddress(ctx *templateContext, vars Vars) error {
	address, err := vars.get(VarAddress)
	if err != nil {
		return err
	}
	mask, err := vars.get(VarMask)
	if err != nil {
		return err
	}
	if err := ctx.running.Set(AddressPath(ctx.name), address); err != nil {
		return err
	}
	return ctx.running.Set(MaskPath(ctx.name), mask)
}

// setupPool creates the ID pool.
func setupPool(ctx *templateContext, vars Vars) error {
	pool, err := vars.get(VarPoolName)
	if err != nil {
		return err
	}
	return ctx.running.Create(model.PoolPath(pool))
}
