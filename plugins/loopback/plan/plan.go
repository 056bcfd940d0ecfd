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

// Package plan tracks progress of a service deployment as a sequence of
// states, each of them either not reached yet, reached or failed.
package plan

import (
	"github.com/go-errors/errors"

	"github.com/contiv/resmgr/pkg/keypath"
)

// Built-in states of every component.
const (
	StateInit  = "init"
	StateReady = "ready"
)

// Tags of the persisted plan.
const (
	PlanTag   = "plan"
	StateTag  = "state"
	StatusTag = "status"
)

// Status of a single plan state.
type Status string

const (
	// NotReached is the initial status of every state except init.
	NotReached Status = "not-reached"
	// Reached marks a completed state.
	Reached Status = "reached"
	// Failed marks a state which could not be completed.
	Failed Status = "failed"
)

// Reporter is used by services to report progress of a deployment.
type Reporter interface {
	// Reached marks the state as reached.
	Reached(state string) error

	// Failed marks the state as failed.
	Failed(state string) error
}

// Setter writes leaf values, e.g. confdb.WriteTxn.
type Setter interface {
	Set(kp keypath.KeyPath, value string) error
}

// Getter reads leaf values, e.g. confdb.ReadTxn.
type Getter interface {
	Get(kp keypath.KeyPath) (value string, found bool, err error)
}

// Component is a plan with the states init, <custom states...>, ready.
// The init state is reached upon creation.
type Component struct {
	states []string
	status map[string]Status
}

// NewComponent returns a new plan component.
func NewComponent(customStates ...string) *Component {
	c := &Component{status: map[string]Status{}}
	for _, state := range append(append([]string{StateInit}, customStates...), StateReady) {
		if _, duplicate := c.status[state]; duplicate {
			continue
		}
		c.states = append(c.states, state)
		c.status[state] = NotReached
	}
	c.status[StateInit] = Reached
	return c
}

// Reached marks the state as reached.
func (c *Component) Reached(state string) error {
	return c.set(state, Reached)
}

// Failed marks the state as failed.
func (c *Component) Failed(state string) error {
	return c.set(state, Failed)
}

func (c *Component) set(state string, status Status) error {
	if _, known := c.status[state]; !known {
		return errors.Errorf("unknown plan state %q", state)
	}
	c.status[state] = status
	return nil
}

// States returns the states in their order.
func (c *Component) States() []string {
	return append([]string(nil), c.states...)
}

// Status returns status of the state.
func (c *Component) Status(state string) Status {
	return c.status[state]
}

// IsReady returns true once the ready state was reached.
func (c *Component) IsReady() bool {
	return c.status[StateReady] == Reached
}

// WriteTo stores status of every state below <base> as
// <base>/plan/state{<state>}/status.
func (c *Component) WriteTo(w Setter, base keypath.KeyPath) error {
	for _, state := range c.states {
		if err := w.Set(StatusPath(base, state), string(c.status[state])); err != nil {
			return err
		}
	}
	return nil
}

// StatusPath returns path of the status leaf of a plan state.
func StatusPath(base keypath.KeyPath, state string) keypath.KeyPath {
	return base.Child(PlanTag).Entry(StateTag, state).Child(StatusTag)
}

// ReadStatus reads status of a persisted plan state. Returns NotReached if
// the state is not persisted.
func ReadStatus(r Getter, base keypath.KeyPath, state string) (Status, error) {
	value, found, err := r.Get(StatusPath(base, state))
	if err != nil || !found {
		return NotReached, err
	}
	return Status(value), nil
}
