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
	"github.com/contiv/resmgr/pkg/keypath"
	"github.com/contiv/resmgr/plugins/confdb"
)

type action int

const (
	noAction action = iota
	deployAction
	undeployAction
)

// classify returns the action triggered by a change of loopback data.
// Changes of address and mask are written by the service itself and ignored.
func classify(kp keypath.KeyPath, op confdb.Op) (name string, act action, res confdb.IterResult) {
	switch {
	case kp.Len() == 2 && kp.IsTag(1, LoopbackTag):
		// /loopback{name}
		name, _ = kp.FirstKeyValue(0)
		switch op {
		case confdb.OpCreated:
			return name, deployAction, confdb.IterContinue
		case confdb.OpDeleted:
			return name, undeployAction, confdb.IterContinue
		}
		return name, noAction, confdb.IterRecurse
	case kp.Len() == 3 && kp.IsTag(0, PoolTag) && kp.IsTag(2, LoopbackTag):
		// /loopback{name}/pool
		name, _ = kp.FirstKeyValue(1)
		if op == confdb.OpValueSet || op == confdb.OpDeleted {
			return name, deployAction, confdb.IterContinue
		}
	}
	return "", noAction, confdb.IterContinue
}

// ProcessChanges deploys created or re-pooled loopbacks and undeploys
// deleted ones. It is the handler of the running datastore kicker.
func (s *Service) ProcessChanges(input confdb.ActionInput) error {
	s.log.Debugf("kicker-id: %s, path: %s, tid: %d", input.KickerID, input.Path, input.Tid)

	txn, err := s.db.Attach(input.Tid)
	if err != nil {
		return err
	}
	var (
		names   []string
		actions = map[string]action{}
	)
	err = txn.DiffIterate(func(kp keypath.KeyPath, op confdb.Op, _, _ string) confdb.IterResult {
		name, act, res := classify(kp, op)
		if act == noAction {
			return res
		}
		if _, seen := actions[name]; !seen {
			names = append(names, name)
			actions[name] = act
		}
		return res
	}, 0)
	txn.Detach()
	if err != nil {
		return err
	}

	var wasErr error
	for _, name := range names {
		var err error
		if actions[name] == undeployAction {
			err = s.Undeploy(name)
		} else {
			err = s.Deploy(name)
		}
		if err != nil {
			s.log.Errorf("Loopback %s: %v", name, err)
			wasErr = err
		}
	}
	return wasErr
}
