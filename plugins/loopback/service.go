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

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/go-errors/errors"
	"github.com/ligato/cn-infra/logging"

	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/loopback/plan"
	"github.com/contiv/resmgr/plugins/resmgr/idread"
	"github.com/contiv/resmgr/plugins/resmgr/model"
)

const (
	// DefaultNetwork is the subnet loopback addresses are assigned from.
	DefaultNetwork = "1.2.3.0/24"
	// DefaultPool is the ID pool used by loopbacks without the pool leaf.
	DefaultPool = "pool-1"

	loopbackMask = "255.255.255.255"
)

// Resolver reads the state of ID allocation requests.
type Resolver interface {
	Resolve(view confdb.Reader, poolName, allocationID string) (idread.Result, error)
}

// PoolInitializer creates ID pools in the allocator.
type PoolInitializer interface {
	InitPool(poolName string, poolRange idallocation.Range) error
}

// Service deploys loopbacks with addresses derived from allocated IDs.
type Service struct {
	db       confdb.API
	resolver Resolver
	pools    PoolInitializer
	log      logging.Logger

	network     *net.IPNet
	defaultPool string
	poolRange   idallocation.Range
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(log logging.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// WithNetwork sets the subnet loopback addresses are assigned from.
func WithNetwork(network *net.IPNet) ServiceOption {
	return func(s *Service) {
		s.network = network
	}
}

// WithDefaultPool sets the ID pool of loopbacks without the pool leaf.
func WithDefaultPool(poolName string) ServiceOption {
	return func(s *Service) {
		s.defaultPool = poolName
	}
}

// WithPoolInitializer makes Setup create the pool in the allocator as well.
func WithPoolInitializer(pools PoolInitializer, poolRange idallocation.Range) ServiceOption {
	return func(s *Service) {
		s.pools = pools
		s.poolRange = poolRange
	}
}

// NewService returns a new loopback service.
func NewService(db confdb.API, resolver Resolver, opts ...ServiceOption) *Service {
	_, network, _ := net.ParseCIDR(DefaultNetwork)
	s := &Service{
		db:          db,
		resolver:    resolver,
		log:         logging.ForPlugin("loopback"),
		network:     network,
		defaultPool: DefaultPool,
		poolRange:   idallocation.DefaultRange(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup creates the ID pool used by loopbacks.
func (s *Service) Setup(poolName string) error {
	if s.pools != nil {
		if err := s.pools.InitPool(poolName, s.poolRange); err != nil {
			return errors.Errorf("failed to initialize ID pool %s: %v", poolName, err)
		}
	}
	running := s.db.NewWriteTxn(confdb.Running)
	ctx := &templateContext{svc: s, running: running}
	if err := applyTemplate(SetupTemplate, ctx, Vars{VarPoolName: poolName}); err != nil {
		return err
	}
	if _, err := running.Apply(); err != nil {
		return errors.Errorf("failed to set up ID pool %s: %v", poolName, err)
	}
	s.log.Infof("ID pool %s set up", poolName)
	return nil
}

// Deploy requests an ID for the loopback and, once the ID is assigned,
// configures the loopback address. While the ID is pending, a callback
// re-deploys the loopback as soon as the allocator writes the response.
func (s *Service) Deploy(name string) error {
	s.log.Infof("Deploying loopback %s", name)

	self := plan.NewComponent(StateRequestedAllocations)
	running := s.db.NewWriteTxn(confdb.Running)
	ctx := &templateContext{svc: s, name: name, running: running}

	pool, err := s.requestedPool(running, name)
	if err != nil {
		return s.fail(self, name, "", err)
	}
	allocationID := AllocationID(name)
	vars := Vars{VarPoolName: pool, VarAllocationID: allocationID}

	prevPool, err := s.deployedPool(name)
	if err != nil {
		return s.fail(self, name, pool, err)
	}
	if prevPool != "" && prevPool != pool {
		s.log.Infof("Loopback %s moved from pool %s to %s", name, prevPool, pool)
		if err := running.Delete(model.AllocationPath(prevPool, allocationID)); err != nil {
			return s.fail(self, name, pool, err)
		}
	}

	if err := applyTemplate(ResourceRequestTemplate, ctx, vars); err != nil {
		return s.fail(self, name, pool, err)
	}
	self.Reached(StateRequestedAllocations)

	result, err := s.resolver.Resolve(running, pool, allocationID)
	if err != nil {
		return s.fail(self, name, pool, err)
	}
	s.log.Infof("ID of loopback %s: %v", name, result)

	if result.Status == idread.Pending {
		if err := applyTemplate(ServiceCallbackTemplate, ctx, vars); err != nil {
			return s.fail(self, name, pool, err)
		}
		// the callback may complete the plan while the request is applied
		if err := s.writeState(self, name, pool); err != nil {
			return err
		}
		if _, err := running.Apply(); err != nil {
			return s.fail(self, name, pool, err)
		}
		return nil
	}

	s.db.UnregisterKicker(callbackKickerID(name))
	address, err := cidr.Host(s.network, result.Value)
	if err != nil {
		return s.fail(self, name, pool, errors.Errorf("no address for ID %d: %v", result.Value, err))
	}
	tvars := Vars{VarAddress: address.String(), VarMask: loopbackMask}
	if err := applyTemplate(LoopbackTemplate, ctx, tvars); err != nil {
		return s.fail(self, name, pool, err)
	}
	if _, err := running.Apply(); err != nil {
		return s.fail(self, name, pool, err)
	}
	self.Reached(plan.StateReady)
	s.log.Infof("Loopback %s deployed with address %s", name, address)
	return s.writeState(self, name, pool)
}

// Undeploy removes the loopback and releases its ID.
func (s *Service) Undeploy(name string) error {
	s.log.Infof("Undeploying loopback %s", name)
	s.db.UnregisterKicker(callbackKickerID(name))

	pool, err := s.deployedPool(name)
	if err != nil {
		return err
	}
	running := s.db.NewWriteTxn(confdb.Running)
	if err := running.Delete(LoopbackPath(name)); err != nil {
		return err
	}
	if pool != "" {
		if err := running.Delete(model.AllocationPath(pool, AllocationID(name))); err != nil {
			return err
		}
	}
	if _, err := running.Apply(); err != nil {
		return errors.Errorf("failed to undeploy loopback %s: %v", name, err)
	}
	_, err = s.db.Update(confdb.Operational, func(txn *confdb.WriteTxn) error {
		return txn.Delete(LoopbackPath(name))
	})
	return err
}

// requestedPool returns the pool configured for the loopback, or the default one.
func (s *Service) requestedPool(view confdb.Reader, name string) (string, error) {
	pool, found, err := view.Get(PoolPath(name))
	if err != nil {
		return "", err
	}
	if !found || pool == "" {
		return s.defaultPool, nil
	}
	return pool, nil
}

// deployedPool returns the pool recorded by the last deployment, empty if none.
func (s *Service) deployedPool(name string) (pool string, err error) {
	err = s.db.View(confdb.Operational, func(txn *confdb.ReadTxn) error {
		pool, _, err = txn.Get(PoolPath(name))
		return err
	})
	return pool, err
}

// writeState records the plan and the pool of the deployment.
func (s *Service) writeState(self *plan.Component, name, pool string) error {
	_, err := s.db.Update(confdb.Operational, func(txn *confdb.WriteTxn) error {
		if pool != "" {
			if err := txn.Set(PoolPath(name), pool); err != nil {
				return err
			}
		}
		return self.WriteTo(txn, LoopbackPath(name))
	})
	if err != nil {
		return errors.Errorf("failed to write plan of loopback %s: %v", name, err)
	}
	return nil
}

// fail marks the plan as failed and returns the cause.
func (s *Service) fail(self *plan.Component, name, pool string, cause error) error {
	s.log.Errorf("Failed to deploy loopback %s: %v", name, cause)
	self.Failed(plan.StateReady)
	if err := s.writeState(self, name, pool); err != nil {
		s.log.Error(err)
	}
	return cause
}
