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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/pkg/keypath"
	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/idalloc"
	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/idalloc/poolstore"
	"github.com/contiv/resmgr/plugins/loopback/plan"
	"github.com/contiv/resmgr/plugins/resmgr"
	"github.com/contiv/resmgr/plugins/resmgr/idread"
	"github.com/contiv/resmgr/plugins/resmgr/model"
)

type fixture struct {
	db        *confdb.DB
	allocator *idalloc.Allocator
	svc       *Service
	cleanup   func()
}

func setup(t *testing.T) *fixture {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "loopback")
	Expect(err).ToNot(HaveOccurred())
	db, err := confdb.Open(filepath.Join(dir, "test.db"), 0, logrus.DefaultLogger())
	Expect(err).ToNot(HaveOccurred())
	store, err := poolstore.NewFileStore(filepath.Join(dir, poolstore.DefaultPoolFile), DefaultPool)
	Expect(err).ToNot(HaveOccurred())
	allocator := idalloc.NewAllocator(store, idalloc.WithLogger(logrus.DefaultLogger()))

	rm := &resmgr.Plugin{
		Deps: resmgr.Deps{
			PluginDeps: infra.PluginDeps{PluginName: "resmgr", Log: logging.ForPlugin("resmgr-test")},
			ConfDB:     db,
			IDAlloc:    allocator,
		},
	}
	Expect(rm.Init()).To(Succeed())

	svc := NewService(db, rm,
		WithLogger(logrus.DefaultLogger()),
		WithPoolInitializer(allocator, idallocation.DefaultRange()))
	_, err = db.RegisterKicker(confdb.Kicker{
		ID:        KickerID,
		Datastore: confdb.Running,
		Monitor:   Monitor,
		Handler:   svc.ProcessChanges,
	})
	Expect(err).ToNot(HaveOccurred())

	return &fixture{
		db:        db,
		allocator: allocator,
		svc:       svc,
		cleanup: func() {
			db.Close()
			os.RemoveAll(dir)
		},
	}
}

func (f *fixture) get(ds confdb.Datastore, kp keypath.KeyPath) (value string) {
	err := f.db.View(ds, func(txn *confdb.ReadTxn) (err error) {
		value, _, err = txn.Get(kp)
		return err
	})
	Expect(err).ToNot(HaveOccurred())
	return value
}

func (f *fixture) exists(ds confdb.Datastore, kp keypath.KeyPath) (exists bool) {
	err := f.db.View(ds, func(txn *confdb.ReadTxn) (err error) {
		exists, err = txn.Exists(kp)
		return err
	})
	Expect(err).ToNot(HaveOccurred())
	return exists
}

func (f *fixture) running(fn func(txn *confdb.WriteTxn) error) {
	_, err := f.db.Update(confdb.Running, fn)
	Expect(err).ToNot(HaveOccurred())
}

func (f *fixture) bound(pool string) map[string]int {
	pools, err := f.allocator.Pools()
	Expect(err).ToNot(HaveOccurred())
	Expect(pools).To(HaveKey(pool))
	bound := map[string]int{}
	for _, alloc := range pools[pool].Allocations {
		bound[alloc.ID] = alloc.Value
	}
	return bound
}

func (f *fixture) planStatus(name, state string) plan.Status {
	var status plan.Status
	err := f.db.View(confdb.Operational, func(txn *confdb.ReadTxn) (err error) {
		status, err = plan.ReadStatus(txn, LoopbackPath(name), state)
		return err
	})
	Expect(err).ToNot(HaveOccurred())
	return status
}

func TestDeployAndUndeploy(t *testing.T) {
	f := setup(t)
	defer f.cleanup()

	Expect(f.svc.Setup(DefaultPool)).To(Succeed())
	Expect(f.exists(confdb.Running, model.PoolPath(DefaultPool))).To(BeTrue())

	// request is pending first, the callback completes the deployment
	f.running(func(txn *confdb.WriteTxn) error {
		return txn.Create(LoopbackPath("lb"))
	})
	Expect(f.get(confdb.Running, AddressPath("lb"))).To(Equal("1.2.3.1"))
	Expect(f.get(confdb.Running, MaskPath("lb"))).To(Equal("255.255.255.255"))
	Expect(f.get(confdb.Operational, model.AssignedIDPath(DefaultPool, "lb-1"))).To(Equal("1"))
	Expect(f.planStatus("lb", plan.StateInit)).To(Equal(plan.Reached))
	Expect(f.planStatus("lb", StateRequestedAllocations)).To(Equal(plan.Reached))
	Expect(f.planStatus("lb", plan.StateReady)).To(Equal(plan.Reached))
	Expect(f.bound(DefaultPool)).To(Equal(map[string]int{"lb-1": 1}))

	f.running(func(txn *confdb.WriteTxn) error {
		return txn.Create(LoopbackPath("lb2"))
	})
	Expect(f.get(confdb.Running, AddressPath("lb2"))).To(Equal("1.2.3.2"))

	// re-deploying an assigned loopback keeps its address
	Expect(f.svc.Deploy("lb")).To(Succeed())
	Expect(f.get(confdb.Running, AddressPath("lb"))).To(Equal("1.2.3.1"))
	Expect(f.bound(DefaultPool)).To(HaveLen(2))

	// deletion releases the ID
	f.running(func(txn *confdb.WriteTxn) error {
		return txn.Delete(LoopbackPath("lb"))
	})
	Expect(f.bound(DefaultPool)).To(Equal(map[string]int{"lb2-1": 2}))
	Expect(f.exists(confdb.Running, model.AllocationPath(DefaultPool, "lb-1"))).To(BeFalse())
	Expect(f.exists(confdb.Operational, model.AllocationPath(DefaultPool, "lb-1"))).To(BeFalse())
	Expect(f.exists(confdb.Operational, LoopbackPath("lb"))).To(BeFalse())

	// the released value is reused
	f.running(func(txn *confdb.WriteTxn) error {
		return txn.Create(LoopbackPath("lb3"))
	})
	Expect(f.get(confdb.Running, AddressPath("lb3"))).To(Equal("1.2.3.1"))

	Expect(f.svc.Undeploy("lb3")).To(Succeed())
	Expect(f.exists(confdb.Running, LoopbackPath("lb3"))).To(BeFalse())
	Expect(f.bound(DefaultPool)).To(Equal(map[string]int{"lb2-1": 2}))
}

func TestDeployFromConfiguredPool(t *testing.T) {
	f := setup(t)
	defer f.cleanup()

	Expect(f.svc.Setup(DefaultPool)).To(Succeed())
	Expect(f.svc.Setup("pool-2")).To(Succeed())
	f.running(func(txn *confdb.WriteTxn) error {
		return txn.Create(LoopbackPath("other"))
	})

	f.running(func(txn *confdb.WriteTxn) error {
		return txn.Set(PoolPath("lb"), "pool-2")
	})
	Expect(f.get(confdb.Running, AddressPath("lb"))).To(Equal("1.2.3.1"))
	Expect(f.bound("pool-2")).To(Equal(map[string]int{"lb-1": 1}))

	// moving the loopback into another pool releases the old ID
	f.running(func(txn *confdb.WriteTxn) error {
		return txn.Set(PoolPath("lb"), DefaultPool)
	})
	Expect(f.bound("pool-2")).To(BeEmpty())
	Expect(f.bound(DefaultPool)).To(Equal(map[string]int{"other-1": 1, "lb-1": 2}))
	Expect(f.get(confdb.Running, AddressPath("lb"))).To(Equal("1.2.3.2"))
	Expect(f.get(confdb.Operational, PoolPath("lb"))).To(Equal(DefaultPool))
}

func TestDeployExhaustedPoolStaysPending(t *testing.T) {
	f := setup(t)
	defer f.cleanup()

	Expect(f.allocator.InitPool("tiny", idallocation.Range{Start: 1, End: 1})).To(Succeed())
	f.running(func(txn *confdb.WriteTxn) error {
		if err := txn.Set(PoolPath("lb1"), "tiny"); err != nil {
			return err
		}
		return txn.Set(PoolPath("lb2"), "tiny")
	})

	Expect(f.get(confdb.Running, AddressPath("lb1"))).To(Equal("1.2.3.1"))
	Expect(f.exists(confdb.Running, AddressPath("lb2"))).To(BeFalse())
	Expect(f.exists(confdb.Running, model.RequestPath("tiny", "lb2-1"))).To(BeTrue())
	Expect(f.planStatus("lb2", StateRequestedAllocations)).To(Equal(plan.Reached))
	Expect(f.planStatus("lb2", plan.StateReady)).To(Equal(plan.NotReached))
}

type failingResolver struct{}

func (failingResolver) Resolve(view confdb.Reader, poolName, allocationID string) (idread.Result, error) {
	return idread.Result{}, errors.New("resolver failure")
}

func TestDeployFailureMarksPlan(t *testing.T) {
	f := setup(t)
	defer f.cleanup()

	svc := NewService(f.db, failingResolver{}, WithLogger(logrus.DefaultLogger()))
	Expect(svc.Deploy("lb")).ToNot(Succeed())
	Expect(f.planStatus("lb", StateRequestedAllocations)).To(Equal(plan.Reached))
	Expect(f.planStatus("lb", plan.StateReady)).To(Equal(plan.Failed))
	// the request was not committed
	Expect(f.exists(confdb.Running, model.AllocationPath(DefaultPool, "lb-1"))).To(BeFalse())
}

func TestClassify(t *testing.T) {
	RegisterTestingT(t)

	tests := []struct {
		path   string
		op     confdb.Op
		name   string
		action action
		res    confdb.IterResult
	}{
		{"/loopback{lb}", confdb.OpCreated, "lb", deployAction, confdb.IterContinue},
		{"/loopback{lb}", confdb.OpDeleted, "lb", undeployAction, confdb.IterContinue},
		{"/loopback{lb}", confdb.OpModified, "lb", noAction, confdb.IterRecurse},
		{"/loopback{lb}/pool", confdb.OpValueSet, "lb", deployAction, confdb.IterContinue},
		{"/loopback{lb}/pool", confdb.OpDeleted, "lb", deployAction, confdb.IterContinue},
		{"/loopback{lb}/address", confdb.OpValueSet, "", noAction, confdb.IterContinue},
		{"/loopback{lb}/mask", confdb.OpValueSet, "", noAction, confdb.IterContinue},
		{"/resource-manager", confdb.OpCreated, "", noAction, confdb.IterContinue},
	}
	for _, test := range tests {
		name, act, res := classify(keypath.MustParse(test.path), test.op)
		Expect(name).To(Equal(test.name), test.path)
		Expect(act).To(Equal(test.action), test.path)
		Expect(res).To(Equal(test.res), test.path)
	}
}
