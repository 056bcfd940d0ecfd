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

package plan

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/contiv/resmgr/pkg/keypath"
)

type leafMap map[string]string

func (m leafMap) Set(kp keypath.KeyPath, value string) error {
	m[kp.String()] = value
	return nil
}

func (m leafMap) Get(kp keypath.KeyPath) (string, bool, error) {
	value, found := m[kp.String()]
	return value, found, nil
}

func TestComponentStates(t *testing.T) {
	RegisterTestingT(t)

	c := NewComponent("requested-allocations", StateReady)
	Expect(c.States()).To(Equal([]string{StateInit, "requested-allocations", StateReady}))
	Expect(c.Status(StateInit)).To(Equal(Reached))
	Expect(c.Status("requested-allocations")).To(Equal(NotReached))
	Expect(c.IsReady()).To(BeFalse())

	Expect(c.Reached("requested-allocations")).To(Succeed())
	Expect(c.Failed(StateReady)).To(Succeed())
	Expect(c.IsReady()).To(BeFalse())
	Expect(c.Reached(StateReady)).To(Succeed())
	Expect(c.IsReady()).To(BeTrue())

	Expect(c.Reached("no-such-state")).ToNot(Succeed())
}

func TestWriteAndReadStatus(t *testing.T) {
	RegisterTestingT(t)

	base := keypath.MustParse("/loopback{lb-1}")
	c := NewComponent("requested-allocations")
	Expect(c.Failed(StateReady)).To(Succeed())

	leaves := leafMap{}
	Expect(c.WriteTo(leaves, base)).To(Succeed())
	Expect(leaves).To(Equal(leafMap{
		"/loopback{lb-1}/plan/state{init}/status":                  "reached",
		"/loopback{lb-1}/plan/state{requested-allocations}/status": "not-reached",
		"/loopback{lb-1}/plan/state{ready}/status":                 "failed",
	}))

	status, err := ReadStatus(leaves, base, StateReady)
	Expect(err).ToNot(HaveOccurred())
	Expect(status).To(Equal(Failed))
	status, err = ReadStatus(leaves, keypath.MustParse("/loopback{lb-2}"), StateInit)
	Expect(err).ToNot(HaveOccurred())
	Expect(status).To(Equal(NotReached))
}
