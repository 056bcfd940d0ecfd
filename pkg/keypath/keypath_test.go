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

package keypath

import (
	"sort"
	"testing"

	. "github.com/onsi/gomega"
)

func TestParseLeafFirst(t *testing.T) {
	RegisterTestingT(t)

	kp, err := Parse("/resource-manager/id-pool{pool-1}/allocation{XR-0-1}/request")
	Expect(err).ToNot(HaveOccurred())
	Expect(kp.Len()).To(Equal(6))

	Expect(kp.IsTag(0, "request")).To(BeTrue())
	id, ok := kp.FirstKeyValue(1)
	Expect(ok).To(BeTrue())
	Expect(id).To(Equal("XR-0-1"))
	Expect(kp.IsTag(2, "allocation")).To(BeTrue())
	pool, ok := kp.FirstKeyValue(3)
	Expect(ok).To(BeTrue())
	Expect(pool).To(Equal("pool-1"))
	Expect(kp.IsTag(5, "resource-manager")).To(BeTrue())

	// wrong element kinds
	_, ok = kp.Tag(1)
	Expect(ok).To(BeFalse())
	_, ok = kp.Key(0)
	Expect(ok).To(BeFalse())
	_, ok = kp.At(6)
	Expect(ok).To(BeFalse())
}

func TestStringRoundTrip(t *testing.T) {
	RegisterTestingT(t)

	for _, path := range []string{
		"/",
		"/resource-manager",
		"/resource-manager/id-pool{pool-1}",
		"/interfaces/interface{GigabitEthernet 0/0/0/1}/mtu",
		"/loopback{\"name with space\"}/address",
	} {
		kp, err := Parse(path)
		Expect(err).ToNot(HaveOccurred(), path)
		Expect(kp.String()).To(Equal(path))
	}

	kp := MustParse("/interfaces/interface{GigabitEthernet 0/0/0/1}/mtu")
	key, ok := kp.Key(1)
	Expect(ok).To(BeTrue())
	Expect(key).To(Equal(Key{"GigabitEthernet", "0/0/0/1"}))
}

func TestParseErrors(t *testing.T) {
	RegisterTestingT(t)

	for _, path := range []string{
		"",
		"resource-manager",
		"/a//b",
		"/a/",
		"/{k}",
		"/a{k}{l}",
		"/a{k",
		"/a{\"k}",
	} {
		_, err := Parse(path)
		Expect(err).To(HaveOccurred(), path)
	}
}

func TestNavigation(t *testing.T) {
	RegisterTestingT(t)

	pool := New(Tag("resource-manager")).Entry("id-pool", "pool-1")
	Expect(pool.String()).To(Equal("/resource-manager/id-pool{pool-1}"))

	alloc := pool.Entry("allocation", "a1")
	assigned := alloc.Child("response", "assigned-id")
	Expect(assigned.String()).To(Equal("/resource-manager/id-pool{pool-1}/allocation{a1}/response/assigned-id"))
	Expect(assigned.Up(2).Equal(alloc)).To(BeTrue())
	Expect(assigned.Parent().String()).To(Equal("/resource-manager/id-pool{pool-1}/allocation{a1}/response"))
	Expect(assigned.Schema()).To(Equal("/resource-manager/id-pool/allocation/response/assigned-id"))

	Expect(pool.IsAncestorOf(assigned)).To(BeTrue())
	Expect(assigned.IsAncestorOf(pool)).To(BeFalse())
	Expect(pool.IsAncestorOf(pool)).To(BeFalse())
	Expect(MustParse("/resource-manager/id-pool{pool-2}").IsAncestorOf(assigned)).To(BeFalse())
}

func TestCompareIsPreOrder(t *testing.T) {
	RegisterTestingT(t)

	paths := []KeyPath{
		MustParse("/b"),
		MustParse("/a/x{2}/leaf"),
		MustParse("/a/x{1}"),
		MustParse("/a"),
		MustParse("/a/x{1}/leaf"),
		MustParse("/a/x{2}"),
	}
	sort.Slice(paths, func(i, j int) bool { return Compare(paths[i], paths[j]) < 0 })

	var ordered []string
	for _, kp := range paths {
		ordered = append(ordered, kp.String())
	}
	Expect(ordered).To(Equal([]string{
		"/a",
		"/a/x{1}",
		"/a/x{1}/leaf",
		"/a/x{2}",
		"/a/x{2}/leaf",
		"/b",
	}))
}
