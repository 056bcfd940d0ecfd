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

package poolstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "poolstore")
	Expect(err).ToNot(HaveOccurred())
	return dir
}

func TestFileStoreBootstrap(t *testing.T) {
	RegisterTestingT(t)
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, DefaultPoolFile)
	store, err := NewFileStore(path, "pool-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(store.Path()).To(Equal(path))

	data, err := ioutil.ReadFile(path)
	Expect(err).ToNot(HaveOccurred())
	Expect(string(data)).To(Equal(`{
  "pool-1": {
    "range": {
      "start": 1,
      "end": 10
    },
    "allocations": []
  }
}
`))

	pools, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	Expect(pools).To(HaveLen(1))
	Expect(pools["pool-1"].Range).To(Equal(idallocation.DefaultRange()))
	Expect(pools["pool-1"].Allocations).To(BeEmpty())
}

func TestFileStoreExistingFileIsKept(t *testing.T) {
	RegisterTestingT(t)
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "pools.json")
	content := `{"p": {"range": {"start": 5, "end": 6}, "allocations": [{"id": "a", "value": 5}]}}`
	Expect(ioutil.WriteFile(path, []byte(content), 0644)).To(Succeed())

	store, err := NewFileStore(path, "default")
	Expect(err).ToNot(HaveOccurred())
	pools, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	Expect(pools).To(HaveKey("p"))
	Expect(pools).ToNot(HaveKey("default"))
	Expect(pools["p"].Allocations).To(Equal([]idallocation.Allocation{{ID: "a", Value: 5}}))
}

func TestFileStoreNotFound(t *testing.T) {
	RegisterTestingT(t)
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "missing.json")
	_, err := NewFileStore(path, "")
	Expect(err).To(HaveOccurred())
	Expect(errors.Cause(err)).To(Equal(ErrStoreNotFound))

	_, err = os.Stat(path)
	Expect(os.IsNotExist(err)).To(BeTrue())
}

func TestFileStoreMalformed(t *testing.T) {
	RegisterTestingT(t)
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "pools.json")
	Expect(ioutil.WriteFile(path, []byte("{not json"), 0644)).To(Succeed())

	store, err := NewFileStore(path, "pool-1")
	Expect(err).ToNot(HaveOccurred())
	_, err = store.Load()
	Expect(err).To(HaveOccurred())
	Expect(errors.Cause(err)).ToNot(Equal(ErrStoreNotFound))
}

func TestFileStoreSaveReplacesContent(t *testing.T) {
	RegisterTestingT(t)
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "pools.json")
	store, err := NewFileStore(path, "pool-1")
	Expect(err).ToNot(HaveOccurred())

	pools, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	pools["pool-1"].Allocations = append(pools["pool-1"].Allocations, idallocation.Allocation{ID: "svc-1", Value: 1})
	pools["pool-2"] = idallocation.NewPool(idallocation.Range{Start: 100, End: 200})
	Expect(store.Save(pools)).To(Succeed())

	reloaded, err := store.Load()
	Expect(err).ToNot(HaveOccurred())
	Expect(reloaded).To(Equal(pools))

	// no temporary files are left behind
	entries, err := ioutil.ReadDir(dir)
	Expect(err).ToNot(HaveOccurred())
	Expect(entries).To(HaveLen(1))
	Expect(entries[0].Name()).To(Equal("pools.json"))
}
