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
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
)

// DefaultPoolFile is the file used when no path is configured.
const DefaultPoolFile = "resource-pools.json"

// FileStore keeps all pools in a single JSON document on the local file system.
type FileStore struct {
	path string
}

// NewFileStore returns store backed by the file at <path>.
// If the file does not exist and <defaultPool> is not empty, the file is
// created with that pool using the default range and no allocations.
// Without <defaultPool> a missing file results in ErrStoreNotFound.
func NewFileStore(path, defaultPool string) (*FileStore, error) {
	if path == "" {
		path = DefaultPoolFile
	}
	s := &FileStore{path: path}

	_, err := os.Stat(path)
	if err == nil {
		return s, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to access pool store %s", path)
	}
	if defaultPool == "" {
		return nil, errors.Wrapf(ErrStoreNotFound, "pool store %s", path)
	}
	if err := s.Save(bootstrapPools(defaultPool)); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the backing file.
func (s *FileStore) Load() (idallocation.Pools, error) {
	data, err := ioutil.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrStoreNotFound, "pool store %s", s.path)
		}
		return nil, errors.Wrapf(err, "failed to read pool store %s", s.path)
	}
	pools := idallocation.Pools{}
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil, errors.Wrapf(err, "failed to decode pool store %s", s.path)
	}
	return normalize(pools), nil
}

// Save writes the pools into a temporary file next to the backing file
// and renames it over the backing file.
func (s *FileStore) Save(pools idallocation.Pools) error {
	data, err := json.MarshalIndent(normalize(pools), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode pools")
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := ioutil.TempFile(dir, "."+base+".tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for %s", s.path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err = tmp.Write(append(data, '\n')); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "failed to write pool store %s", s.path)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrapf(err, "failed to replace pool store %s", s.path)
	}
	return nil
}
