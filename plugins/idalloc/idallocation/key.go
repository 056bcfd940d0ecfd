// Copyright (c) 2018 Cisco and/or its affiliates.
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

package idallocation

import "strings"

// Keyword defines the keyword identifying ID allocation pools.
const Keyword = "idalloc"

// KeyPrefix return prefix where all ID allocation pools are persisted.
func KeyPrefix() string {
	return Keyword + "/"
}

// Key returns the key under which ID allocation pool data should be stored in the data-store.
func Key(poolName string) string {
	return KeyPrefix() + poolName
}

// ParseKey returns the name of the pool stored under the given key.
// Returns empty string if the key does not belong to a pool.
func ParseKey(key string) (poolName string) {
	// keys returned by a prefixed broker may be stripped of the agent prefix;
	// pool names may contain '/'
	idx := strings.Index(key, KeyPrefix())
	if idx == -1 || (idx > 0 && key[idx-1] != '/') {
		return ""
	}
	return key[idx+len(KeyPrefix()):]
}
