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

// Package confdb implements a transactional configuration and operational
// data store for hierarchical data addressed by key paths.
//
// Data of each datastore (running configuration, operational state) is kept
// in a separate bolt bucket. Every applied write transaction gets a
// transaction ID (tid) and produces a diff: an ordered tree of changes
// (created, deleted, modified, value-set nodes). Kickers registered for a
// subtree are invoked after commit of every transaction changing that
// subtree; a kicker may attach to the transaction by its tid and iterate
// the diff depth-first in pre-order.
package confdb
