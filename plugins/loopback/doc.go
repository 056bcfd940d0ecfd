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

// Package loopback implements a service deploying loopbacks whose addresses
// are derived from IDs allocated by the resource-manager.
//
// A loopback is configured as /loopback{<name>} in the running datastore,
// optionally with the ID pool in the pool leaf. Deployment requests the ID
// /resource-manager/id-pool{<pool>}/allocation{<name>-1}/request and, once the
// ID is assigned, writes the address and mask of the loopback. Progress is
// tracked by a plan persisted in the operational datastore.
package loopback
