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

// Package idalloc is responsible for allocation of numeric identifiers from named pools,
// where each pool is an inclusive range of integers and every value can be bound to at most
// one requester (identified by a string ID) at a time. Values are allocated smallest-first,
// so released values are reused immediately. The pools are persisted by a pool store
// (a local JSON file or etcd) which is fully rewritten on every change.
package idalloc
