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

package resmgr

import (
	"github.com/contiv/resmgr/plugins/confdb"
	"github.com/contiv/resmgr/plugins/resmgr/idread"
)

// API defines methods provided by the resource-manager plugin.
type API interface {
	// Resolve returns the state of the ID allocation request which must exist
	// in the given view.
	Resolve(view confdb.Reader, poolName, allocationID string) (idread.Result, error)
}
