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

// Package model defines the layout of the resource-manager data tree:
//
//	/resource-manager
//	    /id-pool{<pool>}
//	        /allocation{<id>}
//	            /request                 (running: created by the requester)
//	            /response/assigned-id    (operational: written by the allocator)
package model

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/contiv/resmgr/pkg/keypath"
)

// Tags of the resource-manager data tree.
const (
	ResourceManagerTag = "resource-manager"
	IDPoolTag          = "id-pool"
	AllocationTag      = "allocation"
	RequestTag         = "request"
	ResponseTag        = "response"
	AssignedIDTag      = "assigned-id"
)

// AllocationMonitor is the path matching allocation entries of all pools.
const AllocationMonitor = "/" + ResourceManagerTag + "/" + IDPoolTag + "/" + AllocationTag

// RootPath returns path of the resource-manager container.
func RootPath() keypath.KeyPath {
	return keypath.New(keypath.Tag(ResourceManagerTag))
}

// PoolPath returns path of an ID pool entry.
func PoolPath(poolName string) keypath.KeyPath {
	return RootPath().Entry(IDPoolTag, poolName)
}

// AllocationPath returns path of an allocation entry.
func AllocationPath(poolName, allocationID string) keypath.KeyPath {
	return PoolPath(poolName).Entry(AllocationTag, allocationID)
}

// RequestPath returns path of the request container of an allocation.
func RequestPath(poolName, allocationID string) keypath.KeyPath {
	return AllocationPath(poolName, allocationID).Child(RequestTag)
}

// ResponsePath returns path of the response container of an allocation.
func ResponsePath(poolName, allocationID string) keypath.KeyPath {
	return AllocationPath(poolName, allocationID).Child(ResponseTag)
}

// AssignedIDPath returns path of the leaf holding the allocated value.
func AssignedIDPath(poolName, allocationID string) keypath.KeyPath {
	return ResponsePath(poolName, allocationID).Child(AssignedIDTag)
}

// ParseAssignedID decodes the value of the assigned-id leaf.
func ParseAssignedID(value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid assigned ID %q", value)
	}
	return id, nil
}
