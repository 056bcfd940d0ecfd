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

package idalloc

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/idalloc/restapi"
)

func (p *IDAllocator) registerRESTHandlers() {
	if p.HTTPHandlers == nil {
		p.Log.Warnf("No http handler provided, skipping registration of ID pool REST handlers")
		return
	}

	p.HTTPHandlers.RegisterHTTPHandler(restapi.RestURLPools, p.poolsGetHandler, "GET")
	p.HTTPHandlers.RegisterHTTPHandler(restapi.RestURLPool, p.poolGetHandler, "GET")
	p.Log.Infof("ID pool REST handlers registered: GET %v, GET %v", restapi.RestURLPools, restapi.RestURLPool)
}

func (p *IDAllocator) poolsGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p.Log.Debug("Getting ID pools")

		pools, err := p.allocator.Pools()
		if err != nil {
			p.Log.Errorf("Failed to read ID pools: %v", err)
			formatter.JSON(w, http.StatusInternalServerError, err.Error())
			return
		}

		names := make([]string, 0, len(pools))
		for name := range pools {
			names = append(names, name)
		}
		sort.Strings(names)

		res := make([]restapi.PoolAllocations, 0, len(pools))
		for _, name := range names {
			res = append(res, poolAllocations(name, pools[name]))
		}
		formatter.JSON(w, http.StatusOK, res)
	}
}

func (p *IDAllocator) poolGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)[restapi.PoolNameVar]
		p.Log.Debugf("Getting ID pool %s", name)

		pools, err := p.allocator.Pools()
		if err != nil {
			p.Log.Errorf("Failed to read ID pools: %v", err)
			formatter.JSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		pool, exists := pools[name]
		if !exists {
			formatter.JSON(w, http.StatusNotFound, "unknown pool "+name)
			return
		}
		formatter.JSON(w, http.StatusOK, poolAllocations(name, pool))
	}
}

func poolAllocations(name string, pool *idallocation.Pool) restapi.PoolAllocations {
	res := restapi.PoolAllocations{
		Name:        name,
		Start:       pool.Range.Start,
		End:         pool.Range.End,
		Allocations: []restapi.Allocation{},
	}
	bound := map[int]struct{}{}
	for _, alloc := range pool.Allocations {
		res.Allocations = append(res.Allocations, restapi.Allocation{ID: alloc.ID, Value: alloc.Value})
		if pool.Range.Contains(alloc.Value) {
			bound[alloc.Value] = struct{}{}
		}
	}
	sort.Slice(res.Allocations, func(i, j int) bool {
		return res.Allocations[i].Value < res.Allocations[j].Value
	})
	res.Free = pool.Range.Size() - uint64(len(bound))
	return res
}
