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

package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/ghodss/yaml"
	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/utils/safeclose"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/contiv/resmgr/plugins/idalloc"
	"github.com/contiv/resmgr/plugins/idalloc/idallocation"
	"github.com/contiv/resmgr/plugins/idalloc/poolstore"
)

// storeFlags select the pool store the commands operate on.
type storeFlags struct {
	backend     string
	poolFile    string
	defaultPool string
	etcdConfig  string
	kvPrefix    string
}

func (f *storeFlags) openAllocator() (alloc *idalloc.Allocator, closer func(), err error) {
	log := logrus.DefaultLogger()
	log.SetLevel(logging.WarnLevel)

	switch f.backend {
	case idalloc.FileBackend:
		store, err := poolstore.NewFileStore(f.poolFile, f.defaultPool)
		if err != nil {
			return nil, nil, err
		}
		return idalloc.NewAllocator(store, idalloc.WithLogger(log)), func() {}, nil
	case idalloc.EtcdBackend:
		store, conn, err := poolstore.NewEtcdStore(f.etcdConfig, f.kvPrefix, f.defaultPool, log)
		if err != nil {
			return nil, nil, err
		}
		return idalloc.NewAllocator(store, idalloc.WithLogger(log)), func() { safeclose.Close(conn) }, nil
	}
	return nil, nil, errors.Errorf("unsupported backend %q", f.backend)
}

// withAllocator runs <fn> with an allocator over the selected store.
func (f *storeFlags) withAllocator(fn func(alloc *idalloc.Allocator) error) error {
	alloc, closer, err := f.openAllocator()
	if err != nil {
		return err
	}
	defer closer()
	return fn(alloc)
}

func newRootCmd() *cobra.Command {
	flags := &storeFlags{}
	defaults := idalloc.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:          "idpoolctl",
		Short:        "Inspect and modify ID pools",
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.backend, "backend", defaults.Backend, "pool store backend (file|etcd)")
	pf.StringVar(&flags.poolFile, "pool-file", defaults.PoolFile, "JSON file with ID pools")
	pf.StringVar(&flags.defaultPool, "default-pool", defaults.DefaultPool,
		"pool created when the store does not exist yet (empty: fail instead)")
	pf.StringVar(&flags.etcdConfig, "etcd-config", "", "etcd client configuration file")
	pf.StringVar(&flags.kvPrefix, "kv-prefix", defaults.KVKeyPrefix, "etcd key prefix")

	rootCmd.AddCommand(
		newInitCmd(flags),
		newAllocateCmd(flags),
		newReleaseCmd(flags),
		newDumpCmd(flags),
	)
	return rootCmd
}

func newInitCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init pool start end",
		Short: "Create an ID pool with the inclusive range start..end",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrap(err, "invalid range start")
			}
			end, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.Wrap(err, "invalid range end")
			}
			return flags.withAllocator(func(alloc *idalloc.Allocator) error {
				poolRange := idallocation.Range{Start: start, End: end}
				if err := alloc.InitPool(args[0], poolRange); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pool %s: %v\n", args[0], poolRange)
				return nil
			})
		},
	}
}

func newAllocateCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "allocate pool id",
		Short: "Bind the smallest free value of the pool to the ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withAllocator(func(alloc *idalloc.Allocator) error {
				value, allocated, err := alloc.Allocate(args[1], args[0])
				if err != nil {
					return err
				}
				if !allocated {
					fmt.Fprintln(cmd.OutOrStdout(), "none")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func newReleaseCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "release pool id",
		Short: "Remove all values bound to the ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withAllocator(func(alloc *idalloc.Allocator) error {
				removed, err := alloc.Deallocate(args[1], args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "released %d value(s)\n", removed)
				return nil
			})
		},
	}
}

func newDumpCmd(flags *storeFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dump [pool...]",
		Short: "Print ID pools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withAllocator(func(alloc *idalloc.Allocator) error {
				pools, err := alloc.Pools()
				if err != nil {
					return err
				}
				if len(args) > 0 {
					selected := idallocation.Pools{}
					for _, name := range args {
						pool, ok := pools[name]
						if !ok {
							return errors.Errorf("unknown ID pool %s", name)
						}
						selected[name] = pool
					}
					pools = selected
				}
				data, err := marshalPools(pools, output)
				if err != nil {
					return err
				}
				cmd.OutOrStdout().Write(data)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json|yaml|table)")
	return cmd
}

func marshalPools(pools idallocation.Pools, output string) ([]byte, error) {
	switch output {
	case "json":
		data, err := json.MarshalIndent(pools, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		return yaml.Marshal(pools)
	case "table":
		return poolTable(pools), nil
	}
	return nil, errors.Errorf("unsupported output format %q", output)
}

func poolTable(pools idallocation.Pools) []byte {
	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []byte
	out = append(out, fmt.Sprintf("%-16s %-10s %-6s %s\n", "POOL", "RANGE", "VALUE", "ID")...)
	for _, name := range names {
		pool := pools[name]
		if len(pool.Allocations) == 0 {
			out = append(out, fmt.Sprintf("%-16s %-10v %-6s %s\n", name, pool.Range, "-", "-")...)
			continue
		}
		for _, alloc := range pool.Allocations {
			out = append(out, fmt.Sprintf("%-16s %-10v %-6d %s\n", name, pool.Range, alloc.Value, alloc.ID)...)
		}
	}
	return out
}
