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
	"os"

	"github.com/ligato/cn-infra/config"
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// EtcdConfigEnv names the environment variable consulted when no etcd
// configuration file is given.
const EtcdConfigEnv = "ETCD_CONFIG"

// ConnectEtcd establishes connection to etcd configured by the given YAML
// file, or the file named by ETCD_CONFIG, or etcd defaults.
func ConnectEtcd(configFile string, log logging.Logger) (*etcd.BytesConnectionEtcd, error) {
	if configFile == "" {
		configFile = os.Getenv(EtcdConfigEnv)
	}

	cfg := &etcd.Config{}
	if configFile != "" {
		if err := config.ParseConfigFromYamlFile(configFile, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse etcd config %s", configFile)
		}
	}

	etcdConfig, err := etcd.ConfigToClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "invalid etcd config")
	}

	return etcd.NewEtcdConnectionWithBytes(*etcdConfig, log)
}

// NewEtcdStore connects to etcd and returns store keeping pools under <prefix>.
// The returned connection should be closed by the caller.
func NewEtcdStore(configFile, prefix, defaultPool string, log logging.Logger) (*KVStore, *etcd.BytesConnectionEtcd, error) {
	conn, err := ConnectEtcd(configFile, log)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewKVStore(conn.NewBroker(prefix), defaultPool)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return store, conn, nil
}
