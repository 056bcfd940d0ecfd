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

package confdb

import (
	"time"

	"github.com/ligato/cn-infra/infra"
	"github.com/pkg/errors"
)

const defaultDBPath = "resmgr.db"

// Config represents configuration of the confdb plugin.
type Config struct {
	DBPath      string        `json:"dbPath,omitempty"`
	OpenTimeout time.Duration `json:"openTimeout,omitempty"`
}

// Plugin opens the database and makes it available to other plugins.
type Plugin struct {
	Deps
	*DB

	config *Config
}

// Deps lists dependencies of the confdb plugin.
type Deps struct {
	infra.PluginDeps
}

// Init opens the database file.
func (p *Plugin) Init() (err error) {
	p.config = &Config{DBPath: defaultDBPath, OpenTimeout: time.Second}
	if p.Cfg != nil {
		if _, err = p.Cfg.LoadValue(p.config); err != nil {
			return errors.Wrap(err, "failed to load confdb configuration")
		}
	}
	p.DB, err = Open(p.config.DBPath, p.config.OpenTimeout, p.Log)
	if err != nil {
		return err
	}
	p.Log.Infof("Opened configuration database %s", p.config.DBPath)
	return nil
}

// Close closes the database file.
func (p *Plugin) Close() error {
	return p.DB.Close()
}
