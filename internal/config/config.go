/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package config loads the daemon's on-disk configuration with
// github.com/spf13/viper, the ambient configuration layer spec.md §1 leaves
// unspecified ("only the control messages they deliver are specified")
// beyond the fields internal/agent.Config actually needs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/updatehub/agent/internal/agent"
)

// Defaults mirror teacher's settings.conf (polling interval, download dir,
// listen socket) plus the fields SPEC_FULL.md's ambient stack adds.
const (
	defaultPollingInterval   = time.Hour
	defaultDownloadDir       = "/var/cache/updatehub/downloads"
	defaultListenSocket      = "/var/run/updatehub.sock"
	defaultServerAddress     = "https://api.updatehub.io"
	defaultUpdateSetLayout   = agent.DefaultUpdateSetLayout
	defaultMaxPollingRetries = 10
)

// Load reads configPath (an ini/json/yaml/toml file, whichever extension
// viper recognises) and overlays it onto the defaults above.
func Load(configPath string) (agent.Config, error) {
	v := viper.New()

	v.SetDefault("polling.interval", defaultPollingInterval.String())
	v.SetDefault("polling.enabled", true)
	v.SetDefault("storage.download-dir", defaultDownloadDir)
	v.SetDefault("network.listen-socket", defaultListenSocket)
	v.SetDefault("network.server-address", defaultServerAddress)
	v.SetDefault("network.public-key-path", "")
	v.SetDefault("storage.update-set-layout", defaultUpdateSetLayout)
	v.SetDefault("polling.max-retries", defaultMaxPollingRetries)

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return agent.Config{}, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	interval, err := time.ParseDuration(v.GetString("polling.interval"))
	if err != nil {
		return agent.Config{}, fmt.Errorf("parsing polling.interval: %w", err)
	}

	return agent.Config{
		PollingInterval:   interval,
		PollingEnabled:    v.GetBool("polling.enabled"),
		DownloadDir:       v.GetString("storage.download-dir"),
		ListenSocket:      v.GetString("network.listen-socket"),
		ServerAddress:     v.GetString("network.server-address"),
		PublicKeyPath:     v.GetString("network.public-key-path"),
		UpdateSetLayout:   v.GetInt("storage.update-set-layout"),
		MaxPollingRetries: v.GetInt("polling.max-retries"),
	}, nil
}
