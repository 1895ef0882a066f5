/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package cli implements the updatehub-agent command-line surface with
// github.com/spf13/cobra: a daemon subcommand that runs the agent loop, and
// a handful of client subcommands that talk to its control API (spec.md §1,
// SPEC_FULL.md §3 — "only the control messages they deliver are specified").
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "/etc/updatehub.conf"

var configPath string

// Run builds and executes the root command.
func Run() error {
	root := &cobra.Command{
		Use:   "updatehub-agent",
		Short: "UpdateHub update agent",
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the agent configuration file")

	root.AddCommand(
		newDaemonCmd(),
		newInfoCmd(),
		newProbeCmd(),
		newInstallCmd(),
		newRemoteInstallCmd(),
		newDownloadAbortCmd(),
		newLogCmd(),
	)

	if err := root.Execute(); err != nil {
		return fmt.Errorf("updatehub-agent: %w", err)
	}
	return nil
}
