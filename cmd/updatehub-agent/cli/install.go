/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <path>",
		Short: "Install a local update package archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status struct {
				Status string `json:"status"`
			}
			body := map[string]string{"file": args[0]}
			if err := controlRequest("POST", "/local-install", body, &status); err != nil {
				return err
			}
			fmt.Println(status.Status)
			return nil
		},
	}
}

func newRemoteInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remote-install <url>",
		Short: "Download and install an update package archive from a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status struct {
				Status string `json:"status"`
			}
			body := map[string]string{"url": args[0]}
			if err := controlRequest("POST", "/remote-install", body, &status); err != nil {
				return err
			}
			fmt.Println(status.Status)
			return nil
		},
	}
}
