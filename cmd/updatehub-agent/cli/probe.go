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

func newProbeCmd() *cobra.Command {
	var serverAddress string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Request an immediate probe against the update server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status struct {
				Status string `json:"status"`
			}
			body := map[string]string{"server-address": serverAddress}
			if err := controlRequest("POST", "/probe", body, &status); err != nil {
				return err
			}
			fmt.Println(status.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAddress, "server-address", "", "override the configured update server for this probe only")

	return cmd
}

func newDownloadAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download-abort",
		Short: "Abort an in-progress download and return to idle",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status struct {
				Status string `json:"status"`
			}
			if err := controlRequest("POST", "/update/download-abort", nil, &status); err != nil {
				return err
			}
			fmt.Println(status.Status)
			return nil
		},
	}
}
