/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/updatehub/agent/internal/activeinactive"
	"github.com/updatehub/agent/internal/agent"
	"github.com/updatehub/agent/internal/client"
	"github.com/updatehub/agent/internal/config"
	"github.com/updatehub/agent/internal/control"
	"github.com/updatehub/agent/internal/controlapi"
	"github.com/updatehub/agent/internal/logging"
	"github.com/updatehub/agent/internal/reboot"
)

// version is overridden at release build time via -ldflags.
var version = "dev"

func newDaemonCmd() *cobra.Command {
	var firmwareMetadataPath string
	var logRingCapacity int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the update agent loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(firmwareMetadataPath, logRingCapacity)
		},
	}

	cmd.Flags().StringVar(&firmwareMetadataPath, "firmware-metadata", "/usr/share/updatehub/firmware-metadata.json", "path to the firmware metadata JSON document")
	cmd.Flags().IntVar(&logRingCapacity, "log-ring-capacity", 256, "number of recent log lines kept for the Log control message")

	return cmd
}

func runDaemon(firmwareMetadataPath string, logRingCapacity int) error {
	ring := logging.Install(logRingCapacity)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fw, err := loadFirmwareMetadata(firmwareMetadataPath, cfg.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("loading firmware metadata: %w", err)
	}

	fs := afero.NewOsFs()

	runtimePath := filepath.Join(cfg.DownloadDir, "..", "runtime-settings.conf")
	runtime, err := agent.LoadRuntimeSettings(fs, runtimePath)
	if err != nil {
		return fmt.Errorf("loading runtime settings: %w", err)
	}

	activeInactivePath := filepath.Join(cfg.DownloadDir, "..", "active-installation-set")
	aib := activeinactive.NewFileBackend(fs, activeInactivePath)

	httpClient := client.NewHTTPClient(nil)
	rebootRunner := reboot.ExecRunner{}

	ss := agent.NewSharedState(cfg, runtime, fw, fs, httpClient, rebootRunner, aib)

	actor := control.NewActor(ss, version, ring)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go actor.Run(ctx)

	server := controlapi.NewServer(cfg.ListenSocket, actor, logging.Logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("control API server: %w", err)
	case <-sigCh:
		logging.Logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}
}

// firmwareMetadataDocument is the on-disk shape loadFirmwareMetadata parses;
// the real loader that produces it is out of scope (spec.md §1).
type firmwareMetadataDocument struct {
	ProductUID       string            `json:"product-uid"`
	Hardware         string            `json:"hardware"`
	DeviceIdentity   map[string]string `json:"device-identity"`
	DeviceAttributes map[string]string `json:"device-attributes"`
}

func loadFirmwareMetadata(path, publicKeyPath string) (agent.FirmwareMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return agent.FirmwareMetadata{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc firmwareMetadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return agent.FirmwareMetadata{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	fw := agent.FirmwareMetadata{
		ProductUID:       doc.ProductUID,
		Hardware:         doc.Hardware,
		DeviceIdentity:   doc.DeviceIdentity,
		DeviceAttributes: doc.DeviceAttributes,
	}

	if publicKeyPath != "" {
		pubKey, err := os.ReadFile(publicKeyPath)
		if err != nil {
			return agent.FirmwareMetadata{}, fmt.Errorf("reading public key %s: %w", publicKeyPath, err)
		}
		fw.PubKeyPEM = pubKey
	}

	return fw, nil
}
