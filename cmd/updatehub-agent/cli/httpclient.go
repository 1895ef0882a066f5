/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/updatehub/agent/internal/config"
)

const shutdownTimeout = 10 * time.Second

// controlAddr resolves the address the client subcommands dial: the
// running daemon's listen-socket, read from the same config file the daemon
// itself loads (spec.md §1: "only the control messages they deliver are
// specified" — the CLI just needs to find the control surface).
func controlAddr() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return cfg.ListenSocket, nil
}

func controlRequest(method, path string, body any, out any) error {
	addr, err := controlAddr()
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, "http://"+addr+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling control API at %s: %w", addr, err)
	}
	defer res.Body.Close()

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding control API response: %w", err)
		}
	}

	return nil
}
