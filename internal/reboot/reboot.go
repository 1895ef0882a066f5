/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package reboot invokes the external reboot executable found on PATH
// (spec.md §6). Its stdout/stderr are logged but not interpreted. Because
// ExecRunner looks the executable up on PATH, a fake "reboot" placed earlier
// on PATH stands in for the real one; internal/agent's tests use a stub
// Runner instead.
package reboot

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner triggers a reboot. It is the interface internal/agent's Reboot
// state depends on, so tests can substitute a fake.
type Runner interface {
	Reboot(ctx context.Context) (stdout, stderr string, err error)
}

// ExecRunner shells out to "reboot" via exec.LookPath, the real
// implementation used outside tests.
type ExecRunner struct{}

func (ExecRunner) Reboot(ctx context.Context) (string, string, error) {
	path, err := exec.LookPath("reboot")
	if err != nil {
		return "", "", fmt.Errorf("reboot not found on PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("running reboot: %w", err)
	}

	return stdout.String(), stderr.String(), nil
}
