/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package installer

import (
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/updatehub/agent/internal/updatepackage"
)

// imxkobsInstaller writes a Freescale i.MX bootstream via the external
// kobs-ng tool, the same collaborator-by-PATH-lookup pattern as reboot
// (spec.md §6).
type imxkobsInstaller struct {
	fs      afero.Fs
	obj     updatepackage.Object
	tmpPath string
}

func (i *imxkobsInstaller) CheckRequirements() error {
	if _, err := exec.LookPath("kobs-ng"); err != nil {
		return fmt.Errorf("kobs-ng not found on PATH: %w", err)
	}
	return nil
}

func (i *imxkobsInstaller) Setup() error { return nil }

func (i *imxkobsInstaller) Install(downloadDir string) error {
	src, err := i.fs.Open(filepath.Join(downloadDir, i.obj.Sha256sum))
	if err != nil {
		return fmt.Errorf("opening downloaded object: %w", err)
	}
	defer src.Close()

	// kobs-ng operates on a real file path; stage the object through the
	// real filesystem regardless of which afero.Fs the rest of the package
	// is using, then invoke the tool against it.
	tmp, err := afero.TempFile(afero.NewOsFs(), "", "imxkobs-*")
	if err != nil {
		return fmt.Errorf("staging imxkobs payload: %w", err)
	}
	defer tmp.Close()
	i.tmpPath = tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		return fmt.Errorf("staging imxkobs payload: %w", err)
	}

	cmd := exec.Command("kobs-ng", "init", "-x", i.tmpPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("kobs-ng init failed: %w (output: %s)", err, output)
	}

	return nil
}

func (i *imxkobsInstaller) Cleanup() error {
	if i.tmpPath == "" {
		return nil
	}
	return afero.NewOsFs().Remove(i.tmpPath)
}
