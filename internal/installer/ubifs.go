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

// ubifsInstaller writes a UBIFS image via the external ubiupdatevol tool.
type ubifsInstaller struct {
	fs  afero.Fs
	obj updatepackage.Object
}

func (i *ubifsInstaller) CheckRequirements() error {
	if _, err := exec.LookPath("ubiupdatevol"); err != nil {
		return fmt.Errorf("ubiupdatevol not found on PATH: %w", err)
	}
	if i.obj.Target == "" {
		return fmt.Errorf("ubifs object requires a target volume")
	}
	return nil
}

func (i *ubifsInstaller) Setup() error { return nil }

func (i *ubifsInstaller) Install(downloadDir string) error {
	src, err := i.fs.Open(filepath.Join(downloadDir, i.obj.Sha256sum))
	if err != nil {
		return fmt.Errorf("opening downloaded object: %w", err)
	}
	defer src.Close()

	tmp, err := afero.TempFile(afero.NewOsFs(), "", "ubifs-*")
	if err != nil {
		return fmt.Errorf("staging ubifs image: %w", err)
	}
	defer tmp.Close()
	defer afero.NewOsFs().Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		return fmt.Errorf("staging ubifs image: %w", err)
	}

	cmd := exec.Command("ubiupdatevol", i.obj.Target, tmp.Name())
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ubiupdatevol failed: %w (output: %s)", err, output)
	}

	return nil
}

func (i *ubifsInstaller) Cleanup() error { return nil }
