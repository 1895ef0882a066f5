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
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/updatehub/agent/internal/updatepackage"
)

// copyInstaller writes the downloaded object verbatim onto a regular file
// target (e.g. a file inside an already-mounted filesystem).
type copyInstaller struct {
	fs  afero.Fs
	obj updatepackage.Object
}

func (i *copyInstaller) CheckRequirements() error {
	if i.obj.Target == "" {
		return fmt.Errorf("copy object requires a target path")
	}
	return nil
}

func (i *copyInstaller) Setup() error { return nil }

func (i *copyInstaller) Install(downloadDir string) error {
	src, err := i.fs.Open(filepath.Join(downloadDir, i.obj.Sha256sum))
	if err != nil {
		return fmt.Errorf("opening downloaded object: %w", err)
	}
	defer src.Close()

	dst, err := i.fs.OpenFile(i.obj.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening copy target %s: %w", i.obj.Target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying to %s: %w", i.obj.Target, err)
	}

	return nil
}

func (i *copyInstaller) Cleanup() error { return nil }
