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

// flashInstaller writes to a flash (MTD-style) target. setup pre-erases the
// target by truncating it to zero length, the closest afero-portable
// approximation of a real MTD erase cycle.
type flashInstaller struct {
	fs  afero.Fs
	obj updatepackage.Object
}

func (i *flashInstaller) CheckRequirements() error {
	if i.obj.Target == "" {
		return fmt.Errorf("flash object requires a target device")
	}
	return nil
}

func (i *flashInstaller) Setup() error {
	f, err := i.fs.OpenFile(i.obj.Target, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening flash target for erase: %w", err)
	}
	defer f.Close()

	return f.Truncate(0)
}

func (i *flashInstaller) Install(downloadDir string) error {
	src, err := i.fs.Open(filepath.Join(downloadDir, i.obj.Sha256sum))
	if err != nil {
		return fmt.Errorf("opening downloaded object: %w", err)
	}
	defer src.Close()

	dst, err := i.fs.OpenFile(i.obj.Target, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening flash target %s: %w", i.obj.Target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writing flash target: %w", err)
	}

	return nil
}

func (i *flashInstaller) Cleanup() error { return nil }
