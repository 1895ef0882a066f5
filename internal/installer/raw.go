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

// rawInstaller writes the whole downloaded object into a raw block device,
// starting Seek chunks of ChunkSize bytes (512 when unset) into the target,
// and truncates the target first when TruncateBeforeInstall is set. The
// Count and Skip hints are not applied.
type rawInstaller struct {
	fs  afero.Fs
	obj updatepackage.Object
}

func (i *rawInstaller) CheckRequirements() error {
	if i.obj.Target == "" {
		return fmt.Errorf("raw object requires a target device")
	}
	return nil
}

func (i *rawInstaller) Setup() error { return nil }

func (i *rawInstaller) Install(downloadDir string) error {
	src, err := i.fs.Open(filepath.Join(downloadDir, i.obj.Sha256sum))
	if err != nil {
		return fmt.Errorf("opening downloaded object: %w", err)
	}
	defer src.Close()

	flags := os.O_WRONLY
	if i.obj.TruncateBeforeInstall {
		flags |= os.O_TRUNC
	}

	dst, err := i.fs.OpenFile(i.obj.Target, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening raw target %s: %w", i.obj.Target, err)
	}
	defer dst.Close()

	if i.obj.Seek > 0 {
		if _, err := dst.Seek(i.obj.Seek*chunkSizeOrDefault(i.obj), io.SeekStart); err != nil {
			return fmt.Errorf("seeking raw target: %w", err)
		}
	}

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writing raw target: %w", err)
	}

	return nil
}

func (i *rawInstaller) Cleanup() error { return nil }

func chunkSizeOrDefault(obj updatepackage.Object) int64 {
	if obj.ChunkSize > 0 {
		return obj.ChunkSize
	}
	return 512
}
