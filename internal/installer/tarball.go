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
	"github.com/updatehub/agent/internal/archive"
	"github.com/updatehub/agent/internal/updatepackage"
)

// tarballInstaller extracts Filename from the downloaded tar+gzip object
// onto Target, using internal/archive's member extractor.
type tarballInstaller struct {
	fs  afero.Fs
	obj updatepackage.Object
}

func (i *tarballInstaller) CheckRequirements() error {
	if i.obj.Target == "" || i.obj.Filename == "" {
		return fmt.Errorf("tarball object requires target and filename")
	}
	return nil
}

func (i *tarballInstaller) Setup() error { return nil }

func (i *tarballInstaller) Install(downloadDir string) error {
	src, err := i.fs.Open(filepath.Join(downloadDir, i.obj.Sha256sum))
	if err != nil {
		return fmt.Errorf("opening downloaded object: %w", err)
	}
	defer src.Close()

	dst, err := i.fs.OpenFile(i.obj.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening tarball target %s: %w", i.obj.Target, err)
	}
	defer dst.Close()

	r, err := archive.ExtractMember(src, i.obj.Filename)
	if err != nil {
		return fmt.Errorf("extracting %s from tarball: %w", i.obj.Filename, err)
	}
	defer r.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("writing tarball target: %w", err)
	}

	return nil
}

func (i *tarballInstaller) Cleanup() error { return nil }
