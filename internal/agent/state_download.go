/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/updatehub/agent/internal/updatepackage"
	"github.com/updatehub/agent/internal/utils"
)

// PrepareDownload reconciles the download directory before streaming
// objects (spec.md §4.D): ensures it exists and clears files that don't
// belong to any object of the inactive slot.
type PrepareDownload struct {
	pkg *updatepackage.UpdatePackage
}

func (PrepareDownload) Name() string { return "prepare_download" }

func (PrepareDownload) Capabilities() Capabilities { return Capabilities{DownloadAbort: true} }

func (p PrepareDownload) packageUID() string { return p.pkg.PackageUID() }

func (p PrepareDownload) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	if err := ss.FS.MkdirAll(ss.Config.DownloadDir, 0o755); err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: creating download dir: %s", ErrInstaller, err)), packageUID: p.pkg.PackageUID()}, Immediate(), nil
	}

	inactive, err := ss.inactiveSlot()
	if err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: p.pkg.PackageUID()}, Immediate(), nil
	}

	if err := updatepackage.ClearUnrelatedFiles(ss.FS, ss.Config.DownloadDir, inactive, p.pkg); err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: p.pkg.PackageUID()}, Immediate(), nil
	}

	return Download{pkg: p.pkg}, Immediate(), nil
}

// Download streams each object not yet fully present on disk, resuming via
// Range based on the size already on disk, and verifies sha256sum after
// each object — one re-fetch on mismatch, then terminal (spec.md §4.D, §7
// Integrity).
type Download struct {
	pkg *updatepackage.UpdatePackage
}

func (Download) Name() string { return "download" }

func (Download) Capabilities() Capabilities { return Capabilities{DownloadAbort: true} }

func (d Download) packageUID() string { return d.pkg.PackageUID() }

func (d Download) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	inactive, err := ss.inactiveSlot()
	if err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: d.pkg.PackageUID()}, Immediate(), nil
	}

	for _, obj := range d.pkg.ObjectsFor(inactive) {
		select {
		case <-ctx.Done():
			return Idle{}, Immediate(), nil
		default:
		}

		if err := downloadObject(ctx, ss, d.pkg, obj); err != nil {
			cause := NewTransientError(err)
			if errors.Is(err, ErrIntegrity) {
				// The single re-fetch already failed its check: terminal.
				cause = NewFatalError(err)
			}
			return ErrorState{cause: cause, packageUID: d.pkg.PackageUID()}, Immediate(), nil
		}
	}

	return Install{pkg: d.pkg}, Immediate(), nil
}

func downloadObject(ctx context.Context, ss *SharedState, pkg *updatepackage.UpdatePackage, obj updatepackage.Object) error {
	path := filepath.Join(ss.Config.DownloadDir, obj.Sha256sum)

	for attempt := 0; attempt < 2; attempt++ {
		if err := fetchIfIncomplete(ctx, ss, pkg, obj, path); err != nil {
			return fmt.Errorf("%w: %s", ErrTransport, err)
		}

		sum, err := utils.FileSha256sum(ss.FS, path)
		if err == nil && sum == obj.Sha256sum {
			return nil
		}

		// Integrity mismatch: drop the bad copy and retry once from scratch.
		_ = ss.FS.Remove(path)

		if attempt == 1 {
			return fmt.Errorf("%w: object %s", ErrIntegrity, obj.Sha256sum)
		}
	}

	return fmt.Errorf("%w: object %s", ErrIntegrity, obj.Sha256sum)
}

func fetchIfIncomplete(ctx context.Context, ss *SharedState, pkg *updatepackage.UpdatePackage, obj updatepackage.Object, path string) error {
	existing := int64(0)
	if info, err := ss.FS.Stat(path); err == nil {
		existing = info.Size()
	}

	if existing >= obj.Size {
		return nil
	}

	rc, _, err := ss.Client.FetchObject(ctx, ss.Config.ServerAddress, ss.Firmware.ProductUID, pkg.PackageUID(), obj.Sha256sum, existing)
	if err != nil {
		return err
	}
	defer rc.Close()

	flags := os.O_WRONLY | os.O_CREATE
	if existing > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := ss.FS.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, rc)
	return err
}
