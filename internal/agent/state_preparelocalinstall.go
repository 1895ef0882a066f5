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
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/updatehub/agent/internal/archive"
	"github.com/updatehub/agent/internal/updatepackage"
)

// PrepareLocalInstall opens a local archive, extracts its metadata member,
// parses the package, validates the signature when the firmware requires
// one, then extracts each object for the ACTIVE slot into the download
// directory and clears unrelated files against the INACTIVE slot
// (spec.md §4.D).
//
// That active/inactive asymmetry mirrors PrepareDownload's own (which
// clears against the inactive slot while this state reads from the active
// one) and is preserved verbatim per spec.md §9's "legacy quirk to confirm,
// not assume" — not resolved here, just carried through unchanged.
type PrepareLocalInstall struct {
	updateFile string
}

// NewPrepareLocalInstall builds the state the LocalInstall control message
// transitions to, for the given archive path (spec.md §4.E).
func NewPrepareLocalInstall(path string) PrepareLocalInstall {
	return PrepareLocalInstall{updateFile: path}
}

func (PrepareLocalInstall) Name() string { return "prepare_local_install" }

func (PrepareLocalInstall) Capabilities() Capabilities { return Capabilities{} }

func (p PrepareLocalInstall) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	if err := ss.FS.MkdirAll(ss.Config.DownloadDir, 0o755); err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: creating download dir: %s", ErrInstaller, err))}, Immediate(), nil
	}

	metadataBytes, err := p.extractMember(ss, "metadata")
	if err != nil {
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrProtocol, err))}, Immediate(), nil
	}

	pkg, err := updatepackage.Parse(metadataBytes)
	if err != nil {
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrProtocol, err))}, Immediate(), nil
	}

	if len(ss.Firmware.PubKeyPEM) > 0 {
		sigBytes, err := p.extractMember(ss, "signature")
		if err != nil {
			if errors.Is(err, archive.ErrMemberNotFound) {
				return ErrorState{cause: NewFatalError(ErrSignatureNotFound), packageUID: pkg.PackageUID()}, Immediate(), nil
			}
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrSignature, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
		}

		sig, err := updatepackage.SignatureFromBase64(string(sigBytes))
		if err != nil {
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrSignature, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
		}

		if err := sig.Validate(ss.Firmware.PubKeyPEM, pkg); err != nil {
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrSignature, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
		}
	}

	active, err := ss.activeSlot()
	if err != nil {
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
	}

	for _, obj := range pkg.ObjectsFor(active) {
		objBytes, err := p.extractMember(ss, obj.Sha256sum)
		if err != nil {
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: extracting object %s: %s", ErrProtocol, obj.Sha256sum, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
		}

		dest := filepath.Join(ss.Config.DownloadDir, obj.Sha256sum)
		if err := afero.WriteFile(ss.FS, dest, objBytes, 0o644); err != nil {
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
		}
	}

	inactive, err := ss.inactiveSlot()
	if err != nil {
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
	}

	if err := updatepackage.ClearUnrelatedFiles(ss.FS, ss.Config.DownloadDir, inactive, pkg); err != nil {
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: pkg.PackageUID()}, Immediate(), nil
	}

	return Install{pkg: pkg}, Immediate(), nil
}

func (p PrepareLocalInstall) extractMember(ss *SharedState, member string) ([]byte, error) {
	f, err := ss.FS.Open(p.updateFile)
	if err != nil {
		return nil, fmt.Errorf("opening local archive: %w", err)
	}
	defer f.Close()

	rc, err := archive.ExtractMember(f, member)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
