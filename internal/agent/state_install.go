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
	"fmt"
	"path/filepath"

	"github.com/updatehub/agent/internal/installer"
	"github.com/updatehub/agent/internal/updatepackage"
	"github.com/updatehub/agent/internal/utils"
)

// Install validates object integrity one more time, runs the per-object
// installer pipeline, then records the applied package-uid and upgrade
// target slot before handing off to Reboot (spec.md §4.D).
type Install struct {
	pkg *updatepackage.UpdatePackage
}

func (Install) Name() string { return "install" }

func (Install) Capabilities() Capabilities { return Capabilities{} }

func (i Install) packageUID() string { return i.pkg.PackageUID() }

func (i Install) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	packageUID := i.pkg.PackageUID()

	// A package already handed to the installer pipeline by this process
	// goes straight to Reboot. ss.LastPackageUID is set below, once the
	// objects pass the integrity check and before the pipeline runs; it is
	// not persisted, so after a restart only Runtime.AppliedPackageUID
	// (written once the pipeline succeeds) marks a package as applied.
	if packageUID == ss.LastPackageUID {
		return Reboot{pkg: i.pkg}, Immediate(), nil
	}

	inactive, err := ss.inactiveSlot()
	if err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: packageUID}, Immediate(), nil
	}

	objects := i.pkg.ObjectsFor(inactive)

	for _, obj := range objects {
		sum, err := utils.FileSha256sum(ss.FS, filepath.Join(ss.Config.DownloadDir, obj.Sha256sum))
		if err != nil || sum != obj.Sha256sum {
			return ErrorState{cause: NewTransientError(fmt.Errorf("%w: object %s", ErrIntegrity, obj.Sha256sum)), packageUID: packageUID}, Immediate(), nil
		}
	}

	ss.LastPackageUID = packageUID

	if err := installer.InstallSequence(ss.FS, ss.Config.DownloadDir, objects); err != nil {
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: packageUID}, Immediate(), nil
	}

	ss.Runtime.AppliedPackageUID = packageUID
	ss.Runtime.UpgradeToInstallationSet = inactive
	ss.persistRuntime()

	if ss.Config.UpdateSetLayout == 2 {
		if err := ss.ActiveInactive.SetActive(inactive); err != nil {
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: switching active installation set: %s", ErrInstaller, err)), packageUID: packageUID}, Immediate(), nil
		}
	}

	return Reboot{pkg: i.pkg}, Immediate(), nil
}

// Reboot invokes the external reboot command (spec.md §4.D, §6). In
// practice the process exits when the real command runs; the transition to
// Idle lets the state machine run on without a real reboot (a fake binary
// on PATH, or the stub Runner the tests use).
type Reboot struct {
	pkg *updatepackage.UpdatePackage
}

func (Reboot) Name() string { return "reboot" }

func (Reboot) Capabilities() Capabilities { return Capabilities{} }

func (r Reboot) packageUID() string { return r.pkg.PackageUID() }

func (r Reboot) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	stdout, stderr, err := ss.Reboot.Reboot(ctx)
	if stdout != "" || stderr != "" {
		ss.Log.WithField("stdout", stdout).WithField("stderr", stderr).Info("reboot output")
	}
	if err != nil {
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrInstaller, err)), packageUID: r.pkg.PackageUID()}, Immediate(), nil
	}

	return Idle{}, Immediate(), nil
}
