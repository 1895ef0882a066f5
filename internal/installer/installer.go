/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package installer implements the uniform per-object installation contract
// (spec.md §4.C) dispatched over the closed sum of object variants defined
// in internal/updatepackage. The state engine never mentions a concrete
// variant; it only ever holds an Installer.
package installer

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/updatehub/agent/internal/updatepackage"
	"github.com/updatehub/agent/internal/utils"
)

// Installer is the capability set every object variant implements.
// check_requirements is called for all objects before any install begins;
// setup/install/cleanup run per object, cleanup best-effort in reverse
// order (spec.md §4.C).
type Installer interface {
	CheckRequirements() error
	Setup() error
	Install(downloadDir string) error
	Cleanup() error
}

// ErrUnsupported marks a check_requirements failure: the object's mode is
// not supported on this device.
type ErrUnsupported struct {
	Mode updatepackage.Mode
	Err  error
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("object mode %s unsupported: %s", e.Mode, e.Err)
}

func (e *ErrUnsupported) Unwrap() error { return e.Err }

// New dispatches obj's mode to the matching Installer implementation. This
// is the single switch point the rest of the codebase reaches through; a
// new variant means adding one case here, not touching the state engine.
func New(fs afero.Fs, obj updatepackage.Object) (Installer, error) {
	switch obj.Mode {
	case updatepackage.ModeCopy:
		return &copyInstaller{fs: fs, obj: obj}, nil
	case updatepackage.ModeFlash:
		return &flashInstaller{fs: fs, obj: obj}, nil
	case updatepackage.ModeRaw:
		return &rawInstaller{fs: fs, obj: obj}, nil
	case updatepackage.ModeImxkobs:
		return &imxkobsInstaller{fs: fs, obj: obj}, nil
	case updatepackage.ModeTarball:
		return &tarballInstaller{fs: fs, obj: obj}, nil
	case updatepackage.ModeUbifs:
		return &ubifsInstaller{fs: fs, obj: obj}, nil
	case updatepackage.ModeTest:
		return &testInstaller{fs: fs, obj: obj}, nil
	default:
		return nil, fmt.Errorf("no installer registered for mode %q", obj.Mode)
	}
}

// InstallSequence runs the package-level install pipeline for objects in
// slot order: check_requirements for all, then setup+install+cleanup per
// object with cleanup guaranteed even on error (spec.md §4.C).
func InstallSequence(fs afero.Fs, downloadDir string, objects []updatepackage.Object) error {
	installers := make([]Installer, len(objects))
	for i, obj := range objects {
		inst, err := New(fs, obj)
		if err != nil {
			return err
		}
		installers[i] = inst
	}

	for i, inst := range installers {
		if err := inst.CheckRequirements(); err != nil {
			return &ErrUnsupported{Mode: objects[i].Mode, Err: err}
		}
	}

	return runSetupInstallCleanup(installers, downloadDir)
}

// runSetupInstallCleanup runs cleanup in reverse order on success or failure
// and merges any cleanup errors into the returned error (grounded on
// teacher's states.go accumulating per-object Setup/Install/Cleanup failures
// into a single errorList via utils.MergeErrorList), instead of discarding
// them.
func runSetupInstallCleanup(installers []Installer, downloadDir string) (err error) {
	setUp := make([]Installer, 0, len(installers))
	defer func() {
		errs := make([]error, 0, len(setUp)+1)
		if err != nil {
			errs = append(errs, err)
		}
		for i := len(setUp) - 1; i >= 0; i-- {
			if cerr := setUp[i].Cleanup(); cerr != nil {
				errs = append(errs, fmt.Errorf("cleanup: %w", cerr))
			}
		}
		err = utils.MergeErrorList(errs)
	}()

	for _, inst := range installers {
		if serr := inst.Setup(); serr != nil {
			err = fmt.Errorf("setup: %w", serr)
			return
		}
		setUp = append(setUp, inst)

		if ierr := inst.Install(downloadDir); ierr != nil {
			err = fmt.Errorf("install: %w", ierr)
			return
		}
	}
	return
}
