/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package installer

import (
	"github.com/spf13/afero"
	"github.com/updatehub/agent/internal/updatepackage"
)

// testInstaller is the "test" mode (spec.md §3): used only by the test
// suite, it performs no device I/O at all so higher layers can exercise the
// full pipeline (check/setup/install/cleanup ordering, error propagation)
// without a real target.
type testInstaller struct {
	fs  afero.Fs
	obj updatepackage.Object

	CheckRequirementsCalled bool
	SetupCalled             bool
	InstallCalled           bool
	CleanupCalled           bool
}

func (i *testInstaller) CheckRequirements() error {
	i.CheckRequirementsCalled = true
	return nil
}

func (i *testInstaller) Setup() error {
	i.SetupCalled = true
	return nil
}

func (i *testInstaller) Install(downloadDir string) error {
	i.InstallCalled = true
	return nil
}

func (i *testInstaller) Cleanup() error {
	i.CleanupCalled = true
	return nil
}
