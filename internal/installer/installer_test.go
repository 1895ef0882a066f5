/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package installer

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/updatehub/agent/internal/updatepackage"
)

func TestNewDispatchesByMode(t *testing.T) {
	fs := afero.NewMemMapFs()

	inst, err := New(fs, updatepackage.Object{Mode: updatepackage.ModeCopy, Target: "/dev/sda1"})
	require.NoError(t, err)
	_, ok := inst.(*copyInstaller)
	assert.True(t, ok)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := New(fs, updatepackage.Object{Mode: "bogus"})
	assert.Error(t, err)
}

func TestCopyInstallerRequiresTarget(t *testing.T) {
	inst := &copyInstaller{fs: afero.NewMemMapFs(), obj: updatepackage.Object{Mode: updatepackage.ModeCopy}}
	assert.Error(t, inst.CheckRequirements())
}

func TestCopyInstallerCopiesDownloadedBytes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/download/aaa", []byte("firmware bytes"), 0o644))

	inst := &copyInstaller{fs: fs, obj: updatepackage.Object{Mode: updatepackage.ModeCopy, Sha256sum: "aaa", Target: "/dev/sda1"}}
	require.NoError(t, inst.Install("/download"))

	data, err := afero.ReadFile(fs, "/dev/sda1")
	require.NoError(t, err)
	assert.Equal(t, "firmware bytes", string(data))
}

func TestInstallSequenceRejectsUnsupportedMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	err := InstallSequence(fs, "/download", []updatepackage.Object{
		{Mode: updatepackage.ModeCopy}, // no Target: fails check_requirements
	})
	var unsupported *ErrUnsupported
	assert.ErrorAs(t, err, &unsupported)
}

// orderTrackingInstaller records setup/install/cleanup call order into a
// shared log, used to assert runSetupInstallCleanup's reverse-order
// cleanup guarantee on both the success and failure paths.
type orderTrackingInstaller struct {
	name        string
	failSetup   bool
	failInstall bool
	failCleanup bool
	log         *[]string
}

func (o *orderTrackingInstaller) CheckRequirements() error { return nil }

func (o *orderTrackingInstaller) Setup() error {
	if o.failSetup {
		return errors.New("setup failed")
	}
	*o.log = append(*o.log, "setup:"+o.name)
	return nil
}

func (o *orderTrackingInstaller) Install(downloadDir string) error {
	if o.failInstall {
		return errors.New("install failed")
	}
	*o.log = append(*o.log, "install:"+o.name)
	return nil
}

func (o *orderTrackingInstaller) Cleanup() error {
	*o.log = append(*o.log, "cleanup:"+o.name)
	if o.failCleanup {
		return errors.New("cleanup failed: " + o.name)
	}
	return nil
}

func TestRunSetupInstallCleanupOrdersCleanupInReverse(t *testing.T) {
	var log []string
	installers := []Installer{
		&orderTrackingInstaller{name: "a", log: &log},
		&orderTrackingInstaller{name: "b", log: &log},
	}

	require.NoError(t, runSetupInstallCleanup(installers, "/download"))

	assert.Equal(t, []string{
		"setup:a", "install:a",
		"setup:b", "install:b",
		"cleanup:b", "cleanup:a",
	}, log)
}

func TestRunSetupInstallCleanupCleansUpAlreadySetUpObjectsOnFailure(t *testing.T) {
	var log []string
	installers := []Installer{
		&orderTrackingInstaller{name: "a", log: &log},
		&orderTrackingInstaller{name: "b", log: &log, failInstall: true},
		&orderTrackingInstaller{name: "c", log: &log},
	}

	err := runSetupInstallCleanup(installers, "/download")
	require.Error(t, err)

	// c never reaches Setup; only a and b's Cleanup run, b (partially set
	// up) before a, even though b's Install failed (spec.md §4.C).
	assert.Equal(t, []string{
		"setup:a", "install:a",
		"setup:b",
		"cleanup:b", "cleanup:a",
	}, log)
}

func TestRunSetupInstallCleanupSurfacesCleanupFailures(t *testing.T) {
	var log []string
	installers := []Installer{
		&orderTrackingInstaller{name: "a", log: &log, failCleanup: true},
		&orderTrackingInstaller{name: "b", log: &log},
	}

	err := runSetupInstallCleanup(installers, "/download")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup failed: a")

	assert.Equal(t, []string{
		"setup:a", "install:a",
		"setup:b", "install:b",
		"cleanup:b", "cleanup:a",
	}, log)
}

func TestRunSetupInstallCleanupMergesInstallAndCleanupFailures(t *testing.T) {
	var log []string
	installers := []Installer{
		&orderTrackingInstaller{name: "a", log: &log, failCleanup: true},
		&orderTrackingInstaller{name: "b", log: &log, failInstall: true},
	}

	err := runSetupInstallCleanup(installers, "/download")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install failed")
	assert.Contains(t, err.Error(), "cleanup failed: a")
}
