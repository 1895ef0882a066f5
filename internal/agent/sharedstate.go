/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package agent

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/updatehub/agent/internal/activeinactive"
	"github.com/updatehub/agent/internal/client"
	"github.com/updatehub/agent/internal/reboot"
)

// SharedState is the singleton every Handle call mutates (spec.md §3),
// threaded explicitly through each call rather than kept as an ambient
// global (design note in spec.md §9).
type SharedState struct {
	Config   Config
	Runtime  *RuntimeSettings
	Firmware FirmwareMetadata

	FS             afero.Fs
	Client         client.Client
	Reboot         reboot.Runner
	ActiveInactive activeinactive.Switcher

	Rand *rand.Rand
	Now  func() time.Time

	Log *logrus.Logger

	// LastPackageUID is kept in-process for the Install state's "already
	// applied" fast path (teacher's uh.lastInstalledPackageUID), distinct
	// from Runtime.AppliedPackageUID which survives a restart.
	LastPackageUID string

	// LastTransitionErr records the most recent transition failure so the
	// Error state (and Info control responses) can report it.
	LastTransitionErr error
}

// NewSharedState wires a SharedState with the production collaborators.
func NewSharedState(cfg Config, runtime *RuntimeSettings, fw FirmwareMetadata, fs afero.Fs, cl client.Client, rb reboot.Runner, aib activeinactive.Switcher) *SharedState {
	return &SharedState{
		Config:         cfg,
		Runtime:        runtime,
		Firmware:       fw,
		FS:             fs,
		Client:         cl,
		Reboot:         rb,
		ActiveInactive: aib,
		Rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:            time.Now,
		Log:            logrus.StandardLogger(),
	}
}

// inactiveSlot returns the installation set an upgrade should target,
// collapsing to slot 0 for single-slot devices (no active/inactive split).
func (ss *SharedState) inactiveSlot() (int, error) {
	if ss.Config.UpdateSetLayout < 2 {
		return 0, nil
	}
	return activeinactive.Inactive(ss.ActiveInactive)
}

// activeSlot returns the currently running installation set, collapsing to
// slot 0 for single-slot devices.
func (ss *SharedState) activeSlot() (int, error) {
	if ss.Config.UpdateSetLayout < 2 {
		return 0, nil
	}
	return ss.ActiveInactive.Active()
}

// persistRuntime calls Runtime.Persist and logs (never propagates) a
// failure, per spec.md §4.A: "Persistence failure is logged and surfaced to
// the caller but is not fatal mid-transition".
func (ss *SharedState) persistRuntime() {
	if err := ss.Runtime.Persist(); err != nil {
		ss.Log.WithError(err).Warn("failed to persist runtime settings")
	}
}
