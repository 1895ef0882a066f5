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
	"time"
)

// stepKind is the closed set of ways a state can ask to be rescheduled
// (spec.md §3, "Step Transition").
type stepKind int

const (
	stepNever stepKind = iota
	stepImmediate
	stepDelayed
)

// StepTransition is the value Handle returns alongside the next state: how
// soon the stepper should invoke that next state's Handle.
type StepTransition struct {
	kind  stepKind
	delay time.Duration
}

// Immediate schedules the next Handle as soon as the event loop idles.
func Immediate() StepTransition { return StepTransition{kind: stepImmediate} }

// Delayed schedules the next Handle after a wall-clock delay.
func Delayed(d time.Duration) StepTransition { return StepTransition{kind: stepDelayed, delay: d} }

// Never means the state does not self-schedule; only an external control
// message will awaken it.
func Never() StepTransition { return StepTransition{kind: stepNever} }

// IsNever reports whether the stepper must wait for a control message.
func (s StepTransition) IsNever() bool { return s.kind == stepNever }

// IsImmediate reports whether the next Handle should run as soon as possible.
func (s StepTransition) IsImmediate() bool { return s.kind == stepImmediate }

// Delay returns the configured delay; zero for Immediate and Never.
func (s StepTransition) Delay() time.Duration { return s.delay }

// Capabilities is the capability set each state declares for the control
// actor (spec.md §4.D: can_run_remote_install, can_run_local_install, plus
// the Probe/DownloadAbort equivalents spec.md §4.E's control table implies).
type Capabilities struct {
	Probe         bool
	RemoteInstall bool
	LocalInstall  bool
	DownloadAbort bool
}

// State is the capability set every state variant implements (spec.md §4.D).
type State interface {
	Name() string
	Capabilities() Capabilities
	Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error)
}

// reportableState is implemented by states that carry an in-flight
// UpdatePackage and so can be reported to the server by package-uid
// (teacher's ReportableState interface).
type reportableState interface {
	packageUID() string
}

// PackageUIDOf returns the package-uid s carries for a /report event
// (spec.md §6's package_uid field), or "" when s has none. Exported so
// internal/control can attach it to the entering/leaving reports it sends
// around every transition without needing to know which state variants are
// reportableState.
func PackageUIDOf(s State) string {
	if r, ok := s.(reportableState); ok {
		return r.packageUID()
	}
	return ""
}
