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
)

// ErrorState is the terminal landing point for every failed transition
// (spec.md §4.D, §7). It logs the cause, updates the retry counter only
// when the cause is Transient, and returns to Idle or Park depending on
// whether polling is enabled — mirroring teacher's ExitState/ErrorState
// pair collapsed into one type, with the TransitionError/Fatal() distinction
// standing in for teacher's "exit the daemon" path: per spec.md §7's
// propagation policy the stepper never crashes, so Fatal here means
// "terminal for this cycle, no retry" rather than process exit. Reporting
// the failure to the server is the actor's job, not this state's: control.Actor
// wraps every Handle call in a best-effort entering/leaving Report pair
// (SUPPLEMENTED FEATURES in SPEC_FULL.md), so "error" is reported exactly
// like any other state name, package-uid included.
type ErrorState struct {
	cause      TransitionError
	packageUID string
}

// NewErrorState builds an ErrorState from a TransitionError, mirroring
// teacher's NewErrorState(updateMetadata, err UpdateHubErrorReporter). Used
// by states that already classify their own cause, and by the stepper when
// a Handle call returns a bare error instead of transitioning into
// ErrorState itself (spec.md §7: "all transition errors are caught by the
// stepper, converted into an Error state").
func NewErrorState(cause TransitionError, packageUID string) ErrorState {
	if cause == nil {
		cause = NewFatalError(errors.New("generic error"))
	}
	return ErrorState{cause: cause, packageUID: packageUID}
}

func (ErrorState) Name() string { return "error" }

func (ErrorState) Capabilities() Capabilities { return Capabilities{} }

func (e ErrorState) packageUID() string { return e.packageUID }

func (e ErrorState) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	ss.LastTransitionErr = e.cause

	fields := ss.Log.WithField("error", e.cause.Error())
	if e.packageUID != "" {
		fields = fields.WithField("package-uid", e.packageUID)
	}
	fields.Warn("transition failed")

	if !e.cause.Fatal() {
		ss.Runtime.PollingRetries++
		if ss.Config.MaxPollingRetries > 0 && ss.Runtime.PollingRetries >= ss.Config.MaxPollingRetries {
			// Retry budget exhausted: stop growing the counter and drop the
			// server-supplied extra delay, falling back to the base polling
			// interval (agent.Config.MaxPollingRetries's documented bound).
			ss.Runtime.PollingRetries = ss.Config.MaxPollingRetries
			ss.Runtime.ExtraPollingInterval = 0
		}
	}
	ss.persistRuntime()

	if !ss.Config.PollingEnabled {
		return Park{}, Immediate(), nil
	}
	return Idle{}, Immediate(), nil
}
