/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package agent

import "context"

// Idle waits with polling enabled (spec.md §4.D). Handle recomputes the
// time remaining until the next poll from runtime settings on every call:
// once due it hands off to Poll; until then it keeps re-arming itself for
// the full polling interval rather than busy-waiting.
type Idle struct{}

func (Idle) Name() string { return "idle" }

func (Idle) Capabilities() Capabilities {
	return Capabilities{Probe: true, RemoteInstall: true, LocalInstall: true}
}

func (Idle) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	if !ss.Config.PollingEnabled {
		return Park{}, Immediate(), nil
	}

	interval := ss.Config.PollingInterval
	if ss.Runtime.ExtraPollingInterval > 0 {
		interval = ss.Runtime.ExtraPollingInterval
	}

	now := ss.Now()
	nextPoll := ss.Runtime.LastPoll.Add(interval)

	if !nextPoll.After(now) {
		return Poll{}, Immediate(), nil
	}

	return Idle{}, Delayed(ss.Config.PollingInterval), nil
}

// Park is idle with polling disabled (spec.md §4.D): it never self-wakes.
type Park struct{}

func (Park) Name() string { return "park" }

func (Park) Capabilities() Capabilities {
	return Capabilities{Probe: true, RemoteInstall: true, LocalInstall: true}
}

func (Park) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	return Park{}, Never(), nil
}

// EntryPoint is the one-shot startup router (spec.md §4.D).
type EntryPoint struct{}

func (EntryPoint) Name() string { return "entry-point" }

func (EntryPoint) Capabilities() Capabilities { return Capabilities{} }

func (EntryPoint) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	if ss.Config.PollingEnabled {
		return Poll{}, Immediate(), nil
	}
	return Park{}, Immediate(), nil
}
