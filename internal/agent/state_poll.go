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

// PollJitterMax bounds the randomised extra delay Poll adds before probing,
// spreading fleet load across a window instead of a single instant
// (spec.md §4.D).
const PollJitterMax = 30 * time.Second

// Poll computes when to probe using a bounded randomised extra delay
// (spec.md §4.D).
type Poll struct{}

func (Poll) Name() string { return "poll" }

func (Poll) Capabilities() Capabilities { return Capabilities{Probe: true} }

func (Poll) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	if ss.Runtime.FirstPoll.IsZero() {
		ss.Runtime.FirstPoll = ss.Now()
	}

	jitter := time.Duration(ss.Rand.Int63n(int64(PollJitterMax)))

	return Probe{}, Delayed(jitter), nil
}
