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
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/updatehub/agent/internal/client"
	"github.com/updatehub/agent/internal/updatepackage"
)

// probeMaxTries bounds the transient-failure retries a single Probe Handle
// absorbs itself before falling through to ErrorState's own slower
// poll-interval retry (spec.md §4.D); grounded on doublezero's pinger
// getCurrentEpoch helper.
const probeMaxTries = 3

// Probe sends an upgrades request to the server carrying product-uid,
// version, hardware, device-identity and device-attributes (spec.md §4.D,
// §6). A 404/204 means no update; a 200 carries a manifest and the
// UH-Signature header; anything else is a Transport failure.
type Probe struct {
	// ServerOverride, when non-empty, replaces Config.ServerAddress for this
	// probe only — the Probe control message's optional payload (spec.md
	// §4.E).
	ServerOverride string
}

func (Probe) Name() string { return "probe" }

func (Probe) Capabilities() Capabilities { return Capabilities{} }

func (p Probe) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	req := client.ProbeRequest{
		ProductUID:       ss.Firmware.ProductUID,
		Version:          ss.Runtime.AppliedPackageUID,
		Hardware:         ss.Firmware.Hardware,
		DeviceIdentity:   ss.Firmware.DeviceIdentity,
		DeviceAttributes: ss.Firmware.DeviceAttributes,
	}

	serverAddress := ss.Config.ServerAddress
	if p.ServerOverride != "" {
		serverAddress = p.ServerOverride
	}

	attempt := 0
	result, err := backoff.Retry(ctx, func() (*client.ProbeResult, error) {
		if attempt > 0 {
			ss.Log.WithField("attempt", attempt).Debug("retrying probe after transient failure")
		}
		attempt++
		return ss.Client.Probe(ctx, serverAddress, req)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(probeMaxTries))
	if err != nil {
		ss.Runtime.PollingRetries++
		ss.persistRuntime()
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrTransport, err))}, Immediate(), nil
	}

	ss.Runtime.LastPoll = ss.Now()
	if result.AddExtraPollMS > 0 {
		ss.Runtime.ExtraPollingInterval = time.Duration(result.AddExtraPollMS) * time.Millisecond
	} else {
		ss.Runtime.ExtraPollingInterval = 0
	}

	if !result.HasUpdate {
		ss.Runtime.PollingRetries = 0
		ss.persistRuntime()
		return Idle{}, Immediate(), nil
	}

	pkg, err := updatepackage.Parse(result.ManifestBytes)
	if err != nil {
		ss.persistRuntime()
		return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrProtocol, err))}, Immediate(), nil
	}

	ss.persistRuntime()

	return Validation{pkg: pkg, signatureB64: result.SignatureB64}, Immediate(), nil
}
