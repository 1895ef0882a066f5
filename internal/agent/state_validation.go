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

	"github.com/updatehub/agent/internal/updatepackage"
)

// Validation checks hardware applicability, re-install rules and the
// package signature (spec.md §4.D). A mismatch on hardware or an
// already-applied package is an Applicability outcome: spec.md §7 calls
// this "non-error", so it returns straight to Idle without passing through
// Error. A missing/invalid signature is a Signature-class failure: terminal,
// routed through Error, no retry.
type Validation struct {
	pkg          *updatepackage.UpdatePackage
	signatureB64 string
}

func (Validation) Name() string { return "validation" }

func (Validation) Capabilities() Capabilities { return Capabilities{} }

func (v Validation) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	if !ss.Firmware.SupportsHardware(v.pkg.SupportedHardware) {
		ss.Log.WithField("hardware", ss.Firmware.Hardware).Info("package not applicable: unsupported hardware")
		return Idle{}, Immediate(), nil
	}

	packageUID := v.pkg.PackageUID()
	if packageUID == ss.Runtime.AppliedPackageUID {
		ss.Log.WithField("package-uid", packageUID).Info("package already applied")
		return Idle{}, Immediate(), nil
	}

	if len(ss.Firmware.PubKeyPEM) > 0 {
		if v.signatureB64 == "" {
			return ErrorState{cause: NewFatalError(ErrSignatureNotFound), packageUID: packageUID}, Immediate(), nil
		}

		sig, err := updatepackage.SignatureFromBase64(v.signatureB64)
		if err != nil {
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrSignature, err)), packageUID: packageUID}, Immediate(), nil
		}

		if err := sig.Validate(ss.Firmware.PubKeyPEM, v.pkg); err != nil {
			return ErrorState{cause: NewFatalError(fmt.Errorf("%w: %s", ErrSignature, err)), packageUID: packageUID}, Immediate(), nil
		}
	}

	if ss.Config.UpdateSetLayout == 2 && len(v.pkg.Objects) != 2 {
		return ErrorState{
			cause:      NewFatalError(fmt.Errorf("%w: package has %d object lists, device has 2 installation sets", ErrProtocol, len(v.pkg.Objects))),
			packageUID: packageUID,
		}, Immediate(), nil
	}

	return PrepareDownload{pkg: v.pkg}, Immediate(), nil
}
