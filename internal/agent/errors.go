/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package agent

import "errors"

// Sentinel errors for the taxonomy in the error-handling design: transport,
// protocol, integrity, signature, applicability, installer and persistence
// faults are all distinguishable with errors.Is even after wrapping.
var (
	ErrTransport     = errors.New("transport error")
	ErrProtocol      = errors.New("invalid package")
	ErrIntegrity     = errors.New("sha256sum mismatch")
	ErrSignature     = errors.New("signature error")
	ErrApplicability = errors.New("package not applicable")
	ErrInstaller     = errors.New("installer error")
	ErrPersistence   = errors.New("failed to persist runtime settings")

	// ErrSignatureNotFound is the specific Signature-class failure raised
	// when the firmware demands a signature and the archive carries none.
	ErrSignatureNotFound = errors.New("signature not found")
)

// TransitionError is the classified error a state's Handle returns, or
// builds an agent.ErrorState from directly (spec.md §7: "all transition
// errors are caught by the stepper, converted into an Error state... the
// stepper never crashes on a transition error"). Fatal stands in for
// teacher's UpdateHubErrorReporter.IsFatal() — there it meant "exit the
// daemon"; here, since the stepper must never crash, it means "terminal for
// this cycle, no retry": ErrorState skips incrementing the retry counter for
// a Fatal cause and always lands back on Idle/Park just like a non-fatal
// one; the retry counter is the only difference between the two.
type TransitionError interface {
	error
	Fatal() bool
	Unwrap() error
}

type wrappedError struct {
	cause error
	fatal bool
}

func (e *wrappedError) Error() string { return e.cause.Error() }
func (e *wrappedError) Unwrap() error { return e.cause }
func (e *wrappedError) Fatal() bool   { return e.fatal }

// NewTransientError wraps err as a retryable TransitionError: the Error
// state increments the retry counter and returns to Idle/Park.
func NewTransientError(err error) TransitionError {
	if err == nil {
		err = errors.New("generic error")
	}
	return &wrappedError{cause: err, fatal: false}
}

// NewFatalError wraps err as a non-retryable TransitionError: ErrorState
// won't grow the retry counter for it, but still returns to Idle/Park like
// any other Error transition.
func NewFatalError(err error) TransitionError {
	if err == nil {
		err = errors.New("generic error")
	}
	return &wrappedError{cause: err, fatal: true}
}
