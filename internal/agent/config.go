/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package agent

import "time"

// Config is the immutable daemon configuration (spec.md §3). It is loaded
// once at startup by internal/config and only replaced wholesale by an
// explicit administrative reload — nothing in internal/agent mutates it.
type Config struct {
	PollingInterval time.Duration
	PollingEnabled  bool

	DownloadDir string
	ListenSocket string

	ServerAddress string

	// PublicKeyPath, when non-empty, is the path to the RSA public key used
	// to validate package signatures (spec.md §3, "Signature").
	PublicKeyPath string

	// UpdateSetLayout is the number of installation sets (slots) the device
	// exposes: 1 (no active/inactive split) or 2 (A/B). Teacher's
	// GetIndexOfObjectToBeInstalled enforces this same bound.
	UpdateSetLayout int

	// MaxPollingRetries caps the Error-state retry counter: once it is
	// reached, ErrorState stops incrementing Runtime.PollingRetries and
	// clears Runtime.ExtraPollingInterval. The retry counter does not change
	// the delay before the next poll; there is no exponential backoff
	// between Error and the next Poll.
	MaxPollingRetries int
}

// DefaultUpdateSetLayout matches the common A/B device layout.
const DefaultUpdateSetLayout = 2
