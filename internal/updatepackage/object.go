/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package updatepackage

import (
	"encoding/json"
	"fmt"
)

// Mode is the closed sum of object variants an UpdatePackage may carry
// (spec.md §3). Test is used only for validation/testing, never emitted by
// a real server.
type Mode string

const (
	ModeCopy    Mode = "copy"
	ModeFlash   Mode = "flash"
	ModeImxkobs Mode = "imxkobs"
	ModeRaw     Mode = "raw"
	ModeTarball Mode = "tarball"
	ModeUbifs   Mode = "ubifs"
	ModeTest    Mode = "test"
)

var knownModes = map[Mode]bool{
	ModeCopy: true, ModeFlash: true, ModeImxkobs: true,
	ModeRaw: true, ModeTarball: true, ModeUbifs: true, ModeTest: true,
}

// Object is one manifest entry. Fields beyond the common ones are
// mode-specific; they are parsed as typed fields below and left for the
// installer package to interpret per variant, keeping this package ignorant of device-driver
// detail (spec.md §4.C: "the state code never mentions a concrete variant").
type Object struct {
	Mode       Mode   `json:"mode"`
	Sha256sum  string `json:"sha256sum"`
	Size       int64  `json:"size"`

	// Target is the destination path for copy/flash/raw/tarball objects and
	// the target volume for ubifs objects; imxkobs objects do not use it.
	Target string `json:"target,omitempty"`
	// Filename is the member name to extract for tarball objects.
	Filename string `json:"filename,omitempty"`
	// Compressed and RequiredUncompressedSize carry compression hints.
	Compressed               bool  `json:"compressed,omitempty"`
	RequiredUncompressedSize int64 `json:"required-uncompressed-size,omitempty"`
	// ChunkSize/Seek/Count/Skip/TruncateBeforeInstall are raw/flash offset
	// hints; carried verbatim for the installer package.
	ChunkSize             int64 `json:"chunk-size,omitempty"`
	Seek                   int64 `json:"seek,omitempty"`
	Count                  int64 `json:"count,omitempty"`
	Skip                   int64 `json:"skip,omitempty"`
	TruncateBeforeInstall  bool  `json:"truncate-before-install,omitempty"`
}

// ContentUID is the object's content address: its sha256sum.
func (o Object) ContentUID() string { return o.Sha256sum }

func (o *Object) UnmarshalJSON(data []byte) error {
	type alias Object
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("%w: %s", ErrParse, err)
	}
	if !knownModes[a.Mode] {
		return fmt.Errorf("%w: unsupported object mode %q", ErrParse, a.Mode)
	}
	*o = Object(a)
	return nil
}
