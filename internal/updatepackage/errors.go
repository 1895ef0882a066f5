/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package updatepackage

import "errors"

// ErrParse marks structural manifest faults (spec.md §7, "Protocol"):
// malformed JSON or an unknown object mode. Slot-count and slot-length
// faults are reported with ErrSlotCount and ErrSlotMismatch instead.
var ErrParse = errors.New("invalid package")

// ErrSlotMismatch is raised when the two per-slot object lists differ in
// length, violating the "objects[i].len() is identical for all i" invariant.
var ErrSlotMismatch = errors.New("object lists for each installation set must have the same length")

// ErrSlotCount strengthens that invariant with the concrete 1-or-2 bound
// teacher's GetIndexOfObjectToBeInstalled enforces (see SPEC_FULL.md §4).
var ErrSlotCount = errors.New("update package must declare 1 or 2 installation-set object lists")
