/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package agent

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// RuntimeSettings is the persisted half of Shared State (spec.md §3): the
// last polling instant, retry counters, the applied package-uid and the
// installation set an in-flight upgrade targets. It is stored as a flat,
// human-editable key=value document and rewritten whole on every mutation
// that affects recovery, using write-temp-then-rename so a crash mid-write
// never corrupts the previous good copy.
type RuntimeSettings struct {
	fs   afero.Fs
	path string

	LastPoll             time.Time
	FirstPoll            time.Time
	ExtraPollingInterval time.Duration
	PollingRetries       int

	AppliedPackageUID      string
	UpgradeToInstallationSet int
}

const (
	keyLastPoll        = "LastPoll"
	keyFirstPoll       = "FirstPoll"
	keyExtraPollSecs   = "ExtraPollingIntervalSeconds"
	keyPollingRetries  = "PollingRetries"
	keyAppliedPkgUID   = "ApplliedPackageUID"
	keyUpgradeToSet    = "UpgradeToInstallationSet"
)

// LoadRuntimeSettings reads path (creating a zero-value RuntimeSettings if it
// does not exist yet, mirroring teacher's first-boot behaviour) off fs.
func LoadRuntimeSettings(fs afero.Fs, path string) (*RuntimeSettings, error) {
	rs := &RuntimeSettings{fs: fs, path: path, UpgradeToInstallationSet: -1}

	f, err := fs.Open(path)
	if os.IsNotExist(err) {
		return rs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opening runtime settings: %s", ErrPersistence, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch key {
		case keyLastPoll:
			rs.LastPoll = parseUnix(value)
		case keyFirstPoll:
			rs.FirstPoll = parseUnix(value)
		case keyExtraPollSecs:
			secs, _ := strconv.ParseInt(value, 10, 64)
			rs.ExtraPollingInterval = time.Duration(secs) * time.Second
		case keyPollingRetries:
			rs.PollingRetries, _ = strconv.Atoi(value)
		case keyAppliedPkgUID:
			rs.AppliedPackageUID = value
		case keyUpgradeToSet:
			rs.UpgradeToInstallationSet, _ = strconv.Atoi(value)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading runtime settings: %s", ErrPersistence, err)
	}

	return rs, nil
}

func parseUnix(v string) time.Time {
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// Persist atomically rewrites the backing file. Failure is returned to the
// caller, which logs it and moves on: spec.md §4.A requires persistence
// failure to be surfaced but non-fatal mid-transition.
func (rs *RuntimeSettings) Persist() error {
	values := map[string]string{
		keyLastPoll:       strconv.FormatInt(rs.LastPoll.Unix(), 10),
		keyFirstPoll:      strconv.FormatInt(rs.FirstPoll.Unix(), 10),
		keyExtraPollSecs:  strconv.FormatInt(int64(rs.ExtraPollingInterval/time.Second), 10),
		keyPollingRetries: strconv.Itoa(rs.PollingRetries),
		keyAppliedPkgUID:  rs.AppliedPackageUID,
		keyUpgradeToSet:   strconv.Itoa(rs.UpgradeToInstallationSet),
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, values[k])
	}

	tmpPath := rs.path + ".tmp"
	if err := afero.WriteFile(rs.fs, tmpPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("%w: writing temp file: %s", ErrPersistence, err)
	}

	if err := rs.fs.Rename(tmpPath, rs.path); err != nil {
		return fmt.Errorf("%w: renaming temp file: %s", ErrPersistence, err)
	}

	return nil
}
