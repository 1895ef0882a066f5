/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package client implements the update-server HTTP API (spec.md §6): the
// upgrades probe, object download (with Range-based resume) and the
// best-effort report endpoint. This is the external collaborator spec.md §1
// calls out of core scope; internal/agent only depends on the Client
// interface below.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const (
	contentType    = "application/json"
	apiContentType = "application/vnd.updatehub-v1+json"
)

// ProbeRequest is the body of POST /upgrades (spec.md §6).
type ProbeRequest struct {
	ProductUID       string            `json:"product-uid"`
	Version          string            `json:"version"`
	Hardware         string            `json:"hardware"`
	DeviceIdentity   map[string]string `json:"device-identity"`
	DeviceAttributes map[string]string `json:"device-attributes"`
}

// ProbeResult is what Probe returns. On a 200 response it carries the raw
// manifest bytes (never re-serialised — PackageUID and signature validation
// both need the exact bytes) and the UH-Signature header; on a 404/204
// response it carries the Add-Extra-Poll hint (SPEC_FULL.md §4, supplemented
// from teacher's Add-Extra-Poll header).
type ProbeResult struct {
	HasUpdate      bool
	ManifestBytes  []byte
	SignatureB64   string
	AddExtraPollMS int64
}

// ReportEvent is the body of POST /report (spec.md §6, SPEC_FULL.md §4:
// entering/leaving pairs around every transition).
type ReportEvent struct {
	Action     string `json:"action"` // "entering" | "leaving"
	State      string `json:"state_name"`
	PackageUID string `json:"package_uid,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Client is the interface internal/agent depends on.
type Client interface {
	Probe(ctx context.Context, baseURL string, req ProbeRequest) (*ProbeResult, error)
	FetchObject(ctx context.Context, baseURL, productUID, packageUID, sha256sum string, rangeStart int64) (io.ReadCloser, int64, error)
	// FetchURL downloads an arbitrary URL verbatim — used by the
	// DirectDownload state for a remote-install request, which carries a
	// full URL rather than a product/package/object triple.
	FetchURL(ctx context.Context, url string) (io.ReadCloser, int64, error)
	Report(ctx context.Context, baseURL string, event ReportEvent) error
}

// HTTPClient is the real Client implementation, grounded on teacher's
// client.UpdateClient (client/update.go), extended with Report and
// Range-based resume.
type HTTPClient struct {
	HTTP *http.Client
}

// NewHTTPClient returns an HTTPClient using http.DefaultClient when hc is nil.
func NewHTTPClient(hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{HTTP: hc}
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Request-Id", uuid.NewString())
	return c.HTTP.Do(req)
}

// Probe sends an upgrades request carrying product-uid, version, hardware,
// device-identity and device-attributes (spec.md §4.D, Probe state).
func (c *HTTPClient) Probe(ctx context.Context, baseURL string, pr ProbeRequest) (*ProbeResult, error) {
	body, err := json.Marshal(pr)
	if err != nil {
		return nil, fmt.Errorf("encoding probe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/upgrades", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building probe request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Api-Content-Type", apiContentType)

	res, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("probe request failed: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusNotFound, http.StatusNoContent:
		result := &ProbeResult{HasUpdate: false}
		if v := res.Header.Get("Add-Extra-Poll"); v != "" {
			if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
				result.AddExtraPollMS = ms
			}
		}
		return result, nil
	case http.StatusOK:
		manifest, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("reading probe response body: %w", err)
		}
		return &ProbeResult{
			HasUpdate:     true,
			ManifestBytes: manifest,
			SignatureB64:  res.Header.Get("UH-Signature"),
		}, nil
	default:
		return nil, fmt.Errorf("unexpected probe response status %d", res.StatusCode)
	}
}

// FetchObject streams a single object's bytes, optionally resuming from
// rangeStart via an HTTP Range header (spec.md §4.D, Download state).
func (c *HTTPClient) FetchObject(ctx context.Context, baseURL, productUID, packageUID, sha256sum string, rangeStart int64) (io.ReadCloser, int64, error) {
	url := fmt.Sprintf("%s/products/%s/packages/%s/objects/%s", baseURL, productUID, packageUID, sha256sum)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("building fetch request: %w", err)
	}
	if rangeStart > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", rangeStart))
	}

	res, err := c.do(req)
	if err != nil {
		return nil, -1, fmt.Errorf("fetch request failed: %w", err)
	}

	switch res.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return res.Body, res.ContentLength, nil
	default:
		res.Body.Close()
		return nil, -1, fmt.Errorf("unexpected fetch response status %d", res.StatusCode)
	}
}

// FetchURL downloads url verbatim, for RemoteInstall's direct-download path.
func (c *HTTPClient) FetchURL(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("building fetch request: %w", err)
	}

	res, err := c.do(req)
	if err != nil {
		return nil, -1, fmt.Errorf("fetch request failed: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, -1, fmt.Errorf("unexpected fetch response status %d", res.StatusCode)
	}

	return res.Body, res.ContentLength, nil
}

// Report delivers a best-effort state-change notification (spec.md §6).
// Callers must not treat a Report failure as fatal to the transition.
func (c *HTTPClient) Report(ctx context.Context, baseURL string, event ReportEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding report event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/report", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building report request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.do(req)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	defer res.Body.Close()

	return nil
}
