/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package control implements Component E (spec.md §4.E): the actor that
// drives the state machine forward and serialises external control requests
// against it, grounded on teacher's Daemon.Run loop (updatehub/daemon.go)
// but reworked from a blocking for-loop into a message-driven actor so a
// control request can pre-empt a state that is mid-Handle.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/updatehub/agent/internal/agent"
	"github.com/updatehub/agent/internal/client"
	"github.com/updatehub/agent/internal/logging"
)

// Response is what every pre-emptible control message replies with:
// RequestAccepted(name) when the current state permitted the transition,
// InvalidState(name) when its Capabilities denied it (spec.md §4.E).
type Response struct {
	Accepted bool
	State    string
}

func accepted(name string) Response { return Response{Accepted: true, State: name} }
func invalid(name string) Response  { return Response{Accepted: false, State: name} }

func (r Response) String() string {
	if r.Accepted {
		return fmt.Sprintf("RequestAccepted(%s)", r.State)
	}
	return fmt.Sprintf("InvalidState(%s)", r.State)
}

// InfoSnapshot answers the Info control message.
type InfoSnapshot struct {
	State    string
	Version  string
	Config   agent.Config
	Firmware agent.FirmwareMetadata
	Runtime  agent.RuntimeSettings
	LastErr  error
}

type kind int

const (
	kindInfo kind = iota
	kindStep
	kindProbe
	kindLocalInstall
	kindRemoteInstall
	kindDownloadAbort
	kindLog
)

type message struct {
	kind           kind
	serverOverride string
	path           string
	url            string

	infoReply    chan InfoSnapshot
	stepReply    chan struct{}
	controlReply chan Response
	logReply     chan []string
}

// Actor owns the single live State and a pending stepper timer, and accepts
// control messages over an inbox channel (spec.md §4.E, §5: "single
// execution context... serialised by an inbox").
type Actor struct {
	ss      *agent.SharedState
	current agent.State
	version string
	ring    *logging.Ring

	inbox chan message
}

// NewActor wires an Actor starting from agent.EntryPoint{} (spec.md §4.D).
func NewActor(ss *agent.SharedState, version string, ring *logging.Ring) *Actor {
	return &Actor{
		ss:      ss,
		current: agent.EntryPoint{},
		version: version,
		ring:    ring,
		inbox:   make(chan message, 8),
	}
}

// CurrentStateName reports the live state's name. Intended for tests; Info
// is the control-message equivalent for live callers.
func (a *Actor) CurrentStateName() string { return a.current.Name() }

type handleResult struct {
	next agent.State
	step agent.StepTransition
	err  error
}

// Run drives the state machine until ctx is cancelled (spec.md §4.E, §5).
// Each iteration runs the current state's Handle in its own goroutine so
// that a pre-emptible control message can cancel it mid-flight (observed at
// Handle's own suspension points, e.g. Download's between-object check);
// control messages the current state denies are answered without disturbing
// the in-flight Handle.
func (a *Actor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		prev := a.current
		a.report("leaving", prev)

		handleCtx, cancel := context.WithCancel(ctx)
		done := make(chan handleResult, 1)

		go func(s agent.State) {
			next, step, err := s.Handle(handleCtx, a.ss)
			done <- handleResult{next: next, step: step, err: err}
		}(a.current)

	drainInbox:
		for {
			select {
			case <-ctx.Done():
				cancel()
				<-done
				return

			case res := <-done:
				cancel()
				step := res.step
				a.current = a.resolveHandleResult(prev, res)
				if res.err != nil {
					// res.step came from the failed Handle call and carries no
					// meaning here; the new current is agent.ErrorState, whose
					// own Handle runs next iteration to decide Idle vs Park, so
					// don't make Run wait before giving it the chance to.
					step = agent.Immediate()
				}
				a.report("entering", a.current)
				a.wait(ctx, step)
				break drainInbox

			case msg := <-a.inbox:
				// serve already reports "entering" for every message kind that
				// transitions a.current (kindStep adopts Handle's own result;
				// kindProbe/kindLocalInstall/kindRemoteInstall/kindDownloadAbort
				// override it directly).
				if a.serveLive(msg, done, cancel) {
					break drainInbox
				}
			}
		}
	}
}

// resolveHandleResult turns a Handle outcome into the next live state. A
// successful Handle's own next state is adopted as-is; a failed one is
// routed through agent.ErrorState exactly like every other failure path
// (spec.md §4.D), carrying prev's in-flight package-uid (if any) and
// classifying res.err as fatal when Handle didn't already hand back a
// agent.TransitionError of its own.
func (a *Actor) resolveHandleResult(prev agent.State, res handleResult) agent.State {
	if res.err == nil {
		return res.next
	}

	te, ok := res.err.(agent.TransitionError)
	if !ok {
		te = agent.NewFatalError(res.err)
	}
	return agent.NewErrorState(te, agent.PackageUIDOf(prev))
}

// report fires the best-effort entering/leaving Report call SPEC_FULL.md
// promises around every transition (grounded on teacher's daemon.Run calling
// ReportCurrentState every loop iteration), covering every named state
// including "error" uniformly rather than as a state-local special case.
// Best-effort: a failure is logged at Debug and never affects the state
// machine.
func (a *Actor) report(action string, s agent.State) {
	event := client.ReportEvent{
		Action:     action,
		State:      s.Name(),
		PackageUID: agent.PackageUIDOf(s),
	}
	go func() {
		if err := a.ss.Client.Report(context.Background(), a.ss.Config.ServerAddress, event); err != nil {
			a.ss.Log.WithField("state", s.Name()).WithError(err).Debug("failed to report state transition")
		}
	}()
}

// serveLive answers one control message while current's Handle is running
// in the background on done/cancel. It returns true when the message caused
// a transition (superseding, or in Step's case adopting, the in-flight
// Handle), telling Run to restart its loop from the new current state.
func (a *Actor) serveLive(msg message, done chan handleResult, cancel context.CancelFunc) bool {
	preempt := func() *handleResult {
		// Step adopts the in-flight Handle's own outcome, so it waits for
		// Handle to return instead of cancelling it first.
		if msg.kind != kindStep {
			cancel()
		}
		res := <-done
		cancel()
		return &res
	}
	return a.serve(msg, preempt)
}

// serveIdle answers one control message received while the actor is
// between transitions (waiting out a Delayed step or blocked in Never) —
// there is no in-flight Handle to cancel or adopt.
func (a *Actor) serveIdle(msg message) bool {
	return a.serve(msg, func() *handleResult { return nil })
}

// serve holds the control-message contract common to both call sites
// (spec.md §4.E): each handler consults the current state's Capabilities
// and either answers directly (Info, Log) or transitions when permitted,
// replying InvalidState otherwise. preempt gives up any in-flight Handle
// (returning its outcome, or nil when none is in flight) and is only called
// for messages that act on the current state.
func (a *Actor) serve(msg message, preempt func() *handleResult) bool {
	caps := a.current.Capabilities()

	switch msg.kind {
	case kindInfo:
		msg.infoReply <- InfoSnapshot{
			State:    a.current.Name(),
			Version:  a.version,
			Config:   a.ss.Config,
			Firmware: a.ss.Firmware,
			Runtime:  *a.ss.Runtime,
			LastErr:  a.ss.LastTransitionErr,
		}
		return false

	case kindLog:
		if a.ring != nil {
			msg.logReply <- a.ring.Snapshot()
		} else {
			msg.logReply <- nil
		}
		return false

	case kindStep:
		// Force one Handle invocation to land now: let an in-flight Handle
		// finish naturally and adopt its own result (Step never overrides
		// what the current state decided, it just stops waiting for it).
		if res := preempt(); res != nil {
			prev := a.current
			a.current = a.resolveHandleResult(prev, *res)
			a.report("entering", a.current)
		}
		msg.stepReply <- struct{}{}
		return true

	case kindProbe:
		if !caps.Probe {
			msg.controlReply <- invalid(a.current.Name())
			return false
		}
		name := a.current.Name()
		preempt()
		a.current = agent.Probe{ServerOverride: msg.serverOverride}
		a.report("entering", a.current)
		msg.controlReply <- accepted(name)
		return true

	case kindLocalInstall:
		if !caps.LocalInstall {
			msg.controlReply <- invalid(a.current.Name())
			return false
		}
		name := a.current.Name()
		preempt()
		a.current = agent.NewPrepareLocalInstall(msg.path)
		a.report("entering", a.current)
		msg.controlReply <- accepted(name)
		return true

	case kindRemoteInstall:
		if !caps.RemoteInstall {
			msg.controlReply <- invalid(a.current.Name())
			return false
		}
		name := a.current.Name()
		preempt()
		a.current = agent.NewDirectDownload(msg.url)
		a.report("entering", a.current)
		msg.controlReply <- accepted(name)
		return true

	case kindDownloadAbort:
		if !caps.DownloadAbort {
			msg.controlReply <- invalid(a.current.Name())
			return false
		}
		name := a.current.Name()
		preempt()
		a.current = agent.Idle{}
		a.report("entering", a.current)
		msg.controlReply <- accepted(name)
		return true
	}

	return false
}

// wait blocks until step's delay elapses or ctx is cancelled, implementing
// Immediate (yield once), Delayed (timer) and Never (block until a control
// message arrives). Non-transitioning messages (Info, Log, a denied
// pre-empt) are answered without ending the wait; a transitioning message
// ends it immediately so Run can pick up the new current state.
func (a *Actor) wait(ctx context.Context, step agent.StepTransition) {
	if step.IsImmediate() {
		return
	}

	var timerC <-chan time.Time
	if !step.IsNever() {
		t := time.NewTimer(step.Delay())
		defer t.Stop()
		timerC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timerC:
			return
		case msg := <-a.inbox:
			if a.serveIdle(msg) {
				return
			}
		}
	}
}

// Info requests a state/config/runtime snapshot.
func (a *Actor) Info(ctx context.Context) (InfoSnapshot, error) {
	reply := make(chan InfoSnapshot, 1)
	select {
	case a.inbox <- message{kind: kindInfo, infoReply: reply}:
	case <-ctx.Done():
		return InfoSnapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return InfoSnapshot{}, ctx.Err()
	}
}

// Log requests the recent in-memory log ring.
func (a *Actor) Log(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	select {
	case a.inbox <- message{kind: kindLog, logReply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case lines := <-reply:
		return lines, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Step forces one Handle invocation to land immediately, regardless of the
// current state's StepTransition (spec.md §4.E).
func (a *Actor) Step(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	select {
	case a.inbox <- message{kind: kindStep, stepReply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Probe requests an immediate probe, honouring serverOverride when non-empty.
func (a *Actor) Probe(ctx context.Context, serverOverride string) (Response, error) {
	return a.control(ctx, message{kind: kindProbe, serverOverride: serverOverride})
}

// LocalInstall requests a transition to PrepareLocalInstall for path.
func (a *Actor) LocalInstall(ctx context.Context, path string) (Response, error) {
	return a.control(ctx, message{kind: kindLocalInstall, path: path})
}

// RemoteInstall requests a transition to DirectDownload for url.
func (a *Actor) RemoteInstall(ctx context.Context, url string) (Response, error) {
	return a.control(ctx, message{kind: kindRemoteInstall, url: url})
}

// DownloadAbort requests a transition back to Idle from a download-side state.
func (a *Actor) DownloadAbort(ctx context.Context) (Response, error) {
	return a.control(ctx, message{kind: kindDownloadAbort})
}

func (a *Actor) control(ctx context.Context, msg message) (Response, error) {
	reply := make(chan Response, 1)
	msg.controlReply = reply
	select {
	case a.inbox <- msg:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
