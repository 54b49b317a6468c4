// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package governance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/comitia/event"
)

const tracerName = "github.com/blinklabs-io/comitia/governance"

type EngineConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	EventBus     *event.EventBus
	// Oracle is required
	Oracle WeightOracle
	// Invoker receives resolutions whose target is neither blank nor the
	// engine itself. Without one such resolutions fail to execute.
	Invoker Invoker
	Clock   Clock
	Store   Store
	// Address is the engine's own address. Resolutions targeting it are
	// self-governance actions. Leave empty to disable them.
	Address      Address
	Rule         SessionRule
	Requirements map[Selector]ResolutionRequirement
	Quaestors    []Address
}

// Engine runs voting sessions. Every operation holds the engine mutex for
// its whole duration and either fully applies or leaves no trace.
type Engine struct {
	mu           sync.Mutex
	config       EngineConfig
	logger       *slog.Logger
	tracer       trace.Tracer
	metrics      *engineMetrics
	clock        Clock
	sessions     []Session
	proposals    []Proposal
	votes        map[ballotKey]time.Time
	secrets      map[ballotKey]Commitment
	rule         SessionRule
	requirements map[Selector]ResolutionRequirement
	quaestors    map[Address]bool
	observations []event.Event
	lastSeq      uint64
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Oracle == nil {
		return nil, errors.New("weight oracle must be provided")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Rule == (SessionRule{}) {
		cfg.Rule = DefaultSessionRule()
	}
	if err := cfg.Rule.Validate(); err != nil {
		return nil, err
	}
	for sel, req := range cfg.Requirements {
		if err := validateRequirement(sel, req); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		config:       cfg,
		logger:       cfg.Logger.With("component", "governance"),
		tracer:       otel.Tracer(tracerName),
		clock:        cfg.Clock,
		votes:        make(map[ballotKey]time.Time),
		secrets:      make(map[ballotKey]Commitment),
		rule:         cfg.Rule,
		requirements: maps.Clone(cfg.Requirements),
		quaestors:    make(map[Address]bool),
	}
	if e.requirements == nil {
		e.requirements = make(map[Selector]ResolutionRequirement)
	}
	for _, addr := range cfg.Quaestors {
		e.quaestors[addr] = true
	}
	if cfg.PromRegistry != nil {
		e.initMetrics(cfg.PromRegistry)
	}
	return e, nil
}

// Address returns the address under which the engine receives
// self-governance resolutions
func (e *Engine) Address() Address {
	return e.config.Address
}

// Restore loads persisted state into a fresh engine. Records must be
// ordered by id with no gaps.
func (e *Engine) Restore(state *Changeset) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) > 0 || len(e.proposals) > 0 || e.lastSeq > 0 {
		return errors.New("engine state already populated")
	}
	for i, s := range state.Sessions {
		if s.Id != uint64(i) {
			return fmt.Errorf("restore: session %d found at position %d", s.Id, i)
		}
	}
	for i, p := range state.Proposals {
		if p.Id != uint64(i) {
			return fmt.Errorf("restore: proposal %d found at position %d", p.Id, i)
		}
		if p.SessionId >= uint64(len(state.Sessions)) {
			return fmt.Errorf(
				"restore: proposal %d references unknown session %d",
				p.Id,
				p.SessionId,
			)
		}
	}
	if state.Rule != nil {
		if err := state.Rule.Validate(); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	e.apply(state)
	e.updateGauges()
	e.logger.Info(
		"restored governance state",
		"sessions", len(e.sessions),
		"proposals", len(e.proposals),
		"observations", len(e.observations),
	)
	return nil
}

// commit persists cs, applies it and publishes its observations. Nothing
// is applied when the store rejects the changeset.
func (e *Engine) commit(ctx context.Context, cs *Changeset) error {
	now := e.clock.Now()
	seq := e.lastSeq
	for i := range cs.Observations {
		seq++
		cs.Observations[i].Seq = seq
		cs.Observations[i].Timestamp = now
	}
	if e.config.Store != nil {
		if err := e.config.Store.Commit(ctx, cs); err != nil {
			return fmt.Errorf("commit changeset: %w", err)
		}
	}
	e.apply(cs)
	e.updateGauges()
	e.recordObservations(cs.Observations)
	if e.config.EventBus != nil {
		for _, evt := range cs.Observations {
			e.config.EventBus.Publish(evt.Type, evt)
		}
	}
	return nil
}

func (e *Engine) apply(cs *Changeset) {
	for _, s := range cs.Sessions {
		if s.Id < uint64(len(e.sessions)) {
			e.sessions[s.Id] = s
		} else {
			e.sessions = append(e.sessions, s)
		}
	}
	for _, p := range cs.Proposals {
		if p.Id < uint64(len(e.proposals)) {
			e.proposals[p.Id] = p
		} else {
			e.proposals = append(e.proposals, p)
		}
	}
	for _, v := range cs.Votes {
		e.votes[ballotKey{v.SessionId, v.Voter}] = v.VotedAt
	}
	for _, s := range cs.Secrets {
		key := ballotKey{s.SessionId, s.Voter}
		if s.Commitment.IsZero() {
			delete(e.secrets, key)
		} else {
			e.secrets[key] = s.Commitment
		}
	}
	if cs.Rule != nil {
		e.rule = *cs.Rule
	}
	for _, u := range cs.Requirements {
		if u.Remove {
			delete(e.requirements, u.Selector)
		} else {
			e.requirements[u.Selector] = u.Requirement
		}
	}
	for _, u := range cs.Quaestors {
		if u.Enabled {
			e.quaestors[u.Address] = true
		} else {
			delete(e.quaestors, u.Address)
		}
	}
	for _, evt := range cs.Observations {
		e.observations = append(e.observations, evt)
		if evt.Seq > e.lastSeq {
			e.lastSeq = evt.Seq
		}
	}
}

// startSpan opens a span for a public operation. The returned func ends
// the span and records the outcome in metrics.
func (e *Engine) startSpan(
	ctx context.Context,
	op string,
) (context.Context, func(error)) {
	ctx, span := e.tracer.Start(ctx, "governance."+op)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		e.recordOp(op, err)
	}
}

func (e *Engine) latestSession() (Session, bool) {
	if len(e.sessions) == 0 {
		return Session{}, false
	}
	return e.sessions[len(e.sessions)-1], true
}

// activeSession returns the latest session if it is in the wanted phase
func (e *Engine) activeSession(
	now time.Time,
	want SessionState,
) (Session, error) {
	sess, ok := e.latestSession()
	if !ok {
		return Session{}, fmt.Errorf(
			"%w: no session, want %s",
			ErrPhaseViolation,
			want,
		)
	}
	if state := sess.StateAt(now); state != want {
		return Session{}, fmt.Errorf(
			"%w: session %d is %s, want %s",
			ErrPhaseViolation,
			sess.Id,
			state,
			want,
		)
	}
	return sess, nil
}

func (e *Engine) proposal(id uint64) (Proposal, error) {
	if id >= uint64(len(e.proposals)) {
		return Proposal{}, fmt.Errorf("%w: %d", ErrUnknownProposal, id)
	}
	return e.proposals[id], nil
}

func (e *Engine) SessionsCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.sessions))
}

func (e *Engine) ProposalsCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.proposals))
}

func (e *Engine) Session(id uint64) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id >= uint64(len(e.sessions)) {
		return Session{}, fmt.Errorf("%w: %d", ErrUnknownSession, id)
	}
	return cloneSession(e.sessions[id]), nil
}

// CurrentSession returns the most recently scheduled session
func (e *Engine) CurrentSession() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.latestSession()
	return cloneSession(sess), ok
}

func (e *Engine) Proposal(id uint64) (Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.proposal(id)
	if err != nil {
		return Proposal{}, err
	}
	return cloneProposal(p), nil
}

// SessionStateAt returns the phase of a session at t. Unknown sessions
// are reported as CLOSED.
func (e *Engine) SessionStateAt(id uint64, t time.Time) SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id >= uint64(len(e.sessions)) {
		return SessionStateClosed
	}
	return e.sessions[id].StateAt(t)
}

// SessionRule returns the rule that the next scheduled session will use
func (e *Engine) SessionRule() SessionRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rule
}

// ResolutionRequirement returns the thresholds that the next scheduled
// session will apply to actions with the given selector
func (e *Engine) ResolutionRequirement(sel Selector) ResolutionRequirement {
	e.mu.Lock()
	defer e.mu.Unlock()
	if req, ok := e.requirements[sel]; ok {
		return req
	}
	return ResolutionRequirement{
		Majority: e.rule.DefaultMajority,
		Quorum:   e.rule.DefaultQuorum,
	}
}

func (e *Engine) IsQuaestor(addr Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quaestors[addr]
}

func (e *Engine) Quaestors() []Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := slices.Collect(maps.Keys(e.quaestors))
	slices.Sort(ret)
	return ret
}

// LastVote returns when voter cast a counted vote in the session
func (e *Engine) LastVote(sessionId uint64, voter Address) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.votes[ballotKey{sessionId, voter}]
	return t, ok
}

// SecretHash returns the pending commitment of voter in the session
func (e *Engine) SecretHash(
	sessionId uint64,
	voter Address,
) (Commitment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.secrets[ballotKey{sessionId, voter}]
	return c, ok
}

// Observations returns the observations with a sequence number greater
// than after, oldest first
func (e *Engine) Observations(after uint64) []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, _ := slices.BinarySearchFunc(
		e.observations,
		after+1,
		func(evt event.Event, seq uint64) int {
			switch {
			case evt.Seq < seq:
				return -1
			case evt.Seq > seq:
				return 1
			default:
				return 0
			}
		},
	)
	return slices.Clone(e.observations[idx:])
}

func cloneSession(s Session) Session {
	s.Requirements = maps.Clone(s.Requirements)
	return s
}

func cloneProposal(p Proposal) Proposal {
	p.ContentHash = slices.Clone(p.ContentHash)
	p.ResolutionAction = slices.Clone(p.ResolutionAction)
	return p
}
