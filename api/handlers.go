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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/comitia/event"
	"github.com/blinklabs-io/comitia/governance"
)

const maxRequestBodySize = 1 << 20

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "Bad Request", message)
}

// statusForCode maps engine error codes to HTTP status codes
func statusForCode(code governance.ErrorCode) int {
	switch code {
	case governance.CodeUnknownProposal, governance.CodeUnknownSession:
		return http.StatusNotFound
	case governance.CodeNotAuthorized:
		return http.StatusForbidden
	case governance.CodeSecretMismatch,
		governance.CodeInvalidBallot,
		governance.CodeInvalidRule:
		return http.StatusBadRequest
	case governance.CodeExecutionFailed:
		return http.StatusFailedDependency
	case governance.CodePhaseViolation,
		governance.CodeDuplicateVote,
		governance.CodeQuotaExceeded,
		governance.CodeAlreadyExecuted,
		governance.CodeExpired,
		governance.CodeNotApproved:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError reports a failed engine call. Precondition failures
// carry their code as the error string.
func (s *Server) writeEngineError(
	w http.ResponseWriter,
	op string,
	err error,
) {
	code := governance.CodeOf(err)
	if code == "" {
		s.logger.Error(
			"failed to "+op,
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to "+op,
		)
		return
	}
	s.logger.Debug(
		op+" rejected",
		"code", code,
		"error", err,
	)
	writeError(w, statusForCode(code), string(code), err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodeHex accepts hex with or without a 0x prefix
func decodeHex(field string, s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	ret, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return ret, nil
}

func pathId(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func ruleResponse(rule governance.SessionRule) RuleResponse {
	return RuleResponse{
		CampaignPeriod:       int64(rule.CampaignPeriod / time.Second),
		VotingPeriod:         int64(rule.VotingPeriod / time.Second),
		RevealPeriod:         int64(rule.RevealPeriod / time.Second),
		GracePeriod:          int64(rule.GracePeriod / time.Second),
		MaxProposals:         rule.MaxProposals,
		MaxProposalsQuaestor: rule.MaxProposalsQuaestor,
		NewProposalThreshold: rule.NewProposalThreshold,
		DefaultMajority:      rule.DefaultMajority,
		DefaultQuorum:        rule.DefaultQuorum,
	}
}

func (s *Server) sessionResponse(sess governance.Session) SessionResponse {
	return SessionResponse{
		Id:              sess.Id,
		StartAt:         sess.StartAt.Unix(),
		State:           sess.StateAt(s.config.Clock.Now()).String(),
		ProposalsCount:  sess.ProposalsCount,
		FirstProposalId: sess.FirstProposalId,
		Participation:   sess.Participation,
		Rule:            ruleResponse(sess.Rule),
	}
}

func proposalResponse(p governance.Proposal) ProposalResponse {
	return ProposalResponse{
		Id:               p.Id,
		SessionId:        p.SessionId,
		Name:             p.Name,
		Url:              p.Url,
		ContentHash:      hex.EncodeToString(p.ContentHash),
		ProposedBy:       string(p.ProposedBy),
		ResolutionTarget: string(p.ResolutionTarget),
		ResolutionAction: hex.EncodeToString(p.ResolutionAction),
		Weight:           p.Weight,
		Approvals:        p.Approvals,
		Executed:         p.Executed,
		Cancelled:        p.Cancelled,
	}
}

func observationResponse(evt event.Event) ObservationResponse {
	return ObservationResponse{
		Seq:       evt.Seq,
		Type:      string(evt.Type),
		Timestamp: evt.Timestamp.Unix(),
		Data:      evt.Data,
	}
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleRule handles GET /api/v0/rule and returns the rule applied to
// newly scheduled sessions.
func (s *Server) handleRule(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, ruleResponse(s.engine.SessionRule()))
}

// handleRequirement handles GET /api/v0/requirements/{selector}.
func (s *Server) handleRequirement(
	w http.ResponseWriter,
	r *http.Request,
) {
	sel, err := governance.ParseSelector(r.PathValue("selector"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	req := s.engine.ResolutionRequirement(sel)
	writeJSON(w, http.StatusOK, RequirementResponse{
		Selector: sel.String(),
		Majority: req.Majority,
		Quorum:   req.Quorum,
	})
}

// handleQuaestors handles GET /api/v0/quaestors.
func (s *Server) handleQuaestors(
	w http.ResponseWriter,
	_ *http.Request,
) {
	quaestors := s.engine.Quaestors()
	ret := make([]string, 0, len(quaestors))
	for _, q := range quaestors {
		ret = append(ret, string(q))
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleSessions handles GET /api/v0/sessions with pagination.
func (s *Server) handleSessions(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	total := s.engine.SessionsCount()
	start, end := params.Window(total)
	ret := make([]SessionResponse, 0, end-start)
	for pos := start; pos < end; pos++ {
		sess, err := s.engine.Session(params.Index(pos, total))
		if err != nil {
			s.writeEngineError(w, "get session", err)
			return
		}
		ret = append(ret, s.sessionResponse(sess))
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, ret)
}

// handleSession handles GET /api/v0/sessions/{id}.
func (s *Server) handleSession(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	sess, err := s.engine.Session(id)
	if err != nil {
		s.writeEngineError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

// handleSessionState handles GET /api/v0/sessions/{id}/state. The
// optional "at" query value is a Unix timestamp.
func (s *Server) handleSessionState(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	at := s.config.Clock.Now()
	if atParam := r.URL.Query().Get("at"); atParam != "" {
		secs, err := strconv.ParseInt(atParam, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid at")
			return
		}
		at = time.Unix(secs, 0).UTC()
	}
	writeJSON(w, http.StatusOK, SessionStateResponse{
		Id:    id,
		At:    at.Unix(),
		State: s.engine.SessionStateAt(id, at).String(),
	})
}

// handleProposal handles GET /api/v0/proposals/{id}.
func (s *Server) handleProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	p, err := s.engine.Proposal(id)
	if err != nil {
		s.writeEngineError(w, "get proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p))
}

// handleApproved handles GET /api/v0/proposals/{id}/approved.
func (s *Server) handleApproved(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	tally, err := s.engine.Tally(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, "evaluate proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, ApprovalResponse{
		Id:            id,
		Approved:      tally.Approved(),
		Approvals:     tally.Approvals,
		Participation: tally.Participation,
		TotalSupply:   tally.TotalSupply,
		Majority:      tally.Requirement.Majority,
		Quorum:        tally.Requirement.Quorum,
		QuorumMet:     tally.QuorumMet,
		MajorityMet:   tally.MajorityMet,
	})
}

// handleObservations handles GET /api/v0/observations. The optional
// "after" query value skips observations up to that sequence number.
func (s *Server) handleObservations(
	w http.ResponseWriter,
	r *http.Request,
) {
	var after uint64
	if afterParam := r.URL.Query().Get("after"); afterParam != "" {
		var err error
		after, err = strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid after")
			return
		}
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	evts := s.engine.Observations(after)
	total := uint64(len(evts))
	start, end := params.Window(total)
	ret := make([]ObservationResponse, 0, end-start)
	for pos := start; pos < end; pos++ {
		ret = append(ret, observationResponse(evts[params.Index(pos, total)]))
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, ret)
}

// handleDefineProposal handles POST /api/v0/proposals.
func (s *Server) handleDefineProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req DefineProposalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	contentHash, err := decodeHex("content_hash", req.ContentHash)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	action, err := decodeHex("resolution_action", req.ResolutionAction)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if len(contentHash) == 0 {
		contentHash = nil
	}
	if len(action) == 0 {
		action = nil
	}
	id, err := s.engine.DefineProposal(
		r.Context(),
		governance.Address(req.Caller),
		governance.ProposalDefinition{
			Name:             req.Name,
			Url:              req.Url,
			ContentHash:      contentHash,
			ResolutionTarget: governance.Address(req.ResolutionTarget),
			ResolutionAction: action,
		},
	)
	if err != nil {
		s.writeEngineError(w, "define proposal", err)
		return
	}
	writeJSON(w, http.StatusCreated, DefineProposalResponse{Id: id})
}

// handleCancelProposal handles POST /api/v0/proposals/{id}/cancel.
func (s *Server) handleCancelProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req CallerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	err = s.engine.CancelProposal(r.Context(), governance.Address(req.Caller), id)
	if err != nil {
		s.writeEngineError(w, "cancel proposal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExecute handles POST /api/v0/proposals/{id}/execute. Anyone may
// trigger the execution of an approved resolution.
func (s *Server) handleExecute(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.engine.ExecuteResolution(r.Context(), id); err != nil {
		s.writeEngineError(w, "execute resolution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVote handles POST /api/v0/votes.
func (s *Server) handleVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	err := s.engine.SubmitVote(r.Context(), governance.Address(req.Voter), req.Choices)
	if err != nil {
		s.writeEngineError(w, "submit vote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVoteSecret handles POST /api/v0/votes/secret.
func (s *Server) handleVoteSecret(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req VoteSecretRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	commitment, err := governance.ParseCommitment(req.Commitment)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	err = s.engine.SubmitVoteSecret(
		r.Context(),
		governance.Address(req.Voter),
		commitment,
	)
	if err != nil {
		s.writeEngineError(w, "submit vote secret", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReveal handles POST /api/v0/votes/reveal.
func (s *Server) handleReveal(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req RevealRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	salt, err := decodeHex("salt", req.Salt)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	err = s.engine.RevealVoteSecret(
		r.Context(),
		governance.Address(req.Voter),
		req.Choices,
		salt,
	)
	if err != nil {
		s.writeEngineError(w, "reveal vote secret", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHash handles POST /api/v0/hash and computes the commitment a
// voter submits before revealing. Nothing is recorded.
func (s *Server) handleHash(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req HashRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	salt, err := decodeHex("salt", req.Salt)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	payload, err := governance.EncodeBallot(req.Choices, salt)
	if err != nil {
		s.writeEngineError(w, "encode ballot", err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{
		Payload:    hex.EncodeToString(payload),
		Commitment: governance.BuildHash(payload).String(),
	})
}
