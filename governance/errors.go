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

import "errors"

// ErrorCode is the stable short code reported for a failed operation
type ErrorCode string

const (
	CodePhaseViolation  ErrorCode = "PhaseViolation"
	CodeDuplicateVote   ErrorCode = "DuplicateVote"
	CodeSecretMismatch  ErrorCode = "SecretMismatch"
	CodeQuotaExceeded   ErrorCode = "QuotaExceeded"
	CodeNotAuthorized   ErrorCode = "NotAuthorized"
	CodeUnknownProposal ErrorCode = "UnknownProposal"
	CodeUnknownSession  ErrorCode = "UnknownSession"
	CodeAlreadyExecuted ErrorCode = "AlreadyExecuted"
	CodeExpired         ErrorCode = "Expired"
	CodeNotApproved     ErrorCode = "NotApproved"
	CodeExecutionFailed ErrorCode = "ExecutionFailed"
	CodeInvalidBallot   ErrorCode = "InvalidBallot"
	CodeInvalidRule     ErrorCode = "InvalidRule"
)

// Error is the sentinel type behind every engine failure. Callers match
// with errors.Is against the Err* values or read the code with CodeOf.
type Error struct {
	Code ErrorCode
}

func (e *Error) Error() string {
	return string(e.Code)
}

var (
	ErrPhaseViolation  = &Error{Code: CodePhaseViolation}
	ErrDuplicateVote   = &Error{Code: CodeDuplicateVote}
	ErrSecretMismatch  = &Error{Code: CodeSecretMismatch}
	ErrQuotaExceeded   = &Error{Code: CodeQuotaExceeded}
	ErrNotAuthorized   = &Error{Code: CodeNotAuthorized}
	ErrUnknownProposal = &Error{Code: CodeUnknownProposal}
	ErrUnknownSession  = &Error{Code: CodeUnknownSession}
	ErrAlreadyExecuted = &Error{Code: CodeAlreadyExecuted}
	ErrExpired         = &Error{Code: CodeExpired}
	ErrNotApproved     = &Error{Code: CodeNotApproved}
	ErrExecutionFailed = &Error{Code: CodeExecutionFailed}
	ErrInvalidBallot   = &Error{Code: CodeInvalidBallot}
	ErrInvalidRule     = &Error{Code: CodeInvalidRule}
)

// CodeOf returns the engine error code carried by err, or "" when err did
// not originate from a failed precondition
func CodeOf(err error) ErrorCode {
	var govErr *Error
	if errors.As(err, &govErr) {
		return govErr.Code
	}
	return ""
}
