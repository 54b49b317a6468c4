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
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/comitia/event"
)

// Selectors of the actions the engine accepts when it is the resolution
// target
var (
	SelectorUpdateSessionRule = SelectorOf(
		"updateSessionRule(SessionRule)",
	)
	SelectorUpdateResolutionRequirements = SelectorOf(
		"updateResolutionRequirements(RequirementUpdate[])",
	)
	SelectorUpdateQuaestors = SelectorOf(
		"updateQuaestors(QuaestorUpdate[])",
	)
)

var ErrUnknownAction = errors.New("unknown action selector")

// sessionRuleArgs carries durations as whole seconds
type sessionRuleArgs struct {
	cbor.StructAsArray
	CampaignPeriod       int64
	VotingPeriod         int64
	RevealPeriod         int64
	GracePeriod          int64
	MaxProposals         uint32
	MaxProposalsQuaestor uint32
	NewProposalThreshold uint64
	DefaultMajority      uint8
	DefaultQuorum        uint8
}

type requirementArgs struct {
	cbor.StructAsArray
	Selector []byte
	Majority uint8
	Quorum   uint8
	Remove   bool
}

type quaestorArgs struct {
	cbor.StructAsArray
	Address string
	Enabled bool
}

// EncodeAction prefixes the CBOR encoding of args with sel
func EncodeAction(sel Selector, args any) ([]byte, error) {
	data, err := cbor.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("encode action %s: %w", sel, err)
	}
	return append(sel[:], data...), nil
}

// DecodeActionArgs decodes the arguments that follow the selector
func DecodeActionArgs(action []byte, dest any) error {
	if len(action) < len(Selector{}) {
		return fmt.Errorf("action of %d bytes has no selector", len(action))
	}
	if _, err := cbor.Decode(action[len(Selector{}):], dest); err != nil {
		return fmt.Errorf(
			"decode action %s: %w",
			ActionSelector(action),
			err,
		)
	}
	return nil
}

func EncodeUpdateSessionRule(rule SessionRule) ([]byte, error) {
	return EncodeAction(SelectorUpdateSessionRule, &sessionRuleArgs{
		CampaignPeriod:       int64(rule.CampaignPeriod / time.Second),
		VotingPeriod:         int64(rule.VotingPeriod / time.Second),
		RevealPeriod:         int64(rule.RevealPeriod / time.Second),
		GracePeriod:          int64(rule.GracePeriod / time.Second),
		MaxProposals:         rule.MaxProposals,
		MaxProposalsQuaestor: rule.MaxProposalsQuaestor,
		NewProposalThreshold: rule.NewProposalThreshold,
		DefaultMajority:      rule.DefaultMajority,
		DefaultQuorum:        rule.DefaultQuorum,
	})
}

func EncodeUpdateResolutionRequirements(
	updates []RequirementUpdate,
) ([]byte, error) {
	args := make([]requirementArgs, 0, len(updates))
	for _, u := range updates {
		args = append(args, requirementArgs{
			Selector: u.Selector[:],
			Majority: u.Requirement.Majority,
			Quorum:   u.Requirement.Quorum,
			Remove:   u.Remove,
		})
	}
	return EncodeAction(SelectorUpdateResolutionRequirements, args)
}

func EncodeUpdateQuaestors(updates []QuaestorUpdate) ([]byte, error) {
	args := make([]quaestorArgs, 0, len(updates))
	for _, u := range updates {
		args = append(args, quaestorArgs{
			Address: string(u.Address),
			Enabled: u.Enabled,
		})
	}
	return EncodeAction(SelectorUpdateQuaestors, args)
}

// applyAction stages a self-governance action. Changes to the rule and the
// requirement table only reach sessions scheduled afterwards.
func (e *Engine) applyAction(cs *Changeset, action []byte) error {
	nextSession := uint64(len(e.sessions))
	switch sel := ActionSelector(action); sel {
	case SelectorUpdateSessionRule:
		var args sessionRuleArgs
		if err := DecodeActionArgs(action, &args); err != nil {
			return err
		}
		rule := SessionRule{
			CampaignPeriod:       time.Duration(args.CampaignPeriod) * time.Second,
			VotingPeriod:         time.Duration(args.VotingPeriod) * time.Second,
			RevealPeriod:         time.Duration(args.RevealPeriod) * time.Second,
			GracePeriod:          time.Duration(args.GracePeriod) * time.Second,
			MaxProposals:         args.MaxProposals,
			MaxProposalsQuaestor: args.MaxProposalsQuaestor,
			NewProposalThreshold: args.NewProposalThreshold,
			DefaultMajority:      args.DefaultMajority,
			DefaultQuorum:        args.DefaultQuorum,
		}
		if err := rule.Validate(); err != nil {
			return err
		}
		cs.Rule = &rule
		cs.observe(
			event.SessionRuleUpdatedEventType,
			event.SessionRuleUpdatedEvent{EffectiveSessionId: nextSession},
		)
	case SelectorUpdateResolutionRequirements:
		var args []requirementArgs
		if err := DecodeActionArgs(action, &args); err != nil {
			return err
		}
		selectors := make([]string, 0, len(args))
		for _, arg := range args {
			if len(arg.Selector) != len(Selector{}) {
				return fmt.Errorf(
					"%w: selector of %d bytes",
					ErrInvalidRule,
					len(arg.Selector),
				)
			}
			u := RequirementUpdate{
				Selector: ActionSelector(arg.Selector),
				Requirement: ResolutionRequirement{
					Majority: arg.Majority,
					Quorum:   arg.Quorum,
				},
				Remove: arg.Remove,
			}
			if err := validateRequirement(u.Selector, u.Requirement); err != nil {
				return err
			}
			cs.Requirements = append(cs.Requirements, u)
			selectors = append(selectors, u.Selector.String())
		}
		cs.observe(
			event.ResolutionRequirementsUpdatedEventType,
			event.ResolutionRequirementsUpdatedEvent{
				EffectiveSessionId: nextSession,
				Selectors:          selectors,
			},
		)
	case SelectorUpdateQuaestors:
		var args []quaestorArgs
		if err := DecodeActionArgs(action, &args); err != nil {
			return err
		}
		var evt event.QuaestorsUpdatedEvent
		for _, arg := range args {
			if arg.Address == "" {
				return fmt.Errorf("%w: empty quaestor address", ErrInvalidRule)
			}
			cs.Quaestors = append(cs.Quaestors, QuaestorUpdate{
				Address: Address(arg.Address),
				Enabled: arg.Enabled,
			})
			if arg.Enabled {
				evt.Enabled = append(evt.Enabled, arg.Address)
			} else {
				evt.Disabled = append(evt.Disabled, arg.Address)
			}
		}
		cs.observe(event.QuaestorsUpdatedEventType, evt)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, sel)
	}
	return nil
}
