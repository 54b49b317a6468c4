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

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/comitia/governance"
	"github.com/blinklabs-io/comitia/internal/config"
)

// writePhases prints the phase boundaries of the session that would be
// scheduled at the given time
func writePhases(w io.Writer, rule governance.SessionRule, at time.Time) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	startAt := governance.NextStartAt(rule, at)
	votingEnd := startAt.Add(rule.VotingPeriod)
	revealEnd := votingEnd.Add(rule.RevealPeriod)
	graceEnd := revealEnd.Add(rule.GracePeriod)
	rows := []struct {
		state governance.SessionState
		from  time.Time
	}{
		{governance.SessionStateCampaign, startAt.Add(-rule.CampaignPeriod)},
		{governance.SessionStateVoting, startAt},
		{governance.SessionStateReveal, votingEnd},
		{governance.SessionStateGrace, revealEnd},
		{governance.SessionStateClosed, graceEnd},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(
			w,
			"%-9s %s\n",
			row.state,
			row.from.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return nil
}

// writeHash prints the encoded ballot and its commitment
func writeHash(w io.Writer, choices []bool, saltHex string) error {
	salt, err := hex.DecodeString(strings.TrimPrefix(saltHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid salt: %w", err)
	}
	payload, err := governance.EncodeBallot(choices, salt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(
		w,
		"payload:    %s\ncommitment: %s\n",
		hex.EncodeToString(payload),
		governance.BuildHash(payload),
	)
	return err
}

func phasesCommand() *cobra.Command {
	var at int64
	cmd := &cobra.Command{
		Use:   "phases",
		Short: "Show the phases of the next session under the configured rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			t := time.Now()
			if at != 0 {
				t = time.Unix(at, 0)
			}
			return writePhases(cmd.OutOrStdout(), cfg.Rule, t)
		},
	}
	cmd.Flags().Int64Var(&at, "at", 0, "reference time as a Unix timestamp (default now)")
	return cmd
}

func hashCommand() *cobra.Command {
	var choices []bool
	var salt string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute the commitment of a secret ballot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeHash(cmd.OutOrStdout(), choices, salt)
		},
	}
	cmd.Flags().BoolSliceVar(&choices, "choices", nil, "approval per proposal, in proposal order")
	cmd.Flags().StringVar(&salt, "salt", "", "hex encoded salt")
	_ = cmd.MarkFlagRequired("salt")
	return cmd
}

func selectorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "selector <signature>",
		Short: "Compute the action selector of a signature",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), governance.SelectorOf(args[0]))
		},
	}
}
