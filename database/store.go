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

package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/comitia/database/models"
	"github.com/blinklabs-io/comitia/event"
	"github.com/blinklabs-io/comitia/governance"
)

// Store persists governance engine state in sqlite
type Store struct {
	promRegistry  prometheus.Registerer
	db            *gorm.DB
	logger        *slog.Logger
	commitLatency prometheus.Histogram
	dataDir       string
	tracing       bool
}

var _ governance.Store = (*Store)(nil)

// New opens the store and migrates its schema
func New(opts ...StoreOptionFunc) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "database")
	gormConfig := &gorm.Config{
		Logger: gormlogger.Discard,
	}
	var dsn string
	if s.dataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		dsn = "file::memory:"
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		// WAL journal mode with synchronous commits
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)",
			filepath.Join(s.dataDir, "governance.sqlite"),
		)
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if s.dataDir == "" {
		// every connection to :memory: is a separate database
		sqlDb, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDb.SetMaxOpenConns(1)
	}
	s.db = db
	if s.tracing {
		if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("configure tracing: %w", err)
		}
	}
	if s.promRegistry != nil {
		s.commitLatency = promauto.With(s.promRegistry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "comitia_database_commit_seconds",
				Help:    "latency of governance changeset commits",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		)
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := s.db.AutoMigrate(model); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return s, nil
}

// DB returns the database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

// Commit writes a changeset in a single transaction
func (s *Store) Commit(ctx context.Context, cs *governance.Changeset) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return commitChangeset(tx, cs)
	})
	if err != nil {
		return fmt.Errorf("database commit: %w", err)
	}
	if s.commitLatency != nil {
		s.commitLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

func upsert(tx *gorm.DB, value any) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func commitChangeset(tx *gorm.DB, cs *governance.Changeset) error {
	for _, sess := range cs.Sessions {
		m := models.SessionFromGovernance(sess)
		if err := upsert(tx, &m); err != nil {
			return fmt.Errorf("session %d: %w", sess.Id, err)
		}
	}
	for _, p := range cs.Proposals {
		m := models.ProposalFromGovernance(p)
		if err := upsert(tx, &m); err != nil {
			return fmt.Errorf("proposal %d: %w", p.Id, err)
		}
	}
	for _, v := range cs.Votes {
		m := models.Vote{
			SessionID: v.SessionId,
			Voter:     string(v.Voter),
			VotedAt:   v.VotedAt,
		}
		if err := upsert(tx, &m); err != nil {
			return fmt.Errorf("vote of %s: %w", v.Voter, err)
		}
	}
	for _, sec := range cs.Secrets {
		if sec.Commitment.IsZero() {
			result := tx.Where(
				"session_id = ? AND voter = ?",
				sec.SessionId,
				string(sec.Voter),
			).Delete(&models.Secret{})
			if result.Error != nil {
				return fmt.Errorf("secret of %s: %w", sec.Voter, result.Error)
			}
			continue
		}
		m := models.Secret{
			SessionID:  sec.SessionId,
			Voter:      string(sec.Voter),
			Commitment: sec.Commitment[:],
		}
		if err := upsert(tx, &m); err != nil {
			return fmt.Errorf("secret of %s: %w", sec.Voter, err)
		}
	}
	if cs.Rule != nil {
		m := models.Rule{ID: models.RuleID, Rule: *cs.Rule}
		if err := upsert(tx, &m); err != nil {
			return fmt.Errorf("rule: %w", err)
		}
	}
	for _, u := range cs.Requirements {
		m := models.Requirement{
			Selector: u.Selector[:],
			Removed:  u.Remove,
		}
		if !u.Remove {
			m.Majority = u.Requirement.Majority
			m.Quorum = u.Requirement.Quorum
		}
		if err := upsert(tx, &m); err != nil {
			return fmt.Errorf("requirement %s: %w", u.Selector, err)
		}
	}
	for _, u := range cs.Quaestors {
		m := models.Quaestor{Address: string(u.Address), Enabled: u.Enabled}
		if err := upsert(tx, &m); err != nil {
			return fmt.Errorf("quaestor %s: %w", u.Address, err)
		}
	}
	for _, evt := range cs.Observations {
		data, err := json.Marshal(evt.Data)
		if err != nil {
			return fmt.Errorf("encode observation %d: %w", evt.Seq, err)
		}
		m := models.Observation{
			Seq:       evt.Seq,
			Type:      string(evt.Type),
			Timestamp: evt.Timestamp,
			Data:      data,
		}
		// the log is append-only, so a duplicate sequence number is an error
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("observation %d: %w", evt.Seq, err)
		}
	}
	return nil
}

// Load reads the full persisted state in the form expected by
// governance.Engine.Restore
func (s *Store) Load(ctx context.Context) (*governance.Changeset, error) {
	db := s.db.WithContext(ctx)
	ret := &governance.Changeset{}
	var sessions []models.Session
	if err := db.Order("id").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	for _, m := range sessions {
		ret.Sessions = append(ret.Sessions, m.Governance())
	}
	var proposals []models.Proposal
	if err := db.Order("id").Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	for _, m := range proposals {
		ret.Proposals = append(ret.Proposals, m.Governance())
	}
	var votes []models.Vote
	if err := db.Order("session_id, voter").Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	for _, m := range votes {
		ret.Votes = append(ret.Votes, governance.VoteRecord{
			SessionId: m.SessionID,
			Voter:     governance.Address(m.Voter),
			VotedAt:   m.VotedAt,
		})
	}
	var secrets []models.Secret
	if err := db.Order("session_id, voter").Find(&secrets).Error; err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	for _, m := range secrets {
		var c governance.Commitment
		if len(m.Commitment) != len(c) {
			return nil, fmt.Errorf(
				"load secrets: commitment of %s has %d bytes",
				m.Voter,
				len(m.Commitment),
			)
		}
		copy(c[:], m.Commitment)
		ret.Secrets = append(ret.Secrets, governance.SecretRecord{
			SessionId:  m.SessionID,
			Voter:      governance.Address(m.Voter),
			Commitment: c,
		})
	}
	var rules []models.Rule
	if err := db.Where("id = ?", models.RuleID).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("load rule: %w", err)
	}
	if len(rules) > 0 {
		ret.Rule = &rules[0].Rule
	}
	var requirements []models.Requirement
	if err := db.Order("selector").Find(&requirements).Error; err != nil {
		return nil, fmt.Errorf("load requirements: %w", err)
	}
	for _, m := range requirements {
		u := governance.RequirementUpdate{
			Selector: governance.ActionSelector(m.Selector),
			Remove:   m.Removed,
		}
		if !m.Removed {
			u.Requirement = governance.ResolutionRequirement{
				Majority: m.Majority,
				Quorum:   m.Quorum,
			}
		}
		ret.Requirements = append(ret.Requirements, u)
	}
	var quaestors []models.Quaestor
	if err := db.Order("address").Find(&quaestors).Error; err != nil {
		return nil, fmt.Errorf("load quaestors: %w", err)
	}
	for _, m := range quaestors {
		ret.Quaestors = append(ret.Quaestors, governance.QuaestorUpdate{
			Address: governance.Address(m.Address),
			Enabled: m.Enabled,
		})
	}
	var observations []models.Observation
	if err := db.Order("seq").Find(&observations).Error; err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	for _, m := range observations {
		data, err := event.DecodeGovernanceData(event.EventType(m.Type), m.Data)
		if err != nil {
			return nil, fmt.Errorf("load observation %d: %w", m.Seq, err)
		}
		ret.Observations = append(ret.Observations, event.Event{
			Type:      event.EventType(m.Type),
			Timestamp: m.Timestamp,
			Data:      data,
			Seq:       m.Seq,
		})
	}
	s.logger.Debug(
		"loaded governance state",
		"sessions", len(ret.Sessions),
		"proposals", len(ret.Proposals),
		"observations", len(ret.Observations),
	)
	return ret, nil
}
