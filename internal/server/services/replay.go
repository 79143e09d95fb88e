package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/logging"
	"github.com/custodia-project/custodia/internal/server/models"
	"github.com/custodia-project/custodia/internal/server/repositories/repomanager"
	"github.com/custodia-project/custodia/internal/server/storage"
)

const defaultReplayConcurrency = 4

// ReplayService re-derives a case's integrity state from first principles:
// it reads every verified object back from storage, recomputes digests and
// cross-checks the audit stream. Replay changes nothing except appending one
// REPLAY_RUN event recording that it ran.
type ReplayService struct {
	db          *sql.DB
	manager     repomanager.RepositoryManager
	gateway     storage.Gateway
	clock       Clock
	logger      logging.Logger
	concurrency int
}

func NewReplayService(db *sql.DB, manager repomanager.RepositoryManager, gateway storage.Gateway,
	clock Clock, logger logging.Logger, concurrency int) *ReplayService {
	if concurrency <= 0 {
		concurrency = defaultReplayConcurrency
	}
	return &ReplayService{db: db, manager: manager, gateway: gateway, clock: clock, logger: logger, concurrency: concurrency}
}

// ReplayFinding describes one discrepancy between stored state and what
// replay re-derived. Any finding means the case can no longer be vouched for.
type ReplayFinding struct {
	EvidenceID string `json:"evidence_id,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Problem    string `json:"problem"`
	Detail     string `json:"detail,omitempty"`
}

type ReplayReport struct {
	CaseID          string          `json:"case_id"`
	EvidenceChecked int             `json:"evidence_checked"`
	EventsChecked   int             `json:"events_checked"`
	Findings        []ReplayFinding `json:"findings,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

func (r *ReplayReport) OK() bool { return len(r.Findings) == 0 }

type replayRunPayload struct {
	EvidenceChecked int    `json:"evidence_checked"`
	EventsChecked   int    `json:"events_checked"`
	FindingCount    int    `json:"finding_count"`
	OK              bool   `json:"ok"`
	Actor           string `json:"actor,omitempty"`
}

// Replay verifies one case end to end and returns the report. Findings are
// the report's content, not errors: replay only fails when it cannot run at
// all (unknown case, context cancelled).
func (s *ReplayService) Replay(ctx context.Context, actor, caseID string) (*ReplayReport, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", common.ErrValidation)
	}

	db := s.dbHandle()

	events, err := s.manager.Audit(db).ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	records, err := s.manager.Evidence(db).ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 && len(records) == 0 {
		return nil, fmt.Errorf("%w: case %s", common.ErrNotFound, caseID)
	}

	report := &ReplayReport{
		CaseID:          caseID,
		EvidenceChecked: len(records),
		EventsChecked:   len(events),
		StartedAt:       s.clock.Now(),
	}

	report.Findings = append(report.Findings, checkEventOrder(events)...)
	report.Findings = append(report.Findings, checkTerminalEvents(records, events)...)

	rehashFindings, err := s.rehash(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Findings = append(report.Findings, rehashFindings...)

	report.FinishedAt = s.clock.Now()

	_, err = appendEvent(ctx, s.manager.Audit(db), s.clock, caseID, models.EventReplayRun,
		replayRunPayload{
			EvidenceChecked: report.EvidenceChecked,
			EventsChecked:   report.EventsChecked,
			FindingCount:    len(report.Findings),
			OK:              report.OK(),
			Actor:           actor,
		})
	if err != nil {
		return nil, err
	}

	if report.OK() {
		s.logger.Info(ctx, "replay clean", "case_id", caseID, "evidence_checked", report.EvidenceChecked)
	} else {
		s.logger.Warn(ctx, "replay found discrepancies", "case_id", caseID, "finding_count", len(report.Findings))
	}

	return report, nil
}

// checkEventOrder verifies created_at never decreases along the stream.
func checkEventOrder(events []*models.AuditEvent) []ReplayFinding {
	var findings []ReplayFinding
	for i := 1; i < len(events); i++ {
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			findings = append(findings, ReplayFinding{
				EventID: events[i].ID,
				Problem: "audit order violation",
				Detail:  fmt.Sprintf("event %s precedes its predecessor in time", events[i].ID),
			})
		}
	}
	return findings
}

// checkTerminalEvents verifies every verified record is vouched for by a
// HASH_VERIFIED event naming it.
func checkTerminalEvents(records []*models.EvidenceRecord, events []*models.AuditEvent) []ReplayFinding {
	verifiedBy := make(map[string]bool)
	for _, ev := range events {
		if ev.EventType != models.EventHashVerified {
			continue
		}
		var p hashVerifiedPayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil && p.EvidenceID != "" {
			verifiedBy[p.EvidenceID] = true
		}
	}

	var findings []ReplayFinding
	for _, rec := range records {
		if rec.Status == models.EvidenceVerified && !verifiedBy[rec.ID] {
			findings = append(findings, ReplayFinding{
				EvidenceID: rec.ID,
				Problem:    "missing terminal event",
				Detail:     "verified record has no HASH_VERIFIED event",
			})
		}
	}
	return findings
}

// rehash reads every verified object back and recomputes its digest, with
// bounded parallelism. Read failures and mismatches become findings; only a
// cancelled context aborts the pass.
func (s *ReplayService) rehash(ctx context.Context, records []*models.EvidenceRecord) ([]ReplayFinding, error) {
	perRecord := make([]*ReplayFinding, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, rec := range records {
		if rec.Status != models.EvidenceVerified {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			data, err := s.gateway.ReadBytes(gctx, rec.StorageKey)
			if err != nil {
				perRecord[i] = &ReplayFinding{
					EvidenceID: rec.ID,
					Problem:    "object unreadable",
					Detail:     err.Error(),
				}
				return nil
			}

			if got := hashing.SumVerified(data); got != rec.SHA256 {
				perRecord[i] = &ReplayFinding{
					EvidenceID: rec.ID,
					Problem:    "hash mismatch",
					Detail:     fmt.Sprintf("stored %s, recomputed %s", rec.SHA256, got),
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []ReplayFinding
	for _, f := range perRecord {
		if f != nil {
			findings = append(findings, *f)
		}
	}
	return findings, nil
}

func (s *ReplayService) dbHandle() dbx.DBTX {
	if s.db == nil {
		return nil
	}
	return s.db
}
