// Package reset runs the end-of-game protocol: capture the summary, archive the
// game, and return every mutable piece of state to its starting point.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zhajinhua/internal/app"
	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Stage names a step of CompleteGameReset.
type Stage string

const (
	StageCaptureSummary Stage = "capture_summary"
	StagePersist        Stage = "persist_archive"
	StageResetAgents    Stage = "reset_agents"
	StageResetGame      Stage = "reset_game"
	StageClearLogs      Stage = "clear_logs"
)

// Stages lists the reset sequence in execution order.
var Stages = []Stage{StageCaptureSummary, StagePersist, StageResetAgents, StageResetGame, StageClearLogs}

var ErrNoSink = errors.New("no log sink configured")

// StageError reports a failed stage. Later stages still run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("reset stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Report describes one CompleteGameReset run.
type Report struct {
	Summary   *domain.FinalSummary
	Archive   ports.GameArchive
	Completed []Stage
	Failed    []*StageError
}

// OK reports whether every stage succeeded.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// Manager owns the reset protocol for one table.
type Manager struct {
	engine     *app.Engine
	transcript *eventlog.Transcript
	session    *Session
	logger     runtime.Logger
	clock      func() time.Time
}

// NewManager builds a manager for engine. transcript and session may be nil.
func NewManager(engine *app.Engine, transcript *eventlog.Transcript, session *Session, logger runtime.Logger) *Manager {
	return &Manager{
		engine:     engine,
		transcript: transcript,
		session:    session,
		logger:     logger,
		clock:      time.Now,
	}
}

// Session returns the process-scoped session the manager clears.
func (m *Manager) Session() *Session { return m.session }

// CompleteGameReset runs every stage in order. A failing stage is logged and
// recorded; the returned error joins every stage failure.
func (m *Manager) CompleteGameReset(ctx context.Context, sink ports.LogSink) (Report, error) {
	var report Report
	run := func(stage Stage, fn func() error) {
		if err := m.runStage(stage, fn); err != nil {
			report.Failed = append(report.Failed, err)
			m.logger.Warn("CompleteGameReset: %v", err)
			return
		}
		report.Completed = append(report.Completed, stage)
	}

	run(StageCaptureSummary, func() error {
		s, err := m.engine.FinalSummary()
		if err != nil {
			return err
		}
		report.Summary = s
		return nil
	})

	report.Archive = m.archive(report.Summary)
	run(StagePersist, func() error {
		if sink == nil {
			return ErrNoSink
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return sink.Append(ctx, report.Archive)
	})

	run(StageResetAgents, func() error {
		m.engine.ResetAgentState()
		return nil
	})

	run(StageResetGame, func() error {
		m.engine.ResetGameState()
		return nil
	})

	run(StageClearLogs, func() error {
		m.engine.Log().Clear()
		if m.transcript != nil {
			m.transcript.Clear()
		}
		if m.session != nil {
			m.session.Clear()
		}
		return nil
	})

	if report.OK() {
		m.logger.Info("CompleteGameReset: game %s archived and reset", report.Archive.GameID)
		return report, nil
	}
	errs := make([]error, len(report.Failed))
	for i, err := range report.Failed {
		errs[i] = err
	}
	return report, errors.Join(errs...)
}

func (m *Manager) runStage(stage Stage, fn func() error) (stageErr *StageError) {
	defer func() {
		if r := recover(); r != nil {
			stageErr = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (m *Manager) archive(summary *domain.FinalSummary) ports.GameArchive {
	log := m.engine.Log()
	st := m.engine.State()
	a := ports.GameArchive{
		GameID:    m.engine.GameID(),
		HandCount: st.HandCount,
		Public:    log.Entries(eventlog.CategoryPublic),
		Secret:    log.Entries(eventlog.CategorySecret),
		Cheat:     log.Entries(eventlog.CategoryCheat),
		Summary:   summary,
		ClosedAt:  m.clock().UTC(),
	}
	if m.transcript != nil {
		a.Transcript = m.transcript.Lines()
	}
	a.Header = fmt.Sprintf("Zhajinhua game %s, %d hands, %d players", a.GameID, a.HandCount, len(m.engine.Players()))
	if summary != nil && summary.WinnerID != "" {
		a.Header += ", winner " + summary.WinnerID
	}
	return a
}
