// Package pipeline orchestrates a single attendance fetch: browser session
// acquisition, portal login, report export, parsing, and analytics. It also
// hosts the bounded worker pool that serializes concurrent fetch requests
// onto a fixed number of browser-backed workers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vijay-2155/VignanEcap/internal/attendance"
	"github.com/vijay-2155/VignanEcap/internal/browser"
	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
	"github.com/vijay-2155/VignanEcap/internal/portal"
	"github.com/vijay-2155/VignanEcap/internal/retry"
)

// State tracks where a pipeline run currently is. Exposed for logging and
// the health endpoint, not for control flow.
type State string

const (
	StateIdle           State = "idle"
	StateAcquiring      State = "acquiring_session"
	StateAuthenticating State = "authenticating"
	StateExporting      State = "exporting"
	StateParsing        State = "parsing"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// SessionManager abstracts browser session lifecycle for the orchestrator.
type SessionManager interface {
	Acquire(ctx context.Context) (*browser.Session, error)
	Release(sess *browser.Session)
}

// PortalClient abstracts the authenticated portal interactions.
type PortalClient interface {
	Login(ctx context.Context, sess *browser.Session, creds portal.Credentials) error
	Export(ctx context.Context, sess *browser.Session) (string, error)
}

// Result is the outcome of a single fetch. Exactly one of Model/Reason is
// meaningful: a nil Model means the run failed and Reason says why. Report
// is the plain (unescaped) rendering of the model.
type Result struct {
	Model     *attendance.Model
	Analytics attendance.Analytics
	Report    string

	Reason  apperrors.FailureReason
	Message string
}

// Failed reports whether the run produced no usable attendance data.
func (r Result) Failed() bool {
	return r.Model == nil
}

// Orchestrator runs the fetch state machine. Safe for concurrent use; each
// Run call drives its own session.
type Orchestrator struct {
	sessions SessionManager
	portal   PortalClient
	parse    func(path string) (*attendance.Model, error)

	authAttempts int
	authBackoff  time.Duration
	logger       *slog.Logger
}

// NewOrchestrator wires the pipeline stages together. parse may be nil, in
// which case the report parser is used.
func NewOrchestrator(sessions SessionManager, client PortalClient, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:     sessions,
		portal:       client,
		parse:        attendance.Parse,
		authAttempts: 3,
		authBackoff:  2 * time.Second,
		logger:       logger.With(slog.String("component", "pipeline")),
	}
}

// Run executes one complete fetch for the given credentials. It never
// returns an error: every failure mode is folded into the Result so the
// caller has a single rendering path.
func (o *Orchestrator) Run(ctx context.Context, creds portal.Credentials) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic recovered", slog.Any("panic", r))
			res = failure(apperrors.New(apperrors.ReasonUnknown, fmt.Sprintf("internal error: %v", r), nil))
		}
	}()

	state := StateAcquiring
	o.logger.Info("pipeline started", slog.String("state", string(state)))

	sess, err := o.sessions.Acquire(ctx)
	if err != nil {
		return o.fail(state, err)
	}
	defer o.sessions.Release(sess)

	state = StateAuthenticating
	err = retry.Do(ctx, o.authAttempts, o.authBackoff, func() error {
		return o.portal.Login(ctx, sess, creds)
	})
	if err != nil {
		return o.fail(state, err)
	}

	state = StateExporting
	path, err := o.portal.Export(ctx, sess)
	if err != nil {
		return o.fail(state, err)
	}
	defer removeReport(o.logger, path)

	state = StateParsing
	model, err := o.parse(path)
	if err != nil {
		return o.fail(state, err)
	}
	model.StudentID = displayID(model.StudentID, creds.Username)

	analytics := attendance.Compute(model.TotalPresent, model.TotalSessions)
	o.logger.Info("pipeline finished",
		slog.String("state", string(StateDone)),
		slog.Int("subjects", len(model.Records)),
		slog.Float64("overall", analytics.OverallPercentage),
	)
	return Result{
		Model:     model,
		Analytics: analytics,
		Report:    attendance.BuildReport(model, analytics),
	}
}

func (o *Orchestrator) fail(state State, err error) Result {
	o.logger.Warn("pipeline failed",
		slog.String("state", string(state)),
		slog.String("reason", string(apperrors.ReasonOf(err))),
		slog.String("error", err.Error()),
	)
	return failure(err)
}

func failure(err error) Result {
	return Result{
		Reason:  apperrors.ReasonOf(err),
		Message: apperrors.UserMessage(err),
	}
}

// displayID prefers the identity the report itself carries, falling back to
// the login username when the report omits it.
func displayID(parsed, username string) string {
	if parsed != "" {
		return parsed
	}
	return username
}

// removeReport deletes a downloaded report. Reports carry per-student data
// and must not accumulate on disk; a failed removal is logged, never fatal.
func removeReport(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove downloaded report", slog.String("error", err.Error()))
	}
}
