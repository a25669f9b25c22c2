package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hiring-pipeline/internal/applications"
	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/config"
	"hiring-pipeline/internal/rbac"
	"hiring-pipeline/internal/screening"
	"hiring-pipeline/internal/timeline"
	"hiring-pipeline/pkg/logger"
)

// Deps are the collaborators of the orchestrator. Ledger, Locker, Logger and Clock
// are optional and default to in-process implementations.
type Deps struct {
	Applications applications.Repository
	Screenings   screening.Repository
	Ledger       *timeline.Ledger
	Locker       Locker
	Audit        *audit.Service
	Logger       *slog.Logger
	Clock        func() time.Time
}

// Service is the single write path for application status and screening-driven advancement.
//
// Every mutation of an application runs under Locker keyed by application id, so
// two callbacks for the same application never both read the pre-update state.
type Service struct {
	apps     applications.Repository
	calls    screening.Repository
	ledger   *timeline.Ledger
	locker   Locker
	audit    *audit.Service
	logger   *slog.Logger
	clock    func() time.Time
	resolver screening.Resolver
	cfg      config.WorkflowConfig
	steps    map[applications.Status]applications.Step
}

type Option func(*Service)

// WithDefaultSteps replaces the status -> step mapping used when a transition names no step.
// Statuses missing from steps keep their built-in default.
func WithDefaultSteps(steps map[applications.Status]applications.Step) Option {
	return func(s *Service) {
		for st, step := range steps {
			s.steps[st] = step
		}
	}
}

func NewService(d Deps, cfg config.WorkflowConfig, opts ...Option) (*Service, error) {
	if d.Applications == nil || d.Screenings == nil {
		return nil, errors.New("workflow: application and screening repositories are required")
	}
	s := &Service{
		apps:     d.Applications,
		calls:    d.Screenings,
		ledger:   d.Ledger,
		locker:   d.Locker,
		audit:    d.Audit,
		logger:   d.Logger,
		clock:    d.Clock,
		resolver: screening.NewResolver(cfg.MinTranscriptChars),
		cfg:      cfg,
		steps:    DefaultSteps(),
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.ledger == nil {
		s.ledger = timeline.NewLedger(d.Applications).WithClock(s.clock)
	}
	if s.locker == nil {
		s.locker = NewKeyedMutex()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cfg.MaxCompletedCalls <= 0 {
		s.cfg.MaxCompletedCalls = config.DefaultWorkflowConfig().MaxCompletedCalls
	}
	if s.cfg.MaxRetries < 0 {
		s.cfg.MaxRetries = 0
	}
	for _, o := range opts {
		o(s)
	}
	for st, step := range s.steps {
		if !st.Valid() || !step.Valid() {
			return nil, fmt.Errorf("%w: default step %q for status %q", ErrInvalidArgument, step, st)
		}
	}
	return s, nil
}

func (s *Service) now() time.Time { return s.clock().UTC() }

func (s *Service) log(ctx context.Context) *slog.Logger { return logger.FromOr(ctx, s.logger) }

func lockKey(applicationID string) string { return "application:" + applicationID }

// CreateApplicationRequest opens a new application at submitted.
type CreateApplicationRequest struct {
	CandidateID string
	JobID       string
	ActorRole   rbac.Role
}

// CreateApplication writes the application together with its first timeline entry.
func (s *Service) CreateApplication(ctx context.Context, req CreateApplicationRequest) (applications.Application, error) {
	req.CandidateID = strings.TrimSpace(req.CandidateID)
	req.JobID = strings.TrimSpace(req.JobID)
	if req.CandidateID == "" || req.JobID == "" {
		return applications.Application{}, fmt.Errorf("%w: candidate_id and job_id are required", ErrInvalidArgument)
	}
	if !req.ActorRole.Valid() {
		return applications.Application{}, fmt.Errorf("%w: actor role %q", ErrInvalidArgument, req.ActorRole)
	}

	now := s.now()
	app := applications.Application{
		ID:          uuid.NewString(),
		CandidateID: req.CandidateID,
		JobID:       req.JobID,
		Status:      applications.StatusSubmitted,
		CurrentStep: applications.StepApplicationSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	app, err := timeline.Append(app, applications.TimelineEntry{
		Step:        applications.StepApplicationSubmitted,
		Status:      applications.EntryCompleted,
		ToStatus:    applications.StatusSubmitted,
		Timestamp:   now,
		PerformedBy: req.ActorRole,
	})
	if err != nil {
		return applications.Application{}, err
	}
	if err := s.apps.Put(ctx, app); err != nil {
		return applications.Application{}, err
	}

	s.log(ctx).Info("application created", "application_id", app.ID, "candidate_id", app.CandidateID, "job_id", app.JobID)
	return app, nil
}

// TransitionRequest asks for an application status change.
// ToStep defaults to the configured step for ToStatus.
type TransitionRequest struct {
	ApplicationID string
	ToStatus      applications.Status
	ToStep        applications.Step
	Note          string
	ActorRole     rbac.Role
	// ActorUserID is recorded in the audit log only.
	ActorUserID string
}

func (s *Service) validate(req TransitionRequest) error {
	if req.ApplicationID == "" {
		return fmt.Errorf("%w: application id required", ErrInvalidArgument)
	}
	if !req.ToStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, req.ToStatus)
	}
	if req.ToStep != "" && !req.ToStep.Valid() {
		return fmt.Errorf("%w: unknown step %q", ErrInvalidArgument, req.ToStep)
	}
	if !req.ActorRole.Valid() {
		return fmt.Errorf("%w: unknown actor role %q", ErrInvalidArgument, req.ActorRole)
	}
	return nil
}

// RequestTransition validates the change against the transition table, then appends
// one completed timeline entry and persists the new status in the same write.
// A rejected change leaves the application untouched and returns *TransitionError.
func (s *Service) RequestTransition(ctx context.Context, req TransitionRequest) (applications.Application, error) {
	if err := s.validate(req); err != nil {
		return applications.Application{}, err
	}
	unlock, err := s.locker.Lock(ctx, lockKey(req.ApplicationID))
	if err != nil {
		return applications.Application{}, err
	}
	defer unlock()

	return s.transitionLocked(ctx, req)
}

func (s *Service) transitionLocked(ctx context.Context, req TransitionRequest) (applications.Application, error) {
	app, err := s.apps.Get(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, applications.ErrNotFound) {
			return applications.Application{}, notFound(err, "application", req.ApplicationID)
		}
		return applications.Application{}, err
	}

	from := app.Status
	if terr := s.check(from, req); terr != nil {
		s.auditRejected(ctx, req, terr)
		return app, terr
	}

	step := req.ToStep
	if step == "" {
		step = s.steps[req.ToStatus]
	}
	entry := applications.TimelineEntry{
		Step:        step,
		Status:      applications.EntryCompleted,
		FromStatus:  from,
		ToStatus:    req.ToStatus,
		Notes:       strings.TrimSpace(req.Note),
		PerformedBy: req.ActorRole,
	}

	updated, err := s.ledger.Record(ctx, app.ID, entry, func(a *applications.Application) error {
		if a.Status != from {
			return &TransitionError{From: a.Status, To: req.ToStatus, Role: req.ActorRole, Reason: "status changed during transition"}
		}
		a.Status = req.ToStatus
		a.CurrentStep = applications.Later(a.CurrentStep, step)
		return nil
	})
	if err != nil {
		return app, err
	}

	s.log(ctx).Info("application transitioned",
		"application_id", app.ID,
		"from", from,
		"to", req.ToStatus,
		"step", step,
		"actor_role", req.ActorRole,
	)
	return updated, nil
}

func (s *Service) check(from applications.Status, req TransitionRequest) *TransitionError {
	t, ok := Lookup(from, req.ToStatus)
	switch {
	case !ok:
		return &TransitionError{From: from, To: req.ToStatus, Role: req.ActorRole, Reason: "no such transition"}
	case !t.allows(req.ActorRole):
		return &TransitionError{From: from, To: req.ToStatus, Role: req.ActorRole, Reason: "role not permitted"}
	case t.RequiresNote && strings.TrimSpace(req.Note) == "":
		return &TransitionError{From: from, To: req.ToStatus, Role: req.ActorRole, Reason: "note required", noteMissing: true}
	}
	return nil
}

func (s *Service) auditRejected(ctx context.Context, req TransitionRequest, terr *TransitionError) {
	if s.audit == nil {
		return
	}
	err := s.audit.LogTransitionRejected(ctx, req.ApplicationID, req.ActorUserID, string(req.ActorRole), terr.Reason, map[string]any{
		"from": string(terr.From),
		"to":   string(terr.To),
	})
	if err != nil {
		s.log(ctx).Warn("audit write failed", "application_id", req.ApplicationID, "err", err)
	}
}

// IngestResult describes what one vendor event did.
type IngestResult struct {
	Call        screening.Call
	Application applications.Application
	Resolution  screening.Resolution
	// Advanced is true when this event moved the application's status.
	Advanced bool
	// Duplicate is true when the call had already been consumed; nothing was written.
	Duplicate bool
}

// IngestScreeningEvent merges a vendor patch into the stored call, resolves conflicts,
// persists the resolved call and advances the application once the call carries a
// substantive transcript, whatever status the vendor last reported. The consumed call
// is stored as completed.
//
// Re-ingesting an event for a call that was already consumed is a successful no-op.
func (s *Service) IngestScreeningEvent(ctx context.Context, callID string, patch screening.Patch) (IngestResult, error) {
	if callID == "" {
		return IngestResult{}, fmt.Errorf("%w: screening call id required", ErrInvalidArgument)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return IngestResult{}, fmt.Errorf("%w: unknown screening status %q", ErrInvalidArgument, *patch.Status)
	}

	probe, err := s.getCall(ctx, callID)
	if err != nil {
		return IngestResult{}, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(probe.ApplicationID))
	if err != nil {
		return IngestResult{}, err
	}
	defer unlock()

	call, err := s.getCall(ctx, callID)
	if err != nil {
		return IngestResult{}, err
	}
	app, err := s.getApp(ctx, call.ApplicationID)
	if err != nil {
		return IngestResult{}, err
	}
	if call.Processed() {
		s.log(ctx).Debug("duplicate screening event ignored", "screening_call_id", call.ID, "application_id", app.ID)
		return IngestResult{Call: call, Application: app, Duplicate: true}, nil
	}

	now := s.now()
	merged := screening.Merge(call, patch, now)
	res := s.resolver.Resolve(merged)
	resolved := res.Resolved
	if err := s.calls.Put(ctx, resolved); err != nil {
		return IngestResult{}, err
	}
	if res.HasConflict {
		s.auditConflict(ctx, merged, res)
	}

	out := IngestResult{Call: resolved, Application: app, Resolution: res}

	if resolved.Status == screening.StatusInProgress && app.Status == applications.StatusScreeningScheduled {
		app, err = s.transitionLocked(ctx, TransitionRequest{
			ApplicationID: app.ID,
			ToStatus:      applications.StatusScreeningInProgress,
			ToStep:        applications.StepScreeningCallInProgress,
			Note:          fmt.Sprintf("screening call %s started", resolved.ID),
			ActorRole:     rbac.RoleSystem,
		})
		if err != nil {
			return out, err
		}
		out.Application = app
		out.Advanced = true
	}

	if !res.ShouldProcess {
		return out, nil
	}

	if !app.Status.AtOrPast(applications.StatusScreeningCompleted) {
		app, err = s.transitionLocked(ctx, TransitionRequest{
			ApplicationID: app.ID,
			ToStatus:      applications.StatusScreeningCompleted,
			ToStep:        applications.StepScreeningCallCompleted,
			Note:          completionNote(resolved, res),
			ActorRole:     rbac.RoleSystem,
		})
		if err != nil {
			return out, err
		}
		out.Application = app
		out.Advanced = true
	}

	// A consumed call is terminal.
	resolved.Status = screening.StatusCompleted
	processedAt := now
	resolved.ProcessedAt = &processedAt
	if err := s.calls.Put(ctx, resolved); err != nil {
		return out, err
	}
	out.Call = resolved

	s.log(ctx).Info("screening call processed",
		"screening_call_id", resolved.ID,
		"application_id", app.ID,
		"conflict", res.ConflictType,
		"advanced", out.Advanced,
	)
	return out, nil
}

func completionNote(c screening.Call, res screening.Resolution) string {
	note := fmt.Sprintf("screening call %s completed (attempt %d)", c.ID, c.Attempt)
	if res.HasConflict {
		note += "; resolved conflict " + string(res.ConflictType)
	}
	return note
}

func (s *Service) auditConflict(ctx context.Context, before screening.Call, res screening.Resolution) {
	s.log(ctx).Warn("screening conflict resolved",
		"screening_call_id", before.ID,
		"application_id", before.ApplicationID,
		"conflict", res.ConflictType,
	)
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"status_before": string(before.Status),
		"status_after":  string(res.Resolved.Status),
		"had_error":     before.HasError(),
	}
	if err := s.audit.LogConflictResolved(ctx, before.ApplicationID, before.ID, string(res.ConflictType), meta); err != nil {
		s.log(ctx).Warn("audit write failed", "screening_call_id", before.ID, "err", err)
	}
}

// ScheduleRequest asks for a new screening call attempt.
type ScheduleRequest struct {
	ApplicationID string
	ActorRole     rbac.Role
	ActorUserID   string
}

// ScheduleScreening creates the next screening call for an application and moves the
// application to screening_scheduled. MaxCompletedCalls and MaxRetries bound the
// number of calls per application.
func (s *Service) ScheduleScreening(ctx context.Context, req ScheduleRequest) (screening.Call, applications.Application, error) {
	if req.ApplicationID == "" {
		return screening.Call{}, applications.Application{}, fmt.Errorf("%w: application id required", ErrInvalidArgument)
	}
	if !req.ActorRole.Valid() {
		return screening.Call{}, applications.Application{}, fmt.Errorf("%w: unknown actor role %q", ErrInvalidArgument, req.ActorRole)
	}

	unlock, err := s.locker.Lock(ctx, lockKey(req.ApplicationID))
	if err != nil {
		return screening.Call{}, applications.Application{}, err
	}
	defer unlock()

	app, err := s.getApp(ctx, req.ApplicationID)
	if err != nil {
		return screening.Call{}, applications.Application{}, err
	}

	switch app.Status {
	case applications.StatusSubmitted, applications.StatusScreeningInProgress:
		if terr := s.check(app.Status, TransitionRequest{ToStatus: applications.StatusScreeningScheduled, ActorRole: req.ActorRole}); terr != nil {
			return screening.Call{}, app, terr
		}
	case applications.StatusScreeningScheduled:
		if req.ActorRole == rbac.RoleCandidate {
			return screening.Call{}, app, &TransitionError{From: app.Status, To: app.Status, Role: req.ActorRole, Reason: "role not permitted"}
		}
	default:
		return screening.Call{}, app, &TransitionError{
			From:   app.Status,
			To:     applications.StatusScreeningScheduled,
			Role:   req.ActorRole,
			Reason: "screening cannot be scheduled from this status",
		}
	}

	existing, err := s.calls.List(ctx, screening.Filter{ApplicationID: app.ID})
	if err != nil {
		return screening.Call{}, app, err
	}
	completed := 0
	for _, c := range existing {
		if !c.Status.IsTerminal() {
			return screening.Call{}, app, fmt.Errorf("%w: call %s is %s", ErrScreeningActive, c.ID, c.Status)
		}
		if c.Status == screening.StatusCompleted {
			completed++
		}
	}
	if completed >= s.cfg.MaxCompletedCalls {
		return screening.Call{}, app, fmt.Errorf("%w: %d completed call(s)", ErrScreeningLimit, completed)
	}
	if len(existing) >= 1+s.cfg.MaxRetries {
		return screening.Call{}, app, fmt.Errorf("%w: %d attempt(s), %d retries allowed", ErrScreeningLimit, len(existing), s.cfg.MaxRetries)
	}

	attempt := len(existing) + 1
	if app.Status != applications.StatusScreeningScheduled {
		app, err = s.transitionLocked(ctx, TransitionRequest{
			ApplicationID: app.ID,
			ToStatus:      applications.StatusScreeningScheduled,
			ToStep:        applications.StepScreeningCallScheduled,
			Note:          fmt.Sprintf("screening attempt %d scheduled", attempt),
			ActorRole:     req.ActorRole,
			ActorUserID:   req.ActorUserID,
		})
		if err != nil {
			return screening.Call{}, app, err
		}
	}

	now := s.now()
	call := screening.Call{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		Status:        screening.StatusScheduled,
		Attempt:       attempt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.calls.Put(ctx, call); err != nil {
		return screening.Call{}, app, err
	}

	s.log(ctx).Info("screening scheduled", "application_id", app.ID, "screening_call_id", call.ID, "attempt", attempt)
	return call, app, nil
}

// AllowedTransitions lists the transitions role may take from the application's current status.
func (s *Service) AllowedTransitions(ctx context.Context, applicationID string, role rbac.Role) ([]Transition, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown actor role %q", ErrInvalidArgument, role)
	}
	app, err := s.getApp(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	next := AllowedNextStatuses(app.Status, role)
	out := make([]Transition, 0, len(next))
	for _, to := range next {
		t, _ := Lookup(app.Status, to)
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) GetApplication(ctx context.Context, applicationID string) (applications.Application, error) {
	return s.getApp(ctx, applicationID)
}

// History returns a fresh snapshot of the application's timeline.
func (s *Service) History(ctx context.Context, applicationID string) ([]applications.TimelineEntry, error) {
	out, err := s.ledger.History(ctx, applicationID)
	if errors.Is(err, applications.ErrNotFound) {
		return nil, notFound(err, "application", applicationID)
	}
	return out, err
}

// Screenings lists the screening calls of an application, oldest first.
func (s *Service) Screenings(ctx context.Context, applicationID string) ([]screening.Call, error) {
	if _, err := s.getApp(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.calls.List(ctx, screening.Filter{ApplicationID: applicationID})
}

func (s *Service) getApp(ctx context.Context, id string) (applications.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if errors.Is(err, applications.ErrNotFound) {
		return applications.Application{}, notFound(err, "application", id)
	}
	return app, err
}

func (s *Service) getCall(ctx context.Context, id string) (screening.Call, error) {
	c, err := s.calls.Get(ctx, id)
	if errors.Is(err, screening.ErrNotFound) {
		return screening.Call{}, notFound(err, "screening call", id)
	}
	return c, err
}
