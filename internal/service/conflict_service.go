package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/planner-api/internal/conflict"
	"github.com/noah-isme/planner-api/internal/dto"
	"github.com/noah-isme/planner-api/internal/models"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
	"github.com/noah-isme/planner-api/pkg/ics"
	"github.com/noah-isme/planner-api/pkg/jobs"
)

// JobTypeRecompute tags background conflict recomputes.
const JobTypeRecompute = "conflicts.recompute"

type planSource interface {
	ListEvents(ctx context.Context, studentID, term string, year int) ([]models.PlanEvent, error)
	ListPlannedSections(ctx context.Context, studentID, term string, year int) ([]models.PlannedSection, error)
	ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type recomputeQueue interface {
	Enqueue(job jobs.Job) (bool, error)
}

// ConflictServiceParams groups dependencies for the conflict service.
type ConflictServiceParams struct {
	Plans      planSource
	Requisites conflict.RequisiteProvider
	Tracker    *ConflictTracker
	Metrics    *MetricsService
	Location   *time.Location
	Validator  *validator.Validate
	Logger     *zap.Logger
	Now        func() time.Time
}

// ConflictService evaluates a student's term plan for scheduling and eligibility conflicts.
type ConflictService struct {
	plans     planSource
	resolver  *conflict.Resolver
	tracker   *ConflictTracker
	metrics   *MetricsService
	location  *time.Location
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	queue     recomputeQueue
}

// NewConflictService constructs the service.
func NewConflictService(params ConflictServiceParams) *ConflictService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Location == nil {
		params.Location = time.Local
	}
	if params.Tracker == nil {
		params.Tracker = NewConflictTracker(params.Metrics, params.Logger)
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &ConflictService{
		plans:     params.Plans,
		resolver:  conflict.NewResolver(params.Requisites, params.Metrics, params.Logger),
		tracker:   params.Tracker,
		metrics:   params.Metrics,
		location:  params.Location,
		validator: params.Validator,
		logger:    params.Logger,
		now:       params.Now,
	}
}

// UseQueue attaches the background queue used by Refresh.
func (s *ConflictService) UseQueue(queue recomputeQueue) {
	s.queue = queue
}

// Evaluate runs the full conflict pipeline over the stored plan.
func (s *ConflictService) Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.ConflictReport, error) {
	return s.evaluate(ctx, req, nil)
}

// Preview evaluates the stored plan with extra events layered on top. Nothing is persisted.
func (s *ConflictService) Preview(ctx context.Context, req dto.EvaluateRequest, extra []models.PlanEvent) (*dto.ConflictReport, error) {
	return s.evaluate(ctx, req, extra)
}

// PreviewCalendar evaluates the stored plan against the busy times of an iCalendar payload.
// Recurring busy times are folded into one representative week.
func (s *ConflictService) PreviewCalendar(ctx context.Context, req dto.EvaluateRequest, calendar io.Reader) (*dto.ConflictReport, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	extra, err := CalendarEvents(calendar, req.Term, req.Year, s.location)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, req, extra)
}

// CalendarEvents turns an iCalendar payload into unavailable plan events for term and year.
func CalendarEvents(calendar io.Reader, term string, year int, loc *time.Location) ([]models.PlanEvent, error) {
	parsed, err := ics.Parse(calendar)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar payload")
	}
	occurrences, err := ics.WeeklyOccurrences(parsed, loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence rule")
	}
	events := make([]models.PlanEvent, 0, len(occurrences))
	for _, o := range occurrences {
		events = append(events, models.PlanEvent{
			ID:       "ics-" + o.UID + "-" + o.Start.Format("20060102"),
			Type:     models.PlanEventUnavailable,
			Title:    o.Summary,
			Start:    o.Start.Format(time.RFC3339),
			End:      o.End.Format(time.RFC3339),
			TermName: term,
			TermYear: year,
		})
	}
	return events, nil
}

// ForCourse evaluates the plan and narrows the result to one course.
func (s *ConflictService) ForCourse(ctx context.Context, req dto.EvaluateRequest, courseID string) (*dto.CourseConflicts, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	report, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	conflicts := report.ForCourse(courseID)
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	return &dto.CourseConflicts{
		CourseID:    courseID,
		Term:        report.Term,
		Year:        report.Year,
		HasConflict: len(conflicts) > 0,
		Conflicts:   conflicts,
	}, nil
}

// Refresh queues a recompute that bypasses the reuse of previous requisite results.
func (s *ConflictService) Refresh(ctx context.Context, studentID string, req dto.RefreshRequest) (*dto.RefreshAccepted, error) {
	eval := dto.EvaluateRequest{StudentID: studentID, Term: req.Term, Year: req.Year}
	if err := s.validate(eval); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "background recompute is not available")
	}
	key := EvaluationKey{StudentID: studentID, Term: req.Term, Year: req.Year}
	job := jobs.Job{ID: uuid.NewString(), Key: key.String(), Type: JobTypeRecompute, Payload: key}
	coalesced, err := s.queue.Enqueue(job)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to queue recompute")
	}
	s.logger.Info("recompute queued", zap.String("job_id", job.ID), zap.String("key", job.Key), zap.Bool("coalesced", coalesced))
	return &dto.RefreshAccepted{JobID: job.ID, Term: req.Term, Year: req.Year, Coalesced: coalesced}, nil
}

// HandleRecompute is the queue handler behind Refresh.
func (s *ConflictService) HandleRecompute(ctx context.Context, job jobs.Job) error {
	key, ok := job.Payload.(EvaluationKey)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	s.tracker.Forget(key)
	report, err := s.Evaluate(ctx, dto.EvaluateRequest{StudentID: key.StudentID, Term: key.Term, Year: key.Year})
	if err != nil {
		return err
	}
	s.logger.Info("recompute finished",
		zap.String("job_id", job.ID),
		zap.String("key", key.String()),
		zap.Int("conflicts", len(report.Conflicts)),
	)
	return nil
}

func (s *ConflictService) validate(req dto.EvaluateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "StudentID" {
					return appErrors.Clone(appErrors.ErrUnauthorized, "student identity missing")
				}
			}
		}
		return appErrors.Wrap(err, appErrors.ErrInvalidTerm.Code, appErrors.ErrInvalidTerm.Status, appErrors.ErrInvalidTerm.Message)
	}
	return nil
}

type planSnapshot struct {
	events    []models.PlanEvent
	sections  []models.PlannedSection
	completed []string
}

func (s *ConflictService) load(ctx context.Context, req dto.EvaluateRequest) (*planSnapshot, error) {
	var snap planSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		events, err := s.plans.ListEvents(gctx, req.StudentID, req.Term, req.Year)
		snap.events = events
		return err
	})
	g.Go(func() error {
		sections, err := s.plans.ListPlannedSections(gctx, req.StudentID, req.Term, req.Year)
		snap.sections = sections
		return err
	})
	g.Go(func() error {
		completed, err := s.plans.ListCompletedCourseIDs(gctx, req.StudentID)
		snap.completed = completed
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	return &snap, nil
}

func (s *ConflictService) evaluate(ctx context.Context, req dto.EvaluateRequest, extra []models.PlanEvent) (*dto.ConflictReport, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	start := time.Now()

	snap, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	events := append(snap.events, extra...)

	blocks := conflict.Extract(events, req.Term, req.Year, s.location)
	overlaps := conflict.DetectOverlaps(req.Term, req.Year, blocks.Courses, blocks.Unavailable, snap.sections)

	scheduled := conflict.ScheduledCourses(blocks.Courses)
	completed := conflict.NewCourseSet(snap.completed...)
	scheduledIDs := make([]string, 0, len(scheduled))
	for _, c := range scheduled {
		scheduledIDs = append(scheduledIDs, c.CourseID)
	}

	key := EvaluationKey{StudentID: req.StudentID, Term: req.Term, Year: req.Year}
	fingerprint := RequisiteFingerprint(req.Term, req.Year, scheduledIDs, snap.completed)
	resolution, err := s.tracker.Resolve(ctx, key, fingerprint, func(ctx context.Context) ([]models.Conflict, error) {
		return s.resolver.Resolve(ctx, req.Term, req.Year, scheduled, completed)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "evaluation cancelled")
		}
		return nil, appErrors.FromError(err)
	}

	result := conflict.Aggregate(overlaps, resolution.Conflicts)
	counts := result.CountByType()
	s.metrics.RecordConflicts(counts)
	s.metrics.ObserveEvaluation(time.Since(start))

	conflicts := result.Conflicts
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	courses := result.CourseIDs()
	if courses == nil {
		courses = []string{}
	}
	s.logger.Debug("plan evaluated",
		zap.String("key", key.String()),
		zap.Int("conflicts", len(conflicts)),
		zap.String("resolution", resolution.Outcome),
	)
	return &dto.ConflictReport{
		StudentID:            req.StudentID,
		Term:                 req.Term,
		Year:                 req.Year,
		HasConflicts:         len(conflicts) > 0,
		Conflicts:            conflicts,
		CoursesWithConflicts: courses,
		Counts:               counts,
		RequisitesStale:      resolution.Stale,
		EvaluatedAt:          s.now().UTC(),
	}, nil
}
