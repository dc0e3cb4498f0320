package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/planner-api/internal/models"
)

// EvaluationKey identifies one student's plan for one term.
type EvaluationKey struct {
	StudentID string
	Term      string
	Year      int
}

func (k EvaluationKey) String() string {
	return k.StudentID + "/" + k.Term + "/" + strconv.Itoa(k.Year)
}

// RequisiteFingerprint summarizes the inputs of a requisite resolution. Order of ids does not matter.
func RequisiteFingerprint(term string, year int, scheduled, completed []string) string {
	var b strings.Builder
	b.WriteString(term)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(year))
	b.WriteByte('|')
	b.WriteString(strings.Join(sortedUnique(scheduled), ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(sortedUnique(completed), ","))
	return b.String()
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolution is what a tracked requisite run hands back to its caller.
type Resolution struct {
	Conflicts []models.Conflict
	// Stale is set when the run was superseded and Conflicts are the last applied ones.
	Stale   bool
	Outcome string
}

// ResolveFunc computes requisite conflicts; it must honour ctx cancellation.
type ResolveFunc func(ctx context.Context) ([]models.Conflict, error)

const defaultTrackerIdleTTL = 10 * time.Minute

type trackedPlan struct {
	generation  uint64
	cancel      context.CancelFunc
	fingerprint string
	applied     []models.Conflict
	hasApplied  bool
	lastUsed    time.Time
}

// ConflictTracker guards requisite resolution per evaluation key. Every new run supersedes and cancels
// the one in flight, and only the latest run may publish its result. Keys with no run in flight that
// have been idle for longer than the idle TTL are evicted.
type ConflictTracker struct {
	mu        sync.Mutex
	plans     map[EvaluationKey]*trackedPlan
	metrics   *MetricsService
	logger    *zap.Logger
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewConflictTracker constructs a tracker.
func NewConflictTracker(metrics *MetricsService, logger *zap.Logger) *ConflictTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictTracker{
		plans:   make(map[EvaluationKey]*trackedPlan),
		metrics: metrics,
		logger:  logger,
		idleTTL: defaultTrackerIdleTTL,
		now:     time.Now,
	}
}

// SetIdleTTL changes how long an idle key is kept. Non-positive values are ignored.
func (t *ConflictTracker) SetIdleTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t.mu.Lock()
	t.idleTTL = ttl
	t.mu.Unlock()
}

// Resolve runs resolve for key unless fingerprint matches the last applied run, in which case the applied
// conflicts are reused. A run that gets superseded returns the latest applied conflicts flagged stale.
func (t *ConflictTracker) Resolve(ctx context.Context, key EvaluationKey, fingerprint string, resolve ResolveFunc) (Resolution, error) {
	t.mu.Lock()
	now := t.now()
	t.evictIdle(now)
	plan, ok := t.plans[key]
	if !ok {
		plan = &trackedPlan{}
		t.plans[key] = plan
	}
	plan.lastUsed = now
	plan.generation++
	gen := plan.generation
	if plan.cancel != nil {
		plan.cancel()
		plan.cancel = nil
	}
	if plan.hasApplied && plan.fingerprint == fingerprint {
		out := cloneConflicts(plan.applied)
		t.mu.Unlock()
		t.metrics.RecordResolution(ResolutionReused)
		return Resolution{Conflicts: out, Outcome: ResolutionReused}, nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	plan.cancel = cancel
	t.mu.Unlock()

	conflicts, err := resolve(runCtx)

	t.mu.Lock()
	defer t.mu.Unlock()
	cancel()
	if plan.generation != gen {
		t.logger.Debug("discarding superseded requisite resolution", zap.String("key", key.String()), zap.Uint64("generation", gen))
		t.metrics.RecordResolution(ResolutionSuperseded)
		return Resolution{Conflicts: cloneConflicts(plan.applied), Stale: true, Outcome: ResolutionSuperseded}, nil
	}
	plan.cancel = nil
	plan.lastUsed = t.now()
	if err != nil {
		return Resolution{}, err
	}
	plan.applied = cloneConflicts(conflicts)
	plan.fingerprint = fingerprint
	plan.hasApplied = true
	t.metrics.RecordResolution(ResolutionApplied)
	return Resolution{Conflicts: conflicts, Outcome: ResolutionApplied}, nil
}

// Latest returns the last applied requisite conflicts for key.
func (t *ConflictTracker) Latest(key EvaluationKey) ([]models.Conflict, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	plan, ok := t.plans[key]
	if !ok || !plan.hasApplied {
		return nil, false
	}
	return cloneConflicts(plan.applied), true
}

// Forget drops the state held for key, cancelling any run in flight.
func (t *ConflictTracker) Forget(key EvaluationKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if plan, ok := t.plans[key]; ok {
		if plan.cancel != nil {
			plan.cancel()
		}
		delete(t.plans, key)
	}
}

// Reset drops the applied results of every key so the next evaluation resolves afresh.
func (t *ConflictTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, plan := range t.plans {
		plan.hasApplied = false
		plan.fingerprint = ""
	}
}

// Len reports how many keys are tracked.
func (t *ConflictTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.plans)
}

// evictIdle drops idle keys; it runs at most once per half TTL. Callers hold t.mu.
func (t *ConflictTracker) evictIdle(now time.Time) {
	if now.Sub(t.lastSweep) < t.idleTTL/2 {
		return
	}
	t.lastSweep = now
	for key, plan := range t.plans {
		if plan.cancel == nil && now.Sub(plan.lastUsed) >= t.idleTTL {
			delete(t.plans, key)
		}
	}
}

func cloneConflicts(in []models.Conflict) []models.Conflict {
	if in == nil {
		return nil
	}
	out := make([]models.Conflict, len(in))
	copy(out, in)
	return out
}
