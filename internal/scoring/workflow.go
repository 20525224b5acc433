package scoring

import (
	"time"

	"github.com/google/uuid"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/apperr"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/store"
)

// Workflow drives the evaluation-scoring state machine: score upserts while
// pending, submit once complete, lock irreversibly.
type Workflow struct {
	store store.EvalStore
	now   func() time.Time
}

func NewWorkflow(s store.EvalStore) *Workflow {
	return &Workflow{store: s, now: time.Now}
}

type ScoreInput struct {
	CriterionID string `json:"criterionId"`
	SubjectType string `json:"subjectType"`
	SubjectID   string `json:"subjectId"`
	Score       int    `json:"score"`
	Comment     string `json:"comment"`
}

type BulkResult struct {
	Applied    int    `json:"applied"`
	Failed     int    `json:"failed"`
	FirstError string `json:"firstError,omitempty"`
}

func (w *Workflow) getOwned(actor models.Actor, evaluationID string) (*models.Evaluation, error) {
	eval, err := w.store.GetEvaluation(evaluationID)
	if err != nil {
		return nil, apperr.Server("failed to load evaluation", err)
	}
	if eval == nil {
		return nil, apperr.NotFound("evaluation %s not found", evaluationID)
	}
	if !actor.IsAdmin() && eval.EvaluatorID != actor.ID {
		return nil, apperr.Forbidden("evaluation belongs to another evaluator")
	}
	return eval, nil
}

// EnsureEvaluation returns the (schedule, evaluator) assignment, creating it
// on first touch.
func (w *Workflow) EnsureEvaluation(actor models.Actor, scheduleID, evaluatorID string) (*models.Evaluation, error) {
	if !actor.IsAdmin() && evaluatorID != actor.ID {
		return nil, apperr.Forbidden("cannot create an evaluation for another evaluator")
	}

	schedule, err := w.store.GetSchedule(scheduleID)
	if err != nil {
		return nil, apperr.Server("failed to load schedule", err)
	}
	if schedule == nil {
		return nil, apperr.NotFound("schedule %s not found", scheduleID)
	}

	existing, err := w.store.GetEvaluationByAssignment(scheduleID, evaluatorID)
	if err != nil {
		return nil, apperr.Server("failed to load evaluation", err)
	}
	if existing != nil {
		return existing, nil
	}

	eval := &models.Evaluation{
		ID:          uuid.NewString(),
		ScheduleID:  scheduleID,
		EvaluatorID: evaluatorID,
		Status:      models.StatusPending,
		CreatedAt:   w.now().Unix(),
	}
	if err := w.store.CreateEvaluation(eval); err != nil {
		// concurrent first touch: the unique assignment constraint means
		// someone else just created it
		existing, gerr := w.store.GetEvaluationByAssignment(scheduleID, evaluatorID)
		if gerr == nil && existing != nil {
			return existing, nil
		}
		return nil, apperr.Server("failed to create evaluation", err)
	}
	return eval, nil
}

func (w *Workflow) UpsertScore(actor models.Actor, evaluationID string, in ScoreInput) (*models.EvaluationScore, error) {
	eval, err := w.getOwned(actor, evaluationID)
	if err != nil {
		return nil, err
	}
	if eval.IsLocked() {
		return nil, apperr.Forbidden("evaluation is locked")
	}

	criterion, err := w.store.GetCriterion(in.CriterionID)
	if err != nil {
		return nil, apperr.Server("failed to load criterion", err)
	}
	if criterion == nil {
		return nil, apperr.NotFound("criterion %s not found", in.CriterionID)
	}

	if in.SubjectType != models.SubjectGroup && in.SubjectType != models.SubjectStudent {
		return nil, apperr.Validation("subjectType must be %q or %q", models.SubjectGroup, models.SubjectStudent)
	}
	if in.SubjectID == "" {
		return nil, apperr.Validation("subjectId is required")
	}
	if in.Score < criterion.MinScore || in.Score > criterion.MaxScore {
		return nil, apperr.Validation(
			"score %d outside range [%d, %d] for criterion %s",
			in.Score, criterion.MinScore, criterion.MaxScore, criterion.Name,
		)
	}

	score := &models.EvaluationScore{
		ID:           uuid.NewString(),
		EvaluationID: eval.ID,
		CriterionID:  in.CriterionID,
		SubjectType:  in.SubjectType,
		SubjectID:    in.SubjectID,
		Score:        in.Score,
		Comment:      in.Comment,
	}

	applied, err := w.store.UpsertScore(score)
	if err != nil {
		return nil, apperr.Server("failed to save score", err)
	}
	if !applied {
		// the status guard swallowed the write: locked between our read
		// and the statement
		return nil, apperr.Forbidden("evaluation is locked")
	}

	stored, err := w.store.GetScore(eval.ID, in.CriterionID, in.SubjectType, in.SubjectID)
	if err != nil {
		return nil, apperr.Server("failed to load score", err)
	}
	if stored == nil {
		return score, nil
	}
	return stored, nil
}

// BulkUpsert applies each item independently. Partial failure is reported,
// not rolled back; callers retry failed rows individually.
func (w *Workflow) BulkUpsert(actor models.Actor, evaluationID string, items []ScoreInput) (*BulkResult, error) {
	if _, err := w.getOwned(actor, evaluationID); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, item := range items {
		if _, err := w.UpsertScore(actor, evaluationID, item); err != nil {
			result.Failed++
			if result.FirstError == "" {
				result.FirstError = err.Error()
			}
			continue
		}
		result.Applied++
	}
	return result, nil
}

func (w *Workflow) ListScores(actor models.Actor, evaluationID string) ([]models.EvaluationScore, error) {
	if _, err := w.getOwned(actor, evaluationID); err != nil {
		return nil, err
	}

	scores, err := w.store.ListScores(evaluationID)
	if err != nil {
		return nil, apperr.Server("failed to list scores", err)
	}
	return scores, nil
}

// Summarize assembles the completeness/aggregation view. Every lookup except
// the evaluation itself degrades to an empty result on failure, so a partial
// backend outage still yields a usable summary.
func (w *Workflow) Summarize(actor models.Actor, evaluationID string) (*Summary, error) {
	eval, err := w.getOwned(actor, evaluationID)
	if err != nil {
		return nil, err
	}

	criteria := w.resolveCriteria(eval.ID)
	targets := w.resolveTargets(eval.ScheduleID)

	scores, err := w.store.ListScores(eval.ID)
	if err != nil {
		scores = nil
	}

	summary := BuildSummary(criteria, targets, scores)
	return &summary, nil
}

func (w *Workflow) resolveCriteria(evaluationID string) []models.RubricCriterion {
	var templateCriteria []models.RubricCriterion
	template, err := w.store.GetActiveTemplate()
	if err == nil && template != nil {
		if cs, err := w.store.ListCriteria(template.ID); err == nil {
			templateCriteria = cs
		}
	}

	scoredCriteria, err := w.store.ListScoredCriteria(evaluationID)
	if err != nil {
		scoredCriteria = nil
	}

	return MergeCriteria(templateCriteria, scoredCriteria)
}

func (w *Workflow) resolveTargets(scheduleID string) []Target {
	schedule, err := w.store.GetSchedule(scheduleID)
	if err != nil || schedule == nil {
		return nil
	}

	group, err := w.store.GetGroup(schedule.GroupID)
	if err != nil {
		group = nil
	}

	members, err := w.store.ListGroupMembers(schedule.GroupID)
	if err != nil {
		members = nil
	}

	return ResolveTargets(group, members)
}

// Submit transitions pending -> submitted, refused while any target still
// has unscored criteria.
func (w *Workflow) Submit(actor models.Actor, evaluationID string) (*models.Evaluation, error) {
	eval, err := w.getOwned(actor, evaluationID)
	if err != nil {
		return nil, err
	}
	if eval.IsLocked() {
		return nil, apperr.Forbidden("evaluation is locked")
	}
	if eval.Status == models.StatusSubmitted {
		return nil, apperr.Validation("evaluation already submitted")
	}

	summary, err := w.Summarize(actor, evaluationID)
	if err != nil {
		return nil, err
	}
	if summary.Remaining > 0 {
		return nil, apperr.Validation("%d scores still missing", summary.Remaining)
	}

	ok, err := w.store.MarkSubmitted(eval.ID, w.now().Unix())
	if err != nil {
		return nil, apperr.Server("failed to submit evaluation", err)
	}
	if !ok {
		return nil, apperr.Forbidden("evaluation is no longer pending")
	}

	return w.reload(eval.ID)
}

// Lock finalizes the evaluation unconditionally; completeness is not
// required. Locked is terminal.
func (w *Workflow) Lock(actor models.Actor, evaluationID string) (*models.Evaluation, error) {
	eval, err := w.getOwned(actor, evaluationID)
	if err != nil {
		return nil, err
	}
	if eval.IsLocked() {
		return nil, apperr.Validation("evaluation already locked")
	}

	ok, err := w.store.MarkLocked(eval.ID, w.now().Unix())
	if err != nil {
		return nil, apperr.Server("failed to lock evaluation", err)
	}
	if !ok {
		return nil, apperr.Validation("evaluation already locked")
	}

	return w.reload(eval.ID)
}

// Reset deletes every score of the evaluation, leaving its status untouched.
func (w *Workflow) Reset(actor models.Actor, evaluationID string) (int64, error) {
	eval, err := w.getOwned(actor, evaluationID)
	if err != nil {
		return 0, err
	}
	if eval.IsLocked() {
		return 0, apperr.Forbidden("evaluation is locked")
	}

	count, err := w.store.DeleteScores(eval.ID)
	if err != nil {
		return 0, apperr.Server("failed to delete scores", err)
	}
	return count, nil
}

func (w *Workflow) reload(id string) (*models.Evaluation, error) {
	eval, err := w.store.GetEvaluation(id)
	if err != nil {
		return nil, apperr.Server("failed to load evaluation", err)
	}
	if eval == nil {
		return nil, apperr.NotFound("evaluation %s not found", id)
	}
	return eval, nil
}
