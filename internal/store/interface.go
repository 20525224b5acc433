package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
)

type EvalStore interface {
	Close() error
	ApplyMigrations(dir string) error

	GetUser(id string) (*models.User, error)
	GetSchedule(id string) (*models.DefenseSchedule, error)
	GetGroup(id string) (*models.ThesisGroup, error)
	ListGroupMembers(groupID string) ([]models.GroupMember, error)

	CreateTemplate(t *models.RubricTemplate) error
	GetTemplate(id string) (*models.RubricTemplate, error)
	GetActiveTemplate() (*models.RubricTemplate, error)
	ListTemplates() ([]models.RubricTemplate, error)
	UpdateTemplate(id string, patch models.TemplatePatch) (bool, error)
	DeleteTemplate(id string) (bool, error)

	CreateCriterion(c *models.RubricCriterion) error
	GetCriterion(id string) (*models.RubricCriterion, error)
	ListCriteria(templateID string) ([]models.RubricCriterion, error)
	ListScoredCriteria(evaluationID string) ([]models.RubricCriterion, error)
	UpdateCriterion(id string, patch models.CriterionPatch) (bool, error)
	DeleteCriterion(id string) (bool, error)

	CreateEvaluation(e *models.Evaluation) error
	GetEvaluation(id string) (*models.Evaluation, error)
	GetEvaluationByAssignment(scheduleID, evaluatorID string) (*models.Evaluation, error)
	ListEvaluations(evaluatorID string) ([]models.Evaluation, error)
	ListEvaluationsBySchedule(scheduleID string) ([]models.Evaluation, error)
	MarkSubmitted(id string, ts int64) (bool, error)
	MarkLocked(id string, ts int64) (bool, error)
	ListPendingDefenses(from, until int64) ([]PendingDefense, error)

	UpsertScore(s *models.EvaluationScore) (bool, error)
	GetScore(evaluationID, criterionID, subjectType, subjectID string) (*models.EvaluationScore, error)
	ListScores(evaluationID string) ([]models.EvaluationScore, error)
	DeleteScores(evaluationID string) (int64, error)

	UpsertStudentEvaluation(e *models.StudentEvaluation) (bool, error)
	GetStudentEvaluation(scheduleID, studentID string) (*models.StudentEvaluation, error)
	ListStudentEvaluations(studentID string) ([]models.StudentEvaluation, error)
	UpdateStudentEvaluationStatus(id, status string, ts int64) (bool, error)
	DeleteStudentEvaluation(id string) (bool, error)

	RecordAudit(ev *models.AuditEvent) error
	ListAuditEvents(limit int) ([]models.AuditEvent, error)
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) GetUser(id string) (*models.User, error) {
	var user models.User
	query := s.Converter(`
		SELECT id, name, email, role
		FROM users
		WHERE id = ?
	`)

	err := s.DB.Get(&user, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *BaseStore) GetSchedule(id string) (*models.DefenseSchedule, error) {
	var schedule models.DefenseSchedule
	query := s.Converter(`
		SELECT id, group_id, starts_at, room
		FROM defense_schedules
		WHERE id = ?
	`)

	err := s.DB.Get(&schedule, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

func (s *BaseStore) GetGroup(id string) (*models.ThesisGroup, error) {
	var group models.ThesisGroup
	query := s.Converter(`
		SELECT id, title
		FROM thesis_groups
		WHERE id = ?
	`)

	err := s.DB.Get(&group, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

func (s *BaseStore) ListGroupMembers(groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	query := s.Converter(`
		SELECT
			gm.group_id,
			gm.student_id,
			COALESCE(u.name, '') AS name,
			COALESCE(u.email, '') AS email
		FROM group_members gm
		LEFT JOIN users u ON u.id = gm.student_id
		WHERE gm.group_id = ?
		ORDER BY gm.student_id
	`)

	err := s.DB.Select(&members, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	return members, nil
}

func (s *BaseStore) CreateTemplate(t *models.RubricTemplate) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO rubric_templates (id, name, version, active, description)
		VALUES (:id, :name, :version, :active, :description)
	`, t)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (s *BaseStore) GetTemplate(id string) (*models.RubricTemplate, error) {
	var t models.RubricTemplate
	query := s.Converter(`
		SELECT id, name, version, active, description
		FROM rubric_templates
		WHERE id = ?
	`)

	err := s.DB.Get(&t, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// GetActiveTemplate resolves the template in effect: the highest-versioned
// active one, newest id breaking ties.
func (s *BaseStore) GetActiveTemplate() (*models.RubricTemplate, error) {
	var t models.RubricTemplate
	err := s.DB.Get(&t, `
		SELECT id, name, version, active, description
		FROM rubric_templates
		WHERE active = TRUE
		ORDER BY version DESC, id DESC
		LIMIT 1
	`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active template: %w", err)
	}
	return &t, nil
}

func (s *BaseStore) ListTemplates() ([]models.RubricTemplate, error) {
	var templates []models.RubricTemplate
	err := s.DB.Select(&templates, `
		SELECT id, name, version, active, description
		FROM rubric_templates
		ORDER BY name, version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *BaseStore) UpdateTemplate(id string, patch models.TemplatePatch) (bool, error) {
	query := s.Converter(`
		UPDATE rubric_templates SET
			name = COALESCE(?, name),
			version = COALESCE(?, version),
			active = COALESCE(?, active),
			description = COALESCE(?, description)
		WHERE id = ?
	`)

	res, err := s.DB.Exec(query, patch.Name, patch.Version, patch.Active, patch.Description, id)
	if err != nil {
		return false, fmt.Errorf("failed to update template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update template: %w", err)
	}
	return n > 0, nil
}

// DeleteTemplate removes a template; its criteria go with it via
// ON DELETE CASCADE.
func (s *BaseStore) DeleteTemplate(id string) (bool, error) {
	query := s.Converter(`DELETE FROM rubric_templates WHERE id = ?`)
	res, err := s.DB.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete template: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) CreateCriterion(c *models.RubricCriterion) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO rubric_criteria (id, template_id, name, description, weight, min_score, max_score)
		VALUES (:id, :template_id, :name, :description, :weight, :min_score, :max_score)
	`, c)
	if err != nil {
		return fmt.Errorf("failed to create criterion: %w", err)
	}
	return nil
}

func (s *BaseStore) GetCriterion(id string) (*models.RubricCriterion, error) {
	var c models.RubricCriterion
	query := s.Converter(`
		SELECT id, template_id, name, description, weight, min_score, max_score
		FROM rubric_criteria
		WHERE id = ?
	`)

	err := s.DB.Get(&c, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get criterion: %w", err)
	}
	return &c, nil
}

func (s *BaseStore) ListCriteria(templateID string) ([]models.RubricCriterion, error) {
	var criteria []models.RubricCriterion
	query := s.Converter(`
		SELECT id, template_id, name, description, weight, min_score, max_score
		FROM rubric_criteria
		WHERE template_id = ?
		ORDER BY name, id
	`)

	err := s.DB.Select(&criteria, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	return criteria, nil
}

// ListScoredCriteria returns the criteria referenced by existing score rows
// of an evaluation. Used as the tolerant-merge fallback when the active
// template no longer covers legacy scores.
func (s *BaseStore) ListScoredCriteria(evaluationID string) ([]models.RubricCriterion, error) {
	var criteria []models.RubricCriterion
	query := s.Converter(`
		SELECT DISTINCT c.id, c.template_id, c.name, c.description, c.weight, c.min_score, c.max_score
		FROM rubric_criteria c
		JOIN evaluation_scores es ON es.criterion_id = c.id
		WHERE es.evaluation_id = ?
		ORDER BY c.name, c.id
	`)

	err := s.DB.Select(&criteria, query, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scored criteria: %w", err)
	}
	return criteria, nil
}

func (s *BaseStore) UpdateCriterion(id string, patch models.CriterionPatch) (bool, error) {
	query := s.Converter(`
		UPDATE rubric_criteria SET
			name = COALESCE(?, name),
			description = COALESCE(?, description),
			weight = COALESCE(?, weight),
			min_score = COALESCE(?, min_score),
			max_score = COALESCE(?, max_score)
		WHERE id = ?
	`)

	res, err := s.DB.Exec(query, patch.Name, patch.Description, patch.Weight, patch.MinScore, patch.MaxScore, id)
	if err != nil {
		return false, fmt.Errorf("failed to update criterion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update criterion: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) DeleteCriterion(id string) (bool, error) {
	query := s.Converter(`DELETE FROM rubric_criteria WHERE id = ?`)
	res, err := s.DB.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete criterion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete criterion: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) CreateEvaluation(e *models.Evaluation) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO evaluations (id, schedule_id, evaluator_id, status, submitted_at, locked_at, created_at)
		VALUES (:id, :schedule_id, :evaluator_id, :status, :submitted_at, :locked_at, :created_at)
	`, e)
	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

func (s *BaseStore) GetEvaluation(id string) (*models.Evaluation, error) {
	var e models.Evaluation
	query := s.Converter(`
		SELECT id, schedule_id, evaluator_id, status, submitted_at, locked_at, created_at
		FROM evaluations
		WHERE id = ?
	`)

	err := s.DB.Get(&e, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return &e, nil
}

func (s *BaseStore) GetEvaluationByAssignment(scheduleID, evaluatorID string) (*models.Evaluation, error) {
	var e models.Evaluation
	query := s.Converter(`
		SELECT id, schedule_id, evaluator_id, status, submitted_at, locked_at, created_at
		FROM evaluations
		WHERE schedule_id = ? AND evaluator_id = ?
	`)

	err := s.DB.Get(&e, query, scheduleID, evaluatorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation by assignment: %w", err)
	}
	return &e, nil
}

func (s *BaseStore) ListEvaluations(evaluatorID string) ([]models.Evaluation, error) {
	evaluations := []models.Evaluation{}
	if evaluatorID == "" {
		err := s.DB.Select(&evaluations, `
			SELECT id, schedule_id, evaluator_id, status, submitted_at, locked_at, created_at
			FROM evaluations
			ORDER BY created_at DESC
		`)
		if err != nil {
			return nil, fmt.Errorf("failed to list evaluations: %w", err)
		}
		return evaluations, nil
	}

	query := s.Converter(`
		SELECT id, schedule_id, evaluator_id, status, submitted_at, locked_at, created_at
		FROM evaluations
		WHERE evaluator_id = ?
		ORDER BY created_at DESC
	`)
	err := s.DB.Select(&evaluations, query, evaluatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evaluations, nil
}

func (s *BaseStore) ListEvaluationsBySchedule(scheduleID string) ([]models.Evaluation, error) {
	evaluations := []models.Evaluation{}
	query := s.Converter(`
		SELECT id, schedule_id, evaluator_id, status, submitted_at, locked_at, created_at
		FROM evaluations
		WHERE schedule_id = ?
		ORDER BY created_at
	`)
	err := s.DB.Select(&evaluations, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations by schedule: %w", err)
	}
	return evaluations, nil
}

// MarkSubmitted transitions pending -> submitted. Returns false when the
// evaluation is missing or not pending.
func (s *BaseStore) MarkSubmitted(id string, ts int64) (bool, error) {
	query := s.Converter(`
		UPDATE evaluations
		SET status = 'submitted', submitted_at = ?
		WHERE id = ? AND status = 'pending'
	`)

	res, err := s.DB.Exec(query, ts, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark evaluation submitted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark evaluation submitted: %w", err)
	}
	return n > 0, nil
}

// MarkLocked transitions pending/submitted -> locked. Locked is terminal.
func (s *BaseStore) MarkLocked(id string, ts int64) (bool, error) {
	query := s.Converter(`
		UPDATE evaluations
		SET status = 'locked', locked_at = ?
		WHERE id = ? AND status <> 'locked'
	`)

	res, err := s.DB.Exec(query, ts, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark evaluation locked: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark evaluation locked: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) ListPendingDefenses(from, until int64) ([]PendingDefense, error) {
	var rows []PendingDefense
	query := s.Converter(`
		SELECT
			e.id AS evaluation_id,
			e.evaluator_id,
			ds.id AS schedule_id,
			ds.starts_at,
			ds.room,
			COALESCE(tg.title, '') AS group_title
		FROM evaluations e
		JOIN defense_schedules ds ON ds.id = e.schedule_id
		LEFT JOIN thesis_groups tg ON tg.id = ds.group_id
		WHERE e.status = 'pending'
		AND ds.starts_at >= ?
		AND ds.starts_at < ?
		ORDER BY ds.starts_at, e.evaluator_id
	`)

	err := s.DB.Select(&rows, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending defenses: %w", err)
	}
	return rows, nil
}

// UpsertScore writes one score row, guarded in the same statement against
// the evaluation being locked. Returns false with nil error when the guard
// swallowed the write, so callers can re-check why.
func (s *BaseStore) UpsertScore(score *models.EvaluationScore) (bool, error) {
	query := s.Converter(`
		INSERT INTO evaluation_scores (id, evaluation_id, criterion_id, subject_type, subject_id, score, comment)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (
			SELECT 1 FROM evaluations
			WHERE id = ? AND status <> 'locked'
		)
		ON CONFLICT (evaluation_id, criterion_id, subject_type, subject_id) DO UPDATE SET
			score = excluded.score,
			comment = excluded.comment
	`)

	res, err := s.DB.Exec(query,
		score.ID,
		score.EvaluationID,
		score.CriterionID,
		score.SubjectType,
		score.SubjectID,
		score.Score,
		score.Comment,
		score.EvaluationID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to upsert score: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) GetScore(evaluationID, criterionID, subjectType, subjectID string) (*models.EvaluationScore, error) {
	var score models.EvaluationScore
	query := s.Converter(`
		SELECT id, evaluation_id, criterion_id, subject_type, subject_id, score, comment
		FROM evaluation_scores
		WHERE evaluation_id = ? AND criterion_id = ? AND subject_type = ? AND subject_id = ?
	`)

	err := s.DB.Get(&score, query, evaluationID, criterionID, subjectType, subjectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return &score, nil
}

func (s *BaseStore) ListScores(evaluationID string) ([]models.EvaluationScore, error) {
	scores := []models.EvaluationScore{}
	query := s.Converter(`
		SELECT id, evaluation_id, criterion_id, subject_type, subject_id, score, comment
		FROM evaluation_scores
		WHERE evaluation_id = ?
		ORDER BY subject_type, subject_id, criterion_id
	`)

	err := s.DB.Select(&scores, query, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	return scores, nil
}

func (s *BaseStore) DeleteScores(evaluationID string) (int64, error) {
	query := s.Converter(`DELETE FROM evaluation_scores WHERE evaluation_id = ?`)
	res, err := s.DB.Exec(query, evaluationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete scores: %w", err)
	}
	return n, nil
}

// UpsertStudentEvaluation keeps the rating/remarks editable while the row
// is still pending; a submitted row is left untouched and false is returned.
func (s *BaseStore) UpsertStudentEvaluation(e *models.StudentEvaluation) (bool, error) {
	query := s.Converter(`
		INSERT INTO student_evaluations (id, schedule_id, student_id, rating, remarks, status, submitted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (schedule_id, student_id) DO UPDATE SET
			rating = excluded.rating,
			remarks = excluded.remarks
		WHERE student_evaluations.status = 'pending'
	`)

	res, err := s.DB.Exec(query,
		e.ID,
		e.ScheduleID,
		e.StudentID,
		e.Rating,
		e.Remarks,
		e.Status,
		e.SubmittedAt,
		e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert student evaluation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to upsert student evaluation: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) GetStudentEvaluation(scheduleID, studentID string) (*models.StudentEvaluation, error) {
	var e models.StudentEvaluation
	query := s.Converter(`
		SELECT id, schedule_id, student_id, rating, remarks, status, submitted_at, created_at
		FROM student_evaluations
		WHERE schedule_id = ? AND student_id = ?
	`)

	err := s.DB.Get(&e, query, scheduleID, studentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student evaluation: %w", err)
	}
	return &e, nil
}

func (s *BaseStore) ListStudentEvaluations(studentID string) ([]models.StudentEvaluation, error) {
	evaluations := []models.StudentEvaluation{}
	if studentID == "" {
		err := s.DB.Select(&evaluations, `
			SELECT id, schedule_id, student_id, rating, remarks, status, submitted_at, created_at
			FROM student_evaluations
			ORDER BY created_at DESC
		`)
		if err != nil {
			return nil, fmt.Errorf("failed to list student evaluations: %w", err)
		}
		return evaluations, nil
	}

	query := s.Converter(`
		SELECT id, schedule_id, student_id, rating, remarks, status, submitted_at, created_at
		FROM student_evaluations
		WHERE student_id = ?
		ORDER BY created_at DESC
	`)
	err := s.DB.Select(&evaluations, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list student evaluations: %w", err)
	}
	return evaluations, nil
}

func (s *BaseStore) UpdateStudentEvaluationStatus(id, status string, ts int64) (bool, error) {
	query := s.Converter(`
		UPDATE student_evaluations
		SET status = ?, submitted_at = ?
		WHERE id = ? AND status = 'pending'
	`)

	res, err := s.DB.Exec(query, status, ts, id)
	if err != nil {
		return false, fmt.Errorf("failed to update student evaluation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update student evaluation: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) DeleteStudentEvaluation(id string) (bool, error) {
	query := s.Converter(`DELETE FROM student_evaluations WHERE id = ?`)
	res, err := s.DB.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete student evaluation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete student evaluation: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) RecordAudit(ev *models.AuditEvent) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO audit_events (id, actor_id, action, resource, resource_id, detail, created_at)
		VALUES (:id, :actor_id, :action, :resource, :resource_id, :detail, :created_at)
	`, ev)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

func (s *BaseStore) ListAuditEvents(limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	events := []models.AuditEvent{}
	query := s.Converter(`
		SELECT id, actor_id, action, resource, resource_id, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT ?
	`)

	err := s.DB.Select(&events, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
