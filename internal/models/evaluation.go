package models

import (
	"github.com/go-playground/validator/v10"
)

const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusLocked    = "locked"
)

const (
	SubjectGroup   = "group"
	SubjectStudent = "student"
)

type Evaluation struct {
	ID          string `db:"id" json:"id"`
	ScheduleID  string `db:"schedule_id" json:"scheduleId" validate:"required"`
	EvaluatorID string `db:"evaluator_id" json:"evaluatorId" validate:"required"`
	Status      string `db:"status" json:"status"`
	SubmittedAt *int64 `db:"submitted_at" json:"submittedAt,omitempty"`
	LockedAt    *int64 `db:"locked_at" json:"lockedAt,omitempty"`
	CreatedAt   int64  `db:"created_at" json:"createdAt"`
}

func (e *Evaluation) IsLocked() bool {
	return e.Status == StatusLocked
}

type EvaluationScore struct {
	ID           string `db:"id" json:"id"`
	EvaluationID string `db:"evaluation_id" json:"evaluationId" validate:"required"`
	CriterionID  string `db:"criterion_id" json:"criterionId" validate:"required"`
	SubjectType  string `db:"subject_type" json:"subjectType" validate:"required,oneof=group student"`
	SubjectID    string `db:"subject_id" json:"subjectId" validate:"required"`
	Score        int    `db:"score" json:"score"`
	Comment      string `db:"comment" json:"comment"`
}

type StudentEvaluation struct {
	ID          string `db:"id" json:"id"`
	ScheduleID  string `db:"schedule_id" json:"scheduleId" validate:"required"`
	StudentID   string `db:"student_id" json:"studentId" validate:"required"`
	Rating      int    `db:"rating" json:"rating" validate:"gte=1,lte=5"`
	Remarks     string `db:"remarks" json:"remarks"`
	Status      string `db:"status" json:"status"`
	SubmittedAt *int64 `db:"submitted_at" json:"submittedAt,omitempty"`
	CreatedAt   int64  `db:"created_at" json:"createdAt"`
}

func (e *Evaluation) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

func (s *EvaluationScore) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

func (s *StudentEvaluation) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}
