package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/app"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/apperr"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/metrics"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/scoring"
)

func (h *APIHandler) getEvaluations(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	query := r.URL.Query()

	if id := query.Get("id"); id != "" {
		eval, err := h.service.Store.GetEvaluation(id)
		if err != nil {
			return apperr.Server("failed to get evaluation", err)
		}
		if eval == nil {
			return apperr.NotFound("evaluation %s not found", id)
		}
		if !actor.IsAdmin() && eval.EvaluatorID != actor.ID {
			return apperr.Forbidden("evaluation belongs to another evaluator")
		}
		writeOK(w, map[string]interface{}{"evaluation": eval})
		return nil
	}

	if scheduleID := query.Get("scheduleId"); scheduleID != "" {
		evaluatorID := query.Get("evaluatorId")
		if evaluatorID == "" {
			evaluatorID = actor.ID
		}
		if !actor.IsAdmin() && evaluatorID != actor.ID {
			return apperr.Forbidden("cannot read another evaluator's assignment")
		}
		eval, err := h.service.Store.GetEvaluationByAssignment(scheduleID, evaluatorID)
		if err != nil {
			return apperr.Server("failed to get evaluation", err)
		}
		if eval == nil {
			return apperr.NotFound("no evaluation for schedule %s", scheduleID)
		}
		writeOK(w, map[string]interface{}{"evaluation": eval})
		return nil
	}

	evaluatorID := actor.ID
	if actor.IsAdmin() {
		evaluatorID = query.Get("evaluatorId")
	}
	evaluations, err := h.service.Store.ListEvaluations(evaluatorID)
	if err != nil {
		return apperr.Server("failed to list evaluations", err)
	}
	writeOK(w, map[string]interface{}{"evaluations": evaluations})
	return nil
}

func (h *APIHandler) createEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	var in struct {
		ScheduleID  string `json:"scheduleId"`
		EvaluatorID string `json:"evaluatorId"`
	}
	if err := decodeBody(r.Body, &in); err != nil {
		return err
	}
	if in.ScheduleID == "" {
		return apperr.Validation("scheduleId is required")
	}
	if in.EvaluatorID == "" {
		in.EvaluatorID = actor.ID
	}

	eval, err := h.workflow.EnsureEvaluation(actor, in.ScheduleID, in.EvaluatorID)
	if err != nil {
		return err
	}

	h.audit(actor, "create", "evaluations", eval.ID, detailJSON(in))
	writeOK(w, map[string]interface{}{"evaluation": eval})
	return nil
}

// updateEvaluation moves the status machine via PATCH; submit and lock have
// dedicated endpoints but the resource API accepts the same transitions.
func (h *APIHandler) updateEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	id, err := requireParam(r, "id")
	if err != nil {
		return err
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r.Body, &in); err != nil {
		return err
	}

	var eval *models.Evaluation
	switch in.Status {
	case models.StatusSubmitted:
		eval, err = h.workflow.Submit(actor, id)
	case models.StatusLocked:
		eval, err = h.workflow.Lock(actor, id)
	default:
		return apperr.Validation("status must be %q or %q", models.StatusSubmitted, models.StatusLocked)
	}
	if err != nil {
		return err
	}

	metrics.StatusTransitionsTotal.WithLabelValues(in.Status).Inc()
	h.audit(actor, "update", "evaluations", id, detailJSON(in))
	writeOK(w, map[string]interface{}{"evaluation": eval})
	return nil
}

func (h *APIHandler) getScores(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	evaluationID, err := requireParam(r, "evaluationId")
	if err != nil {
		return err
	}

	scores, err := h.workflow.ListScores(actor, evaluationID)
	if err != nil {
		return err
	}
	writeOK(w, map[string]interface{}{"scores": scores})
	return nil
}

func (h *APIHandler) upsertScore(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	var in struct {
		EvaluationID string `json:"evaluationId"`
		scoring.ScoreInput
	}
	if err := decodeBody(r.Body, &in); err != nil {
		return err
	}
	if in.EvaluationID == "" {
		return apperr.Validation("evaluationId is required")
	}

	score, err := h.workflow.UpsertScore(actor, in.EvaluationID, in.ScoreInput)
	if err != nil {
		metrics.ScoreUpsertsTotal.WithLabelValues(in.SubjectType, "rejected").Inc()
		return err
	}

	metrics.ScoreUpsertsTotal.WithLabelValues(score.SubjectType, "applied").Inc()
	h.audit(actor, "upsert", "evaluationScores", score.ID, detailJSON(in))
	writeOK(w, map[string]interface{}{"score": score})
	return nil
}

func (h *APIHandler) bulkUpsertScores(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	var in struct {
		EvaluationID string            `json:"evaluationId"`
		Items        []json.RawMessage `json:"items"`
	}
	if err := decodeBody(r.Body, &in); err != nil {
		return err
	}
	if in.EvaluationID == "" {
		return apperr.Validation("evaluationId is required")
	}

	var items []scoring.ScoreInput
	if err := decodeItems(in.Items, &items); err != nil {
		return err
	}

	result, err := h.workflow.BulkUpsert(actor, in.EvaluationID, items)
	if err != nil {
		return err
	}

	h.audit(actor, "bulkUpsert", "evaluationScores", in.EvaluationID, detailJSON(result))
	writeOK(w, map[string]interface{}{"result": result})
	return nil
}

func (h *APIHandler) deleteScores(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	evaluationID, err := requireParam(r, "evaluationId")
	if err != nil {
		return err
	}

	count, err := h.workflow.Reset(actor, evaluationID)
	if err != nil {
		return err
	}

	h.audit(actor, "reset", "evaluationScores", evaluationID, "")
	writeOK(w, map[string]interface{}{"deleted": count})
	return nil
}

func (h *APIHandler) getStudentEvaluations(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	query := r.URL.Query()

	if actor.Role == models.RoleStudent {
		if scheduleID := query.Get("scheduleId"); scheduleID != "" {
			eval, err := h.service.Store.GetStudentEvaluation(scheduleID, actor.ID)
			if err != nil {
				return apperr.Server("failed to get student evaluation", err)
			}
			if eval == nil {
				return apperr.NotFound("no student evaluation for schedule %s", scheduleID)
			}
			writeOK(w, map[string]interface{}{"studentEvaluation": eval})
			return nil
		}
		evaluations, err := h.service.Store.ListStudentEvaluations(actor.ID)
		if err != nil {
			return apperr.Server("failed to list student evaluations", err)
		}
		writeOK(w, map[string]interface{}{"studentEvaluations": evaluations})
		return nil
	}

	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStaff); err != nil {
		return err
	}

	evaluations, err := h.service.Store.ListStudentEvaluations(query.Get("studentId"))
	if err != nil {
		return apperr.Server("failed to list student evaluations", err)
	}
	writeOK(w, map[string]interface{}{"studentEvaluations": evaluations})
	return nil
}

func (h *APIHandler) upsertStudentEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStudent); err != nil {
		return err
	}

	var eval models.StudentEvaluation
	if err := decodeBody(r.Body, &eval); err != nil {
		return err
	}
	// server-owned fields, whatever the payload said
	eval.ID = uuid.NewString()
	eval.Status = models.StatusPending
	eval.SubmittedAt = nil
	eval.CreatedAt = time.Now().Unix()
	if actor.Role == models.RoleStudent {
		eval.StudentID = actor.ID
	}

	if err := eval.Validate(); err != nil {
		return apperr.Validation("invalid student evaluation: %v", err)
	}

	schedule, err := h.service.Store.GetSchedule(eval.ScheduleID)
	if err != nil {
		return apperr.Server("failed to get schedule", err)
	}
	if schedule == nil {
		return apperr.NotFound("schedule %s not found", eval.ScheduleID)
	}

	applied, err := h.service.Store.UpsertStudentEvaluation(&eval)
	if err != nil {
		return apperr.Server("failed to save student evaluation", err)
	}
	if !applied {
		return apperr.Forbidden("student evaluation already submitted")
	}

	stored, err := h.service.Store.GetStudentEvaluation(eval.ScheduleID, eval.StudentID)
	if err != nil {
		return apperr.Server("failed to get student evaluation", err)
	}

	h.audit(actor, "upsert", "studentEvaluations", stored.ID, detailJSON(eval))
	writeOK(w, map[string]interface{}{"studentEvaluation": stored})
	return nil
}

func (h *APIHandler) updateStudentEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStudent); err != nil {
		return err
	}

	id, err := requireParam(r, "id")
	if err != nil {
		return err
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r.Body, &in); err != nil {
		return err
	}
	if in.Status != models.StatusSubmitted {
		return apperr.Validation("status must be %q", models.StatusSubmitted)
	}

	if actor.Role == models.RoleStudent {
		owned, err := h.ownsStudentEvaluation(actor, id)
		if err != nil {
			return err
		}
		if !owned {
			return apperr.Forbidden("student evaluation belongs to another student")
		}
	}

	ok, err := h.service.Store.UpdateStudentEvaluationStatus(id, in.Status, time.Now().Unix())
	if err != nil {
		return apperr.Server("failed to update student evaluation", err)
	}
	if !ok {
		return apperr.NotFound("no pending student evaluation %s", id)
	}

	h.audit(actor, "update", "studentEvaluations", id, detailJSON(in))
	writeOK(w, map[string]interface{}{"updated": true})
	return nil
}

func (h *APIHandler) deleteStudentEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin, models.RoleStudent); err != nil {
		return err
	}

	id, err := requireParam(r, "id")
	if err != nil {
		return err
	}

	if actor.Role == models.RoleStudent {
		owned, err := h.ownsStudentEvaluation(actor, id)
		if err != nil {
			return err
		}
		if !owned {
			return apperr.Forbidden("student evaluation belongs to another student")
		}
	}

	found, err := h.service.Store.DeleteStudentEvaluation(id)
	if err != nil {
		return apperr.Server("failed to delete student evaluation", err)
	}
	if !found {
		return apperr.NotFound("student evaluation %s not found", id)
	}

	h.audit(actor, "delete", "studentEvaluations", id, "")
	writeOK(w, map[string]interface{}{"deleted": true})
	return nil
}

func (h *APIHandler) ownsStudentEvaluation(actor models.Actor, id string) (bool, error) {
	evaluations, err := h.service.Store.ListStudentEvaluations(actor.ID)
	if err != nil {
		return false, apperr.Server("failed to list student evaluations", err)
	}
	for _, e := range evaluations {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}
