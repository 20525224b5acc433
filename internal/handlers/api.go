package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/app"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/apperr"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/metrics"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/scoring"
)

type APIHandler struct {
	service  *app.Service
	workflow *scoring.Workflow
}

func NewAPIHandler(service *app.Service) *APIHandler {
	return &APIHandler{
		service:  service,
		workflow: scoring.NewWorkflow(service.Store),
	}
}

func writeOK(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]interface{}{"ok": true}
	for k, v := range payload {
		body[k] = v
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error.Printf("Request failed: %v", err)
	} else {
		logger.Debug.Printf("Request rejected (%d): %v", status, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	message := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":      false,
		"message": message,
	})
}

func (h *APIHandler) observe(r *http.Request, status int, start time.Time) {
	metrics.APIRequestDuration.WithLabelValues(
		r.URL.Path,
		r.Method,
		strconv.Itoa(status),
	).Observe(time.Since(start).Seconds())
}

func (h *APIHandler) audit(actor models.Actor, action, resource, resourceID, detail string) {
	ev := &models.AuditEvent{
		ID:         uuid.NewString(),
		ActorID:    actor.ID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
		CreatedAt:  time.Now().Unix(),
	}
	if err := h.service.Store.RecordAudit(ev); err != nil {
		logger.Error.Printf("Failed to record audit event: %v", err)
	}
}

// HandleData dispatches the resource-discriminator API: one path per verb,
// the resource query parameter selects the operation.
func (h *APIHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, http.StatusOK, start)

	actor, err := h.service.Auth.RequireActor(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	resource := r.URL.Query().Get("resource")

	var handlerErr error
	switch r.Method {
	case http.MethodGet:
		handlerErr = h.handleGet(w, r, actor, resource)
	case http.MethodPost:
		handlerErr = h.handlePost(w, r, actor, resource)
	case http.MethodPatch:
		handlerErr = h.handlePatch(w, r, actor, resource)
	case http.MethodDelete:
		handlerErr = h.handleDelete(w, r, actor, resource)
	default:
		handlerErr = apperr.Validation("method %s not supported", r.Method)
	}

	if handlerErr != nil {
		writeErr(w, handlerErr)
	}
}

func (h *APIHandler) handleGet(w http.ResponseWriter, r *http.Request, actor models.Actor, resource string) error {
	switch resource {
	case "rubricTemplates":
		return h.getTemplates(w, r, actor)
	case "rubricCriteria":
		return h.getCriteria(w, r, actor)
	case "evaluations":
		return h.getEvaluations(w, r, actor)
	case "evaluationScores":
		return h.getScores(w, r, actor)
	case "studentEvaluations":
		return h.getStudentEvaluations(w, r, actor)
	case "auditLog":
		return h.getAuditLog(w, r, actor)
	default:
		return apperr.Validation("unknown resource %q", resource)
	}
}

func (h *APIHandler) handlePost(w http.ResponseWriter, r *http.Request, actor models.Actor, resource string) error {
	switch resource {
	case "rubricTemplates":
		return h.createTemplate(w, r, actor)
	case "rubricCriteria":
		return h.createCriterion(w, r, actor)
	case "evaluations":
		return h.createEvaluation(w, r, actor)
	case "evaluationScores":
		return h.upsertScore(w, r, actor)
	case "evaluationScoresBulk":
		return h.bulkUpsertScores(w, r, actor)
	case "studentEvaluations":
		return h.upsertStudentEvaluation(w, r, actor)
	default:
		return apperr.Validation("unknown resource %q", resource)
	}
}

func (h *APIHandler) handlePatch(w http.ResponseWriter, r *http.Request, actor models.Actor, resource string) error {
	switch resource {
	case "rubricTemplates":
		return h.updateTemplate(w, r, actor)
	case "rubricCriteria":
		return h.updateCriterion(w, r, actor)
	case "evaluations":
		return h.updateEvaluation(w, r, actor)
	case "studentEvaluations":
		return h.updateStudentEvaluation(w, r, actor)
	default:
		return apperr.Validation("unknown resource %q", resource)
	}
}

func (h *APIHandler) handleDelete(w http.ResponseWriter, r *http.Request, actor models.Actor, resource string) error {
	switch resource {
	case "rubricTemplates":
		return h.deleteTemplate(w, r, actor)
	case "rubricCriteria":
		return h.deleteCriterion(w, r, actor)
	case "evaluationScores":
		return h.deleteScores(w, r, actor)
	case "studentEvaluations":
		return h.deleteStudentEvaluation(w, r, actor)
	default:
		return apperr.Validation("unknown resource %q", resource)
	}
}

// HandleSubmit serves POST /api/v1/evaluations/{id}/submit.
func (h *APIHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, http.StatusOK, start)

	actor, err := h.service.Auth.RequireActor(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	id := r.PathValue("id")
	eval, err := h.workflow.Submit(actor, id)
	if err != nil {
		writeErr(w, err)
		return
	}

	if summary, serr := h.workflow.Summarize(actor, id); serr == nil {
		metrics.WeightedPercentHistogram.WithLabelValues(eval.Status).Observe(summary.Overall.Percent)
	}
	metrics.StatusTransitionsTotal.WithLabelValues(models.StatusSubmitted).Inc()
	h.audit(actor, "submit", "evaluations", id, "")

	writeOK(w, map[string]interface{}{"evaluation": eval})
}

// HandleLock serves POST /api/v1/evaluations/{id}/lock.
func (h *APIHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, http.StatusOK, start)

	actor, err := h.service.Auth.RequireActor(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	id := r.PathValue("id")
	eval, err := h.workflow.Lock(actor, id)
	if err != nil {
		writeErr(w, err)
		return
	}

	metrics.StatusTransitionsTotal.WithLabelValues(models.StatusLocked).Inc()
	h.audit(actor, "lock", "evaluations", id, "")

	writeOK(w, map[string]interface{}{"evaluation": eval})
}

// HandleSummary serves GET /api/v1/evaluations/{id}/summary.
func (h *APIHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, http.StatusOK, start)

	actor, err := h.service.Auth.RequireActor(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	summary, err := h.workflow.Summarize(actor, r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}

	writeOK(w, map[string]interface{}{"summary": summary})
}

func requireParam(r *http.Request, name string) (string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", apperr.Validation("%s query parameter is required", name)
	}
	return value, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", raw)
	}
	return n, nil
}

func detailJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
