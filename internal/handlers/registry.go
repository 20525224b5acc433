package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/app"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/apperr"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
)

func (h *APIHandler) getTemplates(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if id := r.URL.Query().Get("id"); id != "" {
		template, err := h.service.Store.GetTemplate(id)
		if err != nil {
			return apperr.Server("failed to get template", err)
		}
		if template == nil {
			return apperr.NotFound("template %s not found", id)
		}
		writeOK(w, map[string]interface{}{"template": template})
		return nil
	}

	templates, err := h.service.Store.ListTemplates()
	if err != nil {
		return apperr.Server("failed to list templates", err)
	}
	writeOK(w, map[string]interface{}{"templates": templates})
	return nil
}

func (h *APIHandler) createTemplate(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin); err != nil {
		return err
	}

	template := models.RubricTemplate{Version: 1, Active: true}
	if err := decodeBody(r.Body, &template); err != nil {
		return err
	}
	template.ID = uuid.NewString()

	if err := template.Validate(); err != nil {
		return apperr.Validation("invalid template: %v", err)
	}

	if err := h.service.Store.CreateTemplate(&template); err != nil {
		return apperr.Server("failed to create template", err)
	}

	h.audit(actor, "create", "rubricTemplates", template.ID, detailJSON(template))
	writeOK(w, map[string]interface{}{"template": template})
	return nil
}

func (h *APIHandler) updateTemplate(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin); err != nil {
		return err
	}

	id, err := requireParam(r, "id")
	if err != nil {
		return err
	}

	var patch models.TemplatePatch
	if err := decodeBody(r.Body, &patch); err != nil {
		return err
	}
	if patch.Version != nil && *patch.Version < 1 {
		return apperr.Validation("version must be a positive integer")
	}

	found, err := h.service.Store.UpdateTemplate(id, patch)
	if err != nil {
		return apperr.Server("failed to update template", err)
	}
	if !found {
		return apperr.NotFound("template %s not found", id)
	}

	template, err := h.service.Store.GetTemplate(id)
	if err != nil {
		return apperr.Server("failed to get template", err)
	}

	h.audit(actor, "update", "rubricTemplates", id, detailJSON(patch))
	writeOK(w, map[string]interface{}{"template": template})
	return nil
}

func (h *APIHandler) deleteTemplate(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin); err != nil {
		return err
	}

	id, err := requireParam(r, "id")
	if err != nil {
		return err
	}

	// criteria rows go with the template, the schema cascades
	found, err := h.service.Store.DeleteTemplate(id)
	if err != nil {
		return apperr.Server("failed to delete template", err)
	}
	if !found {
		return apperr.NotFound("template %s not found", id)
	}

	h.audit(actor, "delete", "rubricTemplates", id, "")
	writeOK(w, map[string]interface{}{"deleted": true})
	return nil
}

func (h *APIHandler) getCriteria(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	templateID, err := requireParam(r, "templateId")
	if err != nil {
		return err
	}

	criteria, err := h.service.Store.ListCriteria(templateID)
	if err != nil {
		return apperr.Server("failed to list criteria", err)
	}
	writeOK(w, map[string]interface{}{"criteria": criteria})
	return nil
}

func (h *APIHandler) createCriterion(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin); err != nil {
		return err
	}

	defaults := h.service.Config.Rubric
	criterion := models.RubricCriterion{
		Weight:   defaults.DefaultWeight,
		MinScore: defaults.DefaultMinScore,
		MaxScore: defaults.DefaultMaxScore,
	}
	if err := decodeBody(r.Body, &criterion); err != nil {
		return err
	}
	criterion.ID = uuid.NewString()

	if err := criterion.Validate(); err != nil {
		return apperr.Validation("invalid criterion: %v", err)
	}

	template, err := h.service.Store.GetTemplate(criterion.TemplateID)
	if err != nil {
		return apperr.Server("failed to get template", err)
	}
	if template == nil {
		return apperr.NotFound("template %s not found", criterion.TemplateID)
	}

	if err := h.service.Store.CreateCriterion(&criterion); err != nil {
		return apperr.Server("failed to create criterion", err)
	}

	h.audit(actor, "create", "rubricCriteria", criterion.ID, detailJSON(criterion))
	writeOK(w, map[string]interface{}{"criterion": criterion})
	return nil
}

func (h *APIHandler) updateCriterion(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin); err != nil {
		return err
	}

	id, err := requireParam(r, "id")
	if err != nil {
		return err
	}

	var patch models.CriterionPatch
	if err := decodeBody(r.Body, &patch); err != nil {
		return err
	}
	if patch.Weight != nil && *patch.Weight < 0 {
		return apperr.Validation("weight must be non-negative")
	}

	existing, err := h.service.Store.GetCriterion(id)
	if err != nil {
		return apperr.Server("failed to get criterion", err)
	}
	if existing == nil {
		return apperr.NotFound("criterion %s not found", id)
	}

	minScore := existing.MinScore
	if patch.MinScore != nil {
		minScore = *patch.MinScore
	}
	maxScore := existing.MaxScore
	if patch.MaxScore != nil {
		maxScore = *patch.MaxScore
	}
	if maxScore < minScore {
		return apperr.Validation("maxScore must be >= minScore")
	}

	if _, err := h.service.Store.UpdateCriterion(id, patch); err != nil {
		return apperr.Server("failed to update criterion", err)
	}

	criterion, err := h.service.Store.GetCriterion(id)
	if err != nil {
		return apperr.Server("failed to get criterion", err)
	}

	h.audit(actor, "update", "rubricCriteria", id, detailJSON(patch))
	writeOK(w, map[string]interface{}{"criterion": criterion})
	return nil
}

func (h *APIHandler) deleteCriterion(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin); err != nil {
		return err
	}

	id, err := requireParam(r, "id")
	if err != nil {
		return err
	}

	found, err := h.service.Store.DeleteCriterion(id)
	if err != nil {
		return apperr.Server("failed to delete criterion", err)
	}
	if !found {
		return apperr.NotFound("criterion %s not found", id)
	}

	h.audit(actor, "delete", "rubricCriteria", id, "")
	writeOK(w, map[string]interface{}{"deleted": true})
	return nil
}

func (h *APIHandler) getAuditLog(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	if err := app.AssertRoles(actor, models.RoleAdmin); err != nil {
		return err
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			return apperr.Validation("limit must be a positive integer")
		}
		limit = parsed
	}

	events, err := h.service.Store.ListAuditEvents(limit)
	if err != nil {
		return apperr.Server("failed to list audit events", err)
	}
	writeOK(w, map[string]interface{}{"events": events})
	return nil
}
