package handlers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/apperr"
)

// fieldAliases maps accepted wire field names to their canonical form.
// Alias handling happens once, here at the boundary; nothing past decode
// ever sees a non-canonical name.
var fieldAliases = map[string]string{
	"criterion_id":  "criterionId",
	"criterionID":   "criterionId",
	"template_id":   "templateId",
	"templateID":    "templateId",
	"schedule_id":   "scheduleId",
	"scheduleID":    "scheduleId",
	"evaluator_id":  "evaluatorId",
	"evaluatorID":   "evaluatorId",
	"evaluation_id": "evaluationId",
	"evaluationID":  "evaluationId",
	"subject_type":  "subjectType",
	"subject_id":    "subjectId",
	"subjectID":     "subjectId",
	"student_id":    "studentId",
	"studentID":     "studentId",
	"min_score":     "minScore",
	"max_score":     "maxScore",
}

// decodeBody reads a JSON object, canonicalizes aliased field names, and
// unmarshals the result into dst.
func decodeBody(body io.Reader, dst interface{}) error {
	raw := map[string]json.RawMessage{}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}

	canonical := make(map[string]json.RawMessage, len(raw))
	for key, value := range raw {
		if alias, ok := fieldAliases[key]; ok {
			key = alias
		}
		canonical[key] = value
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return apperr.Server("failed to normalize payload", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// decodeItems does the same for an array payload of JSON objects.
func decodeItems(data []json.RawMessage, dst interface{}) error {
	canonicalized := make([]json.RawMessage, 0, len(data))
	for i, item := range data {
		raw := map[string]json.RawMessage{}
		if err := json.Unmarshal(item, &raw); err != nil {
			return apperr.Validation("invalid item %d: %v", i, err)
		}
		canonical := make(map[string]json.RawMessage, len(raw))
		for key, value := range raw {
			if alias, ok := fieldAliases[key]; ok {
				key = alias
			}
			canonical[key] = value
		}
		normalized, err := json.Marshal(canonical)
		if err != nil {
			return apperr.Server(fmt.Sprintf("failed to normalize item %d", i), err)
		}
		canonicalized = append(canonicalized, normalized)
	}

	merged, err := json.Marshal(canonicalized)
	if err != nil {
		return apperr.Server("failed to normalize payload", err)
	}
	if err := json.Unmarshal(merged, dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
