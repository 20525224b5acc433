package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/app"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/store/sqlite"
)

var (
	adminActor   = models.Actor{ID: "admin1", Role: models.RoleAdmin, Name: "Registrar"}
	staffActor   = models.Actor{ID: "staff1", Role: models.RoleStaff, Name: "Dr. Reyes"}
	studentActor = models.Actor{ID: "s1", Role: models.RoleStudent, Name: "Ana Cruz"}
)

func setupServer(t *testing.T) (*httptest.Server, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.NewSQLiteStore(filepath.Join(t.TempDir(), "grader_test.db"), "../../migrations")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	seed := []string{
		`INSERT INTO users (id, name, email, role) VALUES ('admin1', 'Registrar', 'reg@example.edu', 'admin')`,
		`INSERT INTO users (id, name, email, role) VALUES ('staff1', 'Dr. Reyes', 'reyes@example.edu', 'staff')`,
		`INSERT INTO users (id, name, email, role) VALUES ('s1', 'Ana Cruz', 'ana@example.edu', 'student')`,
		`INSERT INTO users (id, name, email, role) VALUES ('s2', 'Ben Dizon', 'ben@example.edu', 'student')`,
		`INSERT INTO thesis_groups (id, title) VALUES ('g1', 'Crop Disease Detection')`,
		`INSERT INTO group_members (group_id, student_id) VALUES ('g1', 's1')`,
		`INSERT INTO group_members (group_id, student_id) VALUES ('g1', 's2')`,
		`INSERT INTO defense_schedules (id, group_id, starts_at, room) VALUES ('sched1', 'g1', 1700000000, 'AVR-2')`,
		`INSERT INTO rubric_templates (id, name, version, active) VALUES ('t1', 'Final Defense', 1, 1)`,
		`INSERT INTO rubric_criteria (id, template_id, name, weight, min_score, max_score) VALUES ('c1', 't1', 'Content', 40, 1, 5)`,
		`INSERT INTO rubric_criteria (id, template_id, name, weight, min_score, max_score) VALUES ('c2', 't1', 'Delivery', 60, 1, 5)`,
	}
	for _, q := range seed {
		_, err := st.DB.Exec(q)
		require.NoError(t, err)
	}

	config := &app.Config{}
	config.Rubric.DefaultWeight = 1
	config.Rubric.DefaultMinScore = 1
	config.Rubric.DefaultMaxScore = 5

	auth, err := app.NewAuth(config)
	require.NoError(t, err)

	service := &app.Service{Config: config, Store: st, Auth: auth}
	h := NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/data", h.HandleData)
	mux.HandleFunc("POST /api/v1/data", h.HandleData)
	mux.HandleFunc("PATCH /api/v1/data", h.HandleData)
	mux.HandleFunc("DELETE /api/v1/data", h.HandleData)
	mux.HandleFunc("POST /api/v1/evaluations/{id}/submit", h.HandleSubmit)
	mux.HandleFunc("POST /api/v1/evaluations/{id}/lock", h.HandleLock)
	mux.HandleFunc("GET /api/v1/evaluations/{id}/summary", h.HandleSummary)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, st
}

func call(t *testing.T, server *httptest.Server, method, path string, actor *models.Actor, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if actor != nil {
		req.Header.Set("X-Actor-ID", actor.ID)
		req.Header.Set("X-Actor-Role", actor.Role)
		req.Header.Set("X-Actor-Name", actor.Name)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func TestMissingActorHeaders(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodGet, "/api/v1/data?resource=evaluations", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "missing actor headers", body["message"])
}

func TestUnknownResource(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodGet, "/api/v1/data?resource=grades", &staffActor, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["ok"])
}

func TestTemplateManagement_AdminOnly(t *testing.T) {
	server, _ := setupServer(t)

	payload := map[string]interface{}{"name": "Proposal Defense"}

	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=rubricTemplates", &staffActor, payload)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, body["ok"])

	status, body = call(t, server, http.MethodPost, "/api/v1/data?resource=rubricTemplates", &adminActor, payload)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	template := body["template"].(map[string]interface{})
	assert.Equal(t, "Proposal Defense", template["name"])
	assert.Equal(t, float64(1), template["version"])
	assert.Equal(t, true, template["active"])
	assert.NotEmpty(t, template["id"])
}

func TestCreateCriterion_SnakeCaseAliases(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=rubricCriteria", &adminActor, map[string]interface{}{
		"template_id": "t1",
		"name":        "Originality",
		"weight":      20,
		"min_score":   1,
		"max_score":   10,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"])

	criterion := body["criterion"].(map[string]interface{})
	assert.Equal(t, "t1", criterion["templateId"])
	assert.Equal(t, "Originality", criterion["name"])
	assert.Equal(t, float64(20), criterion["weight"])
	assert.Equal(t, float64(10), criterion["maxScore"])
}

func TestCreateCriterion_UnknownTemplate(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=rubricCriteria", &adminActor, map[string]interface{}{
		"templateId": "ghost",
		"name":       "Originality",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["ok"])
}

func TestEvaluations_StudentForbidden(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodGet, "/api/v1/data?resource=evaluations", &studentActor, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, body["ok"])
}

func TestScoringWorkflow(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=evaluations", &staffActor, map[string]interface{}{
		"scheduleId": "sched1",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"])
	evalID := body["evaluation"].(map[string]interface{})["id"].(string)
	require.NotEmpty(t, evalID)

	// creating again returns the same assignment
	status, body = call(t, server, http.MethodPost, "/api/v1/data?resource=evaluations", &staffActor, map[string]interface{}{
		"scheduleId": "sched1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, evalID, body["evaluation"].(map[string]interface{})["id"])

	t.Run("out of range score rejected", func(t *testing.T) {
		status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=evaluationScores", &staffActor, map[string]interface{}{
			"evaluationId": evalID,
			"criterionId":  "c1",
			"subjectType":  "group",
			"subjectId":    "g1",
			"score":        9,
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["message"], "outside range")
	})

	score := func(criterionID, subjectType, subjectID string, value int) {
		t.Helper()
		status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=evaluationScores", &staffActor, map[string]interface{}{
			"evaluationId": evalID,
			"criterionId":  criterionID,
			"subjectType":  subjectType,
			"subjectId":    subjectID,
			"score":        value,
		})
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, true, body["ok"])
	}

	score("c1", "group", "g1", 4)
	score("c2", "group", "g1", 3)

	t.Run("submit blocked while incomplete", func(t *testing.T) {
		status, body := call(t, server, http.MethodPost, "/api/v1/evaluations/"+evalID+"/submit", &staffActor, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["message"], "scores still missing")
	})

	for _, studentID := range []string{"s1", "s2"} {
		score("c1", "student", studentID, 4)
		score("c2", "student", studentID, 3)
	}

	t.Run("summary reports weighted percent", func(t *testing.T) {
		status, body := call(t, server, http.MethodGet, "/api/v1/evaluations/"+evalID+"/summary", &staffActor, nil)
		require.Equal(t, http.StatusOK, status)

		summary := body["summary"].(map[string]interface{})
		overall := summary["overall"].(map[string]interface{})
		assert.Equal(t, float64(0), summary["remaining"])
		// (4/5)*40 + (3/5)*60 = 68 per target
		assert.InDelta(t, 68.0, overall["percent"].(float64), 0.001)
		assert.Len(t, summary["targets"], 3)
	})

	t.Run("submit once complete", func(t *testing.T) {
		status, body := call(t, server, http.MethodPost, "/api/v1/evaluations/"+evalID+"/submit", &staffActor, nil)
		require.Equal(t, http.StatusOK, status)
		eval := body["evaluation"].(map[string]interface{})
		assert.Equal(t, models.StatusSubmitted, eval["status"])
		assert.NotNil(t, eval["submittedAt"])
	})

	t.Run("lock finalizes", func(t *testing.T) {
		status, body := call(t, server, http.MethodPost, "/api/v1/evaluations/"+evalID+"/lock", &staffActor, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, models.StatusLocked, body["evaluation"].(map[string]interface{})["status"])
	})

	t.Run("locked evaluation rejects writes", func(t *testing.T) {
		status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=evaluationScores", &staffActor, map[string]interface{}{
			"evaluationId": evalID,
			"criterionId":  "c1",
			"subjectType":  "group",
			"subjectId":    "g1",
			"score":        5,
		})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "evaluation is locked", body["message"])
	})

	t.Run("lock is terminal", func(t *testing.T) {
		status, body := call(t, server, http.MethodPost, "/api/v1/evaluations/"+evalID+"/lock", &staffActor, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["message"], "already locked")
	})
}

func TestBulkScores_PartialFailure(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=evaluations", &staffActor, map[string]interface{}{
		"scheduleId": "sched1",
	})
	require.Equal(t, http.StatusOK, status)
	evalID := body["evaluation"].(map[string]interface{})["id"].(string)

	status, body = call(t, server, http.MethodPost, "/api/v1/data?resource=evaluationScoresBulk", &staffActor, map[string]interface{}{
		"evaluationId": evalID,
		"items": []map[string]interface{}{
			{"criterion_id": "c1", "subject_type": "group", "subject_id": "g1", "score": 4},
			{"criterion_id": "c2", "subject_type": "group", "subject_id": "g1", "score": 11},
		},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"])

	result := body["result"].(map[string]interface{})
	assert.Equal(t, float64(1), result["applied"])
	assert.Equal(t, float64(1), result["failed"])
	assert.Contains(t, result["firstError"], "outside range")
}

func TestScoreReset(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=evaluations", &staffActor, map[string]interface{}{
		"scheduleId": "sched1",
	})
	require.Equal(t, http.StatusOK, status)
	evalID := body["evaluation"].(map[string]interface{})["id"].(string)

	for _, crit := range []string{"c1", "c2"} {
		status, _ := call(t, server, http.MethodPost, "/api/v1/data?resource=evaluationScores", &staffActor, map[string]interface{}{
			"evaluationId": evalID,
			"criterionId":  crit,
			"subjectType":  "group",
			"subjectId":    "g1",
			"score":        3,
		})
		require.Equal(t, http.StatusOK, status)
	}

	status, body = call(t, server, http.MethodDelete, "/api/v1/data?resource=evaluationScores&evaluationId="+evalID, &staffActor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["deleted"])

	status, body = call(t, server, http.MethodGet, "/api/v1/data?resource=evaluationScores&evaluationId="+evalID, &staffActor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["scores"])
}

func TestStudentEvaluation_ServerOwnedFields(t *testing.T) {
	server, _ := setupServer(t)

	// payload tries to spoof another student, a submitted status, and an id
	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=studentEvaluations", &studentActor, map[string]interface{}{
		"id":         "chosen-id",
		"scheduleId": "sched1",
		"studentId":  "s2",
		"rating":     5,
		"remarks":    "insightful panel",
		"status":     "submitted",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"])

	stored := body["studentEvaluation"].(map[string]interface{})
	assert.Equal(t, "s1", stored["studentId"])
	assert.Equal(t, models.StatusPending, stored["status"])
	assert.NotEqual(t, "chosen-id", stored["id"])

	evalID := stored["id"].(string)

	t.Run("submit own evaluation", func(t *testing.T) {
		status, body := call(t, server, http.MethodPatch, "/api/v1/data?resource=studentEvaluations&id="+evalID, &studentActor, map[string]interface{}{
			"status": "submitted",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["updated"])
	})

	t.Run("frozen after submit", func(t *testing.T) {
		status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=studentEvaluations", &studentActor, map[string]interface{}{
			"scheduleId": "sched1",
			"rating":     1,
		})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Contains(t, body["message"], "already submitted")
	})

	t.Run("other student cannot touch it", func(t *testing.T) {
		other := models.Actor{ID: "s2", Role: models.RoleStudent, Name: "Ben Dizon"}
		status, body := call(t, server, http.MethodDelete, "/api/v1/data?resource=studentEvaluations&id="+evalID, &other, nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, false, body["ok"])
	})
}

func TestStudentEvaluation_RatingValidated(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodPost, "/api/v1/data?resource=studentEvaluations", &studentActor, map[string]interface{}{
		"scheduleId": "sched1",
		"rating":     7,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["ok"])
}

func TestAuditLog_AdminOnly(t *testing.T) {
	server, _ := setupServer(t)

	status, _ := call(t, server, http.MethodPost, "/api/v1/data?resource=rubricTemplates", &adminActor, map[string]interface{}{
		"name": "Proposal Defense",
	})
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, server, http.MethodGet, "/api/v1/data?resource=auditLog", &staffActor, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, body["ok"])

	status, body = call(t, server, http.MethodGet, "/api/v1/data?resource=auditLog", &adminActor, nil)
	require.Equal(t, http.StatusOK, status)
	events := body["events"].([]interface{})
	require.NotEmpty(t, events)
	event := events[0].(map[string]interface{})
	assert.Equal(t, "create", event["action"])
	assert.Equal(t, "rubricTemplates", event["resource"])
}

func TestPathParam(t *testing.T) {
	server, _ := setupServer(t)

	status, body := call(t, server, http.MethodGet, "/api/v1/evaluations/nope/summary", &staffActor, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "evaluation nope not found", fmt.Sprint(body["message"]))
}
