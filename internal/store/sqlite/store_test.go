package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "grader_test.db")
	s, err := NewSQLiteStore(dsn, "../../../migrations")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	seed := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)`,
			[]interface{}{"staff1", "Dr. Reyes", "reyes@example.edu", "staff"}},
		{`INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)`,
			[]interface{}{"s1", "Ana Cruz", "ana@example.edu", "student"}},
		{`INSERT INTO thesis_groups (id, title) VALUES (?, ?)`,
			[]interface{}{"g1", "Crop Disease Detection"}},
		{`INSERT INTO group_members (group_id, student_id) VALUES (?, ?)`,
			[]interface{}{"g1", "s1"}},
		{`INSERT INTO group_members (group_id, student_id) VALUES (?, ?)`,
			[]interface{}{"g1", "s2"}},
		{`INSERT INTO defense_schedules (id, group_id, starts_at, room) VALUES (?, ?, ?, ?)`,
			[]interface{}{"sched1", "g1", int64(1700000000), "AVR-2"}},
		{`INSERT INTO rubric_templates (id, name, version, active) VALUES (?, ?, ?, ?)`,
			[]interface{}{"t1", "Final Defense", 1, 1}},
		{`INSERT INTO rubric_criteria (id, template_id, name, weight, min_score, max_score) VALUES (?, ?, ?, ?, ?, ?)`,
			[]interface{}{"c1", "t1", "Content", 40.0, 1, 5}},
		{`INSERT INTO rubric_criteria (id, template_id, name, weight, min_score, max_score) VALUES (?, ?, ?, ?, ?, ?)`,
			[]interface{}{"c2", "t1", "Delivery", 60.0, 1, 5}},
		{`INSERT INTO evaluations (id, schedule_id, evaluator_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
			[]interface{}{"e1", "sched1", "staff1", "pending", int64(1700000000)}},
	}
	for _, row := range seed {
		_, err := s.DB.Exec(row.query, row.args...)
		require.NoError(t, err)
	}

	return s
}

func TestUpsertScore_InsertThenUpdate(t *testing.T) {
	s := setupStore(t)

	first := &models.EvaluationScore{
		ID:           "row1",
		EvaluationID: "e1",
		CriterionID:  "c1",
		SubjectType:  "group",
		SubjectID:    "g1",
		Score:        3,
	}
	applied, err := s.UpsertScore(first)
	require.NoError(t, err)
	assert.True(t, applied)

	second := &models.EvaluationScore{
		ID:           "row2",
		EvaluationID: "e1",
		CriterionID:  "c1",
		SubjectType:  "group",
		SubjectID:    "g1",
		Score:        5,
		Comment:      "revised after demo",
	}
	applied, err = s.UpsertScore(second)
	require.NoError(t, err)
	assert.True(t, applied)

	scores, err := s.ListScores("e1")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "row1", scores[0].ID)
	assert.Equal(t, 5, scores[0].Score)
	assert.Equal(t, "revised after demo", scores[0].Comment)
}

func TestUpsertScore_GuardedWhenLocked(t *testing.T) {
	s := setupStore(t)

	ok, err := s.MarkLocked("e1", 1700000100)
	require.NoError(t, err)
	require.True(t, ok)

	applied, err := s.UpsertScore(&models.EvaluationScore{
		ID:           "row1",
		EvaluationID: "e1",
		CriterionID:  "c1",
		SubjectType:  "group",
		SubjectID:    "g1",
		Score:        4,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	scores, err := s.ListScores("e1")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestUpsertScore_GuardedUpdateWhenLocked(t *testing.T) {
	s := setupStore(t)

	applied, err := s.UpsertScore(&models.EvaluationScore{
		ID:           "row1",
		EvaluationID: "e1",
		CriterionID:  "c1",
		SubjectType:  "group",
		SubjectID:    "g1",
		Score:        3,
	})
	require.NoError(t, err)
	require.True(t, applied)

	ok, err := s.MarkLocked("e1", 1700000100)
	require.NoError(t, err)
	require.True(t, ok)

	applied, err = s.UpsertScore(&models.EvaluationScore{
		ID:           "row2",
		EvaluationID: "e1",
		CriterionID:  "c1",
		SubjectType:  "group",
		SubjectID:    "g1",
		Score:        5,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	score, err := s.GetScore("e1", "c1", "group", "g1")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 3, score.Score)
}

func TestMarkSubmitted_OnlyFromPending(t *testing.T) {
	s := setupStore(t)

	ok, err := s.MarkSubmitted("e1", 1700000100)
	require.NoError(t, err)
	assert.True(t, ok)

	eval, err := s.GetEvaluation("e1")
	require.NoError(t, err)
	require.NotNil(t, eval)
	assert.Equal(t, models.StatusSubmitted, eval.Status)
	require.NotNil(t, eval.SubmittedAt)
	assert.Equal(t, int64(1700000100), *eval.SubmittedAt)

	ok, err = s.MarkSubmitted("e1", 1700000200)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkLocked_Terminal(t *testing.T) {
	s := setupStore(t)

	ok, err := s.MarkSubmitted("e1", 1700000100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.MarkLocked("e1", 1700000200)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkLocked("e1", 1700000300)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MarkSubmitted("e1", 1700000400)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteScores_CountsAndLeavesStatus(t *testing.T) {
	s := setupStore(t)

	for i, crit := range []string{"c1", "c2"} {
		applied, err := s.UpsertScore(&models.EvaluationScore{
			ID:           "row" + crit,
			EvaluationID: "e1",
			CriterionID:  crit,
			SubjectType:  "group",
			SubjectID:    "g1",
			Score:        i + 3,
		})
		require.NoError(t, err)
		require.True(t, applied)
	}

	count, err := s.DeleteScores("e1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	eval, err := s.GetEvaluation("e1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, eval.Status)
}

func TestDeleteTemplate_CascadesCriteria(t *testing.T) {
	s := setupStore(t)

	found, err := s.DeleteTemplate("t1")
	require.NoError(t, err)
	assert.True(t, found)

	criterion, err := s.GetCriterion("c1")
	require.NoError(t, err)
	assert.Nil(t, criterion)
}

func TestGetActiveTemplate_HighestActiveVersion(t *testing.T) {
	s := setupStore(t)

	_, err := s.DB.Exec(
		`INSERT INTO rubric_templates (id, name, version, active) VALUES (?, ?, ?, ?)`,
		"t2", "Final Defense", 2, 1,
	)
	require.NoError(t, err)
	_, err = s.DB.Exec(
		`INSERT INTO rubric_templates (id, name, version, active) VALUES (?, ?, ?, ?)`,
		"t9", "Retired Draft", 9, 0,
	)
	require.NoError(t, err)

	template, err := s.GetActiveTemplate()
	require.NoError(t, err)
	require.NotNil(t, template)
	assert.Equal(t, "t2", template.ID)
	assert.Equal(t, 2, template.Version)
}

func TestUpdateTemplate_PatchesOnlyProvidedFields(t *testing.T) {
	s := setupStore(t)

	active := false
	found, err := s.UpdateTemplate("t1", models.TemplatePatch{Active: &active})
	require.NoError(t, err)
	require.True(t, found)

	template, err := s.GetTemplate("t1")
	require.NoError(t, err)
	require.NotNil(t, template)
	assert.False(t, template.Active)
	assert.Equal(t, "Final Defense", template.Name)
	assert.Equal(t, 1, template.Version)
}

func TestListScoredCriteria_OnlyReferenced(t *testing.T) {
	s := setupStore(t)

	applied, err := s.UpsertScore(&models.EvaluationScore{
		ID:           "row1",
		EvaluationID: "e1",
		CriterionID:  "c2",
		SubjectType:  "student",
		SubjectID:    "s1",
		Score:        4,
	})
	require.NoError(t, err)
	require.True(t, applied)

	criteria, err := s.ListScoredCriteria("e1")
	require.NoError(t, err)
	require.Len(t, criteria, 1)
	assert.Equal(t, "c2", criteria[0].ID)
}

func TestListGroupMembers_ToleratesMissingUser(t *testing.T) {
	s := setupStore(t)

	members, err := s.ListGroupMembers("g1")
	require.NoError(t, err)
	require.Len(t, members, 2)

	assert.Equal(t, "s1", members[0].StudentID)
	assert.Equal(t, "Ana Cruz", members[0].Name)

	// s2 has no users row
	assert.Equal(t, "s2", members[1].StudentID)
	assert.Equal(t, "", members[1].Name)
	assert.Equal(t, "", members[1].Email)
}

func TestUpsertStudentEvaluation_FrozenAfterSubmit(t *testing.T) {
	s := setupStore(t)

	applied, err := s.UpsertStudentEvaluation(&models.StudentEvaluation{
		ID:         "se1",
		ScheduleID: "sched1",
		StudentID:  "s1",
		Rating:     4,
		Remarks:    "clear presentation",
		Status:     models.StatusPending,
		CreatedAt:  1700000000,
	})
	require.NoError(t, err)
	require.True(t, applied)

	ok, err := s.UpdateStudentEvaluationStatus("se1", models.StatusSubmitted, 1700000100)
	require.NoError(t, err)
	require.True(t, ok)

	applied, err = s.UpsertStudentEvaluation(&models.StudentEvaluation{
		ID:         "se2",
		ScheduleID: "sched1",
		StudentID:  "s1",
		Rating:     1,
		Status:     models.StatusPending,
		CreatedAt:  1700000200,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := s.GetStudentEvaluation("sched1", "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, models.StatusSubmitted, stored.Status)
}

func TestListPendingDefenses_Window(t *testing.T) {
	s := setupStore(t)

	rows, err := s.ListPendingDefenses(1699999999, 1700000001)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "e1", rows[0].EvaluationID)
	assert.Equal(t, "staff1", rows[0].EvaluatorID)
	assert.Equal(t, "Crop Disease Detection", rows[0].GroupTitle)

	// outside the horizon
	rows, err = s.ListPendingDefenses(1700000001, 1700009999)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// submitted evaluations drop out
	ok, err := s.MarkSubmitted("e1", 1700000100)
	require.NoError(t, err)
	require.True(t, ok)

	rows, err = s.ListPendingDefenses(1699999999, 1700000001)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetEvaluationByAssignment(t *testing.T) {
	s := setupStore(t)

	eval, err := s.GetEvaluationByAssignment("sched1", "staff1")
	require.NoError(t, err)
	require.NotNil(t, eval)
	assert.Equal(t, "e1", eval.ID)

	eval, err = s.GetEvaluationByAssignment("sched1", "nobody")
	require.NoError(t, err)
	assert.Nil(t, eval)
}
