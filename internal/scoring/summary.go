package scoring

import (
	"strings"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
)

// Target is one scorable subject of an evaluation: the thesis group itself
// or one of its student members.
type Target struct {
	SubjectType string `json:"subjectType"`
	SubjectID   string `json:"subjectId"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
}

type TargetSummary struct {
	Target        Target  `json:"target"`
	Scored        int     `json:"scored"`
	Total         int     `json:"total"`
	TotalRaw      int     `json:"totalRaw"`
	MaxRaw        int     `json:"maxRaw"`
	TotalWeighted float64 `json:"totalWeighted"`
	MaxWeighted   float64 `json:"maxWeighted"`
	Percent       float64 `json:"percent"`
}

type OverallSummary struct {
	Scored        int     `json:"scored"`
	Total         int     `json:"total"`
	TotalRaw      int     `json:"totalRaw"`
	MaxRaw        int     `json:"maxRaw"`
	TotalWeighted float64 `json:"totalWeighted"`
	MaxWeighted   float64 `json:"maxWeighted"`
	Percent       float64 `json:"percent"`
}

type Summary struct {
	Targets   []TargetSummary `json:"targets"`
	Overall   OverallSummary  `json:"overall"`
	Remaining int             `json:"remaining"`
}

// scoreKey identifies one score row within an evaluation. Comparison is
// case-insensitive on every component.
type scoreKey struct {
	subjectType string
	subjectID   string
	criterionID string
}

func newScoreKey(subjectType, subjectID, criterionID string) scoreKey {
	return scoreKey{
		subjectType: strings.ToLower(subjectType),
		subjectID:   strings.ToLower(subjectID),
		criterionID: strings.ToLower(criterionID),
	}
}

// ResolveTargets builds the target list: the group itself plus one student
// target per distinct member. Members are deduplicated by case-insensitive
// id; when duplicates merge, the richest known name/email wins.
func ResolveTargets(group *models.ThesisGroup, members []models.GroupMember) []Target {
	targets := []Target{}

	if group != nil {
		targets = append(targets, Target{
			SubjectType: models.SubjectGroup,
			SubjectID:   group.ID,
			Name:        group.Title,
		})
	}

	seen := map[string]int{}
	for _, m := range members {
		key := strings.ToLower(m.StudentID)
		if idx, ok := seen[key]; ok {
			if len(m.Name) > len(targets[idx].Name) {
				targets[idx].Name = m.Name
			}
			if len(m.Email) > len(targets[idx].Email) {
				targets[idx].Email = m.Email
			}
			continue
		}
		targets = append(targets, Target{
			SubjectType: models.SubjectStudent,
			SubjectID:   m.StudentID,
			Name:        m.Name,
			Email:       m.Email,
		})
		seen[key] = len(targets) - 1
	}

	return targets
}

// MergeCriteria combines the active template's criteria with criteria
// referenced by existing score rows, so scores against a retired template
// still count. Template criteria come first; duplicates drop.
func MergeCriteria(template, scored []models.RubricCriterion) []models.RubricCriterion {
	merged := make([]models.RubricCriterion, 0, len(template)+len(scored))
	seen := map[string]bool{}

	for _, c := range template {
		key := strings.ToLower(c.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, c)
	}
	for _, c := range scored {
		key := strings.ToLower(c.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, c)
	}

	return merged
}

// BuildSummary computes per-target and overall completeness and weighted
// aggregates for one evaluation.
func BuildSummary(criteria []models.RubricCriterion, targets []Target, scores []models.EvaluationScore) Summary {
	byKey := make(map[scoreKey]models.EvaluationScore, len(scores))
	for _, s := range scores {
		byKey[newScoreKey(s.SubjectType, s.SubjectID, s.CriterionID)] = s
	}

	summary := Summary{Targets: make([]TargetSummary, 0, len(targets))}

	for _, target := range targets {
		ts := TargetSummary{Target: target, Total: len(criteria)}

		for _, c := range criteria {
			ts.MaxRaw += c.MaxScore
			if c.Weight > 0 && c.MaxScore > 0 {
				ts.MaxWeighted += c.Weight
			}

			s, ok := byKey[newScoreKey(target.SubjectType, target.SubjectID, c.ID)]
			if !ok {
				continue
			}

			ts.Scored++
			ts.TotalRaw += s.Score
			if c.Weight > 0 && c.MaxScore > 0 {
				ts.TotalWeighted += float64(s.Score) / float64(c.MaxScore) * c.Weight
			}
		}

		ts.Percent = percent(ts.TotalWeighted, ts.MaxWeighted, ts.Scored, ts.Total)
		summary.Targets = append(summary.Targets, ts)

		summary.Overall.Scored += ts.Scored
		summary.Overall.Total += ts.Total
		summary.Overall.TotalRaw += ts.TotalRaw
		summary.Overall.MaxRaw += ts.MaxRaw
		summary.Overall.TotalWeighted += ts.TotalWeighted
		summary.Overall.MaxWeighted += ts.MaxWeighted
	}

	summary.Overall.Percent = percent(
		summary.Overall.TotalWeighted,
		summary.Overall.MaxWeighted,
		summary.Overall.Scored,
		summary.Overall.Total,
	)
	summary.Remaining = summary.Overall.Total - summary.Overall.Scored

	return summary
}

// percent prefers the weighted ratio, falls back to plain completeness,
// and always lands in [0, 100].
func percent(totalWeighted, maxWeighted float64, scored, total int) float64 {
	var p float64
	switch {
	case maxWeighted > 0:
		p = totalWeighted / maxWeighted * 100
	case total > 0:
		p = float64(scored) / float64(total) * 100
	default:
		return 0
	}

	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
