package models

import (
	"github.com/go-playground/validator/v10"
)

type RubricTemplate struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name" validate:"required,max=120"`
	Version     int    `db:"version" json:"version" validate:"gte=1"`
	Active      bool   `db:"active" json:"active"`
	Description string `db:"description" json:"description"`
}

type RubricCriterion struct {
	ID          string  `db:"id" json:"id"`
	TemplateID  string  `db:"template_id" json:"templateId" validate:"required"`
	Name        string  `db:"name" json:"name" validate:"required,max=120"`
	Description string  `db:"description" json:"description"`
	Weight      float64 `db:"weight" json:"weight" validate:"gte=0"`
	MinScore    int     `db:"min_score" json:"minScore"`
	MaxScore    int     `db:"max_score" json:"maxScore" validate:"gtefield=MinScore"`
}

// TemplatePatch and CriterionPatch carry partial updates; nil means
// "leave unchanged".
type TemplatePatch struct {
	Name        *string `json:"name"`
	Version     *int    `json:"version"`
	Active      *bool   `json:"active"`
	Description *string `json:"description"`
}

type CriterionPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Weight      *float64 `json:"weight"`
	MinScore    *int     `json:"minScore"`
	MaxScore    *int     `json:"maxScore"`
}

func (t *RubricTemplate) Validate() error {
	validate := validator.New()
	return validate.Struct(t)
}

func (c *RubricCriterion) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}
