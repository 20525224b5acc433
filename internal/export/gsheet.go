package export

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shrimpsizemoose/trekker/logger"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/app"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/scoring"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/store"
)

// GSheetExporter periodically writes per-student weighted percents for a
// defense schedule into a spreadsheet the committee already works in.
type GSheetExporter struct {
	config        *app.Config
	store         store.EvalStore
	scheduler     *gocron.Scheduler
	sheetsService *sheets.Service
}

func NewGSheetExporter(config *app.Config, evalStore store.EvalStore) (*GSheetExporter, error) {
	ctx := context.Background()
	scheduler := gocron.NewScheduler(time.UTC)

	var last *GSheetExporter
	for scheduleID, configs := range config.GSheet {
		for _, cfg := range configs {
			svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
			if err != nil {
				return nil, fmt.Errorf("failed to create sheets service: %w", err)
			}

			exporter := &GSheetExporter{
				config:        config,
				store:         evalStore,
				scheduler:     scheduler,
				sheetsService: svc,
			}
			last = exporter

			scheduleID := scheduleID
			cfg := cfg
			_, err = scheduler.Cron(cfg.Schedule).Do(func() {
				if err := exporter.Export(scheduleID, &cfg); err != nil {
					logger.Error.Printf("Export failed for schedule %s: %v", scheduleID, err)
				}
			})
			if err != nil {
				return nil, fmt.Errorf("failed to schedule export: %w", err)
			}
		}
	}

	scheduler.StartAsync()
	return last, nil
}

// percents averages each subject's weighted percent over every evaluation
// of the schedule; panelists who have not scored a subject do not dilute it.
func (e *GSheetExporter) percents(scheduleID string) (map[string]float64, error) {
	schedule, err := e.store.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule %s not found", scheduleID)
	}

	group, err := e.store.GetGroup(schedule.GroupID)
	if err != nil {
		return nil, err
	}
	members, err := e.store.ListGroupMembers(schedule.GroupID)
	if err != nil {
		return nil, err
	}
	targets := scoring.ResolveTargets(group, members)

	var criteria []models.RubricCriterion
	if template, err := e.store.GetActiveTemplate(); err == nil && template != nil {
		criteria, _ = e.store.ListCriteria(template.ID)
	}

	evaluations, err := e.store.ListEvaluationsBySchedule(scheduleID)
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, eval := range evaluations {
		scores, err := e.store.ListScores(eval.ID)
		if err != nil {
			continue
		}

		merged := criteria
		if scored, err := e.store.ListScoredCriteria(eval.ID); err == nil {
			merged = scoring.MergeCriteria(criteria, scored)
		}

		summary := scoring.BuildSummary(merged, targets, scores)
		for _, ts := range summary.Targets {
			if ts.Scored == 0 {
				continue
			}
			key := strings.ToLower(ts.Target.SubjectID)
			sums[key] += ts.Percent
			counts[key]++
		}
	}

	result := make(map[string]float64, len(sums))
	for key, sum := range sums {
		result[key] = sum / float64(counts[key])
	}
	return result, nil
}

func (e *GSheetExporter) Export(scheduleID string, cfg *app.GSheetConfig) error {
	percents, err := e.percents(scheduleID)
	if err != nil {
		return fmt.Errorf("failed to compute percents: %w", err)
	}

	readRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.StudentsRange)
	resp, err := e.sheetsService.Spreadsheets.Values.Get(cfg.SheetID, readRange).Do()
	if err != nil {
		return fmt.Errorf("failed to read students: %w", err)
	}

	studentRows := make(map[string]int)
	for i, row := range resp.Values {
		if len(row) > 0 {
			student, ok := row[0].(string)
			if !ok {
				continue
			}
			studentRows[strings.ToLower(student)] = i + 2 // header row offset
		}
	}

	for student, row := range studentRows {
		percent, ok := percents[student]
		if !ok {
			continue
		}

		updateRange := fmt.Sprintf("%s!%s%d", cfg.SheetName, cfg.PercentColumn, row)
		_, err = e.sheetsService.Spreadsheets.Values.Update(cfg.SheetID, updateRange,
			&sheets.ValueRange{Values: [][]interface{}{{fmt.Sprintf("%.1f", percent)}}}).ValueInputOption("RAW").Do()
		if err != nil {
			return fmt.Errorf("failed to update cell: %w", err)
		}
	}

	timestamp := fmt.Sprintf("UPD: %s", time.Now().Format("2 January 15:04"))
	if len(e.config.EmojiVariants) > 0 {
		emoji := e.config.EmojiVariants[rand.Intn(len(e.config.EmojiVariants))]
		timestamp = fmt.Sprintf("%s %s", timestamp, emoji)
	}

	updateRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.TimestampRange)
	_, err = e.sheetsService.Spreadsheets.Values.Update(cfg.SheetID, updateRange,
		&sheets.ValueRange{Values: [][]interface{}{{timestamp}}}).ValueInputOption("RAW").Do()

	return err
}
