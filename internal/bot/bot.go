package bot

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/app"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/scoring"
	"github.com/LemuelVelez/thesis-grader-sub006/internal/store"
)

type Bot struct {
	config    *Config
	store     store.EvalStore
	workflow  *scoring.Workflow
	tokens    *app.TokenManager
	api       *tgbotapi.BotAPI
	scheduler *gocron.Scheduler
	admins    map[int64]bool
}

func New(config *Config, evalStore store.EvalStore, tokens *app.TokenManager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	admins := make(map[int64]bool)
	for _, id := range config.Bot.AdminIDs {
		admins[id] = true
	}

	return &Bot{
		config:    config,
		store:     evalStore,
		workflow:  scoring.NewWorkflow(evalStore),
		tokens:    tokens,
		api:       api,
		scheduler: gocron.NewScheduler(time.UTC),
		admins:    admins,
	}, nil
}

func (b *Bot) Start() error {
	if _, err := b.scheduler.Cron(b.config.Reminders.Cron).Do(b.remindAll); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	b.scheduler.StartAsync()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			go b.handleMessage(update.Message)

		case <-sigChan:
			logger.Info.Println("Shutting down bot...")
			b.scheduler.Stop()
			return nil
		}
	}
}
