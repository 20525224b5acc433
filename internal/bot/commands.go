package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/LemuelVelez/thesis-grader-sub006/internal/models"
)

const (
	panelistHelp = `Available commands:
/register <panelistId> - Link this chat to your panelist account
/token - Get an API session token
/pending - List your unsubmitted evaluations
/help - Show this message`

	adminHelp = `Available commands:
/register <panelistId> - Link this chat to your panelist account
/token - Get an API session token
/pending - List your unsubmitted evaluations
/lock <evaluationId> - Finalize an evaluation
/reset <evaluationId> - Delete all scores of an evaluation
/remind - Run the reminder sweep now
/help - Show this message

Examples:
/lock 4f7c21aa-0b7e-4d6f-9c11-2f8d3f1a5e90
/reset 4f7c21aa-0b7e-4d6f-9c11-2f8d3f1a5e90`
)

type commandHandler func(*tgbotapi.Message) error

func (b *Bot) routePanelistCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start":    b.handleStart,
		"register": b.handleRegister,
		"token":    b.handleToken,
		"pending":  b.handlePending,
		"help":     b.handleHelp,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"lock":   b.handleLock,
		"reset":  b.handleReset,
		"remind": b.handleRemind,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendHelp(msg.Chat.ID)
		return
	}

	cmd := msg.Command()

	if handler, ok := b.routePanelistCommands(cmd); ok {
		if err := handler(msg); err != nil {
			logger.Error.Printf("Command error: %v", err)
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	if b.admins[msg.From.ID] {
		if handler, ok := b.routeAdminCommands(cmd); ok {
			if err := handler(msg); err != nil {
				logger.Error.Printf("Command error: %v", err)
				b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
			}
		}
		return
	}

	b.sendHelp(msg.Chat.ID)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	var text string
	if b.admins[msg.From.ID] {
		text = adminHelp
	} else {
		text = panelistHelp
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendHelp(chatID int64) error {
	return b.sendMessage(chatID, "Send /help for the list of commands.")
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	text := "Hi! I keep track of thesis defense evaluations.\n\n"
	if b.admins[msg.From.ID] {
		text += "You are a panel admin. Send /help for the list of commands."
	} else {
		text += "Link your panelist account with /register <panelistId>, then use /pending and /token."
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleRegister(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return b.sendMessage(msg.Chat.ID, "Usage: /register <panelistId>")
	}
	panelistID := args[0]

	user, err := b.store.GetUser(panelistID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("No account %s found", panelistID))
	}
	if user.Role != models.RoleStaff && user.Role != models.RoleAdmin {
		return b.sendMessage(msg.Chat.ID, "Only staff and admin accounts can be linked here")
	}

	mapping := &models.ChatPanelistMapping{
		PanelistID:      user.ID,
		Name:            user.Name,
		Comment:         msg.From.UserName,
		AssociationTime: time.Now().UTC(),
		RegisteredBy:    msg.From.ID,
	}
	if err := b.tokens.AssociateChatWithPanelist(context.Background(), msg.Chat.ID, mapping); err != nil {
		return err
	}

	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Linked to %s (%s)", user.Name, user.ID))
}

func (b *Bot) handleToken(msg *tgbotapi.Message) error {
	ctx := context.Background()

	mapping, err := b.tokens.FetchPanelistByChatID(ctx, msg.Chat.ID)
	if err != nil {
		return b.sendMessage(msg.Chat.ID, "This chat is not linked yet, use /register <panelistId> first")
	}

	user, err := b.store.GetUser(mapping.PanelistID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendMessage(msg.Chat.ID, "Linked account no longer exists")
	}

	info, isNew, err := b.tokens.FetchOrCreateSessionToken(ctx, models.Actor{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
	if err != nil {
		return err
	}

	prefix := "Your API token"
	if isNew {
		prefix = "Your new API token"
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("%s:\n%s", prefix, info.Token))
}

func (b *Bot) handlePending(msg *tgbotapi.Message) error {
	mapping, err := b.tokens.FetchPanelistByChatID(context.Background(), msg.Chat.ID)
	if err != nil {
		return b.sendMessage(msg.Chat.ID, "This chat is not linked yet, use /register <panelistId> first")
	}

	evaluations, err := b.store.ListEvaluations(mapping.PanelistID)
	if err != nil {
		return err
	}

	var lines []string
	for _, e := range evaluations {
		if e.Status != models.StatusPending {
			continue
		}
		line := fmt.Sprintf("- %s (schedule %s)", e.ID, e.ScheduleID)
		if schedule, err := b.store.GetSchedule(e.ScheduleID); err == nil && schedule != nil {
			line = fmt.Sprintf(
				"- %s: defense %s, room %s",
				e.ID,
				time.Unix(schedule.StartsAt, 0).UTC().Format("2 Jan 15:04"),
				schedule.Room,
			)
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return b.sendMessage(msg.Chat.ID, "No pending evaluations, nice")
	}
	return b.sendMessage(msg.Chat.ID, "Pending evaluations:\n"+strings.Join(lines, "\n"))
}

func (b *Bot) handleLock(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return b.sendMessage(msg.Chat.ID, "Usage: /lock <evaluationId>")
	}

	eval, err := b.workflow.Lock(b.adminActor(msg.From.ID), args[0])
	if err != nil {
		return err
	}

	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Evaluation %s locked", eval.ID))
}

func (b *Bot) handleReset(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return b.sendMessage(msg.Chat.ID, "Usage: /reset <evaluationId>")
	}

	count, err := b.workflow.Reset(b.adminActor(msg.From.ID), args[0])
	if err != nil {
		return err
	}

	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Deleted %d scores", count))
}

func (b *Bot) handleRemind(msg *tgbotapi.Message) error {
	b.remindAll()
	return b.sendMessage(msg.Chat.ID, "Reminder sweep done")
}

// remindAll messages every linked panelist whose evaluations are still
// pending with a defense inside the horizon.
func (b *Bot) remindAll() {
	ctx := context.Background()
	now := time.Now()
	until := now.Add(time.Duration(b.config.Reminders.HorizonDays) * 24 * time.Hour)

	pending, err := b.store.ListPendingDefenses(now.Unix(), until.Unix())
	if err != nil {
		logger.Error.Printf("Reminder sweep failed: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	mappings, err := b.tokens.FetchAllChatMappings(ctx)
	if err != nil {
		logger.Error.Printf("Failed to fetch chat mappings: %v", err)
		return
	}

	chatByPanelist := make(map[string]int64, len(mappings))
	for chatID, mapping := range mappings {
		chatByPanelist[mapping.PanelistID] = chatID
	}

	byChat := make(map[int64][]string)
	for _, p := range pending {
		chatID, ok := chatByPanelist[p.EvaluatorID]
		if !ok {
			continue
		}
		byChat[chatID] = append(byChat[chatID], fmt.Sprintf(
			"- %s defends %s in room %s, evaluation %s is not submitted",
			p.GroupTitle,
			time.Unix(p.StartsAt, 0).UTC().Format("2 Jan 15:04"),
			p.Room,
			p.EvaluationID,
		))
	}

	for chatID, lines := range byChat {
		text := "Upcoming defenses with unsubmitted evaluations:\n" + strings.Join(lines, "\n")
		if err := b.sendMessage(chatID, text); err != nil {
			logger.Error.Printf("Failed to send reminder to chat %d: %v", chatID, err)
		}
	}
}

func (b *Bot) adminActor(tgID int64) models.Actor {
	return models.Actor{
		ID:   fmt.Sprintf("tg:%d", tgID),
		Name: "panel admin",
		Role: models.RoleAdmin,
	}
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}
