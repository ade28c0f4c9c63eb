package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskwell/internal/repository"
	"taskwell/internal/service"
)

const (
	textUnlinked    = "This chat is not linked to a Taskwell account yet.\n\nRequest a link code in your Taskwell profile, then send <code>/start CODE</code> here."
	textBadCode     = "That link code is invalid or expired. Request a new one and try again."
	textChatTaken   = "This chat is already linked to another Taskwell account. Unlink it there first."
	textHelp        = "Commands:\n/start CODE - link this chat to your account\n/report - send today's report now\n/help - this message"
	textLinkedHello = "👋 Hi, %s! Daily reports for this chat are on.\n\n%s"
)

// Bot delivers daily task reports to users who linked a Telegram chat and
// answers a few commands in private chats.
type Bot struct {
	api       *tgbotapi.BotAPI
	userRepo  *repository.UserRepository
	digestSvc *service.DigestService
	now       func() time.Time
}

// New authorizes token against the Telegram API.
func New(token string, userRepo *repository.UserRepository, digestSvc *service.DigestService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return NewWithAPI(api, userRepo, digestSvc), nil
}

// NewWithAPI wraps an already authorized API client.
func NewWithAPI(api *tgbotapi.BotAPI, userRepo *repository.UserRepository, digestSvc *service.DigestService) *Bot {
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return &Bot{api: api, userRepo: userRepo, digestSvc: digestSvc, now: time.Now}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Printf("[error] handle message: %v", err)
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, textHelp)
	}
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, textHelp)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if code := strings.ToUpper(strings.TrimSpace(msg.CommandArguments())); code != "" {
		return b.link(ctx, msg.Chat.ID, code)
	}
	user, err := b.userRepo.FindByTelegramChatID(ctx, msg.Chat.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return b.sendText(msg.Chat.ID, textUnlinked)
	}
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf(textLinkedHello, escapeName(user.Name), textHelp))
}

// link binds chatID to the account holding code.
func (b *Bot) link(ctx context.Context, chatID int64, code string) error {
	user, err := b.userRepo.LinkTelegramChat(ctx, code, chatID, b.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return b.sendText(chatID, textBadCode)
	case errors.Is(err, repository.ErrDuplicate):
		return b.sendText(chatID, textChatTaken)
	case err != nil:
		return err
	}
	log.Printf("[info] user %s linked telegram chat %d", user.ID, chatID)
	return b.sendText(chatID, fmt.Sprintf(textLinkedHello, escapeName(user.Name), textHelp))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.FindByTelegramChatID(ctx, msg.Chat.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return b.sendText(msg.Chat.ID, textUnlinked)
	}
	if err != nil {
		return err
	}
	text, err := b.digestSvc.DailySummary(ctx, *user, b.now())
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendDailyReports sends a summary to every user with a linked chat. A failure
// for one user is logged and does not stop the others.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListWithTelegram(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	sent := 0
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramChatID == nil {
			continue
		}
		chatID := *user.TelegramChatID
		text, err := b.digestSvc.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("[error] build summary for user %s: %v", user.ID, err)
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			log.Printf("[error] send summary to chat %d: %v", chatID, err)
			continue
		}
		sent++
	}
	log.Printf("[info] daily reports sent: %d of %d", sent, len(users))
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func escapeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	return html.EscapeString(name)
}
