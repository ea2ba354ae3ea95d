package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/vijay-2155/VignanEcap/internal/attendance"
	"github.com/vijay-2155/VignanEcap/internal/pipeline"
	"github.com/vijay-2155/VignanEcap/internal/portal"
	"github.com/vijay-2155/VignanEcap/internal/store"
)

const (
	welcomeText = "Hi! I fetch your attendance from the college portal.\n\n" +
		"/check <username> <password> fetches it once.\n" +
		"/set <username> <password> <keyword> saves your login, then just send the keyword.\n" +
		"/forget removes your saved login."

	fetchingText = "Fetching your attendance, hold on..."

	setUsageText    = "Usage: /set <username> <password> <keyword>"
	checkUsageText  = "Usage: /check <username> <password>"
	savedText       = "Saved. Send your keyword any time to fetch attendance."
	forgottenText   = "Your saved login has been removed."
	notRecognized   = "I don't recognize that. Send /start for the command list."
	tooManyRequests = "Easy there. Wait a bit before checking again."
)

// validate checks credential arguments before they reach storage or the
// browser. The portal rejects out-of-range logins anyway; checking here
// saves a browser session on obvious typos.
var validate = validator.New()

const (
	usernameRule = "required,min=3,max=64,printascii"
	passwordRule = "required,min=3,max=128,printascii"
	keywordRule  = "required,min=2,max=32,alphanum"
)

// api is the slice of the Bot API client the bot uses. Narrowed for tests.
type api interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) (Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string) error
}

// credentialStore is the slice of the credential store the bot uses.
type credentialStore interface {
	Save(ctx context.Context, creds store.Credentials) error
	ByKeyword(ctx context.Context, chatID int64, keyword string) (store.Credentials, error)
	Delete(ctx context.Context, chatID int64) error
}

// submitter hands fetch jobs to the worker pool.
type submitter interface {
	Submit(creds portal.Credentials) (<-chan pipeline.Result, error)
}

// Bot routes Telegram commands to the attendance pipeline.
type Bot struct {
	api      api
	store    credentialStore
	pool     submitter
	renderer *attendance.Renderer
	logger   *slog.Logger

	pollTimeout int

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// NewBot assembles the command front-end.
func NewBot(client api, creds credentialStore, pool submitter, renderer *attendance.Renderer, pollTimeout int, logger *slog.Logger) *Bot {
	return &Bot{
		api:         client,
		store:       creds,
		pool:        pool,
		renderer:    renderer,
		logger:      logger.With(slog.String("component", "bot")),
		pollTimeout: pollTimeout,
		limiters:    make(map[int64]*rate.Limiter),
	}
}

// Run long-polls for updates until ctx is cancelled. Each update is handled
// on its own goroutine so a slow fetch never stalls the poll loop.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("getUpdates failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			go b.handle(ctx, *u.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered", slog.Any("panic", r), slog.Int64("chat_id", msg.Chat.ID))
		}
	}()

	fields := strings.Fields(strings.TrimSpace(msg.Text))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "/start", "/help":
		b.reply(ctx, msg.Chat.ID, welcomeText)
	case "/set":
		b.handleSet(ctx, msg.Chat.ID, args)
	case "/check":
		b.handleCheck(ctx, msg.Chat.ID, args)
	case "/forget":
		b.handleForget(ctx, msg.Chat.ID)
	default:
		b.handleKeyword(ctx, msg.Chat.ID, fields[0])
	}
}

func (b *Bot) handleSet(ctx context.Context, chatID int64, args []string) {
	if len(args) != 3 {
		b.reply(ctx, chatID, setUsageText)
		return
	}
	username, password, keyword := args[0], args[1], args[2]
	if validate.Var(username, usernameRule) != nil || validate.Var(password, passwordRule) != nil {
		b.reply(ctx, chatID, setUsageText)
		return
	}
	if validate.Var(keyword, keywordRule) != nil {
		b.reply(ctx, chatID, "Keywords must be 2-32 letters or digits.")
		return
	}
	err := b.store.Save(ctx, store.Credentials{
		ChatID:   chatID,
		Username: username,
		Password: password,
		Keyword:  strings.ToLower(keyword),
	})
	if err != nil {
		b.logger.Error("failed to save credentials", slog.String("error", err.Error()), slog.Int64("chat_id", chatID))
		b.reply(ctx, chatID, "Could not save your login, please try again.")
		return
	}
	b.reply(ctx, chatID, savedText)
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 ||
		validate.Var(args[0], usernameRule) != nil ||
		validate.Var(args[1], passwordRule) != nil {
		b.reply(ctx, chatID, checkUsageText)
		return
	}
	b.runCheck(ctx, chatID, portal.Credentials{Username: args[0], Password: args[1]})
}

func (b *Bot) handleForget(ctx context.Context, chatID int64) {
	if err := b.store.Delete(ctx, chatID); err != nil {
		b.logger.Error("failed to delete credentials", slog.String("error", err.Error()), slog.Int64("chat_id", chatID))
		b.reply(ctx, chatID, "Could not remove your login, please try again.")
		return
	}
	b.reply(ctx, chatID, forgottenText)
}

// handleKeyword fetches attendance when the message matches the chat's
// saved keyword.
func (b *Bot) handleKeyword(ctx context.Context, chatID int64, word string) {
	saved, err := b.store.ByKeyword(ctx, chatID, word)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.reply(ctx, chatID, notRecognized)
			return
		}
		b.logger.Error("failed to load credentials", slog.String("error", err.Error()), slog.Int64("chat_id", chatID))
		b.reply(ctx, chatID, "Something went wrong, please try again.")
		return
	}
	b.runCheck(ctx, chatID, portal.Credentials{Username: saved.Username, Password: saved.Password})
}

// runCheck submits a fetch and edits a status message into the result.
func (b *Bot) runCheck(ctx context.Context, chatID int64, creds portal.Credentials) {
	if !b.limiter(chatID).Allow() {
		b.reply(ctx, chatID, tooManyRequests)
		return
	}

	results, err := b.pool.Submit(creds)
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			b.reply(ctx, chatID, "I'm busy with other checks right now, try again in a minute.")
		} else {
			b.reply(ctx, chatID, "I'm shutting down, try again later.")
		}
		return
	}

	status, err := b.api.SendMessage(ctx, chatID, b.renderer.RenderText(fetchingText), ParseModeMarkdownV2)
	if err != nil {
		b.logger.Warn("failed to send status message", slog.String("error", err.Error()), slog.Int64("chat_id", chatID))
	}

	var res pipeline.Result
	select {
	case res = <-results:
	case <-ctx.Done():
		return
	}

	var text string
	if res.Failed() {
		text = b.renderer.RenderText(res.Message)
	} else {
		text = b.renderer.Render(res.Model, res.Analytics)
	}

	if status.MessageID != 0 {
		if err := b.api.EditMessageText(ctx, chatID, status.MessageID, text, ParseModeMarkdownV2); err == nil {
			return
		}
		b.logger.Warn("failed to edit status message, sending fresh", slog.Int64("chat_id", chatID))
	}
	b.replyMarkdown(ctx, chatID, text)
}

// limiter returns the per-chat rate limiter, creating it on first use.
// One fetch per 30 seconds with a burst of two keeps a single chat from
// monopolizing the browser workers.
func (b *Bot) limiter(chatID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Every(30*time.Second), 2)
		b.limiters[chatID] = l
	}
	return l
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.replyMarkdown(ctx, chatID, b.renderer.RenderText(text))
}

func (b *Bot) replyMarkdown(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.SendMessage(ctx, chatID, text, ParseModeMarkdownV2); err != nil {
		b.logger.Warn("failed to send message", slog.String("error", err.Error()), slog.Int64("chat_id", chatID))
	}
}
