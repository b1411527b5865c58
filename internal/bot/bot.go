package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/vibe-tracker/internal/router"
	"go.uber.org/zap"
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler consumes inbound events.
type Handler interface {
	HandleMessage(ctx context.Context, msg router.Message)
	HandleCallback(ctx context.Context, cb router.Callback)
}

type Bot struct {
	api         telegramAPI
	pollTimeout int
	seq         *router.Sequencer
	logger      *zap.Logger
}

var _ router.Responder = (*Bot)(nil)

func New(token string, debug bool, pollTimeout int, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return newBot(api, pollTimeout, logger), nil
}

func newBot(api telegramAPI, pollTimeout int, logger *zap.Logger) *Bot {
	return &Bot{
		api:         api,
		pollTimeout: pollTimeout,
		seq:         router.NewSequencer(),
		logger:      logger,
	}
}

// Start long-polls for updates until ctx is cancelled. Events of one user are
// handled in arrival order, different users concurrently. In-flight events
// are allowed to finish before Start returns.
func (b *Bot) Start(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout

	updates := b.api.GetUpdatesChan(u)
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.seq.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.seq.Wait()
				return nil
			}
			b.dispatch(handlerCtx, h, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, h Handler, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		msg, ok := toMessage(update.Message)
		if !ok {
			return
		}
		b.seq.Go(msg.From.ID, func() { h.HandleMessage(ctx, msg) })

	case update.CallbackQuery != nil:
		cb, ok := toCallback(update.CallbackQuery)
		if !ok {
			// Buttons of inline-mode messages carry no chat.
			if err := b.Answer(ctx, update.CallbackQuery.ID, "", false); err != nil {
				b.logger.Warn("Failed to answer callback", zap.Error(err))
			}
			return
		}
		b.seq.Go(cb.From.ID, func() { h.HandleCallback(ctx, cb) })
	}
}

func toSender(u *tgbotapi.User) router.Sender {
	return router.Sender{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func toMessage(m *tgbotapi.Message) (router.Message, bool) {
	if m.From == nil || m.Chat == nil {
		return router.Message{}, false
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}

	msg := router.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		From:      toSender(m.From),
		Text:      text,
	}
	if m.IsCommand() {
		msg.Command = m.Command()
	}
	return msg, true
}

func toCallback(q *tgbotapi.CallbackQuery) (router.Callback, bool) {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return router.Callback{}, false
	}
	return router.Callback{
		ID:        q.ID,
		ChatID:    q.Message.Chat.ID,
		MessageID: q.Message.MessageID,
		From:      toSender(q.From),
		Data:      q.Data,
	}, true
}

func inlineKeyboard(rows [][]router.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(router.MainMenuLayout))
	for _, labels := range router.MainMenuLayout {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	return markup
}

func (b *Bot) Send(ctx context.Context, chatID int64, view router.View) (int, error) {
	msg := tgbotapi.NewMessage(chatID, view.Text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	switch {
	case view.MainMenu:
		msg.ReplyMarkup = mainMenu()
	case len(view.Buttons) > 0:
		msg.ReplyMarkup = inlineKeyboard(view.Buttons)
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

func (b *Bot) Edit(ctx context.Context, chatID int64, messageID int, view router.View) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, view.Text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	if len(view.Buttons) > 0 {
		markup := inlineKeyboard(view.Buttons)
		edit.ReplyMarkup = &markup
	}

	if _, err := b.api.Send(edit); err != nil && !isNotModified(err) {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (b *Bot) Delete(ctx context.Context, chatID int64, messageID int) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (b *Bot) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := b.api.Request(cb); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// Telegram rejects edits that change nothing, e.g. a double tap on the same page.
func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
