package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/vibe-tracker/internal/router"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	return tgbotapi.Message{MessageID: 100 + len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type recordingHandler struct {
	mu        sync.Mutex
	messages  []router.Message
	callbacks []router.Callback
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg router.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) HandleCallback(_ context.Context, cb router.Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, cb)
}

func TestSendRendersInlineKeyboard(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, 60, zap.NewNop())

	id, err := b.Send(context.Background(), 9, router.View{
		Text:    "*Alex*",
		Buttons: [][]router.Button{{{Text: "History", Data: "hist:1:0"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(9), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, "History", btn.Text)
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "hist:1:0", *btn.CallbackData)
}

func TestSendAttachesMainMenu(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, 60, zap.NewNop())

	_, err := b.Send(context.Background(), 9, router.View{Text: "hi", MainMenu: true})
	require.NoError(t, err)

	msg := api.sent[0].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.Keyboard, len(router.MainMenuLayout))
	assert.Equal(t, router.MenuAddNote, markup.Keyboard[0][0].Text)
}

func TestEditIgnoresNotModified(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("Bad Request: message is not modified: specified new message content is the same")}
	b := newBot(api, 60, zap.NewNop())

	err := b.Edit(context.Background(), 9, 5, router.View{
		Text:    "page",
		Buttons: [][]router.Button{{{Text: "➡️", Data: "page:1:1"}}},
	})
	require.NoError(t, err)

	edit := api.sent[0].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, 5, edit.MessageID)
	require.NotNil(t, edit.ReplyMarkup)

	api.sendErr = errors.New("Bad Request: message to edit not found")
	assert.Error(t, b.Edit(context.Background(), 9, 5, router.View{Text: "page"}))
}

func TestAnswerAndDelete(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, 60, zap.NewNop())

	require.NoError(t, b.Answer(context.Background(), "cb-1", "⚠️ Invalid action", true))
	require.NoError(t, b.Delete(context.Background(), 9, 5))

	require.Len(t, api.requests, 2)
	cb := api.requests[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, "cb-1", cb.CallbackQueryID)
	assert.True(t, cb.ShowAlert)

	del := api.requests[1].(tgbotapi.DeleteMessageConfig)
	assert.Equal(t, 5, del.MessageID)
}

func TestStartDispatchesUpdates(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	b := newBot(api, 60, zap.NewNop())
	h := &recordingHandler{}

	user := &tgbotapi.User{ID: 7, UserName: "sam", FirstName: "Sam", LastName: "Lead"}
	chat := &tgbotapi.Chat{ID: 9}

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      user,
		Chat:      chat,
		Text:      "/start@vibe_bot",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 15}},
	}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 2, From: user, Chat: chat, Caption: "photo note"}}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    user,
		Message: &tgbotapi.Message{MessageID: 3, Chat: chat},
		Data:    "subjs",
	}}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "inline", From: user, Data: "subjs"}}
	close(api.updates)

	require.NoError(t, b.Start(context.Background(), h))

	require.Len(t, h.messages, 2)
	assert.Equal(t, "start", h.messages[0].Command)
	assert.Equal(t, "Sam Lead", h.messages[0].From.FullName())
	assert.Equal(t, "photo note", h.messages[1].Text)
	assert.Empty(t, h.messages[1].Command)

	require.Len(t, h.callbacks, 1)
	assert.Equal(t, router.Callback{ID: "cb-1", ChatID: 9, MessageID: 3, From: toSender(user), Data: "subjs"}, h.callbacks[0])

	// The inline-mode callback is only acknowledged.
	require.Len(t, api.requests, 1)
	assert.Equal(t, "inline", api.requests[0].(tgbotapi.CallbackConfig).CallbackQueryID)
}

func TestStartStopsOnCancel(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	b := newBot(api, 60, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, b.Start(ctx, &recordingHandler{}))
	assert.True(t, api.stopped)
}
