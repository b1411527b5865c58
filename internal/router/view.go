package router

import (
	"context"
	"strings"
)

// Sender is the chat user behind an event.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

func (s Sender) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Message is an inbound text message.
type Message struct {
	ChatID    int64
	MessageID int
	From      Sender
	Text      string
	// Command is the slash command without the slash, empty for plain text.
	Command string
}

// Callback is an inbound button press.
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	From      Sender
	Data      string
}

// Button is an inline button carrying an action token.
type Button struct {
	Text string
	Data string
}

// View is one rendered message. Text is MarkdownV2.
type View struct {
	Text    string
	Buttons [][]Button
	// MainMenu attaches the persistent reply menu instead of inline buttons.
	MainMenu bool
}

// Responder delivers render instructions to the chat transport.
type Responder interface {
	Send(ctx context.Context, chatID int64, view View) (messageID int, err error)
	Edit(ctx context.Context, chatID int64, messageID int, view View) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	Answer(ctx context.Context, callbackID, text string, alert bool) error
}

// Main menu labels. Text equal to one of them is treated as navigation.
const (
	MenuAddNote  = "➕ Note"
	MenuSubjects = "👥 Meetings"
	MenuHistory  = "🕘 History"
	MenuSettings = "⚙️ Settings"
	MenuHelp     = "❓ Help"
)

// MainMenuLayout is the reply keyboard layout, row by row.
var MainMenuLayout = [][]string{
	{MenuAddNote, MenuSubjects},
	{MenuHistory, MenuSettings},
	{MenuHelp},
}

func isMenuLabel(text string) bool {
	for _, row := range MainMenuLayout {
		for _, label := range row {
			if text == label {
				return true
			}
		}
	}
	return false
}
