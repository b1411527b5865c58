// Package router turns chat events into storage operations, flow transitions
// and render instructions. It knows nothing about the chat transport.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/xaenox/vibe-tracker/internal/action"
	"github.com/xaenox/vibe-tracker/internal/analyzer"
	"github.com/xaenox/vibe-tracker/internal/metrics"
	"github.com/xaenox/vibe-tracker/internal/models"
	"github.com/xaenox/vibe-tracker/internal/pagination"
	"github.com/xaenox/vibe-tracker/internal/state"
	"github.com/xaenox/vibe-tracker/internal/storage"
	"go.uber.org/zap"
)

const (
	outcomeOK        = "ok"
	outcomeIgnored   = "ignored"
	outcomeMalformed = "malformed"
	outcomeNotFound  = "not_found"
	outcomeDuplicate = "duplicate"
	outcomeError     = "error"
	outcomePanic     = "panic"
)

var knownCommands = map[string]bool{
	"start": true, "help": true, "subjects": true, "my_team": true,
	"add_subject": true, "add_person": true, "cancel": true,
}

// errIgnored marks events that need no reaction, e.g. idle free text.
var errIgnored = errors.New("ignored")

type Config struct {
	PageSize           int
	SynopsisLength     int
	DefaultInstruction string
}

type Router struct {
	store    storage.Storage
	machine  *state.Machine
	analyzer analyzer.Analyzer
	out      Responder
	metrics  *metrics.Metrics
	cfg      Config
	logger   *zap.Logger
}

func New(
	store storage.Storage,
	machine *state.Machine,
	an analyzer.Analyzer,
	out Responder,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Router {
	if cfg.PageSize <= 0 {
		cfg.PageSize = pagination.DefaultPageSize
	}
	if cfg.SynopsisLength <= 0 {
		cfg.SynopsisLength = 40
	}
	if strings.TrimSpace(cfg.DefaultInstruction) == "" {
		cfg.DefaultInstruction = analyzer.DefaultInstruction
	}

	return &Router{
		store:    store,
		machine:  machine,
		analyzer: an,
		out:      out,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}
}

// event is the reply context shared by message and callback handling.
type event struct {
	key        state.Key
	sender     Sender
	chatID     int64
	messageID  int
	callbackID string
	answered   bool
}

func (e *event) isCallback() bool {
	return e.callbackID != ""
}

func (e *event) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("user_id", e.key.OwnerID),
		zap.Int64("chat_id", e.chatID),
	}
}

// HandleMessage processes one text message.
func (r *Router) HandleMessage(ctx context.Context, msg Message) {
	ev := &event{
		key:       state.Key{OwnerID: msg.From.ID, SessionID: msg.ChatID},
		sender:    msg.From,
		chatID:    msg.ChatID,
		messageID: msg.MessageID,
	}

	verb := "text"
	switch {
	case msg.Command != "":
		verb = "/unknown"
		if knownCommands[msg.Command] {
			verb = "/" + msg.Command
		}
	case isMenuLabel(strings.TrimSpace(msg.Text)):
		verb = "menu"
	}

	r.dispatch(ctx, ev, "message", verb, func() (bool, error) {
		return r.handleMessage(ctx, ev, msg)
	})
}

// HandleCallback processes one button press.
func (r *Router) HandleCallback(ctx context.Context, cb Callback) {
	ev := &event{
		key:        state.Key{OwnerID: cb.From.ID, SessionID: cb.ChatID},
		sender:     cb.From,
		chatID:     cb.ChatID,
		messageID:  cb.MessageID,
		callbackID: cb.ID,
	}

	a, err := action.Decode(cb.Data)
	if err != nil {
		r.logger.Warn("Received malformed action",
			append(ev.fields(), zap.String("data", cb.Data), zap.Error(err))...)
		r.answer(ctx, ev, "⚠️ Invalid action", true)
		r.metrics.RecordEvent("callback", "invalid", outcomeMalformed, 0)
		return
	}

	r.dispatch(ctx, ev, "callback", string(a.Verb), func() (bool, error) {
		return false, r.handleCallback(ctx, ev, a)
	})
	if !ev.answered {
		r.answer(ctx, ev, "", false)
	}
}

// dispatch runs handle, maps its error to a user-visible reaction and records
// the event. handle reports whether the error happened inside a text flow.
func (r *Router) dispatch(ctx context.Context, ev *event, kind, verb string, handle func() (bool, error)) {
	start := time.Now()
	outcome := outcomeOK

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Recovered from panic while handling event",
				append(ev.fields(),
					zap.String("kind", kind),
					zap.String("verb", verb),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))...)
			outcome = outcomePanic
			r.resetQuietly(ctx, ev)
			r.notify(ctx, ev, "Something went wrong. Please try again.")
		}
		r.metrics.RecordEvent(kind, verb, outcome, time.Since(start))
	}()

	inFlow, err := handle()
	outcome = r.report(ctx, ev, inFlow, err)
}

// report applies the error taxonomy: missing entities abort the flow with a
// notice, anything unexpected clears the flow and shows a generic failure.
func (r *Router) report(ctx context.Context, ev *event, inFlow bool, err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, errIgnored):
		return outcomeIgnored
	case errors.Is(err, action.ErrMalformedAction):
		r.answer(ctx, ev, "⚠️ Invalid action", true)
		return outcomeMalformed
	case errors.Is(err, storage.ErrNotFound):
		if inFlow {
			r.resetQuietly(ctx, ev)
		}
		r.notify(ctx, ev, "Not found. It may have been deleted.")
		return outcomeNotFound
	case errors.Is(err, storage.ErrDuplicate):
		r.notify(ctx, ev, "This name is already taken.")
		return outcomeDuplicate
	default:
		r.logger.Error("Failed to handle event", append(ev.fields(), zap.Error(err))...)
		r.resetQuietly(ctx, ev)
		r.notify(ctx, ev, "Something went wrong. Please try again.")
		return outcomeError
	}
}

func (r *Router) handleMessage(ctx context.Context, ev *event, msg Message) (bool, error) {
	r.ensureOwner(ctx, ev.sender)

	if msg.Command != "" {
		return false, r.handleCommand(ctx, ev, msg.Command)
	}

	text := strings.TrimSpace(msg.Text)
	if isMenuLabel(text) {
		return false, r.handleMenu(ctx, ev, text)
	}

	st, err := r.machine.Current(ctx, ev.key)
	if err != nil {
		return false, err
	}
	if !st.Active() {
		return false, errIgnored
	}
	if text == "" {
		return true, r.reprompt(ctx, ev, st)
	}
	return true, r.handleFlowText(ctx, ev, st, text)
}

func (r *Router) handleCommand(ctx context.Context, ev *event, command string) error {
	switch command {
	case "start":
		r.abandonFlow(ctx, ev)
		return r.start(ctx, ev)
	case "help":
		r.abandonFlow(ctx, ev)
		return r.send(ctx, ev, helpView())
	case "subjects", "my_team":
		r.abandonFlow(ctx, ev)
		return r.showSubjects(ctx, ev, "👥 Your people and meetings:", action.SelectSubjectToken)
	case "add_subject", "add_person":
		return r.beginAddSubject(ctx, ev)
	case "cancel":
		return r.cancelCommand(ctx, ev)
	default:
		return r.unknownCommand(ctx, ev)
	}
}

// unknownCommand is a no-op while idle. Inside a flow it hints at /help and
// leaves the flow waiting for input.
func (r *Router) unknownCommand(ctx context.Context, ev *event) error {
	st, err := r.machine.Current(ctx, ev.key)
	if err != nil {
		return err
	}
	if !st.Active() {
		return errIgnored
	}
	return r.send(ctx, ev, plain("Unknown command. Use /help to see available commands or /cancel to stop."))
}

func (r *Router) handleMenu(ctx context.Context, ev *event, label string) error {
	r.abandonFlow(ctx, ev)

	switch label {
	case MenuAddNote:
		return r.showSubjects(ctx, ev, "📝 Who is the note about?", action.AddNoteToken)
	case MenuSubjects:
		return r.showSubjects(ctx, ev, "👥 Your people and meetings:", action.SelectSubjectToken)
	case MenuHistory:
		return r.showSubjects(ctx, ev, "🕘 Whose history do you want to see?", func(id int64) string {
			return action.ViewHistoryToken(id, 0)
		})
	case MenuSettings:
		templates, err := r.store.CountTemplates(ctx, ev.key.OwnerID)
		if err != nil {
			return err
		}
		return r.send(ctx, ev, settingsView(templates, r.cfg.DefaultInstruction))
	default:
		return r.send(ctx, ev, helpView())
	}
}

func (r *Router) start(ctx context.Context, ev *event) error {
	if err := r.send(ctx, ev, welcomeView(ev.sender.FullName())); err != nil {
		return err
	}

	count, err := r.store.CountSubjects(ctx, ev.key.OwnerID)
	if err != nil {
		return err
	}
	if count == 0 {
		return r.send(ctx, ev, emptySubjectsView())
	}
	return nil
}

func (r *Router) showSubjects(ctx context.Context, ev *event, header string, target func(int64) string) error {
	subjects, err := r.store.ListSubjects(ctx, ev.key.OwnerID)
	if err != nil {
		return err
	}
	return r.send(ctx, ev, subjectListView(header, subjects, target))
}

// ensureOwner creates the owner on first contact and keeps display names
// current. Failures are logged and the event proceeds.
func (r *Router) ensureOwner(ctx context.Context, sender Sender) {
	user, err := r.store.GetUser(ctx, sender.ID)
	switch {
	case err == nil && user.Username == sender.Username && user.FullName == sender.FullName():
		return
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		r.logger.Error("Failed to get user", zap.Error(err), zap.Int64("user_id", sender.ID))
		return
	}

	if err := r.store.SaveUser(ctx, &models.User{
		ID:       sender.ID,
		Username: sender.Username,
		FullName: sender.FullName(),
	}); err != nil {
		r.logger.Error("Failed to save user", zap.Error(err), zap.Int64("user_id", sender.ID))
	}
}

// enter starts a flow after its input prompt was shown.
func (r *Router) enter(ctx context.Context, ev *event, next state.State) error {
	if err := r.machine.Enter(ctx, ev.key, next); err != nil {
		return err
	}
	r.metrics.FlowStarted(next.Flow.String())
	return nil
}

// complete returns to idle after the last step of a flow.
func (r *Router) complete(ctx context.Context, ev *event, flow state.Flow, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	r.metrics.FlowCompleted(flow.String(), outcome)
	r.resetQuietly(ctx, ev)
}

// abandonFlow drops an active flow when the user navigates elsewhere.
func (r *Router) abandonFlow(ctx context.Context, ev *event) {
	st, err := r.machine.Current(ctx, ev.key)
	if err != nil {
		r.logger.Warn("Failed to load state", append(ev.fields(), zap.Error(err))...)
		return
	}
	if !st.Active() {
		return
	}
	r.metrics.FlowCompleted(st.Flow.String(), "abandoned")
	r.resetQuietly(ctx, ev)
}

func (r *Router) resetQuietly(ctx context.Context, ev *event) {
	if err := r.machine.Reset(ctx, ev.key); err != nil {
		r.logger.Error("Failed to reset state", append(ev.fields(), zap.Error(err))...)
	}
}

func (r *Router) cancelCommand(ctx context.Context, ev *event) error {
	st, err := r.machine.Current(ctx, ev.key)
	if err != nil {
		return err
	}
	if !st.Active() {
		return r.send(ctx, ev, plain("Nothing to cancel."))
	}

	if err := r.machine.Reset(ctx, ev.key); err != nil {
		return err
	}
	r.metrics.FlowCompleted(st.Flow.String(), "cancelled")
	if st.PromptMessageID != 0 {
		r.deleteQuietly(ctx, ev.chatID, st.PromptMessageID)
	}
	return r.send(ctx, ev, plain("❌ Cancelled."))
}

func (r *Router) send(ctx context.Context, ev *event, view View) error {
	_, err := r.sendID(ctx, ev, view)
	return err
}

func (r *Router) sendID(ctx context.Context, ev *event, view View) (int, error) {
	id, err := r.out.Send(ctx, ev.chatID, view)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return id, nil
}

// show replaces the message a button was pressed on, or sends a new one for
// text events.
func (r *Router) show(ctx context.Context, ev *event, view View) error {
	if !ev.isCallback() || ev.messageID == 0 {
		return r.send(ctx, ev, view)
	}
	if err := r.out.Edit(ctx, ev.chatID, ev.messageID, view); err != nil {
		r.logger.Warn("Failed to edit message, sending a new one",
			append(ev.fields(), zap.Int("message_id", ev.messageID), zap.Error(err))...)
		return r.send(ctx, ev, view)
	}
	return nil
}

func (r *Router) deleteQuietly(ctx context.Context, chatID int64, messageID int) {
	if err := r.out.Delete(ctx, chatID, messageID); err != nil {
		r.logger.Warn("Failed to delete message",
			zap.Error(err), zap.Int64("chat_id", chatID), zap.Int("message_id", messageID))
	}
}

func (r *Router) answer(ctx context.Context, ev *event, text string, alert bool) {
	if !ev.isCallback() || ev.answered {
		return
	}
	ev.answered = true
	if err := r.out.Answer(ctx, ev.callbackID, text, alert); err != nil {
		r.logger.Warn("Failed to answer callback", append(ev.fields(), zap.Error(err))...)
	}
}

// notify reports a problem: as an alert for an unanswered button press,
// as a message otherwise.
func (r *Router) notify(ctx context.Context, ev *event, text string) {
	if ev.isCallback() && !ev.answered {
		r.answer(ctx, ev, "⚠️ "+text, true)
		return
	}
	if _, err := r.out.Send(ctx, ev.chatID, warning(text)); err != nil {
		r.logger.Error("Failed to send error message", append(ev.fields(), zap.Error(err))...)
	}
}
