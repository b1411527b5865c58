// Package state tracks which multi-step text flow each user is in.
package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidTransition = errors.New("invalid flow transition")

type Flow string

const (
	Idle                 Flow = ""
	AwaitingSubjectName  Flow = "awaiting_subject_name"
	AwaitingNoteText     Flow = "awaiting_note_text"
	AwaitingNoteEdit     Flow = "awaiting_note_edit"
	AwaitingPromptText   Flow = "awaiting_prompt_text"
	AwaitingTemplateName Flow = "awaiting_template_name"
	AwaitingTemplateText Flow = "awaiting_template_text"
)

func (f Flow) String() string {
	if f == Idle {
		return "idle"
	}
	return string(f)
}

// Key identifies one conversation: a user inside a chat.
type Key struct {
	OwnerID   int64
	SessionID int64
}

func (k Key) String() string {
	return strconv.FormatInt(k.OwnerID, 10) + ":" + strconv.FormatInt(k.SessionID, 10)
}

// State is the active flow plus the input collected so far.
type State struct {
	Flow         Flow   `json:"flow"`
	SubjectID    int64  `json:"subject_id,omitempty"`
	NoteID       string `json:"note_id,omitempty"`
	TemplateName string `json:"template_name,omitempty"`
	KeepDisabled bool   `json:"keep_disabled,omitempty"`
	// PromptMessageID is the bot message that asked for input.
	PromptMessageID int `json:"prompt_message_id,omitempty"`
}

func (s State) Active() bool {
	return s.Flow != Idle
}

// Store persists conversation state. Implementations must be safe for
// concurrent use by different keys.
type Store interface {
	Load(ctx context.Context, key Key) (State, error)
	Save(ctx context.Context, key Key, st State) error
	Delete(ctx context.Context, key Key) error
}

// Machine applies flow transitions on top of a Store.
type Machine struct {
	store Store
}

func NewMachine(store Store) *Machine {
	return &Machine{store: store}
}

// Current returns the state for key, Idle when nothing is stored.
func (m *Machine) Current(ctx context.Context, key Key) (State, error) {
	st, err := m.store.Load(ctx, key)
	if err != nil {
		return State{}, fmt.Errorf("failed to load state for %s: %w", key, err)
	}
	return st, nil
}

// Enter starts a flow, superseding whatever flow was active.
func (m *Machine) Enter(ctx context.Context, key Key, next State) error {
	if next.Flow == Idle {
		return m.Reset(ctx, key)
	}
	if next.Flow == AwaitingTemplateText {
		return fmt.Errorf("%w: %s can only follow %s", ErrInvalidTransition, next.Flow, AwaitingTemplateName)
	}
	return m.save(ctx, key, next)
}

// Advance moves from one step of a flow to the next one. It fails when the
// stored flow is not from, e.g. after the state expired or was cancelled.
func (m *Machine) Advance(ctx context.Context, key Key, from Flow, next State) error {
	current, err := m.Current(ctx, key)
	if err != nil {
		return err
	}
	if current.Flow != from || !allowed(from, next.Flow) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Flow, next.Flow)
	}
	return m.save(ctx, key, next)
}

// Reset returns key to Idle, dropping the accumulated input.
func (m *Machine) Reset(ctx context.Context, key Key) error {
	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to reset state for %s: %w", key, err)
	}
	return nil
}

func (m *Machine) save(ctx context.Context, key Key, next State) error {
	if err := m.store.Save(ctx, key, next); err != nil {
		return fmt.Errorf("failed to save state for %s: %w", key, err)
	}
	return nil
}

// steps lists the in-flow transitions; everything else is entry or reset.
var steps = map[Flow][]Flow{
	AwaitingTemplateName: {AwaitingTemplateText},
}

func allowed(from, to Flow) bool {
	for _, f := range steps[from] {
		if f == to {
			return true
		}
	}
	return false
}
