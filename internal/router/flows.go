package router

import (
	"context"
	"errors"
	"strings"

	"github.com/xaenox/vibe-tracker/internal/models"
	"github.com/xaenox/vibe-tracker/internal/prompt"
	"github.com/xaenox/vibe-tracker/internal/state"
	"github.com/xaenox/vibe-tracker/internal/storage"
	"go.uber.org/zap"
)

func (r *Router) beginAddSubject(ctx context.Context, ev *event) error {
	id, err := r.sendID(ctx, ev, inputPrompt(escapeMarkdown("👤 Send the name of the person or the recurring meeting:")))
	if err != nil {
		return err
	}
	return r.enter(ctx, ev, state.State{Flow: state.AwaitingSubjectName, PromptMessageID: id})
}

func (r *Router) beginAddNote(ctx context.Context, ev *event, subjectID int64) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}

	id, err := r.sendID(ctx, ev, inputPrompt(
		escapeMarkdown("📝 Write the note about ")+bold(subject.Name)+escapeMarkdown(". Free text, as long as you like:"),
	))
	if err != nil {
		return err
	}
	return r.enter(ctx, ev, state.State{Flow: state.AwaitingNoteText, SubjectID: subject.ID, PromptMessageID: id})
}

func (r *Router) beginEditNote(ctx context.Context, ev *event, noteID string) error {
	note, err := r.store.GetNote(ctx, ev.key.OwnerID, noteID)
	if err != nil {
		return err
	}

	id, err := r.sendID(ctx, ev, noteEditView(note))
	if err != nil {
		return err
	}
	return r.enter(ctx, ev, state.State{
		Flow:            state.AwaitingNoteEdit,
		SubjectID:       note.SubjectID,
		NoteID:          note.ID,
		PromptMessageID: id,
	})
}

func (r *Router) beginSetPrompt(ctx context.Context, ev *event, subjectID int64) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}

	instr := prompt.Parse(subject.Prompt)
	text := escapeMarkdown("🧠 Send the analysis instruction for ") + bold(subject.Name) + escapeMarkdown(".")
	if instr.Present && !instr.Enabled {
		text += "\n" + escapeMarkdown("The instruction stays disabled until you enable it.")
	}

	id, err := r.sendID(ctx, ev, inputPrompt(text))
	if err != nil {
		return err
	}
	return r.enter(ctx, ev, state.State{
		Flow:            state.AwaitingPromptText,
		SubjectID:       subject.ID,
		KeepDisabled:    instr.Present && !instr.Enabled,
		PromptMessageID: id,
	})
}

func (r *Router) beginNewTemplate(ctx context.Context, ev *event, subjectID int64) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}

	id, err := r.sendID(ctx, ev, inputPrompt(escapeMarkdown("📚 Send a short name for the new template:")))
	if err != nil {
		return err
	}
	return r.enter(ctx, ev, state.State{Flow: state.AwaitingTemplateName, SubjectID: subject.ID, PromptMessageID: id})
}

// reprompt repeats the input request after blank text without leaving the flow.
func (r *Router) reprompt(ctx context.Context, ev *event, st state.State) error {
	var what string
	switch st.Flow {
	case state.AwaitingSubjectName:
		what = "a name"
	case state.AwaitingNoteText, state.AwaitingNoteEdit:
		what = "the note text"
	case state.AwaitingPromptText:
		what = "the instruction text"
	case state.AwaitingTemplateName:
		what = "the template name"
	default:
		what = "the template text"
	}
	return r.send(ctx, ev, inputPrompt(escapeMarkdown("The message is empty. Please send "+what+" or tap Cancel.")))
}

func (r *Router) handleFlowText(ctx context.Context, ev *event, st state.State, text string) error {
	var err error
	switch st.Flow {
	case state.AwaitingTemplateName:
		// Not a final step: the flow continues or is reset by the handler.
		return r.onTemplateName(ctx, ev, st, text)
	case state.AwaitingSubjectName:
		err = r.onSubjectName(ctx, ev, text)
	case state.AwaitingNoteText:
		err = r.onNoteText(ctx, ev, st, text)
	case state.AwaitingNoteEdit:
		err = r.onNoteEdit(ctx, ev, st, text)
	case state.AwaitingPromptText:
		err = r.onPromptText(ctx, ev, st, text)
	case state.AwaitingTemplateText:
		err = r.onTemplateText(ctx, ev, st, text)
	default:
		r.logger.Warn("Unknown flow in state, resetting", append(ev.fields(), zap.String("flow", string(st.Flow)))...)
		r.resetQuietly(ctx, ev)
		return errIgnored
	}

	r.complete(ctx, ev, st.Flow, err)
	return err
}

func (r *Router) onSubjectName(ctx context.Context, ev *event, name string) error {
	subject := &models.Subject{OwnerID: ev.key.OwnerID, Name: name}
	err := r.store.CreateSubject(ctx, subject)
	if errors.Is(err, storage.ErrDuplicate) {
		return r.send(ctx, ev, View{
			Text: escapeMarkdown("⚠️ ") + bold(name) + escapeMarkdown(" is already in your list."),
		})
	}
	if err != nil {
		return err
	}

	view := subjectView(subject, 0)
	view.Text = "✅ " + escapeMarkdown("Added.") + "\n\n" + view.Text
	return r.send(ctx, ev, view)
}

func (r *Router) onNoteText(ctx context.Context, ev *event, st state.State, text string) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, st.SubjectID)
	if err != nil {
		return err
	}
	note := &models.Note{SubjectID: subject.ID, RawText: text}
	return r.analyzeAndStore(ctx, ev, subject, note, noteCreated)
}

func (r *Router) onNoteEdit(ctx context.Context, ev *event, st state.State, text string) error {
	note, err := r.store.GetNote(ctx, ev.key.OwnerID, st.NoteID)
	if err != nil {
		return err
	}
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, note.SubjectID)
	if err != nil {
		return err
	}
	note.RawText = text
	return r.analyzeAndStore(ctx, ev, subject, note, noteEdited)
}

func (r *Router) onPromptText(ctx context.Context, ev *event, st state.State, text string) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, st.SubjectID)
	if err != nil {
		return err
	}

	subject.Prompt = prompt.WithText(text, st.KeepDisabled)
	if err := r.store.UpdateSubjectPrompt(ctx, ev.key.OwnerID, subject.ID, subject.Prompt); err != nil {
		return err
	}

	view := promptView(subject)
	view.Text = "✅ " + escapeMarkdown("Instruction saved.") + "\n\n" + view.Text
	return r.send(ctx, ev, view)
}

func (r *Router) onTemplateName(ctx context.Context, ev *event, st state.State, name string) error {
	taken, err := r.templateNameTaken(ctx, ev.key.OwnerID, name)
	if err != nil {
		return err
	}
	if taken {
		r.complete(ctx, ev, st.Flow, nil)
		return r.send(ctx, ev, View{
			Text: escapeMarkdown("⚠️ A template named ") + bold(name) + escapeMarkdown(" already exists."),
		})
	}

	id, err := r.sendID(ctx, ev, inputPrompt(
		escapeMarkdown("📚 Now send the instruction text for ")+bold(name)+escapeMarkdown(":"),
	))
	if err != nil {
		return err
	}

	return r.machine.Advance(ctx, ev.key, state.AwaitingTemplateName, state.State{
		Flow:            state.AwaitingTemplateText,
		SubjectID:       st.SubjectID,
		TemplateName:    name,
		PromptMessageID: id,
	})
}

func (r *Router) onTemplateText(ctx context.Context, ev *event, st state.State, text string) error {
	tpl := &models.PromptTemplate{OwnerID: ev.key.OwnerID, Name: st.TemplateName, Text: text}
	err := r.store.CreateTemplate(ctx, tpl)
	if errors.Is(err, storage.ErrDuplicate) {
		return r.send(ctx, ev, View{
			Text: escapeMarkdown("⚠️ A template named ") + bold(tpl.Name) + escapeMarkdown(" already exists."),
		})
	}
	if err != nil {
		return err
	}

	saved := "✅ " + escapeMarkdown("Template ") + bold(tpl.Name) + escapeMarkdown(" saved.")

	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, st.SubjectID)
	if errors.Is(err, storage.ErrNotFound) {
		return r.send(ctx, ev, View{Text: saved})
	}
	if err != nil {
		return err
	}
	templates, err := r.store.ListTemplates(ctx, ev.key.OwnerID)
	if err != nil {
		return err
	}

	view := templatesView(subject, templates)
	view.Text = saved + "\n\n" + view.Text
	return r.send(ctx, ev, view)
}

func (r *Router) templateNameTaken(ctx context.Context, ownerID int64, name string) (bool, error) {
	templates, err := r.store.ListTemplates(ctx, ownerID)
	if err != nil {
		return false, err
	}
	for _, tpl := range templates {
		if strings.EqualFold(tpl.Name, name) {
			return true, nil
		}
	}
	return false, nil
}
