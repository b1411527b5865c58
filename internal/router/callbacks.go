package router

import (
	"context"

	"github.com/xaenox/vibe-tracker/internal/action"
	"github.com/xaenox/vibe-tracker/internal/prompt"
	"go.uber.org/zap"
)

func (r *Router) handleCallback(ctx context.Context, ev *event, a action.Action) error {
	switch a.Verb {
	case action.ListSubjects:
		subjects, err := r.store.ListSubjects(ctx, ev.key.OwnerID)
		if err != nil {
			return err
		}
		return r.show(ctx, ev, subjectListView("👥 Your people and meetings:", subjects, action.SelectSubjectToken))
	case action.AddSubject:
		return r.beginAddSubject(ctx, ev)
	case action.Cancel:
		return r.cancelButton(ctx, ev)
	case action.EditNote:
		return r.beginEditNote(ctx, ev, a.Arg(0))
	case action.ReanalyzeNote:
		return r.reanalyzeNote(ctx, ev, a.Arg(0))
	case action.ViewNote:
		if _, err := a.Int(1); err != nil {
			return err
		}
		page, err := a.Int(2)
		if err != nil {
			return err
		}
		return r.showNote(ctx, ev, a.Arg(0), int(page))
	case action.DeleteNote:
		subjectID, err := a.Int(1)
		if err != nil {
			return err
		}
		return r.deleteNote(ctx, ev, a.Arg(0), subjectID)
	case action.ApplyTemplate, action.DeleteTemplate:
		templateID, err := a.Int(0)
		if err != nil {
			return err
		}
		subjectID, err := a.Int(1)
		if err != nil {
			return err
		}
		if a.Verb == action.ApplyTemplate {
			return r.applyTemplate(ctx, ev, templateID, subjectID)
		}
		return r.deleteTemplate(ctx, ev, templateID, subjectID)
	}

	// The remaining verbs address a subject by their first argument.
	subjectID, err := a.Int(0)
	if err != nil {
		return err
	}

	switch a.Verb {
	case action.SelectSubject:
		return r.showSubject(ctx, ev, subjectID)
	case action.AddNote:
		return r.beginAddNote(ctx, ev, subjectID)
	case action.ViewHistory, action.TurnPage:
		page, err := a.Int(1)
		if err != nil {
			return err
		}
		return r.showHistory(ctx, ev, subjectID, int(page))
	case action.ViewPrompt:
		return r.showPrompt(ctx, ev, subjectID)
	case action.SetPrompt:
		return r.beginSetPrompt(ctx, ev, subjectID)
	case action.DisablePrompt:
		return r.updatePrompt(ctx, ev, subjectID, prompt.Disable, "⏸ Instruction disabled")
	case action.EnablePrompt:
		return r.updatePrompt(ctx, ev, subjectID, prompt.Enable, "▶️ Instruction enabled")
	case action.ResetPrompt:
		return r.updatePrompt(ctx, ev, subjectID, prompt.Reset, "♻️ Default instruction restored")
	case action.ListTemplates:
		return r.showTemplates(ctx, ev, subjectID)
	case action.NewTemplate:
		return r.beginNewTemplate(ctx, ev, subjectID)
	default:
		r.logger.Warn("Unhandled action", append(ev.fields(), zap.String("verb", string(a.Verb)))...)
		return action.ErrMalformedAction
	}
}

// cancelButton aborts the active flow and removes the input prompt.
func (r *Router) cancelButton(ctx context.Context, ev *event) error {
	st, err := r.machine.Current(ctx, ev.key)
	if err != nil {
		return err
	}
	if st.Active() {
		if err := r.machine.Reset(ctx, ev.key); err != nil {
			return err
		}
		r.metrics.FlowCompleted(st.Flow.String(), "cancelled")
	}

	r.answer(ctx, ev, "❌ Cancelled", false)
	r.deleteQuietly(ctx, ev.chatID, ev.messageID)
	return nil
}

func (r *Router) showSubject(ctx context.Context, ev *event, subjectID int64) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}
	notes, err := r.store.CountNotes(ctx, subject.ID)
	if err != nil {
		return err
	}
	return r.show(ctx, ev, subjectView(subject, notes))
}

func (r *Router) showPrompt(ctx context.Context, ev *event, subjectID int64) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}
	return r.show(ctx, ev, promptView(subject))
}

func (r *Router) updatePrompt(ctx context.Context, ev *event, subjectID int64, change func(*string) *string, done string) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}

	subject.Prompt = change(subject.Prompt)
	if err := r.store.UpdateSubjectPrompt(ctx, ev.key.OwnerID, subject.ID, subject.Prompt); err != nil {
		return err
	}

	r.answer(ctx, ev, done, false)
	return r.show(ctx, ev, promptView(subject))
}

func (r *Router) showTemplates(ctx context.Context, ev *event, subjectID int64) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}
	templates, err := r.store.ListTemplates(ctx, ev.key.OwnerID)
	if err != nil {
		return err
	}
	return r.show(ctx, ev, templatesView(subject, templates))
}

func (r *Router) applyTemplate(ctx context.Context, ev *event, templateID, subjectID int64) error {
	tpl, err := r.store.GetTemplate(ctx, ev.key.OwnerID, templateID)
	if err != nil {
		return err
	}
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}

	subject.Prompt = prompt.Apply(tpl.Text)
	if err := r.store.UpdateSubjectPrompt(ctx, ev.key.OwnerID, subject.ID, subject.Prompt); err != nil {
		return err
	}

	r.answer(ctx, ev, "✅ Template "+tpl.Name+" applied", false)
	return r.show(ctx, ev, promptView(subject))
}

func (r *Router) deleteTemplate(ctx context.Context, ev *event, templateID, subjectID int64) error {
	if err := r.store.DeleteTemplate(ctx, ev.key.OwnerID, templateID); err != nil {
		return err
	}
	r.answer(ctx, ev, "🗑️ Template deleted", false)
	return r.showTemplates(ctx, ev, subjectID)
}
