package router

import (
	"context"
	"time"

	"github.com/xaenox/vibe-tracker/internal/analyzer"
	"github.com/xaenox/vibe-tracker/internal/models"
	"github.com/xaenox/vibe-tracker/internal/pagination"
	"github.com/xaenox/vibe-tracker/internal/prompt"
	"go.uber.org/zap"
)

// analyzeAndStore runs the analysis for note, persists it and replaces the
// interim "analyzing" message with the result. A failed analysis still
// stores the note with a degraded result.
func (r *Router) analyzeAndStore(ctx context.Context, ev *event, subject *models.Subject, note *models.Note, outcome noteOutcome) error {
	interimID, err := r.out.Send(ctx, ev.chatID, plain("⏳ Analyzing the note…"))
	if err != nil {
		r.logger.Warn("Failed to send interim message", append(ev.fields(), zap.Error(err))...)
		interimID = 0
	}

	started := time.Now()
	analysis := r.analyzer.Analyze(ctx, analyzer.Request{
		Text:        note.RawText,
		Instruction: prompt.Effective(subject.Prompt, r.cfg.DefaultInstruction),
	})
	r.metrics.RecordAnalysis(analysis.Degraded(), time.Since(started))
	if analysis.Degraded() {
		r.logger.Warn("Note analysis degraded",
			append(ev.fields(), zap.Int64("subject_id", subject.ID), zap.String("reason", analysis.Error))...)
	}
	note.SetAnalysis(analysis)

	if outcome == noteCreated {
		err = r.store.CreateNote(ctx, note)
	} else {
		err = r.store.UpdateNote(ctx, note)
	}
	if err != nil {
		if interimID != 0 {
			r.deleteQuietly(ctx, ev.chatID, interimID)
		}
		return err
	}

	r.logger.Info("Note analyzed",
		append(ev.fields(),
			zap.String("note_id", note.ID),
			zap.Int64("subject_id", subject.ID),
			zap.Bool("degraded", analysis.Degraded()),
			zap.Duration("duration", time.Since(started)))...)

	return r.replace(ctx, ev, interimID, noteResultView(subject, note, outcome))
}

// replace edits messageID into view, falling back to delete and send.
func (r *Router) replace(ctx context.Context, ev *event, messageID int, view View) error {
	if messageID != 0 {
		err := r.out.Edit(ctx, ev.chatID, messageID, view)
		if err == nil {
			return nil
		}
		r.logger.Warn("Failed to edit interim message",
			append(ev.fields(), zap.Int("message_id", messageID), zap.Error(err))...)
		r.deleteQuietly(ctx, ev.chatID, messageID)
	}
	return r.send(ctx, ev, view)
}

func (r *Router) reanalyzeNote(ctx context.Context, ev *event, noteID string) error {
	note, err := r.store.GetNote(ctx, ev.key.OwnerID, noteID)
	if err != nil {
		return err
	}
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, note.SubjectID)
	if err != nil {
		return err
	}

	r.answer(ctx, ev, "🔁 Re-analyzing…", false)
	return r.analyzeAndStore(ctx, ev, subject, note, noteReanalyzed)
}

func (r *Router) showHistory(ctx context.Context, ev *event, subjectID int64, page int) error {
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, subjectID)
	if err != nil {
		return err
	}

	total, err := r.store.CountNotes(ctx, subject.ID)
	if err != nil {
		return err
	}
	if total == 0 {
		return r.show(ctx, ev, emptyHistoryView(subject))
	}

	p := pagination.Paginate(total, page, r.cfg.PageSize)
	notes, err := r.store.ListNotes(ctx, subject.ID, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return r.show(ctx, ev, historyView(subject, notes, p, total, r.cfg.SynopsisLength))
}

func (r *Router) showNote(ctx context.Context, ev *event, noteID string, page int) error {
	note, err := r.store.GetNote(ctx, ev.key.OwnerID, noteID)
	if err != nil {
		return err
	}
	subject, err := r.store.GetSubject(ctx, ev.key.OwnerID, note.SubjectID)
	if err != nil {
		return err
	}
	return r.show(ctx, ev, noteDetailView(subject, note, page))
}

func (r *Router) deleteNote(ctx context.Context, ev *event, noteID string, subjectID int64) error {
	if err := r.store.DeleteNote(ctx, ev.key.OwnerID, noteID); err != nil {
		return err
	}
	r.answer(ctx, ev, "🗑️ Note deleted", false)
	return r.showHistory(ctx, ev, subjectID, 0)
}
