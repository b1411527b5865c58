package router

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/xaenox/vibe-tracker/internal/action"
	"github.com/xaenox/vibe-tracker/internal/models"
	"github.com/xaenox/vibe-tracker/internal/pagination"
	"github.com/xaenox/vibe-tracker/internal/prompt"
)

const (
	dateFormat     = "02.01.2006"
	dateTimeFormat = "02.01.2006 15:04"
	shortDate      = "02.01"

	// Telegram's limit, counted after entity parsing.
	maxMessageLength = 4096
)

// Reserved MarkdownV2 characters, backslash first.
var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// visibleLength is the length Telegram sees once the MarkdownV2 escapes and
// entity markers are stripped.
func visibleLength(md string) int {
	n := 0
	escaped := false
	for _, r := range md {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
			continue
		case strings.ContainsRune("*_~|`", r):
			continue
		}
		n += utf16.RuneLen(r)
	}
	return n
}

// clipNoteText cuts the raw text of a note so that it fits into one message
// next to the already rendered parts in rest.
func clipNoteText(raw string, rest ...string) string {
	budget := maxMessageLength
	for _, part := range rest {
		budget -= visibleLength(part)
	}
	return pagination.Clip(raw, budget)
}

func bold(text string) string {
	return "*" + escapeMarkdown(text) + "*"
}

func italic(text string) string {
	return "_" + escapeMarkdown(text) + "_"
}

func plain(text string) View {
	return View{Text: escapeMarkdown(text)}
}

func warning(text string) View {
	return View{Text: escapeMarkdown("⚠️ " + text)}
}

func row(buttons ...Button) []Button {
	return buttons
}

func cancelKeyboard() [][]Button {
	return [][]Button{row(Button{Text: "❌ Cancel", Data: action.CancelToken()})}
}

// inputPrompt asks for free text and offers a way out.
func inputPrompt(text string) View {
	return View{Text: text, Buttons: cancelKeyboard()}
}

func welcomeView(name string) View {
	greeting := "Hi!"
	if name != "" {
		greeting = "Hi, " + name + "!"
	}
	return View{
		Text: escapeMarkdown(greeting+" 👋") + "\n\n" +
			escapeMarkdown("I keep notes from your 1:1 meetings and analyze them: mood, summary, action items and tags.") + "\n\n" +
			escapeMarkdown("Add a person or a recurring meeting, then write notes about it. Use the menu below to get around."),
		MainMenu: true,
	}
}

func helpView() View {
	lines := []string{
		bold("How it works"),
		"",
		escapeMarkdown("1. Add a person or a recurring meeting with /add_subject."),
		escapeMarkdown("2. Open it from /subjects and tap 📝 Add note."),
		escapeMarkdown("3. Write the note as free text. I analyze it and save it together with the result."),
		escapeMarkdown("4. Browse past notes with 📜 History, edit or re-analyze them at any time."),
		"",
		bold("Commands"),
		escapeMarkdown("/start - show the welcome message"),
		escapeMarkdown("/subjects - your people and meetings"),
		escapeMarkdown("/add_subject - add a person or meeting"),
		escapeMarkdown("/cancel - abort the current input"),
		escapeMarkdown("/help - this message"),
		"",
		escapeMarkdown("Each meeting can have its own analysis instruction. Open it and tap 🧠 Prompt settings."),
	}
	return View{Text: strings.Join(lines, "\n"), MainMenu: true}
}

func emptySubjectsView() View {
	return View{
		Text: escapeMarkdown("You have no people or meetings yet. Add the first one:"),
		Buttons: [][]Button{
			row(Button{Text: "➕ Add", Data: action.AddSubjectToken()}),
		},
	}
}

// subjectListView lists subjects two per row; target builds the token each button carries.
func subjectListView(header string, subjects []*models.Subject, target func(id int64) string) View {
	if len(subjects) == 0 {
		return emptySubjectsView()
	}

	var rows [][]Button
	for i := 0; i < len(subjects); i += 2 {
		var r []Button
		for _, s := range subjects[i:min(i+2, len(subjects))] {
			r = append(r, Button{Text: "👤 " + s.Name, Data: target(s.ID)})
		}
		rows = append(rows, r)
	}
	rows = append(rows, row(Button{Text: "➕ Add new", Data: action.AddSubjectToken()}))

	return View{Text: escapeMarkdown(header), Buttons: rows}
}

func subjectView(subject *models.Subject, notes int) View {
	status := "default analysis"
	if instr := prompt.Parse(subject.Prompt); instr.Present {
		status = "custom analysis"
		if !instr.Enabled {
			status = "custom analysis, disabled"
		}
	}

	text := "👤 " + bold(subject.Name) + "\n\n" +
		escapeMarkdown(fmt.Sprintf("Notes: %d", notes)) + "\n" +
		escapeMarkdown("Instruction: "+status) + "\n\n" +
		escapeMarkdown("What would you like to do?")

	return View{
		Text: text,
		Buttons: [][]Button{
			row(Button{Text: "📝 Add note", Data: action.AddNoteToken(subject.ID)}),
			row(
				Button{Text: "📜 History", Data: action.ViewHistoryToken(subject.ID, 0)},
				Button{Text: "🧠 Prompt settings", Data: action.ViewPromptToken(subject.ID)},
			),
			row(Button{Text: "🔙 Back", Data: action.ListSubjectsToken()}),
		},
	}
}

func moodEmoji(mood *int) string {
	if mood == nil {
		return "😶"
	}
	switch {
	case *mood <= 3:
		return "😟"
	case *mood <= 6:
		return "😐"
	case *mood <= 8:
		return "🙂"
	default:
		return "🤩"
	}
}

// historyLabel is the button text of one history entry.
func historyLabel(note *models.Note, synopsisLength int) string {
	mood := "—"
	if note.Mood != nil {
		mood = fmt.Sprintf("%d/10", *note.Mood)
	}
	return fmt.Sprintf("%s %s %s · %s",
		note.CreatedAt.Format(shortDate),
		moodEmoji(note.Mood),
		mood,
		pagination.Synopsis(note.RawText, synopsisLength),
	)
}

func emptyHistoryView(subject *models.Subject) View {
	return View{
		Text: escapeMarkdown("📭 No notes about ") + bold(subject.Name) + escapeMarkdown(" yet."),
		Buttons: [][]Button{
			row(Button{Text: "📝 Add note", Data: action.AddNoteToken(subject.ID)}),
			row(Button{Text: "🔙 Back", Data: action.SelectSubjectToken(subject.ID)}),
		},
	}
}

func historyView(subject *models.Subject, notes []*models.Note, page pagination.Page, total, synopsisLength int) View {
	text := "📜 " + bold("History: "+subject.Name) + "\n" +
		escapeMarkdown(fmt.Sprintf("Page %d of %d · %d notes", page.Index+1, page.Count, total))

	var rows [][]Button
	for _, note := range notes {
		rows = append(rows, row(Button{
			Text: historyLabel(note, synopsisLength),
			Data: action.ViewNoteToken(note.ID, subject.ID, page.Index),
		}))
	}

	var nav []Button
	if page.HasPrev {
		nav = append(nav, Button{Text: "⬅️", Data: action.TurnPageToken(subject.ID, page.Index-1)})
	}
	if page.HasNext {
		nav = append(nav, Button{Text: "➡️", Data: action.TurnPageToken(subject.ID, page.Index+1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, row(Button{Text: "🔙 Back", Data: action.SelectSubjectToken(subject.ID)}))

	return View{Text: text, Buttons: rows}
}

// analysisLines renders the structured part of a note.
func analysisLines(a *models.Analysis) []string {
	if a == nil {
		return []string{italic("No analysis yet.")}
	}

	var lines []string
	switch {
	case a.Mood != nil && a.MoodText != "":
		lines = append(lines, moodEmoji(a.Mood)+" "+bold("Mood:")+" "+escapeMarkdown(fmt.Sprintf("%s (%d/10)", a.MoodText, *a.Mood)))
	case a.Mood != nil:
		lines = append(lines, moodEmoji(a.Mood)+" "+bold("Mood:")+" "+escapeMarkdown(fmt.Sprintf("%d/10", *a.Mood)))
	case a.MoodText != "":
		lines = append(lines, moodEmoji(nil)+" "+bold("Mood:")+" "+escapeMarkdown(a.MoodText))
	}

	if a.Summary != "" {
		lines = append(lines, "📝 "+bold("Summary:")+" "+escapeMarkdown(a.Summary))
	}
	if a.Positive != nil {
		lines = append(lines, "👍 "+escapeMarkdown(*a.Positive))
	}
	if a.Negative != nil {
		lines = append(lines, "👎 "+escapeMarkdown(*a.Negative))
	}
	if len(a.ActionItems) > 0 {
		lines = append(lines, "", "✅ "+bold("Action items:"))
		for _, item := range a.ActionItems {
			lines = append(lines, escapeMarkdown("• "+item))
		}
	}
	if len(a.Tags) > 0 {
		lines = append(lines, "", escapeMarkdown(strings.Join(a.Tags, " ")))
	}
	if a.Degraded() {
		lines = append(lines, "", italic("The analysis failed, the note is saved as is. Try 🔁 Re-analyze later."))
	}
	return lines
}

func noteButtons(note *models.Note, back string) [][]Button {
	rows := [][]Button{
		row(
			Button{Text: "✏️ Edit", Data: action.EditNoteToken(note.ID)},
			Button{Text: "🔁 Re-analyze", Data: action.ReanalyzeNoteToken(note.ID)},
		),
		row(Button{Text: "🗑️ Delete", Data: action.DeleteNoteToken(note.ID, note.SubjectID)}),
	}
	if back != "" {
		rows = append(rows, row(Button{Text: "🔙 To history", Data: back}))
	}
	return append(rows, row(Button{Text: "👤 To meeting", Data: action.SelectSubjectToken(note.SubjectID)}))
}

func noteDetailView(subject *models.Subject, note *models.Note, page int) View {
	header := "📅 " + bold(note.CreatedAt.Format(dateTimeFormat)) + escapeMarkdown(" · ") + bold(subject.Name)
	analysis := strings.Join(analysisLines(note.Analysis), "\n")
	raw := clipNoteText(note.RawText, header, analysis, "\n\n\n\n")

	return View{
		Text:    header + "\n\n" + escapeMarkdown(raw) + "\n\n" + analysis,
		Buttons: noteButtons(note, action.ViewHistoryToken(subject.ID, page)),
	}
}

// noteEditView asks for the corrected text and quotes the current one.
func noteEditView(note *models.Note) View {
	header := escapeMarkdown(fmt.Sprintf("✏️ Send the corrected text of the note from %s. The current text:", note.CreatedAt.Format(dateFormat)))
	raw := clipNoteText(note.RawText, header, "\n\n")
	return inputPrompt(header + "\n\n" + italic(raw))
}

type noteOutcome int

const (
	noteCreated noteOutcome = iota
	noteEdited
	noteReanalyzed
)

func noteResultView(subject *models.Subject, note *models.Note, outcome noteOutcome) View {
	var header string
	switch outcome {
	case noteCreated:
		header = "✅ " + escapeMarkdown("Note about ") + bold(subject.Name) + escapeMarkdown(" saved.")
	case noteEdited:
		header = "✏️ " + escapeMarkdown("Note about ") + bold(subject.Name) + escapeMarkdown(" updated.")
	default:
		header = "🔁 " + escapeMarkdown("Analysis for ") + bold(subject.Name) + escapeMarkdown(" refreshed.")
	}

	lines := append([]string{header, ""}, analysisLines(note.Analysis)...)
	return View{Text: strings.Join(lines, "\n"), Buttons: noteButtons(note, "")}
}

func promptView(subject *models.Subject) View {
	instr := prompt.Parse(subject.Prompt)

	lines := []string{"🧠 " + bold("Analysis instruction: "+subject.Name), ""}
	switch {
	case !instr.Present:
		lines = append(lines, escapeMarkdown("Status: default instruction."))
	case instr.Enabled:
		lines = append(lines, escapeMarkdown("Status: custom instruction, enabled."), "", escapeMarkdown(instr.Text))
	default:
		lines = append(lines,
			escapeMarkdown("Status: custom instruction, disabled. The default one is used."),
			"",
			italic(instr.Text),
		)
	}

	rows := [][]Button{
		row(
			Button{Text: "✏️ Set", Data: action.SetPromptToken(subject.ID)},
			Button{Text: "📚 Templates", Data: action.ListTemplatesToken(subject.ID)},
		),
	}
	if instr.Present {
		toggle := Button{Text: "⏸ Disable", Data: action.DisablePromptToken(subject.ID)}
		if !instr.Enabled {
			toggle = Button{Text: "▶️ Enable", Data: action.EnablePromptToken(subject.ID)}
		}
		rows = append(rows, row(toggle, Button{Text: "♻️ Reset", Data: action.ResetPromptToken(subject.ID)}))
	}
	rows = append(rows, row(Button{Text: "🔙 Back", Data: action.SelectSubjectToken(subject.ID)}))

	return View{Text: strings.Join(lines, "\n"), Buttons: rows}
}

func templatesView(subject *models.Subject, templates []*models.PromptTemplate) View {
	text := "📚 " + bold("Templates") + "\n\n"
	if len(templates) == 0 {
		text += escapeMarkdown("You have no templates yet.")
	} else {
		text += escapeMarkdown("Tap a template to apply it to ") + bold(subject.Name) + escapeMarkdown(".")
	}

	var rows [][]Button
	for _, tpl := range templates {
		rows = append(rows, row(
			Button{Text: "✅ " + tpl.Name, Data: action.ApplyTemplateToken(tpl.ID, subject.ID)},
			Button{Text: "🗑️", Data: action.DeleteTemplateToken(tpl.ID, subject.ID)},
		))
	}
	rows = append(rows,
		row(Button{Text: "➕ New template", Data: action.NewTemplateToken(subject.ID)}),
		row(Button{Text: "🔙 Back", Data: action.ViewPromptToken(subject.ID)}),
	)

	return View{Text: text, Buttons: rows}
}

func settingsView(templates int, defaultInstruction string) View {
	lines := []string{
		"⚙️ " + bold("Settings"),
		"",
		escapeMarkdown(fmt.Sprintf("Saved instruction templates: %d", templates)),
		escapeMarkdown("Meetings without a custom instruction are analyzed with the default one:"),
		"",
		italic(pagination.Synopsis(defaultInstruction, 300)),
		"",
		escapeMarkdown("To customize a meeting, open it and tap 🧠 Prompt settings."),
	}
	return View{Text: strings.Join(lines, "\n"), MainMenu: true}
}
