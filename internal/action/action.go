// Package action encodes and decodes the compact tokens attached to inline buttons.
//
// A token is the verb followed by its arguments, joined by ':'. Telegram limits
// callback data to 64 bytes, so verbs are short and arguments are ids or page numbers.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Delimiter = ":"
	MaxLength = 64
)

var (
	ErrMalformedAction = errors.New("malformed action")
	ErrInvalidArgument = errors.New("invalid action argument")
	ErrTooLong         = errors.New("action token too long")
)

type Verb string

const (
	SelectSubject  Verb = "subj"
	ListSubjects   Verb = "subjs"
	AddSubject     Verb = "subj_add"
	AddNote        Verb = "note_add"
	Cancel         Verb = "cancel"
	ViewHistory    Verb = "hist"
	TurnPage       Verb = "page"
	ViewNote       Verb = "note"
	EditNote       Verb = "note_edit"
	ReanalyzeNote  Verb = "note_re"
	DeleteNote     Verb = "note_del"
	ViewPrompt     Verb = "prm"
	SetPrompt      Verb = "prm_set"
	DisablePrompt  Verb = "prm_off"
	EnablePrompt   Verb = "prm_on"
	ResetPrompt    Verb = "prm_reset"
	ListTemplates  Verb = "tpl"
	NewTemplate    Verb = "tpl_new"
	ApplyTemplate  Verb = "tpl_apply"
	DeleteTemplate Verb = "tpl_del"
)

// arity is the number of arguments each verb carries on the wire.
var arity = map[Verb]int{
	SelectSubject:  1,
	ListSubjects:   0,
	AddSubject:     0,
	AddNote:        1,
	Cancel:         0,
	ViewHistory:    2,
	TurnPage:       2,
	ViewNote:       3,
	EditNote:       1,
	ReanalyzeNote:  1,
	DeleteNote:     2,
	ViewPrompt:     1,
	SetPrompt:      1,
	DisablePrompt:  1,
	EnablePrompt:   1,
	ResetPrompt:    1,
	ListTemplates:  1,
	NewTemplate:    1,
	ApplyTemplate:  2,
	DeleteTemplate: 2,
}

// Arity reports how many arguments verb takes and whether the verb is known.
func Arity(verb Verb) (int, bool) {
	n, ok := arity[verb]
	return n, ok
}

// Action is a decoded button payload.
type Action struct {
	Verb Verb
	Args []string
}

// Arg returns the i-th argument verbatim.
func (a Action) Arg(i int) string {
	if i < 0 || i >= len(a.Args) {
		return ""
	}
	return a.Args[i]
}

// Int parses the i-th argument as a decimal integer.
func (a Action) Int(i int) (int64, error) {
	if i < 0 || i >= len(a.Args) {
		return 0, fmt.Errorf("%w: %s has no argument %d", ErrMalformedAction, a.Verb, i)
	}
	n, err := strconv.ParseInt(a.Args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s argument %d is not an integer", ErrMalformedAction, a.Verb, i)
	}
	return n, nil
}

func (a Action) String() string {
	return strings.Join(append([]string{string(a.Verb)}, a.Args...), Delimiter)
}

// Encode joins verb and args into a token.
func Encode(verb Verb, args ...string) (string, error) {
	n, ok := arity[verb]
	if !ok {
		return "", fmt.Errorf("%w: unknown verb %q", ErrMalformedAction, verb)
	}
	if len(args) != n {
		return "", fmt.Errorf("%w: %s expects %d arguments, got %d", ErrMalformedAction, verb, n, len(args))
	}
	for i, arg := range args {
		if arg == "" || strings.Contains(arg, Delimiter) {
			return "", fmt.Errorf("%w: %s argument %d is %q", ErrInvalidArgument, verb, i, arg)
		}
	}

	token := Action{Verb: verb, Args: args}.String()
	if len(token) > MaxLength {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLong, len(token))
	}
	return token, nil
}

// Decode splits a token into its verb and arguments.
func Decode(token string) (Action, error) {
	if token == "" || len(token) > MaxLength {
		return Action{}, fmt.Errorf("%w: bad token length %d", ErrMalformedAction, len(token))
	}

	fields := strings.Split(token, Delimiter)
	verb := Verb(fields[0])
	n, ok := arity[verb]
	if !ok {
		return Action{}, fmt.Errorf("%w: unknown verb %q", ErrMalformedAction, verb)
	}
	args := fields[1:]
	if len(args) != n {
		return Action{}, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrMalformedAction, verb, n, len(args))
	}
	for i, arg := range args {
		if arg == "" {
			return Action{}, fmt.Errorf("%w: %s argument %d is empty", ErrMalformedAction, verb, i)
		}
	}

	return Action{Verb: verb, Args: args}, nil
}

func mustEncode(verb Verb, args ...string) string {
	token, err := Encode(verb, args...)
	if err != nil {
		panic(err)
	}
	return token
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Builders for the tokens the bot renders. Ids are integers or UUIDs, so they
// never contain the delimiter and always fit the length limit.

func SelectSubjectToken(subjectID int64) string { return mustEncode(SelectSubject, itoa(subjectID)) }
func ListSubjectsToken() string                 { return mustEncode(ListSubjects) }
func AddSubjectToken() string                   { return mustEncode(AddSubject) }
func AddNoteToken(subjectID int64) string       { return mustEncode(AddNote, itoa(subjectID)) }
func CancelToken() string                       { return mustEncode(Cancel) }

func ViewHistoryToken(subjectID int64, page int) string {
	return mustEncode(ViewHistory, itoa(subjectID), itoa(int64(page)))
}

func TurnPageToken(subjectID int64, page int) string {
	return mustEncode(TurnPage, itoa(subjectID), itoa(int64(page)))
}

func ViewNoteToken(noteID string, subjectID int64, page int) string {
	return mustEncode(ViewNote, noteID, itoa(subjectID), itoa(int64(page)))
}

func EditNoteToken(noteID string) string      { return mustEncode(EditNote, noteID) }
func ReanalyzeNoteToken(noteID string) string { return mustEncode(ReanalyzeNote, noteID) }

func DeleteNoteToken(noteID string, subjectID int64) string {
	return mustEncode(DeleteNote, noteID, itoa(subjectID))
}

func ViewPromptToken(subjectID int64) string    { return mustEncode(ViewPrompt, itoa(subjectID)) }
func SetPromptToken(subjectID int64) string     { return mustEncode(SetPrompt, itoa(subjectID)) }
func DisablePromptToken(subjectID int64) string { return mustEncode(DisablePrompt, itoa(subjectID)) }
func EnablePromptToken(subjectID int64) string  { return mustEncode(EnablePrompt, itoa(subjectID)) }
func ResetPromptToken(subjectID int64) string   { return mustEncode(ResetPrompt, itoa(subjectID)) }
func ListTemplatesToken(subjectID int64) string { return mustEncode(ListTemplates, itoa(subjectID)) }
func NewTemplateToken(subjectID int64) string   { return mustEncode(NewTemplate, itoa(subjectID)) }

func ApplyTemplateToken(templateID, subjectID int64) string {
	return mustEncode(ApplyTemplate, itoa(templateID), itoa(subjectID))
}

func DeleteTemplateToken(templateID, subjectID int64) string {
	return mustEncode(DeleteTemplate, itoa(templateID), itoa(subjectID))
}
