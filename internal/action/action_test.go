package action

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	noteID := uuid.NewString()

	tests := []struct {
		name string
		verb Verb
		args []string
	}{
		{name: "no arguments", verb: ListSubjects},
		{name: "cancel", verb: Cancel},
		{name: "subject id", verb: SelectSubject, args: []string{"42"}},
		{name: "history page", verb: ViewHistory, args: []string{"42", "3"}},
		{name: "note view with uuid", verb: ViewNote, args: []string{noteID, "9223372036854775807", "999"}},
		{name: "delete note", verb: DeleteNote, args: []string{noteID, "7"}},
		{name: "apply template", verb: ApplyTemplate, args: []string{"11", "12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Encode(tt.verb, tt.args...)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(token), MaxLength)

			decoded, err := Decode(token)
			require.NoError(t, err)
			assert.Equal(t, tt.verb, decoded.Verb)
			if len(tt.args) == 0 {
				assert.Empty(t, decoded.Args)
			} else {
				assert.Equal(t, tt.args, decoded.Args)
			}
		})
	}
}

func TestEveryVerbRoundTrips(t *testing.T) {
	for verb, n := range arity {
		args := make([]string, n)
		for i := range args {
			args[i] = "1"
		}
		token, err := Encode(verb, args...)
		require.NoError(t, err, verb)

		decoded, err := Decode(token)
		require.NoError(t, err, verb)
		assert.Equal(t, verb, decoded.Verb)
		assert.Len(t, decoded.Args, n)
	}
}

func TestDecodeRejectsWrongArity(t *testing.T) {
	tests := []string{
		"subj",
		"subj:1:2",
		"subjs:1",
		"hist:1",
		"note:abc:1",
		"note:abc:1:2:3",
		"tpl_apply:1",
	}

	for _, token := range tests {
		t.Run(token, func(t *testing.T) {
			_, err := Decode(token)
			assert.ErrorIs(t, err, ErrMalformedAction)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []string{
		"",
		"unknown:1",
		"person_select:1",
		"hist::1",
		strings.Repeat("x", MaxLength+1),
	}

	for _, token := range tests {
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrMalformedAction, token)
	}
}

func TestEncodeValidatesArguments(t *testing.T) {
	_, err := Encode(SelectSubject, "1:2")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Encode(SelectSubject, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Encode(SelectSubject)
	assert.ErrorIs(t, err, ErrMalformedAction)

	_, err = Encode(Verb("nope"))
	assert.ErrorIs(t, err, ErrMalformedAction)

	_, err = Encode(ViewNote, strings.Repeat("a", 60), "1", "1")
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestInt(t *testing.T) {
	a, err := Decode("hist:42:-1")
	require.NoError(t, err)

	id, err := a.Int(0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	page, err := a.Int(1)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), page)

	_, err = a.Int(2)
	assert.ErrorIs(t, err, ErrMalformedAction)

	bad, err := Decode("subj:abc")
	require.NoError(t, err)
	_, err = bad.Int(0)
	assert.ErrorIs(t, err, ErrMalformedAction)
}

func TestBuilders(t *testing.T) {
	noteID := uuid.NewString()

	assert.Equal(t, "subj:5", SelectSubjectToken(5))
	assert.Equal(t, "page:5:2", TurnPageToken(5, 2))
	assert.Equal(t, "note:"+noteID+":5:1", ViewNoteToken(noteID, 5, 1))
	assert.Equal(t, "tpl_del:3:5", DeleteTemplateToken(3, 5))
	assert.Equal(t, "cancel", CancelToken())
}
