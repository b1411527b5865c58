package storage

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/vibe-tracker/internal/models"
	"go.uber.org/zap"
)

func TestMemoryStorage(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) Storage {
		return NewMemoryStorage()
	})
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	runStorageSuite(t, func(t *testing.T) Storage {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		store, err := OpenPostgres(ctx, dsn, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func newOwner(t *testing.T, ctx context.Context, store Storage) int64 {
	t.Helper()
	id := rand.Int63n(1<<40) + 1
	require.NoError(t, store.SaveUser(ctx, &models.User{ID: id, Username: "manager", FullName: "Test Manager"}))
	return id
}

func runStorageSuite(t *testing.T, newStore func(t *testing.T) Storage) {
	ctx := context.Background()

	t.Run("users are upserted", func(t *testing.T) {
		store := newStore(t)
		id := newOwner(t, ctx, store)

		require.NoError(t, store.SaveUser(ctx, &models.User{ID: id, Username: "renamed", FullName: "New Name"}))

		user, err := store.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "renamed", user.Username)
		assert.Equal(t, "New Name", user.FullName)

		_, err = store.GetUser(ctx, -1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate subject names are rejected per owner", func(t *testing.T) {
		store := newStore(t)
		owner := newOwner(t, ctx, store)
		other := newOwner(t, ctx, store)

		alex := &models.Subject{OwnerID: owner, Name: "Alex", Prompt: strPtr("keep it short")}
		require.NoError(t, store.CreateSubject(ctx, alex))
		assert.NotZero(t, alex.ID)

		err := store.CreateSubject(ctx, &models.Subject{OwnerID: owner, Name: "Alex"})
		assert.ErrorIs(t, err, ErrDuplicate)

		existing, err := store.GetSubject(ctx, owner, alex.ID)
		require.NoError(t, err)
		require.NotNil(t, existing.Prompt)
		assert.Equal(t, "keep it short", *existing.Prompt)

		require.NoError(t, store.CreateSubject(ctx, &models.Subject{OwnerID: other, Name: "Alex"}))

		count, err := store.CountSubjects(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("subjects are scoped to their owner", func(t *testing.T) {
		store := newStore(t)
		owner := newOwner(t, ctx, store)
		other := newOwner(t, ctx, store)

		subject := &models.Subject{OwnerID: owner, Name: "Weekly sync"}
		require.NoError(t, store.CreateSubject(ctx, subject))

		_, err := store.GetSubject(ctx, other, subject.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		err = store.UpdateSubjectPrompt(ctx, other, subject.ID, strPtr("x"))
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, store.UpdateSubjectPrompt(ctx, owner, subject.ID, strPtr("custom")))
		got, err := store.GetSubject(ctx, owner, subject.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Prompt)
		assert.Equal(t, "custom", *got.Prompt)

		require.NoError(t, store.UpdateSubjectPrompt(ctx, owner, subject.ID, nil))
		got, err = store.GetSubject(ctx, owner, subject.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Prompt)

		list, err := store.ListSubjects(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("notes are paged newest first", func(t *testing.T) {
		store := newStore(t)
		owner := newOwner(t, ctx, store)
		subject := &models.Subject{OwnerID: owner, Name: "Alex"}
		require.NoError(t, store.CreateSubject(ctx, subject))

		for i := 0; i < 12; i++ {
			note := &models.Note{SubjectID: subject.ID, RawText: fmt.Sprintf("note %d", i)}
			require.NoError(t, store.CreateNote(ctx, note))
			_, err := uuid.Parse(note.ID)
			require.NoError(t, err)
		}

		count, err := store.CountNotes(ctx, subject.ID)
		require.NoError(t, err)
		assert.Equal(t, 12, count)

		first, err := store.ListNotes(ctx, subject.ID, 5, 0)
		require.NoError(t, err)
		require.Len(t, first, 5)
		assert.Equal(t, "note 11", first[0].RawText)

		last, err := store.ListNotes(ctx, subject.ID, 5, 10)
		require.NoError(t, err)
		require.Len(t, last, 2)
		assert.Equal(t, "note 0", last[1].RawText)
	})

	t.Run("notes keep analysis and mirrored mood", func(t *testing.T) {
		store := newStore(t)
		owner := newOwner(t, ctx, store)
		other := newOwner(t, ctx, store)
		subject := &models.Subject{OwnerID: owner, Name: "Alex"}
		require.NoError(t, store.CreateSubject(ctx, subject))

		note := &models.Note{SubjectID: subject.ID, RawText: "feeling overwhelmed"}
		note.SetAnalysis(models.Analysis{
			Mood:        intPtr(3),
			MoodText:    "Anxious",
			Summary:     "Too much work",
			ActionItems: []string{"cut scope"},
			Negative:    strPtr("deadlines"),
			Tags:        []string{"#workload"},
		})
		require.NoError(t, store.CreateNote(ctx, note))

		got, err := store.GetNote(ctx, owner, note.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Mood)
		assert.Equal(t, 3, *got.Mood)
		require.NotNil(t, got.Analysis)
		assert.Equal(t, "Too much work", got.Analysis.Summary)
		assert.Equal(t, []string{"cut scope"}, got.Analysis.ActionItems)
		assert.Nil(t, got.Analysis.Positive)

		_, err = store.GetNote(ctx, other, note.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		got.RawText = "actually fine"
		got.SetAnalysis(models.Analysis{Summary: "placeholder", Error: "boom"})
		require.NoError(t, store.UpdateNote(ctx, got))

		updated, err := store.GetNote(ctx, owner, note.ID)
		require.NoError(t, err)
		assert.Equal(t, "actually fine", updated.RawText)
		assert.Nil(t, updated.Mood)
		assert.True(t, updated.Analysis.Degraded())

		assert.ErrorIs(t, store.DeleteNote(ctx, other, note.ID), ErrNotFound)
		require.NoError(t, store.DeleteNote(ctx, owner, note.ID))
		_, err = store.GetNote(ctx, owner, note.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.GetNote(ctx, owner, "not-a-uuid")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("templates are unique per owner", func(t *testing.T) {
		store := newStore(t)
		owner := newOwner(t, ctx, store)
		other := newOwner(t, ctx, store)

		tpl := &models.PromptTemplate{OwnerID: owner, Name: "brief", Text: "Be brief"}
		require.NoError(t, store.CreateTemplate(ctx, tpl))

		err := store.CreateTemplate(ctx, &models.PromptTemplate{OwnerID: owner, Name: "brief", Text: "other"})
		assert.ErrorIs(t, err, ErrDuplicate)
		require.NoError(t, store.CreateTemplate(ctx, &models.PromptTemplate{OwnerID: other, Name: "brief", Text: "other"}))

		got, err := store.GetTemplate(ctx, owner, tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "Be brief", got.Text)

		_, err = store.GetTemplate(ctx, other, tpl.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		count, err := store.CountTemplates(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		assert.ErrorIs(t, store.DeleteTemplate(ctx, other, tpl.ID), ErrNotFound)
		require.NoError(t, store.DeleteTemplate(ctx, owner, tpl.ID))

		list, err := store.ListTemplates(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
