package storage

import (
	"context"
	"errors"

	"github.com/xaenox/vibe-tracker/internal/models"
)

var (
	// ErrNotFound is returned when an id does not resolve or belongs to another owner.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique name is already taken by the same owner.
	ErrDuplicate = errors.New("already exists")
)

type Storage interface {
	UserStorage
	SubjectStorage
	NoteStorage
	TemplateStorage
	Close() error
}

type UserStorage interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	// SaveUser creates the user or updates its display names.
	SaveUser(ctx context.Context, user *models.User) error
}

type SubjectStorage interface {
	CreateSubject(ctx context.Context, subject *models.Subject) error
	GetSubject(ctx context.Context, ownerID, id int64) (*models.Subject, error)
	ListSubjects(ctx context.Context, ownerID int64) ([]*models.Subject, error)
	CountSubjects(ctx context.Context, ownerID int64) (int, error)
	UpdateSubjectPrompt(ctx context.Context, ownerID, id int64, prompt *string) error
}

type NoteStorage interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, ownerID int64, id string) (*models.Note, error)
	CountNotes(ctx context.Context, subjectID int64) (int, error)
	// ListNotes returns a subject's notes, newest first.
	ListNotes(ctx context.Context, subjectID int64, limit, offset int) ([]*models.Note, error)
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, ownerID int64, id string) error
}

type TemplateStorage interface {
	CreateTemplate(ctx context.Context, tpl *models.PromptTemplate) error
	GetTemplate(ctx context.Context, ownerID, id int64) (*models.PromptTemplate, error)
	ListTemplates(ctx context.Context, ownerID int64) ([]*models.PromptTemplate, error)
	CountTemplates(ctx context.Context, ownerID int64) (int, error)
	DeleteTemplate(ctx context.Context, ownerID, id int64) error
}
