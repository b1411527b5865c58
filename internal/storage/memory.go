package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/vibe-tracker/internal/models"
)

type MemoryStorage struct {
	mu         sync.RWMutex
	users      map[int64]*models.User
	subjects   map[int64]*models.Subject
	notes      map[string]*memoryNote
	templates  map[int64]*models.PromptTemplate
	nextID     int64
	nextNoteNo int64
	now        func() time.Time
}

// memoryNote keeps insertion order to break ties between equal timestamps.
type memoryNote struct {
	note *models.Note
	seq  int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:     make(map[int64]*models.User),
		subjects:  make(map[int64]*models.Subject),
		notes:     make(map[string]*memoryNote),
		templates: make(map[int64]*models.PromptTemplate),
		now:       time.Now,
	}
}

// User methods
func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[id]; exists {
		u := *user
		return &u, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, exists := s.users[user.ID]; exists {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	u := *user
	s.users[user.ID] = &u
	return nil
}

// Subject methods
func (s *MemoryStorage) CreateSubject(ctx context.Context, subject *models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subjects {
		if existing.OwnerID == subject.OwnerID && existing.Name == subject.Name {
			return ErrDuplicate
		}
	}

	s.nextID++
	subject.ID = s.nextID
	subject.CreatedAt = s.now()

	sub := *subject
	s.subjects[sub.ID] = &sub
	return nil
}

func (s *MemoryStorage) GetSubject(ctx context.Context, ownerID, id int64) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subject, exists := s.subjects[id]
	if !exists || subject.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	sub := *subject
	return &sub, nil
}

func (s *MemoryStorage) ListSubjects(ctx context.Context, ownerID int64) ([]*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make([]*models.Subject, 0)
	for _, subject := range s.subjects {
		if subject.OwnerID == ownerID {
			sub := *subject
			subjects = append(subjects, &sub)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].ID < subjects[j].ID
	})
	return subjects, nil
}

func (s *MemoryStorage) CountSubjects(ctx context.Context, ownerID int64) (int, error) {
	subjects, err := s.ListSubjects(ctx, ownerID)
	return len(subjects), err
}

func (s *MemoryStorage) UpdateSubjectPrompt(ctx context.Context, ownerID, id int64, prompt *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject, exists := s.subjects[id]
	if !exists || subject.OwnerID != ownerID {
		return ErrNotFound
	}
	if prompt == nil {
		subject.Prompt = nil
	} else {
		p := *prompt
		subject.Prompt = &p
	}
	return nil
}

// Note methods
func (s *MemoryStorage) CreateNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subjects[note.SubjectID]; !exists {
		return ErrNotFound
	}

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if _, exists := s.notes[note.ID]; exists {
		return ErrDuplicate
	}
	now := s.now()
	note.CreatedAt = now
	note.UpdatedAt = now

	s.nextNoteNo++
	s.notes[note.ID] = &memoryNote{note: copyNote(note), seq: s.nextNoteNo}
	return nil
}

func (s *MemoryStorage) GetNote(ctx context.Context, ownerID int64, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.ownedNote(ownerID, id)
	if err != nil {
		return nil, err
	}
	return copyNote(stored.note), nil
}

func (s *MemoryStorage) CountNotes(ctx context.Context, subjectID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, stored := range s.notes {
		if stored.note.SubjectID == subjectID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) ListNotes(ctx context.Context, subjectID int64, limit, offset int) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*memoryNote, 0)
	for _, stored := range s.notes {
		if stored.note.SubjectID == subjectID {
			matched = append(matched, stored)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.note.CreatedAt.Equal(b.note.CreatedAt) {
			return a.note.CreatedAt.After(b.note.CreatedAt)
		}
		return a.seq > b.seq
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*models.Note{}, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	notes := make([]*models.Note, 0, end-offset)
	for _, stored := range matched[offset:end] {
		notes = append(notes, copyNote(stored.note))
	}
	return notes, nil
}

func (s *MemoryStorage) UpdateNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.notes[note.ID]
	if !exists {
		return ErrNotFound
	}
	note.CreatedAt = stored.note.CreatedAt
	note.UpdatedAt = s.now()
	stored.note = copyNote(note)
	return nil
}

func (s *MemoryStorage) DeleteNote(ctx context.Context, ownerID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedNote(ownerID, id); err != nil {
		return err
	}
	delete(s.notes, id)
	return nil
}

func (s *MemoryStorage) ownedNote(ownerID int64, id string) (*memoryNote, error) {
	stored, exists := s.notes[id]
	if !exists {
		return nil, ErrNotFound
	}
	subject, exists := s.subjects[stored.note.SubjectID]
	if !exists || subject.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return stored, nil
}

// Template methods
func (s *MemoryStorage) CreateTemplate(ctx context.Context, tpl *models.PromptTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.templates {
		if existing.OwnerID == tpl.OwnerID && existing.Name == tpl.Name {
			return ErrDuplicate
		}
	}

	s.nextID++
	tpl.ID = s.nextID
	tpl.CreatedAt = s.now()

	t := *tpl
	s.templates[t.ID] = &t
	return nil
}

func (s *MemoryStorage) GetTemplate(ctx context.Context, ownerID, id int64) (*models.PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, exists := s.templates[id]
	if !exists || tpl.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	t := *tpl
	return &t, nil
}

func (s *MemoryStorage) ListTemplates(ctx context.Context, ownerID int64) ([]*models.PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]*models.PromptTemplate, 0)
	for _, tpl := range s.templates {
		if tpl.OwnerID == ownerID {
			t := *tpl
			templates = append(templates, &t)
		}
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}

func (s *MemoryStorage) CountTemplates(ctx context.Context, ownerID int64) (int, error) {
	templates, err := s.ListTemplates(ctx, ownerID)
	return len(templates), err
}

func (s *MemoryStorage) DeleteTemplate(ctx context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpl, exists := s.templates[id]
	if !exists || tpl.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func copyNote(note *models.Note) *models.Note {
	n := *note
	if note.Analysis != nil {
		a := *note.Analysis
		a.ActionItems = append([]string(nil), note.Analysis.ActionItems...)
		a.Tags = append([]string(nil), note.Analysis.Tags...)
		n.Analysis = &a
	}
	if note.Mood != nil {
		mood := *note.Mood
		n.Mood = &mood
	}
	return &n
}
