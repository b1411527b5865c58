package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xaenox/vibe-tracker/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

const uniqueViolation = "23505"

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	return OpenPostgres(ctx, config.DSN(), logger)
}

func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Database schema is up to date")
	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Username, &user.FullName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapError("error getting user", err)
	}
	return user, nil
}

func (s *PostgresStorage) SaveUser(ctx context.Context, user *models.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, full_name = EXCLUDED.full_name, updated_at = NOW()
		RETURNING created_at, updated_at`,
		user.ID, user.Username, user.FullName,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return wrapError("error saving user", err)
	}
	return nil
}

func (s *PostgresStorage) CreateSubject(ctx context.Context, subject *models.Subject) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO subjects (owner_id, name, prompt)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		subject.OwnerID, subject.Name, subject.Prompt,
	).Scan(&subject.ID, &subject.CreatedAt)
	if err != nil {
		return wrapError("error creating subject", err)
	}
	return nil
}

func (s *PostgresStorage) GetSubject(ctx context.Context, ownerID, id int64) (*models.Subject, error) {
	subject := &models.Subject{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, prompt, created_at
		FROM subjects WHERE id = $1 AND owner_id = $2`, id, ownerID,
	).Scan(&subject.ID, &subject.OwnerID, &subject.Name, &subject.Prompt, &subject.CreatedAt)
	if err != nil {
		return nil, wrapError("error getting subject", err)
	}
	return subject, nil
}

func (s *PostgresStorage) ListSubjects(ctx context.Context, ownerID int64) ([]*models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, prompt, created_at
		FROM subjects WHERE owner_id = $1
		ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error querying subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]*models.Subject, 0)
	for rows.Next() {
		subject := &models.Subject{}
		if err := rows.Scan(&subject.ID, &subject.OwnerID, &subject.Name, &subject.Prompt, &subject.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (s *PostgresStorage) CountSubjects(ctx context.Context, ownerID int64) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM subjects WHERE owner_id = $1`, ownerID)
}

func (s *PostgresStorage) UpdateSubjectPrompt(ctx context.Context, ownerID, id int64, prompt *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE subjects SET prompt = $1
		WHERE id = $2 AND owner_id = $3`, prompt, id, ownerID)
	return checkAffected("error updating subject prompt", result, err)
}

func (s *PostgresStorage) CreateNote(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (id, subject_id, raw_text, analysis, mood)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		note.ID, note.SubjectID, note.RawText, note.Analysis, note.Mood,
	).Scan(&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return wrapError("error creating note", err)
	}
	return nil
}

func (s *PostgresStorage) GetNote(ctx context.Context, ownerID int64, id string) (*models.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.subject_id, n.raw_text, n.analysis, n.mood, n.created_at, n.updated_at
		FROM notes n
		JOIN subjects s ON s.id = n.subject_id
		WHERE n.id = $1 AND s.owner_id = $2`, id, ownerID)

	note, err := scanNote(row)
	if err != nil {
		return nil, wrapError("error getting note", err)
	}
	return note, nil
}

func (s *PostgresStorage) CountNotes(ctx context.Context, subjectID int64) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM notes WHERE subject_id = $1`, subjectID)
}

func (s *PostgresStorage) ListNotes(ctx context.Context, subjectID int64, limit, offset int) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, raw_text, analysis, mood, created_at, updated_at
		FROM notes
		WHERE subject_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, subjectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.Note, 0, limit)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (s *PostgresStorage) UpdateNote(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET raw_text = $1, analysis = $2, mood = $3, updated_at = $4
		WHERE id = $5`,
		note.RawText, note.Analysis, note.Mood, note.UpdatedAt, note.ID)
	return checkAffected("error updating note", result, err)
}

func (s *PostgresStorage) DeleteNote(ctx context.Context, ownerID int64, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM notes n
		USING subjects s
		WHERE n.subject_id = s.id AND n.id = $1 AND s.owner_id = $2`, id, ownerID)
	return checkAffected("error deleting note", result, err)
}

func (s *PostgresStorage) CreateTemplate(ctx context.Context, tpl *models.PromptTemplate) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO prompt_templates (owner_id, name, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		tpl.OwnerID, tpl.Name, tpl.Text,
	).Scan(&tpl.ID, &tpl.CreatedAt)
	if err != nil {
		return wrapError("error creating template", err)
	}
	return nil
}

func (s *PostgresStorage) GetTemplate(ctx context.Context, ownerID, id int64) (*models.PromptTemplate, error) {
	tpl := &models.PromptTemplate{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, text, created_at
		FROM prompt_templates WHERE id = $1 AND owner_id = $2`, id, ownerID,
	).Scan(&tpl.ID, &tpl.OwnerID, &tpl.Name, &tpl.Text, &tpl.CreatedAt)
	if err != nil {
		return nil, wrapError("error getting template", err)
	}
	return tpl, nil
}

func (s *PostgresStorage) ListTemplates(ctx context.Context, ownerID int64) ([]*models.PromptTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, text, created_at
		FROM prompt_templates WHERE owner_id = $1
		ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error querying templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*models.PromptTemplate, 0)
	for rows.Next() {
		tpl := &models.PromptTemplate{}
		if err := rows.Scan(&tpl.ID, &tpl.OwnerID, &tpl.Name, &tpl.Text, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func (s *PostgresStorage) CountTemplates(ctx context.Context, ownerID int64) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM prompt_templates WHERE owner_id = $1`, ownerID)
}

func (s *PostgresStorage) DeleteTemplate(ctx context.Context, ownerID, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM prompt_templates WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return checkAffected("error deleting template", result, err)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) count(ctx context.Context, query string, arg any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting rows: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	note := &models.Note{}
	var analysis []byte
	if err := row.Scan(&note.ID, &note.SubjectID, &note.RawText, &analysis, &note.Mood, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return nil, err
	}
	if analysis != nil {
		note.Analysis = &models.Analysis{}
		if err := note.Analysis.Scan(analysis); err != nil {
			return nil, err
		}
	}
	return note, nil
}

// wrapError maps driver errors onto the storage sentinels.
func wrapError(msg string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", msg, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func checkAffected(msg string, result sql.Result, err error) error {
	if err != nil {
		return wrapError(msg, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return nil
}
