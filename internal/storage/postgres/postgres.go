package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/snapstory/snapstory-service/internal/config"
	"github.com/snapstory/snapstory-service/internal/storage"
	"github.com/snapstory/snapstory-service/internal/types"
)

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pg := &Postgres{Db: db}
	if err = pg.CreateTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS stories (
			id UUID PRIMARY KEY,
			author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(100) NOT NULL,
			content TEXT NOT NULL,
			genre VARCHAR(50) NOT NULL CHECK (genre IN ('Fantasy','Sci-Fi','Mystery','Thriller','Romance','Horror','Adventure','Historical','Biography','Poetry','Other')),
			reading_mode VARCHAR(20) NOT NULL DEFAULT 'text' CHECK (reading_mode IN ('text','audio','animation')),
			audio_emotion VARCHAR(20) NOT NULL DEFAULT 'neutral' CHECK (audio_emotion IN ('neutral','happy','sad','angry','excited','calm')),
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			audio_file VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_stories_author_created ON stories (author_id, created_at DESC);`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

const storyColumns = `id, author_id, title, content, genre, reading_mode, audio_emotion, is_public, audio_file, created_at, updated_at`

func scanStory(row interface{ Scan(...any) error }) (types.Story, error) {
	var s types.Story
	err := row.Scan(&s.ID, &s.AuthorID, &s.Title, &s.Content, &s.Genre, &s.ReadingMode,
		&s.AudioEmotion, &s.IsPublic, &s.AudioFile, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (p *Postgres) CreateStory(ctx context.Context, story types.Story) error {
	query := `
	INSERT INTO stories (id, author_id, title, content, genre, reading_mode, audio_emotion, is_public, audio_file, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := p.Db.ExecContext(ctx, query, story.ID, story.AuthorID, story.Title, story.Content,
		story.Genre, story.ReadingMode, story.AudioEmotion, story.IsPublic, story.AudioFile,
		story.CreatedAt, story.UpdatedAt)
	return err
}

func (p *Postgres) GetStoriesByAuthor(ctx context.Context, authorID string) ([]types.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE author_id = $1 ORDER BY created_at DESC`

	rows, err := p.Db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stories := []types.Story{}
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}

	return stories, rows.Err()
}

func (p *Postgres) GetStoryByID(ctx context.Context, id string) (types.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`

	s, err := scanStory(p.Db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Story{}, storage.ErrNotFound
	}
	return s, err
}

func (p *Postgres) GetStoryByIDAndAuthor(ctx context.Context, id, authorID string) (types.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1 AND author_id = $2`

	s, err := scanStory(p.Db.QueryRowContext(ctx, query, id, authorID))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Story{}, storage.ErrNotFound
	}
	return s, err
}

func (p *Postgres) UpdateStory(ctx context.Context, story types.Story) error {
	query := `
	UPDATE stories
	SET title = $2, content = $3, genre = $4, audio_emotion = $5, is_public = $6, updated_at = $7
	WHERE id = $1
	`

	res, err := p.Db.ExecContext(ctx, query, story.ID, story.Title, story.Content,
		story.Genre, story.AudioEmotion, story.IsPublic, story.UpdatedAt)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (p *Postgres) UpdateStoryAudio(ctx context.Context, id, audioFile string) error {
	query := `
	UPDATE stories
	SET audio_file = $2, reading_mode = 'audio', updated_at = $3
	WHERE id = $1
	`

	res, err := p.Db.ExecContext(ctx, query, id, audioFile, time.Now().UTC())
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (p *Postgres) DeleteStory(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, id, email, passwordHash string) error {
	query := `
	INSERT INTO users (id, email, password)
	VALUES ($1, $2, $3)
	`

	_, err := p.Db.ExecContext(ctx, query, id, email, passwordHash)
	return err
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (string, string, error) {
	var userID string
	var hashedPassword string
	query := `SELECT id, password FROM users WHERE email = $1`

	err := p.Db.QueryRowContext(ctx, query, email).Scan(&userID, &hashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", storage.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}

	return userID, hashedPassword, nil
}
