package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quickchat/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `id, email, full_name, password_hash, profile_pic, bio, created_at, updated_at`

// Postgres implements Store on a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Password, &u.ProfilePic, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.Email, user.FullName, user.Password, user.ProfilePic, user.Bio, user.CreatedAt, user.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (p *Postgres) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	return scanUser(p.pool.QueryRow(ctx, `
		UPDATE users SET
			full_name   = COALESCE($2, full_name),
			bio         = COALESCE($3, bio),
			profile_pic = COALESCE($4, profile_pic),
			updated_at  = $5
		WHERE id = $1
		RETURNING `+userColumns,
		id, update.FullName, update.Bio, update.ProfilePic, time.Now().UTC()))
}

func (p *Postgres) ListUsersExcept(ctx context.Context, id string) ([]models.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY full_name, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (p *Postgres) UnseenCounts(ctx context.Context, receiverID string) (map[string]int, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT sender_id, COUNT(*) FROM messages
		WHERE receiver_id = $1 AND NOT seen
		GROUP BY sender_id
	`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("count unseen: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var senderID string
		var n int
		if err := rows.Scan(&senderID, &n); err != nil {
			return nil, fmt.Errorf("scan unseen: %w", err)
		}
		counts[senderID] = n
	}
	return counts, rows.Err()
}

func (p *Postgres) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now().UTC()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, text, image, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.Image, msg.Seen, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (p *Postgres) Conversation(ctx context.Context, a, b string) ([]models.Message, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, text, image, seen, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC
	`, a, b)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.Image, &m.Seen, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (p *Postgres) MarkConversationSeen(ctx context.Context, senderID, receiverID string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND NOT seen
	`, senderID, receiverID)
	if err != nil {
		return fmt.Errorf("mark conversation seen: %w", err)
	}
	return nil
}

func (p *Postgres) MarkSeen(ctx context.Context, messageID, receiverID string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE id = $1 AND receiver_id = $2
	`, messageID, receiverID)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM messages WHERE id = $1)`, messageID).Scan(&exists); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	if exists {
		return ErrForbidden
	}
	return ErrNotFound
}
