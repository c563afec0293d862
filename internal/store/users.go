package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/models"
)

const userColumns = `id, username, email, name, created_at, updated_at, version`

func scanUser(row interface{ Scan(...any) error }, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
}

func CreateUser(ctx context.Context, q database.Querier, user *models.User) error {
	query := `
		INSERT INTO users (username, email, name, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING ` + userColumns

	err := scanUser(q.QueryRowContext(ctx, query, user.Username, user.Email, user.Name), user)
	if err != nil {
		return fmt.Errorf("create user: %w", database.Translate(err))
	}
	return nil
}

func GetUser(ctx context.Context, q database.Querier, id int64) (*models.User, error) {
	user := &models.User{}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := scanUser(q.QueryRowContext(ctx, query, id), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func UserExists(ctx context.Context, q database.Querier, id int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// ListUsers returns users newest first.
func ListUsers(ctx context.Context, q database.Querier, page models.PageRequest) (*models.Page[models.User], error) {
	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	w := &where{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`
	if !page.IsUnpaged() {
		page = page.Normalized()
		query += ` LIMIT ` + w.placeholder(page.Size) + ` OFFSET ` + w.placeholder(page.Offset())
	}

	rows, err := q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(users, total, page), nil
}

func (s *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	return CreateUser(ctx, s.q, user)
}

func (s *Postgres) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return GetUser(ctx, s.q, id)
}

func (s *Postgres) UserExists(ctx context.Context, id int64) (bool, error) {
	return UserExists(ctx, s.q, id)
}

func (s *Postgres) ListUsers(ctx context.Context, page models.PageRequest) (*models.Page[models.User], error) {
	return ListUsers(ctx, s.q, page)
}
