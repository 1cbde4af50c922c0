package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// CreateUser inserts the profile row for an auth user
func (p *PostgresDB) CreateUser(ctx context.Context, id, name, email string) (*db.User, error) {
	conn := p.conn

	user := db.User{ID: id, Name: name, Email: email}

	query := `
	INSERT INTO users (id, name, email)
	VALUES ($1, $2, $3)
	RETURNING created_at
	`

	err := conn.QueryRowContext(ctx, query, id, name, email).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user already exists")
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"email": email, "user_id": id}).Info("Created user profile")

	return &user, nil
}

// GetUserByID retrieves a user by id
func (p *PostgresDB) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	query := `SELECT id, name, email, created_at FROM users WHERE id = $1`
	return p.getUser(ctx, query, id)
}

func (p *PostgresDB) getUser(ctx context.Context, query string, arg string) (*db.User, error) {
	var user db.User
	err := p.conn.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", db.ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &user, nil
}
