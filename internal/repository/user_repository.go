// Package repository implements all database access for the service.  It
// uses database/sql against MySQL directly (no ORM).  Every error leaving
// this package is classified through apperr so handlers never see raw
// driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gatepass/gatepass/internal/apperr"
	"github.com/gatepass/gatepass/internal/model"
)

// duplicateKey reports whether err is a MySQL 1062 unique-constraint
// violation on the named key.  The driver embeds the key name in the error
// message, which is what lets callers tell a ticket-code collision apart
// from a duplicate-registration hit.
func duplicateKey(err error, key string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1062") && (key == "" || strings.Contains(msg, key))
}

const userColumns = "id, email, password_hash, name, company, role, is_active, created_at, updated_at"

// UserRepo handles persistence for users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its generated ID.  The email is
// normalized to lower case before insertion.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, name string, company *string, role model.Role) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, company, role) VALUES (?,?,?,?,?)",
		email, passwordHash, name, company, string(role))
	if err != nil {
		if duplicateKey(err, "uq_users_email") {
			return 0, apperr.Conflictf("email already registered")
		}
		return 0, apperr.Transient("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Transient("insert user", err)
	}
	return uint64(id), nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var company sql.NullString
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &company, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("user not found")
		}
		return nil, apperr.Transient("get user", err)
	}
	if company.Valid {
		c := company.String
		u.Company = &c
	}
	u.Role = model.Role(role)
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users ordered by creation time.  Used by the admin
// surface only.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, apperr.Transient("list users", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var company sql.NullString
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &company, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, apperr.Transient("scan user", err)
		}
		if company.Valid {
			c := company.String
			u.Company = &c
		}
		u.Role = model.Role(role)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list users", err)
	}
	return users, nil
}

// UpdateRole changes a user's role.  Callers verify the user exists first;
// RowsAffected is useless here because MySQL reports 0 for no-op updates.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=? WHERE id=?", string(role), id); err != nil {
		return apperr.Transient("update role", err)
	}
	return nil
}

// UpdateActive flips a user's is_active flag.
func (r *UserRepo) UpdateActive(ctx context.Context, id uint64, active bool) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=? WHERE id=?", active, id); err != nil {
		return apperr.Transient("update active", err)
	}
	return nil
}
