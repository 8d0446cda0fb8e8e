package storage

import (
	"context"
	"fmt"
	"strings"

	"freshly/internal/libsql"
	"freshly/internal/models"
)

func (s *LibSQLStorage) CreateUser(ctx context.Context, user models.User, passwordHash string) (int64, error) {
	const op = "storage.CreateUser"

	query := fmt.Sprintf(`INSERT INTO %s (username, email, password_hash, first_name, last_name)
	VALUES (?, ?, ?, ?, ?) RETURNING id`, usersTable)

	res, err := s.db.Execute(ctx, query, user.Username, strings.ToLower(user.Email), passwordHash,
		nullIfEmpty(user.FirstName), nullIfEmpty(user.LastName))
	if err != nil {
		if libsql.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *LibSQLStorage) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	const op = "storage.GetUserByID"

	var user models.User
	query := fmt.Sprintf("SELECT id, username, email, first_name, last_name, created_at FROM %s WHERE id = ?", usersTable)

	res, err := s.db.Execute(ctx, query, userID)
	if err != nil {
		return user, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return user, fmt.Errorf("%s: %w", op, err)
	}

	var firstName, lastName *string
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &firstName, &lastName, &user.CreatedAt); err != nil {
		return user, fmt.Errorf("%s: %w", op, err)
	}
	user.FirstName, user.LastName = nullable(firstName), nullable(lastName)

	return user, nil
}

// GetCredentialsByLogin looks a user up by email when login contains an @
// and by username otherwise.
func (s *LibSQLStorage) GetCredentialsByLogin(ctx context.Context, login string) (models.Credentials, error) {
	const op = "storage.GetCredentialsByLogin"

	var cred models.Credentials

	column, value := "username", login
	if strings.Contains(login, "@") {
		column, value = "email", strings.ToLower(login)
	}
	query := fmt.Sprintf("SELECT id, username, email, password_hash FROM %s WHERE %s = ?", usersTable, column)

	res, err := s.db.Execute(ctx, query, value)
	if err != nil {
		return cred, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return cred, fmt.Errorf("%s: %w", op, err)
	}

	if err := row.Scan(&cred.UserID, &cred.Username, &cred.Email, &cred.PasswordHash); err != nil {
		return cred, fmt.Errorf("%s: %w", op, err)
	}

	return cred, nil
}

func (s *LibSQLStorage) GetUserExtra(ctx context.Context, userID int64) (models.UserExtra, error) {
	const op = "storage.GetUserExtra"

	extra := models.UserExtra{UserID: userID}
	query := fmt.Sprintf("SELECT contact_number, address, birthdate FROM %s WHERE user_id = ?", userExtrasTable)

	res, err := s.db.Execute(ctx, query, userID)
	if err != nil {
		return extra, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return extra, fmt.Errorf("%s: %w", op, err)
	}

	var birthdate *string
	if err := row.Scan(&extra.ContactNumber, &extra.Address, &birthdate); err != nil {
		return extra, fmt.Errorf("%s: %w", op, err)
	}
	extra.Birthdate = nullable(birthdate)

	return extra, nil
}

func (s *LibSQLStorage) UpsertUserExtra(ctx context.Context, extra models.UserExtra) error {
	const op = "storage.UpsertUserExtra"

	query := fmt.Sprintf(`INSERT INTO %s (user_id, contact_number, address, birthdate) VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		contact_number = excluded.contact_number,
		address = excluded.address,
		birthdate = COALESCE(excluded.birthdate, birthdate)`, userExtrasTable)

	if _, err := s.db.Execute(ctx, query, extra.UserID, extra.ContactNumber, extra.Address, nullIfEmpty(extra.Birthdate)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
