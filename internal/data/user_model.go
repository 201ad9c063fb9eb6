package data

import (
	"context"
	"database/sql"
	"errors"
)

type UserModel struct {
	DB *sql.DB
}

// Register inserts the user and, when student is not nil, the student
// record it logs in as, in one transaction.
func (m UserModel) Register(ctx context.Context, user *User, student *Student) (err error) {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var studentID sql.NullString
	if student != nil {
		if err = insertStudent(ctx, tx, student); err != nil {
			return err
		}
		user.StudentID = student.StudentID
		studentID = sql.NullString{String: student.StudentID, Valid: true}
	}

	query := `
		INSERT INTO users (name, email, password_hash, role, student_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Role, studentID,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && string(pqErr.Code) == pqUniqueViolation {
			err = ErrDuplicateEmail
		}
		return err
	}

	return tx.Commit()
}

func (m UserModel) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, role, COALESCE(student_id, ''), created_at
		FROM users
		WHERE email = $1`

	var u User
	err := m.DB.QueryRowContext(ctx, query, NormalizeEmail(email)).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.StudentID, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (m UserModel) Count(ctx context.Context) (int, error) {
	var n int
	err := m.DB.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}
