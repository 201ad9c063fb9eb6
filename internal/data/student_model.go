package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

const tableStudents = "students"

var studentColumns = []any{
	"id", "student_id", "name", "email", "department", "course", "year_level", "status", "created_at",
}

const selectStudent = `
	SELECT id, student_id, name, email, department, course, year_level, status, created_at
	FROM students`

// StudentSortSafeList holds the sort values accepted by GET /v1/students.
var StudentSortSafeList = []string{
	"id", "student_id", "name", "department", "year_level",
	"-id", "-student_id", "-name", "-department", "-year_level",
}

func scanStudent(row rowScanner, s *Student, extra ...any) error {
	dest := append(extra,
		&s.ID,
		&s.StudentID,
		&s.Name,
		&s.Email,
		&s.Department,
		&s.Course,
		&s.YearLevel,
		&s.Status,
		&s.CreatedAt,
	)
	return row.Scan(dest...)
}

// studentConstraintError maps unique violations on students to sentinels.
func studentConstraintError(err error) error {
	if pqErr, ok := pqError(err); ok && string(pqErr.Code) == pqUniqueViolation {
		if strings.Contains(pqErr.Constraint, "email") {
			return ErrDuplicateEmail
		}
		return ErrDuplicateStudentID
	}
	return err
}

type StudentModel struct {
	DB *sql.DB
}

func (m StudentModel) Insert(ctx context.Context, s *Student) error {
	return insertStudent(ctx, m.DB, s)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertStudent(ctx context.Context, db queryRower, s *Student) error {
	query := `
		INSERT INTO students (student_id, name, email, department, course, year_level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := db.QueryRowContext(ctx, query,
		s.StudentID, s.Name, s.Email, s.Department, s.Course, s.YearLevel, s.Status,
	).Scan(&s.ID, &s.CreatedAt)
	return studentConstraintError(err)
}

func (m StudentModel) Get(ctx context.Context, studentID string) (*Student, error) {
	var s Student
	err := scanStudent(m.DB.QueryRowContext(ctx, selectStudent+` WHERE student_id = $1`, studentID), &s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (m StudentModel) GetAll(ctx context.Context, filters Filters) ([]*Student, Metadata, error) {
	column := filters.sortColumn("id")
	var order exp.OrderedExpression = goqu.I(column).Asc()
	if filters.sortDescending() {
		order = goqu.I(column).Desc()
	}

	query, args, err := goqu.Dialect(dialectPostgres).
		From(tableStudents).
		Select(append([]any{goqu.L("count(*) OVER()")}, studentColumns...)...).
		Order(order, goqu.I("id").Asc()).
		Limit(uint(filters.limit())).
		Offset(uint(filters.offset())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, Metadata{}, err
	}

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	students := []*Student{}
	for rows.Next() {
		var s Student
		if err := scanStudent(rows, &s, &totalRecords); err != nil {
			return nil, Metadata{}, err
		}
		students = append(students, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	return students, calculateMetadata(totalRecords, filters.Page, filters.PageSize), nil
}

func (m StudentModel) Update(ctx context.Context, studentID string, input UpdateStudentInput) (*Student, error) {
	s, err := m.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	s.apply(input)

	query := `
		UPDATE students
		SET name = $1, email = $2, department = $3, course = $4, year_level = $5, status = $6
		WHERE student_id = $7`

	result, err := m.DB.ExecContext(ctx, query,
		s.Name, s.Email, s.Department, s.Course, s.YearLevel, s.Status, s.StudentID,
	)
	if err != nil {
		return nil, studentConstraintError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrRecordNotFound
	}
	return s, nil
}

// Delete removes the student. Students with books on loan are kept.
func (m StudentModel) Delete(ctx context.Context, studentID string) error {
	result, err := m.DB.ExecContext(ctx, `DELETE FROM students WHERE student_id = $1`, studentID)
	if err != nil {
		if pqErr, ok := pqError(err); ok && string(pqErr.Code) == pqForeignKeyViolation {
			return ErrStudentHasLoans
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m StudentModel) Count(ctx context.Context) (total, active int, err error) {
	err = m.DB.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE status = 'active') FROM students`,
	).Scan(&total, &active)
	return total, active, err
}
