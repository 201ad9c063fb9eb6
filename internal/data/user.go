package data

import (
	"strings"
	"time"

	"github.com/aoideee/treekings-library/internal/validator"
)

// Role decides which dashboard and which endpoints a user can reach.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// User is a login account. Students also have a Student record linked
// through StudentID.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	StudentID    string    `json:"student_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsStaff reports whether u may manage the catalog and act for any student.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// StudentInfo carries the extra registration fields asked of students.
type StudentInfo struct {
	StudentID  string `json:"student_id" validate:"required,max=32"`
	Department string `json:"department" validate:"required,max=200"`
	YearLevel  int    `json:"year_level" validate:"required,gte=1,lte=5"`
}

type RegisterInput struct {
	Name        string       `json:"name"         validate:"required,max=200"`
	Email       string       `json:"email"        validate:"required,email"`
	Password    string       `json:"password"     validate:"required,min=8,max=72"`
	Role        Role         `json:"role"         validate:"omitempty,oneof=student admin superadmin"`
	StudentInfo *StudentInfo `json:"student_info"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidateRegister records every problem with input in v. Students must
// send their student info; staff must not.
func ValidateRegister(v *validator.Validator, input RegisterInput) {
	v.Struct(input)
	if input.Role == "" || input.Role == RoleStudent {
		v.Check(input.StudentInfo != nil, "student_info", "must be provided")
	} else {
		v.Check(input.StudentInfo == nil, "student_info", "must only be provided for students")
	}
}

func ValidateLogin(v *validator.Validator, input LoginInput) {
	v.Struct(input)
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
