package data

import (
	"strings"
	"time"

	"github.com/aoideee/treekings-library/internal/validator"
)

// StudentStatus mirrors the status column of the admin student directory.
type StudentStatus string

const (
	StudentActive   StudentStatus = "active"
	StudentOnLeave  StudentStatus = "on_leave"
	StudentInactive StudentStatus = "inactive"
)

// Student is a library member. StudentID is the school-issued identifier
// (e.g. "2023-001") and is what loans reference.
type Student struct {
	ID         int64         `json:"id"`
	StudentID  string        `json:"student_id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Department string        `json:"department"`
	Course     string        `json:"course,omitempty"`
	YearLevel  int           `json:"year_level"`
	Status     StudentStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

type CreateStudentInput struct {
	StudentID  string        `json:"student_id" validate:"required,max=32"`
	Name       string        `json:"name"       validate:"required,max=200"`
	Email      string        `json:"email"      validate:"required,email"`
	Department string        `json:"department" validate:"required,max=200"`
	Course     string        `json:"course"     validate:"omitempty,max=200"`
	YearLevel  int           `json:"year_level" validate:"required,gte=1,lte=5"`
	Status     StudentStatus `json:"status"     validate:"omitempty,oneof=active on_leave inactive"`
}

// UpdateStudentInput leaves StudentID out: loans reference it.
type UpdateStudentInput struct {
	Name       *string        `json:"name"       validate:"omitempty,min=1,max=200"`
	Email      *string        `json:"email"      validate:"omitempty,email"`
	Department *string        `json:"department" validate:"omitempty,min=1,max=200"`
	Course     *string        `json:"course"     validate:"omitempty,max=200"`
	YearLevel  *int           `json:"year_level" validate:"omitempty,gte=1,lte=5"`
	Status     *StudentStatus `json:"status"     validate:"omitempty,oneof=active on_leave inactive"`
}

func ValidateCreateStudent(v *validator.Validator, input CreateStudentInput) {
	v.Struct(input)
	v.Check(strings.TrimSpace(input.Name) != "", "name", "must be provided")
}

func ValidateUpdateStudent(v *validator.Validator, input UpdateStudentInput) {
	v.Struct(input)
}

func NewStudent(input CreateStudentInput) *Student {
	status := input.Status
	if status == "" {
		status = StudentActive
	}
	return &Student{
		StudentID:  strings.TrimSpace(input.StudentID),
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Department: strings.TrimSpace(input.Department),
		Course:     strings.TrimSpace(input.Course),
		YearLevel:  input.YearLevel,
		Status:     status,
	}
}

func (s *Student) apply(input UpdateStudentInput) {
	if input.Name != nil {
		s.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		s.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Department != nil {
		s.Department = strings.TrimSpace(*input.Department)
	}
	if input.Course != nil {
		s.Course = strings.TrimSpace(*input.Course)
	}
	if input.YearLevel != nil {
		s.YearLevel = *input.YearLevel
	}
	if input.Status != nil {
		s.Status = *input.Status
	}
}
