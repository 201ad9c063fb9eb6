package data

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// memory is a process-local store behind one mutex. Every operation,
// including a multi-book checkout, runs under the lock, so it is all or
// nothing in the same way as the PostgreSQL transactions.
type memory struct {
	mu       sync.Mutex
	logger   *slog.Logger
	now      func() time.Time
	bookSeq  int64
	books    map[int64]*Book
	bookIDs  []int64 // insertion order
	students map[string]*Student
	studSeq  int64
	loans    map[int64]*Loan
	loanSeq  int64
	users    map[string]*User // keyed by email
	userSeq  int64
}

// NewMemoryModels returns Models backed by an in-memory store. It is used by
// tests and by the server's -store=memory mode.
func NewMemoryModels(logger *slog.Logger) Models {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &memory{
		logger:   logger,
		now:      time.Now,
		books:    make(map[int64]*Book),
		students: make(map[string]*Student),
		loans:    make(map[int64]*Loan),
		users:    make(map[string]*User),
	}
	return Models{
		Books:    memoryBooks{m},
		Loans:    memoryLoans{m},
		Students: memoryStudents{m},
		Users:    memoryUsers{m},
	}
}

func cloneBook(b *Book) *Book {
	cp := *b
	return &cp
}

func cloneStudent(s *Student) *Student {
	cp := *s
	return &cp
}

// page slices one page out of records after sorting them with less.
func page[T any](records []T, filters Filters, compare func(a, b T) int) ([]T, Metadata) {
	slices.SortStableFunc(records, compare)
	total := len(records)
	start := min(filters.offset(), total)
	end := min(start+filters.limit(), total)
	return records[start:end], calculateMetadata(total, filters.Page, filters.PageSize)
}

type memoryBooks struct{ *memory }

func (m memoryBooks) Insert(_ context.Context, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bookSeq++
	now := m.now().UTC()
	book.ID = m.bookSeq
	book.CreatedAt = now
	book.UpdatedAt = now
	book.refreshStatus()

	m.books[book.ID] = cloneBook(book)
	m.bookIDs = append(m.bookIDs, book.ID)
	return nil
}

func (m memoryBooks) Get(_ context.Context, id int64) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneBook(b), nil
}

func (m memoryBooks) GetAll(_ context.Context, genre string, filters Filters) ([]*Book, Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := []*Book{}
	for _, id := range m.bookIDs {
		b := m.books[id]
		if genre == "" || b.Genre == genre {
			books = append(books, cloneBook(b))
		}
	}

	column := filters.sortColumn(colBookID)
	desc := filters.sortDescending()
	books, meta := page(books, filters, func(a, b *Book) int {
		c := compareBooks(a, b, column)
		if desc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	})
	return books, meta, nil
}

func compareBooks(a, b *Book, column string) int {
	switch column {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "author":
		return strings.Compare(a.Author, b.Author)
	case "genre":
		return strings.Compare(a.Genre, b.Genre)
	case "rating":
		return cmp.Compare(a.Rating, b.Rating)
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}

func (m memoryBooks) List(_ context.Context) ([]*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := make([]*Book, 0, len(m.bookIDs))
	for _, id := range m.bookIDs {
		books = append(books, cloneBook(m.books[id]))
	}
	return books, nil
}

func (m memoryBooks) Update(_ context.Context, id int64, input UpdateBookInput) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.books[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	b := cloneBook(stored)
	if err := b.apply(input); err != nil {
		return nil, err
	}
	b.UpdatedAt = m.now().UTC()
	m.books[id] = b
	return cloneBook(b), nil
}

func (m memoryBooks) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[id]; !ok {
		return ErrRecordNotFound
	}
	delete(m.books, id)
	m.bookIDs = slices.DeleteFunc(m.bookIDs, func(v int64) bool { return v == id })
	for loanID, loan := range m.loans {
		if loan.BookID == id {
			delete(m.loans, loanID)
		}
	}
	return nil
}

type memoryLoans struct{ *memory }

func (m memoryLoans) Borrow(_ context.Context, studentID string, bookIDs []int64, at time.Time) (*Receipt, error) {
	if len(bookIDs) == 0 {
		return nil, ErrNoBooks
	}
	if hasDuplicates(bookIDs) {
		return nil, ErrDuplicateBookIDs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[studentID]; !ok {
		return nil, ErrRecordNotFound
	}

	held := make(map[int64]bool)
	for _, loan := range m.loans {
		if loan.StudentID == studentID {
			held[loan.BookID] = true
		}
	}

	// Work on copies so a failed check leaves the store untouched.
	books := make(map[int64]*Book, len(bookIDs))
	for _, id := range bookIDs {
		if b, ok := m.books[id]; ok {
			books[id] = cloneBook(b)
		}
	}
	if err := checkBorrowable(bookIDs, books, held); err != nil {
		return nil, err
	}

	receipt := &Receipt{StudentID: studentID, BorrowedAt: at, DueDate: DueDate(at)}
	for _, id := range bookIDs {
		b := books[id]
		b.checkOut()
		b.UpdatedAt = m.now().UTC()
		m.books[id] = b

		m.loanSeq++
		loan := &Loan{ID: m.loanSeq, StudentID: studentID, BookID: id, BorrowedAt: at, DueDate: receipt.DueDate}
		m.loans[loan.ID] = loan

		cp := *loan
		receipt.Books = append(receipt.Books, cloneBook(b))
		receipt.Loans = append(receipt.Loans, &cp)
	}

	m.logger.Info("books borrowed",
		slog.String("student_id", studentID),
		slog.Any("book_ids", bookIDs),
		slog.Time("due_date", receipt.DueDate),
	)
	return receipt, nil
}

func (m memoryLoans) Return(_ context.Context, bookID int64, studentID string) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var loanID int64
	for id, loan := range m.loans {
		if loan.BookID == bookID && loan.StudentID == studentID {
			loanID = id
			break
		}
	}
	stored, ok := m.books[bookID]
	if loanID == 0 || !ok {
		return nil, ErrNoActiveLoan
	}

	delete(m.loans, loanID)
	b := cloneBook(stored)
	b.checkIn()
	b.UpdatedAt = m.now().UTC()
	m.books[bookID] = b

	m.logger.Info("book returned",
		slog.String("student_id", studentID),
		slog.Int64("book_id", bookID),
		slog.Int("available_copies", b.AvailableCopies),
	)
	return cloneBook(b), nil
}

func (m memoryLoans) ForStudent(_ context.Context, studentID string) ([]*Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loans := []*Loan{}
	for _, loan := range m.loans {
		if loan.StudentID == studentID {
			cp := *loan
			loans = append(loans, &cp)
		}
	}
	slices.SortFunc(loans, func(a, b *Loan) int {
		return cmp.Or(a.BorrowedAt.Compare(b.BorrowedAt), cmp.Compare(a.ID, b.ID))
	})
	return loans, nil
}

func (m memoryLoans) CountActive(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loans), nil
}

type memoryStudents struct{ *memory }

// insertStudent expects m.mu to be held.
func (m *memory) insertStudent(s *Student) error {
	if _, exists := m.students[s.StudentID]; exists {
		return ErrDuplicateStudentID
	}
	for _, other := range m.students {
		if other.Email == s.Email {
			return ErrDuplicateEmail
		}
	}
	m.studSeq++
	s.ID = m.studSeq
	s.CreatedAt = m.now().UTC()
	m.students[s.StudentID] = cloneStudent(s)
	return nil
}

func (m memoryStudents) Insert(_ context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertStudent(s)
}

func (m memoryStudents) Get(_ context.Context, studentID string) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[studentID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneStudent(s), nil
}

func (m memoryStudents) GetAll(_ context.Context, filters Filters) ([]*Student, Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	students := make([]*Student, 0, len(m.students))
	for _, s := range m.students {
		students = append(students, cloneStudent(s))
	}

	column := filters.sortColumn("id")
	desc := filters.sortDescending()
	students, meta := page(students, filters, func(a, b *Student) int {
		var c int
		switch column {
		case "student_id":
			c = strings.Compare(a.StudentID, b.StudentID)
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "department":
			c = strings.Compare(a.Department, b.Department)
		case "year_level":
			c = cmp.Compare(a.YearLevel, b.YearLevel)
		default:
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	})
	return students, meta, nil
}

func (m memoryStudents) Update(_ context.Context, studentID string, input UpdateStudentInput) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.students[studentID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	s := cloneStudent(stored)
	s.apply(input)
	for _, other := range m.students {
		if other.StudentID != studentID && other.Email == s.Email {
			return nil, ErrDuplicateEmail
		}
	}
	m.students[studentID] = s
	return cloneStudent(s), nil
}

func (m memoryStudents) Delete(_ context.Context, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[studentID]; !ok {
		return ErrRecordNotFound
	}
	for _, loan := range m.loans {
		if loan.StudentID == studentID {
			return ErrStudentHasLoans
		}
	}
	delete(m.students, studentID)
	for email, u := range m.users {
		if u.StudentID == studentID {
			delete(m.users, email)
		}
	}
	return nil
}

func (m memoryStudents) Count(_ context.Context) (total, active int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.students {
		if s.Status == StudentActive {
			active++
		}
	}
	return len(m.students), active, nil
}

type memoryUsers struct{ *memory }

func (m memoryUsers) Register(_ context.Context, user *User, student *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Email]; exists {
		return ErrDuplicateEmail
	}
	if student != nil {
		if err := m.insertStudent(student); err != nil {
			return err
		}
		user.StudentID = student.StudentID
	}

	m.userSeq++
	user.ID = m.userSeq
	user.CreatedAt = m.now().UTC()
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m memoryUsers) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[NormalizeEmail(email)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memoryUsers) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}
