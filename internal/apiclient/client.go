// Package apiclient talks to the library API over HTTP. Errors returned by
// the server come back as the same *data.Error sentinels the server used,
// so callers can match them with errors.Is.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aoideee/treekings-library/internal/catalog"
	"github.com/aoideee/treekings-library/internal/circulation"
	"github.com/aoideee/treekings-library/internal/data"
)

// pageSize is the largest page the server hands out.
const pageSize = 100

// Client is safe for concurrent use once configured.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ circulation.CatalogService = (*Client)(nil)

// errorBody is the error envelope written by the server.
type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Kind   data.ErrorKind  `json:"kind"`
	Titles []string        `json:"titles"`
}

// do sends in as JSON (when not nil) and decodes the response into out
// (when not nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		js, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return data.TransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return data.TransportError(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

// decodeError rebuilds the server's error. The kind and message of a
// library error survive the trip, so errors.Is matches the sentinel.
func decodeError(resp *http.Response) error {
	var eb errorBody
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || len(eb.Error) == 0 {
		return &data.Error{Kind: kindForStatus(resp.StatusCode), Message: resp.Status}
	}

	kind := eb.Kind
	if kind == data.KindUnknown {
		kind = kindForStatus(resp.StatusCode)
	}

	var msg string
	if err := json.Unmarshal(eb.Error, &msg); err == nil {
		return &data.Error{Kind: kind, Message: msg, Titles: eb.Titles}
	}

	// Validation failures carry a field to message map.
	var fields map[string]string
	if err := json.Unmarshal(eb.Error, &fields); err == nil {
		return &data.Error{Kind: kind, Message: joinFields(fields)}
	}
	return &data.Error{Kind: kind, Message: string(eb.Error)}
}

func kindForStatus(status int) data.ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return data.KindValidation
	case http.StatusNotFound:
		return data.KindNotFound
	case http.StatusConflict:
		return data.KindConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return data.KindAuth
	default:
		return data.KindUnknown
	}
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + fields[k]
	}
	return strings.Join(parts, "; ")
}

// Login exchanges credentials for a token, which the client keeps using.
func (c *Client) Login(ctx context.Context, email, password string) (string, *data.User, error) {
	var out struct {
		Token struct {
			Token  string    `json:"token"`
			Expiry time.Time `json:"expiry"`
		} `json:"authentication_token"`
		User *data.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", data.LoginInput{Email: email, Password: password}, &out)
	if err != nil {
		return "", nil, err
	}
	c.token = out.Token.Token
	return out.Token.Token, out.User, nil
}

func (c *Client) Register(ctx context.Context, input data.RegisterInput) (*data.User, error) {
	var out struct {
		User *data.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/register", input, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ListBooks walks every page of /v1/books.
func (c *Client) ListBooks(ctx context.Context) ([]*data.Book, error) {
	var all []*data.Book
	for page := 1; ; page++ {
		var out struct {
			Books    []*data.Book  `json:"books"`
			Metadata data.Metadata `json:"metadata"`
		}
		path := fmt.Sprintf("/v1/books?page=%d&page_size=%d", page, pageSize)
		if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		all = append(all, out.Books...)
		if page >= out.Metadata.LastPage {
			return all, nil
		}
	}
}

func (c *Client) GetBook(ctx context.Context, id int64) (*data.Book, error) {
	var out struct {
		Book *data.Book `json:"book"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/books/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return out.Book, nil
}

func (c *Client) CreateBook(ctx context.Context, input data.CreateBookInput) (*data.Book, error) {
	var out struct {
		Book *data.Book `json:"book"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/books", input, &out); err != nil {
		return nil, err
	}
	return out.Book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int64, input data.UpdateBookInput) (*data.Book, error) {
	var out struct {
		Book *data.Book `json:"book"`
	}
	if err := c.do(ctx, http.MethodPatch, "/v1/books/"+strconv.FormatInt(id, 10), input, &out); err != nil {
		return nil, err
	}
	return out.Book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/v1/books/"+strconv.FormatInt(id, 10), nil, nil)
}

// Catalog fetches the dashboard view for q and the search text.
func (c *Client) Catalog(ctx context.Context, q catalog.Query, search string) (*catalog.View, error) {
	params := url.Values{}
	if search != "" {
		params.Set("q", search)
	}
	if q.Genre != "" {
		params.Set("genre", q.Genre)
	}
	if q.Rating != nil {
		params.Set("rating", strconv.FormatFloat(*q.Rating, 'f', -1, 64))
	}
	if q.SortByTitle {
		params.Set("sort", "title")
	}

	path := "/v1/catalog"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out struct {
		Catalog *catalog.View `json:"catalog"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Catalog, nil
}

func (c *Client) BorrowBooks(ctx context.Context, studentID string, bookIDs []int64) (*data.Receipt, error) {
	in := struct {
		StudentID string  `json:"student_id"`
		BookIDs   []int64 `json:"book_ids"`
	}{studentID, bookIDs}

	var out struct {
		Receipt *data.Receipt `json:"receipt"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/loans", in, &out); err != nil {
		return nil, err
	}
	return out.Receipt, nil
}

func (c *Client) ReturnBook(ctx context.Context, bookID int64, studentID string) (*data.Book, error) {
	in := struct {
		StudentID string `json:"student_id"`
	}{studentID}

	var out struct {
		Book *data.Book `json:"book"`
	}
	path := fmt.Sprintf("/v1/books/%d/return", bookID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return out.Book, nil
}

func (c *Client) ActiveLoans(ctx context.Context, studentID string) ([]circulation.ActiveLoan, error) {
	var out struct {
		Loans []circulation.ActiveLoan `json:"loans"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/students/"+url.PathEscape(studentID)+"/loans", nil, &out); err != nil {
		return nil, err
	}
	return out.Loans, nil
}

// ListStudents returns one page of the roster.
func (c *Client) ListStudents(ctx context.Context, page int) ([]*data.Student, data.Metadata, error) {
	var out struct {
		Students []*data.Student `json:"students"`
		Metadata data.Metadata   `json:"metadata"`
	}
	path := fmt.Sprintf("/v1/students?page=%d&page_size=%d", page, pageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, data.Metadata{}, err
	}
	return out.Students, out.Metadata, nil
}

func (c *Client) GetStudent(ctx context.Context, studentID string) (*data.Student, error) {
	var out struct {
		Student *data.Student `json:"student"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/students/"+url.PathEscape(studentID), nil, &out); err != nil {
		return nil, err
	}
	return out.Student, nil
}

func (c *Client) CreateStudent(ctx context.Context, input data.CreateStudentInput) (*data.Student, error) {
	var out struct {
		Student *data.Student `json:"student"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/students", input, &out); err != nil {
		return nil, err
	}
	return out.Student, nil
}

func (c *Client) UpdateStudent(ctx context.Context, studentID string, input data.UpdateStudentInput) (*data.Student, error) {
	var out struct {
		Student *data.Student `json:"student"`
	}
	if err := c.do(ctx, http.MethodPatch, "/v1/students/"+url.PathEscape(studentID), input, &out); err != nil {
		return nil, err
	}
	return out.Student, nil
}

func (c *Client) DeleteStudent(ctx context.Context, studentID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/students/"+url.PathEscape(studentID), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*circulation.Stats, error) {
	var out struct {
		Stats *circulation.Stats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return out.Stats, nil
}

// IsUnreachable reports whether err means the server could not be reached.
func IsUnreachable(err error) bool {
	return errors.Is(err, data.ErrUnreachable)
}
