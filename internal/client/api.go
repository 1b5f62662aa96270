// Package client is a Go client for the taskboard HTTP API and a local data
// manager built on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"taskboard/internal/models"
)

const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response. Message is the server's "error" field
// when the body has one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type APIService struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// NewAPIService talks to the server at baseURL, e.g. "http://localhost:3000".
// A nil httpClient gets one with DefaultTimeout.
func NewAPIService(baseURL string, httpClient *http.Client, log *logrus.Logger) *APIService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &APIService{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http:    httpClient,
		log:     log,
	}
}

func (s *APIService) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.Must(uuid.NewV4()).String()
	req.Header.Set("X-Request-ID", requestID)

	entry := s.log.WithFields(logrus.Fields{
		"component":  "api_client",
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})
	entry.Debug("calling taskboard api")

	resp, err := s.http.Do(req)
	if err != nil {
		entry.WithError(err).Warn("taskboard api unavailable")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		entry.WithField("status", resp.StatusCode).Debug("taskboard api error")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func getJSON[T any](ctx context.Context, s *APIService, path string, query url.Values) (T, error) {
	var out T
	err := s.do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}

func sendJSON[T any](ctx context.Context, s *APIService, method, path string, in interface{}) (*T, error) {
	out := new(T)
	if err := s.do(ctx, method, path, nil, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *APIService) remove(ctx context.Context, path string) error {
	return s.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// TaskQuery mirrors the GET /api/tasks filters. Empty fields are omitted.
type TaskQuery struct {
	Category string
	Status   string
	Priority string
	Search   string
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	setNonEmpty(v, "category", q.Category)
	setNonEmpty(v, "status", q.Status)
	setNonEmpty(v, "priority", q.Priority)
	setNonEmpty(v, "search", q.Search)
	return v
}

type NoteQuery struct {
	TaskID string
	Search string
}

func (q NoteQuery) values() url.Values {
	v := url.Values{}
	setNonEmpty(v, "taskId", q.TaskID)
	setNonEmpty(v, "search", q.Search)
	return v
}

func setNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func (s *APIService) ListTasks(ctx context.Context, q TaskQuery) ([]models.Task, error) {
	return getJSON[[]models.Task](ctx, s, "/tasks", q.values())
}

func (s *APIService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return sendJSON[models.Task](ctx, s, http.MethodGet, "/tasks/"+url.PathEscape(id), nil)
}

func (s *APIService) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	return sendJSON[models.Task](ctx, s, http.MethodPost, "/tasks", in)
}

// UpdateTask sends changes as the PUT body; only the keys it marshals to are
// merged on the server.
func (s *APIService) UpdateTask(ctx context.Context, id string, changes interface{}) (*models.Task, error) {
	return sendJSON[models.Task](ctx, s, http.MethodPut, "/tasks/"+url.PathEscape(id), changes)
}

func (s *APIService) DeleteTask(ctx context.Context, id string) error {
	return s.remove(ctx, "/tasks/"+url.PathEscape(id))
}

func (s *APIService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return getJSON[[]models.Category](ctx, s, "/categories", nil)
}

func (s *APIService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return sendJSON[models.Category](ctx, s, http.MethodGet, "/categories/"+url.PathEscape(id), nil)
}

func (s *APIService) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	return sendJSON[models.Category](ctx, s, http.MethodPost, "/categories", in)
}

func (s *APIService) UpdateCategory(ctx context.Context, id string, changes interface{}) (*models.Category, error) {
	return sendJSON[models.Category](ctx, s, http.MethodPut, "/categories/"+url.PathEscape(id), changes)
}

func (s *APIService) DeleteCategory(ctx context.Context, id string) error {
	return s.remove(ctx, "/categories/"+url.PathEscape(id))
}

func (s *APIService) ListNotes(ctx context.Context, q NoteQuery) ([]models.Note, error) {
	return getJSON[[]models.Note](ctx, s, "/notes", q.values())
}

func (s *APIService) GetNote(ctx context.Context, id string) (*models.Note, error) {
	return sendJSON[models.Note](ctx, s, http.MethodGet, "/notes/"+url.PathEscape(id), nil)
}

func (s *APIService) CreateNote(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	return sendJSON[models.Note](ctx, s, http.MethodPost, "/notes", in)
}

func (s *APIService) UpdateNote(ctx context.Context, id string, changes interface{}) (*models.Note, error) {
	return sendJSON[models.Note](ctx, s, http.MethodPut, "/notes/"+url.PathEscape(id), changes)
}

func (s *APIService) DeleteNote(ctx context.Context, id string) error {
	return s.remove(ctx, "/notes/"+url.PathEscape(id))
}

// Users come back without a password; User.Password is always empty.
func (s *APIService) ListUsers(ctx context.Context) ([]models.User, error) {
	return getJSON[[]models.User](ctx, s, "/users", nil)
}

func (s *APIService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return sendJSON[models.User](ctx, s, http.MethodGet, "/users/"+url.PathEscape(id), nil)
}

func (s *APIService) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	return sendJSON[models.User](ctx, s, http.MethodPost, "/users", in)
}

func (s *APIService) UpdateUser(ctx context.Context, id string, changes interface{}) (*models.User, error) {
	return sendJSON[models.User](ctx, s, http.MethodPut, "/users/"+url.PathEscape(id), changes)
}

func (s *APIService) DeleteUser(ctx context.Context, id string) error {
	return s.remove(ctx, "/users/"+url.PathEscape(id))
}

func (s *APIService) GetStats(ctx context.Context) (*models.Stats, error) {
	return sendJSON[models.Stats](ctx, s, http.MethodGet, "/stats", nil)
}
