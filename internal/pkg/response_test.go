package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/simp-lee/pagination"

	"github.com/simp-lee/allobricolage/internal/domain"
)

type testInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type bindInput struct {
	Name   string `json:"name" binding:"required,min=3"`
	Email  string `json:"email" binding:"required,email"`
	Role   string `json:"role" binding:"omitempty,oneof=CLIENT TECHNICIAN"`
	Rating int    `json:"rating" binding:"omitempty,gte=1,lte=5"`
}

func newResponseTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func newResponseTestContextWithBody(body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func decodeValidation(t *testing.T, w *httptest.ResponseRecorder) ValidationErrorResponse {
	t.Helper()
	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	c, w := newResponseTestContext()
	Success(c, map[string]string{"greeting": "hello"})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeResponse(t, w)
	if resp.Code != http.StatusOK || resp.Message != "success" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if resp.Data == nil {
		t.Error("expected non-nil data")
	}
}

func TestCreated(t *testing.T) {
	c, w := newResponseTestContext()
	Created(c, map[string]int{"id": 7})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if resp := decodeResponse(t, w); resp.Code != http.StatusCreated {
		t.Errorf("code = %d, want %d", resp.Code, http.StatusCreated)
	}
}

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", domain.NotFound("booking"), http.StatusNotFound, "booking not found"},
		{"already exists", domain.NewAppError(domain.CodeAlreadyExists, "email taken", nil), http.StatusConflict, "email taken"},
		{"validation", domain.Validation("bad date"), http.StatusBadRequest, "bad date"},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", domain.Forbidden("not yours"), http.StatusForbidden, "not yours"},
		{"conflict", domain.Conflict("booking already accepted"), http.StatusConflict, "booking already accepted"},
		{"generic", errors.New("db exploded"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContext()
			Error(c, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			resp := decodeResponse(t, w)
			if resp.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Message, tt.message)
			}
			if resp.Data != nil {
				t.Errorf("expected nil data, got %v", resp.Data)
			}
		})
	}
}

func TestError_InternalDetailsNotLeaked(t *testing.T) {
	c, w := newResponseTestContext()
	Error(c, errors.New("pq: password authentication failed"))

	if strings.Contains(w.Body.String(), "password authentication") {
		t.Fatalf("internal error details leaked: %s", w.Body.String())
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw  string
		want uint
		ok   bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, w := newResponseTestContext()
			c.Params = gin.Params{{Key: "id", Value: tt.raw}}

			got, ok := PathID(c, "id")
			if ok != tt.ok || got != tt.want {
				t.Fatalf("PathID(%q) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.ok)
			}
			if !ok && w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestList(t *testing.T) {
	c, w := newResponseTestContext()
	next := 2
	List(c, &pagination.Pagination[string]{Items: []string{"a", "b"}, TotalItems: 3, TotalPages: 2, CurrentPage: 1, ItemsPerPage: 2, NextPage: &next})

	resp := decodeResponse(t, w)
	data, _ := json.Marshal(resp.Data)

	var page pagination.Pagination[string]
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("failed to unmarshal page: %v", err)
	}
	if len(page.Items) != 2 || page.TotalItems != 3 || page.TotalPages != 2 || page.NextPage == nil || *page.NextPage != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestValidationError_WithValidatorErrors(t *testing.T) {
	c, w := newResponseTestContext()

	err := validator.New().Struct(testInput{})
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validator.ValidationErrors, got %T", err)
	}
	ValidationError(c, ve)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	resp := decodeValidation(t, w)
	if resp.Message != "validation error" {
		t.Errorf("message = %q", resp.Message)
	}
	// Without obj, field names fall back to lowercased struct names.
	if resp.Errors["name"] != "This field is required" {
		t.Errorf("errors[name] = %q", resp.Errors["name"])
	}
	if resp.Errors["email"] != "This field is required" {
		t.Errorf("errors[email] = %q", resp.Errors["email"])
	}
}

func TestValidationError_NonValidationError(t *testing.T) {
	c, w := newResponseTestContext()
	ValidationError(c, errors.New("unexpected EOF"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp := decodeResponse(t, w); resp.Message != "bad request" {
		t.Errorf("message = %q, want %q", resp.Message, "bad request")
	}
}

func TestBindAndValidate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ok     bool
		errors map[string]string
	}{
		{
			name: "invalid json",
			body: `{"invalid json`,
		},
		{
			name:   "missing fields",
			body:   `{}`,
			errors: map[string]string{"name": "This field is required", "email": "This field is required"},
		},
		{
			name:   "bad email and short name",
			body:   `{"name":"Al","email":"nope"}`,
			errors: map[string]string{"name": "Must be at least 3 characters", "email": "Must be a valid email address"},
		},
		{
			name:   "oneof and range",
			body:   `{"name":"Alice","email":"a@b.ma","role":"ADMIN","rating":9}`,
			errors: map[string]string{"role": "Must be one of: CLIENT, TECHNICIAN", "rating": "Must be less than or equal to 5"},
		},
		{
			name: "valid",
			body: `{"name":"Alice","email":"alice@example.com","role":"CLIENT","rating":4}`,
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContextWithBody(tt.body)

			var input bindInput
			ok := BindAndValidate(c, &input)
			if ok != tt.ok {
				t.Fatalf("BindAndValidate = %v, want %v", ok, tt.ok)
			}
			if tt.ok {
				if w.Body.Len() != 0 {
					t.Errorf("expected empty body on success, got %q", w.Body.String())
				}
				return
			}
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if tt.errors == nil {
				return
			}
			resp := decodeValidation(t, w)
			for field, msg := range tt.errors {
				if resp.Errors[field] != msg {
					t.Errorf("errors[%s] = %q, want %q", field, resp.Errors[field], msg)
				}
			}
		})
	}
}
