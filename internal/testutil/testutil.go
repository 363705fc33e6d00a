// Package testutil holds helpers shared by the module tests: an in-memory
// database with the full schema, seeded accounts and a gin harness that
// authenticates requests as a given user.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var seq atomic.Int64

// NewDB opens an in-memory SQLite database and migrates every model.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A second connection would see a different, empty ":memory:" database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts an active user with the given role.
func CreateUser(t testing.TB, db *gorm.DB, role domain.Role) *domain.User {
	t.Helper()
	n := seq.Add(1)
	u := &domain.User{
		FirstName: fmt.Sprintf("User%d", n),
		LastName:  "Test",
		Email:     fmt.Sprintf("user%d@example.ma", n),
		Role:      role,
		City:      "Rabat",
		IsActive:  true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateTechnician inserts a TECHNICIAN user and its profile.
func CreateTechnician(t testing.TB, db *gorm.DB, rate string) (*domain.User, *domain.TechnicianProfile) {
	t.Helper()
	u := CreateUser(t, db, domain.RoleTechnician)
	p := &domain.TechnicianProfile{
		UserID:      u.ID,
		HourlyRate:  decimal.RequireFromString(rate),
		City:        "Rabat",
		IsAvailable: true,
	}
	if err := db.Omit("User", "Category").Create(p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return u, p
}

// CreateCategory inserts an active category.
func CreateCategory(t testing.TB, db *gorm.DB, name string) *domain.ServiceCategory {
	t.Helper()
	c := &domain.ServiceCategory{Name: name, Slug: pkg.Slugify(name), IsActive: true}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// CreateBooking inserts a booking in the given status.
func CreateBooking(t testing.TB, db *gorm.DB, clientID, technicianID uint, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ClientID:       clientID,
		TechnicianID:   technicianID,
		Title:          "Remplacement robinet",
		Address:        "5 avenue Hassan II",
		City:           "Rabat",
		ScheduledAt:    time.Now().UTC().Add(48 * time.Hour),
		Status:         status,
		EstimatedPrice: decimal.NewFromInt(150),
		PaymentMethod:  domain.PaymentCash,
	}
	if err := db.Omit("Client", "Technician", "Category").Create(b).Error; err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

// Activate gives a technician an ACTIVE subscription ending after d.
func Activate(t testing.TB, db *gorm.DB, technicianID uint, d time.Duration) *domain.Subscription {
	t.Helper()
	start := time.Now().UTC()
	end := start.Add(d)
	s := &domain.Subscription{
		TechnicianID: technicianID,
		Plan:         "MONTHLY",
		Status:       domain.SubscriptionActive,
		StartsAt:     &start,
		EndsAt:       &end,
	}
	if err := db.Omit("Payments").Create(s).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return s
}

// Identity is the user a test request is made as. The zero value is an
// anonymous request.
type Identity struct {
	UserID uint
	Role   domain.Role
}

// As returns the identity of u.
func As(u *domain.User) Identity {
	return Identity{UserID: u.ID, Role: u.Role}
}

const identityHeader = "X-Test-Identity"

// NewRouter returns an engine with public and protected groups under
// /api/v1. The protected group authenticates from a test header set by Do
// instead of a JWT.
func NewRouter(register func(public, protected *gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	public := r.Group("/api/v1")
	protected := r.Group("/api/v1")
	protected.Use(func(c *gin.Context) {
		var id Identity
		if raw := c.GetHeader(identityHeader); raw != "" {
			json.Unmarshal([]byte(raw), &id)
		}
		if id.UserID == 0 {
			pkg.Error(c, domain.ErrUnauthorized)
			c.Abort()
			return
		}
		middleware.SetIdentity(c, id.UserID, id.Role)
		c.Next()
	})
	register(public, protected)
	return r
}

// Do sends a request with an optional JSON body as id.
func Do(r http.Handler, method, path string, id Identity, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, _ := json.Marshal(b)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return DoRequest(r, req, id)
}

// DoRequest sends a prepared request as id.
func DoRequest(r http.Handler, req *http.Request, id Identity) *httptest.ResponseRecorder {
	if id.UserID != 0 {
		raw, _ := json.Marshal(id)
		req.Header.Set(identityHeader, string(raw))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the data field of the response envelope into out.
func Decode(t testing.TB, w *httptest.ResponseRecorder, out any) pkg.Response {
	t.Helper()
	var env struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", w.Body.String(), err)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return pkg.Response{Code: env.Code, Message: env.Message}
}

// RecordingNotifier collects notifications instead of storing them.
type RecordingNotifier struct {
	Sent []domain.Notification
}

// Notify implements domain.Notifier.
func (r *RecordingNotifier) Notify(_ context.Context, n domain.Notification) {
	r.Sent = append(r.Sent, n)
}

// To returns the notifications addressed to userID.
func (r *RecordingNotifier) To(userID uint) []domain.Notification {
	var out []domain.Notification
	for _, n := range r.Sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// PNG and PDF are minimal payloads that content sniffing recognizes.
var (
	PNG = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	PDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
)

// Upload sends a multipart form with one file in field "file" and the given
// extra fields as id.
func Upload(r http.Handler, path string, id Identity, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		part, _ := mw.CreateFormFile("file", filename)
		part.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return DoRequest(r, req, id)
}

// NewStore returns a local file store rooted in a temporary directory.
func NewStore(t testing.TB) *storage.Local {
	t.Helper()
	s, err := storage.NewLocal(storage.Options{
		Dir:          filepath.Join(t.TempDir(), "uploads"),
		PublicPrefix: "/uploads",
		MaxBytes:     1 << 20,
		AllowedTypes: storage.DocumentTypes,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}
