package quote

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/repository"
	"github.com/simp-lee/allobricolage/internal/testutil"
)

func TestCreate(t *testing.T) {
	db := testutil.NewDB(t)
	n := &testutil.RecordingNotifier{}
	svc := NewService(db, n)
	ctx := context.Background()

	client := testutil.CreateUser(t, db, domain.RoleClient)
	tech, _ := testutil.CreateTechnician(t, db, "100")
	other, _ := testutil.CreateTechnician(t, db, "100")
	b := testutil.CreateBooking(t, db, client.ID, tech.ID, domain.BookingAccepted)
	as := domain.Actor{UserID: tech.ID, Role: domain.RoleTechnician}

	q, err := svc.Create(ctx, as, b.ID, CreateRequest{Amount: decimal.RequireFromString("450.999"), Description: "Pièces <i>incluses</i>"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if q.Status != domain.QuotePending || !q.Amount.Equal(decimal.RequireFromString("451")) || q.Description != "Pièces incluses" {
		t.Errorf("quote = %+v", q)
	}
	if len(n.To(client.ID)) != 1 {
		t.Errorf("client not notified: %+v", n.Sent)
	}

	tests := []struct {
		name  string
		actor domain.Actor
		req   CreateRequest
		check func(error) bool
	}{
		{"other technician", domain.Actor{UserID: other.ID, Role: domain.RoleTechnician}, CreateRequest{Amount: decimal.NewFromInt(1)}, domain.IsForbidden},
		{"client", domain.Actor{UserID: client.ID, Role: domain.RoleClient}, CreateRequest{Amount: decimal.NewFromInt(1)}, domain.IsForbidden},
		{"zero amount", as, CreateRequest{}, domain.IsValidation},
		{"expired validity", as, CreateRequest{Amount: decimal.NewFromInt(1), ValidUntil: ptr(time.Now().Add(-time.Minute))}, domain.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.actor, b.ID, tt.req); !tt.check(err) {
				t.Errorf("err = %v", err)
			}
		})
	}

	started := testutil.CreateBooking(t, db, client.ID, tech.ID, domain.BookingInProgress)
	if _, err := svc.Create(ctx, as, started.ID, CreateRequest{Amount: decimal.NewFromInt(1)}); !domain.IsConflict(err) {
		t.Errorf("quote on IN_PROGRESS booking err = %v, want conflict", err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestAccept_RejectsSiblings(t *testing.T) {
	db := testutil.NewDB(t)
	n := &testutil.RecordingNotifier{}
	svc := NewService(db, n)
	ctx := context.Background()

	client := testutil.CreateUser(t, db, domain.RoleClient)
	tech, _ := testutil.CreateTechnician(t, db, "100")
	b := testutil.CreateBooking(t, db, client.ID, tech.ID, domain.BookingPending)
	as := domain.Actor{UserID: tech.ID, Role: domain.RoleTechnician}
	owner := domain.Actor{UserID: client.ID, Role: domain.RoleClient}

	first, _ := svc.Create(ctx, as, b.ID, CreateRequest{Amount: decimal.NewFromInt(300)})
	second, _ := svc.Create(ctx, as, b.ID, CreateRequest{Amount: decimal.NewFromInt(280)})

	if _, err := svc.Accept(ctx, domain.Actor{UserID: tech.ID, Role: domain.RoleTechnician}, second.ID); !domain.IsForbidden(err) {
		t.Errorf("technician accept err = %v, want forbidden", err)
	}
	accepted, err := svc.Accept(ctx, owner, second.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != domain.QuoteAccepted {
		t.Errorf("status = %s", accepted.Status)
	}

	booking, _ := repository.NewBookingRepository(db).GetByID(ctx, b.ID)
	if !booking.EstimatedPrice.Equal(decimal.NewFromInt(280)) {
		t.Errorf("estimated_price = %s, want 280", booking.EstimatedPrice)
	}
	sibling, _ := repository.NewQuoteRepository(db).GetByID(ctx, first.ID)
	if sibling.Status != domain.QuoteRejected {
		t.Errorf("sibling status = %s, want REJECTED", sibling.Status)
	}
	if _, err := svc.Accept(ctx, owner, first.ID); !domain.IsConflict(err) {
		t.Errorf("accepting a rejected quote err = %v, want conflict", err)
	}
}

// staleBookings serves a booking as it was when first read.
type staleBookings struct {
	domain.BookingRepository
	snapshot domain.Booking
}

func (s staleBookings) GetByID(context.Context, uint) (*domain.Booking, error) {
	b := s.snapshot
	return &b, nil
}

func TestAccept_BookingStartedMeanwhile(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, &testutil.RecordingNotifier{})
	ctx := context.Background()

	client := testutil.CreateUser(t, db, domain.RoleClient)
	tech, _ := testutil.CreateTechnician(t, db, "100")
	b := testutil.CreateBooking(t, db, client.ID, tech.ID, domain.BookingAccepted)
	q, err := svc.Create(ctx, domain.Actor{UserID: tech.ID, Role: domain.RoleTechnician}, b.ID, CreateRequest{Amount: decimal.NewFromInt(120)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	bookings := repository.NewBookingRepository(db)
	if err := bookings.Transition(ctx, b.ID, domain.BookingAccepted, domain.BookingInProgress, nil); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	svc.(*quoteService).bookings = staleBookings{BookingRepository: bookings, snapshot: *b}

	if _, err := svc.Accept(ctx, domain.Actor{UserID: client.ID, Role: domain.RoleClient}, q.ID); !domain.IsConflict(err) {
		t.Fatalf("accept err = %v, want conflict", err)
	}
	stored, _ := repository.NewQuoteRepository(db).GetByID(ctx, q.ID)
	if stored.Status != domain.QuotePending {
		t.Errorf("quote status = %s, want the acceptance rolled back", stored.Status)
	}
	if got, _ := bookings.GetByID(ctx, b.ID); !got.EstimatedPrice.Equal(b.EstimatedPrice) {
		t.Errorf("estimated_price = %s, want unchanged %s", got.EstimatedPrice, b.EstimatedPrice)
	}
}

func TestAccept_Expired(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, &testutil.RecordingNotifier{})
	ctx := context.Background()

	client := testutil.CreateUser(t, db, domain.RoleClient)
	tech, _ := testutil.CreateTechnician(t, db, "100")
	b := testutil.CreateBooking(t, db, client.ID, tech.ID, domain.BookingPending)

	q, err := svc.Create(ctx, domain.Actor{UserID: tech.ID, Role: domain.RoleTechnician}, b.ID,
		CreateRequest{Amount: decimal.NewFromInt(90), ValidUntil: ptr(time.Now().Add(time.Hour))})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.(*quoteService).now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	if _, err := svc.Accept(ctx, domain.Actor{UserID: client.ID, Role: domain.RoleClient}, q.ID); !domain.IsConflict(err) {
		t.Errorf("expired accept err = %v, want conflict", err)
	}
}

func TestRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	n := &testutil.RecordingNotifier{}
	r := testutil.NewRouter(NewModule(NewHandler(NewService(db, n))).RegisterRoutes)

	client := testutil.CreateUser(t, db, domain.RoleClient)
	stranger := testutil.CreateUser(t, db, domain.RoleClient)
	tech, _ := testutil.CreateTechnician(t, db, "100")
	b := testutil.CreateBooking(t, db, client.ID, tech.ID, domain.BookingPending)
	base := fmt.Sprintf("/api/v1/bookings/%d/quotes", b.ID)

	if w := testutil.Do(r, http.MethodPost, base, testutil.As(client), map[string]any{"amount": 10}); w.Code != http.StatusForbidden {
		t.Errorf("client create = %d, want 403", w.Code)
	}

	var q domain.Quote
	w := testutil.Do(r, http.MethodPost, base, testutil.As(tech), map[string]any{"amount": "199.90", "description": "Forfait"})
	testutil.Decode(t, w, &q)
	if w.Code != http.StatusCreated || q.ID == 0 {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}

	var list []domain.Quote
	w = testutil.Do(r, http.MethodGet, base, testutil.As(client), nil)
	testutil.Decode(t, w, &list)
	if w.Code != http.StatusOK || len(list) != 1 {
		t.Errorf("list = %d %s", w.Code, w.Body.String())
	}
	if w := testutil.Do(r, http.MethodGet, base, testutil.As(stranger), nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger list = %d, want 403", w.Code)
	}

	withdraw := fmt.Sprintf("/api/v1/quotes/%d/withdraw", q.ID)
	if w := testutil.Do(r, http.MethodPatch, withdraw, testutil.As(tech), nil); w.Code != http.StatusOK {
		t.Errorf("withdraw = %d %s", w.Code, w.Body.String())
	}
	if w := testutil.Do(r, http.MethodPatch, withdraw, testutil.As(tech), nil); w.Code != http.StatusConflict {
		t.Errorf("second withdraw = %d, want 409", w.Code)
	}
	reject := fmt.Sprintf("/api/v1/quotes/%d/reject", q.ID)
	if w := testutil.Do(r, http.MethodPatch, reject, testutil.As(client), nil); w.Code != http.StatusConflict {
		t.Errorf("reject withdrawn = %d, want 409", w.Code)
	}
}

func TestNewModule_NilHandlerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewModule(nil)
}
