package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
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
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var emailSeq int

func createUser(t *testing.T, db *gorm.DB, role domain.Role, first string) *domain.User {
	t.Helper()
	emailSeq++
	u := &domain.User{
		FirstName: first,
		LastName:  "Test",
		Email:     fmt.Sprintf("%s.%d@example.ma", first, emailSeq),
		Role:      role,
		IsActive:  true,
	}
	if err := NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createTechnician(t *testing.T, db *gorm.DB, first string, p domain.TechnicianProfile) *domain.TechnicianProfile {
	t.Helper()
	u := createUser(t, db, domain.RoleTechnician, first)
	p.UserID = u.ID
	if err := NewTechnicianRepository(db).Create(context.Background(), &p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return &p
}

func createBooking(t *testing.T, db *gorm.DB, clientID, techID uint, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ClientID:      clientID,
		TechnicianID:  techID,
		Title:         "Fuite sous evier",
		Address:       "12 rue Atlas",
		City:          "Rabat",
		ScheduledAt:   time.Now().UTC().Add(24 * time.Hour),
		Status:        status,
		PaymentMethod: domain.PaymentCash,
	}
	if err := NewBookingRepository(db).Create(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func TestUserRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &domain.User{FirstName: "Amina", LastName: "Alaoui", Email: "  Amina@Example.MA ", Role: domain.RoleClient, IsActive: true}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "amina@example.ma" {
		t.Errorf("email not normalized: %q", u.Email)
	}

	got, err := repo.GetByEmail(ctx, "AMINA@example.ma")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail = %+v, %v", got, err)
	}

	dup := &domain.User{FirstName: "X", LastName: "Y", Email: "amina@example.ma", Role: domain.RoleClient}
	if err := repo.Create(ctx, dup); !domain.IsAlreadyExists(err) {
		t.Errorf("duplicate Create error = %v, want already exists", err)
	}

	if err := repo.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	got, _ = repo.GetByID(ctx, u.ID)
	if got.IsActive {
		t.Error("expected user to be inactive")
	}

	if err := repo.UpdatePassword(ctx, 999, "x"); !domain.IsNotFound(err) {
		t.Errorf("UpdatePassword(missing) = %v, want not found", err)
	}
	if _, err := repo.GetByID(ctx, 999); !domain.IsNotFound(err) {
		t.Errorf("GetByID(missing) = %v, want not found", err)
	}
}

func TestUserRepository_ListAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, db, domain.RoleClient, "karim")
	createUser(t, db, domain.RoleClient, "sara")
	tech := createUser(t, db, domain.RoleTechnician, "youssef")
	if err := repo.SetActive(ctx, tech.ID, false); err != nil {
		t.Fatal(err)
	}

	page, err := repo.List(ctx, domain.PageRequest{Page: 1, PageSize: 10, Filter: map[string]string{"role": "CLIENT"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalItems != 2 {
		t.Errorf("clients = %d, want 2", page.TotalItems)
	}

	page, _ = repo.List(ctx, domain.PageRequest{Page: 1, PageSize: 10, Filter: map[string]string{"is_active": "false"}})
	if page.TotalItems != 1 || page.Items[0].ID != tech.ID {
		t.Errorf("inactive users = %+v", page.Items)
	}

	page, _ = repo.List(ctx, domain.PageRequest{Page: 1, PageSize: 10, Filter: map[string]string{"email__like": "sara"}})
	if page.TotalItems != 1 {
		t.Errorf("email__like total = %d, want 1", page.TotalItems)
	}

	counts, err := repo.CountByRole(ctx)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	if counts[domain.RoleClient] != 2 || counts[domain.RoleTechnician] != 1 || counts[domain.RoleAdmin] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestTechnicianRepository_ListOrderAndFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTechnicianRepository(db)
	ctx := context.Background()

	cat := &domain.ServiceCategory{Name: "Plomberie", Slug: "plomberie", IsActive: true}
	if err := NewCategoryRepository(db).Create(ctx, cat); err != nil {
		t.Fatal(err)
	}

	low := createTechnician(t, db, "omar", domain.TechnicianProfile{Rating: 3.5, City: "Rabat", IsAvailable: true, CategoryID: &cat.ID})
	high := createTechnician(t, db, "hind", domain.TechnicianProfile{Rating: 4.9, City: "Casablanca", IsAvailable: true, Skills: []string{"Chauffe-eau"}})
	premium := createTechnician(t, db, "ali", domain.TechnicianProfile{Rating: 4.0, City: "Rabat", IsPremium: true, IsAvailable: true})
	inactive := createTechnician(t, db, "nadia", domain.TechnicianProfile{Rating: 5, City: "Rabat", IsAvailable: true})
	if err := NewUserRepository(db).SetActive(ctx, inactive.UserID, false); err != nil {
		t.Fatal(err)
	}

	req := domain.PageRequest{Page: 1, PageSize: 10}
	page, err := repo.List(ctx, domain.TechnicianFilter{}, req)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []uint{premium.UserID, high.UserID, low.UserID}
	if len(page.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(page.Items), len(want))
	}
	for i, id := range want {
		if page.Items[i].UserID != id {
			t.Errorf("item %d = user %d, want %d", i, page.Items[i].UserID, id)
		}
	}
	if page.Items[0].User == nil || page.Items[0].User.FirstName != "ali" {
		t.Error("expected User to be preloaded")
	}

	minRating := 3.9
	page, _ = repo.List(ctx, domain.TechnicianFilter{City: "rabat", MinRating: &minRating}, req)
	if page.TotalItems != 1 || page.Items[0].UserID != premium.UserID {
		t.Errorf("city+rating filter = %+v", page.Items)
	}

	page, _ = repo.List(ctx, domain.TechnicianFilter{CategoryID: &cat.ID}, req)
	if page.TotalItems != 1 || page.Items[0].Category == nil {
		t.Errorf("category filter = %+v", page.Items)
	}

	page, _ = repo.List(ctx, domain.TechnicianFilter{Query: "chauffe"}, req)
	if page.TotalItems != 1 || page.Items[0].UserID != high.UserID {
		t.Errorf("skill search = %+v", page.Items)
	}
	page, _ = repo.List(ctx, domain.TechnicianFilter{Query: "OMAR"}, req)
	if page.TotalItems != 1 || page.Items[0].UserID != low.UserID {
		t.Errorf("name search = %+v", page.Items)
	}
}

func TestTechnicianRepository_Counters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTechnicianRepository(db)
	ctx := context.Background()

	p := createTechnician(t, db, "rachid", domain.TechnicianProfile{HourlyRate: decimal.RequireFromString("150.50")})

	for i := 0; i < 2; i++ {
		if err := repo.IncrementCompletedJobs(ctx, p.UserID); err != nil {
			t.Fatalf("IncrementCompletedJobs: %v", err)
		}
	}
	if err := repo.SetRating(ctx, p.UserID, 4.5, 2); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByUserID(ctx, p.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedJobs != 2 || got.Rating != 4.5 || got.ReviewCount != 2 {
		t.Errorf("profile = %+v", got)
	}
	if !got.HourlyRate.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("hourly rate = %s", got.HourlyRate)
	}

	if err := repo.SetPremium(ctx, 999, true); !domain.IsNotFound(err) {
		t.Errorf("SetPremium(missing) = %v, want not found", err)
	}
}

func TestCategoryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	elec := &domain.ServiceCategory{Name: "Electricite", Slug: "electricite", IsActive: true}
	plomb := &domain.ServiceCategory{Name: "Plomberie", Slug: "plomberie", IsActive: true}
	old := &domain.ServiceCategory{Name: "Archive", Slug: "archive", IsActive: false}
	for _, c := range []*domain.ServiceCategory{plomb, elec, old} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	stored, err := repo.GetByID(ctx, old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsActive || old.IsActive {
		t.Fatalf("inactive category stored as active: row=%v struct=%v", stored.IsActive, old.IsActive)
	}

	active, err := repo.List(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 || active[0].Name != "Electricite" {
		t.Errorf("active = %+v", active)
	}

	if err := repo.Create(ctx, &domain.ServiceCategory{Name: "Plomberie", Slug: "plomberie-2"}); !domain.IsAlreadyExists(err) {
		t.Errorf("duplicate name = %v", err)
	}

	client := createUser(t, db, domain.RoleClient, "c")
	tech := createTechnician(t, db, "t", domain.TechnicianProfile{CategoryID: &elec.ID})
	b := createBooking(t, db, client.ID, tech.UserID, domain.BookingPending)
	db.Model(b).Update("category_id", plomb.ID)

	inUse, _ := repo.InUse(ctx, plomb.ID)
	if !inUse {
		t.Error("plomberie should be in use")
	}
	inUse, _ = repo.InUse(ctx, elec.ID)
	if inUse {
		t.Error("electricite is only referenced by a profile")
	}

	if err := repo.Delete(ctx, elec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	p, _ := NewTechnicianRepository(db).GetByUserID(ctx, tech.UserID)
	if p.CategoryID != nil {
		t.Error("profile category should be cleared")
	}
	if err := repo.Delete(ctx, elec.ID); !domain.IsNotFound(err) {
		t.Errorf("second Delete = %v, want not found", err)
	}
}

func TestBookingRepository_Transition(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	client := createUser(t, db, domain.RoleClient, "c")
	tech := createTechnician(t, db, "t", domain.TechnicianProfile{})
	b := createBooking(t, db, client.ID, tech.UserID, domain.BookingPending)

	now := time.Now().UTC()
	err := repo.Transition(ctx, b.ID, domain.BookingPending, domain.BookingAccepted, domain.TransitionFields(domain.BookingAccepted, now))
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	got, _ := repo.GetByID(ctx, b.ID)
	if got.Status != domain.BookingAccepted || got.AcceptedAt == nil {
		t.Errorf("booking = %+v", got)
	}
	if got.Client == nil || got.Technician == nil {
		t.Error("expected participants to be preloaded")
	}

	// A second transition from the stale status loses.
	err = repo.Transition(ctx, b.ID, domain.BookingPending, domain.BookingDeclined, nil)
	if !domain.IsConflict(err) {
		t.Errorf("stale Transition = %v, want conflict", err)
	}

	err = repo.Transition(ctx, 999, domain.BookingPending, domain.BookingAccepted, nil)
	if !domain.IsNotFound(err) {
		t.Errorf("missing Transition = %v, want not found", err)
	}
}

func TestBookingRepository_ListScopesAndCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	c1 := createUser(t, db, domain.RoleClient, "c1")
	c2 := createUser(t, db, domain.RoleClient, "c2")
	tech := createTechnician(t, db, "t", domain.TechnicianProfile{})
	createBooking(t, db, c1.ID, tech.UserID, domain.BookingPending)
	createBooking(t, db, c1.ID, tech.UserID, domain.BookingCompleted)
	createBooking(t, db, c2.ID, tech.UserID, domain.BookingPending)

	req := domain.PageRequest{Page: 1, PageSize: 10}
	page, _ := repo.List(ctx, domain.BookingScope{ClientID: c1.ID}, req)
	if page.TotalItems != 2 {
		t.Errorf("client scope total = %d, want 2", page.TotalItems)
	}

	req.Filter = map[string]string{"status": "PENDING"}
	page, _ = repo.List(ctx, domain.BookingScope{TechnicianID: tech.UserID}, req)
	if page.TotalItems != 2 {
		t.Errorf("technician pending total = %d, want 2", page.TotalItems)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[domain.BookingPending] != 2 || counts[domain.BookingCompleted] != 1 {
		t.Errorf("counts = %v", counts)
	}

	if err := repo.SetEstimatedPrice(ctx, page.Items[0].ID, decimal.RequireFromString("199.999")); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByID(ctx, page.Items[0].ID)
	if !got.EstimatedPrice.Equal(decimal.RequireFromString("200")) {
		t.Errorf("estimated price = %s, want 200", got.EstimatedPrice)
	}

	done := createBooking(t, db, c1.ID, tech.UserID, domain.BookingCompleted)
	if err := repo.SetEstimatedPrice(ctx, done.ID, decimal.NewFromInt(50)); !domain.IsConflict(err) {
		t.Errorf("pricing a completed booking err = %v, want conflict", err)
	}
	if got, _ := repo.GetByID(ctx, done.ID); !got.EstimatedPrice.IsZero() {
		t.Errorf("completed booking price changed to %s", got.EstimatedPrice)
	}
	if err := repo.SetEstimatedPrice(ctx, 999, decimal.NewFromInt(50)); !domain.IsNotFound(err) {
		t.Errorf("missing booking err = %v, want not found", err)
	}
}

func TestQuoteRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 3; i++ {
		q := &domain.Quote{BookingID: 1, TechnicianID: 2, Amount: decimal.NewFromInt(int64(100 + i)), Status: domain.QuotePending}
		if err := repo.Create(ctx, q); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, q.ID)
	}

	if err := repo.SetStatus(ctx, ids[0], domain.QuotePending, domain.QuoteAccepted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := repo.SetStatus(ctx, ids[0], domain.QuotePending, domain.QuoteRejected); !domain.IsConflict(err) {
		t.Errorf("stale SetStatus = %v, want conflict", err)
	}

	n, err := repo.RejectPending(ctx, 1, ids[0])
	if err != nil || n != 2 {
		t.Fatalf("RejectPending = %d, %v", n, err)
	}

	quotes, _ := repo.ListByBooking(ctx, 1)
	if quotes[0].Status != domain.QuoteAccepted || quotes[1].Status != domain.QuoteRejected {
		t.Errorf("quotes = %+v", quotes)
	}
}

func TestReviewRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	client := createUser(t, db, domain.RoleClient, "c")
	for i, rating := range []int{5, 4, 3} {
		r := &domain.Review{BookingID: uint(i + 1), ClientID: client.ID, TechnicianID: 9, Rating: rating}
		if err := repo.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	err := repo.Create(ctx, &domain.Review{BookingID: 1, ClientID: client.ID, TechnicianID: 9, Rating: 1})
	if !domain.IsAlreadyExists(err) {
		t.Errorf("second review = %v, want already exists", err)
	}

	sum, err := repo.Summary(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Count != 3 || sum.Average != 4 {
		t.Errorf("summary = %+v", sum)
	}

	empty, _ := repo.Summary(ctx, 42)
	if empty.Count != 0 || empty.Average != 0 {
		t.Errorf("empty summary = %+v", empty)
	}

	page, _ := repo.ListByTechnician(ctx, 9, domain.PageRequest{Page: 1, PageSize: 2})
	if page.TotalItems != 3 || len(page.Items) != 2 || page.Items[0].Client == nil {
		t.Errorf("page = %+v", page)
	}
}

func TestNotificationRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	var last uint
	for i := 0; i < 3; i++ {
		n := &domain.Notification{UserID: 1, Type: domain.NotifyBooking, Title: fmt.Sprintf("n%d", i)}
		if err := repo.Create(ctx, n); err != nil {
			t.Fatal(err)
		}
		last = n.ID
	}
	other := &domain.Notification{UserID: 2, Type: domain.NotifyBooking, Title: "other"}
	repo.Create(ctx, other)

	now := time.Now().UTC()
	if err := repo.MarkRead(ctx, last, 1, now); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := repo.MarkRead(ctx, last, 1, now); err != nil {
		t.Errorf("MarkRead twice = %v, want nil", err)
	}
	if err := repo.MarkRead(ctx, other.ID, 1, now); !domain.IsNotFound(err) {
		t.Errorf("MarkRead foreign = %v, want not found", err)
	}

	unread, _ := repo.CountUnread(ctx, 1)
	if unread != 2 {
		t.Errorf("unread = %d, want 2", unread)
	}

	page, _ := repo.ListByUser(ctx, 1, false, domain.PageRequest{Page: 1, PageSize: 10, Sort: "title:asc"})
	if page.Items[0].ID != last {
		t.Error("notifications must be newest first")
	}
	page, _ = repo.ListByUser(ctx, 1, true, domain.PageRequest{Page: 1, PageSize: 10})
	if page.TotalItems != 2 {
		t.Errorf("unread page total = %d", page.TotalItems)
	}

	n, _ := repo.MarkAllRead(ctx, 1, now)
	if n != 2 {
		t.Errorf("MarkAllRead = %d, want 2", n)
	}

	if err := repo.Delete(ctx, other.ID, 1); !domain.IsNotFound(err) {
		t.Errorf("Delete foreign = %v", err)
	}
	if err := repo.Delete(ctx, other.ID, 2); err != nil {
		t.Errorf("Delete own = %v", err)
	}
}

func TestMessageRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 4; i++ {
		m := &domain.ChatMessage{BookingID: 1, SenderID: 1, RecipientID: 2, Body: fmt.Sprintf("m%d", i)}
		if i%2 == 1 {
			m.SenderID, m.RecipientID = 2, 1
		}
		if err := repo.Create(ctx, m); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, m.ID)
	}

	msgs, _ := repo.ListByBooking(ctx, 1, ids[1], 10)
	if len(msgs) != 2 || msgs[0].ID != ids[2] {
		t.Errorf("after_id listing = %+v", msgs)
	}
	msgs, _ = repo.ListByBooking(ctx, 1, 0, 1)
	if len(msgs) != 1 || msgs[0].ID != ids[0] {
		t.Errorf("limited listing = %+v", msgs)
	}

	unread, _ := repo.CountUnread(ctx, 2)
	if unread != 2 {
		t.Errorf("unread = %d", unread)
	}
	n, _ := repo.MarkRead(ctx, 1, 2, time.Now().UTC())
	if n != 2 {
		t.Errorf("MarkRead = %d", n)
	}
	unread, _ = repo.CountUnread(ctx, 2)
	if unread != 0 {
		t.Errorf("unread after MarkRead = %d", unread)
	}
}

func TestSubscriptionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(48 * time.Hour)
	start := now.Add(-30 * 24 * time.Hour)

	expired := &domain.Subscription{TechnicianID: 5, Plan: "MONTHLY", Status: domain.SubscriptionActive, StartsAt: &start, EndsAt: &past}
	active := &domain.Subscription{TechnicianID: 5, Plan: "MONTHLY", Status: domain.SubscriptionActive, StartsAt: &start, EndsAt: &future}
	pending := &domain.Subscription{TechnicianID: 6, Plan: "PREMIUM", Status: domain.SubscriptionPending}
	for _, s := range []*domain.Subscription{expired, active, pending} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.FindActive(ctx, 5, now)
	if err != nil || got.ID != active.ID {
		t.Fatalf("FindActive = %+v, %v", got, err)
	}
	if _, err := repo.FindActive(ctx, 6, now); !domain.IsNotFound(err) {
		t.Errorf("FindActive(pending only) = %v", err)
	}

	list, _ := repo.ListExpired(ctx, now)
	if len(list) != 1 || list[0].ID != expired.ID {
		t.Errorf("ListExpired = %+v", list)
	}

	has, _ := repo.HasPending(ctx, 6)
	if !has {
		t.Error("HasPending(6) = false")
	}
	count, _ := repo.CountActive(ctx, now)
	if count != 1 {
		t.Errorf("CountActive = %d", count)
	}

	for _, amount := range []string{"99.00", "249.50"} {
		p := &domain.SubscriptionPayment{SubscriptionID: pending.ID, TechnicianID: 6, Amount: decimal.RequireFromString(amount), Method: domain.PaymentTransfer, Status: domain.PaymentApproved}
		if err := repo.CreatePayment(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	repo.CreatePayment(ctx, &domain.SubscriptionPayment{SubscriptionID: pending.ID, TechnicianID: 6, Amount: decimal.NewFromInt(10), Method: domain.PaymentCash, Status: domain.PaymentPending})

	revenue, err := repo.ApprovedRevenue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !revenue.Equal(decimal.RequireFromString("348.5")) {
		t.Errorf("revenue = %s", revenue)
	}
	pendingPayments, _ := repo.CountPendingPayments(ctx)
	if pendingPayments != 1 {
		t.Errorf("pending payments = %d", pendingPayments)
	}

	page, _ := repo.ListPayments(ctx, domain.PageRequest{Page: 1, PageSize: 10, Filter: map[string]string{"status": "APPROVED"}})
	if page.TotalItems != 2 || page.Items[0].Subscription == nil {
		t.Errorf("payments page = %+v", page)
	}

	subs, _ := repo.ListByTechnician(ctx, 6)
	if len(subs) != 1 || len(subs[0].Payments) != 3 {
		t.Errorf("ListByTechnician = %+v", subs)
	}
}

func TestSubscriptionRepository_ReviewPayment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	sub := &domain.Subscription{TechnicianID: 3, Plan: "MONTHLY", Status: domain.SubscriptionPending}
	repo.Create(ctx, sub)
	p := &domain.SubscriptionPayment{SubscriptionID: sub.ID, TechnicianID: 3, Amount: decimal.NewFromInt(99), Method: domain.PaymentCash, Status: domain.PaymentPending}
	repo.CreatePayment(ctx, p)

	if err := repo.ReviewPayment(ctx, p.ID, domain.PaymentApproved, 1, "ok", time.Now().UTC()); err != nil {
		t.Fatalf("ReviewPayment: %v", err)
	}
	got, _ := repo.GetPayment(ctx, p.ID)
	if got.Status != domain.PaymentApproved || got.ReviewedBy == nil || *got.ReviewedBy != 1 || got.Note != "ok" {
		t.Errorf("payment = %+v", got)
	}

	if err := repo.ReviewPayment(ctx, p.ID, domain.PaymentRejected, 1, "", time.Now().UTC()); !domain.IsConflict(err) {
		t.Errorf("second review = %v, want conflict", err)
	}
	if err := repo.ReviewPayment(ctx, 999, domain.PaymentRejected, 1, "", time.Now().UTC()); !domain.IsNotFound(err) {
		t.Errorf("missing payment = %v, want not found", err)
	}
}

func TestSubscriptionRepository_EmptyRevenue(t *testing.T) {
	db := setupTestDB(t)
	revenue, err := NewSubscriptionRepository(db).ApprovedRevenue(context.Background())
	if err != nil || !revenue.IsZero() {
		t.Errorf("ApprovedRevenue = %s, %v", revenue, err)
	}
}

func TestTokenRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	reset := &domain.PasswordResetToken{UserID: 1, TokenHash: "abc", ExpiresAt: now.Add(time.Hour)}
	if err := repo.CreateReset(ctx, reset); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetResetByHash(ctx, "abc")
	if err != nil || got.ID != reset.ID {
		t.Fatalf("GetResetByHash = %+v, %v", got, err)
	}
	if err := repo.UseReset(ctx, reset.ID, now); err != nil {
		t.Fatal(err)
	}
	if err := repo.UseReset(ctx, reset.ID, now); !domain.IsConflict(err) {
		t.Errorf("second UseReset = %v, want conflict", err)
	}

	refresh := &domain.RefreshToken{UserID: 1, TokenID: "jti-1", ExpiresAt: now.Add(time.Hour)}
	old := &domain.RefreshToken{UserID: 1, TokenID: "jti-old", ExpiresAt: now.Add(-time.Hour)}
	repo.CreateRefresh(ctx, refresh)
	repo.CreateRefresh(ctx, old)

	if err := repo.RevokeRefresh(ctx, "jti-1", now); err != nil {
		t.Fatal(err)
	}
	if err := repo.RevokeRefresh(ctx, "jti-1", now); !domain.IsConflict(err) {
		t.Errorf("second RevokeRefresh = %v, want conflict", err)
	}
	if _, err := repo.GetRefresh(ctx, "nope"); !domain.IsNotFound(err) {
		t.Errorf("GetRefresh(missing) = %v", err)
	}

	removed, err := repo.PurgeExpired(ctx, now)
	if err != nil || removed != 1 {
		t.Errorf("PurgeExpired = %d, %v", removed, err)
	}
}
