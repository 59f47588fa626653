package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abenezer-sh/fixit/internal/apperrors"
)

type fakeStore struct {
	jobs      map[string]*Job
	handymen  map[string]*HandymanRef // by profile id
	byUser    map[string]*HandymanRef // by owning user id
	payments  []Payment
	total     map[string]int
	completed map[string]int
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      make(map[string]*Job),
		handymen:  make(map[string]*HandymanRef),
		byUser:    make(map[string]*HandymanRef),
		total:     make(map[string]int),
		completed: make(map[string]int),
	}
}

func (f *fakeStore) addHandyman(id, userID string, active bool) {
	ref := &HandymanRef{ID: id, UserID: userID, IsActive: active}
	f.handymen[id] = ref
	f.byUser[userID] = ref
}

func (f *fakeStore) GetHandymanRef(ctx context.Context, handymanID string) (*HandymanRef, error) {
	if ref, ok := f.handymen[handymanID]; ok {
		return ref, nil
	}
	return nil, apperrors.NotFound("handyman not found")
}

func (f *fakeStore) GetHandymanRefByUserID(ctx context.Context, userID string) (*HandymanRef, error) {
	if ref, ok := f.byUser[userID]; ok {
		return ref, nil
	}
	return nil, apperrors.NotFound("handyman profile not found")
}

func (f *fakeStore) CreateJob(ctx context.Context, j *Job) error {
	f.nextID++
	j.ID = fmt.Sprintf("job-%d", f.nextID)
	j.CreatedAt = time.Now()
	j.UpdatedAt = j.CreatedAt
	cp := *j
	f.jobs[j.ID] = &cp
	return nil
}

func (f *fakeStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if j, ok := f.jobs[jobID]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, apperrors.NotFound("job not found")
}

func (f *fakeStore) Accept(ctx context.Context, jobID, handymanID string, scheduledTime *time.Time) (*Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.HandymanID != handymanID || j.Status != StatusRequested {
		return nil, apperrors.NotFound("job not found or already handled")
	}
	j.Status = StatusAccepted
	j.ScheduledTime = scheduledTime
	cp := *j
	return &cp, nil
}

func (f *fakeStore) Reject(ctx context.Context, jobID, handymanID, reason string) (*Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.HandymanID != handymanID || j.Status != StatusRequested {
		return nil, apperrors.NotFound("job not found or already handled")
	}
	now := time.Now()
	j.Status = StatusRejected
	j.CancelledAt = &now
	j.CancelledBy = CancelledByHandyman
	j.CancellationReason = reason
	cp := *j
	return &cp, nil
}

func (f *fakeStore) CancelByCustomer(ctx context.Context, jobID, customerID, reason string) (*Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.CustomerID != customerID ||
		(j.Status != StatusRequested && j.Status != StatusAccepted) {
		return nil, apperrors.NotFound("job not found or cannot be cancelled")
	}
	now := time.Now()
	j.Status = StatusCancelled
	j.CancelledAt = &now
	j.CancelledBy = CancelledByCustomer
	j.CancellationReason = reason
	cp := *j
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, jobID, handymanID, target string, from []string) (*Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.HandymanID != handymanID {
		return nil, apperrors.NotFound("job not found or not in a valid state")
	}
	allowed := false
	for _, s := range from {
		if j.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.NotFound("job not found or not in a valid state")
	}
	now := time.Now()
	j.Status = target
	switch target {
	case StatusCompleted:
		j.CompletedAt = &now
	case StatusCancelled:
		j.CancelledAt = &now
		j.CancelledBy = CancelledByHandyman
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) IncrementTotalJobs(ctx context.Context, handymanID string) error {
	f.total[handymanID]++
	return nil
}

func (f *fakeStore) IncrementCompletedJobs(ctx context.Context, handymanID string) error {
	f.completed[handymanID]++
	return nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, p *Payment) error {
	f.payments = append(f.payments, *p)
	return nil
}

func (f *fakeStore) ListByCustomer(ctx context.Context, customerID, status string, limit int) ([]Job, error) {
	var out []Job
	for _, j := range f.jobs {
		if j.CustomerID == customerID && (status == "" || j.Status == status) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByHandyman(ctx context.Context, handymanID, status string, limit int) ([]Job, error) {
	var out []Job
	for _, j := range f.jobs {
		if j.HandymanID == handymanID && (status == "" || j.Status == status) {
			out = append(out, *j)
		}
	}
	return out, nil
}

type sentNotification struct {
	RecipientID string
	Type        string
	Title       string
	Message     string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, recipientID, ntype, title, message string, data map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{recipientID, ntype, title, message})
	return nil
}

func validInput() CreateInput {
	return CreateInput{
		HandymanID:  "hm-1",
		Category:    "plumbing",
		Description: "leaking kitchen sink",
		Location:    Location{Lng: 38.7578, Lat: 9.0054, Address: "Bole Road"},
		Price:       500,
	}
}

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	store.addHandyman("hm-1", "user-hm", true)
	notifier := &fakeNotifier{}
	return NewService(store, notifier, 10), store, notifier
}

func TestCreateFixesCommission(t *testing.T) {
	svc, _, notifier := newTestService()

	j, err := svc.Create(context.Background(), "cust-1", "Abel", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.Status != StatusRequested {
		t.Errorf("status = %q, want %q", j.Status, StatusRequested)
	}
	if j.Commission != 50 {
		t.Errorf("commission = %v, want 50", j.Commission)
	}
	if !strings.HasPrefix(j.JobCode, "JOB-") {
		t.Errorf("job code = %q, want JOB- prefix", j.JobCode)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].RecipientID != "user-hm" {
		t.Errorf("expected one notification to the handyman user, got %+v", notifier.sent)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing handyman", func(in *CreateInput) { in.HandymanID = "" }},
		{"zero price", func(in *CreateInput) { in.Price = 0 }},
		{"negative price", func(in *CreateInput) { in.Price = -1 }},
		{"bad coordinates", func(in *CreateInput) { in.Location.Lat = 91 }},
		{"missing address", func(in *CreateInput) { in.Location.Address = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), "cust-1", "Abel", in)
			if apperrors.KindOf(err) != apperrors.KindValidation {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCreateInactiveHandyman(t *testing.T) {
	svc, store, _ := newTestService()
	store.addHandyman("hm-2", "user-hm2", false)

	in := validInput()
	in.HandymanID = "hm-2"
	_, err := svc.Create(context.Background(), "cust-1", "Abel", in)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestAccept(t *testing.T) {
	svc, store, notifier := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())
	notifier.sent = nil

	got, err := svc.Accept(context.Background(), "user-hm", "Bekele", j.ID, nil)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Errorf("status = %q, want %q", got.Status, StatusAccepted)
	}
	if store.total["hm-1"] != 1 {
		t.Errorf("total jobs = %d, want 1", store.total["hm-1"])
	}
	if len(notifier.sent) != 1 || notifier.sent[0].RecipientID != "cust-1" {
		t.Errorf("expected one notification to the customer, got %+v", notifier.sent)
	}

	// second accept loses the conditional update
	_, err = svc.Accept(context.Background(), "user-hm", "Bekele", j.ID, nil)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("second accept err = %v, want not found", err)
	}
	if store.total["hm-1"] != 1 {
		t.Errorf("total jobs after losing accept = %d, want 1", store.total["hm-1"])
	}
}

func TestRejectIsTerminal(t *testing.T) {
	svc, store, _ := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())

	got, err := svc.Reject(context.Background(), "user-hm", "Bekele", j.ID, "too far")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != StatusRejected {
		t.Errorf("status = %q, want %q", got.Status, StatusRejected)
	}
	if got.CancelledAt == nil || got.CancellationReason != "too far" {
		t.Errorf("expected cancellation stamp and reason, got %+v", got)
	}

	// nothing leaves rejected
	if _, err := svc.Accept(context.Background(), "user-hm", "Bekele", j.ID, nil); err == nil {
		t.Error("accept after reject should fail")
	}
	if _, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, StatusOnTheWay); err == nil {
		t.Error("status update after reject should fail")
	}
	if store.jobs[j.ID].Status != StatusRejected {
		t.Errorf("stored status = %q, want %q", store.jobs[j.ID].Status, StatusRejected)
	}
}

func TestCancelByCustomer(t *testing.T) {
	svc, _, notifier := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())
	notifier.sent = nil

	got, err := svc.Cancel(context.Background(), "cust-1", "Abel", j.ID, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCancelled || got.CancelledBy != CancelledByCustomer {
		t.Errorf("got status=%q cancelled_by=%q", got.Status, got.CancelledBy)
	}
	if got.CancellationReason != "Not specified" {
		t.Errorf("reason = %q, want default", got.CancellationReason)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].RecipientID != "user-hm" {
		t.Errorf("expected one notification to the handyman user, got %+v", notifier.sent)
	}
}

func TestCancelAfterWorkStarted(t *testing.T) {
	svc, _, _ := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())
	if _, err := svc.Accept(context.Background(), "user-hm", "Bekele", j.ID, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, StatusInProgress); err != nil {
		t.Fatalf("in_progress: %v", err)
	}

	_, err := svc.Cancel(context.Background(), "cust-1", "Abel", j.ID, "changed my mind")
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	svc, _, _ := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())
	if _, err := svc.Accept(context.Background(), "user-hm", "Bekele", j.ID, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, StatusCompleted)
	if apperrors.KindOf(err) != apperrors.KindInvalidState {
		t.Errorf("err = %v, want invalid state", err)
	}
}

func TestCompleteCreatesPayment(t *testing.T) {
	svc, store, _ := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())
	if _, err := svc.Accept(context.Background(), "user-hm", "Bekele", j.ID, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, StatusOnTheWay); err != nil {
		t.Fatalf("on_the_way: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, StatusInProgress); err != nil {
		t.Fatalf("in_progress: %v", err)
	}

	got, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if store.completed["hm-1"] != 1 {
		t.Errorf("completed jobs = %d, want 1", store.completed["hm-1"])
	}
	if len(store.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(store.payments))
	}
	p := store.payments[0]
	if p.Amount != 500 || p.Commission != 50 || p.HandymanEarning != 450 {
		t.Errorf("payment split = %+v, want 500/50/450", p)
	}
	if p.Status != PaymentPending || p.PaymentMethod != MethodCash {
		t.Errorf("payment status/method = %q/%q", p.Status, p.PaymentMethod)
	}

	// repeat completion fails and does not add a second payment
	if _, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, StatusCompleted); err == nil {
		t.Error("second completion should fail")
	}
	if len(store.payments) != 1 {
		t.Errorf("payments after repeat = %d, want 1", len(store.payments))
	}
}

func TestUpdateStatusOwnership(t *testing.T) {
	svc, store, _ := newTestService()
	store.addHandyman("hm-2", "user-other", true)
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())

	_, err := svc.UpdateStatus(context.Background(), "user-other", "Chala", j.ID, StatusOnTheWay)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestUpdateStatusInvalidTarget(t *testing.T) {
	svc, _, _ := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())

	_, err := svc.UpdateStatus(context.Background(), "user-hm", "Bekele", j.ID, "requested")
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	store := newFakeStore()
	store.addHandyman("hm-1", "user-hm", true)
	notifier := &fakeNotifier{err: errors.New("sink down")}
	svc := NewService(store, notifier, 10)

	j, err := svc.Create(context.Background(), "cust-1", "Abel", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Accept(context.Background(), "user-hm", "Bekele", j.ID, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}
}

func TestGetGatedToParticipants(t *testing.T) {
	svc, _, _ := newTestService()
	j, _ := svc.Create(context.Background(), "cust-1", "Abel", validInput())

	if _, err := svc.Get(context.Background(), "cust-1", "customer", j.ID); err != nil {
		t.Errorf("customer get: %v", err)
	}
	if _, err := svc.Get(context.Background(), "user-hm", "handyman", j.ID); err != nil {
		t.Errorf("handyman get: %v", err)
	}
	if _, err := svc.Get(context.Background(), "someone", "admin", j.ID); err != nil {
		t.Errorf("admin get: %v", err)
	}
	if _, err := svc.Get(context.Background(), "stranger", "customer", j.ID); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Errorf("stranger get err = %v, want forbidden", err)
	}
}

func TestListStatusFilterValidation(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.ListCustomerJobs(context.Background(), "cust-1", "bogus"); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("err = %v, want validation error", err)
	}
	if _, err := svc.ListCustomerJobs(context.Background(), "cust-1", StatusRejected); err != nil {
		t.Errorf("rejected filter: %v", err)
	}
}
