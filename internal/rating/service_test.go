package rating

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abenezer-sh/fixit/internal/apperrors"
)

type fakeStore struct {
	jobs       map[string]*JobRef
	ratings    []Rating
	handymen   map[string]string // profile id -> user id
	aggregates map[string][2]float64
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:       make(map[string]*JobRef),
		handymen:   make(map[string]string),
		aggregates: make(map[string][2]float64),
	}
}

func (f *fakeStore) addCompletedJob(id string) *JobRef {
	j := &JobRef{ID: id, CustomerID: "cust-1", HandymanID: "hm-1", Category: "plumbing", Status: "completed"}
	f.jobs[id] = j
	f.handymen["hm-1"] = "user-hm"
	return j
}

func (f *fakeStore) GetJob(ctx context.Context, jobID string) (*JobRef, error) {
	if j, ok := f.jobs[jobID]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, apperrors.NotFound("job not found")
}

func (f *fakeStore) CreateRating(ctx context.Context, r *Rating) error {
	for _, existing := range f.ratings {
		if existing.JobID == r.JobID {
			return apperrors.Conflict("job already rated")
		}
	}
	f.nextID++
	r.ID = fmt.Sprintf("rating-%d", f.nextID)
	r.CreatedAt = time.Now()
	f.ratings = append(f.ratings, *r)
	return nil
}

func (f *fakeStore) SetJobRating(ctx context.Context, jobID, ratingID string) error {
	if j, ok := f.jobs[jobID]; ok {
		j.RatingID = ratingID
	}
	return nil
}

func (f *fakeStore) HandymanRatingStats(ctx context.Context, handymanID string) (float64, int, error) {
	var sum float64
	var count int
	for _, r := range f.ratings {
		if r.HandymanID == handymanID {
			sum += float64(r.Rating)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return sum / float64(count), count, nil
}

func (f *fakeStore) UpdateHandymanRating(ctx context.Context, handymanID string, average float64, count int) error {
	f.aggregates[handymanID] = [2]float64{average, float64(count)}
	return nil
}

func (f *fakeStore) GetHandymanUserID(ctx context.Context, handymanID string) (string, error) {
	if userID, ok := f.handymen[handymanID]; ok {
		return userID, nil
	}
	return "", apperrors.NotFound("handyman not found")
}

func (f *fakeStore) ListByHandyman(ctx context.Context, handymanID string, limit int) ([]Rating, error) {
	var out []Rating
	for _, r := range f.ratings {
		if r.HandymanID == handymanID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	sent []string // recipient ids
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, recipientID, ntype, title, message string, data map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipientID)
	return nil
}

func TestCreateRating(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier)

	r, err := svc.Create(context.Background(), "cust-1", "Abel", "job-1", 4, "  solid work  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Comment != "solid work" {
		t.Errorf("comment = %q, want trimmed", r.Comment)
	}
	if store.jobs["job-1"].RatingID != r.ID {
		t.Errorf("job rating link = %q, want %q", store.jobs["job-1"].RatingID, r.ID)
	}
	agg := store.aggregates["hm-1"]
	if agg[0] != 4 || agg[1] != 1 {
		t.Errorf("aggregate = %v, want [4 1]", agg)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "user-hm" {
		t.Errorf("expected one notification to user-hm, got %v", notifier.sent)
	}
}

func TestCreateRatingGates(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	store.jobs["job-2"] = &JobRef{ID: "job-2", CustomerID: "cust-1", HandymanID: "hm-1", Category: "plumbing", Status: "in_progress"}
	svc := NewService(store, &fakeNotifier{})

	cases := []struct {
		name     string
		customer string
		jobID    string
		value    int
		comment  string
		want     apperrors.Kind
	}{
		{"value too low", "cust-1", "job-1", 0, "", apperrors.KindValidation},
		{"value too high", "cust-1", "job-1", 6, "", apperrors.KindValidation},
		{"comment too long", "cust-1", "job-1", 4, strings.Repeat("x", 501), apperrors.KindValidation},
		{"not the customer", "cust-2", "job-1", 4, "", apperrors.KindForbidden},
		{"job not completed", "cust-1", "job-2", 4, "", apperrors.KindInvalidState},
		{"job missing", "cust-1", "job-9", 4, "", apperrors.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.customer, "Abel", tc.jobID, tc.value, tc.comment)
			if apperrors.KindOf(err) != tc.want {
				t.Errorf("err = %v, want kind %v", err, tc.want)
			}
		})
	}
}

func TestCreateRatingOnce(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	svc := NewService(store, &fakeNotifier{})

	if _, err := svc.Create(context.Background(), "cust-1", "Abel", "job-1", 5, ""); err != nil {
		t.Fatalf("first rating: %v", err)
	}
	_, err := svc.Create(context.Background(), "cust-1", "Abel", "job-1", 3, "")
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("second rating err = %v, want conflict", err)
	}
	if len(store.ratings) != 1 {
		t.Errorf("ratings = %d, want 1", len(store.ratings))
	}
}

func TestAverageRoundedToTwoDecimals(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier)

	values := []int{5, 4, 4} // mean 4.333... -> 4.33
	for i, v := range values {
		jobID := fmt.Sprintf("job-%d", i)
		store.addCompletedJob(jobID)
		if _, err := svc.Create(context.Background(), "cust-1", "Abel", jobID, v, ""); err != nil {
			t.Fatalf("rating %d: %v", i, err)
		}
	}

	agg := store.aggregates["hm-1"]
	if agg[0] != 4.33 {
		t.Errorf("average = %v, want 4.33", agg[0])
	}
	if agg[1] != 3 {
		t.Errorf("count = %v, want 3", agg[1])
	}
}

func TestNotifierFailureDoesNotFailRating(t *testing.T) {
	store := newFakeStore()
	store.addCompletedJob("job-1")
	svc := NewService(store, &fakeNotifier{err: fmt.Errorf("sink down")})

	if _, err := svc.Create(context.Background(), "cust-1", "Abel", "job-1", 5, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
}
