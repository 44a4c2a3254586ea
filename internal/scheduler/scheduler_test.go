package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

// stubRepo implements store.Repo in memory for job tests.
type stubRepo struct {
	users    []domain.User
	checks   map[string]*domain.ScheduledCheck
	replaced map[int64][]time.Time
	weekly   map[int64]*domain.WeeklySummary

	markErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		checks:   map[string]*domain.ScheduledCheck{},
		replaced: map[int64][]time.Time{},
		weekly:   map[int64]*domain.WeeklySummary{},
	}
}

func (s *stubRepo) addCheck(id string, userID int64, at time.Time) {
	s.checks[id] = &domain.ScheduledCheck{ID: id, UserID: userID, ScheduledAt: at}
}

func (s *stubRepo) CreateUser(context.Context, *domain.User) error { return nil }
func (s *stubRepo) GetUser(context.Context, int64) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (s *stubRepo) ListUsers(context.Context) ([]domain.User, error) { return s.users, nil }
func (s *stubRepo) UpdateTimezone(context.Context, int64, int) error { return nil }
func (s *stubRepo) UpdateWindow(context.Context, int64, int, int, int) error {
	return nil
}
func (s *stubRepo) CompleteOnboarding(context.Context, int64) error  { return nil }
func (s *stubRepo) InsertEntry(context.Context, *domain.Entry) error { return nil }
func (s *stubRepo) ListEntries(context.Context, int64, int, int) ([]domain.Entry, error) {
	return nil, nil
}
func (s *stubRepo) CountEntries(context.Context, int64) (int, error)       { return 0, nil }
func (s *stubRepo) EntryTimes(context.Context, int64) ([]time.Time, error) { return nil, nil }
func (s *stubRepo) EmotionStats(context.Context, int64) (*domain.Stats, error) {
	return &domain.Stats{}, nil
}
func (s *stubRepo) WeeklySummary(_ context.Context, userID int64, _ time.Time) (*domain.WeeklySummary, error) {
	if w, ok := s.weekly[userID]; ok {
		return w, nil
	}
	return &domain.WeeklySummary{}, nil
}
func (s *stubRepo) ReplaceChecks(_ context.Context, userID int64, times []time.Time) error {
	s.replaced[userID] = times
	return nil
}
func (s *stubRepo) AddCheck(context.Context, int64, time.Time) error { return nil }
func (s *stubRepo) DueChecks(_ context.Context, now time.Time) ([]domain.ScheduledCheck, error) {
	var res []domain.ScheduledCheck
	for _, c := range s.checks {
		if !c.Sent && !c.ScheduledAt.After(now) {
			res = append(res, *c)
		}
	}
	return res, nil
}
func (s *stubRepo) MarkCheckSent(_ context.Context, id string) error {
	if s.markErr != nil {
		return s.markErr
	}
	if c, ok := s.checks[id]; ok {
		c.Sent = true
	}
	return nil
}
func (s *stubRepo) SkipChecksBetween(context.Context, int64, time.Time, time.Time) error {
	return nil
}
func (s *stubRepo) UnsentChecks(context.Context, int64) ([]domain.ScheduledCheck, error) {
	return nil, nil
}
func (s *stubRepo) Close() error { return nil }

type stubNotifier struct {
	checkIns []int64
	digests  map[int64]string
	fail     map[int64]error
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{digests: map[int64]string{}, fail: map[int64]error{}}
}

func (n *stubNotifier) SendCheckIn(_ context.Context, userID int64) error {
	if err := n.fail[userID]; err != nil {
		return err
	}
	n.checkIns = append(n.checkIns, userID)
	return nil
}

func (n *stubNotifier) SendDigest(_ context.Context, userID int64, text string) error {
	if err := n.fail[userID]; err != nil {
		return err
	}
	n.digests[userID] = text
	return nil
}

func TestDispatchDeduplicatesPerUser(t *testing.T) {
	repo := newStubRepo()
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo.addCheck("a", 1, now.Add(-2*time.Minute))
	repo.addCheck("b", 1, now.Add(-time.Minute))
	repo.addCheck("c", 2, now.Add(-time.Minute))

	notifier := newStubNotifier()
	d := NewDispatcher(repo, zap.NewNop(), notifier, nil, time.Minute)
	d.now = func() time.Time { return now }

	d.tick(context.Background())

	perUser := map[int64]int{}
	for _, id := range notifier.checkIns {
		perUser[id]++
	}
	if perUser[1] != 1 || perUser[2] != 1 {
		t.Fatalf("want exactly one prompt per user, got %v", perUser)
	}
	for id, c := range repo.checks {
		if !c.Sent {
			t.Errorf("check %s left unsent", id)
		}
	}
}

func TestDispatchDeliveryFailureStillConsumesCheck(t *testing.T) {
	repo := newStubRepo()
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo.addCheck("a", 1, now.Add(-time.Minute))
	repo.addCheck("b", 2, now.Add(-time.Minute))

	notifier := newStubNotifier()
	notifier.fail[1] = errors.New("blocked by user")

	d := NewDispatcher(repo, zap.NewNop(), notifier, nil, time.Minute)
	d.now = func() time.Time { return now }
	d.tick(context.Background())

	if !repo.checks["a"].Sent {
		t.Error("failed delivery must still consume the check")
	}
	// The pass carries on to other users.
	if len(notifier.checkIns) != 1 || notifier.checkIns[0] != 2 {
		t.Fatalf("want user 2 notified despite user 1 failure, got %v", notifier.checkIns)
	}
}

func TestDispatchSkipsCheckWhenMarkFails(t *testing.T) {
	repo := newStubRepo()
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo.addCheck("a", 1, now.Add(-time.Minute))
	repo.markErr = errors.New("db locked")

	notifier := newStubNotifier()
	d := NewDispatcher(repo, zap.NewNop(), notifier, nil, time.Minute)
	d.now = func() time.Time { return now }
	d.tick(context.Background())

	// Never notify a check we could not consume: it would fire again
	// next pass and the user would be pinged twice.
	if len(notifier.checkIns) != 0 {
		t.Fatalf("want no notifications, got %v", notifier.checkIns)
	}
}

func TestResupplierReplacesAllValidUsers(t *testing.T) {
	repo := newStubRepo()
	repo.users = []domain.User{
		{ID: 1, TZOffset: 3, CheckStartHour: 9, CheckEndHour: 22, ChecksPerDay: 4},
		{ID: 2, TZOffset: 0, CheckStartHour: 22, CheckEndHour: 9, ChecksPerDay: 4}, // inverted window
	}

	r := NewResupplier(repo, zap.NewNop(), 0, rand.New(rand.NewSource(1)))
	r.RunOnce(context.Background())

	if got := len(repo.replaced[1]); got != 4 {
		t.Fatalf("user 1: want 4 checks, got %d", got)
	}
	if _, ok := repo.replaced[2]; ok {
		t.Fatal("invalid window must never reach the generator")
	}
}

func TestDigesterSkipsEmptyWeeks(t *testing.T) {
	repo := newStubRepo()
	repo.users = []domain.User{{ID: 1}, {ID: 2}}
	repo.weekly[1] = &domain.WeeklySummary{Total: 3, DaysWithEntries: 2}

	notifier := newStubNotifier()
	d := NewDigester(repo, zap.NewNop(), notifier, nil, time.Sunday, 20)
	d.runOnce(context.Background())

	if _, ok := notifier.digests[1]; !ok {
		t.Error("user with entries got no digest")
	}
	if _, ok := notifier.digests[2]; ok {
		t.Error("user without entries got a digest")
	}
}

func TestNextDaily(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 30, 0, 0, time.UTC)
	if got := nextDaily(now, 0); !got.Equal(time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("want next midnight, got %v", got)
	}
	if got := nextDaily(now, 13); !got.Equal(time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("want 13:00 today, got %v", got)
	}
	// Exactly on the boundary rolls forward, never fires twice.
	onBoundary := time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC)
	if got := nextDaily(onBoundary, 13); !got.Equal(onBoundary.AddDate(0, 0, 1)) {
		t.Fatalf("want tomorrow 13:00, got %v", got)
	}
}

func TestNextWeekly(t *testing.T) {
	// Monday 2025-03-10.
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	got := nextWeekly(now, time.Sunday, 20)
	want := time.Date(2025, time.March, 16, 20, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if got.Weekday() != time.Sunday {
		t.Fatalf("want Sunday, got %v", got.Weekday())
	}
}
