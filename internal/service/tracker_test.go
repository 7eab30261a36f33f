package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streak-keeper/internal/model"
	"streak-keeper/internal/streak"
)

type memStore struct {
	mu      sync.Mutex
	saved   []model.Category
	saves   int
	failErr error
}

func (s *memStore) Load(context.Context) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCategories(s.saved), nil
}

func (s *memStore) Save(_ context.Context, categories []model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.saved = cloneCategories(categories)
	s.saves++
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var local = time.FixedZone("MSK", 3*60*60)

func day(d, hour int) time.Time {
	return time.Date(2024, time.January, d, hour, 0, 0, 0, local)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTracker(t *testing.T, initial ...model.Category) (*Tracker, *memStore, *fakeClock, *recordingNotifier) {
	t.Helper()
	store := &memStore{saved: initial}
	clock := &fakeClock{now: day(10, 12)}
	notifier := &recordingNotifier{}
	tracker := NewTracker(store, WithClock(clock.Now), WithNotifier(notifier), WithLogger(quiet()))
	require.NoError(t, tracker.Load(context.Background()))
	return tracker, store, clock, notifier
}

func TestTracker_LoadSanitizes(t *testing.T) {
	logged := day(9, 10)
	tracker, _, _, _ := newTestTracker(t,
		model.Category{ID: 1, Name: "Учёба", Streak: 2, LastLogin: &logged},
		model.Category{ID: 2, Name: "Спорт", Streak: -5, LastLogin: &logged},
	)

	got := tracker.Categories()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Streak)
	assert.Zero(t, got[1].Streak)
	assert.Nil(t, got[1].LastLogin)
}

func TestTracker_LoadSkipsInvalidRecords(t *testing.T) {
	tracker, _, _, _ := newTestTracker(t,
		model.Category{ID: 0, Name: "без id", Streak: 1},
		model.Category{ID: 1, Name: "Учёба", Streak: 4, LastLogin: &time.Time{}},
		model.Category{ID: 1, Name: "дубль"},
		model.Category{ID: 3, Name: "  "},
		model.Category{ID: 4, Name: "Спорт"},
	)

	got := tracker.Categories()
	require.Len(t, got, 2)
	assert.Equal(t, "Учёба", got[0].Name)
	assert.Zero(t, got[0].Streak)
	assert.Nil(t, got[0].LastLogin)
	assert.Equal(t, uint(4), got[1].ID)
}

func TestTracker_CompleteFlow(t *testing.T) {
	tracker, store, clock, _ := newTestTracker(t, model.Category{ID: 1, Name: "Спорт"})
	ctx := context.Background()

	var received []streak.Event
	tracker.Subscribe(func(e streak.Event) { received = append(received, e) })

	for d := 1; d <= 7; d++ {
		clock.Set(day(d, 20))
		c, _, err := tracker.Complete(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, d, c.Streak)
	}
	require.Len(t, received, 1)
	assert.Equal(t, streak.MilestoneReached{CategoryID: 1, CategoryName: "Спорт", Days: 7}, received[0])

	saves := store.saves
	clock.Set(day(7, 23))
	c, events, err := tracker.Complete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Streak)
	assert.Empty(t, events)
	assert.Equal(t, saves, store.saves, "same-day completion must not write")
	assert.Len(t, received, 1)
}

func TestTracker_CompleteUnknown(t *testing.T) {
	tracker, _, _, _ := newTestTracker(t)

	_, _, err := tracker.Complete(context.Background(), 42)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestTracker_SaveFailureKeepsState(t *testing.T) {
	tracker, store, _, _ := newTestTracker(t, model.Category{ID: 1, Name: "Спорт"})
	store.failErr = errors.New("disk full")

	_, _, err := tracker.Complete(context.Background(), 1)
	require.Error(t, err)

	c, err := tracker.Get(1)
	require.NoError(t, err)
	assert.Zero(t, c.Streak)
	assert.Nil(t, c.LastLogin)
}

func TestTracker_CheckResets(t *testing.T) {
	recent := day(9, 23)
	stale := day(8, 8)
	tracker, store, clock, _ := newTestTracker(t,
		model.Category{ID: 1, Name: "Учёба", Streak: 4, LastLogin: &recent},
		model.Category{ID: 2, Name: "Спорт", Streak: 9, LastLogin: &stale},
		model.Category{ID: 3, Name: "Чтение"},
	)
	var resets []streak.Event
	tracker.Subscribe(func(e streak.Event) { resets = append(resets, e) })

	clock.Set(day(10, 0))
	events, err := tracker.CheckResets(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, streak.ResetOccurred{CategoryID: 2, CategoryName: "Спорт", PreviousStreak: 9}, events[0])
	assert.Equal(t, events, resets)

	got := tracker.Categories()
	assert.Equal(t, 4, got[0].Streak)
	assert.Zero(t, got[1].Streak)
	assert.Nil(t, got[1].LastLogin)
	assert.Nil(t, store.saved[1].LastLogin)

	saves := store.saves
	events, err = tracker.CheckResets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, saves, store.saves)
}

func TestTracker_CRUD(t *testing.T) {
	tracker, store, _, notifier := newTestTracker(t)
	ctx := context.Background()
	changes := 0
	tracker.OnChange(func() { changes++ })

	a, err := tracker.Create(ctx, "  Учёба ")
	require.NoError(t, err)
	assert.Equal(t, uint(1), a.ID)
	assert.Equal(t, "Учёба", a.Name)

	b, err := tracker.Create(ctx, "Спорт")
	require.NoError(t, err)
	assert.Equal(t, uint(2), b.ID)

	_, err = tracker.Create(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = tracker.Delete(ctx, 1)
	require.NoError(t, err)

	c, err := tracker.Create(ctx, "Чтение")
	require.NoError(t, err)
	assert.Equal(t, uint(3), c.ID, "ids come from the max, not the count")

	renamed, err := tracker.Rename(ctx, 2, " Бег ")
	require.NoError(t, err)
	assert.Equal(t, "Бег", renamed.Name)

	_, err = tracker.Rename(ctx, 2, "")
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = tracker.Rename(ctx, 99, "x")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	_, err = tracker.Delete(ctx, 99)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	require.Len(t, store.saved, 2)
	assert.Equal(t, "Бег", store.saved[0].Name)
	assert.Equal(t, 4, changes)
	assert.Equal(t, []string{
		"Категория добавлена", "Категория добавлена", "Категория удалена",
		"Категория добавлена", "Категория обновлена",
	}, notifier.titles)
}

func TestTracker_CreateAfterDeletingAll(t *testing.T) {
	tracker, _, _, _ := newTestTracker(t, model.Category{ID: 4, Name: "x"})
	ctx := context.Background()

	_, err := tracker.Delete(ctx, 4)
	require.NoError(t, err)
	c, err := tracker.Create(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, uint(1), c.ID)
}

func TestTracker_RenameKeepsStreak(t *testing.T) {
	logged := day(10, 8)
	tracker, _, _, _ := newTestTracker(t, model.Category{ID: 1, Name: "a", Streak: 5, LastLogin: &logged})

	c, err := tracker.Rename(context.Background(), 1, "b")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Streak)
	require.NotNil(t, c.LastLogin)
}

func TestTracker_Seed(t *testing.T) {
	tracker, store, _, _ := newTestTracker(t)
	ctx := context.Background()

	seeded, err := tracker.Seed(ctx, []string{"Учёба", " ", "Спорт"})
	require.NoError(t, err)
	assert.True(t, seeded)
	require.Len(t, store.saved, 2)
	assert.Equal(t, uint(2), store.saved[1].ID)

	seeded, err = tracker.Seed(ctx, []string{"Чтение"})
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Len(t, tracker.Categories(), 2)
}

func TestTracker_SeedBlankNames(t *testing.T) {
	tracker, store, _, _ := newTestTracker(t)
	changes := 0
	tracker.OnChange(func() { changes++ })

	seeded, err := tracker.Seed(context.Background(), []string{" ", "", "\t"})
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Zero(t, store.saves)
	assert.Zero(t, changes)
	assert.Empty(t, tracker.Categories())
}

func TestTracker_Replace(t *testing.T) {
	tracker, store, _, _ := newTestTracker(t, model.Category{ID: 1, Name: "old"})
	logged := day(10, 9)

	n, err := tracker.Replace(context.Background(), []model.Category{
		{ID: 3, Name: "Код", Streak: 2, LastLogin: &logged},
		{ID: 3, Name: "dup"},
		{ID: 0, Name: "no id"},
		{ID: 4, Name: " "},
		{ID: 5, Name: "Йога", Streak: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := tracker.Categories()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Streak)
	assert.Zero(t, got[1].Streak, "streak without login is reset")
	assert.Len(t, store.saved, 2)
}

func TestTracker_StatsAndMilestones(t *testing.T) {
	yesterday := day(9, 9)
	today := day(10, 9)
	tracker, _, _, _ := newTestTracker(t,
		model.Category{ID: 1, Name: "a", Streak: 3, LastLogin: &yesterday},
		model.Category{ID: 2, Name: "b"},
		model.Category{ID: 3, Name: "c", Streak: 12, LastLogin: &today},
	)

	assert.Equal(t, streak.Stats{Total: 15, Max: 12, ActiveToday: 1, Count: 3}, tracker.Stats())

	progress, err := tracker.Milestones(3)
	require.NoError(t, err)
	require.Len(t, progress, 4)
	assert.True(t, progress[0].Achieved)
	assert.Equal(t, 40, progress[1].Percent)

	_, err = tracker.Milestones(9)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestTracker_CategoriesIsCopy(t *testing.T) {
	logged := day(10, 9)
	tracker, _, _, _ := newTestTracker(t, model.Category{ID: 1, Name: "a", Streak: 1, LastLogin: &logged})

	got := tracker.Categories()
	got[0].Name = "changed"
	*got[0].LastLogin = day(1, 1)

	again := tracker.Categories()
	assert.Equal(t, "a", again[0].Name)
	assert.True(t, again[0].LastLogin.Equal(logged))
}

func TestTracker_ConcurrentCompletions(t *testing.T) {
	tracker, store, _, _ := newTestTracker(t, model.Category{ID: 1, Name: "a"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := tracker.Complete(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := tracker.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Streak)
	assert.Equal(t, 1, store.saves)
}

func TestTracker_SetNotifier(t *testing.T) {
	tracker, _, _, first := newTestTracker(t)
	second := &recordingNotifier{}
	tracker.SetNotifier(second)

	_, err := tracker.Create(context.Background(), "Бег")
	require.NoError(t, err)

	assert.Empty(t, first.titles)
	assert.Equal(t, []string{"Категория добавлена"}, second.titles)
}
