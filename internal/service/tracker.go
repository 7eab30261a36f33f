package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"streak-keeper/internal/model"
	"streak-keeper/internal/streak"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrEmptyName        = errors.New("category name is required")
)

// Store is the persistence collaborator: Load returns the full ordered
// collection, Save replaces it as a whole.
type Store interface {
	Load(ctx context.Context) ([]model.Category, error)
	Save(ctx context.Context, categories []model.Category) error
}

// SeedMarker is implemented by stores that can tell a first run apart from
// a collection the user has emptied.
type SeedMarker interface {
	Seeded(ctx context.Context) (bool, error)
	MarkSeeded(ctx context.Context) error
}

// Tracker owns the in-memory category collection and is its only writer.
// Every mutation is serialised under one lock and persisted before it
// becomes visible; events are delivered to subscribers after the lock is
// released.
type Tracker struct {
	store Store
	log   *slog.Logger
	now   func() time.Time

	mu         sync.Mutex
	categories []model.Category

	hookMu      sync.RWMutex
	notifier    Notifier
	subscribers []func(streak.Event)
	onChange    []func()
}

// TrackerOption customises a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithNotifier sets where CRUD confirmations are sent.
func WithNotifier(n Notifier) TrackerOption {
	return func(t *Tracker) { t.notifier = n }
}

func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.log = l }
}

func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:    store,
		notifier: NopNotifier{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now is the tracker's notion of the current instant.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// SetNotifier replaces the CRUD notifier, e.g. once the bot is connected.
func (t *Tracker) SetNotifier(n Notifier) {
	t.hookMu.Lock()
	defer t.hookMu.Unlock()
	t.notifier = n
}

// Subscribe registers fn for every engine event.
func (t *Tracker) Subscribe(fn func(streak.Event)) {
	t.hookMu.Lock()
	defer t.hookMu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

// OnChange registers fn for changes of the category set (create, delete, import).
func (t *Tracker) OnChange(fn func()) {
	t.hookMu.Lock()
	defer t.hookMu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// Load replaces the in-memory collection with the stored one.
func (t *Tracker) Load(ctx context.Context) error {
	loaded, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	categories := cleanCategories(loaded, t.log)

	t.mu.Lock()
	t.categories = categories
	t.mu.Unlock()

	t.log.Info("categories loaded", "count", len(categories))
	return nil
}

// Seed fills the collection with the given names on the first run only. A
// store that implements SeedMarker decides what a first run is; otherwise an
// empty collection counts. It reports whether anything was added.
func (t *Tracker) Seed(ctx context.Context, names []string) (bool, error) {
	marker, hasMarker := t.store.(SeedMarker)
	if hasMarker {
		seeded, err := marker.Seeded(ctx)
		if err != nil {
			return false, fmt.Errorf("seed: %w", err)
		}
		if seeded {
			return false, nil
		}
	}

	next := make([]model.Category, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		next = append(next, model.Category{ID: nextID(next), Name: name})
	}

	t.mu.Lock()
	if len(t.categories) > 0 || len(next) == 0 {
		t.mu.Unlock()
		return false, t.markSeeded(ctx, marker, hasMarker)
	}
	if err := t.commit(ctx, next); err != nil {
		t.mu.Unlock()
		return false, err
	}
	t.mu.Unlock()

	if err := t.markSeeded(ctx, marker, hasMarker); err != nil {
		return true, err
	}
	t.log.Info("seeded default categories", "count", len(next))
	t.changed()
	return true, nil
}

func (t *Tracker) markSeeded(ctx context.Context, marker SeedMarker, ok bool) error {
	if !ok {
		return nil
	}
	if err := marker.MarkSeeded(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

// Categories returns a copy of the collection in stored order.
func (t *Tracker) Categories() []model.Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneCategories(t.categories)
}

// Get returns one category by id.
func (t *Tracker) Get(id uint) (model.Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := indexOf(t.categories, id)
	if idx < 0 {
		return model.Category{}, fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}
	return cloneCategory(t.categories[idx]), nil
}

// Complete records today's achievement for the category.
// A repeated completion on the same day returns the category unchanged.
func (t *Tracker) Complete(ctx context.Context, id uint) (model.Category, []streak.Event, error) {
	now := t.now()

	t.mu.Lock()
	idx := indexOf(t.categories, id)
	if idx < 0 {
		t.mu.Unlock()
		return model.Category{}, nil, fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}

	current := t.categories[idx]
	if streak.AchievedToday(current, now) {
		t.mu.Unlock()
		return cloneCategory(current), nil, nil
	}

	updated, events := streak.RecordCompletion(current, now)
	next := cloneCategories(t.categories)
	next[idx] = updated
	if err := t.commit(ctx, next); err != nil {
		t.mu.Unlock()
		return model.Category{}, nil, err
	}
	t.mu.Unlock()

	t.log.Info("completion recorded", "id", id, "streak", updated.Streak)
	t.publish(events)
	return cloneCategory(updated), events, nil
}

// CheckResets zeroes every category whose grace window has elapsed.
func (t *Tracker) CheckResets(ctx context.Context) ([]streak.Event, error) {
	now := t.now()

	t.mu.Lock()
	next := cloneCategories(t.categories)
	var events []streak.Event
	for i := range next {
		var emitted []streak.Event
		next[i], emitted = streak.CheckInactivityReset(next[i], now)
		events = append(events, emitted...)
	}
	if len(events) == 0 {
		t.mu.Unlock()
		return nil, nil
	}
	if err := t.commit(ctx, next); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	t.log.Info("inactive streaks reset", "count", len(events))
	t.publish(events)
	return events, nil
}

// Create adds a category with id = 1 + max existing id.
func (t *Tracker) Create(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, ErrEmptyName
	}

	t.mu.Lock()
	category := model.Category{ID: nextID(t.categories), Name: name}
	next := append(cloneCategories(t.categories), category)
	if err := t.commit(ctx, next); err != nil {
		t.mu.Unlock()
		return model.Category{}, err
	}
	t.mu.Unlock()

	t.log.Info("category created", "id", category.ID, "name", category.Name)
	t.notify("Категория добавлена", fmt.Sprintf("«%s» добавлена.", category.Name))
	t.changed()
	return category, nil
}

// Rename changes only the display name; the streak is untouched.
func (t *Tracker) Rename(ctx context.Context, id uint, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, ErrEmptyName
	}

	t.mu.Lock()
	idx := indexOf(t.categories, id)
	if idx < 0 {
		t.mu.Unlock()
		return model.Category{}, fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}
	next := cloneCategories(t.categories)
	next[idx].Name = name
	if err := t.commit(ctx, next); err != nil {
		t.mu.Unlock()
		return model.Category{}, err
	}
	updated := cloneCategory(next[idx])
	t.mu.Unlock()

	t.log.Info("category renamed", "id", id, "name", name)
	t.notify("Категория обновлена", fmt.Sprintf("Новое название: «%s».", name))
	return updated, nil
}

// Delete removes the category entirely.
func (t *Tracker) Delete(ctx context.Context, id uint) (model.Category, error) {
	t.mu.Lock()
	idx := indexOf(t.categories, id)
	if idx < 0 {
		t.mu.Unlock()
		return model.Category{}, fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}
	removed := cloneCategory(t.categories[idx])
	next := make([]model.Category, 0, len(t.categories)-1)
	next = append(next, t.categories[:idx]...)
	next = append(next, t.categories[idx+1:]...)
	if err := t.commit(ctx, cloneCategories(next)); err != nil {
		t.mu.Unlock()
		return model.Category{}, err
	}
	t.mu.Unlock()

	t.log.Info("category deleted", "id", id)
	t.notify("Категория удалена", fmt.Sprintf("«%s» удалена.", removed.Name))
	t.changed()
	return removed, nil
}

// Replace swaps the whole collection, e.g. on import. Records go through the
// same policy as Load.
func (t *Tracker) Replace(ctx context.Context, categories []model.Category) (int, error) {
	next := cleanCategories(categories, t.log)

	t.mu.Lock()
	if err := t.commit(ctx, next); err != nil {
		t.mu.Unlock()
		return 0, err
	}
	t.mu.Unlock()

	t.log.Info("categories replaced", "count", len(next))
	t.changed()
	return len(next), nil
}

// Stats summarises the collection as of now.
func (t *Tracker) Stats() streak.Stats {
	return streak.Summarize(t.Categories(), t.now())
}

// Milestones reports milestone progress for one category.
func (t *Tracker) Milestones(id uint) ([]streak.Progress, error) {
	c, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	return streak.MilestoneProgress(c.Streak), nil
}

// commit persists next and then swaps it in. Callers hold t.mu.
func (t *Tracker) commit(ctx context.Context, next []model.Category) error {
	if err := t.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	t.categories = next
	return nil
}

func (t *Tracker) publish(events []streak.Event) {
	if len(events) == 0 {
		return
	}
	t.hookMu.RLock()
	subs := append([]func(streak.Event){}, t.subscribers...)
	t.hookMu.RUnlock()

	for _, e := range events {
		for _, fn := range subs {
			fn(e)
		}
	}
}

func (t *Tracker) notify(title, message string) {
	t.hookMu.RLock()
	n := t.notifier
	t.hookMu.RUnlock()
	n.Notify(title, message)
}

func (t *Tracker) changed() {
	t.hookMu.RLock()
	hooks := append([]func(){}, t.onChange...)
	t.hookMu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// cleanCategories sanitises every record and drops those without an id,
// without a name, or repeating an id already seen.
func cleanCategories(in []model.Category, log *slog.Logger) []model.Category {
	out := make([]model.Category, 0, len(in))
	seen := make(map[uint]bool, len(in))
	for _, c := range in {
		clean, changed := streak.Sanitize(c)
		if clean.ID == 0 || clean.Name == "" || seen[clean.ID] {
			log.Warn("skipped invalid category", "id", c.ID, "name", c.Name)
			continue
		}
		if changed {
			log.Warn("reset corrupt category", "id", c.ID, "streak", c.Streak)
		}
		seen[clean.ID] = true
		out = append(out, cloneCategory(clean))
	}
	return out
}

func nextID(categories []model.Category) uint {
	var highest uint
	for _, c := range categories {
		if c.ID > highest {
			highest = c.ID
		}
	}
	return highest + 1
}

func indexOf(categories []model.Category, id uint) int {
	for i, c := range categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func cloneCategory(c model.Category) model.Category {
	if c.LastLogin != nil {
		at := *c.LastLogin
		c.LastLogin = &at
	}
	return c
}

func cloneCategories(categories []model.Category) []model.Category {
	out := make([]model.Category, len(categories))
	for i, c := range categories {
		out[i] = cloneCategory(c)
	}
	return out
}
