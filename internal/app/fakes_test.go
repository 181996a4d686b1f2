package app

import (
	"context"
	"sort"
	"sync"
	"time"

	domainAI "ai_post_scheduler/internal/domain/ai"
	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/post"
	"ai_post_scheduler/internal/domain/schedule"
	"ai_post_scheduler/internal/domain/template"
	"ai_post_scheduler/internal/domain/voice"
	idb "ai_post_scheduler/internal/infra/database"
	"ai_post_scheduler/internal/infra/events"
)

type fakeAI struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts []string
	opts    []domainAI.Options
}

// GenerateText answers by prompt prefix: "content", "title" or "excerpt".
func (f *fakeAI) GenerateText(_ context.Context, prompt string, opts domainAI.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	kind := promptKind(prompt)
	if err := f.errs[kind]; err != nil {
		return "", err
	}
	return f.replies[kind], nil
}

func promptKind(prompt string) string {
	switch {
	case len(prompt) >= len(defaultTitlePrefix) && prompt[:len(defaultTitlePrefix)] == defaultTitlePrefix:
		return "title"
	case len(prompt) >= len(excerptPrefix) && prompt[:len(excerptPrefix)] == excerptPrefix:
		return "excerpt"
	default:
		return "content"
	}
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeDispatcher) Dispatch(_ context.Context, e events.Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeDispatcher) types() []history.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []history.EventType
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakePosts struct {
	mu    sync.Mutex
	posts map[int64]*post.Post
	next  int64
	err   error
}

func newFakePosts() *fakePosts { return &fakePosts{posts: map[int64]*post.Post{}} }

func (f *fakePosts) Create(_ context.Context, p *post.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.next++
	p.ID = f.next
	cp := *p
	f.posts[p.ID] = &cp
	return nil
}

func (f *fakePosts) GetByID(_ context.Context, id int64) (*post.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, idb.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) List(_ context.Context, status post.Status, limit int) ([]*post.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*post.Post
	for _, p := range f.posts {
		if status == "" || p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePosts) ResolveDraft(_ context.Context, id int64, status post.Status, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || (p.Status != post.StatusDraft && p.Status != post.StatusPending) {
		return false, nil
	}
	p.Status = status
	if status == post.StatusPublish {
		p.PublishedAt.Time, p.PublishedAt.Valid = at, true
	}
	return true, nil
}

type fakeHistory struct {
	mu         sync.Mutex
	entries    map[int64]*history.Entry
	activities []*history.Activity
	next       int64
}

func newFakeHistory() *fakeHistory { return &fakeHistory{entries: map[int64]*history.Entry{}} }

func (f *fakeHistory) Create(_ context.Context, e *history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	e.ID = f.next
	cp := *e
	f.entries[e.ID] = &cp
	return nil
}

func (f *fakeHistory) Update(_ context.Context, e *history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[e.ID]; !ok {
		return idb.ErrHistoryNotFound
	}
	cp := *e
	f.entries[e.ID] = &cp
	return nil
}

func (f *fakeHistory) GetByID(_ context.Context, id int64) (*history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, idb.ErrHistoryNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeHistory) GetByUUID(_ context.Context, uuid string) (*history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.UUID == uuid {
			cp := *e
			return &cp, nil
		}
	}
	return nil, idb.ErrHistoryNotFound
}

func (f *fakeHistory) List(_ context.Context, filter history.Filter) (*history.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	filter = filter.Normalize()
	page := &history.Page{Page: filter.Page, PerPage: filter.PerPage}
	for _, e := range f.entries {
		if filter.Status == "" || e.Status == filter.Status {
			cp := *e
			page.Items = append(page.Items, &cp)
		}
	}
	page.Total = len(page.Items)
	page.Pages = (page.Total + filter.PerPage - 1) / filter.PerPage
	return page, nil
}

func (f *fakeHistory) RecordActivity(_ context.Context, a *history.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeHistory) ListActivity(_ context.Context, limit int) ([]*history.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activities, nil
}

func (f *fakeHistory) only() *history.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		return e
	}
	return nil
}

type fakeTemplates struct {
	templates map[int64]*template.Template
}

func (f *fakeTemplates) Create(_ context.Context, t *template.Template) error {
	t.ID = int64(len(f.templates) + 1)
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplates) GetByID(_ context.Context, id int64) (*template.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, idb.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplates) List(_ context.Context, activeOnly bool) ([]*template.Template, error) {
	var out []*template.Template
	for _, t := range f.templates {
		if !activeOnly || t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplates) Update(_ context.Context, t *template.Template) error {
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplates) Delete(_ context.Context, id int64) error {
	delete(f.templates, id)
	return nil
}

type fakeVoices struct {
	voices map[int64]*voice.Voice
}

func (f *fakeVoices) Create(_ context.Context, v *voice.Voice) error {
	v.ID = int64(len(f.voices) + 1)
	f.voices[v.ID] = v
	return nil
}

func (f *fakeVoices) GetByID(_ context.Context, id int64) (*voice.Voice, error) {
	v, ok := f.voices[id]
	if !ok {
		return nil, idb.ErrVoiceNotFound
	}
	return v, nil
}

func (f *fakeVoices) List(_ context.Context) ([]*voice.Voice, error) {
	var out []*voice.Voice
	for _, v := range f.voices {
		out = append(out, v)
	}
	return out, nil
}

// fakeSchedules keeps schedules in memory and implements the claim as a compare-and-set.
type fakeSchedules struct {
	mu        sync.Mutex
	schedules map[int64]*schedule.Schedule
	names     map[int64]string
	next      int64
	claimErr  error
	lastRuns  map[int64]time.Time
}

func newFakeSchedules() *fakeSchedules {
	return &fakeSchedules{
		schedules: map[int64]*schedule.Schedule{},
		names:     map[int64]string{},
		lastRuns:  map[int64]time.Time{},
	}
}

func (f *fakeSchedules) Create(_ context.Context, s *schedule.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	s.ID = f.next
	cp := *s
	f.schedules[s.ID] = &cp
	return nil
}

func (f *fakeSchedules) GetByID(_ context.Context, id int64) (*schedule.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, idb.ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSchedules) list(match func(*schedule.Schedule) bool, limit int) []*schedule.Due {
	var out []*schedule.Due
	for _, s := range f.schedules {
		if match(s) {
			out = append(out, &schedule.Due{Schedule: *s, TemplateName: f.names[s.TemplateID]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextRun.Equal(out[j].NextRun) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextRun.Before(out[j].NextRun)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeSchedules) ListAll(_ context.Context, activeOnly bool) ([]*schedule.Due, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(s *schedule.Schedule) bool { return !activeOnly || s.IsActive }, 0), nil
}

func (f *fakeSchedules) ListDue(_ context.Context, now time.Time, limit int) ([]*schedule.Due, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(s *schedule.Schedule) bool { return s.IsActive && !s.NextRun.After(now) }, limit), nil
}

func (f *fakeSchedules) ListUpcoming(_ context.Context, now time.Time, limit int) ([]*schedule.Due, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(s *schedule.Schedule) bool { return s.IsActive && s.NextRun.After(now) }, limit), nil
}

func (f *fakeSchedules) Update(_ context.Context, s *schedule.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.schedules[s.ID]; !ok {
		return idb.ErrScheduleNotFound
	}
	cp := *s
	f.schedules[s.ID] = &cp
	return nil
}

func (f *fakeSchedules) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.schedules[id]; !ok {
		return idb.ErrScheduleNotFound
	}
	delete(f.schedules, id)
	return nil
}

func (f *fakeSchedules) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return idb.ErrScheduleNotFound
	}
	s.IsActive = active
	s.Status = schedule.StatusActive
	return nil
}

func (f *fakeSchedules) UpdateLastRun(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return idb.ErrScheduleNotFound
	}
	s.LastRun.Time, s.LastRun.Valid = at, true
	f.lastRuns[id] = at
	return nil
}

func (f *fakeSchedules) ClaimNextRun(_ context.Context, id int64, old, next time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	s, ok := f.schedules[id]
	if !ok || !s.NextRun.Equal(old) {
		return false, nil
	}
	s.NextRun = next
	return true, nil
}

func (f *fakeSchedules) MarkFailed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return idb.ErrScheduleNotFound
	}
	s.IsActive = false
	s.Status = schedule.StatusFailed
	return nil
}

func (f *fakeSchedules) get(id int64) *schedule.Schedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schedules[id]
}
