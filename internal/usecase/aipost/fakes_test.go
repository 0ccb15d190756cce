package aipost

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	"world-builder/internal/infra/clock"
	"world-builder/internal/usecase/pipeline"
)

// scriptedRand отдаёт заранее заданные значения, потом нули.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

type memDiary struct {
	posts []domain.DiaryPost
}

func (m *memDiary) ListDiaryPosts(_ context.Context, from, to time.Time) ([]domain.DiaryPost, error) {
	var out []domain.DiaryPost
	for _, p := range m.posts {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memDiary) ListOwnerDiaryPosts(context.Context, string, time.Time, time.Time) ([]domain.DiaryPost, error) {
	return nil, errors.New("not used")
}

func (m *memDiary) ListOwnersWithPostsBefore(_ context.Context, before time.Time) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range m.posts {
		if p.CreatedAt.Before(before) && !seen[p.OwnerID] {
			seen[p.OwnerID] = true
			out = append(out, p.OwnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memDiary) ListOwnerPostsBefore(_ context.Context, owner string, before time.Time, limit int) ([]domain.DiaryPost, error) {
	var out []domain.DiaryPost
	for i := len(m.posts) - 1; i >= 0 && len(out) < limit; i-- {
		p := m.posts[i]
		if p.OwnerID == owner && p.CreatedAt.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

func ownerKey(owner *string) string {
	if owner == nil {
		return ""
	}
	return *owner
}

type memAiPosts struct {
	// recent считает посты за час по владельцу, total по всем сразу, без учёта created
	recent   map[string]int
	total    int
	existing map[string]bool
	created  []domain.AiPost
}

func newMemAiPosts() *memAiPosts {
	return &memAiPosts{recent: map[string]int{}, existing: map[string]bool{}}
}

func windowKey(owner *string, w domain.SourceWindow) string {
	return fmt.Sprintf("%s|%d|%d", ownerKey(owner), w.Start.Unix(), w.End.Unix())
}

func (m *memAiPosts) HasExistingPost(_ context.Context, owner *string, w domain.SourceWindow) (bool, error) {
	return m.existing[windowKey(owner, w)], nil
}

func (m *memAiPosts) CountCreatedSince(_ context.Context, owner *string, _ time.Time) (int, error) {
	return m.recent[ownerKey(owner)], nil
}

func (m *memAiPosts) CountAllCreatedSince(context.Context, time.Time) (int, error) {
	return m.total + len(m.created), nil
}

func (m *memAiPosts) CreateAiPosts(_ context.Context, posts []domain.AiPost) error {
	m.created = append(m.created, posts...)
	for _, p := range posts {
		m.existing[windowKey(p.OwnerID, domain.SourceWindow{Start: p.SourceStartAt, End: p.SourceEndAt})] = true
	}
	return nil
}

type stubPersonas struct {
	personas []domain.Persona
}

func (s stubPersonas) ListPersonas(context.Context) ([]domain.Persona, error) {
	return s.personas, nil
}

type postCall struct {
	persona string
	source  string
	count   int
}

type stubPosts struct {
	calls []postCall
	err   error
}

func (s *stubPosts) Generate(_ context.Context, persona domain.Persona, source string, count int) ([]string, error) {
	s.calls = append(s.calls, postCall{persona: persona.ID, source: source, count: count})
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", persona.Name, i)
	}
	return out, nil
}

var now = time.Date(2026, 3, 4, 12, 17, 45, 0, time.UTC)

type testEnv struct {
	diary   *memDiary
	aiPosts *memAiPosts
	posts   *stubPosts
	rng     *scriptedRand
	deps    pipeline.Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		diary:   &memDiary{},
		aiPosts: newMemAiPosts(),
		posts:   &stubPosts{},
		rng:     &scriptedRand{},
	}
	env.deps = pipeline.Deps{
		Diary:    env.diary,
		AiPosts:  env.aiPosts,
		Personas: stubPersonas{personas: []domain.Persona{{ID: "p1", Name: "Mika"}, {ID: "p2", Name: "Sora"}}},
		Posts:    env.posts,
		Clock:    clock.NewFake(now),
		Rand:     env.rng,
		Logger:   zerolog.Nop(),
	}
	return env
}
