package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	"world-builder/internal/infra/clock"
	"world-builder/internal/usecase/pipeline"
)

type memStore struct {
	profiles []domain.Profile
	posts    []domain.DiaryPost
	worlds   map[string]domain.WeeklyWorld
	logs     map[string]map[int]domain.WorldBuildLog
	inserts  int
	updates  int
	nextID   int
	// seedErr эмулирует сбой транзакции CreateSeededWorld: ничего не записывается
	seedErr error
}

func newMemStore() *memStore {
	return &memStore{worlds: map[string]domain.WeeklyWorld{}, logs: map[string]map[int]domain.WorldBuildLog{}}
}

func worldKey(owner string, week time.Time) string {
	return owner + "/" + week.Format(domain.DateLayout)
}

func (m *memStore) addWorld(owner string, week time.Time, url string) domain.WeeklyWorld {
	w, _ := m.CreateWorld(context.Background(), domain.WeeklyWorld{OwnerID: owner, WeekStartDate: week, CurrentImageURL: url})
	return w
}

func (m *memStore) ListActiveProfiles(context.Context) ([]domain.Profile, error) {
	return m.profiles, nil
}

func (m *memStore) ListDiaryPosts(_ context.Context, from, to time.Time) ([]domain.DiaryPost, error) {
	var out []domain.DiaryPost
	for _, p := range m.posts {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListOwnerDiaryPosts(ctx context.Context, owner string, from, to time.Time) ([]domain.DiaryPost, error) {
	all, _ := m.ListDiaryPosts(ctx, from, to)
	var out []domain.DiaryPost
	for _, p := range all {
		if p.OwnerID == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListOwnersWithPostsBefore(context.Context, time.Time) ([]string, error) {
	return nil, errors.New("not used")
}

func (m *memStore) ListOwnerPostsBefore(context.Context, string, time.Time, int) ([]domain.DiaryPost, error) {
	return nil, errors.New("not used")
}

func (m *memStore) GetWorld(_ context.Context, owner string, week time.Time) (domain.WeeklyWorld, error) {
	w, ok := m.worlds[worldKey(owner, week)]
	if !ok {
		return domain.WeeklyWorld{}, domain.ErrNotFound
	}
	return w, nil
}

func (m *memStore) CreateWorld(_ context.Context, w domain.WeeklyWorld) (domain.WeeklyWorld, error) {
	key := worldKey(w.OwnerID, w.WeekStartDate)
	if existing, ok := m.worlds[key]; ok {
		return existing, nil
	}
	m.nextID++
	w.ID = fmt.Sprintf("world-%d", m.nextID)
	m.worlds[key] = w
	return w, nil
}

func (m *memStore) CreateSeededWorld(ctx context.Context, w domain.WeeklyWorld, fields []int, date time.Time) (domain.WeeklyWorld, error) {
	if m.seedErr != nil {
		return domain.WeeklyWorld{}, m.seedErr
	}
	if existing, ok := m.worlds[worldKey(w.OwnerID, w.WeekStartDate)]; ok {
		return existing, nil
	}
	created, _ := m.CreateWorld(ctx, w)
	for _, id := range fields {
		_ = m.InsertBuildLog(ctx, domain.WorldBuildLog{WeeklyWorldID: created.ID, FieldID: id, BuildDate: date})
	}
	return created, nil
}

func (m *memStore) UpdateWorldImage(_ context.Context, worldID, url string) error {
	for k, w := range m.worlds {
		if w.ID == worldID {
			w.CurrentImageURL = url
			m.worlds[k] = w
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) ListBuiltFields(_ context.Context, worldID string) ([]int, error) {
	var ids []int
	for id := range m.logs[worldID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *memStore) InsertBuildLog(_ context.Context, log domain.WorldBuildLog) error {
	if m.logs[log.WeeklyWorldID] == nil {
		m.logs[log.WeeklyWorldID] = map[int]domain.WorldBuildLog{}
	}
	m.inserts++
	m.logs[log.WeeklyWorldID][log.FieldID] = log
	return nil
}

func (m *memStore) TouchBuildLog(_ context.Context, worldID string, fieldID int, date time.Time) error {
	log, ok := m.logs[worldID][fieldID]
	if !ok {
		return domain.ErrNotFound
	}
	m.updates++
	log.BuildDate = date
	m.logs[worldID][fieldID] = log
	return nil
}

type stubImages struct {
	inputs [][]byte
	fields []int
	briefs []string
	err    error
	// failAt > 0 роняет только вызов с этим номером
	failAt int
	calls  int
}

func (s *stubImages) Generate(_ context.Context, base, _ []byte, fieldID int, text string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.failAt > 0 && s.calls == s.failAt {
		return nil, errors.New("generation failed")
	}
	s.inputs = append(s.inputs, base)
	s.fields = append(s.fields, fieldID)
	s.briefs = append(s.briefs, text)
	return []byte(fmt.Sprintf("gen-%d", len(s.inputs))), nil
}

type memStorage struct {
	objects map[string][]byte
	paths   []string
	err     error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	url := "https://cdn/" + path
	s.objects[url] = data
	s.paths = append(s.paths, path)
	return url, nil
}

func (s *memStorage) Fetch(_ context.Context, url string) ([]byte, error) {
	data, ok := s.objects[url]
	if !ok {
		return nil, fmt.Errorf("нет объекта %s", url)
	}
	return data, nil
}

type stubAssets struct{}

const baseURL = "https://cdn/static/base.png"

func (stubAssets) BaseURL() string                                  { return baseURL }
func (stubAssets) Base(context.Context) ([]byte, error)             { return []byte("base"), nil }
func (stubAssets) FieldMask(_ context.Context, id int) ([]byte, error) { return []byte(fmt.Sprintf("mask-%d", id)), nil }

type stubSummarizer struct {
	calls int
}

func (s *stubSummarizer) Summarize(_ context.Context, posts []domain.DiaryPost) (string, error) {
	s.calls++
	return fmt.Sprintf("brief of %d posts", len(posts)), nil
}

type recordingPusher struct {
	sent []domain.PushMessage
}

func (p *recordingPusher) Send(_ context.Context, msg domain.PushMessage) error {
	p.sent = append(p.sent, msg)
	return nil
}

var tokyo = time.FixedZone("JST", 9*3600)

type testEnv struct {
	store   *memStore
	storage *memStorage
	images  *stubImages
	summary *stubSummarizer
	pusher  *recordingPusher
	deps    pipeline.Deps
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   newMemStore(),
		storage: newMemStorage(),
		images:  &stubImages{},
		summary: &stubSummarizer{},
		pusher:  &recordingPusher{},
	}
	env.deps = pipeline.Deps{
		Profiles:   env.store,
		Diary:      env.store,
		Worlds:     env.store,
		BuildLogs:  env.store,
		Images:     env.images,
		Summarizer: env.summary,
		Assets:     stubAssets{},
		Storage:    env.storage,
		Pusher:     env.pusher,
		Clock:      clock.NewFake(now),
		Rand:       rand.New(rand.NewSource(7)),
		Location:   tokyo,
		Logger:     zerolog.Nop(),
	}
	return env
}
