package world

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"world-builder/internal/domain"
)

var (
	wednesday = time.Date(2026, 3, 4, 10, 0, 0, 0, tokyo)
	tuesday   = time.Date(2026, 3, 3, 0, 0, 0, 0, tokyo)
	monday    = time.Date(2026, 3, 2, 0, 0, 0, 0, tokyo)
)

func TestDailyUpdateBuildsFieldFromDiary(t *testing.T) {
	env := newTestEnv(t, wednesday)
	env.store.posts = []domain.DiaryPost{
		{ID: "p1", OwnerID: "u1", Content: "朝は公園", CreatedAt: tuesday.Add(8 * time.Hour)},
		{ID: "p2", OwnerID: "u1", Content: "夜はラーメン", CreatedAt: tuesday.Add(21 * time.Hour)},
		{ID: "p3", OwnerID: "u1", Content: "前日の記録", CreatedAt: tuesday.Add(-time.Hour)},
	}
	world := env.store.addWorld("u1", monday, baseURL)

	res, err := NewDailyUpdate(env.deps).Run(context.Background(), domain.JobOptions{})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !res.Success || res.ProcessedCount != 1 || res.GeneratedCount != 1 {
		t.Fatalf("неожиданный результат %+v", res)
	}
	if len(env.store.logs[world.ID]) != 1 || env.store.inserts != 1 {
		t.Fatalf("ожидали одну новую запись журнала, получили %d", len(env.store.logs[world.ID]))
	}
	for _, log := range env.store.logs[world.ID] {
		if !log.BuildDate.Equal(tuesday) {
			t.Fatalf("ожидали дату постройки %v, получили %v", tuesday, log.BuildDate)
		}
	}
	updated, _ := env.store.GetWorld(context.Background(), "u1", monday)
	if updated.CurrentImageURL == baseURL || len(env.storage.paths) != 1 || updated.CurrentImageURL != "https://cdn/"+env.storage.paths[0] {
		t.Fatalf("изображение мира должно смениться ровно один раз, получили %q", updated.CurrentImageURL)
	}
	if !strings.HasPrefix(env.storage.paths[0], "worlds/u1/"+world.ID+"/2026-03-03-field") {
		t.Fatalf("неожиданный путь загрузки %q", env.storage.paths[0])
	}
	if env.images.briefs[0] != "朝は公園\n夜はラーメン" {
		t.Fatalf("неожиданный бриф %q", env.images.briefs[0])
	}
	if string(env.images.inputs[0]) != "base" {
		t.Fatalf("для мира с шаблоном ожидали базовое изображение на входе")
	}
	if len(env.pusher.sent) != 1 || env.pusher.sent[0].ExternalUserIDs[0] != "u1" {
		t.Fatalf("ожидали уведомление владельцу, получили %+v", env.pusher.sent)
	}
}

func TestDailyUpdateTwiceKeepsOneRowPerField(t *testing.T) {
	env := newTestEnv(t, wednesday)
	env.store.posts = []domain.DiaryPost{{OwnerID: "u1", Content: "散歩", CreatedAt: tuesday.Add(time.Hour)}}
	world := env.store.addWorld("u1", monday, baseURL)
	ctx := context.Background()
	job := NewDailyUpdate(env.deps)

	for run := 0; run < 2; run++ {
		res, err := job.Run(ctx, domain.JobOptions{TargetDate: "2026-03-03"})
		if err != nil || res.ProcessedCount != 1 {
			t.Fatalf("запуск %d: неожиданный результат %+v (%v)", run+1, res, err)
		}
	}
	if got := len(env.store.logs[world.ID]); got != 2 {
		t.Fatalf("ожидали две разные записи журнала, получили %d", got)
	}
	if string(env.images.inputs[1]) != "gen-1" {
		t.Fatalf("второй запуск должен строиться поверх первого, получили %q", env.images.inputs[1])
	}
}

func TestDailyUpdateOverwriteUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t, wednesday)
	env.store.posts = []domain.DiaryPost{{OwnerID: "u1", Content: "雨", CreatedAt: tuesday.Add(time.Hour)}}
	world := env.store.addWorld("u1", monday, baseURL)
	ctx := context.Background()
	for id := 0; id < domain.FieldCount; id++ {
		_ = env.store.InsertBuildLog(ctx, domain.WorldBuildLog{WeeklyWorldID: world.ID, FieldID: id, BuildDate: monday})
	}
	job := NewDailyUpdate(env.deps)

	for run := 0; run < 2; run++ {
		res, err := job.Run(ctx, domain.JobOptions{})
		if err != nil || res.ProcessedCount != 1 {
			t.Fatalf("запуск %d: неожиданный результат %+v (%v)", run+1, res, err)
		}
	}
	if got := len(env.store.logs[world.ID]); got != domain.FieldCount {
		t.Fatalf("ожидали %d записей, получили %d", domain.FieldCount, got)
	}
	if env.store.inserts != domain.FieldCount || env.store.updates != 2 {
		t.Fatalf("ожидали обновление на месте, вставок %d, обновлений %d", env.store.inserts, env.store.updates)
	}
	touched := 0
	for _, log := range env.store.logs[world.ID] {
		if log.BuildDate.Equal(tuesday) {
			touched++
		}
	}
	if touched == 0 {
		t.Fatalf("дата постройки не обновлена")
	}
}

func TestDailyUpdateMissingWorldIsUnitError(t *testing.T) {
	env := newTestEnv(t, wednesday)
	env.store.posts = []domain.DiaryPost{
		{OwnerID: "u2", Content: "a", CreatedAt: tuesday.Add(time.Hour)},
		{OwnerID: "u1", Content: "b", CreatedAt: tuesday.Add(2 * time.Hour)},
	}
	env.store.addWorld("u1", monday, baseURL)

	res, err := NewDailyUpdate(env.deps).Run(context.Background(), domain.JobOptions{})
	if err != nil {
		t.Fatalf("не ожидали ошибку запуска: %v", err)
	}
	if res.Success || res.ProcessedCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("неожиданный результат %+v", res)
	}
	if !strings.HasPrefix(res.Errors[0], "owner u2") {
		t.Fatalf("ошибка должна относиться к u2, получили %q", res.Errors[0])
	}
}

func TestDailyUpdateUploadError(t *testing.T) {
	env := newTestEnv(t, wednesday)
	env.store.posts = []domain.DiaryPost{{OwnerID: "u1", Content: "a", CreatedAt: tuesday.Add(time.Hour)}}
	world := env.store.addWorld("u1", monday, baseURL)
	env.storage.err = errors.New("bucket down")

	res, err := NewDailyUpdate(env.deps).Run(context.Background(), domain.JobOptions{})
	if err != nil {
		t.Fatalf("не ожидали ошибку запуска: %v", err)
	}
	if res.Success || len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "владелец u1") {
		t.Fatalf("ожидали ошибку загрузки с контекстом, получили %+v", res)
	}
	if len(env.store.logs[world.ID]) != 0 {
		t.Fatalf("журнал не должен меняться при ошибке загрузки")
	}
}

func TestDailyUpdateTargetDateOnSunday(t *testing.T) {
	env := newTestEnv(t, wednesday)
	sunday := time.Date(2026, 3, 1, 12, 0, 0, 0, tokyo)
	env.store.posts = []domain.DiaryPost{{OwnerID: "u1", Content: "日曜", CreatedAt: sunday}}
	prevMonday := time.Date(2026, 2, 23, 0, 0, 0, 0, tokyo)
	env.store.addWorld("u1", prevMonday, baseURL)

	res, err := NewDailyUpdate(env.deps).Run(context.Background(), domain.JobOptions{TargetDate: "2026-03-01"})
	if err != nil || !res.Success || res.ProcessedCount != 1 {
		t.Fatalf("неожиданный результат %+v (%v)", res, err)
	}
}

func TestDailyUpdateInvalidDate(t *testing.T) {
	env := newTestEnv(t, wednesday)
	_, err := NewDailyUpdate(env.deps).Run(context.Background(), domain.JobOptions{TargetDate: "2026-13-01"})
	if !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("ожидали ErrInvalidOption, получили %v", err)
	}
}
