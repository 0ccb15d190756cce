package domain

import (
	"context"
	"time"
)

// ProfileRepo возвращает владельцев, для которых строятся миры.
type ProfileRepo interface {
	ListActiveProfiles(ctx context.Context) ([]Profile, error)
}

// DiaryRepo читает записи дневника. Конвейер их не изменяет.
type DiaryRepo interface {
	// ListDiaryPosts возвращает записи всех владельцев в диапазоне [from, to) по возрастанию created_at.
	ListDiaryPosts(ctx context.Context, from, to time.Time) ([]DiaryPost, error)
	// ListOwnerDiaryPosts возвращает записи владельца в диапазоне [from, to) по возрастанию created_at.
	ListOwnerDiaryPosts(ctx context.Context, ownerID string, from, to time.Time) ([]DiaryPost, error)
	// ListOwnersWithPostsBefore возвращает владельцев, у которых есть записи старше before.
	ListOwnersWithPostsBefore(ctx context.Context, before time.Time) ([]string, error)
	// ListOwnerPostsBefore возвращает до limit самых свежих записей владельца старше before.
	ListOwnerPostsBefore(ctx context.Context, ownerID string, before time.Time, limit int) ([]DiaryPost, error)
}

// WorldRepo управляет недельными мирами.
type WorldRepo interface {
	// GetWorld возвращает мир владельца на неделю или ErrNotFound.
	GetWorld(ctx context.Context, ownerID string, weekStart time.Time) (WeeklyWorld, error)
	CreateWorld(ctx context.Context, world WeeklyWorld) (WeeklyWorld, error)
	// CreateSeededWorld создаёт мир вместе с записями журнала для fields одной транзакцией.
	// Если мир на неделю уже есть, возвращает его и ничего не пишет.
	CreateSeededWorld(ctx context.Context, world WeeklyWorld, fields []int, buildDate time.Time) (WeeklyWorld, error)
	UpdateWorldImage(ctx context.Context, worldID, imageURL string) error
}

// BuildLogRepo управляет журналом построения полей.
type BuildLogRepo interface {
	ListBuiltFields(ctx context.Context, worldID string) ([]int, error)
	// InsertBuildLog создаёт запись; при конфликте (world, field) обновляет build_date.
	InsertBuildLog(ctx context.Context, log WorldBuildLog) error
	// TouchBuildLog обновляет build_date существующей записи.
	TouchBuildLog(ctx context.Context, worldID string, fieldID int, buildDate time.Time) error
}

// AiPostRepo управляет AI-постами.
type AiPostRepo interface {
	// HasExistingPost проверяет, есть ли уже пост для владельца и окна источника.
	// ownerID == nil проверяет самостоятельные посты.
	HasExistingPost(ctx context.Context, ownerID *string, window SourceWindow) (bool, error)
	// CountCreatedSince считает посты владельца (nil — самостоятельные), созданные после since.
	CountCreatedSince(ctx context.Context, ownerID *string, since time.Time) (int, error)
	// CountAllCreatedSince считает все посты, созданные после since, независимо от владельца.
	CountAllCreatedSince(ctx context.Context, since time.Time) (int, error)
	CreateAiPosts(ctx context.Context, posts []AiPost) error
}

// PersonaRepo возвращает доступные персоны.
type PersonaRepo interface {
	ListPersonas(ctx context.Context) ([]Persona, error)
}

// ObjectStorage загружает и читает сгенерированные изображения.
type ObjectStorage interface {
	// Upload сохраняет объект и возвращает его публичный URL.
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// Fetch скачивает объект по публичному URL.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Pusher отправляет push-уведомления по внешним идентификаторам пользователей.
type Pusher interface {
	Send(ctx context.Context, msg PushMessage) error
}

// Clock абстрагирует время, чтобы «вчера» и паузы ретраев были тестируемыми.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Rand — источник случайности с возможностью задать seed. *rand.Rand подходит.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
