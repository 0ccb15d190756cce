// Package pipeline описывает зависимости, общие для всех оркестраторов.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/domain"
)

// ImageGenerator перестраивает поле мира по тексту дневника.
type ImageGenerator interface {
	Generate(ctx context.Context, base, fieldMask []byte, fieldID int, diaryText string) ([]byte, error)
}

// PostGenerator пишет AI-посты от лица персоны.
type PostGenerator interface {
	Generate(ctx context.Context, persona domain.Persona, sourceText string, count int) ([]string, error)
}

// Summarizer сворачивает записи недели в бриф.
type Summarizer interface {
	Summarize(ctx context.Context, posts []domain.DiaryPost) (string, error)
}

// Assets отдаёт статичный шаблон мира и маски полей.
type Assets interface {
	BaseURL() string
	Base(ctx context.Context) ([]byte, error)
	FieldMask(ctx context.Context, fieldID int) ([]byte, error)
}

// Deps собирается один раз при старте и передаётся каждому оркестратору.
type Deps struct {
	Profiles  domain.ProfileRepo
	Diary     domain.DiaryRepo
	Worlds    domain.WorldRepo
	BuildLogs domain.BuildLogRepo
	AiPosts   domain.AiPostRepo
	Personas  domain.PersonaRepo

	Images     ImageGenerator
	Posts      PostGenerator
	Summarizer Summarizer
	Assets     Assets
	Storage    domain.ObjectStorage
	// Pusher необязателен: без него уведомления владельцам не отправляются.
	Pusher domain.Pusher

	Clock    domain.Clock
	Rand     domain.Rand
	Location *time.Location
	Logger   zerolog.Logger
}

// Now возвращает текущее время в часовом поясе расписания.
func (d Deps) Now() time.Time {
	return d.Clock.Now().In(d.Loc())
}

// Loc возвращает часовой пояс расписания, по умолчанию UTC.
func (d Deps) Loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// JobLogger возвращает логгер с полем job.
func (d Deps) JobLogger(job domain.JobName) zerolog.Logger {
	return d.Logger.With().Str("job", string(job)).Logger()
}

// CombineDiaryText склеивает записи в хронологическом порядке через перевод строки, пропуская пустые.
func CombineDiaryText(posts []domain.DiaryPost) string {
	lines := make([]string, 0, len(posts))
	for _, p := range posts {
		text := strings.TrimSpace(p.Content)
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}
