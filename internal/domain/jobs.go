package domain

import (
	"context"
	"fmt"
	"time"
)

// JobName идентифицирует оркестратор.
type JobName string

const (
	// JobDailyUpdate перестраивает одно поле мира по записям за день.
	JobDailyUpdate JobName = "daily-update"
	// JobWeeklyReset создаёт миры новой недели.
	JobWeeklyReset JobName = "weekly-reset"
	// JobAiPostShortTerm реагирует на свежие записи.
	JobAiPostShortTerm JobName = "ai-post-short-term"
	// JobAiPostLongTerm вспоминает старые записи.
	JobAiPostLongTerm JobName = "ai-post-long-term"
	// JobNotificationTest отправляет тестовый push, запускается только вручную.
	JobNotificationTest JobName = "notification-test"
)

// DateLayout — формат дат в ручных параметрах запуска.
const DateLayout = "2006-01-02"

// JobOptions содержит параметры ручного запуска. Пустые значения означают «по умолчанию».
type JobOptions struct {
	TargetDate      string `json:"target_date,omitempty"`
	TargetWeekStart string `json:"target_week_start,omitempty"`
	TestUserID      string `json:"test_user_id,omitempty"`
}

// JobResult — агрегированный итог запуска.
type JobResult struct {
	Success        bool     `json:"success"`
	Skipped        bool     `json:"skipped,omitempty"`
	ProcessedCount int      `json:"processedCount"`
	GeneratedCount int      `json:"generatedCount"`
	Errors         []string `json:"errors"`
}

// NewJobResult возвращает успешный пустой результат.
func NewJobResult() JobResult {
	return JobResult{Success: true, Errors: []string{}}
}

// Fail добавляет ошибку единицы работы и помечает запуск неуспешным.
func (r *JobResult) Fail(unit string, err error) {
	r.Success = false
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", unit, err))
}

// Job — общий контракт оркестраторов.
// Ошибка возвращается только для ошибок конфигурации, до обработки единиц.
type Job interface {
	Name() JobName
	Run(ctx context.Context, opts JobOptions) (JobResult, error)
}

// ParseDate разбирает дату YYYY-MM-DD в указанном часовом поясе.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: дата %q: %v", ErrInvalidOption, raw, err)
	}
	return t, nil
}

// StartOfDay обрезает время до полуночи в loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// WeekStart возвращает понедельник недели, содержащей t, в loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// AllJobs перечисляет задания в порядке регистрации.
var AllJobs = []JobName{JobDailyUpdate, JobWeeklyReset, JobAiPostShortTerm, JobAiPostLongTerm, JobNotificationTest}
