package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию воркера.
type AppConfig struct {
	AppEnv     string `envconfig:"APP_ENV" default:"dev"`
	TZ         string `envconfig:"TZ" default:"Asia/Tokyo"`
	Port       int    `envconfig:"PORT" default:"8080"`
	AdminToken string `envconfig:"ADMIN_TOKEN"`
	RandSeed   int64  `envconfig:"RAND_SEED"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Gemini struct {
		APIKey  string        `envconfig:"GEMINI_API_KEY"`
		BaseURL string        `envconfig:"GEMINI_BASE_URL"`
		Model   string        `envconfig:"GEMINI_IMAGE_MODEL" default:"gemini-2.5-flash-image"`
		Timeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"120s"`
	} `envconfig:""`

	Storage struct {
		Bucket          string `envconfig:"GCS_BUCKET"`
		PublicBaseURL   string `envconfig:"GCS_PUBLIC_BASE_URL"`
		CredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`
	} `envconfig:""`

	Push struct {
		BaseURL string `envconfig:"ONESIGNAL_BASE_URL"`
		AppID   string `envconfig:"ONESIGNAL_APP_ID"`
		APIKey  string `envconfig:"ONESIGNAL_API_KEY"`
	} `envconfig:""`

	World struct {
		BaseImageURL         string `envconfig:"WORLD_BASE_IMAGE_URL"`
		FieldMaskURLTemplate string `envconfig:"WORLD_FIELD_MASK_URL_TEMPLATE"`
	} `envconfig:""`

	AiPost struct {
		MaxPerHour         int           `envconfig:"AI_POST_MAX_PER_HOUR" default:"6"`
		MinPerHour         int           `envconfig:"AI_POST_MIN_PER_HOUR" default:"1"`
		ShortTermChance    float64       `envconfig:"AI_POST_SHORT_TERM_CHANCE" default:"0.02"`
		LongTermJobChance  float64       `envconfig:"AI_POST_LONG_TERM_JOB_CHANCE" default:"0.5"`
		LongTermUserChance float64       `envconfig:"AI_POST_LONG_TERM_USER_CHANCE" default:"0.3"`
		ExclusionWindow    time.Duration `envconfig:"AI_POST_EXCLUSION_WINDOW" default:"168h"`
	} `envconfig:""`

	Schedule struct {
		DailyUpdate     string `envconfig:"CRON_DAILY_UPDATE" default:"5 0 * * *"`
		WeeklyReset     string `envconfig:"CRON_WEEKLY_RESET" default:"10 0 * * 1"`
		AiPostShortTerm string `envconfig:"CRON_AI_POST_SHORT_TERM" default:"*/10 * * * *"`
		AiPostLongTerm  string `envconfig:"CRON_AI_POST_LONG_TERM" default:"0 * * * *"`
	} `envconfig:""`

	Manual struct {
		TargetDate      string `envconfig:"TARGET_DATE"`
		TargetWeekStart string `envconfig:"TARGET_WEEK_START"`
		TestUserID      string `envconfig:"TEST_USER_ID"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Location возвращает часовой пояс расписания.
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("часовой пояс %q: %w", c.TZ, err)
	}
	return loc, nil
}
