// Package assets загружает статичные изображения мира: базовый шаблон и маски полей.
package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/domain"
)

// CacheTTL — время жизни закэшированных байтов ассета.
const CacheTTL = 24 * time.Hour

type fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Loader скачивает ассеты по URL и кэширует байты. Кэш необязателен.
type Loader struct {
	fetcher      fetcher
	cache        domain.Cache
	baseURL      string
	maskTemplate string
	log          zerolog.Logger
}

// NewLoader создаёт загрузчик. maskTemplate содержит %d на месте номера поля.
func NewLoader(f fetcher, cache domain.Cache, baseURL, maskTemplate string, logger zerolog.Logger) *Loader {
	return &Loader{
		fetcher:      f,
		cache:        cache,
		baseURL:      baseURL,
		maskTemplate: maskTemplate,
		log:          logger.With().Str("component", "assets").Logger(),
	}
}

// BaseURL возвращает URL статичного шаблона мира.
func (l *Loader) BaseURL() string {
	return l.baseURL
}

// MaskURL возвращает URL маски поля или пустую строку, если шаблон не задан.
func (l *Loader) MaskURL(fieldID int) string {
	if l.maskTemplate == "" {
		return ""
	}
	if strings.Contains(l.maskTemplate, "%d") {
		return fmt.Sprintf(l.maskTemplate, fieldID)
	}
	return strings.TrimRight(l.maskTemplate, "/") + fmt.Sprintf("/field-%d.png", fieldID)
}

// Base возвращает байты статичного шаблона.
func (l *Loader) Base(ctx context.Context) ([]byte, error) {
	if l.baseURL == "" {
		return nil, fmt.Errorf("assets: не задан URL базового шаблона")
	}
	return l.load(ctx, l.baseURL)
}

// FieldMask возвращает маску поля. Без шаблона маски возвращается nil без ошибки.
func (l *Loader) FieldMask(ctx context.Context, fieldID int) ([]byte, error) {
	if !domain.ValidField(fieldID) {
		return nil, fmt.Errorf("assets: поле %d вне диапазона", fieldID)
	}
	url := l.MaskURL(fieldID)
	if url == "" {
		return nil, nil
	}
	return l.load(ctx, url)
}

func (l *Loader) load(ctx context.Context, url string) ([]byte, error) {
	key := "asset:" + url
	if l.cache != nil {
		data, err := l.cache.Get(ctx, key)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			l.log.Warn().Err(err).Str("url", url).Msg("assets: кэш недоступен")
		}
	}
	data, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("загрузка ассета %s: %w", url, err)
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, key, data, CacheTTL); err != nil {
			l.log.Warn().Err(err).Str("url", url).Msg("assets: не удалось сохранить в кэш")
		}
	}
	return data, nil
}
