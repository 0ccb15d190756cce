package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"world-builder/internal/domain"
)

// SimpleSummarizer строит бриф недели эвристикой, без LLM.
// Используется, когда ключ OpenAI не задан.
type SimpleSummarizer struct{}

// NewSimple создаёт Summarizer.
func NewSimple() *SimpleSummarizer {
	return &SimpleSummarizer{}
}

// Summarize склеивает первые строки записей, пока бриф не упрётся в MaxSummaryLength.
func (s *SimpleSummarizer) Summarize(_ context.Context, posts []domain.DiaryPost) (string, error) {
	parts := make([]string, 0, len(posts))
	for _, p := range posts {
		line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(p.Content), "\n", 2)[0])
		if line == "" {
			continue
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return "An ordinary quiet week.", nil
	}
	return truncate(strings.Join(parts, " / "), MaxSummaryLength), nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
