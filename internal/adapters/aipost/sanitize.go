package aipost

import (
	"regexp"
	"strings"
)

const (
	// MaxInputLength — предел длины текста дневника в рунах, передаваемого модели.
	MaxInputLength = 2000
	// MaxPostLength — предел длины одного поста в рунах.
	MaxPostLength = 140
)

var (
	codeFencePattern = regexp.MustCompile("`{3,}[A-Za-z0-9_-]*")
	templatePattern  = regexp.MustCompile(`\{[^{}]*\}`)
	injectionPattern = regexp.MustCompile(`(?i)(?:ignore|disregard|forget|override|system|prompt|instructions?|assistant|developer|jailbreak|roleplay)|無視|命令|指示|システム|プロンプト`)
	spacePattern     = regexp.MustCompile(`[ \t]{2,}`)
)

// Sanitize очищает текст дневника перед отправкой в модель: обрезает длину,
// убирает ограждения кода, шаблоноподобные {...} и ключевые слова инъекций,
// в том числе внутри слов.
func Sanitize(text string) string {
	out := clipRunes(text, MaxInputLength)
	out = codeFencePattern.ReplaceAllString(out, "")
	for {
		next := templatePattern.ReplaceAllString(out, "")
		if next == out {
			break
		}
		out = next
	}
	out = injectionPattern.ReplaceAllString(out, "")
	out = spacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
