// Package prompts хранит шаблоны промптов конвейера.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var raw []byte

// Pair — системная инструкция и шаблон сообщения пользователя.
type Pair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Catalog — набор промптов.
type Catalog struct {
	WorldImage struct {
		System string `yaml:"system"`
		Brief  string `yaml:"brief"`
	} `yaml:"world_image"`
	AiPost          Pair   `yaml:"ai_post"`
	WeeklySummary   Pair   `yaml:"weekly_summary"`
	StandaloneBrief string `yaml:"standalone_brief"`
}

// Load разбирает встроенный каталог.
func Load() (Catalog, error) {
	return Parse(raw)
}

// MustLoad разбирает встроенный каталог и паникует при ошибке.
func MustLoad() Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse разбирает каталог из YAML и проверяет обязательные ключи.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("prompts: %w", err)
	}
	missing := make([]string, 0)
	for name, v := range map[string]string{
		"world_image.system":    c.WorldImage.System,
		"world_image.brief":     c.WorldImage.Brief,
		"ai_post.system":        c.AiPost.System,
		"ai_post.user":          c.AiPost.User,
		"weekly_summary.system": c.WeeklySummary.System,
		"weekly_summary.user":   c.WeeklySummary.User,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Catalog{}, fmt.Errorf("prompts: нет ключей %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// Render подставляет значения вместо {{key}}.
func Render(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(tmpl))
}
