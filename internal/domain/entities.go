package domain

import "time"

// Profile описывает активного владельца дневника.
type Profile struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// DiaryPost представляет запись дневника пользователя.
type DiaryPost struct {
	ID        string
	OwnerID   string
	Content   string
	ImageURL  string
	CreatedAt time.Time
}

// WeeklyWorld хранит сгенерированный мир владельца на неделю.
type WeeklyWorld struct {
	ID              string
	OwnerID         string
	WeekStartDate   time.Time
	CurrentImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// WorldBuildLog фиксирует, что поле мира было (пере)построено.
type WorldBuildLog struct {
	ID            string
	WeeklyWorldID string
	FieldID       int
	BuildDate     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Persona задаёт голос, которым пишутся AI-посты.
type Persona struct {
	ID          string
	Name        string
	Description string
}

// AiPost представляет сгенерированный комментарий.
// OwnerID == nil означает самостоятельный пост, не привязанный к пользователю.
type AiPost struct {
	ID            string
	PersonaID     string
	OwnerID       *string
	Content       string
	ImageURL      string
	SourceStartAt time.Time
	SourceEndAt   time.Time
	PublishedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SourceWindow описывает диапазон дневника, на который реагирует AI-пост.
type SourceWindow struct {
	Start time.Time
	End   time.Time
}

// PushMessage описывает push-уведомление.
type PushMessage struct {
	ExternalUserIDs []string
	Title           string
	Body            string
	Data            map[string]string
}
