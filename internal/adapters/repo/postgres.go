package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"world-builder/internal/domain"
	"world-builder/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ProfileRepo  = (*Postgres)(nil)
	_ domain.DiaryRepo    = (*Postgres)(nil)
	_ domain.WorldRepo    = (*Postgres)(nil)
	_ domain.BuildLogRepo = (*Postgres)(nil)
	_ domain.AiPostRepo   = (*Postgres)(nil)
	_ domain.PersonaRepo  = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// ListActiveProfiles реализует domain.ProfileRepo.
func (p *Postgres) ListActiveProfiles(ctx context.Context) ([]domain.Profile, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id::text, COALESCE(display_name, ''), created_at
FROM profiles
WHERE deleted_at IS NULL
ORDER BY created_at, id
`)
	metrics.ObserveNetworkRequest("postgres", "profiles_list_active", "profiles", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var pr domain.Profile
		if err := rows.Scan(&pr.ID, &pr.DisplayName, &pr.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, pr)
	}
	return profiles, rows.Err()
}

const diaryColumns = `id::text, owner_id::text, COALESCE(content, ''), COALESCE(image_url, ''), created_at`

func scanDiaryPosts(rows pgx.Rows) ([]domain.DiaryPost, error) {
	defer rows.Close()
	var posts []domain.DiaryPost
	for rows.Next() {
		var post domain.DiaryPost
		if err := rows.Scan(&post.ID, &post.OwnerID, &post.Content, &post.ImageURL, &post.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// ListDiaryPosts реализует domain.DiaryRepo.
func (p *Postgres) ListDiaryPosts(ctx context.Context, from, to time.Time) ([]domain.DiaryPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+diaryColumns+`
FROM diary_posts
WHERE deleted_at IS NULL AND created_at >= $1 AND created_at < $2
ORDER BY created_at, id
`, from, to)
	metrics.ObserveNetworkRequest("postgres", "diary_posts_list", "diary_posts", start, err)
	if err != nil {
		return nil, err
	}
	return scanDiaryPosts(rows)
}

// ListOwnerDiaryPosts реализует domain.DiaryRepo.
func (p *Postgres) ListOwnerDiaryPosts(ctx context.Context, ownerID string, from, to time.Time) ([]domain.DiaryPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+diaryColumns+`
FROM diary_posts
WHERE deleted_at IS NULL AND owner_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at, id
`, ownerID, from, to)
	metrics.ObserveNetworkRequest("postgres", "diary_posts_list_owner", "diary_posts", start, err)
	if err != nil {
		return nil, err
	}
	return scanDiaryPosts(rows)
}

// ListOwnersWithPostsBefore реализует domain.DiaryRepo.
func (p *Postgres) ListOwnersWithPostsBefore(ctx context.Context, before time.Time) ([]string, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT DISTINCT owner_id::text
FROM diary_posts
WHERE deleted_at IS NULL AND created_at < $1
ORDER BY 1
`, before)
	metrics.ObserveNetworkRequest("postgres", "diary_posts_owners_before", "diary_posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

// ListOwnerPostsBefore реализует domain.DiaryRepo.
func (p *Postgres) ListOwnerPostsBefore(ctx context.Context, ownerID string, before time.Time, limit int) ([]domain.DiaryPost, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+diaryColumns+`
FROM diary_posts
WHERE deleted_at IS NULL AND owner_id = $1 AND created_at < $2
ORDER BY created_at DESC, id
LIMIT $3
`, ownerID, before, limit)
	metrics.ObserveNetworkRequest("postgres", "diary_posts_owner_before", "diary_posts", start, err)
	if err != nil {
		return nil, err
	}
	return scanDiaryPosts(rows)
}

const worldColumns = `id::text, owner_id::text, week_start_date, COALESCE(current_image_url, ''), created_at, updated_at, deleted_at`

func scanWorld(row pgx.Row) (domain.WeeklyWorld, error) {
	var w domain.WeeklyWorld
	err := row.Scan(&w.ID, &w.OwnerID, &w.WeekStartDate, &w.CurrentImageURL, &w.CreatedAt, &w.UpdatedAt, &w.DeletedAt)
	return w, err
}

// GetWorld реализует domain.WorldRepo.
func (p *Postgres) GetWorld(ctx context.Context, ownerID string, weekStart time.Time) (domain.WeeklyWorld, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	w, err := scanWorld(p.pool.QueryRow(ctx, `
SELECT `+worldColumns+`
FROM weekly_worlds
WHERE owner_id = $1 AND week_start_date = $2 AND deleted_at IS NULL
`, ownerID, weekStart))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "weekly_worlds_get", "weekly_worlds", start, nil)
		return domain.WeeklyWorld{}, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "weekly_worlds_get", "weekly_worlds", start, err)
	if err != nil {
		return domain.WeeklyWorld{}, err
	}
	return w, nil
}

// CreateWorld реализует domain.WorldRepo. Если мир на неделю уже есть, возвращает его без изменений.
func (p *Postgres) CreateWorld(ctx context.Context, world domain.WeeklyWorld) (domain.WeeklyWorld, error) {
	if world.ID == "" {
		world.ID = uuid.NewString()
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	created, err := scanWorld(p.pool.QueryRow(ctx, `
INSERT INTO weekly_worlds (id, owner_id, week_start_date, current_image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (owner_id, week_start_date) WHERE deleted_at IS NULL
DO UPDATE SET updated_at = weekly_worlds.updated_at
RETURNING `+worldColumns+`
`, world.ID, world.OwnerID, world.WeekStartDate, world.CurrentImageURL))
	metrics.ObserveNetworkRequest("postgres", "weekly_worlds_create", "weekly_worlds", start, err)
	if err != nil {
		return domain.WeeklyWorld{}, err
	}
	return created, nil
}

// CreateSeededWorld реализует domain.WorldRepo.
func (p *Postgres) CreateSeededWorld(ctx context.Context, world domain.WeeklyWorld, fields []int, buildDate time.Time) (domain.WeeklyWorld, error) {
	for _, id := range fields {
		if !domain.ValidField(id) {
			return domain.WeeklyWorld{}, fmt.Errorf("поле %d вне диапазона", id)
		}
	}
	if world.ID == "" {
		world.ID = uuid.NewString()
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "weekly_worlds", start, err)
	if err != nil {
		return domain.WeeklyWorld{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	start = time.Now()
	created, err := scanWorld(tx.QueryRow(ctx, `
INSERT INTO weekly_worlds (id, owner_id, week_start_date, current_image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (owner_id, week_start_date) WHERE deleted_at IS NULL DO NOTHING
RETURNING `+worldColumns+`
`, world.ID, world.OwnerID, world.WeekStartDate, world.CurrentImageURL))
	if errors.Is(err, pgx.ErrNoRows) {
		// мир уже создан параллельным запуском, его журнал не трогаем
		metrics.ObserveNetworkRequest("postgres", "weekly_worlds_create_seeded", "weekly_worlds", start, nil)
		_ = tx.Rollback(ctx)
		return p.GetWorld(ctx, world.OwnerID, world.WeekStartDate)
	}
	metrics.ObserveNetworkRequest("postgres", "weekly_worlds_create_seeded", "weekly_worlds", start, err)
	if err != nil {
		return domain.WeeklyWorld{}, err
	}

	batch := &pgx.Batch{}
	for _, id := range fields {
		batch.Queue(`
INSERT INTO world_build_logs (id, weekly_world_id, field_id, build_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
`, uuid.NewString(), created.ID, id, buildDate)
	}
	start = time.Now()
	err = tx.SendBatch(ctx, batch).Close()
	metrics.ObserveNetworkRequest("postgres", "world_build_logs_insert", "world_build_logs", start, err)
	if err != nil {
		return domain.WeeklyWorld{}, err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "weekly_worlds", start, err)
	if err != nil {
		return domain.WeeklyWorld{}, err
	}
	return created, nil
}

// UpdateWorldImage реализует domain.WorldRepo.
func (p *Postgres) UpdateWorldImage(ctx context.Context, worldID, imageURL string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE weekly_worlds SET current_image_url = $2, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`, worldID, imageURL)
	metrics.ObserveNetworkRequest("postgres", "weekly_worlds_update_image", "weekly_worlds", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("мир %s: %w", worldID, domain.ErrNotFound)
	}
	return nil
}

// ListBuiltFields реализует domain.BuildLogRepo.
func (p *Postgres) ListBuiltFields(ctx context.Context, worldID string) ([]int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT field_id FROM world_build_logs WHERE weekly_world_id = $1 ORDER BY field_id`, worldID)
	metrics.ObserveNetworkRequest("postgres", "world_build_logs_list", "world_build_logs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		fields = append(fields, id)
	}
	return fields, rows.Err()
}

// InsertBuildLog реализует domain.BuildLogRepo.
func (p *Postgres) InsertBuildLog(ctx context.Context, log domain.WorldBuildLog) error {
	if !domain.ValidField(log.FieldID) {
		return fmt.Errorf("поле %d вне диапазона", log.FieldID)
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO world_build_logs (id, weekly_world_id, field_id, build_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (weekly_world_id, field_id) DO UPDATE SET build_date = EXCLUDED.build_date, updated_at = now()
`, log.ID, log.WeeklyWorldID, log.FieldID, log.BuildDate)
	metrics.ObserveNetworkRequest("postgres", "world_build_logs_insert", "world_build_logs", start, err)
	return err
}

// TouchBuildLog реализует domain.BuildLogRepo.
func (p *Postgres) TouchBuildLog(ctx context.Context, worldID string, fieldID int, buildDate time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE world_build_logs SET build_date = $3, updated_at = now()
WHERE weekly_world_id = $1 AND field_id = $2
`, worldID, fieldID, buildDate)
	metrics.ObserveNetworkRequest("postgres", "world_build_logs_touch", "world_build_logs", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("журнал поля %d мира %s: %w", fieldID, worldID, domain.ErrNotFound)
	}
	return nil
}

// HasExistingPost реализует domain.AiPostRepo.
func (p *Postgres) HasExistingPost(ctx context.Context, ownerID *string, window domain.SourceWindow) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var exists bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM ai_posts
  WHERE owner_id IS NOT DISTINCT FROM $1::uuid AND source_start_at = $2 AND source_end_at = $3
)
`, ownerID, window.Start, window.End).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "ai_posts_exists", "ai_posts", start, err)
	return exists, err
}

// CountCreatedSince реализует domain.AiPostRepo.
func (p *Postgres) CountCreatedSince(ctx context.Context, ownerID *string, since time.Time) (int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM ai_posts
WHERE owner_id IS NOT DISTINCT FROM $1::uuid AND created_at >= $2
`, ownerID, since).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "ai_posts_count_since", "ai_posts", start, err)
	return count, err
}

// CountAllCreatedSince реализует domain.AiPostRepo.
func (p *Postgres) CountAllCreatedSince(ctx context.Context, since time.Time) (int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ai_posts WHERE created_at >= $1`, since).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "ai_posts_count_all_since", "ai_posts", start, err)
	return count, err
}

// CreateAiPosts реализует domain.AiPostRepo. Пачка пишется в одной транзакции.
func (p *Postgres) CreateAiPosts(ctx context.Context, posts []domain.AiPost) error {
	if len(posts) == 0 {
		return nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "ai_posts", start, err)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, post := range posts {
		if post.ID == "" {
			post.ID = uuid.NewString()
		}
		var imageURL *string
		if post.ImageURL != "" {
			imageURL = &post.ImageURL
		}
		batch.Queue(`
INSERT INTO ai_posts (id, persona_id, owner_id, content, image_url, source_start_at, source_end_at, published_at, created_at, updated_at)
VALUES ($1, $2, $3::uuid, $4, $5, $6, $7, $8, now(), now())
`, post.ID, post.PersonaID, post.OwnerID, post.Content, imageURL, post.SourceStartAt, post.SourceEndAt, post.PublishedAt)
	}

	start = time.Now()
	err = tx.SendBatch(ctx, batch).Close()
	metrics.ObserveNetworkRequest("postgres", "ai_posts_insert", "ai_posts", start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "ai_posts", start, err)
	return err
}

// ListPersonas реализует domain.PersonaRepo.
func (p *Postgres) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id::text, name, COALESCE(description, '')
FROM personas
WHERE deleted_at IS NULL
ORDER BY name, id
`)
	metrics.ObserveNetworkRequest("postgres", "personas_list", "personas", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []domain.Persona
	for rows.Next() {
		var pr domain.Persona
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Description); err != nil {
			return nil, err
		}
		personas = append(personas, pr)
	}
	return personas, rows.Err()
}
