package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/model"
)

type PostgresSubscriptionRepository struct {
	*Postgres
}

func NewPostgresSubscriptionRepository(postgres *Postgres) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{postgres}
}

func (p *PostgresSubscriptionRepository) Save(sub *model.Subscription) error {
	_, err := p.db.Exec(`
INSERT INTO subscription
(id, provider, channel_id, name, channel_name, thumbnail)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    channel_name = EXCLUDED.channel_name,
    thumbnail = EXCLUDED.thumbnail
`, sub.ID, sub.Provider, sub.ChannelID, sub.Name, sub.ChannelName, sub.Thumbnail)
	if isConflict(err) {
		return ErrConflict
	}

	return err
}

func (p *PostgresSubscriptionRepository) Find(id uuid.UUID) (*model.Subscription, error) {
	row := p.db.QueryRow(`
SELECT id, provider, channel_id, name, channel_name, thumbnail
FROM subscription
WHERE id = $1`, id)

	return scanSubscription(row)
}

func (p *PostgresSubscriptionRepository) FindAll() ([]*model.Subscription, error) {
	rows, err := p.db.Query(`
SELECT id, provider, channel_id, name, channel_name, thumbnail
FROM subscription
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*model.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := row.Scan(&sub.ID, &sub.Provider, &sub.ChannelID, &sub.Name, &sub.ChannelName, &sub.Thumbnail)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}

	return sub, nil
}

type PostgresVideoRepository struct {
	*Postgres
}

func NewPostgresVideoRepository(postgres *Postgres) *PostgresVideoRepository {
	return &PostgresVideoRepository{postgres}
}

func (p *PostgresVideoRepository) Save(video *model.Video) error {
	downloaded := sql.NullString{String: video.DownloadedPath, Valid: video.DownloadedPath != ""}
	_, err := p.db.Exec(`
INSERT INTO video
(id, subscription_id, remote_id, title, description, published, duration_seconds, is_new, uploader, media_url, downloaded_path)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title,
    description = EXCLUDED.description,
    published = EXCLUDED.published,
    duration_seconds = EXCLUDED.duration_seconds,
    is_new = EXCLUDED.is_new,
    uploader = EXCLUDED.uploader,
    media_url = EXCLUDED.media_url,
    downloaded_path = EXCLUDED.downloaded_path
`, video.ID, video.SubscriptionID, video.RemoteID, video.Title, video.Description, video.Published,
		int64(video.Duration/time.Second), video.New, video.Uploader, video.MediaURL, downloaded)
	if isConflict(err) {
		return ErrConflict
	}

	return err
}

func (p *PostgresVideoRepository) Find(id uuid.UUID) (*model.Video, error) {
	row := p.db.QueryRow(selectVideo+`WHERE id = $1`, id)

	return scanVideo(row)
}

func (p *PostgresVideoRepository) FindByRemoteID(subscriptionID uuid.UUID, remoteID string) (*model.Video, error) {
	row := p.db.QueryRow(selectVideo+`WHERE subscription_id = $1 AND remote_id = $2`, subscriptionID, remoteID)

	return scanVideo(row)
}

func (p *PostgresVideoRepository) FindBySubscription(subscriptionID uuid.UUID) ([]*model.Video, error) {
	return p.findVideos(selectVideo+`WHERE subscription_id = $1 ORDER BY published DESC`, subscriptionID)
}

func (p *PostgresVideoRepository) FindNew(subscriptionID uuid.UUID) ([]*model.Video, error) {
	return p.findVideos(selectVideo+`WHERE subscription_id = $1 AND is_new ORDER BY published DESC`, subscriptionID)
}

const selectVideo = `
SELECT id, subscription_id, remote_id, title, description, published, duration_seconds, is_new, uploader, media_url, downloaded_path
FROM video
`

func (p *PostgresVideoRepository) findVideos(query string, args ...any) ([]*model.Video, error) {
	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := []*model.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	return videos, rows.Err()
}

func scanVideo(row scanner) (*model.Video, error) {
	video := &model.Video{}
	var seconds int64
	var downloaded sql.NullString
	err := row.Scan(&video.ID, &video.SubscriptionID, &video.RemoteID, &video.Title, &video.Description,
		&video.Published, &seconds, &video.New, &video.Uploader, &video.MediaURL, &downloaded)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	video.Duration = time.Duration(seconds) * time.Second
	video.DownloadedPath = downloaded.String

	return video, nil
}

type PostgresJobRepository struct {
	*Postgres
}

func NewPostgresJobRepository(postgres *Postgres) *PostgresJobRepository {
	return &PostgresJobRepository{postgres}
}

func (p *PostgresJobRepository) SaveExecution(job *model.JobExecution) error {
	end := sql.NullTime{Time: job.End, Valid: !job.End.IsZero()}
	user := uuid.NullUUID{}
	if job.UserID != nil {
		user = uuid.NullUUID{UUID: *job.UserID, Valid: true}
	}
	_, err := p.db.Exec(`
INSERT INTO job_execution
(id, description, status, start_date, end_date, user_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date
`, job.ID, job.Description, job.Status, job.Start, end, user)

	return err
}

func (p *PostgresJobRepository) FindExecution(id uuid.UUID) (*model.JobExecution, error) {
	row := p.db.QueryRow(`
SELECT id, description, status, start_date, end_date, user_id
FROM job_execution
WHERE id = $1`, id)

	job := &model.JobExecution{}
	var end sql.NullTime
	var user uuid.NullUUID
	err := row.Scan(&job.ID, &job.Description, &job.Status, &job.Start, &end, &user)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	job.End = end.Time
	if user.Valid {
		job.UserID = &user.UUID
	}

	return job, nil
}

func (p *PostgresJobRepository) AppendMessage(msg *model.JobMessage) error {
	_, err := p.db.Exec(`
INSERT INTO job_message
(job_execution_id, timestamp, severity, text)
VALUES ($1, $2, $3, $4)
`, msg.JobExecutionID, msg.Timestamp, msg.Severity, msg.Text)

	return err
}

func (p *PostgresJobRepository) Messages(jobExecutionID uuid.UUID) ([]*model.JobMessage, error) {
	rows, err := p.db.Query(`
SELECT job_execution_id, timestamp, severity, text
FROM job_message
WHERE job_execution_id = $1
ORDER BY timestamp, id`, jobExecutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*model.JobMessage{}
	for rows.Next() {
		msg := &model.JobMessage{}
		if err := rows.Scan(&msg.JobExecutionID, &msg.Timestamp, &msg.Severity, &msg.Text); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}
