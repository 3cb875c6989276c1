package storage

var pgMigration = []string{
	`CREATE TABLE subscription (
id uuid PRIMARY KEY,
provider VARCHAR(20) NOT NULL,
channel_id VARCHAR(255) NOT NULL,
name VARCHAR(255) NOT NULL,
channel_name VARCHAR(255) NOT NULL,
thumbnail TEXT NOT NULL DEFAULT '',
UNIQUE (provider, channel_id)
)`,
	`CREATE TABLE video (
id uuid PRIMARY KEY,
subscription_id uuid NOT NULL REFERENCES subscription(id) ON DELETE CASCADE,
remote_id VARCHAR(255) NOT NULL,
title TEXT NOT NULL DEFAULT '',
description TEXT NOT NULL DEFAULT '',
published TIMESTAMPTZ NOT NULL,
duration_seconds BIGINT NOT NULL DEFAULT 0,
is_new BOOLEAN NOT NULL DEFAULT FALSE,
uploader TEXT NOT NULL DEFAULT '',
media_url TEXT NOT NULL DEFAULT '',
downloaded_path TEXT,
UNIQUE (subscription_id, remote_id)
)`,
	`CREATE TABLE job_execution (
id uuid PRIMARY KEY,
description VARCHAR(250) NOT NULL,
status VARCHAR(20) NOT NULL,
start_date TIMESTAMPTZ NOT NULL,
end_date TIMESTAMPTZ,
user_id uuid
)`,
	`CREATE TABLE job_message (
id SERIAL PRIMARY KEY,
job_execution_id uuid NOT NULL REFERENCES job_execution(id) ON DELETE CASCADE,
timestamp TIMESTAMPTZ NOT NULL,
severity VARCHAR(10) NOT NULL,
text TEXT NOT NULL
)`,
}
