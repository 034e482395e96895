package postgres

import (
	"context"
	"fmt"
)

// migrate creates the schema if it does not exist. The table is small and
// stable enough that a versioned migration tool would be overkill.
func (s *Store) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	event_time  TIMESTAMPTZ NOT NULL,
	status      TEXT        NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS events_pending_created_idx
	ON events (created_at) WHERE status = 'pending';`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
