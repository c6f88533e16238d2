package store

import (
	"context"
	"time"
)

const forwarderColumns = `id, user_id, name, source_server_id, source_channel_id, source_thread_id,
	destination_server_id, destination_channel_id, destination_thread_id, keywords, match_type,
	is_active, created_at, updated_at`

type CreateForwarderParams struct {
	UserID               int64
	Name                 string
	SourceServerID       int64
	SourceChannelID      int64
	SourceThreadID       *string
	DestinationServerID  int64
	DestinationChannelID int64
	DestinationThreadID  *string
	Keywords             []string
	MatchType            MatchType
}

type UpdateForwarderParams struct {
	Name                 string
	SourceServerID       int64
	SourceChannelID      int64
	SourceThreadID       *string
	DestinationServerID  int64
	DestinationChannelID int64
	DestinationThreadID  *string
	Keywords             []string
	MatchType            MatchType
	IsActive             bool
}

// GetActiveForwarders returns active rules joined with the platform channel
// handles. Rules whose mirrored source channel is gone come back with an
// empty SourceChannelPlatformID; the cache skips them until topology sync
// restores the channel.
func (s *Store) GetActiveForwarders(ctx context.Context) ([]ActiveForwarder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT f.id, f.user_id, f.name, f.source_server_id, f.source_channel_id, f.source_thread_id,
		        f.destination_server_id, f.destination_channel_id, f.destination_thread_id,
		        f.keywords, f.match_type, f.is_active, f.created_at, f.updated_at,
		        COALESCE(src.platform_id, ''), COALESCE(dst.platform_id, '')
		 FROM forwarders f
		 LEFT JOIN channels src ON src.id = f.source_channel_id
		 LEFT JOIN channels dst ON dst.id = f.destination_channel_id
		 WHERE f.is_active
		 ORDER BY f.id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var items []ActiveForwarder
	for rows.Next() {
		var f ActiveForwarder
		err := rows.Scan(
			&f.ID, &f.UserID, &f.Name, &f.SourceServerID, &f.SourceChannelID, &f.SourceThreadID,
			&f.DestinationServerID, &f.DestinationChannelID, &f.DestinationThreadID,
			&f.Keywords, &f.MatchType, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
			&f.SourceChannelPlatformID, &f.DestinationChannelPlatformID,
		)
		if err != nil {
			return nil, classify(err)
		}
		items = append(items, f)
	}
	return items, classify(rows.Err())
}

func (s *Store) CreateForwarderLog(ctx context.Context, forwarderID int64, forwardedAt time.Time, originalMessage string, matchedKeyword *string, status LogStatus, errText *string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO forwarder_logs (forwarder_id, forwarded_at, original_message, matched_keyword, status, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		forwarderID, forwardedAt, originalMessage, matchedKeyword, status, errText)
	return classify(err)
}

func (s *Store) GetForwarder(ctx context.Context, id int64) (Forwarder, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+forwarderColumns+` FROM forwarders WHERE id = $1`, id)
	return scanForwarder(row)
}

func (s *Store) ListForwarders(ctx context.Context) ([]Forwarder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+forwarderColumns+` FROM forwarders ORDER BY id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var items []Forwarder
	for rows.Next() {
		f, err := scanForwarder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, classify(rows.Err())
}

func (s *Store) CreateForwarder(ctx context.Context, params CreateForwarderParams) (Forwarder, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO forwarders (user_id, name, source_server_id, source_channel_id, source_thread_id,
		    destination_server_id, destination_channel_id, destination_thread_id, keywords, match_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+forwarderColumns,
		params.UserID, params.Name, params.SourceServerID, params.SourceChannelID,
		params.SourceThreadID, params.DestinationServerID, params.DestinationChannelID,
		params.DestinationThreadID, params.Keywords, params.MatchType)
	return scanForwarder(row)
}

func (s *Store) UpdateForwarder(ctx context.Context, id int64, params UpdateForwarderParams) (Forwarder, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE forwarders
		 SET name = $2, source_server_id = $3, source_channel_id = $4, source_thread_id = $5,
		     destination_server_id = $6, destination_channel_id = $7, destination_thread_id = $8,
		     keywords = $9, match_type = $10, is_active = $11, updated_at = now()
		 WHERE id = $1
		 RETURNING `+forwarderColumns,
		id, params.Name, params.SourceServerID, params.SourceChannelID, params.SourceThreadID,
		params.DestinationServerID, params.DestinationChannelID, params.DestinationThreadID,
		params.Keywords, params.MatchType, params.IsActive)
	return scanForwarder(row)
}

func (s *Store) SetForwarderActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE forwarders SET is_active = $2, updated_at = now() WHERE id = $1`,
		id, active)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteForwarder(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM forwarders WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneForwarderLogs deletes outcome rows older than the cutoff and returns
// the number removed.
func (s *Store) PruneForwarderLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM forwarder_logs WHERE forwarded_at < $1`, cutoff)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func scanForwarder(row pgxScanner) (Forwarder, error) {
	var f Forwarder
	err := row.Scan(
		&f.ID, &f.UserID, &f.Name, &f.SourceServerID, &f.SourceChannelID, &f.SourceThreadID,
		&f.DestinationServerID, &f.DestinationChannelID, &f.DestinationThreadID,
		&f.Keywords, &f.MatchType, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return Forwarder{}, classify(err)
	}
	return f, nil
}
