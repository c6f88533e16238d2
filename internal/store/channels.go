package store

import (
	"context"
)

const channelColumns = `id, platform_id, server_id, name, kind, created_at, updated_at`

type CreateChannelParams struct {
	PlatformID string
	ServerID   int64
	Name       string
	Kind       ChannelKind
}

type UpdateChannelParams struct {
	Name string
	Kind ChannelKind
}

func (s *Store) GetChannelByPlatformID(ctx context.Context, platformID string) (Channel, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE platform_id = $1`, platformID)
	return scanChannel(row)
}

func (s *Store) GetChannelsByServer(ctx context.Context, serverID int64) ([]Channel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE server_id = $1 ORDER BY name, id`, serverID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, classify(rows.Err())
}

func (s *Store) CreateChannel(ctx context.Context, params CreateChannelParams) (Channel, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO channels (platform_id, server_id, name, kind)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+channelColumns,
		params.PlatformID, params.ServerID, params.Name, params.Kind)
	return scanChannel(row)
}

func (s *Store) UpdateChannel(ctx context.Context, id int64, params UpdateChannelParams) (Channel, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE channels SET name = $2, kind = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+channelColumns,
		id, params.Name, params.Kind)
	return scanChannel(row)
}

func (s *Store) DeleteChannel(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanChannel(row pgxScanner) (Channel, error) {
	var ch Channel
	err := row.Scan(
		&ch.ID, &ch.PlatformID, &ch.ServerID, &ch.Name, &ch.Kind,
		&ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return Channel{}, classify(err)
	}
	return ch, nil
}
