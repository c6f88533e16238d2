package store

import (
	"context"
)

const serverColumns = `id, platform_id, name, icon_url, member_count, is_connected, created_at, updated_at`

type CreateServerParams struct {
	PlatformID  string
	Name        string
	IconURL     *string
	MemberCount *int32
}

type UpdateServerParams struct {
	Name        string
	IconURL     *string
	MemberCount *int32
	IsConnected bool
}

func (s *Store) GetServerByPlatformID(ctx context.Context, platformID string) (Server, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE platform_id = $1`, platformID)
	return scanServer(row)
}

func (s *Store) CreateServer(ctx context.Context, params CreateServerParams) (Server, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO servers (platform_id, name, icon_url, member_count)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+serverColumns,
		params.PlatformID, params.Name, params.IconURL, params.MemberCount)
	return scanServer(row)
}

func (s *Store) UpdateServer(ctx context.Context, id int64, params UpdateServerParams) (Server, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE servers
		 SET name = $2, icon_url = $3, member_count = $4, is_connected = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+serverColumns,
		id, params.Name, params.IconURL, params.MemberCount, params.IsConnected)
	return scanServer(row)
}

// SetServerConnected flips the connection flag without touching mirrored fields.
// Used when the bot is removed from a guild.
func (s *Store) SetServerConnected(ctx context.Context, platformID string, connected bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE servers SET is_connected = $2, updated_at = now() WHERE platform_id = $1`,
		platformID, connected)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListServers(ctx context.Context) ([]Server, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+serverColumns+` FROM servers ORDER BY name, id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var servers []Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	return servers, classify(rows.Err())
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func scanServer(row pgxScanner) (Server, error) {
	var srv Server
	err := row.Scan(
		&srv.ID, &srv.PlatformID, &srv.Name, &srv.IconURL,
		&srv.MemberCount, &srv.IsConnected, &srv.CreatedAt, &srv.UpdatedAt,
	)
	if err != nil {
		return Server{}, classify(err)
	}
	return srv, nil
}
