package players

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Resolve(ctx context.Context, id Identity) (string, error) {
	type lookup struct {
		column string
		value  string
	}
	lookups := []lookup{
		{"eos_id", id.EOSID},
		{"eos_id", id.PlayerID},
		{"pseudo", id.Pseudo},
		{"xuid", id.XUID},
		{"steam_id", id.SteamID},
	}
	for _, lu := range lookups {
		if lu.value == "" {
			continue
		}
		return s.resolveBy(ctx, lu.column, lu.value)
	}
	return "", ErrUnresolvedIdentity
}

func (s *PGStore) resolveBy(ctx context.Context, column, value string) (string, error) {
	rows, err := s.db.Query(ctx, `SELECT eos_id FROM players WHERE `+column+` = $1 LIMIT 2`, value)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var eosID string
		if err := rows.Scan(&eosID); err != nil {
			return "", err
		}
		ids = append(ids, eosID)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrUnresolvedIdentity
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguousIdentity
	}
}

func (s *PGStore) ByDiscord(ctx context.Context, discordID string) (string, error) {
	var eosID string
	err := s.db.QueryRow(ctx, `
		SELECT eos_id FROM players WHERE discord_id = $1
	`, discordID).Scan(&eosID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnresolvedIdentity
	}
	return eosID, err
}

func (s *PGStore) Linked(ctx context.Context) ([]Player, error) {
	rows, err := s.db.Query(ctx, `
		SELECT discord_id, eos_id, pseudo, xuid, steam_id
		FROM players
		WHERE discord_id <> ''
		ORDER BY eos_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.DiscordID, &p.EOSID, &p.Pseudo, &p.XUID, &p.SteamID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) Upsert(ctx context.Context, p Player) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO players (discord_id, eos_id, pseudo, xuid, steam_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (eos_id) DO UPDATE
		SET discord_id = EXCLUDED.discord_id,
		    pseudo = EXCLUDED.pseudo,
		    xuid = EXCLUDED.xuid,
		    steam_id = EXCLUDED.steam_id
	`, p.DiscordID, p.EOSID, p.Pseudo, p.XUID, p.SteamID)
	return err
}
