// Package archive keeps the final standings of finished rooms in Postgres.
// Rooms themselves live only in memory; this is history, not recovery.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/archive/db"
	"github.com/mcdev12/moogle/go/internal/sqlutil"
)

//go:embed schema.sql
var schema string

type Querier interface {
	InsertRoomResult(ctx context.Context, arg db.InsertRoomResultParams) (db.RoomResult, error)
	InsertRoomResultPlayer(ctx context.Context, arg db.InsertRoomResultPlayerParams) error
}

// PostgresStore writes room results through sqlc queries inside one transaction.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to dsn, verifies the connection and applies the schema.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply archive schema: %w", err)
	}

	log.Info().Msg("results archive connected")
	return &PostgresStore{db: conn}, nil
}

// Save stores result and one row per ranked player.
func (s *PostgresStore) Save(ctx context.Context, result models.RoomResult) error {
	params, players, err := resultParams(uuid.New(), result)
	if err != nil {
		return err
	}

	return sqlutil.Run(ctx, s.db, func(tx *sql.Tx) *db.Queries { return db.New(tx) }, func(q *db.Queries) error {
		return saveWith(ctx, q, params, players)
	})
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func saveWith(ctx context.Context, q Querier, params db.InsertRoomResultParams, players []db.InsertRoomResultPlayerParams) error {
	if _, err := q.InsertRoomResult(ctx, params); err != nil {
		return fmt.Errorf("failed to insert room result: %w", err)
	}
	for _, p := range players {
		if err := q.InsertRoomResultPlayer(ctx, p); err != nil {
			return fmt.Errorf("failed to insert standing %d: %w", p.Rank, err)
		}
	}
	return nil
}

// resultParams maps a result to insert parameters. Ranks start at 1 and
// follow the order of result.Standings.
func resultParams(id uuid.UUID, result models.RoomResult) (db.InsertRoomResultParams, []db.InsertRoomResultPlayerParams, error) {
	if result.TotalQuestions > math.MaxInt32 {
		return db.InsertRoomResultParams{}, nil, fmt.Errorf("question count %d does not fit the archive", result.TotalQuestions)
	}
	for _, p := range result.Standings {
		if p.Balance < 0 || p.Balance > models.MaxBalance {
			return db.InsertRoomResultParams{}, nil, fmt.Errorf("balance %d of player %s does not fit the archive", p.Balance, p.ID)
		}
	}

	var standings pqtype.NullRawMessage
	if len(result.Standings) > 0 {
		raw, err := json.Marshal(result.Standings)
		if err != nil {
			return db.InsertRoomResultParams{}, nil, fmt.Errorf("failed to marshal standings: %w", err)
		}
		standings = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	params := db.InsertRoomResultParams{
		ID:             id,
		Code:           result.Code,
		Reason:         result.Reason,
		Expired:        result.Expired,
		TotalQuestions: int32(result.TotalQuestions),
		CreatedAt:      result.CreatedAt,
		StartedAt:      sqlutil.ToSqlTime(result.StartedAt),
		FinishedAt:     result.FinishedAt,
		Standings:      standings,
	}

	players := make([]db.InsertRoomResultPlayerParams, 0, len(result.Standings))
	for i, p := range result.Standings {
		players = append(players, db.InsertRoomResultPlayerParams{
			ResultID: id,
			Rank:     int32(i + 1),
			PlayerID: p.ID,
			Name:     p.Name,
			Balance:  int32(p.Balance),
		})
	}
	return params, players, nil
}
