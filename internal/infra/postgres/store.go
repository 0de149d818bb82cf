package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"snippet-quiz-service/internal/domain"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:game_sessions"`

	ID          string    `bun:"id,pk"`
	Snippets    []byte    `bun:"snippets"`
	GameMode    string    `bun:"game_mode"`
	IsCompleted bool      `bun:"is_completed"`
	CreatedAt   time.Time `bun:"created_at"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	ID             int64     `bun:"id,pk,autoincrement"`
	SessionID      string    `bun:"session_id"`
	PlayerName     string    `bun:"player_name"`
	Score          int       `bun:"score"`
	TotalQuestions int       `bun:"total_questions"`
	TimeTaken      float64   `bun:"time_taken"`
	GameMode       string    `bun:"game_mode"`
	CreatedAt      time.Time `bun:"created_at"`
}

// Store persists sessions and results in Postgres. The finalize step runs as
// one transaction so a racing duplicate submission can never insert a second
// result.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateSession(ctx context.Context, session domain.GameSession) error {
	snippets, err := json.Marshal(session.Snippets)
	if err != nil {
		return fmt.Errorf("marshal snippets: %w", err)
	}
	row := sessionRow{
		ID:          session.ID,
		Snippets:    snippets,
		GameMode:    string(session.Mode),
		IsCompleted: session.Completed,
		CreatedAt:   session.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.GameSession, error) {
	var row sessionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("select session: %w", err)
	}

	var snippets []domain.Snippet
	if err := json.Unmarshal(row.Snippets, &snippets); err != nil {
		return domain.GameSession{}, fmt.Errorf("unmarshal snippets: %w", err)
	}
	return domain.GameSession{
		ID:        row.ID,
		Mode:      domain.GameMode(row.GameMode),
		Snippets:  snippets,
		CreatedAt: row.CreatedAt,
		Completed: row.IsCompleted,
	}, nil
}

func (s *Store) FinalizeSession(ctx context.Context, id string, result domain.GameResult) (int64, error) {
	var resultID int64
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*sessionRow)(nil)).
			Set("is_completed = TRUE").
			Where("id = ? AND is_completed = FALSE", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		// Zero rows means the session is gone or already consumed.
		if affected == 0 {
			return domain.ErrSessionNotFound
		}

		row := resultRow{
			SessionID:      result.SessionID,
			PlayerName:     result.PlayerName,
			Score:          result.Score,
			TotalQuestions: result.TotalQuestions,
			TimeTaken:      result.TimeTaken,
			GameMode:       string(result.Mode),
			CreatedAt:      result.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		resultID = row.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return resultID, nil
}

func (s *Store) TopResults(ctx context.Context, mode domain.GameMode, limit int) ([]domain.GameResult, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("game_mode = ? AND total_questions > 0", string(mode)).
		OrderExpr("score DESC, time_taken ASC, created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}

	entries := make([]domain.GameResult, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.GameResult{
			ID:             row.ID,
			SessionID:      row.SessionID,
			PlayerName:     row.PlayerName,
			Score:          row.Score,
			TotalQuestions: row.TotalQuestions,
			TimeTaken:      row.TimeTaken,
			Mode:           domain.GameMode(row.GameMode),
			CreatedAt:      row.CreatedAt,
		})
	}
	return entries, nil
}
