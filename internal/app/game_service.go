package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html"
	"strings"
	"time"

	"snippet-quiz-service/internal/domain"
	"snippet-quiz-service/internal/randx"
)

const (
	// SessionIDLength is the hex length of a session token (32 random bytes).
	SessionIDLength = 64

	DefaultSnippetsPerGame = 10
	MaxSnippetsPerGame     = 50

	DefaultLeaderboardLimit = 5
	MaxLeaderboardLimit     = 100

	// DefaultMinSecondsPerAnswer is the anti-automation floor: submissions
	// faster than this per validated answer are rejected.
	DefaultMinSecondsPerAnswer = 1.0

	maxPlayerNameLength = 50
)

// SessionStore persists game sessions and owns the atomic finalize step.
type SessionStore interface {
	CreateSession(ctx context.Context, session domain.GameSession) error
	// GetSession returns domain.ErrSessionNotFound when no session exists.
	GetSession(ctx context.Context, id string) (domain.GameSession, error)
	// FinalizeSession flips the completion flag and inserts the result in a
	// single transaction. A session that is missing or already completed
	// yields domain.ErrSessionNotFound; no result row may land in that case.
	FinalizeSession(ctx context.Context, id string, result domain.GameResult) (int64, error)
}

// SnippetLoader provides the corpus a service instance draws from. Loaded
// once at startup; the corpus is immutable afterwards.
type SnippetLoader interface {
	LoadSnippets(ctx context.Context) ([]domain.Snippet, error)
}

// ResultStore serves ranked leaderboard reads.
type ResultStore interface {
	// TopResults returns results for a mode with totalQuestions > 0, ordered
	// by score desc, then timeTaken asc, then createdAt asc.
	TopResults(ctx context.Context, mode domain.GameMode, limit int) ([]domain.GameResult, error)
}

// GameService contains the session-validated scoring use cases.
type GameService struct {
	sessions            SessionStore
	results             ResultStore
	corpus              []domain.Snippet
	minSecondsPerAnswer float64
	rnd                 *randx.LockedRand
	feed                *LeaderboardFeed
	now                 func() time.Time
}

func NewGameService(sessions SessionStore, results ResultStore, corpus []domain.Snippet, minSecondsPerAnswer float64) *GameService {
	return NewGameServiceWithClock(sessions, results, corpus, minSecondsPerAnswer, time.Now)
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(sessions SessionStore, results ResultStore, corpus []domain.Snippet, minSecondsPerAnswer float64, now func() time.Time) *GameService {
	if minSecondsPerAnswer <= 0 {
		minSecondsPerAnswer = DefaultMinSecondsPerAnswer
	}
	return &GameService{
		sessions:            sessions,
		results:             results,
		corpus:              corpus,
		minSecondsPerAnswer: minSecondsPerAnswer,
		rnd:                 randx.New(nil),
		feed:                NewLeaderboardFeed(),
		now:                 now,
	}
}

// Feed exposes the live leaderboard broadcast hub.
func (s *GameService) Feed() *LeaderboardFeed {
	return s.feed
}

// CorpusSize reports how many snippets the service can draw from.
func (s *GameService) CorpusSize() int {
	return len(s.corpus)
}

// StartSession draws a fresh shuffled snippet subset, persists it with
// completed=false and returns it. The returned list is exactly what later
// validation runs against; no re-shuffling happens in between.
func (s *GameService) StartSession(ctx context.Context, rawMode string, requestedCount int) (domain.GameSession, error) {
	mode, ok := domain.ParseGameMode(rawMode)
	if !ok {
		return domain.GameSession{}, domain.NewValidationError("gameMode", "must be classic or infinite")
	}
	if requestedCount == 0 {
		requestedCount = DefaultSnippetsPerGame
	}
	if requestedCount < 1 || requestedCount > MaxSnippetsPerGame {
		return domain.GameSession{}, domain.NewValidationError("snippetsCount", fmt.Sprintf("must be between 1 and %d", MaxSnippetsPerGame))
	}
	if len(s.corpus) == 0 {
		return domain.GameSession{}, domain.ErrCorpusUnavailable
	}

	shuffled := make([]domain.Snippet, len(s.corpus))
	copy(shuffled, s.corpus)
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if mode == domain.ModeClassic && requestedCount < len(shuffled) {
		shuffled = shuffled[:requestedCount]
	}

	id, err := newSessionID()
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("generate session id: %w", err)
	}

	session := domain.GameSession{
		ID:        id,
		Mode:      mode,
		Snippets:  shuffled,
		CreatedAt: s.now(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return domain.GameSession{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// ValidateResult recomputes the score from the session's own snippet list,
// ignoring everything the client claimed, and persists the validated result
// while consuming the session.
func (s *GameService) ValidateResult(ctx context.Context, sub domain.ResultSubmission) (domain.ValidatedResult, error) {
	playerName, err := checkSubmission(sub)
	if err != nil {
		return domain.ValidatedResult{}, err
	}

	session, err := s.sessions.GetSession(ctx, sub.SessionID)
	if err != nil {
		return domain.ValidatedResult{}, err
	}
	if session.Completed {
		// Same externally-visible error as a missing session.
		return domain.ValidatedResult{}, domain.ErrSessionNotFound
	}

	validatedScore, validatedTotal := recountAnswers(session.Snippets, sub.Answers)

	if validatedScore > validatedTotal {
		return domain.ValidatedResult{}, domain.NewValidationError("score", "invalid score")
	}
	if sub.Mode == domain.ModeClassic && validatedTotal > len(session.Snippets) {
		return domain.ValidatedResult{}, domain.NewValidationError("answers", "invalid answer count")
	}
	if validatedTotal > 0 && sub.TimeTaken < float64(validatedTotal)*s.minSecondsPerAnswer {
		return domain.ValidatedResult{}, domain.ErrSuspiciousTiming
	}

	result := domain.GameResult{
		SessionID:      session.ID,
		PlayerName:     playerName,
		Score:          validatedScore,
		TotalQuestions: validatedTotal,
		TimeTaken:      sub.TimeTaken,
		Mode:           sub.Mode,
		CreatedAt:      s.now(),
	}
	resultID, err := s.sessions.FinalizeSession(ctx, session.ID, result)
	if err != nil {
		return domain.ValidatedResult{}, err
	}

	s.publishLeaderboard(ctx, sub.Mode)

	return domain.ValidatedResult{
		ResultID:       resultID,
		ValidatedScore: validatedScore,
		ValidatedTotal: validatedTotal,
	}, nil
}

// Leaderboard returns the top validated results for a mode.
func (s *GameService) Leaderboard(ctx context.Context, rawMode string, limit int) ([]domain.GameResult, error) {
	mode, ok := domain.ParseGameMode(rawMode)
	if !ok {
		return nil, domain.NewValidationError("mode", "must be classic or infinite")
	}
	if limit == 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit < 1 || limit > MaxLeaderboardLimit {
		return nil, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxLeaderboardLimit))
	}
	return s.results.TopResults(ctx, mode, limit)
}

// recountAnswers walks the submitted batch in lockstep with the session's
// snippet list. Only entries whose snippetIndex matches their position count;
// anything out of order or beyond the session length is silently ignored, so
// a client cannot discard wrong answers by reordering.
func recountAnswers(snippets []domain.Snippet, answers []domain.AnswerRecord) (score, total int) {
	n := len(answers)
	if len(snippets) < n {
		n = len(snippets)
	}
	for i := 0; i < n; i++ {
		if answers[i].SnippetIndex != i {
			continue
		}
		total++
		if answers[i].SelectedLanguage == snippets[i].Language {
			score++
		}
	}
	return score, total
}

// checkSubmission runs the field-level precondition checks and returns the
// sanitized player name.
func checkSubmission(sub domain.ResultSubmission) (string, error) {
	if !isSessionID(sub.SessionID) {
		return "", domain.NewValidationError("sessionId", "malformed session id")
	}
	name := strings.TrimSpace(sub.PlayerName)
	if name == "" {
		return "", domain.NewValidationError("playerName", "must not be empty")
	}
	if len(name) > maxPlayerNameLength {
		return "", domain.NewValidationError("playerName", fmt.Sprintf("must be at most %d characters", maxPlayerNameLength))
	}
	if sub.Score < 0 {
		return "", domain.NewValidationError("score", "must be non-negative")
	}
	if sub.TotalQuestions < 0 {
		return "", domain.NewValidationError("totalQuestions", "must be non-negative")
	}
	if sub.TimeTaken < 0 {
		return "", domain.NewValidationError("timeTaken", "must be non-negative")
	}
	if _, ok := domain.ParseGameMode(string(sub.Mode)); !ok {
		return "", domain.NewValidationError("gameMode", "must be classic or infinite")
	}
	if sub.Answers == nil {
		return "", domain.NewValidationError("answers", "must be an array")
	}
	return html.EscapeString(name), nil
}

func (s *GameService) publishLeaderboard(ctx context.Context, mode domain.GameMode) {
	entries, err := s.results.TopResults(ctx, mode, DefaultLeaderboardLimit)
	if err != nil {
		return
	}
	s.feed.Publish(mode, entries)
}

func newSessionID() (string, error) {
	buf := make([]byte, SessionIDLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isSessionID(id string) bool {
	if len(id) != SessionIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
