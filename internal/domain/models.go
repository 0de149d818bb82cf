package domain

import "time"

// GameMode selects how many snippets a session covers.
type GameMode string

const (
	// ModeClassic plays a fixed number of snippets once.
	ModeClassic GameMode = "classic"
	// ModeInfinite hands the client the whole shuffled corpus to loop over.
	ModeInfinite GameMode = "infinite"
)

// ParseGameMode validates a wire-level mode string.
func ParseGameMode(raw string) (GameMode, bool) {
	switch GameMode(raw) {
	case ModeClassic, ModeInfinite:
		return GameMode(raw), true
	}
	return "", false
}

// Snippet is one corpus entry: a piece of code with its known language and
// suggested wrong answers.
type Snippet struct {
	Language    string   `json:"language"`
	Code        string   `json:"code"`
	Distractors []string `json:"distractors"`
}

// GameSession binds an opaque id to the exact snippet subset and order shown
// to one client. Snippets are fixed at creation; Completed flips false->true
// exactly once, on the first successful validation.
type GameSession struct {
	ID        string    `json:"sessionId"`
	Mode      GameMode  `json:"gameMode"`
	Snippets  []Snippet `json:"snippets"`
	CreatedAt time.Time `json:"createdAt"`
	Completed bool      `json:"-"`
}

// AnswerRecord is one client-reported answer. CorrectLanguage and IsCorrect
// are the client's own belief and are never trusted; correctness is always
// recomputed from the session's stored snippet at SnippetIndex.
type AnswerRecord struct {
	SnippetIndex     int    `json:"snippetIndex"`
	SelectedLanguage string `json:"selectedLanguage"`
	CorrectLanguage  string `json:"correctLanguage,omitempty"`
	IsCorrect        bool   `json:"isCorrect,omitempty"`
}

// ResultSubmission is the full batch a client sends when saving a game.
// Score and TotalQuestions are claims, echoed back only for comparison.
type ResultSubmission struct {
	SessionID      string         `json:"sessionId"`
	PlayerName     string         `json:"playerName"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	TimeTaken      float64        `json:"timeTaken"`
	Mode           GameMode       `json:"gameMode"`
	Answers        []AnswerRecord `json:"answers"`
}

// GameResult is one immutable leaderboard row, holding the server-validated
// score and total rather than anything the client claimed.
type GameResult struct {
	ID             int64     `json:"-"`
	SessionID      string    `json:"-"`
	PlayerName     string    `json:"player_name"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeTaken      float64   `json:"time_taken"`
	Mode           GameMode  `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidatedResult is what the validator hands back on success. Clients must
// display these numbers, not their own tally, to stay consistent with the
// leaderboard.
type ValidatedResult struct {
	ResultID       int64 `json:"resultId"`
	ValidatedScore int   `json:"validatedScore"`
	ValidatedTotal int   `json:"validatedTotal"`
}
