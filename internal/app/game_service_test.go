package app_test

import (
	"context"
	"errors"
	"testing"

	"snippet-quiz-service/internal/app"
	"snippet-quiz-service/internal/domain"
	"snippet-quiz-service/internal/infra/memory"
)

func TestStartSessionClassicTruncates(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, corpusOf(5))

	session, err := service.StartSession(ctx, "classic", 3)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if len(session.ID) != app.SessionIDLength {
		t.Fatalf("expected %d-char session id, got %d", app.SessionIDLength, len(session.ID))
	}
	if len(session.Snippets) != 3 {
		t.Fatalf("expected 3 snippets, got %d", len(session.Snippets))
	}
	if session.Mode != domain.ModeClassic {
		t.Fatalf("expected classic mode, got %s", session.Mode)
	}
}

func TestStartSessionInfiniteUsesFullCorpus(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, corpusOf(5))

	session, err := service.StartSession(ctx, "infinite", 2)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if len(session.Snippets) != 5 {
		t.Fatalf("infinite mode should keep the whole corpus, got %d", len(session.Snippets))
	}
}

func TestStartSessionValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, corpusOf(5))

	if _, err := service.StartSession(ctx, "speedrun", 0); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for bad mode, got %v", err)
	}
	if _, err := service.StartSession(ctx, "classic", 51); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for count 51, got %v", err)
	}
	if _, err := service.StartSession(ctx, "classic", -1); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for negative count, got %v", err)
	}

	empty := newTestService(t, nil)
	if _, err := empty.StartSession(ctx, "classic", 0); !errors.Is(err, domain.ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
}

// Scenario: one Go snippet, a correct answer in reasonable time.
func TestValidateResultSingleCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())

	session, err := service.StartSession(ctx, "classic", 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	validated, err := service.ValidateResult(ctx, submission(session, "Go", 2.0))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.ValidatedScore != 1 || validated.ValidatedTotal != 1 {
		t.Fatalf("expected 1/1, got %d/%d", validated.ValidatedScore, validated.ValidatedTotal)
	}
	if validated.ResultID == 0 {
		t.Fatalf("expected a result id")
	}
}

func TestValidateResultWrongAnswerScoresZero(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())

	session, _ := service.StartSession(ctx, "classic", 1)
	validated, err := service.ValidateResult(ctx, submission(session, "Python", 2.0))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.ValidatedScore != 0 || validated.ValidatedTotal != 1 {
		t.Fatalf("expected 0/1, got %d/%d", validated.ValidatedScore, validated.ValidatedTotal)
	}
}

func TestValidateResultRejectsSuspiciousTiming(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())

	session, _ := service.StartSession(ctx, "classic", 1)
	_, err := service.ValidateResult(ctx, submission(session, "Go", 0.1))
	if !errors.Is(err, domain.ErrSuspiciousTiming) {
		t.Fatalf("expected ErrSuspiciousTiming, got %v", err)
	}

	// A rejected submission leaves the session open for a legitimate one.
	if _, err := service.ValidateResult(ctx, submission(session, "Go", 2.0)); err != nil {
		t.Fatalf("validate after timing rejection: %v", err)
	}
}

func TestValidateResultSessionIsSingleUse(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())

	session, _ := service.StartSession(ctx, "classic", 1)
	first, err := service.ValidateResult(ctx, submission(session, "Go", 2.0))
	if err != nil {
		t.Fatalf("first validate: %v", err)
	}

	if _, err := service.ValidateResult(ctx, submission(session, "Go", 2.0)); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on replay, got %v", err)
	}

	// The stored result from the first call survives untouched.
	entries, err := service.Leaderboard(ctx, "classic", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != first.ValidatedScore {
		t.Fatalf("expected single stored result with score %d, got %+v", first.ValidatedScore, entries)
	}
}

func TestValidateResultIgnoresOutOfOrderIndices(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, corpusOf(5))

	session, _ := service.StartSession(ctx, "classic", 3)
	sub := domain.ResultSubmission{
		SessionID:  session.ID,
		PlayerName: "Mallory",
		TimeTaken:  10,
		Mode:       domain.ModeClassic,
		Answers: []domain.AnswerRecord{
			{SnippetIndex: 0, SelectedLanguage: session.Snippets[0].Language},
			{SnippetIndex: 2, SelectedLanguage: session.Snippets[2].Language},
			{SnippetIndex: 1, SelectedLanguage: session.Snippets[1].Language},
		},
	}

	validated, err := service.ValidateResult(ctx, sub)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	// Positions 1 and 2 carry the wrong index, so only index 0 counts.
	if validated.ValidatedTotal != 1 || validated.ValidatedScore != 1 {
		t.Fatalf("expected 1/1 from the in-order prefix, got %d/%d", validated.ValidatedScore, validated.ValidatedTotal)
	}
}

func TestValidateResultIgnoresClaimedNumbers(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())

	session, _ := service.StartSession(ctx, "classic", 1)
	sub := submission(session, "Python", 5.0)
	sub.Score = 99
	sub.TotalQuestions = 99
	sub.Answers[0].IsCorrect = true
	sub.Answers[0].CorrectLanguage = "Python"

	validated, err := service.ValidateResult(ctx, sub)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.ValidatedScore != 0 || validated.ValidatedTotal != 1 {
		t.Fatalf("claimed numbers leaked into validation: %d/%d", validated.ValidatedScore, validated.ValidatedTotal)
	}
}

func TestValidateResultFieldChecks(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())
	session, _ := service.StartSession(ctx, "classic", 1)

	cases := []struct {
		name   string
		mutate func(*domain.ResultSubmission)
	}{
		{"short session id", func(s *domain.ResultSubmission) { s.SessionID = "abc" }},
		{"non-hex session id", func(s *domain.ResultSubmission) { s.SessionID = string(make([]byte, 64)) }},
		{"blank player name", func(s *domain.ResultSubmission) { s.PlayerName = "   " }},
		{"long player name", func(s *domain.ResultSubmission) { s.PlayerName = string(make([]byte, 51)) }},
		{"negative score", func(s *domain.ResultSubmission) { s.Score = -1 }},
		{"negative total", func(s *domain.ResultSubmission) { s.TotalQuestions = -1 }},
		{"negative time", func(s *domain.ResultSubmission) { s.TimeTaken = -0.5 }},
		{"bad mode", func(s *domain.ResultSubmission) { s.Mode = "speedrun" }},
		{"nil answers", func(s *domain.ResultSubmission) { s.Answers = nil }},
	}
	for _, tc := range cases {
		sub := submission(session, "Go", 2.0)
		tc.mutate(&sub)
		if _, err := service.ValidateResult(ctx, sub); !domain.IsValidationError(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	// None of the rejected submissions consumed the session.
	if _, err := service.ValidateResult(ctx, submission(session, "Go", 2.0)); err != nil {
		t.Fatalf("session should still be open: %v", err)
	}
}

func TestValidateResultEscapesPlayerName(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())

	session, _ := service.StartSession(ctx, "classic", 1)
	sub := submission(session, "Go", 2.0)
	sub.PlayerName = "<script>x</script>"
	if _, err := service.ValidateResult(ctx, sub); err != nil {
		t.Fatalf("validate: %v", err)
	}

	entries, _ := service.Leaderboard(ctx, "classic", 0)
	if len(entries) != 1 {
		t.Fatalf("expected one entry")
	}
	if entries[0].PlayerName != "&lt;script&gt;x&lt;/script&gt;" {
		t.Fatalf("player name not escaped: %q", entries[0].PlayerName)
	}
}

func TestLeaderboardTieBreaksOnTime(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, corpusOf(10))

	for _, timeTaken := range []float64{40, 35} {
		session, err := service.StartSession(ctx, "classic", 10)
		if err != nil {
			t.Fatalf("start session: %v", err)
		}
		answers := make([]domain.AnswerRecord, 10)
		for i := range answers {
			lang := session.Snippets[i].Language
			if i >= 8 {
				lang = "not-" + lang
			}
			answers[i] = domain.AnswerRecord{SnippetIndex: i, SelectedLanguage: lang}
		}
		_, err = service.ValidateResult(ctx, domain.ResultSubmission{
			SessionID:  session.ID,
			PlayerName: "player",
			TimeTaken:  timeTaken,
			Mode:       domain.ModeClassic,
			Answers:    answers,
		})
		if err != nil {
			t.Fatalf("validate (%v): %v", timeTaken, err)
		}
	}

	entries, err := service.Leaderboard(ctx, "classic", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].TimeTaken != 35 || entries[1].TimeTaken != 40 {
		t.Fatalf("expected the 35s run first, got %+v", entries)
	}
}

func TestLeaderboardValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, corpusOf(3))

	if _, err := service.Leaderboard(ctx, "speedrun", 0); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for bad mode, got %v", err)
	}
	if _, err := service.Leaderboard(ctx, "classic", 101); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for limit 101, got %v", err)
	}
}

// Every snippet should land in position 0 roughly 1/5 of the time.
func TestShuffleFairness(t *testing.T) {
	ctx := context.Background()
	corpus := corpusOf(5)
	service := newTestService(t, corpus)

	const rounds = 10000
	counts := make(map[string]int, len(corpus))
	for i := 0; i < rounds; i++ {
		session, err := service.StartSession(ctx, "classic", 1)
		if err != nil {
			t.Fatalf("start session: %v", err)
		}
		counts[session.Snippets[0].Language]++
	}

	expected := float64(rounds) / float64(len(corpus))
	for lang, count := range counts {
		// ~10 standard deviations of slack; a biased shuffle fails hard.
		if diff := float64(count) - expected; diff > 400 || diff < -400 {
			t.Fatalf("snippet %s appeared %d times in position 0, expected ~%.0f", lang, count, expected)
		}
	}
	if len(counts) != len(corpus) {
		t.Fatalf("only %d of %d snippets ever reached position 0", len(counts), len(corpus))
	}
}

func TestLeaderboardFeedPublishesAfterValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, goOnlyCorpus())

	updates, cancel := service.Feed().Subscribe(domain.ModeClassic)
	defer cancel()

	session, _ := service.StartSession(ctx, "classic", 1)
	if _, err := service.ValidateResult(ctx, submission(session, "Go", 2.0)); err != nil {
		t.Fatalf("validate: %v", err)
	}

	entries := <-updates
	if len(entries) != 1 || entries[0].Score != 1 {
		t.Fatalf("expected published leaderboard with the new result, got %+v", entries)
	}
}

func newTestService(t *testing.T, corpus []domain.Snippet) *app.GameService {
	t.Helper()
	store := memory.NewStore()
	return app.NewGameService(store, store, corpus, 0)
}

func goOnlyCorpus() []domain.Snippet {
	return []domain.Snippet{
		{Language: "Go", Code: "package main", Distractors: []string{}},
	}
}

func corpusOf(n int) []domain.Snippet {
	langs := []string{"Go", "Python", "Rust", "Ruby", "Java", "C", "C++", "Haskell", "Lua", "Zig"}
	snippets := make([]domain.Snippet, 0, n)
	for i := 0; i < n; i++ {
		snippets = append(snippets, domain.Snippet{
			Language: langs[i%len(langs)],
			Code:     "// sample " + langs[i%len(langs)],
		})
	}
	return snippets
}

func submission(session domain.GameSession, selected string, timeTaken float64) domain.ResultSubmission {
	answers := make([]domain.AnswerRecord, len(session.Snippets))
	for i, sn := range session.Snippets {
		lang := selected
		if lang == "" {
			lang = sn.Language
		}
		answers[i] = domain.AnswerRecord{SnippetIndex: i, SelectedLanguage: lang}
	}
	return domain.ResultSubmission{
		SessionID:      session.ID,
		PlayerName:     "Alice",
		Score:          0,
		TotalQuestions: len(answers),
		TimeTaken:      timeTaken,
		Mode:           session.Mode,
		Answers:        answers,
	}
}
