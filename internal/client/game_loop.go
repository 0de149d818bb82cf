package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"snippet-quiz-service/internal/domain"
	"snippet-quiz-service/internal/randx"
)

const maxOptions = 4

// Loop runs one terminal game: it steps through the session's snippets in
// strict index order, records one answer per presented snippet, and submits
// the batch with the elapsed wall-clock time when the player saves.
//
// When Offline is set the loop never talks to a server: it shuffles the local
// corpus, keeps the score itself and reports it with an empty session id, so
// an offline run can never be mistaken for a validated leaderboard entry.
type Loop struct {
	API           *API
	Corpus        []domain.Snippet
	Mode          domain.GameMode
	SnippetsCount int
	PlayerName    string
	Offline       bool

	In  io.Reader
	Out io.Writer

	now func() time.Time
	rnd *randx.LockedRand
}

func NewLoop(api *API, mode domain.GameMode, in io.Reader, out io.Writer) *Loop {
	return &Loop{
		API:  api,
		Mode: mode,
		In:   in,
		Out:  out,
		now:  time.Now,
		rnd:  randx.New(nil),
	}
}

func (l *Loop) Run(ctx context.Context) error {
	if l.now == nil {
		l.now = time.Now
	}
	if l.rnd == nil {
		l.rnd = randx.New(nil)
	}

	sessionID := ""
	var snippets []domain.Snippet
	if l.Offline {
		if len(l.Corpus) == 0 {
			return fmt.Errorf("offline mode needs a local corpus")
		}
		snippets = l.drawLocal()
		fmt.Fprintln(l.Out, "Playing offline; this game will not reach the leaderboard.")
	} else {
		started, err := l.API.StartSession(ctx, l.Mode, l.SnippetsCount)
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		sessionID = started.SessionID
		snippets = started.Snippets
	}
	if len(snippets) == 0 {
		return fmt.Errorf("no snippets to play")
	}

	languages := languageSet(snippets)
	reader := bufio.NewScanner(l.In)
	start := l.now()

	var answers []domain.AnswerRecord
	localScore := 0
	index := 0
	saved := false

	for !saved {
		if index >= len(snippets) {
			if l.Mode == domain.ModeClassic {
				break
			}
			// Infinite mode loops over a fresh local order.
			l.rnd.Shuffle(len(snippets), func(i, j int) {
				snippets[i], snippets[j] = snippets[j], snippets[i]
			})
			index = 0
		}
		snippet := snippets[index%len(snippets)]
		options := l.buildOptions(snippet, languages)

		fmt.Fprintf(l.Out, "\nSnippet %d:\n%s\n", len(answers)+1, snippet.Code)
		for i, option := range options {
			fmt.Fprintf(l.Out, "  %d) %s\n", i+1, option)
		}
		if l.Mode == domain.ModeInfinite {
			fmt.Fprint(l.Out, "Your guess (or 'save'/'quit'): ")
		} else {
			fmt.Fprint(l.Out, "Your guess: ")
		}

		if !reader.Scan() {
			break
		}
		input := strings.TrimSpace(reader.Text())
		switch strings.ToLower(input) {
		case "quit":
			fmt.Fprintln(l.Out, "Game abandoned.")
			return nil
		case "save":
			saved = true
			continue
		}

		selected, ok := pickOption(input, options)
		if !ok {
			fmt.Fprintln(l.Out, "Pick an option number or type the language name.")
			continue
		}

		correct := selected == snippet.Language
		if correct {
			localScore++
			fmt.Fprintln(l.Out, "Correct!")
		} else {
			fmt.Fprintf(l.Out, "Oops! That was %s.\n", snippet.Language)
		}
		answers = append(answers, domain.AnswerRecord{
			SnippetIndex:     len(answers),
			SelectedLanguage: selected,
			CorrectLanguage:  snippet.Language,
			IsCorrect:        correct,
		})
		index++
	}

	elapsed := l.now().Sub(start).Seconds()
	if len(answers) == 0 {
		fmt.Fprintln(l.Out, "Nothing answered; nothing to save.")
		return nil
	}

	if l.Offline {
		fmt.Fprintf(l.Out, "\nOffline result: %d/%d in %.1fs (not submitted).\n", localScore, len(answers), elapsed)
		return nil
	}

	name := strings.TrimSpace(l.PlayerName)
	if name == "" {
		fmt.Fprint(l.Out, "\nYour name: ")
		if reader.Scan() {
			name = strings.TrimSpace(reader.Text())
		}
	}
	if name == "" {
		name = "anonymous"
	}

	validated, err := l.API.SubmitResult(ctx, domain.ResultSubmission{
		SessionID:      sessionID,
		PlayerName:     name,
		Score:          localScore,
		TotalQuestions: len(answers),
		TimeTaken:      elapsed,
		Mode:           l.Mode,
		Answers:        answers,
	})
	if err != nil {
		return fmt.Errorf("submit result: %w", err)
	}
	// The server's numbers are authoritative; show those, not our tally.
	fmt.Fprintf(l.Out, "\nSaved! Validated score: %d/%d in %.1fs.\n",
		validated.ValidatedScore, validated.ValidatedTotal, elapsed)
	return nil
}

func (l *Loop) drawLocal() []domain.Snippet {
	snippets := make([]domain.Snippet, len(l.Corpus))
	copy(snippets, l.Corpus)
	l.rnd.Shuffle(len(snippets), func(i, j int) {
		snippets[i], snippets[j] = snippets[j], snippets[i]
	})
	count := l.SnippetsCount
	if count <= 0 {
		count = 10
	}
	if l.Mode == domain.ModeClassic && count < len(snippets) {
		snippets = snippets[:count]
	}
	return snippets
}

// buildOptions pairs the correct language with up to three distractors,
// padding from the corpus language set when the snippet suggests too few.
func (l *Loop) buildOptions(snippet domain.Snippet, languages []string) []string {
	seen := map[string]struct{}{snippet.Language: {}}
	options := []string{snippet.Language}
	for _, d := range snippet.Distractors {
		if _, ok := seen[d]; ok || len(options) >= maxOptions {
			continue
		}
		seen[d] = struct{}{}
		options = append(options, d)
	}
	if len(options) < maxOptions && len(languages) > len(options) {
		for _, i := range l.rnd.Perm(len(languages)) {
			if len(options) >= maxOptions {
				break
			}
			lang := languages[i]
			if _, ok := seen[lang]; ok {
				continue
			}
			seen[lang] = struct{}{}
			options = append(options, lang)
		}
	}
	l.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

func pickOption(input string, options []string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for _, option := range options {
		if strings.EqualFold(option, input) {
			return option, true
		}
	}
	return "", false
}

func languageSet(snippets []domain.Snippet) []string {
	seen := make(map[string]struct{})
	var languages []string
	for _, s := range snippets {
		if _, ok := seen[s.Language]; !ok {
			seen[s.Language] = struct{}{}
			languages = append(languages, s.Language)
		}
	}
	return languages
}
