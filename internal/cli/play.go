package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"snippet-quiz-service/internal/client"
	"snippet-quiz-service/internal/domain"
	filecorpus "snippet-quiz-service/internal/infra/file"
)

// NewPlayCmd runs the game loop in the terminal.
func NewPlayCmd() *cobra.Command {
	var (
		serverURL  string
		mode       string
		count      int
		playerName string
		offline    bool
		corpusPath string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			gameMode, ok := domain.ParseGameMode(mode)
			if !ok {
				return fmt.Errorf("mode must be classic or infinite")
			}

			loop := client.NewLoop(client.NewAPI(serverURL), gameMode, os.Stdin, os.Stdout)
			loop.SnippetsCount = count
			loop.PlayerName = playerName

			if offline {
				if corpusPath == "" {
					return fmt.Errorf("--offline requires --corpus")
				}
				snippets, err := filecorpus.NewSnippetLoader(corpusPath).LoadSnippets(cmd.Context())
				if err != nil {
					return err
				}
				loop.Offline = true
				loop.Corpus = snippets
			}

			return loop.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "quiz server base URL")
	cmd.Flags().StringVar(&mode, "mode", "classic", "game mode (classic or infinite)")
	cmd.Flags().IntVar(&count, "count", 0, "snippets per game (classic mode, default 10)")
	cmd.Flags().StringVar(&playerName, "name", "", "player name for the leaderboard")
	cmd.Flags().BoolVar(&offline, "offline", false, "play locally without a server; score is not submitted")
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to a local snippets JSON file (offline mode)")
	return cmd
}
