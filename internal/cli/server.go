package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"snippet-quiz-service/internal/app"
	"snippet-quiz-service/internal/config"
	"snippet-quiz-service/internal/domain"
	filecorpus "snippet-quiz-service/internal/infra/file"
	"snippet-quiz-service/internal/infra/memory"
	pgstore "snippet-quiz-service/internal/infra/postgres"
	redisinfra "snippet-quiz-service/internal/infra/redis"
	transport "snippet-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var bunDB *bun.DB
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()

		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	snippets := loadCorpus(ctx, cfg, pool)
	if len(snippets) == 0 {
		log.Printf("warning: snippet corpus is empty; session creation will fail until it is provided")
	} else {
		log.Printf("loaded %d snippets", len(snippets))
	}

	var store interface {
		app.SessionStore
		app.ResultStore
	} = memory.NewStore()
	if bunDB != nil {
		store = pgstore.NewStore(bunDB)
	}

	var results app.ResultStore = store
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheTTL := config.TTLDuration(cfg.Redis.CacheTTL, 5*time.Second)
		results = redisinfra.NewLeaderboardCache(redisClient, store, cacheTTL)
	}

	service := app.NewGameService(store, results, snippets, cfg.Game.MinSecondsPerAnswer)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service).Register(mux)
	mux.HandleFunc("/ws/leaderboard", transport.NewWSHandler(service).ServeLeaderboard)

	limiter := transport.NewRateLimiter(cfg.RateLimit.RequestsPerMinute)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      limiter.Middleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadCorpus reads snippets once at startup: a JSON file when configured,
// otherwise the snippets table, otherwise a built-in demo set. A missing
// corpus disables session creation but never kills the process.
func loadCorpus(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) []domain.Snippet {
	var loader app.SnippetLoader
	switch {
	case cfg.Corpus.Path != "":
		loader = filecorpus.NewSnippetLoader(cfg.Corpus.Path)
	case pool != nil:
		loader = pgstore.NewSnippetLoader(pool)
	default:
		loader = memory.NewStaticSnippetLoader(sampleSnippets())
	}
	snippets, err := loader.LoadSnippets(ctx)
	if err != nil {
		log.Printf("load corpus: %v", err)
		return nil
	}
	return snippets
}

// sampleSnippets provides a minimal demo corpus; point corpus.path at a real
// snippets file in production.
func sampleSnippets() []domain.Snippet {
	return []domain.Snippet{
		{Language: "Go", Code: "func main() {\n\tfmt.Println(\"Hello, World!\")\n}", Distractors: []string{"Rust", "C"}},
		{Language: "Python", Code: "def main():\n    print(\"Hello, World!\")", Distractors: []string{"Ruby"}},
		{Language: "JavaScript", Code: "console.log('Hello, World!');", Distractors: []string{"TypeScript", "Java"}},
		{Language: "Rust", Code: "fn main() {\n    println!(\"Hello, World!\");\n}", Distractors: []string{"Go", "C++"}},
		{Language: "Ruby", Code: "puts 'Hello, World!'", Distractors: []string{"Python", "Perl"}},
	}
}
