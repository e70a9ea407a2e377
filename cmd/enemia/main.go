package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/auth"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/cache"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/exam"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/handler"
	appI18n "github.com/brandaorrrodrigo/enem-ia-backend/internal/i18n"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/ingest"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/llm"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "enemia",
		Short: "ENEM practice exam platform backend",
	}

	serve := serveCmd()
	root.AddCommand(serve, ingestCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "enemia.db", "SQLite database path")
	f.String("jwt-secret", "", "Secret for signing bearer tokens (or set ENEMIA_JWT_SECRET)")
	f.Duration("token-ttl", auth.DefaultTokenTTL, "Bearer token lifetime")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "pt-BR", "Default response language (pt-BR, en)")
	f.Duration("explain-cache-ttl", 24*time.Hour, "How long explanations stay cached")
	f.Int("explain-cache-size", 1000, "Maximum cached explanations")
	f.Int("explain-rate", 10, "Explanation requests allowed per user per window")
	f.Duration("explain-window", time.Minute, "Rate limit window for explanations")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import question dumps into the question bank",
		RunE:  runIngest,
	}
	f := cmd.Flags()
	f.String("db", "enemia.db", "SQLite database path")
	f.StringP("dir", "d", "", "Directory with .txt question dumps (required)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export finalized session results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "enemia.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("ENEMIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("enemia")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/enemia")
	v.AddConfigPath("/etc/enemia")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	secret := v.GetString("jwt-secret")
	if secret == "" {
		return fmt.Errorf("jwt secret is required: set --jwt-secret flag or ENEMIA_JWT_SECRET env var")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedRewards(db); err != nil {
		return fmt.Errorf("seed rewards: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	h := handler.New(
		db,
		exam.New(db),
		llmClient,
		auth.NewManager(secret, v.GetDuration("token-ttl")),
		cache.New(v.GetDuration("explain-cache-ttl"), v.GetInt("explain-cache-size")),
		cache.NewRateLimiter(v.GetInt("explain-rate"), v.GetDuration("explain-window")),
	)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	questionCount, _ := db.QuestionCount()
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"questions", questionCount,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	res, err := ingest.New(db).Run(v.GetString("dir"))
	if err != nil {
		return fmt.Errorf("ingest questions: %w", err)
	}
	fmt.Printf("scanned %d files (%d unchanged), inserted %d questions, %d duplicates\n",
		res.FilesScanned, res.FilesSkipped, res.Inserted, res.Duplicates)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportAllSessions()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}

// seedRewards loads the default reward catalog on first run.
func seedRewards(db *store.Store) error {
	existing, err := db.ListRewards()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := []model.Reward{
		{ID: "pausa-lanche", Title: "Pausa para o lanche", Description: "15 minutos de pausa guilt-free", CostFP: 100, Emoji: "🍫", Category: "descanso", Available: true},
		{ID: "episodio-serie", Title: "Um episódio da sua série", Description: "Assista sem culpa depois do simulado", CostFP: 250, Emoji: "📺", Category: "descanso", Available: true},
		{ID: "tarde-livre", Title: "Tarde livre", Description: "Uma tarde inteira sem estudar", CostFP: 600, Emoji: "🌤️", Category: "descanso", Available: true},
		{ID: "saida-amigos", Title: "Saída com amigos", Description: "Role de fim de semana garantido", CostFP: 1000, Emoji: "🎉", Category: "social", Available: true},
	}
	for _, r := range defaults {
		if err := db.InsertReward(r); err != nil {
			return err
		}
	}
	slog.Info("seeded default reward catalog", "count", len(defaults))
	return nil
}
