package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"omnix.dev/omnix-bot/internal/api"
	"omnix.dev/omnix-bot/internal/bot"
	"omnix.dev/omnix-bot/internal/config"
	"omnix.dev/omnix-bot/internal/core"
	"omnix.dev/omnix-bot/internal/market"
	"omnix.dev/omnix-bot/internal/speech"
	"omnix.dev/omnix-bot/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "omnix",
		Short: "OMNIX - crypto assistant for Telegram",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.LoadConfig()
			setupLogging(cfg.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP status server and, when a token is set, the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	})

	askCmd := &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Resolve one question through the answer pipeline and print it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			return runAsk(cmd.Context(), cfg, user, name, strings.Join(args, " "))
		},
	}
	askCmd.Flags().String("user", "cli", "User id recorded with the conversation")
	askCmd.Flags().String("name", "", "Display name used in the answer (default Usuario)")
	rootCmd.AddCommand(askCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "initdb",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer dbStore.Close()
			n, err := dbStore.CountConversations(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Str("database", cfg.DatabaseURL).Int("conversations", n).Msg("Schema ready")
			return nil
		},
	})

	return rootCmd
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Caller().Logger()
}

// services holds everything built once at startup.
type services struct {
	db         *store.SQLiteStore
	gemini     *core.GeminiProvider
	answers    *core.AnswerService
	portfolios *core.PortfolioService
	prices     *market.Oracle
	speech     *speech.Synthesizer
}

func (s *services) Close() {
	s.gemini.Close()
	if err := s.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing database")
	}
}

func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gemini, err := core.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		dbStore.Close()
		return nil, err
	}
	openAI := core.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)

	log.Info().
		Bool("gemini", cfg.GeminiAPIKey != "").
		Bool("openai", cfg.OpenAIAPIKey != "").
		Str("price_source", cfg.PriceSource).
		Msg("Answer pipeline configured")

	var quoter market.Quoter
	if cfg.PriceSource == config.PriceSourceLive {
		quoter = market.YahooQuoter{}
	}

	return &services{
		db:     dbStore,
		gemini: gemini,
		answers: core.NewAnswerService(dbStore, cfg.ProviderTimeout,
			core.Tier{Provider: gemini, MinRunes: core.PrimaryMinAnswerRunes},
			core.Tier{Provider: openAI, MinRunes: 1},
		),
		portfolios: core.NewPortfolioService(dbStore),
		prices:     market.NewOracle(quoter, cfg.PriceTimeout),
		speech: speech.NewSynthesizer(speech.Config{
			Endpoint: cfg.TTSEndpoint,
			Language: cfg.TTSLanguage,
			Timeout:  cfg.TTSTimeout,
		}),
	}, nil
}

func runAsk(ctx context.Context, cfg *config.Config, userID, displayName, question string) error {
	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	answer := svc.answers.Resolve(ctx, askQuestion(userID, displayName, question))
	fmt.Printf("[%s] %s\n", answer.Source, answer.Text)
	return nil
}

// askQuestion builds a CLI question. An empty displayName falls back to the
// pipeline default rather than the user id.
func askQuestion(userID, displayName, question string) core.Question {
	return core.Question{
		Text:        question,
		UserID:      userID,
		DisplayName: displayName,
		ChatType:    store.ChatTypeAPI,
	}
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	apiHandler := api.NewAPIHandler(cfg.BotName, svc.answers, svc.portfolios, svc.prices)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      api.NewRouter(apiHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server. Press Ctrl+C to quit.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.TelegramToken != "" {
		telegram, err := bot.New(cfg.TelegramToken, bot.Services{
			Answers:      svc.answers,
			Portfolios:   svc.portfolios,
			Prices:       svc.prices,
			Speech:       svc.speech,
			VoiceReplies: cfg.VoiceReplies,
		}, cfg.BotWorkers)
		if err != nil {
			stop()
			g.Wait()
			return err
		}
		g.Go(func() error {
			return telegram.Run(gctx)
		})
	} else {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, running HTTP server only")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exiting gracefully")
	return nil
}
