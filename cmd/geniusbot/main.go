package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/cache"
	"github.com/sukalov/geniusbot/internal/command"
	"github.com/sukalov/geniusbot/internal/config"
	"github.com/sukalov/geniusbot/internal/dispatcher"
	"github.com/sukalov/geniusbot/internal/logger"
	"github.com/sukalov/geniusbot/internal/lyrics"
	"github.com/sukalov/geniusbot/internal/lyrics/genius"
	"github.com/sukalov/geniusbot/internal/reddit"
	"github.com/sukalov/geniusbot/internal/render"
	"github.com/sukalov/geniusbot/internal/telegram"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "geniusbot",
	Short: "Answers song requests in subreddit comments",
	Long: `geniusbot watches a subreddit for comments of the form
"<trigger>, <artist>, <song>, <view>[, <sections>[, <start> <end>]]"
and replies with lyrics, song info or related songs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("BOT_CONFIG_FILE", configFile)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the subreddit and answer requests",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var flushYes bool

var flushCmd = &cobra.Command{
	Use:   "flush-ledger",
	Short: "Forget every answered comment",
	Args:  cobra.NoArgs,
	RunE:  runFlush,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <artist> <song> <view> [sections] [range]",
	Short: "Print the reply a request would get without posting it",
	Example: `  geniusbot lookup "Eminem" "Lose Yourself" "lyrics" "verse1 chorus" "0 3"
  geniusbot lookup "Kanye West" "Stronger" "short info"`,
	Args: cobra.RangeArgs(3, 5),
	RunE: runLookup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides BOT_CONFIG_FILE)")
	flushCmd.Flags().BoolVarP(&flushYes, "yes", "y", false, "confirm the flush")
	rootCmd.AddCommand(runCmd, flushCmd, lookupCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and the console logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pipeline is the parse, resolve and render chain shared by every subcommand.
type pipeline struct {
	parser   *command.Parser
	store    *cache.Store
	service  *lyrics.Service
	renderer *render.Renderer
}

func newPipeline(cfg *config.Config, trigger string) (*pipeline, error) {
	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.MemorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	vocab := command.NewVocabulary(cfg.Trigger.MaxVerses)
	return &pipeline{
		parser:   command.NewParser(trigger, cfg.Trigger.Mode, vocab),
		store:    store,
		service:  lyrics.NewService(genius.NewClient(cfg.Genius.Token), store),
		renderer: render.New(lyrics.NewExtractor(vocab)),
	}, nil
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.RequireReddit(); err != nil {
		return err
	}
	if err := cfg.RequireGenius(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	p, err := newPipeline(cfg, cfg.TriggerToken())
	if err != nil {
		return err
	}

	redditConfig := reddit.Config{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
		Subreddit:    cfg.Reddit.Subreddit,
		PollInterval: cfg.Reddit.PollInterval,
	}
	session := newRedditSession(redditConfig)
	d := dispatcher.New(p.parser, p.service, p.renderer, session, ledger)

	if cfg.Log.BotToken != "" {
		startOperatorBot(ctx, cfg, ledger, d, p.store)
	}

	logger.Info("geniusbot started",
		zap.String("subreddit", cfg.Reddit.Subreddit),
		zap.String("trigger", cfg.TriggerToken()),
		zap.String("trigger_mode", string(cfg.Trigger.Mode)),
		zap.String("cache", p.store.Dir()))

	err = d.Supervise(ctx, session.Connect, dispatcher.Backoff{Min: cfg.Supervisor.BackoffMin, Max: cfg.Supervisor.BackoffMax})
	if ctx.Err() != nil {
		logger.Info("geniusbot stopped")
		return nil
	}
	return err
}

func startOperatorBot(ctx context.Context, cfg *config.Config, ledger Ledger, d *dispatcher.Dispatcher, store *cache.Store) {
	bot, err := telegram.New("geniusbot-admin", cfg.Log.BotToken)
	if err != nil {
		logger.Error("failed to start telegram bot", zap.Error(err))
		return
	}
	if cfg.Log.ChannelID != 0 {
		logger.AttachChannel(bot, cfg.Log.ChannelID)
	}
	admin := telegram.NewAdminHandlers(ledger, d, d, store, cfg.Log.AdminUsernames)
	go bot.Start(ctx, admin.Handlers())
}

func runFlush(cmd *cobra.Command, args []string) error {
	if !flushYes {
		return fmt.Errorf("flushing lets every comment be answered again; pass --yes to confirm")
	}
	cfg, err := setup()
	if err != nil {
		return err
	}

	ledger, err := openLedger(cmd.Context(), cfg.Ledger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	removed, err := ledger.Flush(cmd.Context())
	if err != nil {
		return err
	}
	logger.Success("ledger flushed", zap.Int64("removed", removed))
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d answered comments\n", removed)
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.RequireGenius(); err != nil {
		return err
	}

	p, err := newPipeline(cfg, cfg.TriggerToken())
	if err != nil {
		return err
	}
	d := dispatcher.New(p.parser, p.service, p.renderer, nil, nil)

	text, err := d.Preview(cmd.Context(), strings.Join(args, ", "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
