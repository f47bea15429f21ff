package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quailyquaily/clipshelf/bot"
	"github.com/quailyquaily/clipshelf/db"
	"github.com/quailyquaily/clipshelf/internal/logutil"
	"github.com/quailyquaily/clipshelf/limiter"
	"github.com/quailyquaily/clipshelf/store"
	"github.com/quailyquaily/clipshelf/telegram"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot against the Telegram Bot API",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(flagOrViperString(cmd, "bot-token", "telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --bot-token or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
			}

			baseURL := strings.TrimRight(strings.TrimSpace(flagOrViperString(cmd, "base-url", "telegram.base_url")), "/")
			if baseURL == "" {
				baseURL = "https://api.telegram.org"
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gdb, err := db.Open(runCtx, dbConfigFromViper())
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if viper.GetBool("db.automigrate") {
				if err := db.AutoMigrate(gdb); err != nil {
					return fmt.Errorf("migrate db: %w", err)
				}
			}

			st := store.New(gdb)

			httpClient := &http.Client{Timeout: 60 * time.Second}
			api := telegram.NewClient(httpClient, baseURL, token)

			lim := limiter.New(limiter.Options{
				GlobalGap:    viper.GetDuration("limiter.global_gap"),
				DestGap:      viper.GetDuration("limiter.chat_gap"),
				RetryAfter:   telegram.RetryAfterIn,
				RetryPadding: viper.GetDuration("limiter.retry_padding"),
				Logger:       logger,
			})

			pollTimeout := flagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout")
			maxConc := flagOrViperInt(cmd, "max-concurrency", "telegram.max_concurrency")

			b := bot.New(bot.Options{
				API:            api,
				Store:          st,
				Limiter:        lim,
				Logger:         logger,
				PollTimeout:    pollTimeout,
				MaxConcurrency: maxConc,
			})

			return b.Run(runCtx)
		},
	}

	cmd.Flags().String("bot-token", "", "Telegram bot token.")
	cmd.Flags().String("base-url", "", "Telegram Bot API base URL.")
	cmd.Flags().Duration("poll-timeout", 30*time.Second, "Long-poll timeout for getUpdates.")
	cmd.Flags().Int("max-concurrency", 8, "Max updates handled concurrently.")

	return cmd
}
