package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ozodbek-dev/anonchat-bot/internal/billing"
	"github.com/ozodbek-dev/anonchat-bot/internal/broadcast"
	"github.com/ozodbek-dev/anonchat-bot/internal/config"
	"github.com/ozodbek-dev/anonchat-bot/internal/handlers"
	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/internal/middleware"
	"github.com/ozodbek-dev/anonchat-bot/internal/referral"
	"github.com/ozodbek-dev/anonchat-bot/pkg/logger"
	"github.com/ozodbek-dev/anonchat-bot/store"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rdb, err := store.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB, "anonchat")
	if err != nil {
		log.Fatalf("connecting to Redis: %v", err)
	}
	defer rdb.Close()

	dialogs := store.NewRedisDialogStore(rdb, cfg.DialogTTLHours)

	pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connecting to Postgres: %v", err)
	}
	defer pgStore.Close()

	httpClient := &http.Client{
		Timeout: 10 * time.Minute,
	}
	pollTimeout := 50 * time.Second

	b, err := bot.New(
		cfg.BotToken,
		bot.WithHTTPClient(pollTimeout, httpClient),
	)
	if err != nil {
		log.Fatalf("creating bot: %v", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		log.Fatalf("resolving bot identity: %v", err)
	}

	notify := func(userID int64, text string) error {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    userID,
			Text:      text,
			ParseMode: messages.ParseModeHTML,
		})
		return err
	}

	caster := broadcast.New(b, log, broadcast.Config{Workers: cfg.BroadcastWorkers})
	caster.Start()
	defer caster.Stop()

	referrals := referral.NewEngine(pgStore, notify, log)
	billingService := billing.NewService(pgStore)

	h := handlers.NewHandlers(pgStore, dialogs, caster, billingService, referrals, log, me.Username)

	middlewares := middleware.New(pgStore, dialogs, log)
	middlewares.OnNewAccount(func(account *types.Account) {
		adminIDs, err := pgStore.AdminIDs()
		if err != nil {
			log.Error("listing admins: ", err)
			return
		}
		text := messages.AdminNewUser(account.UserID, account.Name, account.Username)
		for _, adminID := range adminIDs {
			if err := notify(adminID, text); err != nil {
				log.Debug("admin notification failed: ", err)
			}
		}
	})

	handlerChain := middlewares.Account(
		middlewares.DialogState(
			h.MainHandler,
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	log.Info("bot started")
	b.Start(ctx)
}
