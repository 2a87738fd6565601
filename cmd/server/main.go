package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"qrtrack/bot"
	"qrtrack/impl/auth"
	"qrtrack/impl/core"
	"qrtrack/internal/clientmeta"
	"qrtrack/internal/config"
	"qrtrack/internal/database"
	"qrtrack/internal/geo"
	"qrtrack/internal/http-server/api"
	"qrtrack/internal/ratelimit"
	"qrtrack/lib/logger"
	"qrtrack/lib/sl"
)

const logFileName = "qrtrack.log"

type store interface {
	core.Repository
	auth.Database
}

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting qrtrack", slog.String("config", *configPath), slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Telegram.Enabled {
		// the bot logs through the base logger so failed sends are not forwarded again
		tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.ChatIds, slog.Level(conf.Telegram.MinLevel), log)
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
		} else {
			go func() {
				if err := tgBot.Start(); err != nil {
					log.Error("telegram bot start", sl.Err(err))
				}
			}()
			defer tgBot.Stop()
			log = logger.WithTelegram(log, tgBot, slog.Level(conf.Telegram.MinLevel))
			log.Info("telegram alerts enabled", slog.Int("chats", len(conf.Telegram.ChatIds)))
		}
	}

	var repo store
	if conf.Mongo.Enabled {
		mongo, err := database.NewMongoClient(ctx, conf)
		if err != nil {
			log.Error("mongodb client", sl.Err(err))
			return
		}
		defer func() {
			_ = mongo.Close(context.Background())
		}()
		if err = mongo.EnsureIndexes(ctx); err != nil {
			log.Warn("mongodb indexes", sl.Err(err))
		}
		log.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("database", conf.Mongo.Database),
			slog.Bool("transactions", conf.Mongo.Transactions),
		).Info("mongodb connected")
		repo = mongo
	} else {
		log.Warn("mongodb disabled, using in-memory store")
		repo = database.NewMemoryStore()
	}

	geoDb, err := geo.Open(conf.GeoIP.DatabasePath)
	if err != nil {
		log.Warn("geoip disabled", sl.Err(err))
		geoDb = &geo.MaxMind{}
	}
	defer func() {
		_ = geoDb.Close()
	}()
	extractor := clientmeta.New(geoDb, time.Duration(conf.GeoIP.TimeoutMs)*time.Millisecond)

	handler := core.New(repo, extractor, core.Options{
		Strategy:    conf.Analytics.Strategy,
		WindowDays:  conf.Analytics.WindowDays,
		TopLimit:    conf.Analytics.TopLimit,
		RecentLimit: conf.Analytics.RecentLimit,
	}, log)
	handler.SetAuthService(auth.New(conf.Auth.JWTSecret, repo))

	var limiter ratelimit.Limiter
	if conf.RateLimit.Enabled {
		limiter = setupLimiter(ctx, conf, log)
	}

	server := api.New(conf, log, handler, limiter)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", sl.Err(err))
	}
	log.Info("service stopped")
}

func setupLimiter(ctx context.Context, conf *config.Config, log *slog.Logger) ratelimit.Limiter {
	rule := ratelimit.Rule{
		Requests: conf.RateLimit.Requests,
		Window:   time.Duration(conf.RateLimit.WindowSec) * time.Second,
	}

	if conf.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Address,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable, using in-process limiter", sl.Err(err))
		} else if limiter, err := ratelimit.NewRedisLimiter(client, rule); err == nil {
			log.Info("rate limit backed by redis", slog.String("address", conf.Redis.Address))
			return limiter
		} else {
			log.Error("redis limiter", sl.Err(err))
		}
	}

	limiter, err := ratelimit.NewMemoryLimiter(rule)
	if err != nil {
		log.Error("rate limit disabled", sl.Err(err))
		return nil
	}
	go limiter.Run(ctx)
	return limiter
}
