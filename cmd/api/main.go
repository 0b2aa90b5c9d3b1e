package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/channel"
	channelrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/channel/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/media"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/migrations"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/utilities"
)

func main() {
	// best-effort: real env wins when no .env exists
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-user-go")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	if dbCfg.AutoMigrate {
		if err := migrations.Up(ctx, sqlDB); err != nil {
			sugar.Fatalf("db migrate: %v", err)
		}
		sugar.Info("database schema up to date")
	}
	db := database.Wrap(sqlDB)

	tokCfg := token.ConfigFromEnv()
	if err := tokCfg.Validate(); err != nil {
		sugar.Fatalf("token config: %v", err)
	}
	codec, err := token.NewCodec(tokCfg)
	if err != nil {
		sugar.Fatalf("token codec: %v", err)
	}

	mediaCfg := media.ConfigFromEnv()
	uploader, err := media.NewUploader(ctx, mediaCfg)
	if err != nil {
		sugar.Fatalf("media uploader: %v", err)
	}
	store := media.NewStore(uploader, sugar)
	stager := mediaCfg.Stager()

	routerCfg := router.ConfigFromEnv()
	memLimiter := router.NewMemoryLimiter(routerCfg.RatePerMinute, 10*time.Minute)
	go memLimiter.RunEviction(ctx, time.Minute)
	var limiter router.Limiter = memLimiter
	if url := database.RedisURLFromEnv(); url != "" {
		rdb, err := database.ConnectRedis(ctx, url)
		if err != nil {
			sugar.Warnw("redis unavailable, using in-process rate limiter", "err", err)
		} else {
			defer rdb.Close()
			limiter = router.NewRedisLimiter(rdb, routerCfg.RatePerMinute, sugar)
		}
	}

	users := userrepo.NewUserRepo(db)
	ids := utilities.NewIDGenerator(utilities.NodeFromEnv())
	authSvc := auth.NewService(users, user.BcryptHasher{Cost: user.DefaultBcryptCost}, codec, store, ids, sugar)
	profileSvc := user.NewProfileService(users, store, sugar)
	channelSvc := channel.NewService(channelrepo.NewChannelRepo(db), sugar)

	handler := router.New(sugar, routerCfg, router.Handlers{
		Auth:    auth.NewHandler(authSvc, stager, auth.CookieConfigFromEnv(), sugar),
		User:    user.NewHandler(profileSvc, stager, sugar),
		Channel: channel.NewHandler(channelSvc, sugar),
	}, authSvc, limiter)

	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr, "prefix", routerCfg.Prefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}

func listenAddr() string {
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		return addr
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	return net.JoinHostPort("0.0.0.0", port)
}
