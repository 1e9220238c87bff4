// Command notify-tail prints the notifications published for one user.
// Useful when checking the relay end to end against a local Redis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appauction "github.com/freightbid/backend/internal/application/auction"
	"github.com/freightbid/backend/internal/infrastructure/cache"
	"github.com/freightbid/backend/internal/infrastructure/config"
	"github.com/freightbid/backend/internal/infrastructure/logger"
	"github.com/freightbid/backend/internal/infrastructure/notification"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	userFlag := flag.String("user", "", "user ID to follow")
	flag.Parse()

	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		log.Fatal("A valid -user ID is required", zap.String("user", *userFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer client.Close()

	channel := notification.NewRedisNotifier(client, cfg.Notification.ChannelPrefix, log).Channel(userID)
	enc := json.NewEncoder(os.Stdout)
	err = notification.Subscribe(ctx, client, channel, func(n appauction.Notification) {
		_ = enc.Encode(n)
	}, log)
	if err != nil {
		log.Fatal("Failed to subscribe", zap.Error(err))
	}
	log.Info("Following notifications", zap.String("channel", channel))
	<-ctx.Done()
}
