// Command events tails post lifecycle events from Redis and prints them as
// JSON lines.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/middleware"
	"quill/internal/notifications"
)

func main() {
	types := flag.String("type", "", "Comma-separated event types to show (default all)")
	duration := flag.Duration("duration", 0, "Stop after this long (default until interrupted)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.Logger = middleware.NewLogger(cfg.Env)

	rdb := cache.InitRedis(cfg.RedisURL)
	if rdb == nil {
		log.Fatal("Redis is required to tail events")
	}
	defer func() { _ = rdb.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var wanted []string
	if *types != "" {
		wanted = strings.Split(*types, ",")
	}
	match := notifications.MatchTypes(wanted...)
	enc := json.NewEncoder(os.Stdout)

	err = notifications.NewNotifier(rdb).Subscribe(ctx, func(evt notifications.Event) {
		if !match(evt) {
			return
		}
		if err := enc.Encode(evt); err != nil {
			log.Printf("write event: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	log.Printf("Listening on %s", notifications.EventsChannel)

	<-ctx.Done()
}
