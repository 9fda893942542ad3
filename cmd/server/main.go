package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/originexpo/ticketing/internal/chapa"
	"github.com/originexpo/ticketing/internal/config"
	"github.com/originexpo/ticketing/internal/database"
	"github.com/originexpo/ticketing/internal/handler"
	"github.com/originexpo/ticketing/internal/notification"
	"github.com/originexpo/ticketing/internal/queue"
	"github.com/originexpo/ticketing/internal/reaper"
	"github.com/originexpo/ticketing/internal/repository"
	"github.com/originexpo/ticketing/internal/router"
	"github.com/originexpo/ticketing/internal/service"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter and response
	// cache become pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	outboxRepo := repository.NewOutboxRepo(db)
	ticketRepo := repository.NewTicketRepo(db, outboxRepo)
	typeRepo := repository.NewTicketTypeRepo(db)
	exhibitorRepo := repository.NewExhibitorRepo(db, outboxRepo)
	store := repository.NewStore(ticketRepo, typeRepo)

	gateway := chapa.New(cfg.ChapaSecret, cfg.ChapaBaseURL)
	publisher := queue.NewPublisher(cfg.AMQPURL)

	var mailer notification.Mailer = notification.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}
	dispatcher := notification.NewDispatcher(outboxRepo, mailer, cfg.OutboxInterval)

	checkout := service.NewCheckoutService(store, gateway, publisher, dispatcher.Wake, cfg.AppBaseURL)
	exhibitors := service.NewExhibitorService(exhibitorRepo, dispatcher.Wake, cfg.BcryptCost)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatcher.Run(ctx)
	go reaper.New(checkout, cfg.ReaperInterval, cfg.PendingTTL).Run(ctx)
	go func() {
		if err := queue.StartTicketConsumer(cfg.AMQPURL); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Tickets:    handler.NewTicketHandler(checkout),
		Exhibitors: handler.NewExhibitorHandler(exhibitors),
		Redis:      rdb,
		RateLimit:  config.LoadRateLimitConfig(),
		Cache:      config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
