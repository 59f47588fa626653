package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/abenezer-sh/fixit/internal/cache"
	"github.com/abenezer-sh/fixit/internal/config"
	"github.com/abenezer-sh/fixit/internal/db"
	"github.com/abenezer-sh/fixit/internal/handyman"
	"github.com/abenezer-sh/fixit/internal/job"
	"github.com/abenezer-sh/fixit/internal/messaging"
	appmw "github.com/abenezer-sh/fixit/internal/middleware"
	"github.com/abenezer-sh/fixit/internal/notify"
	"github.com/abenezer-sh/fixit/internal/rating"
)

func main() {
	cfg := config.Load()

	db.Init(cfg.DatabaseURL)
	redis := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	defer redis.Close()

	notifySvc := notify.NewService(db.Conn)

	handymanSvc := handyman.NewService(handyman.NewPGStore(db.Conn))
	jobSvc := job.NewService(job.NewPGStore(db.Conn), notifySvc, cfg.CommissionRate)
	ratingSvc := rating.NewService(rating.NewPGStore(db.Conn), notifySvc)
	messagingSvc := messaging.NewService(messaging.NewPGStore(db.Conn), notifySvc)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	g := e.Group("")
	g.Use(appmw.JWT(cfg.JWTSecret))

	handyman.NewHandler(handymanSvc, redis).Register(e, g)
	job.NewHandler(jobSvc).Register(g)
	rating.NewHandler(ratingSvc).Register(e, g)
	messaging.NewHandler(messagingSvc).Register(g)
	notify.NewHandler(notifySvc).Register(g)

	log.Printf("API server listening on :%s", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
