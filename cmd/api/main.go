package main

import (
	"context"
	"log"
	"os"
	"time"

	"fitcheckapi/controllers"
	"fitcheckapi/dbhelper"
	"fitcheckapi/services"
	"fitcheckapi/tasks"
	"fitcheckapi/telegram"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      services.GetEnv("ENV", "local"),
		Release:          "fitcheckapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB()

	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("error initializing firebase app: %v\n", err)
		return
	}
	asynqClient, err := tasks.NewClient()
	if err != nil {
		log.Fatalf("error initializing task queue client: %v", err)
	}
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	awsService := &services.AWSService{}
	urlCache, err := services.NewURLCacheService(awsService, bucketName)
	if err != nil {
		log.Fatal("Failed to initialize URL cache service")
	}

	var stylist services.LLMStylistProvider = services.GoogleLLMStylist{}
	if os.Getenv("STYLIST_OFFLINE_MODE") == "true" {
		log.Println("STYLIST_OFFLINE_MODE enabled, serving canned feedback")
		stylist = services.MockLLMStylist{}
	}

	e := controllers.SetupServer(
		db, services.GoogleService{}, awsService, app,
		asynqClient, stylist, urlCache,
	)
	if os.Getenv("TELEGRAM_BOT") == "true" {
		telegram.RunOpsBot(db)
	} else {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(3)))
		e.Use(middleware.Logger())
		e.Use(middleware.Recover())
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
		e.Logger.Fatal(e.Start(":8083"))
	}
}
