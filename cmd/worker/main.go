package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"fitcheckapi/dbhelper"
	"fitcheckapi/services"
	"fitcheckapi/tasks"
	"fitcheckapi/telegram"

	firebase "firebase.google.com/go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
)

func runScheduler() {

	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	calibrationTask, err := tasks.NewCalibrationReportTask()
	if err != nil {
		log.Fatalf("Failed to build calibration report task: %v", err)
	}

	scheduled := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "0 9 * * *", // 9:00 AM daily
			task: calibrationTask,
			desc: "Daily score calibration report",
		},
	}

	for _, t := range scheduled {
		entryID, err := scheduler.Register(t.cron, t.task)
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", t.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", t.desc, entryID, t.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func opsReporter() tasks.OpsReporter {
	token := os.Getenv("TG_TOKEN")
	chatIDRaw := os.Getenv("TG_OPS_CHAT_ID")
	if token == "" || chatIDRaw == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(chatIDRaw, 10, 64)
	if err != nil {
		log.Printf("Invalid TG_OPS_CHAT_ID %q: %v", chatIDRaw, err)
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("Error initializing ops bot: %v", err)
		return nil
	}
	return telegram.NewReporter(bot, chatID)
}

func main() {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")},
		asynq.Config{Concurrency: 10},
	)
	awsService := &services.AWSService{}
	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("[Queue] Failed to initialize AWS provider: S3")
	}
	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("error initializing firebase app: %v\n", err)
		return
	}

	var stylist services.LLMStylistProvider = services.GoogleLLMStylist{}
	if os.Getenv("STYLIST_OFFLINE_MODE") == "true" {
		log.Println("[Queue] STYLIST_OFFLINE_MODE enabled, serving canned feedback")
		stylist = services.MockLLMStylist{}
	}
	reporter := opsReporter()

	mux := asynq.NewServeMux()
	db := dbhelper.SetupDB()
	mux.HandleFunc(tasks.TypeOutfitAnalysis, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleOutfitAnalysisTask(ctx, t, db, stylist, awsService, app)
	})
	mux.HandleFunc(tasks.TypeCalibrationReport, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleCalibrationReportTask(ctx, t, db, reporter)
	})

	go runScheduler()
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
