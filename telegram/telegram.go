package telegram

import (
	"fmt"
	"log"
	"os"
	"strings"

	"fitcheckapi/feedback"
	"fitcheckapi/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
)

var usernames string = os.Getenv("TG_ADMINS") //separated by comma from env

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

func isAdmin(username string) bool {
	for _, admin := range strings.Split(usernames, ",") {
		if strings.TrimSpace(admin) == username {
			return true
		}
	}
	return false
}

// Reporter pushes ops messages to the configured chat, used by the
// scheduled calibration report task.
type Reporter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewReporter(bot *tgbotapi.BotAPI, chatID int64) *Reporter {
	return &Reporter{bot: bot, chatID: chatID}
}

func (r *Reporter) SendReport(message string) error {
	msg := tgbotapi.NewMessage(r.chatID, message)
	_, err := r.bot.Send(msg)
	return err
}

func calibrationSummary(db *gorm.DB) string {
	note, err := feedback.CalibrationNote(db)
	if err != nil {
		return fmt.Sprintf("Error computing calibration: %v", err)
	}

	var total int64
	db.Model(&models.OutfitAnalysis{}).Where("ai_score is not null").Count(&total)
	var rated int64
	db.Model(&models.OutfitAnalysis{}).Where("ai_score is not null and peer_vote_count >= 3").Count(&rated)

	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("Scored analyses: %d\nWith peer consensus: %d\n", total, rated))
	if note != nil {
		b.WriteString("Drift: " + *note)
	} else {
		b.WriteString("AI scores track peer consensus within threshold.")
	}
	return b.String()
}

// RunOpsBot long-polls the ops bot for admin commands. Blocks, run it on
// its own goroutine.
func RunOpsBot(db *gorm.DB) {
	bot, err := tgbotapi.NewBotAPI(os.Getenv("TG_TOKEN"))
	if err != nil {
		println("Error tg bot init")
		log.Panic(err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		if !isAdmin(update.Message.From.UserName) {
			continue
		}
		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		switch update.Message.Command() {
		case "start":
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Ops bot ready. Commands: /calibration /stats")
			bot.Send(msg)
		case "calibration":
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, calibrationSummary(db))
			bot.Send(msg)
		case "stats":
			var users int64
			db.Model(&models.UserAccount{}).Count(&users)
			var analyses int64
			db.Model(&models.OutfitAnalysis{}).Count(&analyses)
			var followups int64
			db.Model(&models.FollowUpExchange{}).Count(&followups)
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf("Users: %d\nAnalyses: %d\nFollow-ups: %d", users, analyses, followups))
			bot.Send(msg)
		}
	}
}
