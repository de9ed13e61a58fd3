package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fitcheckapi/feedback"
	"fitcheckapi/models"
	"fitcheckapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const TypeOutfitAnalysis = "analyze:outfit"
const TypeCalibrationReport = "calibration:report"

type OutfitAnalysisPayload struct {
	AnalysisID uint `json:"analysis_id"`
}

// Client initializes an asynq client for enqueuing tasks
func NewClient() (*asynq.Client, error) {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}), nil
}

// Model retries belong to the feedback invoker, the queue gets no retry
// budget of its own.
func analysisTaskOptions() []asynq.Option {
	return []asynq.Option{asynq.MaxRetry(0)}
}

func NewOutfitAnalysisTask(analysisID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(OutfitAnalysisPayload{AnalysisID: analysisID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOutfitAnalysis, payload, analysisTaskOptions()...), nil
}

func NewCalibrationReportTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeCalibrationReport, nil), nil
}

// getImageForAnalysis materializes the submitted photo as a temp file the
// model client can upload. Exactly one of ImageKey/InlineImage is set, the
// create endpoint enforces that.
func getImageForAnalysis(awsService services.AWSServiceProvider, analysis models.OutfitAnalysis) (string, error) {
	if analysis.ImageKey != nil {
		bucketName := os.Getenv("R2_BUCKET_NAME")
		fmt.Printf("[Analysis: %v] Request presigned download url for %s\n", analysis.ID, *analysis.ImageKey)
		fileUrl, err := awsService.GetPresignedR2FileReadURL(context.TODO(), bucketName, *analysis.ImageKey)
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Analysis: %v] Error on getting presigned URL for %s: %v", analysis.ID, *analysis.ImageKey, err))
			return "", err
		}
		fileBytes, err := services.ReadFileFromUrl(fileUrl)
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Analysis: %v] Error on downloading %s: %v", analysis.ID, *analysis.ImageKey, err))
			return "", err
		}
		return services.CreateTempFile(fileBytes, fmt.Sprintf("outfit-%d.jpg", analysis.ID))
	}
	if analysis.InlineImage != nil {
		fileBytes, err := services.DecodeInlineImage(*analysis.InlineImage)
		if err != nil {
			return "", fmt.Errorf("[Analysis: %v] error decoding inline image: %v", analysis.ID, err)
		}
		return services.CreateTempFile(fileBytes, fmt.Sprintf("outfit-%d.jpg", analysis.ID))
	}
	return "", fmt.Errorf("[Analysis: %v] no image source present", analysis.ID)
}

func saveAnalysisProcessingFail(db *gorm.DB, analysis models.OutfitAnalysis, msg string) error {
	analysis.Status = "completed"
	analysis.ProcessingErrorMessage = &msg
	analysis.RetryTimes = analysis.RetryTimes + 1
	return db.Omit("alert_when_processed").Save(&analysis).Error
}

// FingerprintWriteResult makes the best-effort history append a first-class
// outcome instead of a swallowed error, callers log it and move on.
type FingerprintWriteResult struct {
	FingerprintID uint
	Err           error
}

func (r FingerprintWriteResult) Ok() bool {
	return r.Err == nil
}

// appendFingerprintHistory upserts the fingerprint row for this analysis.
// Reanalysis replaces the existing row in place, keeping one row per
// analysis in the user's history.
func appendFingerprintHistory(db *gorm.DB, analysis models.OutfitAnalysis, fb *feedback.OutfitFeedback) FingerprintWriteResult {
	score := 0.0
	if fb.OverallScore != nil {
		score = *fb.OverallScore
	}
	dna := fb.StyleDNA
	fingerprint := models.StyleFingerprint{
		UserAccountID:    analysis.OwnerID,
		OutfitAnalysisID: analysis.ID,
		Score:            score,
		DominantColors:   dna.DominantColors,
		ColorHarmony:     dna.ColorHarmony,
		ColorCount:       dna.ColorCount,
		FormalityLevel:   dna.FormalityLevel,
		StyleArchetypes:  dna.StyleArchetypes,
		SilhouetteType:   dna.SilhouetteType,
		Garments:         dna.Garments,
		Patterns:         dna.Patterns,
		Textures:         dna.Textures,
		ColorScore:       dna.ColorScore,
		ProportionScore:  dna.ProportionScore,
		FitScore:         dna.FitScore,
		CoherenceScore:   dna.CoherenceScore,
	}
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "outfit_analysis_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "dominant_colors", "color_harmony", "color_count", "formality_level",
			"style_archetypes", "silhouette_type", "garments", "patterns", "textures",
			"color_score", "proportion_score", "fit_score", "coherence_score", "updated_at",
		}),
	}).Create(&fingerprint)
	if tx.Error != nil {
		return FingerprintWriteResult{Err: tx.Error}
	}
	return FingerprintWriteResult{FingerprintID: fingerprint.ID}
}

// HandleOutfitAnalysisTask runs the full feedback pipeline for one analysis:
// snapshot insights and calibration, compose the prompt, drive the model
// retry loop and persist whatever came out, fallback included.
func HandleOutfitAnalysisTask(
	ctx context.Context, t *asynq.Task, db *gorm.DB, stylist services.LLMStylistProvider,
	awsService services.AWSServiceProvider, fbApp *firebase.App) error {
	var payload OutfitAnalysisPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Analysis: %v] Start Processing\n", payload.AnalysisID)

	var analysis models.OutfitAnalysis
	res := db.Joins("Owner").First(&analysis, payload.AnalysisID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving analysis for processing %v", payload.AnalysisID))
		return res.Error
	}

	analysis.Status = "processing"
	if err := db.Omit("alert_when_processed").Save(&analysis).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Analysis: %v] Error marking analysis processing: %v", payload.AnalysisID, err))
		return err
	}

	imagePath, err := getImageForAnalysis(awsService, analysis)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Analysis: %v] Error on getting image: %v", payload.AnalysisID, err))
		if saveErr := saveAnalysisProcessingFail(db, analysis, "Failed to read your outfit photo, please submit it again"); saveErr != nil {
			fmt.Printf("[Analysis: %v] Error saving failed state: %v\n", payload.AnalysisID, saveErr)
			sentry.CaptureException(fmt.Errorf("[Analysis: %v] Error saving failed state: %v", payload.AnalysisID, saveErr))
		}
		return err
	}
	defer os.Remove(imagePath)

	// read-only snapshots, taken once per run
	insights, err := feedback.StyleInsights(db, analysis.OwnerID)
	if err != nil {
		fmt.Printf("[Analysis: %v] Error computing style insights, proceeding without: %v\n", payload.AnalysisID, err)
		insights = nil
	}
	calibrationNote, err := feedback.CalibrationNote(db)
	if err != nil {
		fmt.Printf("[Analysis: %v] Error computing calibration note, proceeding without: %v\n", payload.AnalysisID, err)
		calibrationNote = nil
	}

	var profile *models.StyleProfile
	var loadedProfile models.StyleProfile
	if db.Where("user_account_id = ?", analysis.OwnerID).First(&loadedProfile).Error == nil {
		profile = &loadedProfile
	}

	prompt := feedback.ComposePrompt(feedback.PromptInput{
		Occasions:        analysis.Occasions,
		Setting:          analysis.Setting,
		Weather:          analysis.Weather,
		Vibe:             analysis.Vibe,
		SpecificConcerns: analysis.SpecificConcerns,
		Profile:          profile,
		Insights:         insights,
		CalibrationNote:  calibrationNote,
	})

	model := services.Flash25
	modelString := model.String()
	fmt.Printf("[Analysis: %v] Model: %s\n", payload.AnalysisID, modelString)

	invoker := feedback.NewInvoker(stylist, model)
	result := invoker.Run(prompt, imagePath)

	var accepted *feedback.OutfitFeedback
	if result.State == feedback.StateAccepted {
		accepted = result.Feedback
		if result.Raw != nil {
			analysis.InputTokenCount = &result.Raw.InputTokenCount
			analysis.ThoughtsTokenCount = &result.Raw.ThoughtsTokenCount
			analysis.OutputTokenCount = &result.Raw.OutputTokenCount
			analysis.TotalTokenCount = &result.Raw.TotalTokenCount
			analysis.Thoughts = &result.Raw.Thoughts
		}
	} else {
		fmt.Printf("[Analysis: %v] All attempts failed, substituting fallback: %v\n", payload.AnalysisID, result.LastErr)
		sentry.CaptureException(fmt.Errorf("[Analysis: %v] Feedback exhausted after %d attempts: %v", payload.AnalysisID, result.Attempts, result.LastErr))
		accepted = feedback.FallbackFeedback()
		if result.LastErr != nil {
			analysis.FailedToProcessLLMResponse = result.LastErr.Error()
		}
	}

	if accepted.OverallScore != nil && (*accepted.OverallScore < 1 || *accepted.OverallScore > 10) {
		fmt.Printf("[Analysis: %v] Overall score %.2f outside 1-10, persisting as-is\n", payload.AnalysisID, *accepted.OverallScore)
	}

	feedbackJSON, err := json.Marshal(accepted)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Analysis: %v] Error marshaling feedback: %v", payload.AnalysisID, err))
		return err
	}
	feedbackText := string(feedbackJSON)

	now := time.Now()
	analysis.AIFeedback = &feedbackText
	analysis.AIScore = accepted.OverallScore
	analysis.ProcessedAt = &now
	analysis.Status = "completed"
	analysis.RetryTimes = result.Attempts
	analysis.LLMModel = &modelString
	analysis.ProcessingErrorMessage = nil
	tx := db.Omit("alert_when_processed").Save(&analysis)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on saving analysis %v", payload.AnalysisID))
		return tx.Error
	}

	fingerprintResult := appendFingerprintHistory(db, analysis, accepted)
	if !fingerprintResult.Ok() {
		fmt.Printf("[Analysis: %v] Fingerprint history write failed: %v\n", payload.AnalysisID, fingerprintResult.Err)
		sentry.CaptureException(fmt.Errorf("[Analysis: %v] Fingerprint history write failed: %v", payload.AnalysisID, fingerprintResult.Err))
	}

	fmt.Printf("[Analysis: %v] Feedback finished successfully\n", payload.AnalysisID)
	if analysis.AlertWhenProcessed && fbApp != nil {
		fmt.Printf("[Analysis: %v] Sending notification to user %v\n", payload.AnalysisID, analysis.OwnerID)
		services.SendNotification(fbApp, db, analysis.OwnerID, "Your fit check is ready", "Our stylist finished reviewing your outfit", map[string]string{"analysis_id": fmt.Sprintf("%d", analysis.ID), "type": "analysis_completed"})
	}
	return nil
}

// OpsReporter sends operational summaries somewhere visible, in production
// the telegram bot.
type OpsReporter interface {
	SendReport(message string) error
}

// HandleCalibrationReportTask computes the current score calibration and
// reports it to the ops channel. Runs on the scheduler, not user-triggered.
func HandleCalibrationReportTask(ctx context.Context, t *asynq.Task, db *gorm.DB, reporter OpsReporter) error {
	note, err := feedback.CalibrationNote(db)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error computing calibration report: %v", err))
		return err
	}
	message := "Calibration: AI scores track peer consensus within threshold."
	if note != nil {
		message = "Calibration drift detected. " + *note
	}
	if reporter == nil {
		fmt.Println("No ops reporter configured, skipping calibration report:", message)
		return nil
	}
	if err := reporter.SendReport(message); err != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error sending calibration report: %v", err))
		return err
	}
	return nil
}
