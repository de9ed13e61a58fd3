package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"fitcheckapi/feedback"
	"fitcheckapi/models"
	"fitcheckapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const freePlanFollowUpLimit = 3

// the answer returned when the single follow-up model call fails, never
// persisted so history stays clean
const followUpApology = "Sorry, I couldn't think that one through right now. Please ask me again in a moment."

type FollowUpIn struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type FollowUpController struct {
	Stylist services.LLMStylistProvider
}

func (controller *FollowUpController) FollowUpRoutes(g *echo.Group) {
	g.POST("/:analysisId/followup", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var analysisId uint
		if err := echo.PathParamsBinder(c).Uint("analysisId", &analysisId).BindError(); err != nil {
			return echo.ErrBadRequest
		}
		followUpIn := new(FollowUpIn)
		if err := c.Bind(followUpIn); err != nil {
			return err
		}
		if err := c.Validate(followUpIn); err != nil {
			return err
		}

		var analysis models.OutfitAnalysis
		r := db.Limit(1).Find(&analysis, "id = ? and owner_id = ?", analysisId, user.ID)
		if r.RowsAffected == 0 {
			return echo.ErrNotFound
		}
		if analysis.Status != "completed" || analysis.AIFeedback == nil {
			return c.JSON(http.StatusConflict, echo.Map{"message": "Analysis is not finished yet"})
		}

		if user.Subscription == nil {
			var count int64
			db.Model(&models.FollowUpExchange{}).Where("outfit_analysis_id = ?", analysis.ID).Count(&count)
			if count >= freePlanFollowUpLimit {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Follow-up limit reached for this analysis, upgrade to continue"})
			}
		}

		// ground the question in the delivered feedback
		var delivered feedback.OutfitFeedback
		if err := json.Unmarshal([]byte(*analysis.AIFeedback), &delivered); err != nil {
			sentry.CaptureException(fmt.Errorf("[Analysis: %v] Stored feedback is not parseable: %v", analysis.ID, err))
			return echo.ErrInternalServerError
		}
		prompt := feedback.ComposeFollowUpPrompt(delivered.Summary, analysis.AIScore, followUpIn.Question)

		// single call, no retry budget here
		response, err := controller.Stylist.AnswerFollowUp(prompt, services.Flash25)
		if err != nil || response == nil || response.Response == "" {
			fmt.Printf("[Analysis: %v] Follow-up call failed: %v\n", analysis.ID, err)
			return c.JSON(http.StatusOK, echo.Map{"answer": followUpApology})
		}

		exchange := models.FollowUpExchange{
			OutfitAnalysisID: analysis.ID,
			UserQuestion:     followUpIn.Question,
			AIResponse:       response.Response,
		}
		if err := db.Create(&exchange).Error; err != nil {
			sentry.CaptureException(fmt.Errorf("[Analysis: %v] Error saving follow-up exchange: %v", analysis.ID, err))
			return echo.ErrInternalServerError
		}

		return c.JSON(http.StatusCreated, echo.Map{"answer": response.Response, "exchange": exchange})
	})

	g.GET("/:analysisId/followups", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var analysisId uint
		if err := echo.PathParamsBinder(c).Uint("analysisId", &analysisId).BindError(); err != nil {
			return echo.ErrBadRequest
		}

		var analysis models.OutfitAnalysis
		r := db.Limit(1).Find(&analysis, "id = ? and owner_id = ?", analysisId, user.ID)
		if r.RowsAffected == 0 {
			return echo.ErrNotFound
		}

		var exchanges []models.FollowUpExchange
		if err := db.Where("outfit_analysis_id = ?", analysis.ID).Order("created_at asc").Find(&exchanges).Error; err != nil {
			return echo.ErrInternalServerError
		}
		return c.JSON(http.StatusOK, echo.Map{"followups": exchanges})
	})
}
