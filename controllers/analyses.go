package controllers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"fitcheckapi/models"
	"fitcheckapi/services"
	"fitcheckapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// free plan gets a taste of the product, pro is unlimited
const freePlanAnalysisLimit = 5

type CreateAnalysisIn struct {
	Occasions          []string `json:"occasions" validate:"required,min=1,dive,max=100"`
	Setting            *string  `json:"setting" validate:"omitempty,max=200"`
	Weather            *string  `json:"weather" validate:"omitempty,max=200"`
	Vibe               *string  `json:"vibe" validate:"omitempty,max=200"`
	SpecificConcerns   *string  `json:"specific_concerns" validate:"omitempty,max=2000"`
	ImageBase64        *string  `json:"image_base64"`
	FileName           *string  `json:"file_name" validate:"omitempty,max=500"`
	AlertWhenProcessed *bool    `json:"alert_when_processed"`
}

type RateAnalysisIn struct {
	Score float64 `json:"score" validate:"required,min=1,max=10"`
}

type AnalysisOut struct {
	models.OutfitAnalysis
	ImageURL *string `json:"image_url"`
}

type AnalysisController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
}

func (controller *AnalysisController) analysisOut(c echo.Context, analysis models.OutfitAnalysis) AnalysisOut {
	out := AnalysisOut{OutfitAnalysis: analysis}
	if analysis.ImageKey != nil && controller.URLCache != nil {
		url, err := controller.URLCache.GetReadURL(c.Request().Context(), *analysis.ImageKey)
		if err != nil {
			fmt.Println("Error getting read URL for", *analysis.ImageKey, err)
		} else if url != "" {
			out.ImageURL = &url
		}
	}
	return out
}

func enqueueAnalysis(c echo.Context, analysisID uint) error {
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok || asynqClient == nil {
		fmt.Println("Asynq client not configured, analysis stays pending:", analysisID)
		return nil
	}
	task, err := tasks.NewOutfitAnalysisTask(analysisID)
	if err != nil {
		return err
	}
	_, err = asynqClient.Enqueue(task)
	return err
}

func (controller *AnalysisController) AnalysisRoutes(g *echo.Group) {
	g.POST("", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		analysisIn := new(CreateAnalysisIn)
		if err := c.Bind(analysisIn); err != nil {
			return err
		}
		if err := c.Validate(analysisIn); err != nil {
			return err
		}
		hasInline := analysisIn.ImageBase64 != nil && *analysisIn.ImageBase64 != ""
		hasFile := analysisIn.FileName != nil && *analysisIn.FileName != ""
		if hasInline == hasFile {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Provide exactly one image source: image_base64 or file_name"})
		}

		if user.Subscription == nil {
			var count int64
			db.Model(&models.OutfitAnalysis{}).Where("owner_id = ?", user.ID).Count(&count)
			if count >= freePlanAnalysisLimit {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Free plan analysis limit reached, upgrade to continue"})
			}
		}

		analysis := models.OutfitAnalysis{
			OwnerID:          user.ID,
			Occasions:        pq.StringArray(analysisIn.Occasions),
			Setting:          analysisIn.Setting,
			Weather:          analysisIn.Weather,
			Vibe:             analysisIn.Vibe,
			SpecificConcerns: analysisIn.SpecificConcerns,
			Status:           "pending",
		}
		if analysisIn.AlertWhenProcessed != nil {
			analysis.AlertWhenProcessed = *analysisIn.AlertWhenProcessed
		}

		var uploadUrl *string
		if hasInline {
			analysis.InlineImage = analysisIn.ImageBase64
		} else {
			imageKey := fmt.Sprintf("outfits/%d/%d-%s", user.ID, time.Now().UnixNano(), *analysisIn.FileName)
			analysis.ImageKey = &imageKey
			url, err := controller.AWSService.PresignLink(c.Request().Context(), os.Getenv("R2_BUCKET_NAME"), imageKey)
			if err != nil {
				sentry.CaptureException(fmt.Errorf("Error presigning upload link for user %v: %v", user.ID, err))
				return echo.ErrInternalServerError
			}
			uploadUrl = &url
		}

		if err := db.Create(&analysis).Error; err != nil {
			sentry.CaptureException(fmt.Errorf("Error creating analysis for user %v: %v", user.ID, err))
			return echo.ErrInternalServerError
		}

		// inline submissions carry the photo already, queue right away;
		// upload submissions get queued when the client confirms via
		// the reanalyze endpoint after the PUT to the presigned URL
		if hasInline {
			if err := enqueueAnalysis(c, analysis.ID); err != nil {
				sentry.CaptureException(fmt.Errorf("Error enqueuing analysis %v: %v", analysis.ID, err))
				return echo.ErrInternalServerError
			}
		}

		return c.JSON(http.StatusCreated, echo.Map{
			"analysis":   controller.analysisOut(c, analysis),
			"upload_url": uploadUrl,
		})
	})

	g.POST("/:analysisId/reanalyze", func(c echo.Context) error {
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
		if analysis.Status == "processing" {
			return c.JSON(http.StatusConflict, echo.Map{"message": "Analysis is already being processed"})
		}

		if err := enqueueAnalysis(c, analysis.ID); err != nil {
			sentry.CaptureException(fmt.Errorf("Error enqueuing reanalysis %v: %v", analysis.ID, err))
			return echo.ErrInternalServerError
		}
		return c.JSON(http.StatusAccepted, echo.Map{"message": "Analysis queued"})
	})

	g.GET("", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var analyses []models.OutfitAnalysis
		r := db.Where("owner_id = ?", user.ID).Order("created_at desc").Limit(50).Find(&analyses)
		if r.Error != nil {
			return echo.ErrInternalServerError
		}
		out := make([]AnalysisOut, 0, len(analyses))
		for _, analysis := range analyses {
			out = append(out, controller.analysisOut(c, analysis))
		}
		return c.JSON(http.StatusOK, echo.Map{"analyses": out})
	})

	g.GET("/:analysisId", func(c echo.Context) error {
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
		return c.JSON(http.StatusOK, echo.Map{"analysis": controller.analysisOut(c, analysis)})
	})

	g.POST("/:analysisId/rate", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var analysisId uint
		if err := echo.PathParamsBinder(c).Uint("analysisId", &analysisId).BindError(); err != nil {
			return echo.ErrBadRequest
		}
		rateIn := new(RateAnalysisIn)
		if err := c.Bind(rateIn); err != nil {
			return err
		}
		if err := c.Validate(rateIn); err != nil {
			return err
		}

		var analysis models.OutfitAnalysis
		r := db.Limit(1).Find(&analysis, "id = ?", analysisId)
		if r.RowsAffected == 0 {
			return echo.ErrNotFound
		}
		if analysis.OwnerID == user.ID {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "You can't rate your own outfit"})
		}

		var rating models.PeerRating
		existing := db.Limit(1).Find(&rating, "outfit_analysis_id = ? and rater_id = ?", analysis.ID, user.ID)
		rating.OutfitAnalysisID = analysis.ID
		rating.RaterID = user.ID
		rating.Score = rateIn.Score
		if existing.RowsAffected == 0 {
			if err := db.Create(&rating).Error; err != nil {
				return echo.ErrInternalServerError
			}
		} else {
			if err := db.Save(&rating).Error; err != nil {
				return echo.ErrInternalServerError
			}
		}

		// recompute the denormalized consensus from the ratings table so
		// concurrent raters converge on the same numbers
		var sum float64
		var count int64
		row := db.Model(&models.PeerRating{}).Where("outfit_analysis_id = ?", analysis.ID).
			Select("coalesce(sum(score), 0)").Row()
		if err := row.Scan(&sum); err != nil {
			return echo.ErrInternalServerError
		}
		db.Model(&models.PeerRating{}).Where("outfit_analysis_id = ?", analysis.ID).Count(&count)

		analysis.PeerScoreSum = sum
		analysis.PeerVoteCount = int(count)
		if err := db.Model(&models.OutfitAnalysis{}).Where("id = ?", analysis.ID).
			Updates(map[string]interface{}{"peer_score_sum": sum, "peer_vote_count": count}).Error; err != nil {
			return echo.ErrInternalServerError
		}

		return c.JSON(http.StatusOK, echo.Map{
			"peer_average":    analysis.PeerAverage(),
			"peer_vote_count": analysis.PeerVoteCount,
		})
	})
}
