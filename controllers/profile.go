package controllers

import (
	"net/http"

	"fitcheckapi/models"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ProfileController struct {
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		return c.JSON(http.StatusOK, user)
	})

	g.POST("/push", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		pushIn := new(models.UserPushIn)
		if err := c.Bind(pushIn); err != nil {
			return err
		}
		if !models.ValidatePlatformRaw(pushIn.Platform) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Please provide proper platform parameter"})
		}

		var existing models.UserPushToken
		r := db.Limit(1).Find(&existing, "user_account_id = ? and token = ?", user.ID, pushIn.Token)
		if r.RowsAffected > 0 {
			existing.Active = true
			existing.Platform = models.ScanPlatform(pushIn.Platform)
			db.Save(&existing)
			return c.JSON(http.StatusOK, existing)
		}

		tokenDb := models.UserPushToken{
			UserAccountID: user.ID,
			Platform:      models.ScanPlatform(pushIn.Platform),
			Token:         pushIn.Token,
			Active:        true,
		}
		db.Create(&tokenDb)
		return c.JSON(http.StatusCreated, tokenDb)
	})

	g.GET("/style", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var profile models.StyleProfile
		r := db.Limit(1).Find(&profile, "user_account_id = ?", user.ID)
		if r.RowsAffected == 0 {
			return c.JSON(http.StatusOK, echo.Map{"style_profile": nil})
		}
		return c.JSON(http.StatusOK, echo.Map{"style_profile": profile})
	})

	g.PUT("/style", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		profileIn := new(models.StyleProfileIn)
		if err := c.Bind(profileIn); err != nil {
			return err
		}
		if err := c.Validate(profileIn); err != nil {
			return err
		}

		var profile models.StyleProfile
		r := db.Limit(1).Find(&profile, "user_account_id = ?", user.ID)
		profile.UserAccountID = user.ID
		profile.HeightCm = profileIn.HeightCm
		profile.BodyType = profileIn.BodyType
		profile.SkinTone = profileIn.SkinTone
		profile.StylePreferences = profileIn.StylePreferences
		profile.Lifestyle = profileIn.Lifestyle
		profile.Goals = profileIn.Goals
		profile.Budget = profileIn.Budget
		if r.RowsAffected == 0 {
			if err := db.Create(&profile).Error; err != nil {
				return echo.ErrInternalServerError
			}
			return c.JSON(http.StatusCreated, echo.Map{"style_profile": profile})
		}
		if err := db.Save(&profile).Error; err != nil {
			return echo.ErrInternalServerError
		}
		return c.JSON(http.StatusOK, echo.Map{"style_profile": profile})
	})
}
