package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"fitcheckapi/dbhelper"
	"fitcheckapi/models"
	"fitcheckapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutStyleProfileCreatesAndUpdates(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	rec := doRequest(e, test.NewJSONAuthRequest("PUT", "/app/profile/style", UIntToStr(user.ID), models.StyleProfileIn{
		HeightCm:         IntPointer(178),
		BodyType:         StrPointer("athletic"),
		StylePreferences: StrPointer("minimalist, earth tones"),
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var profile models.StyleProfile
	require.NoError(t, db.Where("user_account_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, 178, *profile.HeightCm)

	rec = doRequest(e, test.NewJSONAuthRequest("PUT", "/app/profile/style", UIntToStr(user.ID), models.StyleProfileIn{
		HeightCm: IntPointer(179),
		Goals:    StrPointer("dress sharper for work"),
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, db.Where("user_account_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, 179, *profile.HeightCm)
	assert.Equal(t, "dress sharper for work", *profile.Goals)
	// fields omitted from the update are cleared, the put is a full replace
	assert.Nil(t, profile.BodyType)

	var count int64
	db.Model(&models.StyleProfile{}).Where("user_account_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestPutStyleProfileValidation(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	rec := doRequest(e, test.NewJSONAuthRequest("PUT", "/app/profile/style", UIntToStr(user.ID), models.StyleProfileIn{
		HeightCm: IntPointer(10),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStyleProfileEmpty(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	rec := doRequest(e, test.NewJSONAuthRequest("GET", "/app/profile/style", UIntToStr(user.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]*models.StyleProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Nil(t, response["style_profile"])
}

func TestRegisterPushToken(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	rec := doRequest(e, test.NewJSONAuthRequest("POST", "/app/profile/push", UIntToStr(user.ID), models.UserPushIn{
		Token:    "new-device-token",
		Platform: "ios",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	// re-registering the same token reactivates instead of duplicating
	rec = doRequest(e, test.NewJSONAuthRequest("POST", "/app/profile/push", UIntToStr(user.ID), models.UserPushIn{
		Token:    "new-device-token",
		Platform: "ios",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.UserPushToken{}).Where("user_account_id = ? and token = ?", user.ID, "new-device-token").Count(&count)
	assert.Equal(t, int64(1), count)
}
