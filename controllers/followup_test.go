package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"fitcheckapi/dbhelper"
	"fitcheckapi/models"
	"fitcheckapi/test"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)
	analysis := completedAnalysis(t, db, user.ID)

	rec := doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/followup", analysis.ID), UIntToStr(user.ID), FollowUpIn{
		Question: "What shoes would work better with this?",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	answer, ok := response["answer"].(string)
	require.True(t, ok)
	assert.Contains(t, answer, "loafers")

	var exchanges []models.FollowUpExchange
	require.NoError(t, db.Where("outfit_analysis_id = ?", analysis.ID).Find(&exchanges).Error)
	require.Len(t, exchanges, 1)
	assert.Equal(t, "What shoes would work better with this?", exchanges[0].UserQuestion)
	assert.Equal(t, answer, exchanges[0].AIResponse)
}

func TestFollowUpFailureNotPersisted(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, &test.FailingStylist{}, test.URLCacheMock{})
	user := test.FakeUser(db, nil)
	analysis := completedAnalysis(t, db, user.ID)

	rec := doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/followup", analysis.ID), UIntToStr(user.ID), FollowUpIn{
		Question: "What shoes would work better?",
	}))
	// failure is soft, the caller still gets an answer shaped response
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, followUpApology, response["answer"])

	var count int64
	require.NoError(t, db.Model(&models.FollowUpExchange{}).Where("outfit_analysis_id = ?", analysis.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestFollowUpOnUnfinishedAnalysis(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	pending := models.OutfitAnalysis{
		OwnerID:   user.ID,
		Occasions: pq.StringArray{"casual"},
		ImageKey:  StrPointer("outfits/1/p.jpg"),
		Status:    "pending",
	}
	require.NoError(t, db.Create(&pending).Error)

	rec := doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/followup", pending.ID), UIntToStr(user.ID), FollowUpIn{
		Question: "How did it go?",
	}))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFollowUpFreePlanLimit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)
	analysis := completedAnalysis(t, db, user.ID)

	for i := 0; i < freePlanFollowUpLimit; i++ {
		require.NoError(t, db.Create(&models.FollowUpExchange{
			OutfitAnalysisID: analysis.ID,
			UserQuestion:     fmt.Sprintf("question %d", i),
			AIResponse:       "answer",
		}).Error)
	}

	rec := doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/followup", analysis.ID), UIntToStr(user.ID), FollowUpIn{
		Question: "One more question?",
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// pro user with same amount of history keeps going
	proUser := test.FakeUser(db, StrPointer("pro"))
	proAnalysis := completedAnalysis(t, db, proUser.ID)
	for i := 0; i < freePlanFollowUpLimit; i++ {
		require.NoError(t, db.Create(&models.FollowUpExchange{
			OutfitAnalysisID: proAnalysis.ID,
			UserQuestion:     fmt.Sprintf("question %d", i),
			AIResponse:       "answer",
		}).Error)
	}
	rec = doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/followup", proAnalysis.ID), UIntToStr(proUser.ID), FollowUpIn{
		Question: "One more question?",
	}))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestFollowUpListOrdered(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)
	analysis := completedAnalysis(t, db, user.ID)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.FollowUpExchange{
			OutfitAnalysisID: analysis.ID,
			UserQuestion:     fmt.Sprintf("question %d", i),
			AIResponse:       fmt.Sprintf("answer %d", i),
		}).Error)
	}

	rec := doRequest(e, test.NewJSONAuthRequest("GET", fmt.Sprintf("/app/analyses/%v/followups", analysis.ID), UIntToStr(user.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string][]models.FollowUpExchange
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response["followups"], 3)
	assert.Equal(t, "question 0", response["followups"][0].UserQuestion)
	assert.Equal(t, "question 2", response["followups"][2].UserQuestion)

	// not visible to other users
	other := test.FakeUserV2(db, "Other", "")
	rec = doRequest(e, test.NewJSONAuthRequest("GET", fmt.Sprintf("/app/analyses/%v/followups", analysis.ID), UIntToStr(other.ID), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
