package controllers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitcheckapi/dbhelper"
	"fitcheckapi/models"
	"fitcheckapi/test"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testServer(db *gorm.DB) *echo.Echo {
	return SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, nil, nil, &test.MockStylist{}, test.URLCacheMock{})
}

func doRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func inlineImagePayload() string {
	return base64.StdEncoding.EncodeToString([]byte("\xFF\xD8\xFF\xE0fakejpegbody"))
}

func completedAnalysis(t *testing.T, db *gorm.DB, ownerID uint) *models.OutfitAnalysis {
	t.Helper()
	score := 8.2
	stored := test.ValidStylistPayload
	analysis := &models.OutfitAnalysis{
		OwnerID:    ownerID,
		Occasions:  pq.StringArray{"casual"},
		ImageKey:   StrPointer("outfits/1/test.jpg"),
		Status:     "completed",
		AIFeedback: &stored,
		AIScore:    &score,
	}
	require.NoError(t, db.Create(analysis).Error)
	return analysis
}

func TestCreateAnalysisInlineOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	inline := inlineImagePayload()
	reqBody := CreateAnalysisIn{
		Occasions:   []string{"casual", "weekend"},
		Setting:     StrPointer("outdoor cafe"),
		ImageBase64: &inline,
	}
	rec := doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", UIntToStr(user.ID), reqBody))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var response map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	var analysis AnalysisOut
	require.NoError(t, json.Unmarshal(response["analysis"], &analysis))
	assert.Equal(t, "pending", analysis.Status)
	assert.Equal(t, []string{"casual", "weekend"}, []string(analysis.Occasions))
	assert.Equal(t, "null", string(response["upload_url"]))
}

func TestCreateAnalysisUploadOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	reqBody := CreateAnalysisIn{
		Occasions: []string{"date night"},
		FileName:  StrPointer("fit.jpg"),
	}
	rec := doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", UIntToStr(user.ID), reqBody))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	uploadUrl, ok := response["upload_url"].(string)
	require.True(t, ok, "expected upload_url in response")
	assert.Contains(t, uploadUrl, "fakebucketurl.com")

	var saved models.OutfitAnalysis
	require.NoError(t, db.Where("owner_id = ?", user.ID).First(&saved).Error)
	require.NotNil(t, saved.ImageKey)
	assert.Contains(t, *saved.ImageKey, "fit.jpg")
	assert.Nil(t, saved.InlineImage)
}

func TestCreateAnalysisExactlyOneImageSource(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	inline := inlineImagePayload()

	// both present
	rec := doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", UIntToStr(user.ID), CreateAnalysisIn{
		Occasions:   []string{"casual"},
		ImageBase64: &inline,
		FileName:    StrPointer("fit.jpg"),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// neither present
	rec = doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", UIntToStr(user.ID), CreateAnalysisIn{
		Occasions: []string{"casual"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAnalysisRequiresOccasions(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	inline := inlineImagePayload()
	rec := doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", UIntToStr(user.ID), CreateAnalysisIn{
		Occasions:   []string{},
		ImageBase64: &inline,
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAnalysisUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)

	inline := inlineImagePayload()
	rec := doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", "", CreateAnalysisIn{
		Occasions:   []string{"casual"},
		ImageBase64: &inline,
	}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAnalysisFreePlanLimit(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)

	for i := 0; i < freePlanAnalysisLimit; i++ {
		completedAnalysis(t, db, user.ID)
	}

	inline := inlineImagePayload()
	rec := doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", UIntToStr(user.ID), CreateAnalysisIn{
		Occasions:   []string{"casual"},
		ImageBase64: &inline,
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// pro users are not limited
	proUser := test.FakeUser(db, StrPointer("pro"))
	for i := 0; i < freePlanAnalysisLimit; i++ {
		completedAnalysis(t, db, proUser.ID)
	}
	rec = doRequest(e, test.NewJSONAuthRequest("POST", "/app/analyses", UIntToStr(proUser.ID), CreateAnalysisIn{
		Occasions:   []string{"casual"},
		ImageBase64: &inline,
	}))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListAndGetAnalyses(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)
	other := test.FakeUserV2(db, "Other", "")

	mine := completedAnalysis(t, db, user.ID)
	completedAnalysis(t, db, other.ID)

	rec := doRequest(e, test.NewJSONAuthRequest("GET", "/app/analyses", UIntToStr(user.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listResponse map[string][]AnalysisOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResponse))
	require.Len(t, listResponse["analyses"], 1)
	assert.Equal(t, mine.ID, listResponse["analyses"][0].ID)
	require.NotNil(t, listResponse["analyses"][0].ImageURL)
	assert.Contains(t, *listResponse["analyses"][0].ImageURL, "fakebucketurl.com")

	// other user's analysis is not reachable directly
	rec = doRequest(e, test.NewJSONAuthRequest("GET", fmt.Sprintf("/app/analyses/%v", mine.ID), UIntToStr(other.ID), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateAnalysis(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	owner := test.FakeUser(db, nil)
	rater := test.FakeUserV2(db, "Rater", "")
	analysis := completedAnalysis(t, db, owner.ID)

	rec := doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/rate", analysis.ID), UIntToStr(rater.ID), RateAnalysisIn{Score: 8}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var saved models.OutfitAnalysis
	require.NoError(t, db.First(&saved, analysis.ID).Error)
	assert.Equal(t, 1, saved.PeerVoteCount)
	assert.Equal(t, 8.0, saved.PeerScoreSum)

	// same rater changes their mind, vote count stays at one
	rec = doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/rate", analysis.ID), UIntToStr(rater.ID), RateAnalysisIn{Score: 6}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, db.First(&saved, analysis.ID).Error)
	assert.Equal(t, 1, saved.PeerVoteCount)
	assert.Equal(t, 6.0, saved.PeerScoreSum)
}

func TestRateOwnAnalysisForbidden(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	owner := test.FakeUser(db, nil)
	analysis := completedAnalysis(t, db, owner.ID)

	rec := doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/rate", analysis.ID), UIntToStr(owner.ID), RateAnalysisIn{Score: 10}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReanalyzeQueues(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := testServer(db)
	user := test.FakeUser(db, nil)
	analysis := completedAnalysis(t, db, user.ID)

	rec := doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/reanalyze", analysis.ID), UIntToStr(user.ID), nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// someone else's analysis is invisible
	other := test.FakeUserV2(db, "Other", "")
	rec = doRequest(e, test.NewJSONAuthRequest("POST", fmt.Sprintf("/app/analyses/%v/reanalyze", analysis.ID), UIntToStr(other.ID), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
