package feedback

import (
	"testing"

	"fitcheckapi/dbhelper"
	"fitcheckapi/models"
	"fitcheckapi/test"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedRatedAnalysis(t *testing.T, db *gorm.DB, userID uint, aiScore float64, peerAvg float64, votes int) {
	t.Helper()
	analysis := models.OutfitAnalysis{
		OwnerID:       userID,
		Occasions:     pq.StringArray{"casual"},
		ImageKey:      strPtr("outfits/x.jpg"),
		Status:        "completed",
		AIScore:       &aiScore,
		PeerScoreSum:  peerAvg * float64(votes),
		PeerVoteCount: votes,
	}
	require.NoError(t, db.Create(&analysis).Error)
}

func TestCalibrationNoteNeedsTenSamples(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, nil)

	for i := 0; i < 9; i++ {
		seedRatedAnalysis(t, db, user.ID, 8.0, 6.0, 5)
	}

	note, err := CalibrationNote(db)
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestCalibrationNoteIgnoresThinlyVotedAnalyses(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, nil)

	// Plenty of drifted analyses but none with enough peer votes to count.
	for i := 0; i < 15; i++ {
		seedRatedAnalysis(t, db, user.ID, 9.0, 5.0, 2)
	}

	note, err := CalibrationNote(db)
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestCalibrationNoteQuietWithinThreshold(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, nil)

	for i := 0; i < 12; i++ {
		seedRatedAnalysis(t, db, user.ID, 7.2, 7.0, 4)
	}

	note, err := CalibrationNote(db)
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestCalibrationNoteReportsHigherDrift(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, nil)

	for i := 0; i < 12; i++ {
		seedRatedAnalysis(t, db, user.ID, 7.5, 7.0, 4)
	}

	note, err := CalibrationNote(db)
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Contains(t, *note, "0.5")
	assert.Contains(t, *note, "higher")
}

func TestCalibrationNoteReportsLowerDrift(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, nil)

	for i := 0; i < 10; i++ {
		seedRatedAnalysis(t, db, user.ID, 6.0, 7.0, 3)
	}

	note, err := CalibrationNote(db)
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Contains(t, *note, "1.0")
	assert.Contains(t, *note, "lower")
}
