package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"fitcheckapi/models"
	"fitcheckapi/services"

	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	if userPk != "" {
		token := GenerateUserToken(userPk)
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewRefString(data string) *string {
	return &data
}

func Contains(items []string, lookFor string) bool {

	for i := 0; i < len(items); i++ {

		if items[i] == lookFor {
			return true
		}
	}
	return false
}

func FakeUser(db *gorm.DB, subscription *string) *models.UserAccount {
	user := &models.UserAccount{
		Name:         "OurName",
		Email:        fmt.Sprintf("email%d@example.com", time.Now().UnixNano()),
		GoogleID:     "12232",
		Platform:     models.PlatformIOS,
		LastIp:       "123.122.122.122",
		Status:       "FINISHED_AUTH",
		AvatarURL:    "pictureurl",
		Subscription: subscription,
	}
	db.Create(&user)

	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.Preload("StyleProfile").First(&user, user.ID)

	return user
}

func FakeUserV2(db *gorm.DB, userName string, email string) *models.UserAccount {

	if email == "" {
		email = fmt.Sprintf("email%d@example.com", time.Now().UnixNano())
	}
	user := &models.UserAccount{
		Name:      userName,
		Email:     email,
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		Status:    "FINISHED_AUTH",
		AvatarURL: "pictureurl",
	}
	db.Create(&user)
	return user
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {

	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil

}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {

	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return awsService.MockUrl, nil
}

func (awsService AWSProviderMock) UploadToPresignedURL(ctx context.Context, bucketName, url string, fileContent []byte) (string, int, error) {
	return url, 204, nil
}

type URLCacheMock struct{}

func (m URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", objectKey), nil
}

// ValidStylistPayload is a complete, schema valid model response used by
// stylist mocks and handler tests.
const ValidStylistPayload = `{
	"overallScore": 8.2,
	"summary": "A sharp smart-casual look that balances structure and ease.",
	"whatsWorking": [
		{"point": "Color pairing", "detail": "The camel coat against charcoal trousers is a classic combination."},
		{"point": "Proportions", "detail": "The cropped trouser keeps the long coat from overwhelming the frame."}
	],
	"consider": [
		{"point": "Footwear", "detail": "A cleaner silhouette shoe would elevate the outfit further."},
		{"point": "Accessories", "detail": "A simple watch or scarf would add a finishing touch."}
	],
	"quickFixes": [
		{"suggestion": "Tuck the shirt fully", "impact": "Sharpens the waistline"}
	],
	"occasionMatch": {"score": 8.5, "notes": "Well suited for a business casual office."},
	"styleDNA": {
		"dominantColors": ["camel", "charcoal"],
		"colorHarmony": "neutral",
		"colorCount": 2,
		"formalityLevel": 4,
		"styleArchetypes": ["classic", "minimalist"],
		"silhouetteType": "tailored",
		"garments": ["coat", "trousers", "shirt"],
		"patterns": [],
		"textures": ["wool"],
		"colorScore": 8.5,
		"proportionScore": 8.0,
		"fitScore": 8.0,
		"coherenceScore": 8.5
	}
}`

// MockStylist answers every call successfully with the fixed payload.
type MockStylist struct {
	Calls int
}

func (m *MockStylist) GenerateOutfitFeedback(prompt string, imagePath string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	m.Calls++
	return &services.LLMResponse{
		Response:           ValidStylistPayload,
		InputTokenCount:    10,
		TotalTokenCount:    36,
		ThoughtsTokenCount: 12,
		OutputTokenCount:   14,
		IsTest:             true,
	}, nil
}

func (m *MockStylist) AnswerFollowUp(prompt string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	m.Calls++
	return &services.LLMResponse{
		Response:        "Swap the sneakers for leather loafers and the outfit will read more polished.",
		InputTokenCount: 8,
		TotalTokenCount: 20,
		IsTest:          true,
	}, nil
}

// FailingStylist errors on every call.
type FailingStylist struct {
	Calls int
}

func (f *FailingStylist) GenerateOutfitFeedback(prompt string, imagePath string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	f.Calls++
	return nil, fmt.Errorf("model unavailable")
}

func (f *FailingStylist) AnswerFollowUp(prompt string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	f.Calls++
	return nil, fmt.Errorf("model unavailable")
}

// GarbageStylist returns text that never parses, exercising the validation
// arm of the retry loop.
type GarbageStylist struct {
	Calls int
}

func (g *GarbageStylist) GenerateOutfitFeedback(prompt string, imagePath string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	g.Calls++
	return &services.LLMResponse{Response: "I love this outfit so much!!", IsTest: true}, nil
}

func (g *GarbageStylist) AnswerFollowUp(prompt string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	g.Calls++
	return &services.LLMResponse{Response: "some answer", IsTest: true}, nil
}
