package models

import "time"

type UserAccount struct {
	JsonModel
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Banned   bool   `gorm:"default:false" json:"-"`
	LastIp   string `json:"-"`
	GoogleID string `json:"-"`
	// "STARTED_AUTH", "FINISHED_AUTH"
	Status         string     `json:"-"`
	UTMSource      string     `json:"utm_source"`
	Platform       Platform   `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Subscription   *string    `json:"subscription"`
	ExpirationDate *time.Time `json:"-"`

	ReceiveNotifications bool   `json:"receive_notifications"`
	AvatarURL            string `json:"avatar_url"`

	StyleProfile *StyleProfile `json:"style_profile"`
}

// StyleProfile holds the optional self-reported attributes that personalize
// outfit feedback prompts. Every field is optional and only serialized into
// a prompt when present.
type StyleProfile struct {
	JsonModel
	UserAccountID uint        `gorm:"uniqueIndex" json:"-"`
	UserAccount   UserAccount `json:"-"`

	HeightCm         *int    `json:"height_cm"`
	BodyType         *string `json:"body_type"`
	SkinTone         *string `json:"skin_tone"`
	StylePreferences *string `gorm:"type:text" json:"style_preferences"`
	Lifestyle        *string `json:"lifestyle"`
	Goals            *string `gorm:"type:text" json:"goals"`
	Budget           *string `json:"budget"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type StyleProfileIn struct {
	HeightCm         *int    `json:"height_cm" validate:"omitempty,min=50,max=260"`
	BodyType         *string `json:"body_type" validate:"omitempty,max=100"`
	SkinTone         *string `json:"skin_tone" validate:"omitempty,max=100"`
	StylePreferences *string `json:"style_preferences" validate:"omitempty,max=1000"`
	Lifestyle        *string `json:"lifestyle" validate:"omitempty,max=500"`
	Goals            *string `json:"goals" validate:"omitempty,max=1000"`
	Budget           *string `json:"budget" validate:"omitempty,max=100"`
}
