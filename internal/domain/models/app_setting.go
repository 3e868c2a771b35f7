// internal/domain/models/app_setting.go
package models

import "time"

// Keys of the app_settings collection.
const (
	SettingUnresponsiveThresholdDays = "unresponsive_threshold_days"
	SettingRotationDayOfMonth        = "rotation_day_of_month"
	SettingCurrentRotationMonth      = "current_rotation_month"
)

// AppSetting is one global key/value tunable.
type AppSetting struct {
	Key       string    `bson:"_id" json:"key"`
	Value     string    `bson:"value" json:"value"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
