// internal/app/system/outreach/settings.go
package outreach

import (
	"context"
	"strconv"

	"github.com/dalemusser/chapterhub/internal/domain/models"
)

// Defaults for the app_settings tunables.
const (
	DefaultThresholdDays = 30
	DefaultRotationDay   = 1
	maxRotationDay       = 28
)

// Settings is the explicit configuration handed to the engines. It is loaded
// once per invocation from the settings store.
type Settings struct {
	UnresponsiveThresholdDays int
	RotationDayOfMonth        int
	CurrentRotationMonth      string // YYYY-MM, empty if never rotated
}

// DefaultSettings returns the settings used when nothing has been saved.
func DefaultSettings() Settings {
	return Settings{
		UnresponsiveThresholdDays: DefaultThresholdDays,
		RotationDayOfMonth:        DefaultRotationDay,
	}
}

// SettingsFromValues builds Settings from raw key/value pairs. Missing or
// malformed values fall back to defaults.
func SettingsFromValues(values map[string]string) Settings {
	s := DefaultSettings()
	if n, err := strconv.Atoi(values[models.SettingUnresponsiveThresholdDays]); err == nil && n > 0 {
		s.UnresponsiveThresholdDays = n
	}
	if n, err := strconv.Atoi(values[models.SettingRotationDayOfMonth]); err == nil && n > 0 {
		s.RotationDayOfMonth = min(n, maxRotationDay)
	}
	if m := values[models.SettingCurrentRotationMonth]; m != "" {
		if _, err := models.ParseMonth(m); err == nil {
			s.CurrentRotationMonth = m
		}
	}
	return s
}

// LoadSettings reads the settings store once.
func LoadSettings(ctx context.Context, store SettingsStore) (Settings, error) {
	values, err := store.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	return SettingsFromValues(values), nil
}
