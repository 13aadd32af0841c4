package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"brokenweave/internal/model"
	"brokenweave/internal/validate"
)

const settingsKey = "settings:system"

// SettingsService keeps the system settings in Redis. A missing key reads as
// the defaults.
type SettingsService struct {
	rdb       redis.Cmdable
	validator *validate.Validator
}

func NewSettingsService(rdb redis.Cmdable, v *validate.Validator) *SettingsService {
	return &SettingsService{rdb: rdb, validator: v}
}

func (s *SettingsService) Get(ctx context.Context) (model.SystemSettings, error) {
	raw, err := s.rdb.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.SystemSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	out := model.DefaultSettings()
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.SystemSettings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return out, nil
}

func (s *SettingsService) Update(ctx context.Context, in SettingsInput) (model.SystemSettings, error) {
	if err := s.validator.Struct(in); err != nil {
		return model.SystemSettings{}, err
	}
	out := model.SystemSettings{
		SiteName:         strings.TrimSpace(in.SiteName),
		ContactEmail:     strings.TrimSpace(in.ContactEmail),
		HelplineNumber:   strings.TrimSpace(in.HelplineNumber),
		EmergencyNumber:  strings.TrimSpace(in.EmergencyNumber),
		AboutText:        in.AboutText,
		MaintenanceMode:  in.MaintenanceMode,
		MaxFileSize:      strings.TrimSpace(in.MaxFileSize),
		AllowedFileTypes: strings.TrimSpace(in.AllowedFileTypes),
	}
	body, err := json.Marshal(out)
	if err != nil {
		return model.SystemSettings{}, err
	}
	if err := s.rdb.Set(ctx, settingsKey, body, 0).Err(); err != nil {
		return model.SystemSettings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return out, nil
}
