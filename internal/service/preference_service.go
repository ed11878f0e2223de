package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/repository"
)

// ErrValidation marks a request the client must fix
var ErrValidation = errors.New("validation failed")

// PreferenceService handles persisted client preferences
type PreferenceService struct {
	repo *repository.PreferenceRepository
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(repo *repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// Theme returns the stored theme, light when none was chosen
func (s *PreferenceService) Theme() (string, error) {
	pref, err := s.repo.Get(models.PreferenceTheme)
	if errors.Is(err, repository.ErrNotFound) {
		return models.ThemeLight, nil
	}
	if err != nil {
		return "", err
	}
	return pref.Value, nil
}

// SetTheme stores light or dark
func (s *PreferenceService) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return fmt.Errorf("%w: theme must be %s or %s", ErrValidation, models.ThemeLight, models.ThemeDark)
	}
	return s.repo.Set(models.PreferenceTheme, theme)
}
