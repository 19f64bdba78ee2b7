package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"restaurantfinder/internal/model"
)

// UIPreferences stores persisted app preferences.
type UIPreferences struct {
	LastSort model.SortCriteria `json:"last_sort,omitempty"`
	LastTerm string             `json:"last_term,omitempty"`
}

func prefsPath(configDir string) string {
	return filepath.Join(configDir, "ui_prefs.json")
}

// loadUIPreferences reads the preferences file. Missing or unreadable files
// yield the zero preferences.
func loadUIPreferences(configDir string) UIPreferences {
	if configDir == "" {
		return UIPreferences{}
	}

	data, err := os.ReadFile(prefsPath(configDir))
	if err != nil {
		return UIPreferences{}
	}

	var prefs UIPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return UIPreferences{}
	}
	if _, err := model.ParseSortCriteria(string(prefs.LastSort)); err != nil {
		prefs.LastSort = ""
	}
	return prefs
}

func saveUIPreferences(configDir string, prefs UIPreferences) error {
	if configDir == "" {
		return nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	if err := os.WriteFile(prefsPath(configDir), data, 0644); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return nil
}
