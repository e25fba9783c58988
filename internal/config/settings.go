package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General   GeneralSettings  `json:"general"`
	Downloads DownloadSettings `json:"downloads"`
	Library   LibrarySettings  `json:"library"`
	More      MoreSettings     `json:"more"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DownloadDir       string `json:"download_dir"`
	Theme             int    `json:"theme"`
	LogRetentionCount int    `json:"log_retention_count"`
	QuietLogs         bool   `json:"quiet_logs"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// DownloadSettings configures the manga and anime download queues.
type DownloadSettings struct {
	MangaWorkers int           `json:"manga_workers"`
	AnimeWorkers int           `json:"anime_workers"`
	AutoStart    bool          `json:"auto_start"`
	UserAgent    string        `json:"user_agent"`
	PageTimeout  time.Duration `json:"page_timeout"`
	MaxRetries   int           `json:"max_retries"`
}

// LibrarySettings holds the library update preferences. Scheduling the
// update itself is done by the reader, only the choice is stored here.
type LibrarySettings struct {
	UpdateInterval     int      `json:"update_interval"` // hours, 0 disables
	UpdateRestrictions []string `json:"update_restrictions"`
}

// MoreSettings holds the toggles shown on the More tab.
type MoreSettings struct {
	DownloadedOnly bool `json:"downloaded_only"`
	IncognitoMode  bool `json:"incognito_mode"`
}

const (
	RestrictUnmetered = "unmetered"
	RestrictCharging  = "charging"
	RestrictCompleted = "completed"
)

const (
	MinWorkers = 1
	MaxWorkers = 10
)

// UpdateIntervals returns the library update intervals (in hours) a user can pick.
func UpdateIntervals() []int {
	return []int{0, 12, 24, 48, 72, 168}
}

// UpdateRestrictionChoices returns the valid library update restrictions.
func UpdateRestrictionChoices() []string {
	return []string{RestrictUnmetered, RestrictCharging, RestrictCompleted}
}

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text displayed in right pane
	Type        string // "string", "int", "bool", "duration", "choice", "multichoice"
	Choices     []string
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	intervals := make([]string, 0, len(UpdateIntervals()))
	for _, h := range UpdateIntervals() {
		intervals = append(intervals, fmt.Sprint(h))
	}

	return map[string][]SettingMeta{
		"General": {
			{Key: "download_dir", Label: "Download Dir", Description: "Directory chapters and episodes are saved to.", Type: "string"},
			{Key: "theme", Label: "App Theme", Description: "UI Theme (System, Light, Dark).", Type: "choice", Choices: ThemeNames()},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
			{Key: "quiet_logs", Label: "Quiet Logs", Description: "Do not write debug logs.", Type: "bool"},
		},
		"Downloads": {
			{Key: "manga_workers", Label: "Manga Workers", Description: "Chapters downloaded in parallel (1-10).", Type: "int"},
			{Key: "anime_workers", Label: "Anime Workers", Description: "Episodes downloaded in parallel (1-10).", Type: "int"},
			{Key: "auto_start", Label: "Auto Start", Description: "Start downloading as soon as items are queued.", Type: "bool"},
			{Key: "user_agent", Label: "User Agent", Description: "Custom User-Agent string for page requests. Leave empty for default.", Type: "string"},
			{Key: "page_timeout", Label: "Page Timeout", Description: "Give up on a page or episode after receiving no data for this long (e.g., 30s).", Type: "duration"},
			{Key: "max_retries", Label: "Max Retries", Description: "Attempts per page before the item is marked as failed.", Type: "int"},
		},
		"Library": {
			{Key: "update_interval", Label: "Update Interval", Description: "Hours between automatic library updates. 0 turns them off.", Type: "choice", Choices: intervals},
			{Key: "update_restrictions", Label: "Update Restrictions", Description: "Only update when these conditions hold.", Type: "multichoice", Choices: UpdateRestrictionChoices()},
		},
		"More": {
			{Key: "downloaded_only", Label: "Downloaded Only", Description: "Filter the library to downloaded entries.", Type: "bool"},
			{Key: "incognito_mode", Label: "Incognito Mode", Description: "Pause reading and watching history.", Type: "bool"},
		},
	}
}

// CategoryOrder returns the order of categories for UI tabs.
func CategoryOrder() []string {
	return []string{"General", "Downloads", "Library", "More"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()

	defaultDir := ""
	if homeDir != "" {
		defaultDir = filepath.Join(homeDir, "Tsundoku")
	}

	return &Settings{
		General: GeneralSettings{
			DownloadDir:       defaultDir,
			Theme:             ThemeAdaptive,
			LogRetentionCount: 5,
		},
		Downloads: DownloadSettings{
			MangaWorkers: 2,
			AnimeWorkers: 1,
			AutoStart:    true,
			PageTimeout:  30 * time.Second,
			MaxRetries:   3,
		},
		Library: LibrarySettings{
			UpdateInterval:     24,
			UpdateRestrictions: []string{RestrictUnmetered},
		},
	}
}

// Validate clamps numeric settings into range and rejects values that have
// no sensible clamp.
func (s *Settings) Validate() error {
	s.Downloads.MangaWorkers = clamp(s.Downloads.MangaWorkers, MinWorkers, MaxWorkers)
	s.Downloads.AnimeWorkers = clamp(s.Downloads.AnimeWorkers, MinWorkers, MaxWorkers)
	if s.Downloads.MaxRetries < 0 {
		s.Downloads.MaxRetries = 0
	}
	if s.Downloads.PageTimeout <= 0 {
		s.Downloads.PageTimeout = DefaultSettings().Downloads.PageTimeout
	}

	if !slices.Contains(UpdateIntervals(), s.Library.UpdateInterval) {
		return fmt.Errorf("invalid library update interval %d hours", s.Library.UpdateInterval)
	}
	for _, r := range s.Library.UpdateRestrictions {
		if !slices.Contains(UpdateRestrictionChoices(), r) {
			return fmt.Errorf("invalid library update restriction %q", r)
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetTsundokuDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	path := GetSettingsPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // Start with defaults to fill any missing fields
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}

	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	path := GetSettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// RuntimeConfig is the subset of Settings the download managers need.
type RuntimeConfig struct {
	DownloadDir  string
	MangaWorkers int
	AnimeWorkers int
	AutoStart    bool
	UserAgent    string
	PageTimeout  time.Duration
	MaxRetries   int
}

// ToRuntimeConfig creates a RuntimeConfig from user Settings
func (s *Settings) ToRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		DownloadDir:  s.General.DownloadDir,
		MangaWorkers: s.Downloads.MangaWorkers,
		AnimeWorkers: s.Downloads.AnimeWorkers,
		AutoStart:    s.Downloads.AutoStart,
		UserAgent:    s.Downloads.UserAgent,
		PageTimeout:  s.Downloads.PageTimeout,
		MaxRetries:   s.Downloads.MaxRetries,
	}
}
