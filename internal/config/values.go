package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrNotCyclable    = errors.New("setting has no fixed choices")
)

// ThemeNames returns the theme labels, indexed by the Theme* constants.
func ThemeNames() []string {
	return []string{"System", "Light", "Dark"}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// FormatValue renders the current value of the setting with the given key.
func (s *Settings) FormatValue(key string) (string, error) {
	switch key {
	case "download_dir":
		return s.General.DownloadDir, nil
	case "theme":
		if names := ThemeNames(); s.General.Theme >= 0 && s.General.Theme < len(names) {
			return names[s.General.Theme], nil
		}
		return strconv.Itoa(s.General.Theme), nil
	case "log_retention_count":
		return strconv.Itoa(s.General.LogRetentionCount), nil
	case "quiet_logs":
		return onOff(s.General.QuietLogs), nil
	case "manga_workers":
		return strconv.Itoa(s.Downloads.MangaWorkers), nil
	case "anime_workers":
		return strconv.Itoa(s.Downloads.AnimeWorkers), nil
	case "auto_start":
		return onOff(s.Downloads.AutoStart), nil
	case "user_agent":
		if s.Downloads.UserAgent == "" {
			return "default", nil
		}
		return s.Downloads.UserAgent, nil
	case "page_timeout":
		return s.Downloads.PageTimeout.String(), nil
	case "max_retries":
		return strconv.Itoa(s.Downloads.MaxRetries), nil
	case "update_interval":
		if s.Library.UpdateInterval == 0 {
			return "never", nil
		}
		return fmt.Sprintf("every %d hours", s.Library.UpdateInterval), nil
	case "update_restrictions":
		if len(s.Library.UpdateRestrictions) == 0 {
			return "none", nil
		}
		return strings.Join(s.Library.UpdateRestrictions, ", "), nil
	case "downloaded_only":
		return onOff(s.More.DownloadedOnly), nil
	case "incognito_mode":
		return onOff(s.More.IncognitoMode), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
}

// Cycle advances a bool or choice setting to its next value, wrapping at
// the end of the choices.
func (s *Settings) Cycle(key string) error {
	switch key {
	case "quiet_logs":
		s.General.QuietLogs = !s.General.QuietLogs
	case "auto_start":
		s.Downloads.AutoStart = !s.Downloads.AutoStart
	case "downloaded_only":
		s.More.DownloadedOnly = !s.More.DownloadedOnly
	case "incognito_mode":
		s.More.IncognitoMode = !s.More.IncognitoMode
	case "theme":
		s.General.Theme = (s.General.Theme + 1) % len(ThemeNames())
	case "update_interval":
		choices := UpdateIntervals()
		i := slices.Index(choices, s.Library.UpdateInterval)
		s.Library.UpdateInterval = choices[(i+1)%len(choices)]
	default:
		if _, err := s.FormatValue(key); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrNotCyclable, key)
	}
	return nil
}

// ToggleChoice adds choice to a multichoice setting, or removes it when it
// is already selected. Selected values keep the order of their choices.
func (s *Settings) ToggleChoice(key, choice string) error {
	if key != "update_restrictions" {
		return fmt.Errorf("%w: %s", ErrNotCyclable, key)
	}
	if !slices.Contains(UpdateRestrictionChoices(), choice) {
		return fmt.Errorf("invalid library update restriction %q", choice)
	}
	var next []string
	for _, c := range UpdateRestrictionChoices() {
		selected := slices.Contains(s.Library.UpdateRestrictions, c)
		if c == choice {
			selected = !selected
		}
		if selected {
			next = append(next, c)
		}
	}
	s.Library.UpdateRestrictions = next
	return nil
}
