package more

import (
	"sync"

	"github.com/tsundoku-app/tsundoku/internal/config"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// Preferences stores the More tab toggles.
type Preferences interface {
	DownloadedOnly() bool
	IncognitoMode() bool
	SetDownloadedOnly(enabled bool) error
	SetIncognitoMode(enabled bool) error
}

// SettingsPreferences keeps the toggles in the application settings file.
type SettingsPreferences struct {
	mu       sync.Mutex
	settings *config.Settings
	load     func() (*config.Settings, error)
	save     func(*config.Settings) error
}

// NewSettingsPreferences wraps settings. Every change re-reads the settings
// file so edits made elsewhere survive, then writes it with
// config.SaveSettings.
func NewSettingsPreferences(settings *config.Settings) *SettingsPreferences {
	return &SettingsPreferences{settings: settings, load: config.LoadSettings, save: config.SaveSettings}
}

func (p *SettingsPreferences) DownloadedOnly() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings.More.DownloadedOnly
}

func (p *SettingsPreferences) IncognitoMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings.More.IncognitoMode
}

func (p *SettingsPreferences) SetDownloadedOnly(enabled bool) error {
	return p.update(func(s *config.Settings) { s.More.DownloadedOnly = enabled })
}

func (p *SettingsPreferences) SetIncognitoMode(enabled bool) error {
	return p.update(func(s *config.Settings) { s.More.IncognitoMode = enabled })
}

// update applies fn to a copy and only keeps it once it has been saved.
func (p *SettingsPreferences) update(fn func(*config.Settings)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := *p.settings
	if p.load != nil {
		if fresh, err := p.load(); err == nil {
			next = *fresh
		} else {
			utils.Debug("More: rereading settings failed, keeping loaded copy: %v", err)
		}
	}
	fn(&next)
	if err := p.save(&next); err != nil {
		return err
	}
	*p.settings = next
	return nil
}
