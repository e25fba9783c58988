package clipboard

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrInvalidURL is returned for text that is not an http(s) URL.
var ErrInvalidURL = errors.New("invalid url")

// ErrNoURLs is returned when the clipboard holds no usable URL.
var ErrNoURLs = errors.New("no urls on clipboard")

const maxURLLen = 2048

var clipboardReadAll = clipboard.ReadAll

type Validator struct {
	allowedSchemes map[string]bool
}

func NewValidator() *Validator {
	return &Validator{
		allowedSchemes: map[string]bool{"http": true, "https": true},
	}
}

// Validate returns the normalised form of raw, or ErrInvalidURL.
func (v *Validator) Validate(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" || len(text) > maxURLLen || strings.ContainsAny(text, " \t\n\r") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, truncate(text))
	}

	parsed, err := url.Parse(text)
	if err != nil || parsed.Host == "" || !v.allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, truncate(text))
	}
	return parsed.String(), nil
}

// ExtractURLs returns every valid URL in text, one per whitespace separated
// field, in order. Chapter page lists are usually copied one URL per line.
func (v *Validator) ExtractURLs(text string) []string {
	var urls []string
	for _, field := range strings.Fields(text) {
		if u, err := v.Validate(field); err == nil {
			urls = append(urls, u)
		}
	}
	return urls
}

// ReadURLs returns the URLs currently on the system clipboard.
func ReadURLs() ([]string, error) {
	text, err := clipboardReadAll()
	if err != nil {
		return nil, fmt.Errorf("read clipboard: %w", err)
	}
	urls := NewValidator().ExtractURLs(text)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	return urls, nil
}

func truncate(s string) string {
	if len(s) > 64 {
		return s[:61] + "..."
	}
	return s
}
