// Package version checks GitHub for newer tsundoku releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// ReleaseURL is the endpoint for fetching the latest release
	ReleaseURL = "https://api.github.com/repos/tsundoku-app/tsundoku/releases/latest"
	// RequestTimeout bounds the whole check
	RequestTimeout = 10 * time.Second
)

// UpdateInfo describes the newest published release.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
}

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries a releases endpoint.
type Checker struct {
	URL    string
	Client *http.Client
}

// NewChecker returns a Checker for the public GitHub releases endpoint.
func NewChecker() *Checker {
	return &Checker{URL: ReleaseURL, Client: &http.Client{Timeout: RequestTimeout}}
}

// Check compares current against the latest release. Development builds
// are never checked and return nil, nil.
func (c *Checker) Check(ctx context.Context, current string) (*UpdateInfo, error) {
	if current == "dev" || current == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	// GitHub rejects requests without a User-Agent
	req.Header.Set("User-Agent", "tsundoku-update-check")
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking for updates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checking for updates: %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}

	return &UpdateInfo{
		CurrentVersion:  current,
		LatestVersion:   rel.TagName,
		ReleaseURL:      rel.HTMLURL,
		UpdateAvailable: IsNewer(rel.TagName, current),
	}, nil
}

// IsNewer reports whether latest is a higher MAJOR.MINOR.PATCH than current.
// A leading "v" and any pre-release suffix are ignored.
func IsNewer(latest, current string) bool {
	l, c := parse(latest), parse(current)
	for i := range l {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func parse(v string) [3]int {
	var parts [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	for i, seg := range strings.SplitN(v, ".", 3) {
		if idx := strings.IndexAny(seg, "-+"); idx != -1 {
			seg = seg[:idx]
		}
		parts[i], _ = strconv.Atoi(seg)
	}
	return parts
}
