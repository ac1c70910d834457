// Package updater checks GitHub for a newer release of the tool.
package updater

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
	defaultEndpoint = "https://api.github.com/repos/Piero24/B.R.I.O.S/releases/latest"
	requestTimeout  = 10 * time.Second
)

// Release is the subset of the GitHub release payload we care about.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Name    string `json:"name"`
}

type Checker struct {
	Endpoint string
	Client   *http.Client
}

func NewChecker() *Checker {
	return &Checker{
		Endpoint: defaultEndpoint,
		Client:   &http.Client{Timeout: requestTimeout},
	}
}

// Latest fetches the most recent published release.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query releases: unexpected status %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	if rel.TagName == "" {
		return nil, fmt.Errorf("release has no tag name")
	}
	return &rel, nil
}

// Check reports whether the latest release is newer than current.
func (c *Checker) Check(ctx context.Context, current string) (*Release, bool, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return nil, false, err
	}
	return rel, NewerVersion(current, rel.TagName), nil
}

// NewerVersion compares two dotted version strings, ignoring a leading
// "v". Non-numeric segments and dev builds never report an update.
func NewerVersion(current, latest string) bool {
	cur, okCur := parseVersion(current)
	lat, okLat := parseVersion(latest)
	if !okCur || !okLat {
		return false
	}
	for i := 0; i < 3; i++ {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

func parseVersion(v string) ([3]int, bool) {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" || v == "dev" {
		return out, false
	}
	// Drop pre-release/build suffixes.
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	if len(parts) > 3 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}
