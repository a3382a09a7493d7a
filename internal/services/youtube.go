package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	watchURLTemplate     = "https://www.youtube.com/watch?v=%s"
	thumbnailURLTemplate = "https://img.youtube.com/vi/%s/maxresdefault.jpg"
)

var (
	bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	videoURL    = regexp.MustCompile(
		`(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:[^#]*?&)?v=|embed/|v/|shorts/|live/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`,
	)
	playlistID = regexp.MustCompile(`^[A-Za-z0-9_-]{2,64}$`)
)

// ExtractVideoID returns the 11 character id from a watch, youtu.be, embed, v/, shorts or live URL,
// or from a bare id. ok is false for anything else.
func ExtractVideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if bareVideoID.MatchString(raw) {
		return raw, true
	}

	m := videoURL.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractPlaylistID returns the list= parameter of a playlist URL, or raw itself when it already looks like an id.
func ExtractPlaylistID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		id := u.Query().Get("list")
		return id, playlistID.MatchString(id)
	}
	if strings.Contains(raw, "list=") {
		id := strings.SplitN(strings.SplitN(raw, "list=", 2)[1], "&", 2)[0]
		return id, playlistID.MatchString(id)
	}
	return raw, playlistID.MatchString(raw) && !bareVideoID.MatchString(raw)
}

// WatchURL returns the canonical watch page for id.
func WatchURL(id string) string {
	return fmt.Sprintf(watchURLTemplate, id)
}

// ThumbnailURL returns the max resolution thumbnail for id.
func ThumbnailURL(id string) string {
	return fmt.Sprintf(thumbnailURLTemplate, id)
}
