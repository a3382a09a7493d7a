// package services defines clients for the HTTP APIs StudyFlow talks to
//
// YouTube metadata (oEmbed), YouTube playlists, GitHub, and the StudyFlow backend
package services

import (
	"context"

	"github.com/desertthunder/studyflow/internal/models"
)

// VideoLookup resolves a YouTube id into a new [models.Video] with title and thumbnail filled in.
type VideoLookup interface {
	Lookup(ctx context.Context, youtubeID string) (models.Video, error)
}

// PlaylistSource lists the video ids of a YouTube playlist, in playlist order.
type PlaylistSource interface {
	VideoIDs(ctx context.Context, playlistURL string) ([]string, error)
}
