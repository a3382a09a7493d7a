package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/desertthunder/studyflow/internal/shared"
)

// DefaultPlaylistTimeout bounds a full playlist listing.
const DefaultPlaylistTimeout = 60 * time.Second

// PlaylistService implements [PlaylistSource] with the ytdlp library.
type PlaylistService struct {
	timeout time.Duration
}

// NewPlaylistService creates a playlist lister. timeout <= 0 uses [DefaultPlaylistTimeout].
func NewPlaylistService(timeout time.Duration) *PlaylistService {
	if timeout <= 0 {
		timeout = DefaultPlaylistTimeout
	}
	return &PlaylistService{timeout: timeout}
}

// VideoIDs lists every video id in the playlist at playlistURL.
func (p *PlaylistService) VideoIDs(ctx context.Context, playlistURL string) ([]string, error) {
	id, ok := ExtractPlaylistID(playlistURL)
	if !ok {
		return nil, fmt.Errorf("%w: could not extract playlist id from %q", shared.ErrInvalidArgument, playlistURL)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlist %s: %v", shared.ErrAPIRequest, id, err)
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.VideoID != "" {
			ids = append(ids, it.VideoID)
		}
	}
	return ids, nil
}
