package store

import (
	"fmt"
	"math"
	"slices"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/storage"
)

// AddVideo appends v to a roadmap. A missing video ID is generated.
func (s *Store) AddVideo(roadmapID string, v models.Video) (models.Roadmap, error) {
	return s.AddVideos(roadmapID, []models.Video{v})
}

// AddVideos appends videos to a roadmap in order.
func (s *Store) AddVideos(roadmapID string, videos []models.Video) (models.Roadmap, error) {
	return s.mutateRoadmap(roadmapID, func(r *models.Roadmap) error {
		for _, v := range videos {
			if v.YouTubeID == "" {
				return fmt.Errorf("%w: video has no YouTube id", shared.ErrInvalidInput)
			}
			if v.ID == "" || r.FindVideo(v.ID) != -1 {
				v.ID = shared.GenerateID()
			}
			v.Progress = models.ClampProgress(v.Progress)
			r.Videos = append(r.Videos, v)
		}
		return nil
	})
}

// RemoveVideo deletes a video from its roadmap.
func (s *Store) RemoveVideo(roadmapID, videoID string) (models.Roadmap, error) {
	return s.mutateRoadmap(roadmapID, func(r *models.Roadmap) error {
		i := r.FindVideo(videoID)
		if i == -1 {
			return fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
		}
		r.Videos = slices.Delete(r.Videos, i, i+1)
		return nil
	})
}

// MoveVideo moves a video to index, clamped to the list bounds.
func (s *Store) MoveVideo(roadmapID, videoID string, index int) (models.Roadmap, error) {
	return s.mutateRoadmap(roadmapID, func(r *models.Roadmap) error {
		i := r.FindVideo(videoID)
		if i == -1 {
			return fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
		}
		v := r.Videos[i]
		r.Videos = slices.Delete(r.Videos, i, i+1)
		index = max(0, min(index, len(r.Videos)))
		r.Videos = slices.Insert(r.Videos, index, v)
		return nil
	})
}

// UpdateVideoProgress clamps progress to [0, 100]; reaching 100 marks the video completed.
func (s *Store) UpdateVideoProgress(roadmapID, videoID string, progress float64) (models.Roadmap, error) {
	return s.mutateVideo(roadmapID, videoID, func(v *models.Video) error {
		v.Progress = models.ClampProgress(progress)
		if v.Progress >= 100 {
			v.Completed = true
		}
		return nil
	})
}

// MarkVideoComplete is UpdateVideoProgress with 100.
func (s *Store) MarkVideoComplete(roadmapID, videoID string) (models.Roadmap, error) {
	return s.UpdateVideoProgress(roadmapID, videoID, 100)
}

// SetVideoCompleted sets the completed flag. Clearing it on a fully watched video also resets progress,
// otherwise the video would still count as complete.
func (s *Store) SetVideoCompleted(roadmapID, videoID string, completed bool) (models.Roadmap, error) {
	if completed {
		return s.MarkVideoComplete(roadmapID, videoID)
	}
	return s.mutateVideo(roadmapID, videoID, func(v *models.Video) error {
		v.Completed = false
		if v.Progress >= 100 {
			v.Progress = 0
		}
		return nil
	})
}

// RecordPlayback stores the resume position and updates progress from the player position.
// Crossing [models.AutoCompleteThreshold] marks the video complete.
func (s *Store) RecordPlayback(roadmapID, videoID string, current, duration float64) (models.Roadmap, error) {
	r, err := s.GetRoadmap(roadmapID)
	if err != nil {
		return models.Roadmap{}, err
	}
	i := r.FindVideo(videoID)
	if i == -1 {
		return models.Roadmap{}, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return models.Roadmap{}, fmt.Errorf("%w: duration %v", shared.ErrInvalidInput, duration)
	}
	if err := s.SaveVideoPosition(r.Videos[i].YouTubeID, current); err != nil {
		return models.Roadmap{}, err
	}

	progress, done := models.ProgressFromPlayback(current, duration)
	if done {
		return s.MarkVideoComplete(roadmapID, videoID)
	}
	return s.UpdateVideoProgress(roadmapID, videoID, progress)
}

// SaveNotes replaces a video's Markdown notes and bumps the roadmap's UpdatedAt.
func (s *Store) SaveNotes(roadmapID, videoID, notes string) (models.Roadmap, error) {
	return s.mutateVideo(roadmapID, videoID, func(v *models.Video) error {
		v.Notes = notes
		return nil
	})
}

// AddTimestamp inserts a marker, keeping markers ordered by time.
func (s *Store) AddTimestamp(roadmapID, videoID string, ts models.Timestamp) (models.Roadmap, error) {
	if !models.ValidSeconds(ts.Time) {
		return models.Roadmap{}, fmt.Errorf("%w: timestamp %v", shared.ErrInvalidInput, ts.Time)
	}
	return s.mutateVideo(roadmapID, videoID, func(v *models.Video) error {
		i, _ := slices.BinarySearchFunc(v.Timestamps, ts.Time, func(e models.Timestamp, t float64) int {
			switch {
			case e.Time < t:
				return -1
			case e.Time > t:
				return 1
			}
			return 0
		})
		// after any equal times
		for i < len(v.Timestamps) && v.Timestamps[i].Time == ts.Time {
			i++
		}
		v.Timestamps = slices.Insert(v.Timestamps, i, ts)
		return nil
	})
}

// RemoveTimestamp deletes the marker at index.
func (s *Store) RemoveTimestamp(roadmapID, videoID string, index int) (models.Roadmap, error) {
	return s.mutateVideo(roadmapID, videoID, func(v *models.Video) error {
		if index < 0 || index >= len(v.Timestamps) {
			return fmt.Errorf("%w: timestamp index %d out of range", shared.ErrInvalidArgument, index)
		}
		v.Timestamps = slices.Delete(v.Timestamps, index, index+1)
		return nil
	})
}

// GetVideoPosition returns the last playback second saved for a YouTube id.
func (s *Store) GetVideoPosition(youtubeID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions, err := readLocal[map[string]float64](s, storage.KeyVideoPositions)
	if err != nil {
		s.logger.Warn("could not read video positions", "err", err)
		return 0, false
	}
	p, ok := positions[youtubeID]
	return p, ok
}

// SaveVideoPosition records the playback second for a YouTube id. Never pushed remotely.
// Negative positions are stored as 0; NaN and infinities are rejected.
func (s *Store) SaveVideoPosition(youtubeID string, seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("%w: position %v", shared.ErrInvalidInput, seconds)
	}
	if seconds < 0 {
		seconds = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	positions, err := readLocal[map[string]float64](s, storage.KeyVideoPositions)
	if err != nil {
		return err
	}
	if positions == nil {
		positions = make(map[string]float64)
	}
	positions[youtubeID] = seconds
	return s.writeLocal(storage.KeyVideoPositions, positions)
}
