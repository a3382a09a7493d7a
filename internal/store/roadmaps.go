package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/storage"
)

func (s *Store) readRoadmaps() ([]models.Roadmap, error) {
	list, err := readLocal[[]models.Roadmap](s, storage.KeyRoadmaps)
	if err != nil {
		return nil, err
	}
	out := make([]models.Roadmap, len(list))
	for i, r := range list {
		out[i] = r.Normalize()
	}
	return out, nil
}

// GetRoadmaps returns the locally cached roadmaps with progress recomputed.
func (s *Store) GetRoadmaps() ([]models.Roadmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRoadmaps()
}

// GetRoadmapsAsync fetches the remote list and mirrors it into the local cache.
// Roadmaps deleted locally stay hidden while the remote still lists them.
// Without a usable remote, or when the fetch fails, it returns the local cache instead.
func (s *Store) GetRoadmapsAsync(ctx context.Context) ([]models.Roadmap, error) {
	var remote []models.Roadmap
	ok := s.fetch(ctx, "fetch roadmaps", func(ctx context.Context, r Remote) error {
		var err error
		remote, err = r.FetchRoadmaps(ctx)
		return err
	})
	if !ok {
		return s.GetRoadmaps()
	}

	out := make([]models.Roadmap, len(remote))
	for i, r := range remote {
		out[i] = r.Normalize()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out = withoutBuried(s, storage.KeyDeletedRoadmaps, out, func(r models.Roadmap) string { return r.ID })
	if err := s.writeLocal(storage.KeyRoadmaps, out); err != nil {
		s.logger.Warn("could not mirror remote roadmaps", "err", err)
	}
	return out, nil
}

// GetRoadmap returns one cached roadmap.
func (s *Store) GetRoadmap(id string) (models.Roadmap, error) {
	list, err := s.GetRoadmaps()
	if err != nil {
		return models.Roadmap{}, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Roadmap{}, fmt.Errorf("%w: %s", shared.ErrRoadmapNotFound, id)
}

// SaveRoadmap inserts or replaces r locally, then pushes it in the background.
//
// UpdatedAt is set to now, CreatedAt is filled for new roadmaps, and Version is advanced past
// both the incoming and the cached value. The saved roadmap is returned.
func (s *Store) SaveRoadmap(r models.Roadmap) (models.Roadmap, error) {
	if r.ID == "" {
		r.ID = shared.GenerateID()
	}
	if err := r.Validate(); err != nil {
		return models.Roadmap{}, err
	}

	s.mu.Lock()
	list, err := s.readRoadmaps()
	if err != nil {
		s.mu.Unlock()
		return models.Roadmap{}, err
	}

	now := s.now()
	r.UpdatedAt = now
	i := slices.IndexFunc(list, func(x models.Roadmap) bool { return x.ID == r.ID })
	if i == -1 {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.Version++
		r = r.Normalize()
		list = append(list, r)
	} else {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = list[i].CreatedAt
		}
		r.Version = max(r.Version, list[i].Version) + 1
		r = r.Normalize()
		list[i] = r
	}

	werr := s.writeLocal(storage.KeyRoadmaps, list)
	s.mu.Unlock()

	s.pushRoadmap(r)
	return r, werr
}

// DeleteRoadmap removes a roadmap locally, then requests remote deletion in the background.
// The local removal stands even if the remote delete fails.
func (s *Store) DeleteRoadmap(id string) error {
	s.mu.Lock()
	list, err := s.readRoadmaps()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	i := slices.IndexFunc(list, func(x models.Roadmap) bool { return x.ID == id })
	if i == -1 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrRoadmapNotFound, id)
	}
	list = slices.Delete(list, i, i+1)
	werr := s.writeLocal(storage.KeyRoadmaps, list)
	if werr == nil {
		werr = s.bury(storage.KeyDeletedRoadmaps, id)
	}
	s.mu.Unlock()

	s.push("delete roadmap", id, func(ctx context.Context, r Remote) error {
		return r.DeleteRoadmap(ctx, id)
	})
	return werr
}

func (s *Store) pushRoadmap(r models.Roadmap) {
	s.push("upsert roadmap", r.ID, func(ctx context.Context, remote Remote) error {
		return remote.UpsertRoadmap(ctx, r)
	})
}

// mutateRoadmap applies fn to a cached roadmap, stamps and versions it, saves it, and pushes it.
func (s *Store) mutateRoadmap(id string, fn func(r *models.Roadmap) error) (models.Roadmap, error) {
	s.mu.Lock()
	list, err := s.readRoadmaps()
	if err != nil {
		s.mu.Unlock()
		return models.Roadmap{}, err
	}

	i := slices.IndexFunc(list, func(x models.Roadmap) bool { return x.ID == id })
	if i == -1 {
		s.mu.Unlock()
		return models.Roadmap{}, fmt.Errorf("%w: %s", shared.ErrRoadmapNotFound, id)
	}

	r := list[i]
	if err := fn(&r); err != nil {
		s.mu.Unlock()
		return models.Roadmap{}, err
	}
	r.UpdatedAt = s.now()
	r.Version++
	r = r.Normalize()
	list[i] = r

	werr := s.writeLocal(storage.KeyRoadmaps, list)
	s.mu.Unlock()

	s.pushRoadmap(r)
	return r, werr
}

// mutateVideo is [Store.mutateRoadmap] narrowed to one video.
func (s *Store) mutateVideo(roadmapID, videoID string, fn func(v *models.Video) error) (models.Roadmap, error) {
	return s.mutateRoadmap(roadmapID, func(r *models.Roadmap) error {
		i := r.FindVideo(videoID)
		if i == -1 {
			return fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
		}
		return fn(&r.Videos[i])
	})
}
