package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/soullink/internal/client/seed"
	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/google/uuid"
)

// GetCompanions returns a copy of the visible companions.
func (s *Store) GetCompanions() []models.Companion {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Companion, 0, len(s.state.Companions))
	for _, c := range s.state.Companions {
		if !s.tombs.IsDeleted(c.ID) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (s *Store) GetCompanion(id string) (models.Companion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.companionLocked(&s.state, id)
	if err != nil {
		return models.Companion{}, err
	}
	return c.Clone(), nil
}

func (s *Store) GetMoments() []models.Moment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Moment, len(s.state.Moments))
	for i, m := range s.state.Moments {
		out[i] = m.Clone()
	}
	return out
}

func (s *Store) GetUserProfile() models.UserIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserProfile
}

// AddCompanion appends c, assigning an id when it has none. Unset identity
// and chat settings take the defaults. A deleted id cannot be reused.
func (s *Store) AddCompanion(ctx context.Context, c models.Companion) (models.Companion, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.UserIdentity == (models.UserIdentity{}) {
		c.UserIdentity = seed.DefaultUserIdentity()
	}
	if c.ChatSettings == (models.ChatSettings{}) {
		c.ChatSettings = seed.DefaultChatSettings()
	}
	c.Normalize()

	err := s.mutate(ctx, func(st *models.State) error {
		if s.tombs.IsDeleted(c.ID) {
			return fmt.Errorf("%w: %s", common.ErrCompanionDeleted, c.ID)
		}
		if st.CompanionIndex(c.ID) >= 0 {
			return fmt.Errorf("companion %s: %w", c.ID, common.ErrAlreadyExists)
		}
		st.Companions = append(st.Companions, c.Clone())
		return nil
	})
	if err != nil {
		return models.Companion{}, err
	}
	return c, nil
}

// UpdateCompanion replaces the stored companion with the same id.
func (s *Store) UpdateCompanion(ctx context.Context, c models.Companion) error {
	c.Normalize()
	return s.mutate(ctx, func(st *models.State) error {
		cur, err := s.companionLocked(st, c.ID)
		if err != nil {
			return err
		}
		*cur = c.Clone()
		return nil
	})
}

// DeleteCompanion tombstones id and removes the companion. The change is
// saved locally and remotely at once; a pending debounced save and the
// companion's scheduled tasks are canceled.
func (s *Store) DeleteCompanion(ctx context.Context, id string) error {
	err := s.apply(ctx, func(st *models.State) error {
		idx := st.CompanionIndex(id)
		if idx < 0 {
			if s.tombs.IsDeleted(id) {
				return fmt.Errorf("%w: %s", common.ErrCompanionDeleted, id)
			}
			return fmt.Errorf("%w: %s", common.ErrCompanionNotFound, id)
		}
		s.tombs.MarkDeleted(id)
		st.Companions = append(st.Companions[:idx:idx], st.Companions[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	if n := s.sched.CancelKey(id); n > 0 {
		s.logger.Debug(ctx, "scheduled tasks canceled", "companion", id, "count", n)
	}
	s.debouncer.Cancel()
	s.pushRemote(ctx)

	s.logger.Info(ctx, "companion deleted", "companion", id)
	return nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, p models.UserIdentity) error {
	return s.mutate(ctx, func(st *models.State) error {
		st.UserProfile = p
		return nil
	})
}

// ChangeCompanionAvatar sets a new avatar and keeps the old one in the
// album as an avatar_history photo.
func (s *Store) ChangeCompanionAvatar(ctx context.Context, companionID, url string) error {
	if url == "" {
		return fmt.Errorf("%w: empty avatar url", common.ErrInvalidArgument)
	}

	return s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			return err
		}
		if c.Avatar == url {
			return errNoChange
		}

		if c.Avatar != "" {
			ts := s.now()
			id := fmt.Sprintf("archived_avi_%d", ts)
			if c.PhotoIndex(id) >= 0 {
				id += "_" + s.newID()
			}
			archived := models.AlbumPhoto{
				ID:          id,
				URL:         c.Avatar,
				Description: "Historical Avatar",
				UploadedBy:  models.RoleModel,
				Timestamp:   ts,
				Type:        models.PhotoAvatarHistory,
			}
			c.Album = append([]models.AlbumPhoto{archived}, c.Album...)
		}
		c.Avatar = url
		return nil
	})
}

func (s *Store) AddAlbumPhoto(ctx context.Context, companionID string, p models.AlbumPhoto) (models.AlbumPhoto, error) {
	if p.URL == "" {
		return models.AlbumPhoto{}, fmt.Errorf("%w: empty photo url", common.ErrInvalidArgument)
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Timestamp == 0 {
		p.Timestamp = s.now()
	}
	if p.UploadedBy == "" {
		p.UploadedBy = models.RoleUser
	}
	if p.Type == "" {
		p.Type = models.PhotoNormal
	}

	err := s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			return err
		}
		if c.PhotoIndex(p.ID) >= 0 {
			return fmt.Errorf("photo %s: %w", p.ID, common.ErrAlreadyExists)
		}
		c.Album = append([]models.AlbumPhoto{p}, c.Album...)
		return nil
	})
	if err != nil {
		return models.AlbumPhoto{}, err
	}
	return p, nil
}

func (s *Store) DeleteAlbumPhoto(ctx context.Context, companionID, photoID string) error {
	return s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			return err
		}
		idx := c.PhotoIndex(photoID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", common.ErrPhotoNotFound, photoID)
		}
		c.Album = append(c.Album[:idx:idx], c.Album[idx+1:]...)
		return nil
	})
}
