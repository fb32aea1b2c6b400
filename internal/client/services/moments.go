package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/dmitrijs2005/soullink/internal/client/replies"
	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/models"
)

const (
	// likeBonus is added to the interaction score when the user likes a
	// companion's moment.
	likeBonus = 5

	userCommentName = "Me"
)

// AddMoment puts m at the top of the feed.
func (s *Store) AddMoment(ctx context.Context, m models.Moment) (models.Moment, error) {
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Timestamp == 0 {
		m.Timestamp = s.now()
	}
	if m.AuthorRole == "" {
		m.AuthorRole = models.RoleUser
	}
	if m.Comments == nil {
		m.Comments = []models.Comment{}
	}

	err := s.mutate(ctx, func(st *models.State) error {
		if m.CompanionID != "" {
			if _, err := s.companionLocked(st, m.CompanionID); err != nil {
				return err
			}
		}
		if st.MomentIndex(m.ID) >= 0 {
			return fmt.Errorf("moment %s: %w", m.ID, common.ErrAlreadyExists)
		}
		st.Moments = append([]models.Moment{m.Clone()}, st.Moments...)
		return nil
	})
	if err != nil {
		return models.Moment{}, err
	}
	return m, nil
}

// PostUserMoment publishes the user's own moment. One companion, picked at
// random, comments on it after a short delay.
func (s *Store) PostUserMoment(ctx context.Context, content, image string) (models.Moment, error) {
	if strings.TrimSpace(content) == "" && image == "" {
		return models.Moment{}, fmt.Errorf("%w: empty moment", common.ErrInvalidArgument)
	}

	m, err := s.AddMoment(ctx, models.Moment{AuthorRole: models.RoleUser, Content: content, Image: image})
	if err != nil {
		return models.Moment{}, err
	}

	companions := s.GetCompanions()
	if len(companions) == 0 {
		return m, nil
	}
	commenter := companions[rand.IntN(len(companions))].ID

	s.sched.Schedule(commenter, s.opts.MomentCommentDelay, func() {
		ctx := s.ctx
		c, err := s.GetCompanion(commenter)
		if err != nil {
			return
		}

		text, err := s.generator.MomentComment(ctx, c, content)
		if err != nil {
			s.logger.Warn(ctx, "moment comment generation failed", "companion", commenter, "error", err)
			text = replies.FallbackMomentComment
		}
		s.appendComment(ctx, m.ID, models.Comment{Role: models.RoleModel, Name: c.DisplayName(), Content: text})
	})
	return m, nil
}

// AddComment adds the user's comment to a moment.
func (s *Store) AddComment(ctx context.Context, momentID, content string) error {
	return s.mutate(ctx, func(st *models.State) error {
		m, err := s.momentLocked(st, momentID)
		if err != nil {
			return err
		}
		m.Comments = append(m.Comments, models.Comment{Role: models.RoleUser, Name: userCommentName, Content: content})
		return nil
	})
}

// CommentOnMoment adds the user's comment and, on a companion's moment,
// schedules the companion's reply.
func (s *Store) CommentOnMoment(ctx context.Context, momentID, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty comment", common.ErrInvalidArgument)
	}

	var moment models.Moment
	err := s.mutate(ctx, func(st *models.State) error {
		m, err := s.momentLocked(st, momentID)
		if err != nil {
			return err
		}
		m.Comments = append(m.Comments, models.Comment{Role: models.RoleUser, Name: userCommentName, Content: content})
		moment = m.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	if moment.AuthorRole != models.RoleModel || moment.CompanionID == "" {
		return nil
	}

	companionID := moment.CompanionID
	s.sched.Schedule(companionID, s.opts.MomentReplyDelay, func() {
		ctx := s.ctx
		c, err := s.GetCompanion(companionID)
		if err != nil {
			return
		}

		text, err := s.generator.MomentReply(ctx, c, moment.Content, content)
		if err != nil {
			s.logger.Warn(ctx, "moment reply generation failed", "companion", companionID, "error", err)
			text = replies.FallbackMomentReply
		}
		s.appendComment(ctx, momentID, models.Comment{Role: models.RoleModel, Name: c.DisplayName(), Content: text})
	})
	return nil
}

// appendComment is used by scheduled tasks; the moment may be gone by then.
func (s *Store) appendComment(ctx context.Context, momentID string, comment models.Comment) {
	err := s.mutate(ctx, func(st *models.State) error {
		m, err := s.momentLocked(st, momentID)
		if err != nil {
			return errNoChange
		}
		m.Comments = append(m.Comments, comment)
		return nil
	})
	if err != nil {
		s.logger.Debug(ctx, "comment dropped", "moment", momentID, "error", err)
	}
}

// LikeMoment toggles the like flag and returns the new value. Liking a
// companion's moment raises that companion's interaction score.
func (s *Store) LikeMoment(ctx context.Context, momentID string) (bool, error) {
	var liked bool
	err := s.mutate(ctx, func(st *models.State) error {
		m, err := s.momentLocked(st, momentID)
		if err != nil {
			return err
		}

		if m.IsLiked {
			m.IsLiked = false
			m.Likes = max(0, m.Likes-1)
		} else {
			m.IsLiked = true
			m.Likes++
			if m.AuthorRole == models.RoleModel && m.CompanionID != "" {
				if idx := st.CompanionIndex(m.CompanionID); idx >= 0 {
					st.Companions[idx].InteractionScore += likeBonus
				}
			}
		}
		liked = m.IsLiked
		return nil
	})
	return liked, err
}
