package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/soullink/internal/client/replies"
	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/models"
)

// anchorRunes is how much of a message an anchored memory keeps.
const anchorRunes = 150

func anchorMemoryID(messageID string) string {
	return "mem_" + messageID
}

// AddMessage appends msg to the companion's history. A user message that
// contains a hostile phrase turns the conflict on at once; every user
// message also starts a background severity assessment.
func (s *Store) AddMessage(ctx context.Context, companionID string, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = s.now()
	}
	if msg.Role == "" {
		msg.Role = models.RoleUser
	}

	err := s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			return err
		}
		if c.MessageIndex(msg.ID) >= 0 {
			return fmt.Errorf("message %s: %w", msg.ID, common.ErrAlreadyExists)
		}
		c.ChatHistory = append(c.ChatHistory, msg)

		if msg.Role == models.RoleUser && replies.IsHostile(msg.Content) {
			c.ConflictState = models.ConflictState{
				IsActive:          true,
				UserNegativeScore: 10,
				ConflictLevel:     models.ConflictHigh,
				LastCheck:         s.now(),
			}
		}
		return nil
	})
	if err != nil {
		return models.Message{}, err
	}

	if msg.Role == models.RoleUser {
		s.goBackground(func(ctx context.Context) {
			if err := s.UpdateConflictState(ctx, companionID); err != nil {
				s.logger.Debug(ctx, "conflict assessment skipped", "companion", companionID, "error", err)
			}
		})
	}
	return msg, nil
}

// SetChatHistory replaces the companion's history. Message ids must be
// unique.
func (s *Store) SetChatHistory(ctx context.Context, companionID string, history []models.Message) error {
	seen := make(map[string]struct{}, len(history))
	for _, m := range history {
		if _, dup := seen[m.ID]; dup || m.ID == "" {
			return fmt.Errorf("%w: duplicate or empty message id %q", common.ErrInvalidArgument, m.ID)
		}
		seen[m.ID] = struct{}{}
	}

	return s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			return err
		}
		c.ChatHistory = append([]models.Message{}, history...)
		return nil
	})
}

// SendMessage appends the user's message, asks the generator for a reply
// and appends that. A failed generation yields the fallback reply.
func (s *Store) SendMessage(ctx context.Context, companionID, text, image string) (models.Message, error) {
	if strings.TrimSpace(text) == "" && image == "" {
		return models.Message{}, fmt.Errorf("%w: empty message", common.ErrInvalidArgument)
	}

	if _, err := s.AddMessage(ctx, companionID, models.Message{Role: models.RoleUser, Content: text, Image: image}); err != nil {
		return models.Message{}, err
	}

	c, err := s.GetCompanion(companionID)
	if err != nil {
		return models.Message{}, err
	}

	reply, err := s.generator.GenerateReply(ctx, c, text, image)
	if err != nil {
		s.logger.Warn(ctx, "reply generation failed", "companion", companionID, "error", err)
		reply = replies.Reply{Text: replies.FallbackReplyText}
	}

	return s.AddMessage(ctx, companionID, models.Message{
		Role:    models.RoleModel,
		Content: reply.Text,
		Image:   reply.Image,
	})
}

// UpdateConflictState rates the recent conversation and stores the result.
// If the assessment fails the conflict state is left as it is.
func (s *Store) UpdateConflictState(ctx context.Context, companionID string) error {
	c, err := s.GetCompanion(companionID)
	if err != nil {
		return err
	}

	a, err := s.generator.AssessHostility(ctx, replies.RecentMessages(c.ChatHistory, replies.AssessmentWindow))
	if err != nil {
		s.logger.Warn(ctx, "conflict assessment failed", "companion", companionID, "error", err)
		return nil
	}

	level := a.Level
	if !level.Valid() {
		level = replies.LevelForScore(a.Score)
	}

	return s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			// Deleted while the assessment ran.
			return errNoChange
		}
		c.ConflictState = models.ConflictState{
			IsActive:          a.Score >= replies.HostilityThreshold,
			UserNegativeScore: a.Score,
			ConflictLevel:     level,
			LastCheck:         s.now(),
		}
		return nil
	})
}

func (s *Store) ResolveConflict(ctx context.Context, companionID string) error {
	return s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			return err
		}
		c.ConflictState = models.ConflictState{
			ConflictLevel: models.ConflictLow,
			LastCheck:     s.now(),
		}
		return nil
	})
}

// ToggleMemoryAnchor flips the anchor flag of a message and adds or removes
// the matching core memory. It returns the new flag.
func (s *Store) ToggleMemoryAnchor(ctx context.Context, companionID, messageID string) (bool, error) {
	var anchored bool
	err := s.mutate(ctx, func(st *models.State) error {
		c, err := s.companionLocked(st, companionID)
		if err != nil {
			return err
		}
		idx := c.MessageIndex(messageID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", common.ErrMessageNotFound, messageID)
		}

		msg := &c.ChatHistory[idx]
		msg.IsMemoryAnchored = !msg.IsMemoryAnchored
		anchored = msg.IsMemoryAnchored

		memID := anchorMemoryID(messageID)
		kept := c.Memories[:0:0]
		for _, m := range c.Memories {
			if m.ID != memID {
				kept = append(kept, m)
			}
		}
		if anchored {
			kept = append(kept, models.Memory{
				ID:        memID,
				Content:   truncateRunes(msg.Content, anchorRunes),
				Timestamp: s.now(),
				Type:      models.MemoryText,
				IsCore:    true,
			})
		}
		c.Memories = kept
		return nil
	})
	return anchored, err
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ScheduleProactiveMessage makes the companion write first after delay. The
// task is dropped if the companion is deleted before it runs.
func (s *Store) ScheduleProactiveMessage(companionID string, delay time.Duration, trigger replies.Trigger) (cancel func(), err error) {
	if _, err := s.GetCompanion(companionID); err != nil {
		return nil, err
	}

	return s.sched.Schedule(companionID, delay, func() {
		ctx := s.ctx
		c, err := s.GetCompanion(companionID)
		if err != nil {
			return
		}

		text, err := s.generator.ProactiveMessage(ctx, c, trigger)
		if err != nil {
			s.logger.Warn(ctx, "proactive message generation failed", "companion", companionID, "error", err)
			text = replies.FallbackProactive
		}

		if _, err := s.AddMessage(ctx, companionID, models.Message{Role: models.RoleModel, Content: text}); err != nil {
			s.logger.Debug(ctx, "proactive message dropped", "companion", companionID, "error", err)
		}
	}), nil
}
