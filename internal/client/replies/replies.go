// Package replies is the port through which the store asks for companion
// text: chat replies, hostility assessments, moment comments and
// proactive messages.
package replies

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/soullink/internal/models"
)

type Reply struct {
	Text  string
	Image string
}

// Assessment rates the user's hostility in the recent conversation.
type Assessment struct {
	Score int
	Level models.ConflictLevel
}

type Trigger string

const (
	TriggerMorning Trigger = "morning"
	TriggerNight   Trigger = "night"
	TriggerNoReply Trigger = "no_reply"
)

type Generator interface {
	GenerateReply(ctx context.Context, c models.Companion, text, image string) (Reply, error)
	AssessHostility(ctx context.Context, history []models.Message) (Assessment, error)
	MomentComment(ctx context.Context, c models.Companion, momentText string) (string, error)
	MomentReply(ctx context.Context, c models.Companion, momentText, userComment string) (string, error)
	ProactiveMessage(ctx context.Context, c models.Companion, trigger Trigger) (string, error)
}

// Values used in place of generator output when a call fails.
const (
	FallbackReplyText     = "(System Error: Please try again.)"
	FallbackMomentComment = "Nice!"
	FallbackMomentReply   = "Thanks."
	FallbackProactive     = "..."
)

var FallbackAssessment = Assessment{Score: 0, Level: models.ConflictLow}

// AssessmentWindow is how many trailing messages an assessment looks at.
const AssessmentWindow = 5

// HostilityThreshold is the score from which a conflict becomes active.
const HostilityThreshold = 6

func RecentMessages(history []models.Message, n int) []models.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// HostileKeywords trigger an immediate high-level conflict without asking
// the generator.
var HostileKeywords = []string{
	"滚", "去死", "闭嘴", "恶心", "讨厌", "不想理你",
	"get lost", "shut up",
}

func IsHostile(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range HostileKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// LevelForScore derives a level when the generator did not name a valid one.
func LevelForScore(score int) models.ConflictLevel {
	switch {
	case score >= 8:
		return models.ConflictHigh
	case score >= HostilityThreshold:
		return models.ConflictMedium
	default:
		return models.ConflictLow
	}
}
