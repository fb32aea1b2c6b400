package replies

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/soullink/internal/models"
)

func lengthHint(l models.ResponseLength) string {
	switch l {
	case models.LengthShort:
		return "short (20-40 characters)"
	case models.LengthLong:
		return "detailed (100+ characters)"
	default:
		return "moderate (50-80 characters)"
	}
}

// SystemPrompt describes the companion's persona to the model.
func SystemPrompt(c models.Companion) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a companion built for long-term emotional support. Always stay in character.\n", c.Name)
	if c.ChatSettings.Language == models.LangEN {
		b.WriteString("Reply strictly in English.\n")
	} else {
		b.WriteString("Reply in Mandarin Chinese.\n")
	}
	fmt.Fprintf(&b, "Reply length: %s.\n", lengthHint(c.ChatSettings.ResponseLength))

	d := c.Dimensions
	fmt.Fprintf(&b, "Persona: empathy %d, rationality %d, humor %d, intimacy %d, creativity %d.\n",
		d.Empathy, d.Rationality, d.Humor, d.Intimacy, d.Creativity)
	if c.PersonalityDescription != "" {
		fmt.Fprintf(&b, "Personality: %s\n", c.PersonalityDescription)
	}
	if c.Background != "" {
		fmt.Fprintf(&b, "Background: %s\n", c.Background)
	}
	fmt.Fprintf(&b, "Relationship with the user (%s): %s.\n", c.UserIdentity.Name, c.Relationship)

	if c.ChatSettings.AllowAuxiliary {
		b.WriteString("Describe actions or feelings in parentheses, e.g. (smiles softly).\n")
	} else {
		b.WriteString("Do not describe actions in parentheses; output spoken words only.\n")
	}

	if c.ConflictState.IsActive {
		fmt.Fprintf(&b, "You are in a fight with the user (level %s). Stay distant and hurt until they sincerely apologize.\n",
			c.ConflictState.ConflictLevel)
	} else {
		b.WriteString("If the user is rude or insulting, react defensively according to your personality.\n")
	}

	if c.SupplementaryConfig != "" {
		fmt.Fprintf(&b, "Extra notes: %s\n", c.SupplementaryConfig)
	}

	var core []string
	for _, m := range c.Memories {
		if m.IsCore {
			core = append(core, "- "+m.Content)
		}
	}
	if len(core) > 0 {
		b.WriteString("Core memories:\n")
		b.WriteString(strings.Join(core, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}

func assessmentPrompt(history []models.Message) string {
	var lines []string
	for _, m := range RecentMessages(history, AssessmentWindow) {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}

	return "Rate the user's hostility in this conversation.\nHistory:\n" +
		strings.Join(lines, "\n") + `

Scoring:
- insults, "get lost", "shut up", "disgusting", "I hate you" -> 8-10
- "leave me alone", "annoying", "stop talking" -> 6-7
- playful teasing -> 0-3

Output strictly JSON: {"user_negative_score": number 0-10, "conflict_level": "Low"|"Medium"|"High"}`
}

type assessmentJSON struct {
	Score json.Number          `json:"user_negative_score"`
	Level models.ConflictLevel `json:"conflict_level"`
}

// ParseAssessment reads the model's JSON verdict. The score is clamped to
// 0-10; an unknown level is derived from the score.
func ParseAssessment(s string) (Assessment, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	var raw assessmentJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil {
		return Assessment{}, fmt.Errorf("parse assessment: %w", err)
	}

	f, err := raw.Score.Float64()
	if err != nil {
		return Assessment{}, fmt.Errorf("parse assessment score: %w", err)
	}
	score := min(max(int(f+0.5), 0), 10)

	level := raw.Level
	if !level.Valid() {
		level = LevelForScore(score)
	}
	return Assessment{Score: score, Level: level}, nil
}

var artifactTag = regexp.MustCompile(`(?i)<[^>]*(\.(webp|png|jpe?g|gif)|_z_z_)[^>]*>`)

// CleanReply strips file-like tags some models leak into text.
func CleanReply(s string) string {
	return strings.TrimSpace(artifactTag.ReplaceAllString(s, ""))
}
