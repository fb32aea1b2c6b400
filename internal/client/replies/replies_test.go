package replies

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHostile(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"滚", true},
		{"你给我闭嘴", true},
		{"我不想理你了", true},
		{"Get Lost!", true},
		{"please SHUT UP", true},
		{"晚安", false},
		{"you are a dummy", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHostile(tt.text))
		})
	}
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, models.ConflictLow, LevelForScore(0))
	assert.Equal(t, models.ConflictLow, LevelForScore(5))
	assert.Equal(t, models.ConflictMedium, LevelForScore(6))
	assert.Equal(t, models.ConflictHigh, LevelForScore(8))
}

func TestRecentMessages(t *testing.T) {
	var h []models.Message
	for i := 0; i < 7; i++ {
		h = append(h, models.Message{ID: string(rune('a' + i))})
	}
	got := RecentMessages(h, AssessmentWindow)
	require.Len(t, got, 5)
	assert.Equal(t, "c", got[0].ID)
	assert.Len(t, RecentMessages(h[:2], AssessmentWindow), 2)
}

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Assessment
		wantErr bool
	}{
		{name: "plain", in: `{"user_negative_score": 7, "conflict_level": "Medium"}`, want: Assessment{7, models.ConflictMedium}},
		{name: "fenced", in: "```json\n{\"user_negative_score\": 9, \"conflict_level\": \"High\"}\n```", want: Assessment{9, models.ConflictHigh}},
		{name: "clamped", in: `{"user_negative_score": 42, "conflict_level": "High"}`, want: Assessment{10, models.ConflictHigh}},
		{name: "float score", in: `{"user_negative_score": 5.6}`, want: Assessment{6, models.ConflictMedium}},
		{name: "unknown level", in: `{"user_negative_score": 2, "conflict_level": "Severe"}`, want: Assessment{2, models.ConflictLow}},
		{name: "garbage", in: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssessment(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "hello", CleanReply(" hello <P_z_z_123> "))
	assert.Equal(t, "look", CleanReply("look<img src=a.png>"))
	assert.Equal(t, "<b>kept</b>", CleanReply("<b>kept</b>"))
}

func TestSystemPrompt(t *testing.T) {
	c := models.Companion{
		Name:         "Lin",
		Relationship: "friend",
		Dimensions:   models.PersonaDimensions{Empathy: 90},
		ChatSettings: models.ChatSettings{Language: models.LangEN, ResponseLength: models.LengthShort},
		Memories: []models.Memory{
			{Content: "likes rain", IsCore: true},
			{Content: "not core"},
		},
		ConflictState: models.ConflictState{IsActive: true, ConflictLevel: models.ConflictHigh},
	}

	p := SystemPrompt(c)
	assert.Contains(t, p, "You are Lin")
	assert.Contains(t, p, "English")
	assert.Contains(t, p, "short")
	assert.Contains(t, p, "empathy 90")
	assert.Contains(t, p, "- likes rain")
	assert.NotContains(t, p, "not core")
	assert.Contains(t, p, "level High")
}

func TestMockGenerator(t *testing.T) {
	ctx := context.Background()
	m := NewMockGenerator()
	c := models.Companion{Name: "Lin", Remark: "L"}

	r, err := m.GenerateReply(ctx, c, "hi", "")
	require.NoError(t, err)
	assert.Contains(t, r.Text, "hi")

	a, err := m.AssessHostility(ctx, []models.Message{{Role: models.RoleUser, Content: "shut up"}})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictHigh, a.Level)
	assert.GreaterOrEqual(t, a.Score, HostilityThreshold)

	a, err = m.AssessHostility(ctx, []models.Message{{Role: models.RoleModel, Content: "shut up"}})
	require.NoError(t, err)
	assert.Equal(t, FallbackAssessment, a)

	s, err := m.MomentComment(ctx, c, "sunset")
	require.NoError(t, err)
	assert.Contains(t, s, "L")

	m.SetErr(errors.New("offline"))
	_, err = m.ProactiveMessage(ctx, c, TriggerMorning)
	assert.Error(t, err)
	assert.Equal(t, 5, m.Calls())
}
