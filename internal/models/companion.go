package models

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type ConflictLevel string

const (
	ConflictLow    ConflictLevel = "Low"
	ConflictMedium ConflictLevel = "Medium"
	ConflictHigh   ConflictLevel = "High"
)

func (l ConflictLevel) Valid() bool {
	switch l {
	case ConflictLow, ConflictMedium, ConflictHigh:
		return true
	}
	return false
}

type ResponseLength string

const (
	LengthShort  ResponseLength = "short"
	LengthMedium ResponseLength = "medium"
	LengthLong   ResponseLength = "long"
)

type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Trait axes are percentages.
const (
	TraitMin = 0
	TraitMax = 100
)

type PersonaDimensions struct {
	Empathy     int `json:"empathy"`
	Rationality int `json:"rationality"`
	Humor       int `json:"humor"`
	Intimacy    int `json:"intimacy"`
	Creativity  int `json:"creativity"`
}

// Clamped returns d with every axis limited to [TraitMin, TraitMax].
func (d PersonaDimensions) Clamped() PersonaDimensions {
	return PersonaDimensions{
		Empathy:     clamp(d.Empathy),
		Rationality: clamp(d.Rationality),
		Humor:       clamp(d.Humor),
		Intimacy:    clamp(d.Intimacy),
		Creativity:  clamp(d.Creativity),
	}
}

func clamp(v int) int {
	return min(max(v, TraitMin), TraitMax)
}

type ChatSettings struct {
	ResponseLength ResponseLength `json:"responseLength"`
	AllowAuxiliary bool           `json:"allowAuxiliary"`
	Language       Language       `json:"language"`
}

type UserIdentity struct {
	Name         string `json:"name"`
	Avatar       string `json:"avatar,omitempty"`
	Gender       string `json:"gender"`
	Age          string `json:"age"`
	Relationship string `json:"relationship"`
	Personality  string `json:"personality"`
}

type ConflictState struct {
	IsActive          bool          `json:"isActive"`
	UserNegativeScore int           `json:"userNegativeScore"`
	ConflictLevel     ConflictLevel `json:"conflictLevel"`
	LastCheck         int64         `json:"lastCheck"`
}

type MemoryType string

const (
	MemoryText  MemoryType = "text"
	MemoryImage MemoryType = "image"
	MemoryVoice MemoryType = "voice"
)

type Memory struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Timestamp int64      `json:"timestamp"`
	Type      MemoryType `json:"type"`
	IsCore    bool       `json:"isCore"`
}

type PhotoType string

const (
	PhotoNormal        PhotoType = "normal"
	PhotoSynthesized   PhotoType = "synthesized"
	PhotoAvatarHistory PhotoType = "avatar_history"
)

type AlbumPhoto struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	UploadedBy  Role      `json:"uploadedBy"`
	Timestamp   int64     `json:"timestamp"`
	Type        PhotoType `json:"type"`
}

type Companion struct {
	ID                     string            `json:"id"`
	Name                   string            `json:"name"`
	Remark                 string            `json:"remark,omitempty"`
	Avatar                 string            `json:"avatar"`
	Gender                 string            `json:"gender"`
	Age                    string            `json:"age"`
	Relationship           string            `json:"relationship"`
	PersonalityDescription string            `json:"personalityDescription"`
	Background             string            `json:"background"`
	Appearance             string            `json:"appearance"`
	SupplementaryConfig    string            `json:"supplementaryConfig,omitempty"`
	Dimensions             PersonaDimensions `json:"dimensions"`
	UserIdentity           UserIdentity      `json:"userIdentity"`
	ChatSettings           ChatSettings      `json:"chatSettings"`
	Memories               []Memory          `json:"memories"`
	ChatHistory            []Message         `json:"chatHistory"`
	Album                  []AlbumPhoto      `json:"album"`
	InteractionScore       int               `json:"interactionScore"`
	ConflictState          ConflictState     `json:"conflictState"`
}

// DisplayName is the user's remark for the companion, or its name.
func (c Companion) DisplayName() string {
	if c.Remark != "" {
		return c.Remark
	}
	return c.Name
}

// Normalize enforces the write-path invariants: trait axes clamped, list
// fields non-nil, and an active conflict carrying a level.
func (c *Companion) Normalize() {
	c.Dimensions = c.Dimensions.Clamped()
	if c.Memories == nil {
		c.Memories = []Memory{}
	}
	if c.ChatHistory == nil {
		c.ChatHistory = []Message{}
	}
	if c.Album == nil {
		c.Album = []AlbumPhoto{}
	}
	if !c.ConflictState.ConflictLevel.Valid() {
		if c.ConflictState.IsActive {
			c.ConflictState.ConflictLevel = ConflictHigh
		} else {
			c.ConflictState.ConflictLevel = ConflictLow
		}
	}
}

func (c Companion) MessageIndex(id string) int {
	for i := range c.ChatHistory {
		if c.ChatHistory[i].ID == id {
			return i
		}
	}
	return -1
}

func (c Companion) PhotoIndex(id string) int {
	for i := range c.Album {
		if c.Album[i].ID == id {
			return i
		}
	}
	return -1
}

func (c Companion) Clone() Companion {
	out := c
	out.Memories = cloneSlice(c.Memories)
	out.ChatHistory = cloneSlice(c.ChatHistory)
	out.Album = cloneSlice(c.Album)
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
