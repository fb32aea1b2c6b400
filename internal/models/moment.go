package models

type Comment struct {
	Role    Role   `json:"role"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type Moment struct {
	ID          string    `json:"id"`
	CompanionID string    `json:"companionId,omitempty"`
	AuthorRole  Role      `json:"authorRole"`
	Content     string    `json:"content"`
	Image       string    `json:"image,omitempty"`
	Timestamp   int64     `json:"timestamp"`
	Likes       int       `json:"likes"`
	IsLiked     bool      `json:"isLiked,omitempty"`
	Comments    []Comment `json:"comments"`
	Location    string    `json:"location,omitempty"`
}

func (m Moment) Clone() Moment {
	out := m
	out.Comments = cloneSlice(m.Comments)
	return out
}
