package models

import "encoding/json"

// State is the whole local record.
type State struct {
	Companions          []Companion  `json:"companions"`
	Moments             []Moment     `json:"moments"`
	UserProfile         UserIdentity `json:"userProfile"`
	DeletedCompanionIDs []string     `json:"deletedCompanionIds"`
}

// Document is the remote per-user record: the state plus the client clock
// of the last write.
type Document struct {
	State
	LastUpdated int64 `json:"lastUpdated"`
}

func (s State) Clone() State {
	out := State{
		Companions:          cloneSlice(s.Companions),
		Moments:             cloneSlice(s.Moments),
		UserProfile:         s.UserProfile,
		DeletedCompanionIDs: cloneSlice(s.DeletedCompanionIDs),
	}
	for i := range out.Companions {
		out.Companions[i] = s.Companions[i].Clone()
	}
	for i := range out.Moments {
		out.Moments[i] = s.Moments[i].Clone()
	}
	return out
}

func (s State) CompanionIndex(id string) int {
	for i := range s.Companions {
		if s.Companions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) MomentIndex(id string) int {
	for i := range s.Moments {
		if s.Moments[i].ID == id {
			return i
		}
	}
	return -1
}

// CoercedMessages counts messages whose content was converted from a
// non-string value during decoding.
func (s State) CoercedMessages() int {
	n := 0
	for _, c := range s.Companions {
		for _, m := range c.ChatHistory {
			if m.ContentCoerced() {
				n++
			}
		}
	}
	return n
}

// DecodeState parses a stored record. Missing list fields decode as empty
// lists and companions are normalized.
func DecodeState(b []byte) (State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, err
	}
	st.normalize()
	return st, nil
}

func DecodeDocument(b []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, err
	}
	doc.State.normalize()
	return doc, nil
}

func (s *State) normalize() {
	if s.Companions == nil {
		s.Companions = []Companion{}
	}
	if s.Moments == nil {
		s.Moments = []Moment{}
	}
	if s.DeletedCompanionIDs == nil {
		s.DeletedCompanionIDs = []string{}
	}
	for i := range s.Companions {
		s.Companions[i].Normalize()
	}
	for i := range s.Moments {
		if s.Moments[i].Comments == nil {
			s.Moments[i].Comments = []Comment{}
		}
	}
}
