package models

import (
	"bytes"
	"encoding/json"
)

type Message struct {
	ID               string `json:"id"`
	Role             Role   `json:"role"`
	Content          string `json:"content"`
	Timestamp        int64  `json:"timestamp"`
	Image            string `json:"image,omitempty"`
	Audio            string `json:"audio,omitempty"`
	IsMemoryAnchored bool   `json:"isMemoryAnchored,omitempty"`

	coerced bool
}

// ContentCoerced reports whether Content arrived as a non-string JSON value
// and was converted while decoding.
func (m Message) ContentCoerced() bool {
	return m.coerced
}

// UnmarshalJSON accepts any JSON value for content. Non-string values are
// kept as their compact JSON text; null becomes "".
func (m *Message) UnmarshalJSON(b []byte) error {
	type plain Message
	var raw struct {
		plain
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*m = Message(raw.plain)
	m.coerced = false

	content := bytes.TrimSpace(raw.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
		m.Content = ""
		m.coerced = len(content) > 0
	case content[0] == '"':
		if err := json.Unmarshal(content, &m.Content); err != nil {
			return err
		}
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, content); err != nil {
			return err
		}
		m.Content = buf.String()
		m.coerced = true
	}
	return nil
}
