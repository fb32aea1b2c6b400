package localstore

import "github.com/dmitrijs2005/soullink/internal/models"

// TrimHistory keeps the newest n messages of every companion. History is
// stored oldest first, so the kept window is the tail.
func TrimHistory(st models.State, n int) models.State {
	out := st.Clone()
	for i := range out.Companions {
		h := out.Companions[i].ChatHistory
		if len(h) > n {
			out.Companions[i].ChatHistory = append([]models.Message{}, h[len(h)-n:]...)
		}
	}
	return out
}

// StripMedia blanks inline payloads longer than threshold bytes. The
// reconciler restores them from the remote copy.
func StripMedia(st models.State, threshold int) models.State {
	out := st.Clone()
	strip := func(s *string) {
		if len(*s) > threshold {
			*s = ""
		}
	}
	for i := range out.Companions {
		c := &out.Companions[i]
		for j := range c.ChatHistory {
			strip(&c.ChatHistory[j].Image)
			strip(&c.ChatHistory[j].Audio)
		}
		for j := range c.Album {
			strip(&c.Album[j].URL)
		}
	}
	for i := range out.Moments {
		strip(&out.Moments[i].Image)
	}
	return out
}
