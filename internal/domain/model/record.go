package model

import "slices"

// TransitionEffect selects how the message scroller swaps messages.
type TransitionEffect string

// Supported transition effects.
const (
	TransitionFade  TransitionEffect = "fade"
	TransitionSlide TransitionEffect = "slide"
)

// Valid reports whether t is a known transition effect.
func (t TransitionEffect) Valid() bool {
	return t == TransitionFade || t == TransitionSlide
}

// Message is one rotating announcement.
type Message struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// MessagePreset is a named list of messages; exactly one is active at a time.
type MessagePreset struct {
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
}

// BurndownEntry is one earned score.
type BurndownEntry struct {
	Score     float64 `json:"score"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// Burndown is the goal chart state. Entries is an append/remove log.
type Burndown struct {
	Label       string          `json:"label"`
	TargetValue float64         `json:"targetValue"`
	Entries     []BurndownEntry `json:"entries"`
}

// StreamRecord is the single record held by the store.
type StreamRecord struct {
	ScoreLabel         string           `json:"scoreLabel"`
	ScoreValue         string           `json:"scoreValue"`
	TransitionEffect   TransitionEffect `json:"transitionEffect"`
	TransitionDuration float64          `json:"transitionDuration"`
	FontFamily         string           `json:"fontFamily"`
	FontSize           float64          `json:"fontSize"`
	MessagePresets     []MessagePreset  `json:"messagePresets"`
	ActivePresetName   string           `json:"activePresetName"`
	LastEvent          *Event           `json:"lastEvent"`
	Burndown           *Burndown        `json:"burndown,omitempty"`

	// Revision is assigned by the store on every replace and ignored on POST.
	Revision uint64 `json:"revision"`
}

// DefaultRecord is the record a fresh store starts with.
func DefaultRecord() StreamRecord {
	return StreamRecord{
		ScoreLabel:         "ハイスコア",
		ScoreValue:         "580",
		TransitionEffect:   TransitionFade,
		TransitionDuration: 5,
		FontFamily:         "sans-serif",
		FontSize:           54,
		MessagePresets: []MessagePreset{
			{
				Name: "デフォルト",
				Messages: []Message{
					{ID: 1, Text: "大会参加中！応援してね！"},
					{ID: 2, Text: "チャンネル登録・高評価お願いします"},
				},
			},
			{Name: "休憩中", Messages: []Message{}},
		},
		ActivePresetName: "デフォルト",
		Burndown: &Burndown{
			Label:       "目標まで",
			TargetValue: 50000,
			Entries:     []BurndownEntry{},
		},
	}
}

// FindPreset returns the index of the preset called name, or -1.
func (r *StreamRecord) FindPreset(name string) int {
	return slices.IndexFunc(r.MessagePresets, func(p MessagePreset) bool { return p.Name == name })
}

// ActiveMessages returns the messages of the active preset. A dangling
// activePresetName yields nil.
func (r *StreamRecord) ActiveMessages() []Message {
	i := r.FindPreset(r.ActivePresetName)
	if i < 0 {
		return nil
	}
	return r.MessagePresets[i].Messages
}

// Clone returns a deep copy so callers never share slices with the store.
func (r StreamRecord) Clone() StreamRecord {
	out := r
	if r.MessagePresets != nil {
		out.MessagePresets = make([]MessagePreset, len(r.MessagePresets))
		for i, p := range r.MessagePresets {
			out.MessagePresets[i] = p.Clone()
		}
	}
	if r.LastEvent != nil {
		ev := *r.LastEvent
		out.LastEvent = &ev
	}
	if r.Burndown != nil {
		b := r.Burndown.Clone()
		out.Burndown = &b
	}
	return out
}

// Clone returns a deep copy of the preset.
func (p MessagePreset) Clone() MessagePreset {
	out := p
	if p.Messages != nil {
		out.Messages = slices.Clone(p.Messages)
	}
	return out
}

// Clone returns a deep copy of the burndown.
func (b Burndown) Clone() Burndown {
	out := b
	if b.Entries != nil {
		out.Entries = slices.Clone(b.Entries)
	}
	return out
}
