package panel

import (
	"math"
	"strconv"
	"strings"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
)

// Tab is the selected form section.
type Tab string

// Form sections.
const (
	TabScore    Tab = "score"
	TabBurndown Tab = "burndown"
	TabMessage  Tab = "message"
	TabCommon   Tab = "common"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	switch t {
	case TabScore, TabBurndown, TabMessage, TabCommon:
		return true
	}
	return false
}

// Snapshot is the editable, cached form state.
type Snapshot struct {
	ActiveTab   Tab  `json:"activeTab"`
	IsListening bool `json:"isListening"`

	ScoreLabel string `json:"scoreLabel"`
	ScoreValue string `json:"scoreValue"`

	HasBurndown         bool    `json:"hasBurndown"`
	BurndownLabel       string  `json:"burndownLabel"`
	BurndownTargetValue float64 `json:"burndownTargetValue"`
	// BurndownEntriesText holds one score per line.
	BurndownEntriesText string `json:"burndownEntriesText"`
	// BurndownEntries are the entries last loaded from the store. Their
	// timestamps are reused for lines that still carry the same score.
	BurndownEntries []model.BurndownEntry `json:"burndownEntries"`

	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`

	CurrentMessage     string                 `json:"currentMessage"`
	TransitionEffect   model.TransitionEffect `json:"transitionEffect"`
	TransitionDuration float64                `json:"transitionDuration"`
	MessagePresets     []model.MessagePreset  `json:"messagePresets"`
	ActivePresetName   string                 `json:"activePresetName"`
}

// DefaultSnapshot is the form state used when nothing could be loaded.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		ActiveTab:           TabScore,
		ScoreValue:          "0",
		HasBurndown:         true,
		BurndownTargetValue: 50000,
		BurndownEntries:     []model.BurndownEntry{},
		FontSize:            54,
		TransitionEffect:    model.TransitionFade,
		TransitionDuration:  2,
		MessagePresets:      []model.MessagePreset{},
	}
}

// SnapshotFromRecord projects rec into form state.
func SnapshotFromRecord(rec model.StreamRecord) Snapshot {
	rec = rec.Clone()
	s := DefaultSnapshot()
	s.ScoreLabel = rec.ScoreLabel
	s.ScoreValue = rec.ScoreValue
	s.TransitionEffect = rec.TransitionEffect
	s.TransitionDuration = rec.TransitionDuration
	s.FontFamily = rec.FontFamily
	s.FontSize = rec.FontSize
	s.ActivePresetName = rec.ActivePresetName
	if rec.MessagePresets != nil {
		s.MessagePresets = rec.MessagePresets
	}

	s.HasBurndown = rec.Burndown != nil
	if rec.Burndown != nil {
		s.BurndownLabel = rec.Burndown.Label
		s.BurndownTargetValue = rec.Burndown.TargetValue
		s.BurndownEntries = rec.Burndown.Entries
		if s.BurndownEntries == nil {
			s.BurndownEntries = []model.BurndownEntry{}
		}
		s.BurndownEntriesText = FormatEntries(s.BurndownEntries)
	}
	return s
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.MessagePresets != nil {
		out.MessagePresets = make([]model.MessagePreset, len(s.MessagePresets))
		for i, p := range s.MessagePresets {
			out.MessagePresets[i] = p.Clone()
		}
	}
	if s.BurndownEntries != nil {
		out.BurndownEntries = append([]model.BurndownEntry{}, s.BurndownEntries...)
	}
	return out
}

// Payload builds the record to POST. ev becomes lastEvent (nil clears it);
// now stamps burndown lines that have no earlier entry.
func (s Snapshot) Payload(ev *model.Event, now time.Time) model.StreamRecord {
	s = s.Clone()
	rec := model.StreamRecord{
		ScoreLabel:         s.ScoreLabel,
		ScoreValue:         s.ScoreValue,
		TransitionEffect:   s.TransitionEffect,
		TransitionDuration: s.TransitionDuration,
		FontFamily:         s.FontFamily,
		FontSize:           s.FontSize,
		MessagePresets:     s.MessagePresets,
		ActivePresetName:   s.ActivePresetName,
		LastEvent:          ev,
	}
	if s.HasBurndown {
		rec.Burndown = &model.Burndown{
			Label:       s.BurndownLabel,
			TargetValue: s.BurndownTargetValue,
			Entries:     matchEntries(ParseEntries(s.BurndownEntriesText), s.BurndownEntries, now),
		}
	}
	return rec
}

// FormatEntries renders entries as one score per line.
func FormatEntries(entries []model.BurndownEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = strconv.FormatFloat(e.Score, 'f', -1, 64)
	}
	return strings.Join(lines, "\n")
}

// ParseEntries parses one score per line, dropping lines that are not finite
// positive numbers.
func ParseEntries(text string) []float64 {
	var scores []float64
	for _, line := range strings.Split(text, "\n") {
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		scores = append(scores, v)
	}
	return scores
}

// matchEntries pairs each score with the timestamp of the first unused earlier
// entry carrying the same score, in order.
func matchEntries(scores []float64, previous []model.BurndownEntry, now time.Time) []model.BurndownEntry {
	pending := make(map[float64][]int64, len(previous))
	for _, e := range previous {
		pending[e.Score] = append(pending[e.Score], e.Timestamp)
	}
	out := make([]model.BurndownEntry, len(scores))
	for i, score := range scores {
		ts := now.UnixMilli()
		if q := pending[score]; len(q) > 0 {
			ts, pending[score] = q[0], q[1:]
		}
		out[i] = model.BurndownEntry{Score: score, Timestamp: ts}
	}
	return out
}
