package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordPatch is a decoded POST body. Nil fields keep the stored value.
// LastEvent is tri-state: LastEventSet=false keeps it, LastEventSet with a nil
// LastEvent clears it.
type RecordPatch struct {
	ScoreLabel         *string
	ScoreValue         *string
	TransitionEffect   *TransitionEffect
	TransitionDuration *float64
	FontFamily         *string
	FontSize           *float64
	MessagePresets     []MessagePreset
	PresetsSet         bool
	ActivePresetName   *string
	LastEvent          *Event
	LastEventSet       bool
	Burndown           *Burndown
}

// PatchFromRecord builds a patch that replaces every field with rec's values.
func PatchFromRecord(rec StreamRecord) RecordPatch {
	rec = rec.Clone()
	p := RecordPatch{
		ScoreLabel:         &rec.ScoreLabel,
		ScoreValue:         &rec.ScoreValue,
		TransitionEffect:   &rec.TransitionEffect,
		TransitionDuration: &rec.TransitionDuration,
		FontFamily:         &rec.FontFamily,
		FontSize:           &rec.FontSize,
		MessagePresets:     rec.MessagePresets,
		PresetsSet:         true,
		ActivePresetName:   &rec.ActivePresetName,
		LastEvent:          rec.LastEvent,
		LastEventSet:       true,
		Burndown:           rec.Burndown,
	}
	if p.MessagePresets == nil {
		p.MessagePresets = []MessagePreset{}
	}
	return p
}

// DecodePatch parses a POST body, checking the JSON type of every known field.
// Type mismatches wrap ErrInvalidType; malformed JSON is returned as is.
func DecodePatch(data []byte) (RecordPatch, error) {
	var p RecordPatch
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			return p, fmt.Errorf("%w: body must be a JSON object", ErrInvalidType)
		}
		return p, err
	}
	if fields == nil {
		return p, fmt.Errorf("%w: body must be a JSON object", ErrInvalidType)
	}

	var err error
	if p.ScoreLabel, err = stringField(fields, "scoreLabel"); err != nil {
		return p, err
	}
	if p.ScoreValue, err = scoreValueField(fields); err != nil {
		return p, err
	}
	effect, err := stringField(fields, "transitionEffect")
	if err != nil {
		return p, err
	}
	if effect != nil {
		te := TransitionEffect(*effect)
		p.TransitionEffect = &te
	}
	if p.TransitionDuration, err = numberField(fields, "transitionDuration"); err != nil {
		return p, err
	}
	if p.FontFamily, err = stringField(fields, "fontFamily"); err != nil {
		return p, err
	}
	if p.FontSize, err = numberField(fields, "fontSize"); err != nil {
		return p, err
	}
	if p.ActivePresetName, err = stringField(fields, "activePresetName"); err != nil {
		return p, err
	}
	if raw, ok := fields["messagePresets"]; ok {
		if kindOf(raw) != '[' {
			return p, typeError("messagePresets", "an array")
		}
		if err := json.Unmarshal(raw, &p.MessagePresets); err != nil {
			return p, fmt.Errorf("%w: messagePresets: %v", ErrInvalidType, err)
		}
		if p.MessagePresets == nil {
			p.MessagePresets = []MessagePreset{}
		}
		p.PresetsSet = true
	}
	if raw, ok := fields["lastEvent"]; ok {
		p.LastEventSet = true
		switch kindOf(raw) {
		case 'n':
		case '{':
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return p, fmt.Errorf("%w: lastEvent: %v", ErrInvalidType, err)
			}
			p.LastEvent = &ev
		default:
			return p, typeError("lastEvent", "an object or null")
		}
	}
	if raw, ok := fields["burndown"]; ok {
		if p.Burndown, err = burndownField(raw); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Validate checks ranges on the fields present in the patch.
func (p RecordPatch) Validate() error {
	if p.TransitionEffect != nil && !p.TransitionEffect.Valid() {
		return fmt.Errorf("%w: transitionEffect must be fade or slide", ErrInvalidRecord)
	}
	if p.TransitionDuration != nil && *p.TransitionDuration < 1 {
		return fmt.Errorf("%w: transitionDuration must be at least 1", ErrInvalidRecord)
	}
	if p.FontSize != nil && *p.FontSize < 1 {
		return fmt.Errorf("%w: fontSize must be at least 1", ErrInvalidRecord)
	}
	if p.PresetsSet {
		names := make(map[string]struct{}, len(p.MessagePresets))
		for _, preset := range p.MessagePresets {
			if preset.Name == "" {
				return fmt.Errorf("%w: preset name must not be empty", ErrInvalidRecord)
			}
			if _, dup := names[preset.Name]; dup {
				return fmt.Errorf("%w: duplicate preset %q", ErrInvalidRecord, preset.Name)
			}
			names[preset.Name] = struct{}{}
			ids := make(map[int64]struct{}, len(preset.Messages))
			for _, m := range preset.Messages {
				if _, dup := ids[m.ID]; dup {
					return fmt.Errorf("%w: duplicate message id %d in preset %q", ErrInvalidRecord, m.ID, preset.Name)
				}
				ids[m.ID] = struct{}{}
			}
		}
	}
	if p.LastEventSet && p.LastEvent != nil && p.LastEvent.Name == "" {
		return fmt.Errorf("%w: lastEvent.name must not be empty", ErrInvalidRecord)
	}
	if p.Burndown != nil {
		if p.Burndown.TargetValue <= 0 {
			return fmt.Errorf("%w: burndown.targetValue must be positive", ErrInvalidRecord)
		}
		for i, e := range p.Burndown.Entries {
			if e.Score <= 0 {
				return fmt.Errorf("%w: burndown.entries[%d].score must be positive", ErrInvalidRecord, i)
			}
		}
	}
	return nil
}

// Apply returns a copy of rec with the patch merged in. Revision is untouched.
func (p RecordPatch) Apply(rec StreamRecord) StreamRecord {
	out := rec.Clone()
	if p.ScoreLabel != nil {
		out.ScoreLabel = *p.ScoreLabel
	}
	if p.ScoreValue != nil {
		out.ScoreValue = *p.ScoreValue
	}
	if p.TransitionEffect != nil {
		out.TransitionEffect = *p.TransitionEffect
	}
	if p.TransitionDuration != nil {
		out.TransitionDuration = *p.TransitionDuration
	}
	if p.FontFamily != nil {
		out.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		out.FontSize = *p.FontSize
	}
	if p.PresetsSet {
		out.MessagePresets = make([]MessagePreset, len(p.MessagePresets))
		for i, preset := range p.MessagePresets {
			out.MessagePresets[i] = preset.Clone()
		}
	}
	if p.ActivePresetName != nil {
		out.ActivePresetName = *p.ActivePresetName
	}
	if p.LastEventSet {
		out.LastEvent = nil
		if p.LastEvent != nil {
			ev := *p.LastEvent
			out.LastEvent = &ev
		}
	}
	if p.Burndown != nil {
		b := p.Burndown.Clone()
		if b.Entries == nil {
			b.Entries = []BurndownEntry{}
		}
		out.Burndown = &b
	}
	return out
}

func burndownField(raw json.RawMessage) (*Burndown, error) {
	if kindOf(raw) != '{' {
		return nil, typeError("burndown", "an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: burndown: %v", ErrInvalidType, err)
	}
	label, err := stringField(fields, "label")
	if err != nil {
		return nil, err
	}
	target, err := numberField(fields, "targetValue")
	if err != nil {
		return nil, err
	}
	if label == nil {
		return nil, typeError("burndown.label", "a string")
	}
	if target == nil {
		return nil, typeError("burndown.targetValue", "a number")
	}
	entriesRaw, ok := fields["entries"]
	if !ok || kindOf(entriesRaw) != '[' {
		return nil, typeError("burndown.entries", "an array")
	}
	b := &Burndown{Label: *label, TargetValue: *target, Entries: []BurndownEntry{}}
	if err := json.Unmarshal(entriesRaw, &b.Entries); err != nil {
		return nil, fmt.Errorf("%w: burndown.entries: %v", ErrInvalidType, err)
	}
	return b, nil
}

func scoreValueField(fields map[string]json.RawMessage) (*string, error) {
	raw, ok := fields["scoreValue"]
	if !ok {
		return nil, nil
	}
	switch kindOf(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: scoreValue: %v", ErrInvalidType, err)
		}
		return &s, nil
	case '0':
		f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: scoreValue: %v", ErrInvalidType, err)
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		return &s, nil
	default:
		return nil, typeError("scoreValue", "a string")
	}
}

func stringField(fields map[string]json.RawMessage, key string) (*string, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	if kindOf(raw) != '"' {
		return nil, typeError(key, "a string")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidType, key, err)
	}
	return &s, nil
}

func numberField(fields map[string]json.RawMessage, key string) (*float64, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	if kindOf(raw) != '0' {
		return nil, typeError(key, "a number")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidType, key, err)
	}
	return &f, nil
}

// kindOf classifies a raw JSON value by its first byte. Numbers map to '0',
// null/true/false to their first letter.
func kindOf(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	c := raw[0]
	if c == '-' || (c >= '0' && c <= '9') {
		return '0'
	}
	return c
}

func typeError(field, want string) error {
	return fmt.Errorf("%w: %s must be %s", ErrInvalidType, field, want)
}
