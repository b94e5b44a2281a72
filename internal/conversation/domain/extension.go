package domain

import "encoding/json"

// Extension tags. Each tag names a feature-owned payload attached to a
// conversation. Unknown tags round-trip opaquely so an older build never
// drops state written by a newer one.
const (
	ExtensionPainFunnel    = "pain_funnel"
	ExtensionExpansion     = "expansion"
	ExtensionNotifyTargets = "notification_targets"
)

// PainFunnelState tracks the question-based selling probe depth for a
// conversation.
type PainFunnelState struct {
	Depth        int    `json:"depth"`
	LastQuestion string `json:"last_question,omitempty"`
	Surfaced     bool   `json:"surfaced"`
}

// ExpansionState tracks upsell/cross-sell progress on a closed-won account.
type ExpansionState struct {
	PlaybookStep  int      `json:"playbook_step"`
	TargetedSKUs  []string `json:"targeted_skus,omitempty"`
	LastTouchNote string   `json:"last_touch_note,omitempty"`
}

// NotifyTargets carries the rep/manager addresses escalation reports are
// delivered to. Empty fields simply mean no delivery target.
type NotifyTargets struct {
	RepEmail     string `json:"rep_email,omitempty"`
	ManagerEmail string `json:"manager_email,omitempty"`
}

// Extensions is the typed replacement for an open metadata map: known
// payloads get fields, everything else passes through by tag.
type Extensions struct {
	PainFunnel *PainFunnelState           `json:"-"`
	Expansion  *ExpansionState            `json:"-"`
	Notify     *NotifyTargets             `json:"-"`
	Unknown    map[string]json.RawMessage `json:"-"`
}

// IsEmpty reports whether there is nothing to persist.
func (e Extensions) IsEmpty() bool {
	return e.PainFunnel == nil && e.Expansion == nil && e.Notify == nil && len(e.Unknown) == 0
}

// MarshalJSON flattens the extensions into a single tag-keyed object.
func (e Extensions) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, 3+len(e.Unknown))
	for tag, raw := range e.Unknown {
		out[tag] = raw
	}
	if e.PainFunnel != nil {
		raw, err := json.Marshal(e.PainFunnel)
		if err != nil {
			return nil, err
		}
		out[ExtensionPainFunnel] = raw
	}
	if e.Expansion != nil {
		raw, err := json.Marshal(e.Expansion)
		if err != nil {
			return nil, err
		}
		out[ExtensionExpansion] = raw
	}
	if e.Notify != nil {
		raw, err := json.Marshal(e.Notify)
		if err != nil {
			return nil, err
		}
		out[ExtensionNotifyTargets] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON routes known tags to their typed payloads and keeps the
// rest raw.
func (e *Extensions) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}

	*e = Extensions{}
	for tag, raw := range tagged {
		switch tag {
		case ExtensionPainFunnel:
			var payload PainFunnelState
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			e.PainFunnel = &payload
		case ExtensionExpansion:
			var payload ExpansionState
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			e.Expansion = &payload
		case ExtensionNotifyTargets:
			var payload NotifyTargets
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			e.Notify = &payload
		default:
			if e.Unknown == nil {
				e.Unknown = make(map[string]json.RawMessage)
			}
			e.Unknown[tag] = raw
		}
	}
	return nil
}

// Merge overlays other onto e by tag: a tag present in other replaces the
// same tag in e, tags absent from other are kept. Each tag is owned by the
// feature that writes it, so replacement per tag is the whole contract.
func (e Extensions) Merge(other Extensions) Extensions {
	merged := e
	if other.PainFunnel != nil {
		merged.PainFunnel = other.PainFunnel
	}
	if other.Expansion != nil {
		merged.Expansion = other.Expansion
	}
	if other.Notify != nil {
		merged.Notify = other.Notify
	}
	if len(other.Unknown) > 0 {
		if merged.Unknown == nil {
			merged.Unknown = make(map[string]json.RawMessage, len(other.Unknown))
		}
		for tag, raw := range other.Unknown {
			merged.Unknown[tag] = raw
		}
	}
	return merged
}
