package types

// EditKind classifies a proposed edit.
type EditKind int

const (
	KindInsert EditKind = iota
	KindDelete
	KindReplace
)

// String returns the wire/display name of the kind
func (k EditKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// KindFromString parses a wire kind name. Returns (kind, false) for
// unrecognized names.
func KindFromString(s string) (EditKind, bool) {
	switch s {
	case "insert":
		return KindInsert, true
	case "delete":
		return KindDelete, true
	case "replace":
		return KindReplace, true
	default:
		return KindReplace, false
	}
}

// RawEdit is one suggested change as received from the AI edit source,
// before it becomes a tracked proposal. Offsets are byte offsets into
// the buffer's current content, half-open.
type RawEdit struct {
	Kind      EditKind
	Start     int
	End       int
	OldText   string // text the source believed occupied [Start, End)
	NewText   string // replacement (empty for deletes)
	Rationale string // display-only, never parsed
}

// Status is the lifecycle state of a proposal. Terminal once non-pending.
type Status int

const (
	StatusPending Status = iota
	StatusAccepted
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// EditMode is the instruction mode sent with a suggestion request.
// Opaque to this engine; the backend interprets it.
type EditMode string

const (
	ModeRewrite   EditMode = "rewrite"
	ModeExpand    EditMode = "expand"
	ModeCondense  EditMode = "condense"
	ModeProofread EditMode = "proofread"
	ModeContinue  EditMode = "continue"
)

// ParseEditMode validates a mode name from the editor. Returns
// (ModeRewrite, false) for names the backend does not offer, letting
// callers fall back to the default instead of shipping a typo.
func ParseEditMode(s string) (EditMode, bool) {
	switch m := EditMode(s); m {
	case ModeRewrite, ModeExpand, ModeCondense, ModeProofread, ModeContinue:
		return m, true
	}
	return ModeRewrite, false
}

// Reference is a lore snippet (character sheet, place description)
// attached to a suggestion request as extra context.
type Reference struct {
	Name    string
	Content string
}

// ProviderConfig holds configuration for the suggestion backend.
type ProviderConfig struct {
	ProviderURL    string // base URL of the suggestion endpoint
	APIKey         string // resolved API key for authenticated requests
	RequestTimeout int    // HTTP timeout in milliseconds (0 = no timeout)
	PrivacyMode    bool   // don't let the backend retain request content
}
