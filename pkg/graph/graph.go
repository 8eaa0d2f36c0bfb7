// Package graph defines the core memory graph types: entities, facts,
// conversations, and full-store snapshots. Facts are observations one
// entity holds about another; everything except weight and pinned is
// immutable after creation.
package graph

import "time"

// EntityKind distinguishes the two participant roles in the graph.
type EntityKind string

const (
	KindNPC    EntityKind = "npc"
	KindPlayer EntityKind = "player"
)

// Valid reports whether the kind is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	return k == KindNPC || k == KindPlayer
}

// Entity is a participant in the memory graph. IDs are globally unique
// regardless of kind.
type Entity struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Intent tags the conversational act that produced a fact or shapes a query.
type Intent string

const (
	IntentNone     Intent = ""
	IntentConfess  Intent = "confess"
	IntentDeny     Intent = "deny"
	IntentAskFavor Intent = "ask_favor"
	IntentGiftHelp Intent = "gift_help"
	IntentThreaten Intent = "threaten"
)

// KnownIntents lists every non-empty intent value.
var KnownIntents = []Intent{
	IntentConfess,
	IntentDeny,
	IntentAskFavor,
	IntentGiftHelp,
	IntentThreaten,
}

// Valid reports whether the intent is empty or one of the known values.
func (i Intent) Valid() bool {
	if i == IntentNone {
		return true
	}
	for _, known := range KnownIntents {
		if i == known {
			return true
		}
	}
	return false
}

// DefaultWeight is the weight assigned to a fact when the caller supplies
// no seed.
const DefaultWeight = 0.5

// Fact is a stored observation the Who entity holds about the About entity.
// Only Weight and Pinned mutate after creation; Weight stays within [0, 1].
type Fact struct {
	ID        string    `json:"fact_id"`
	Who       string    `json:"who"`
	About     string    `json:"about"`
	Scene     string    `json:"scene"`
	Type      string    `json:"type"`
	Intent    Intent    `json:"intent,omitempty"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags"`
	Weight    float64   `json:"weight"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the fact so callers can hand records out
// without exposing store-owned state.
func (f Fact) Clone() Fact {
	c := f
	if f.Tags != nil {
		c.Tags = append([]string(nil), f.Tags...)
	}
	return c
}

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationEnded  ConversationStatus = "ended"
)

// Conversation correlates repeated retrievals for one (npc, player, scene)
// triple and remembers which facts have already surfaced, in first-surfaced
// order with duplicates suppressed.
type Conversation struct {
	ID              string             `json:"conversation_id"`
	NPCID           string             `json:"npc_id"`
	PlayerID        string             `json:"player_id"`
	Scene           string             `json:"scene"`
	Status          ConversationStatus `json:"status"`
	SurfacedFactIDs []string           `json:"surfaced_fact_ids"`
}

// Snapshot is the self-describing export document for the whole graph.
// Import accepts the same shape and replaces store state wholesale.
type Snapshot struct {
	SchemaVersion int            `json:"schema_version"`
	ExportedAt    time.Time      `json:"exported_at"`
	Entities      []Entity       `json:"entities"`
	Facts         []Fact         `json:"facts"`
	Conversations []Conversation `json:"conversations,omitempty"`
}

// SnapshotSchemaV1 is the current snapshot document version.
const SnapshotSchemaV1 = 1

// Clamp01 bounds a weight to the [0, 1] interval.
func Clamp01(w float64) float64 {
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	default:
		return w
	}
}
