package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeFactRecorded is emitted after a new fact is stored.
	EventTypeFactRecorded = "memorygraph.fact.recorded"

	// EventTypeFeedbackApplied is emitted after a reward adjusts a weight.
	EventTypeFeedbackApplied = "memorygraph.feedback.applied"

	// EventTypeFactsRetrieved is emitted after a ranked retrieval.
	EventTypeFactsRetrieved = "memorygraph.facts.retrieved"
)

// Event is the transport-neutral envelope for fact lifecycle events.
// Fields irrelevant to a given event type stay at their zero values.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	FactID         string `json:"fact_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	NPCID          string `json:"npc_id,omitempty"`
	PlayerID       string `json:"player_id,omitempty"`
	Scene          string `json:"scene,omitempty"`

	// Feedback transitions
	OldWeight *float64 `json:"old_weight,omitempty"`
	NewWeight *float64 `json:"new_weight,omitempty"`

	// Retrieval results, in rank order
	FactIDs []string `json:"fact_ids,omitempty"`
}
