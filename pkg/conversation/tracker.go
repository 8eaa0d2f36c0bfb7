// Package conversation tracks short-lived retrieval sessions. A conversation
// is scoped to one (npc, player, scene) triple and remembers which facts have
// already surfaced so the scoring engine can prime associations and suppress
// verbatim repetition.
package conversation

import (
	"sync"

	"github.com/google/uuid"

	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/storage"
)

// Tracker owns all Conversation records. Conversations live only in memory
// for the duration of the interaction.
type Tracker struct {
	mu            sync.Mutex
	conversations map[string]*graph.Conversation

	// surfaced mirrors each conversation's surfaced slice as a set for
	// O(1) duplicate suppression on attach
	surfaced map[string]map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		conversations: make(map[string]*graph.Conversation),
		surfaced:      make(map[string]map[string]struct{}),
	}
}

// Start creates a fresh active conversation for the triple and returns its id.
func (t *Tracker) Start(npcID, playerID, scene string) string {
	conv := &graph.Conversation{
		ID:       uuid.NewString(),
		NPCID:    npcID,
		PlayerID: playerID,
		Scene:    scene,
		Status:   graph.ConversationActive,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.conversations[conv.ID] = conv
	t.surfaced[conv.ID] = make(map[string]struct{})
	return conv.ID
}

// Attach appends fact ids not already present, preserving order. Attaching
// to an ended conversation is a no-op so replaying a retrieval after the
// conversation closed stays harmless.
func (t *Tracker) Attach(conversationID string, factIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	conv, ok := t.conversations[conversationID]
	if !ok {
		return storage.NotFoundError{Kind: "conversation", ID: conversationID}
	}
	if conv.Status == graph.ConversationEnded {
		return nil
	}

	seen := t.surfaced[conversationID]
	for _, id := range factIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		conv.SurfacedFactIDs = append(conv.SurfacedFactIDs, id)
	}
	return nil
}

// Surfaced returns the set of fact ids already surfaced in the conversation.
func (t *Tracker) Surfaced(conversationID string) (map[string]struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen, ok := t.surfaced[conversationID]
	if !ok {
		return nil, storage.NotFoundError{Kind: "conversation", ID: conversationID}
	}

	out := make(map[string]struct{}, len(seen))
	for id := range seen {
		out[id] = struct{}{}
	}
	return out, nil
}

// Get returns a copy of the conversation record.
func (t *Tracker) Get(conversationID string) (graph.Conversation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conv, ok := t.conversations[conversationID]
	if !ok {
		return graph.Conversation{}, storage.NotFoundError{Kind: "conversation", ID: conversationID}
	}

	out := *conv
	out.SurfacedFactIDs = append([]string(nil), conv.SurfacedFactIDs...)
	return out, nil
}

// End marks the conversation terminal. One-way: an ended conversation never
// becomes active again. Ending twice is a no-op.
func (t *Tracker) End(conversationID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	conv, ok := t.conversations[conversationID]
	if !ok {
		return storage.NotFoundError{Kind: "conversation", ID: conversationID}
	}
	conv.Status = graph.ConversationEnded
	return nil
}
