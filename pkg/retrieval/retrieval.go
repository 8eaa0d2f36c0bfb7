// Package retrieval orchestrates the fact store, conversation tracker, and
// scoring engine to answer "top-K facts for this query context".
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/memorygraphco/memorygraph/pkg/conversation"
	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/scoring"
	"github.com/memorygraphco/memorygraph/pkg/storage"
)

// DefaultTopK is the stock result budget when the caller doesn't override it.
const DefaultTopK = 5

// Query identifies who is asking, about whom, in what scene, and with what
// conversational intent. ConversationID and K are optional.
type Query struct {
	NPCID          string
	PlayerID       string
	Scene          string
	Intent         graph.Intent
	ConversationID string
	K              int
}

// RankedFact pairs a fact with its score breakdown.
type RankedFact struct {
	Fact  graph.Fact
	Score scoring.Breakdown
}

// Service answers ranked retrieval queries. Construct once at startup and
// share across requests; all state lives in the injected collaborators.
type Service struct {
	store    storage.Driver
	tracker  *conversation.Tracker
	params   scoring.Params
	defaultK int
	now      func() time.Time
}

// NewService creates a retrieval service. A non-positive defaultK falls back
// to DefaultTopK.
func NewService(store storage.Driver, tracker *conversation.Tracker, params scoring.Params, defaultK int) *Service {
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	return &Service{
		store:    store,
		tracker:  tracker,
		params:   params,
		defaultK: defaultK,
		now:      time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Retrieve returns the top-K facts for the query, highest score first, with
// deterministic ordering: stable sort by total descending, ties broken by
// creation time descending. An empty result is not an error.
//
// When a conversation id is supplied, the returned fact ids are attached to
// that conversation after the ordering is finalized; association bonuses
// from this attachment apply only to future calls.
func (s *Service) Retrieve(ctx context.Context, q Query) ([]RankedFact, error) {
	if err := s.validateParticipants(ctx, q); err != nil {
		return nil, err
	}

	convCtx, err := s.conversationContext(ctx, q.ConversationID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.QueryFacts(ctx, storage.FactFilter{
		Who:   q.NPCID,
		About: q.PlayerID,
		Scene: q.Scene,
	})
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}

	now := s.now()
	scoreQuery := scoring.Query{
		NPCID:    q.NPCID,
		PlayerID: q.PlayerID,
		Scene:    q.Scene,
		Intent:   q.Intent,
	}

	ranked := make([]RankedFact, len(candidates))
	for i, fact := range candidates {
		ranked[i] = RankedFact{
			Fact:  fact,
			Score: s.params.Score(fact, scoreQuery, convCtx, now),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score.Total != ranked[j].Score.Total {
			return ranked[i].Score.Total > ranked[j].Score.Total
		}
		return ranked[i].Fact.CreatedAt.After(ranked[j].Fact.CreatedAt)
	})

	k := q.K
	if k <= 0 {
		k = s.defaultK
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	if q.ConversationID != "" && len(ranked) > 0 {
		ids := make([]string, len(ranked))
		for i, r := range ranked {
			ids[i] = r.Fact.ID
		}
		if err := s.tracker.Attach(q.ConversationID, ids); err != nil {
			return nil, fmt.Errorf("attaching surfaced facts: %w", err)
		}
	}

	return ranked, nil
}

// validateParticipants checks that the query references known entities of
// the right kinds.
func (s *Service) validateParticipants(ctx context.Context, q Query) error {
	npc, err := s.store.GetEntity(ctx, q.NPCID)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return storage.ValidationError{Field: "npc_id", Reason: "unknown entity " + q.NPCID}
		}
		return err
	}
	if npc.Kind != graph.KindNPC {
		return storage.ValidationError{Field: "npc_id", Reason: q.NPCID + " is not an npc"}
	}

	player, err := s.store.GetEntity(ctx, q.PlayerID)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return storage.ValidationError{Field: "player_id", Reason: "unknown entity " + q.PlayerID}
		}
		return err
	}
	if player.Kind != graph.KindPlayer {
		return storage.ValidationError{Field: "player_id", Reason: q.PlayerID + " is not a player"}
	}

	return nil
}

// conversationContext assembles the surfaced id set and the union of
// surfaced facts' tags for associative priming. Surfaced ids whose facts no
// longer resolve (e.g. after an import) are skipped.
func (s *Service) conversationContext(ctx context.Context, conversationID string) (scoring.ConversationContext, error) {
	if conversationID == "" {
		return scoring.ConversationContext{}, nil
	}

	surfaced, err := s.tracker.Surfaced(conversationID)
	if err != nil {
		return scoring.ConversationContext{}, err
	}

	tags := make(map[string]struct{})
	for id := range surfaced {
		fact, err := s.store.GetFact(ctx, id)
		if err != nil {
			var notFound storage.NotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return scoring.ConversationContext{}, err
		}
		for _, tag := range fact.Tags {
			tags[tag] = struct{}{}
		}
	}

	return scoring.ConversationContext{
		SurfacedIDs:  surfaced,
		SurfacedTags: tags,
	}, nil
}
