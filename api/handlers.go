package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/memorygraphco/memorygraph/pkg/eventstream"
	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/retrieval"
	"github.com/memorygraphco/memorygraph/pkg/storage"
)

// RankedFactResponse is one entry in the retrieve response.
type RankedFactResponse struct {
	FactID string       `json:"fact_id"`
	Text   string       `json:"text"`
	Score  float64      `json:"score"`
	Scene  string       `json:"scene"`
	Weight float64      `json:"weight"`
	Pinned bool         `json:"pinned"`
	Intent graph.Intent `json:"intent,omitempty"`
	Tags   []string     `json:"tags"`
	Debug  *DebugScores `json:"debug,omitempty"`
}

// DebugScores is the per-fact score breakdown shown to operators.
type DebugScores struct {
	Base        float64 `json:"base"`
	IntentBonus float64 `json:"intent_bonus"`
	AssocBonus  float64 `json:"assoc_bonus"`
}

// respondError maps the storage error taxonomy onto HTTP status codes.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var (
		validation  storage.ValidationError
		notFound    storage.NotFoundError
		conflict    storage.ConflictError
		unavailable storage.UnavailableError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	case errors.As(err, &unavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// handleListEntities returns all registered entities.
func (s *Server) handleListEntities(c *fiber.Ctx) error {
	entities, err := s.store.ListEntities(c.Context())
	if err != nil {
		return s.respondError(c, err)
	}
	if entities == nil {
		entities = []graph.Entity{}
	}
	return c.JSON(entities)
}

// handleAddEntity registers an entity.
func (s *Server) handleAddEntity(c *fiber.Ctx) error {
	var req graph.Entity
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	if err := s.store.PutEntity(c.Context(), req); err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

// handleStartConversation creates a fresh conversation for a
// (npc, player, scene) triple.
func (s *Server) handleStartConversation(c *fiber.Ctx) error {
	var req struct {
		NPCID    string `json:"npc_id"`
		PlayerID string `json:"player_id"`
		Scene    string `json:"scene"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	if err := s.validateParticipants(c, req.NPCID, req.PlayerID); err != nil {
		return s.respondError(c, err)
	}

	id := s.tracker.Start(req.NPCID, req.PlayerID, req.Scene)
	return c.JSON(fiber.Map{"conversation_id": id})
}

// validateParticipants checks that npc/player resolve to entities of the
// right kinds.
func (s *Server) validateParticipants(c *fiber.Ctx, npcID, playerID string) error {
	npc, err := s.store.GetEntity(c.Context(), npcID)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return storage.ValidationError{Field: "npc_id", Reason: "unknown entity " + npcID}
		}
		return err
	}
	if npc.Kind != graph.KindNPC {
		return storage.ValidationError{Field: "npc_id", Reason: npcID + " is not an npc"}
	}

	player, err := s.store.GetEntity(c.Context(), playerID)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return storage.ValidationError{Field: "player_id", Reason: "unknown entity " + playerID}
		}
		return err
	}
	if player.Kind != graph.KindPlayer {
		return storage.ValidationError{Field: "player_id", Reason: playerID + " is not a player"}
	}

	return nil
}

// handleAttachConversation appends fact ids to a conversation's surfaced set.
func (s *Server) handleAttachConversation(c *fiber.Ctx) error {
	var req struct {
		ConversationID string   `json:"conversation_id"`
		FactIDs        []string `json:"fact_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	if err := s.tracker.Attach(req.ConversationID, req.FactIDs); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// handleEndConversation marks a conversation terminal.
func (s *Server) handleEndConversation(c *fiber.Ctx) error {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	if err := s.tracker.End(req.ConversationID); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// handleAddFact stores a new fact observation.
func (s *Server) handleAddFact(c *fiber.Ctx) error {
	var req struct {
		Who        string   `json:"who"`
		About      string   `json:"about"`
		Scene      string   `json:"scene"`
		Type       string   `json:"type"`
		Intent     string   `json:"intent"`
		Text       string   `json:"text"`
		Tags       []string `json:"tags"`
		WeightSeed *float64 `json:"weight_seed"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	fact, err := s.store.CreateFact(c.Context(), storage.FactSeed{
		Who:        req.Who,
		About:      req.About,
		Scene:      req.Scene,
		Type:       req.Type,
		Intent:     graph.Intent(req.Intent),
		Text:       req.Text,
		Tags:       req.Tags,
		WeightSeed: req.WeightSeed,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.events.Enqueue(&eventstream.Event{
		EventType: eventstream.EventTypeFactRecorded,
		FactID:    fact.ID,
		NPCID:     fact.Who,
		PlayerID:  fact.About,
		Scene:     fact.Scene,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"fact_id": fact.ID})
}

// handleRetrieve answers a ranked top-K retrieval.
// Query parameters:
//   - npc_id, player_id (required), scene, intent, conversation_id
//   - k (optional): result budget override
//   - debug (optional): include the score breakdown per fact
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	npcID := c.Query("npc_id")
	playerID := c.Query("player_id")
	if npcID == "" || playerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "npc_id and player_id parameters are required"})
	}

	intent := graph.Intent(c.Query("intent"))
	if !intent.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown intent " + string(intent)})
	}

	k := 0
	if kStr := c.Query("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "k must be a positive integer"})
		}
		k = parsed
	}

	query := retrieval.Query{
		NPCID:          npcID,
		PlayerID:       playerID,
		Scene:          c.Query("scene"),
		Intent:         intent,
		ConversationID: c.Query("conversation_id"),
		K:              k,
	}

	ranked, err := s.retriever.Retrieve(c.Context(), query)
	if err != nil {
		return s.respondError(c, err)
	}

	includeDebug := c.QueryBool("debug")
	response := make([]RankedFactResponse, len(ranked))
	factIDs := make([]string, len(ranked))
	for i, r := range ranked {
		response[i] = RankedFactResponse{
			FactID: r.Fact.ID,
			Text:   r.Fact.Text,
			Score:  r.Score.Total,
			Scene:  r.Fact.Scene,
			Weight: r.Fact.Weight,
			Pinned: r.Fact.Pinned,
			Intent: r.Fact.Intent,
			Tags:   r.Fact.Tags,
		}
		if response[i].Tags == nil {
			response[i].Tags = []string{}
		}
		if includeDebug {
			response[i].Debug = &DebugScores{
				Base:        r.Score.Base,
				IntentBonus: r.Score.IntentBonus,
				AssocBonus:  r.Score.AssocBonus,
			}
		}
		factIDs[i] = r.Fact.ID
	}

	if len(ranked) > 0 {
		s.events.Enqueue(&eventstream.Event{
			EventType:      eventstream.EventTypeFactsRetrieved,
			ConversationID: query.ConversationID,
			NPCID:          query.NPCID,
			PlayerID:       query.PlayerID,
			Scene:          query.Scene,
			FactIDs:        factIDs,
		})
	}

	return c.JSON(response)
}

// handlePin flips the pin flag on a fact.
func (s *Server) handlePin(c *fiber.Ctx) error {
	var req struct {
		FactID string `json:"fact_id"`
		Pinned bool   `json:"pinned"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	if err := s.store.SetPinned(c.Context(), req.FactID, req.Pinned); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"fact_id": req.FactID, "pinned": req.Pinned})
}

// handleFeedback applies a ±1 reward to a fact's weight.
func (s *Server) handleFeedback(c *fiber.Ctx) error {
	var req struct {
		FactID string `json:"fact_id"`
		Reward int    `json:"reward"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	result, err := s.adapter.Apply(c.Context(), req.FactID, req.Reward)
	if err != nil {
		return s.respondError(c, err)
	}

	s.events.Enqueue(&eventstream.Event{
		EventType: eventstream.EventTypeFeedbackApplied,
		FactID:    result.FactID,
		OldWeight: &result.OldWeight,
		NewWeight: &result.NewWeight,
	})

	return c.JSON(result)
}

// handleExport returns the full store snapshot.
func (s *Server) handleExport(c *fiber.Ctx) error {
	snap, err := s.store.Export(c.Context())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

// handleImport replaces store state with the posted snapshot.
func (s *Server) handleImport(c *fiber.Ctx) error {
	var snap graph.Snapshot
	if err := c.BodyParser(&snap); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed snapshot document"})
	}

	if err := s.store.Import(c.Context(), snap); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":       true,
		"entities": len(snap.Entities),
		"facts":    len(snap.Facts),
	})
}
