package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/memorygraphco/memorygraph/pkg/conversation"
	"github.com/memorygraphco/memorygraph/pkg/eventstream/worker"
	"github.com/memorygraphco/memorygraph/pkg/feedback"
	"github.com/memorygraphco/memorygraph/pkg/retrieval"
	"github.com/memorygraphco/memorygraph/pkg/storage"
)

// ErrorResponse is the JSON error envelope returned by every handler.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the memory graph.
type Server struct {
	config    Config
	store     storage.Driver
	tracker   *conversation.Tracker
	retriever *retrieval.Service
	adapter   *feedback.Adapter
	events    *worker.Pool
	logger    *slog.Logger
	app       *fiber.App
}

// NewServer creates a new API server. All collaborators are injected so the
// store can be shared with other components and swapped in tests.
func NewServer(
	config Config,
	store storage.Driver,
	tracker *conversation.Tracker,
	retriever *retrieval.Service,
	adapter *feedback.Adapter,
	events *worker.Pool,
	logger *slog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     store,
		tracker:   tracker,
		retriever: retriever,
		adapter:   adapter,
		events:    events,
		logger:    logger,
		app:       app,
	}

	app.Get("/v0/health", s.handleHealth)
	app.Get("/v0/entities", s.handleListEntities)
	app.Post("/v0/entities", s.handleAddEntity)
	app.Post("/v0/conversations.start", s.handleStartConversation)
	app.Post("/v0/conversations.attach", s.handleAttachConversation)
	app.Post("/v0/conversations.end", s.handleEndConversation)
	app.Post("/v0/facts.add", s.handleAddFact)
	app.Get("/v0/retrieve", s.handleRetrieve)
	app.Post("/v0/pin", s.handlePin)
	app.Post("/v0/feedback", s.handleFeedback)
	app.Get("/v0/export", s.handleExport)
	app.Post("/v0/import", s.handleImport)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
