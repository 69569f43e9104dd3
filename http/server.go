// http/server.go
package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniZap4/lumi-notes/auth"
	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/ViniZap4/lumi-notes/notes"
	"github.com/ViniZap4/lumi-notes/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDKey = "requestid"

type Server struct {
	app *fiber.App
	svc *notes.Service
	hub *ws.Hub
	log zerolog.Logger
}

// NewServer builds the fiber application. hub may be nil, in which case the
// events endpoint is not mounted.
func NewServer(svc *notes.Service, hub *ws.Hub, log zerolog.Logger) *Server {
	s := &Server{svc: svc, hub: hub, log: log.With().Str("component", "http").Logger()}

	s.app = fiber.New(fiber.Config{
		AppName:               "lumi-notes",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	s.app.Use(accessLog(s.log))
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type, Authorization, " + auth.TokenHeader,
	}))

	s.app.Get("/healthz", s.HandleHealth)
	s.app.Get("/items/", s.HandleItems)
	s.app.Get("/error/", s.HandleError)

	g := s.app.Group("/notes", auth.Extract())
	if hub != nil {
		g.Get("/events", s.HandleEventsUpgrade, websocket.New(s.HandleEvents))
	}
	g.Post("/", s.HandleCreateNote)
	g.Get("/", s.HandleListNotes)
	g.Get("/:id/info", s.HandleNoteInfo)
	g.Get("/:id/html", s.HandleRenderNote)
	g.Get("/:id", s.HandleGetNote)
	g.Patch("/:id", s.HandleUpdateNote)
	g.Delete("/:id", s.HandleDeleteNote)

	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Msg("server starting")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleError maps service errors onto status codes with a
// {"detail": "..."} body.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, detail := fiber.StatusInternalServerError, "internal error"

	var fe *fiber.Error
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status, detail = fiber.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		status, detail = fiber.StatusNotFound, "Note not found"
	case errors.Is(err, domain.ErrInvalidID):
		status, detail = fiber.StatusUnprocessableEntity, "invalid note id"
	case errors.As(err, &fe):
		status, detail = fe.Code, fe.Message
	default:
		s.log.Error().Err(err).
			Str("request_id", fmt.Sprint(c.Locals(requestIDKey))).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
	}

	return c.Status(status).JSON(fiber.Map{"detail": detail})
}
