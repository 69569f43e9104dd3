// http/handlers.go
package http

import (
	"strconv"

	"github.com/ViniZap4/lumi-notes/auth"
	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type itemsResponse struct {
	Success bool          `json:"success"`
	Data    []domain.Item `json:"data"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type noteIDResponse struct {
	ID int64 `json:"id"`
}

type noteTextResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type notesListResponse struct {
	Notes []int64 `json:"notes"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) HandleHealth(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func (s *Server) HandleItems(c *fiber.Ctx) error {
	return c.JSON(itemsResponse{Success: true, Data: domain.DemoItems()})
}

// HandleError always answers 200 with a failure payload.
func (s *Server) HandleError(c *fiber.Ctx) error {
	return c.JSON(errorResponse{Success: false, Error: "An error occurred."})
}

func (s *Server) HandleCreateNote(c *fiber.Ctx) error {
	text, err := noteText(c)
	if err != nil {
		return s.rejectInput(c, err)
	}

	note, err := s.svc.Create(c.UserContext(), auth.Token(c), text)
	if err != nil {
		return err
	}
	return c.JSON(noteIDResponse{ID: note.ID})
}

func (s *Server) HandleGetNote(c *fiber.Ctx) error {
	id, err := noteID(c)
	if err != nil {
		return s.rejectInput(c, err)
	}

	note, err := s.svc.Read(c.UserContext(), auth.Token(c), id)
	if err != nil {
		return err
	}
	return c.JSON(noteTextResponse{ID: note.ID, Text: note.Text})
}

func (s *Server) HandleNoteInfo(c *fiber.Ctx) error {
	id, err := noteID(c)
	if err != nil {
		return s.rejectInput(c, err)
	}

	info, err := s.svc.Info(c.UserContext(), auth.Token(c), id)
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (s *Server) HandleRenderNote(c *fiber.Ctx) error {
	id, err := noteID(c)
	if err != nil {
		return s.rejectInput(c, err)
	}

	html, err := s.svc.Render(c.UserContext(), auth.Token(c), id)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(html)
}

func (s *Server) HandleUpdateNote(c *fiber.Ctx) error {
	id, err := noteID(c)
	if err != nil {
		return s.rejectInput(c, err)
	}
	text, err := noteText(c)
	if err != nil {
		return s.rejectInput(c, err)
	}

	if _, err := s.svc.Update(c.UserContext(), auth.Token(c), id, text); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Note updated successfully"})
}

func (s *Server) HandleDeleteNote(c *fiber.Ctx) error {
	id, err := noteID(c)
	if err != nil {
		return s.rejectInput(c, err)
	}

	if err := s.svc.Delete(c.UserContext(), auth.Token(c), id); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Note deleted successfully"})
}

func (s *Server) HandleListNotes(c *fiber.Ctx) error {
	ids, err := s.svc.List(c.UserContext(), auth.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(notesListResponse{Notes: ids})
}

// HandleEventsUpgrade authorizes a websocket subscription before the
// connection is upgraded.
func (s *Server) HandleEventsUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if err := s.svc.Authorize(c.UserContext(), auth.Token(c)); err != nil {
		return err
	}
	return c.Next()
}

func (s *Server) HandleEvents(conn *websocket.Conn) {
	s.hub.HandleConnection(conn)
}

// rejectInput reports a malformed request, unless the caller is not
// authorized at all, which takes precedence.
func (s *Server) rejectInput(c *fiber.Ctx, err error) error {
	if authErr := s.svc.Authorize(c.UserContext(), auth.Token(c)); authErr != nil {
		return authErr
	}
	return err
}

func noteID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// noteText reads the text query parameter, falling back to a JSON or form
// body with a "text" field.
func noteText(c *fiber.Ctx) (string, error) {
	if c.Context().QueryArgs().Has("text") {
		return c.Query("text"), nil
	}

	if len(c.Body()) > 0 {
		var body struct {
			Text *string `json:"text" form:"text"`
		}
		if err := c.BodyParser(&body); err != nil {
			return "", fiber.NewError(fiber.StatusUnprocessableEntity, "invalid request body")
		}
		if body.Text != nil {
			return *body.Text, nil
		}
	}
	return "", fiber.NewError(fiber.StatusUnprocessableEntity, "text is required")
}
