package api

import (
	"context"
	"net/http"

	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ParticipationHandler handles RSVP requests. The caller identity is the participant.
type ParticipationHandler struct {
	service *services.ParticipationService
}

// NewParticipationHandler creates a new participation handler
func NewParticipationHandler(service *services.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{service: service}
}

// RSVPRequest is the body of an RSVP create or update
type RSVPRequest struct {
	Status  string  `json:"status" binding:"required"`
	Message *string `json:"message" binding:"omitempty,max=500"`
}

// CountResponse carries a single count
type CountResponse struct {
	Count int64 `json:"count"`
}

// RegisterRoutes registers the handler's routes
func (h *ParticipationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/events/:id")
	{
		events.POST("/rsvp", h.HandleRSVP)
		events.PUT("/rsvp", h.HandleUpdateRSVP)
		events.DELETE("/rsvp", h.HandleCancelRSVP)
		events.GET("/rsvp", h.HandleGetRSVP)
		events.GET("/participations", h.HandleListByEvent)
		events.GET("/participations/count", h.HandleCountByStatus)
		events.POST("/participations/recount", h.HandleRecount)
	}
	rg.GET("/participations/me", h.HandleListMine)
}

// HandleRSVP records the caller's first response to an event
func (h *ParticipationHandler) HandleRSVP(c *gin.Context) {
	h.write(c, http.StatusCreated, h.service.RSVP)
}

// HandleUpdateRSVP changes the caller's response
func (h *ParticipationHandler) HandleUpdateRSVP(c *gin.Context) {
	h.write(c, http.StatusOK, h.service.UpdateRSVP)
}

type rsvpFunc func(ctx context.Context, eventID uuid.UUID, participantID string, status models.ParticipationStatus, message *string) (*models.Participation, error)

func (h *ParticipationHandler) write(c *gin.Context, status int, fn rsvpFunc) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	var req RSVPRequest
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}

	rsvp, err := services.ParseStatus(req.Status)
	if err != nil {
		WriteError(c, err)
		return
	}

	p, err := fn(c.Request.Context(), eventID, caller(c), rsvp, req.Message)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(status, p)
}

// HandleCancelRSVP deletes the caller's response
func (h *ParticipationHandler) HandleCancelRSVP(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	if err := h.service.CancelRSVP(c.Request.Context(), eventID, caller(c)); err != nil {
		WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetRSVP returns the caller's response
func (h *ParticipationHandler) HandleGetRSVP(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	p, err := h.service.GetParticipation(c.Request.Context(), eventID, caller(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	if p == nil {
		WriteError(c, errors.Wrap(services.ErrNotFound, "participation"))
		return
	}
	c.JSON(http.StatusOK, p)
}

// HandleListByEvent lists an event's responses, optionally filtered by status
func (h *ParticipationHandler) HandleListByEvent(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	var list []models.Participation
	if raw := c.Query("status"); raw != "" {
		status, perr := services.ParseStatus(raw)
		if perr != nil {
			WriteError(c, perr)
			return
		}
		list, err = h.service.ListByEventAndStatus(c.Request.Context(), eventID, status)
	} else {
		list, err = h.service.ListByEvent(c.Request.Context(), eventID)
	}
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// HandleCountByStatus counts an event's responses with the given status (GOING by default)
func (h *ParticipationHandler) HandleCountByStatus(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	status, err := services.ParseStatus(c.DefaultQuery("status", string(models.StatusGoing)))
	if err != nil {
		WriteError(c, err)
		return
	}

	n, err := h.service.CountByStatus(c.Request.Context(), eventID, status)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: n})
}

// HandleRecount re-derives the event's participant counter
func (h *ParticipationHandler) HandleRecount(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	n, err := h.service.Recount(c.Request.Context(), eventID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: int64(n)})
}

// HandleListMine lists the caller's responses
func (h *ParticipationHandler) HandleListMine(c *gin.Context) {
	participant := caller(c)
	if participant == "" {
		WriteError(c, NewValidationError("X-Username header is required"))
		return
	}

	list, err := h.service.ListByParticipant(c.Request.Context(), participant)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
