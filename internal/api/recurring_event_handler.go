package api

import (
	"net/http"
	"time"

	"example.com/alumni/services/events/internal/models"
	"example.com/alumni/services/events/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// RecurringEventHandler handles recurring event template requests
type RecurringEventHandler struct {
	service *services.RecurringEventService
}

// NewRecurringEventHandler creates a new recurring event handler
func NewRecurringEventHandler(service *services.RecurringEventService) *RecurringEventHandler {
	return &RecurringEventHandler{service: service}
}

// RecurringEventRequest is the body of a template create or update
type RecurringEventRequest struct {
	Title              string     `json:"title" binding:"required,max=200"`
	Description        string     `json:"description"`
	StartDate          time.Time  `json:"start_date" binding:"required"`
	EndDate            time.Time  `json:"end_date" binding:"required"`
	Location           string     `json:"location" binding:"max=100"`
	EventType          string     `json:"event_type" binding:"max=50"`
	Privacy            string     `json:"privacy"`
	InviteMessage      string     `json:"invite_message" binding:"max=500"`
	IsOnline           bool       `json:"is_online"`
	MeetingLink        string     `json:"meeting_link" binding:"omitempty,url"`
	MaxParticipants    int        `json:"max_participants" binding:"gte=0"`
	OrganizerName      string     `json:"organizer_name" binding:"max=100"`
	OrganizerEmail     string     `json:"organizer_email" binding:"omitempty,email"`
	RecurrenceType     string     `json:"recurrence_type" binding:"required"`
	RecurrenceInterval *int       `json:"recurrence_interval"`
	RecurrenceEndDate  *time.Time `json:"recurrence_end_date"`
	RecurrenceDays     []string   `json:"recurrence_days"`
	MaxOccurrences     int        `json:"max_occurrences"`
	Active             *bool      `json:"active"`
	GenerateInstances  *bool      `json:"generate_instances"`
}

// toModel converts the request, parsing enums at the boundary
func (r *RecurringEventRequest) toModel() (*models.RecurringEvent, error) {
	recurrence, err := models.ParseRecurrenceType(r.RecurrenceType)
	if err != nil {
		return nil, errors.Wrap(services.ErrInvalidRecurrenceRule, err.Error())
	}
	days, err := models.ParseDayList(r.RecurrenceDays)
	if err != nil {
		return nil, errors.Wrap(services.ErrInvalidRecurrenceRule, err.Error())
	}
	privacy, err := models.ParsePrivacy(r.Privacy)
	if err != nil {
		return nil, errors.Wrap(services.ErrInvalidArgument, err.Error())
	}

	interval := 1
	if r.RecurrenceInterval != nil {
		interval = *r.RecurrenceInterval
	}
	active, generate := true, true
	if r.Active != nil {
		active = *r.Active
	}
	if r.GenerateInstances != nil {
		generate = *r.GenerateInstances
	}

	return &models.RecurringEvent{
		Title:              r.Title,
		Description:        r.Description,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		Location:           r.Location,
		EventType:          r.EventType,
		Active:             active,
		Privacy:            privacy,
		InviteMessage:      r.InviteMessage,
		IsOnline:           r.IsOnline,
		MeetingLink:        r.MeetingLink,
		MaxParticipants:    r.MaxParticipants,
		OrganizerName:      r.OrganizerName,
		OrganizerEmail:     r.OrganizerEmail,
		RecurrenceType:     recurrence,
		RecurrenceInterval: interval,
		RecurrenceEndDate:  r.RecurrenceEndDate,
		RecurrenceDays:     days,
		MaxOccurrences:     r.MaxOccurrences,
		GenerateInstances:  generate,
	}, nil
}

// RegisterRoutes registers the handler's routes
func (h *RecurringEventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	recurring := rg.Group("/recurring-events")
	{
		recurring.POST("", h.HandleCreate)
		recurring.GET("", h.HandleListActive)
		recurring.GET("/search", h.HandleSearch)
		recurring.GET("/count", h.HandleCount)
		recurring.GET("/organizer/:username", h.HandleListByOrganizer)
		recurring.GET("/:id", h.HandleGet)
		recurring.PUT("/:id", h.HandleUpdate)
		recurring.DELETE("/:id", h.HandleDelete)
		recurring.POST("/:id/activate", h.HandleActivate)
		recurring.POST("/:id/deactivate", h.HandleDeactivate)
		recurring.GET("/:id/occurrences", h.HandleOccurrences)
	}
}

// HandleCreate creates a template owned by the caller
func (h *RecurringEventHandler) HandleCreate(c *gin.Context) {
	tpl, err := h.bind(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), caller(c), tpl)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// HandleUpdate overwrites a template the caller owns
func (h *RecurringEventHandler) HandleUpdate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	tpl, err := h.bind(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), caller(c), id, tpl)
	respond(c, updated, err)
}

// HandleDelete removes a template the caller owns
func (h *RecurringEventHandler) HandleDelete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller(c), id); err != nil {
		WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleActivate re-enables a template
func (h *RecurringEventHandler) HandleActivate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	tpl, err := h.service.Activate(c.Request.Context(), caller(c), id)
	respond(c, tpl, err)
}

// HandleDeactivate disables a template
func (h *RecurringEventHandler) HandleDeactivate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	tpl, err := h.service.Deactivate(c.Request.Context(), caller(c), id)
	respond(c, tpl, err)
}

// HandleGet returns one template
func (h *RecurringEventHandler) HandleGet(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	tpl, err := h.service.Get(c.Request.Context(), id)
	respond(c, tpl, err)
}

// HandleListActive lists active templates
func (h *RecurringEventHandler) HandleListActive(c *gin.Context) {
	list, err := h.service.ListActive(c.Request.Context())
	respond(c, list, err)
}

// HandleListByOrganizer lists the templates an organizer owns
func (h *RecurringEventHandler) HandleListByOrganizer(c *gin.Context) {
	list, err := h.service.ListByOrganizer(c.Request.Context(), c.Param("username"))
	respond(c, list, err)
}

// HandleCount counts templates; ?active=true counts only active ones
func (h *RecurringEventHandler) HandleCount(c *gin.Context) {
	count := h.service.Count
	if c.Query("active") == "true" {
		count = h.service.CountActive
	}
	n, err := count(c.Request.Context())
	respond(c, CountResponse{Count: n}, err)
}

// HandleSearch filters active templates by the supplied query parameters
func (h *RecurringEventHandler) HandleSearch(c *gin.Context) {
	filter := models.RecurringEventFilter{
		Location:    queryString(c, "location"),
		EventType:   queryString(c, "event_type"),
		Organizer:   queryString(c, "organizer"),
		Title:       queryString(c, "title"),
		Description: queryString(c, "description"),
	}

	var err error
	if filter.StartAfter, err = queryTime(c, "start_after"); err != nil {
		WriteError(c, err)
		return
	}
	if filter.EndBefore, err = queryTime(c, "end_before"); err != nil {
		WriteError(c, err)
		return
	}
	if filter.IsOnline, err = queryBool(c, "is_online"); err != nil {
		WriteError(c, err)
		return
	}
	if raw := queryString(c, "recurrence_type"); raw != nil {
		rt, perr := models.ParseRecurrenceType(*raw)
		if perr != nil {
			WriteError(c, perr)
			return
		}
		filter.RecurrenceType = &rt
	}

	list, err := h.service.Search(c.Request.Context(), filter)
	respond(c, list, err)
}

// HandleOccurrences previews a template's expansion as of ?as_of= (default now)
func (h *RecurringEventHandler) HandleOccurrences(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	asOf, err := queryTime(c, "as_of")
	if err != nil {
		WriteError(c, err)
		return
	}
	if asOf == nil {
		now := time.Now()
		asOf = &now
	}

	occurrences, err := h.service.Occurrences(c.Request.Context(), id, *asOf)
	if err != nil {
		WriteError(c, err)
		return
	}
	if occurrences == nil {
		occurrences = []services.Occurrence{}
	}
	c.JSON(http.StatusOK, occurrences)
}

func (h *RecurringEventHandler) bind(c *gin.Context) (*models.RecurringEvent, error) {
	var req RecurringEventRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	return req.toModel()
}
