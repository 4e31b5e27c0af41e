package api

import (
	"net/http"

	"example.com/alumni/services/events/internal/services"

	"github.com/gin-gonic/gin"
)

const defaultTopLimit = 10

// AnalyticsHandler handles analytics requests
type AnalyticsHandler struct {
	service *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// AttendanceRequest is the body of an attendance tracking update
type AttendanceRequest struct {
	TotalInvited   int `json:"total_invited"`
	ActualAttended int `json:"actual_attended" binding:"gte=0"`
}

// RecalculateResponse reports a recalculation run
type RecalculateResponse struct {
	Rows int `json:"rows"`
}

// RegisterRoutes registers the handler's routes
func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	analytics := rg.Group("/analytics")
	{
		analytics.PUT("", h.HandleUpsert)
		analytics.GET("/events/:id", h.HandleGetOrInit)
		analytics.PUT("/events/:id/attendance", h.HandleUpdateAttendance)
		analytics.POST("/events/:id/complete", h.HandleMarkCompleted)
		analytics.POST("/events/:id/engagement/sync", h.HandleSyncEngagement)
		analytics.GET("/top/attendance", h.HandleTopByAttendance)
		analytics.GET("/top/engagement", h.HandleTopByEngagement)
		analytics.GET("/high/attendance", h.HandleHighAttendance)
		analytics.GET("/high/engagement", h.HandleHighEngagement)
		analytics.GET("/completed", h.HandleListCompleted)
		analytics.GET("/range", h.HandleListByDateRange)
		analytics.GET("/organizers/:username", h.HandleListByOrganizer)
		analytics.GET("/organizers/:username/summary", h.HandleOrganizerSummary)
		analytics.POST("/recalculate", h.HandleRecalculate)
	}
}

// HandleGetOrInit returns an event's analytics, creating a zeroed row when absent.
// ?init=false turns this into a pure read.
func (h *AnalyticsHandler) HandleGetOrInit(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	get := h.service.GetOrInitAnalytics
	if c.Query("init") == "false" {
		get = h.service.TryGetAnalytics
	}

	a, err := get(c.Request.Context(), eventID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HandleUpsert writes the reported counters of an event
func (h *AnalyticsHandler) HandleUpsert(c *gin.Context) {
	var req services.AnalyticsInput
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}

	a, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HandleUpdateAttendance records invitation and attendance totals
func (h *AnalyticsHandler) HandleUpdateAttendance(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	var req AttendanceRequest
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}

	a, err := h.service.UpdateAttendanceTracking(c.Request.Context(), eventID, req.TotalInvited, req.ActualAttended)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HandleMarkCompleted flags an event's analytics as completed
func (h *AnalyticsHandler) HandleMarkCompleted(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	if err := h.service.MarkCompleted(c.Request.Context(), eventID); err != nil {
		WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleSyncEngagement pulls engagement counts for an event
func (h *AnalyticsHandler) HandleSyncEngagement(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	a, err := h.service.SyncEngagementCounts(c.Request.Context(), eventID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HandleTopByAttendance ranks completed events by attendance rate
func (h *AnalyticsHandler) HandleTopByAttendance(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultTopLimit)
	if err != nil {
		WriteError(c, err)
		return
	}
	list, err := h.service.TopByAttendance(c.Request.Context(), limit)
	respond(c, list, err)
}

// HandleTopByEngagement ranks completed events by engagement rate
func (h *AnalyticsHandler) HandleTopByEngagement(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultTopLimit)
	if err != nil {
		WriteError(c, err)
		return
	}
	list, err := h.service.TopByEngagement(c.Request.Context(), limit)
	respond(c, list, err)
}

// HandleHighAttendance lists completed events at or above an attendance threshold
func (h *AnalyticsHandler) HandleHighAttendance(c *gin.Context) {
	threshold, err := queryFloat(c, "threshold", 80)
	if err != nil {
		WriteError(c, err)
		return
	}
	list, err := h.service.ListWithAttendanceAtLeast(c.Request.Context(), threshold)
	respond(c, list, err)
}

// HandleHighEngagement lists completed events at or above an engagement threshold
func (h *AnalyticsHandler) HandleHighEngagement(c *gin.Context) {
	threshold, err := queryFloat(c, "threshold", 50)
	if err != nil {
		WriteError(c, err)
		return
	}
	list, err := h.service.ListWithEngagementAtLeast(c.Request.Context(), threshold)
	respond(c, list, err)
}

// HandleListCompleted lists completed events
func (h *AnalyticsHandler) HandleListCompleted(c *gin.Context) {
	list, err := h.service.ListCompleted(c.Request.Context())
	respond(c, list, err)
}

// HandleListByDateRange lists events starting within ?from=&to=, optionally for one ?organizer=
func (h *AnalyticsHandler) HandleListByDateRange(c *gin.Context) {
	from, err := queryTime(c, "from")
	if err != nil {
		WriteError(c, err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		WriteError(c, err)
		return
	}
	if from == nil || to == nil {
		WriteError(c, NewValidationError("from and to are required"))
		return
	}

	if organizer := c.Query("organizer"); organizer != "" {
		list, err := h.service.ListByOrganizerAndDateRange(c.Request.Context(), organizer, *from, *to)
		respond(c, list, err)
		return
	}
	list, err := h.service.ListByDateRange(c.Request.Context(), *from, *to)
	respond(c, list, err)
}

// HandleListByOrganizer lists an organizer's analytics rows
func (h *AnalyticsHandler) HandleListByOrganizer(c *gin.Context) {
	list, err := h.service.ListByOrganizer(c.Request.Context(), c.Param("username"))
	respond(c, list, err)
}

// HandleOrganizerSummary rolls up an organizer's events
func (h *AnalyticsHandler) HandleOrganizerSummary(c *gin.Context) {
	summary, err := h.service.OrganizerSummary(c.Request.Context(), c.Param("username"))
	respond(c, summary, err)
}

// HandleRecalculate re-derives every stored rate
func (h *AnalyticsHandler) HandleRecalculate(c *gin.Context) {
	n, err := h.service.RecalculateAll(c.Request.Context())
	respond(c, RecalculateResponse{Rows: n}, err)
}

func respond(c *gin.Context, body interface{}, err error) {
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}
