package handlers

import (
	"encoding/csv"
	"errors"
	"net/http"
	"time"

	"carddraw/internal/models"
	"carddraw/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"
)

const (
	deviceCookie    = "device_id"
	deviceCtxKey    = "deviceID"
	deviceCookieAge = 365 * 24 * 60 * 60
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	draws  *services.DrawService
	ledger *services.LedgerService
}

// NewHTTPHandler creates a new HTTPHandler. ledger may be nil when this
// process does not host the ledger.
func NewHTTPHandler(draws *services.DrawService, ledger *services.LedgerService) *HTTPHandler {
	return &HTTPHandler{
		draws:  draws,
		ledger: ledger,
	}
}

// stateResponse is the JSON shape the presentation layer renders from.
type stateResponse struct {
	models.DrawState
	Phase models.Phase `json:"phase"`
}

func newStateResponse(st models.DrawState) stateResponse {
	return stateResponse{DrawState: st, Phase: st.Phase()}
}

// RegisterPublicRoutes registers routes that need no device identity.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if h.ledger != nil {
		router.GET("/ledger/:category", h.LedgerCheck)
		router.POST("/ledger/:category", h.LedgerRecord)
		router.GET("/ledger/:category/export.csv", h.ExportLedgerCSV)
	}
}

// RegisterDeviceRoutes registers the draw workflow routes. They expect
// DeviceMiddleware to have run.
func (h *HTTPHandler) RegisterDeviceRoutes(router gin.IRouter) {
	router.GET("/draw/:category", h.ShowState)
	router.POST("/draw/:category/team", h.SetTeam)
	router.POST("/draw/:category/verify", h.VerifyTeam)
	router.POST("/draw/:category/spin", h.SpinCard)
	router.POST("/draw/:category/reset", h.ResetState)
	router.POST("/session/clear", h.ClearSession)
}

// DeviceMiddleware identifies the calling device by cookie, issuing a new
// ID on first visit.
func (h *HTTPHandler) DeviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := c.Cookie(deviceCookie)
		if err != nil || uuid.Validate(deviceID) != nil {
			deviceID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(deviceCookie, deviceID, deviceCookieAge, "/", "", false, true)
			logger.Infof("Issued new device id: %s", deviceID)
		}
		c.Set(deviceCtxKey, deviceID)
		c.Next()
	}
}

// controller resolves the device's controller for the :category segment,
// writing an error response and returning nil on failure.
func (h *HTTPHandler) controller(c *gin.Context) *services.Controller {
	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		c.String(http.StatusNotFound, "Unknown draw category")
		return nil
	}
	deviceID := c.GetString(deviceCtxKey)
	if deviceID == "" {
		c.String(http.StatusBadRequest, "Missing device id")
		return nil
	}
	ctrl, err := h.draws.Controller(c.Request.Context(), deviceID, category)
	if err != nil {
		logger.Errorf("Error loading %s controller for %s: %v", category, deviceID, err)
		c.String(http.StatusInternalServerError, "Draw unavailable")
		return nil
	}
	return ctrl
}

// ShowState returns the current workflow state.
func (h *HTTPHandler) ShowState(c *gin.Context) {
	if ctrl := h.controller(c); ctrl != nil {
		c.JSON(http.StatusOK, newStateResponse(ctrl.Snapshot()))
	}
}

// SetTeam handles the team name form field.
func (h *HTTPHandler) SetTeam(c *gin.Context) {
	if ctrl := h.controller(c); ctrl != nil {
		c.JSON(http.StatusOK, newStateResponse(ctrl.SetTeamName(c.PostForm("team"))))
	}
}

// VerifyTeam runs the eligibility check. A "team" form field, when present,
// is applied first.
func (h *HTTPHandler) VerifyTeam(c *gin.Context) {
	ctrl := h.controller(c)
	if ctrl == nil {
		return
	}
	if team, ok := c.GetPostForm("team"); ok {
		ctrl.SetTeamName(team)
	}
	c.JSON(http.StatusOK, newStateResponse(ctrl.VerifyTeam(c.Request.Context())))
}

// SpinCard performs the draw. The response is sent once the result is recorded.
func (h *HTTPHandler) SpinCard(c *gin.Context) {
	if ctrl := h.controller(c); ctrl != nil {
		c.JSON(http.StatusOK, newStateResponse(ctrl.SpinCard(c.Request.Context())))
	}
}

// ResetState clears the in-memory workflow fields.
func (h *HTTPHandler) ResetState(c *gin.Context) {
	if ctrl := h.controller(c); ctrl != nil {
		c.JSON(http.StatusOK, newStateResponse(ctrl.ResetState()))
	}
}

// ClearSession drops the device's in-memory controllers. Participation flags
// stay in the store.
func (h *HTTPHandler) ClearSession(c *gin.Context) {
	deviceID := c.GetString(deviceCtxKey)
	if deviceID == "" {
		c.String(http.StatusBadRequest, "Missing device id")
		return
	}
	h.draws.ClearSession(deviceID)
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func ledgerStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmptyTeam), errors.Is(err, services.ErrInvalidResult):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// LedgerCheck answers ?action=check&team=... with {"exists": bool}.
func (h *HTTPHandler) LedgerCheck(c *gin.Context) {
	if c.Query("action") != "check" {
		c.String(http.StatusBadRequest, "Unsupported action")
		return
	}
	exists, err := h.ledger.CheckExists(c.Request.Context(), models.Category(c.Param("category")), c.Query("team"))
	if err != nil {
		logger.Infof("Ledger check failed: %v", err)
		c.String(ledgerStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// LedgerRecord appends a result from the form fields action=record, team, result.
func (h *HTTPHandler) LedgerRecord(c *gin.Context) {
	if c.PostForm("action") != "record" {
		c.String(http.StatusBadRequest, "Unsupported action")
		return
	}
	err := h.ledger.RecordResult(
		c.Request.Context(),
		models.Category(c.Param("category")),
		c.PostForm("team"),
		c.PostForm("result"),
	)
	if err != nil {
		logger.Infof("Ledger record failed: %v", err)
		c.String(ledgerStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ExportLedgerCSV handles the request to download a category's ledger as a CSV file.
func (h *HTTPHandler) ExportLedgerCSV(c *gin.Context) {
	category := models.Category(c.Param("category"))
	entries, err := h.ledger.Entries(c.Request.Context(), category)
	if err != nil {
		logger.Infof("Error listing ledger: %v", err)
		c.String(ledgerStatus(err), err.Error())
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename="+string(category)+"_ledger.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	if err := w.Write([]string{"team", "result", "recorded_at"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}

	for _, entry := range entries {
		recordedAt := time.UnixMilli(entry.RecordedAt).UTC().Format(time.RFC3339)
		if err := w.Write([]string{entry.Team, entry.Result, recordedAt}); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			c.String(http.StatusInternalServerError, "Error writing CSV")
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}
