package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/models"
	"github.com/noah-isme/roster-console/internal/service"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
	"github.com/noah-isme/roster-console/pkg/response"
)

type rosterCoordinator interface {
	Options() models.RosterOptions
	Enter(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error)
	ChangePage(ctx context.Context, sess models.Session, pageIndex int) (*models.RosterSnapshot, error)
	ApplyFilter(ctx context.Context, sess models.Session, criteria models.FilterCriteria) (*models.RosterSnapshot, error)
	ResetFilter(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error)
	Delete(ctx context.Context, sess models.Session, id int64, confirmed bool) (*models.RosterSnapshot, error)
	OpenAdd(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error)
	OpenEdit(ctx context.Context, sess models.Session, id int64) (*models.RosterSnapshot, error)
	UpdateDialog(ctx context.Context, sess models.Session, form models.StudentForm) (*models.RosterSnapshot, error)
	SubmitDialog(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error)
	DismissDialog(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error)
}

type rosterExporter interface {
	ExportPage(ctx context.Context, sess models.Session, format string) (*service.ExportFile, error)
}

type noticeRecorder interface {
	RecordNotice(level string)
}

// RosterHandler exposes the roster view coordinator over HTTP.
type RosterHandler struct {
	roster   rosterCoordinator
	exporter rosterExporter
	sessions sessionStore
	notices  noticeRecorder
	logger   *zap.Logger
}

// NewRosterHandler constructs a roster handler. exporter may be nil when
// exports are disabled.
func NewRosterHandler(roster rosterCoordinator, exporter rosterExporter, sessions sessionStore, notices noticeRecorder, logger *zap.Logger) *RosterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterHandler{roster: roster, exporter: exporter, sessions: sessions, notices: notices, logger: logger}
}

type pageRequest struct {
	PageIndex int `json:"pageIndex"`
}

type deleteRequest struct {
	Confirmed bool `json:"confirmed"`
}

type openDialogRequest struct {
	Mode      models.DialogMode `json:"mode"`
	StudentID int64             `json:"studentId"`
}

// Enter godoc
// @Summary Load the roster view
// @Description Fetch the current page and total for the signed-in administrator
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /roster [get]
func (h *RosterHandler) Enter(c *gin.Context) {
	snap, err := h.roster.Enter(c.Request.Context(), sessionFromContext(c))
	h.reply(c, snap, err)
}

// Options godoc
// @Summary Filter and dialog options
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roster/options [get]
func (h *RosterHandler) Options(c *gin.Context) {
	response.OK(c, h.roster.Options())
}

// ChangePage godoc
// @Summary Change page
// @Tags Roster
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roster/page [put]
func (h *RosterHandler) ChangePage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid page payload"))
		return
	}
	snap, err := h.roster.ChangePage(c.Request.Context(), sessionFromContext(c), req.PageIndex)
	h.reply(c, snap, err)
}

// ApplyFilter godoc
// @Summary Search the roster
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body models.FilterCriteria true "Filter criteria"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roster/filter [post]
func (h *RosterHandler) ApplyFilter(c *gin.Context) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter payload"))
		return
	}
	if criteria.Gender != "" {
		gender, ok := models.ParseGender(criteria.Gender)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown gender %q", criteria.Gender)))
			return
		}
		criteria.Gender = gender.String()
	}
	snap, err := h.roster.ApplyFilter(c.Request.Context(), sessionFromContext(c), criteria)
	h.reply(c, snap, err)
}

// ResetFilter godoc
// @Summary Clear every filter
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roster/filter [delete]
func (h *RosterHandler) ResetFilter(c *gin.Context) {
	snap, err := h.roster.ResetFilter(c.Request.Context(), sessionFromContext(c))
	h.reply(c, snap, err)
}

// Delete godoc
// @Summary Delete a student
// @Description Without confirmed=true only the confirmation prompt is returned
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /roster/students/{id}/delete [post]
func (h *RosterHandler) Delete(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req deleteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid delete payload"))
			return
		}
	}
	snap, err := h.roster.Delete(c.Request.Context(), sessionFromContext(c), id, req.Confirmed)
	h.reply(c, snap, err)
}

// OpenDialog godoc
// @Summary Open the add or edit dialog
// @Tags Roster
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roster/dialog [post]
func (h *RosterHandler) OpenDialog(c *gin.Context) {
	var req openDialogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dialog payload"))
		return
	}
	sess := sessionFromContext(c)
	switch req.Mode {
	case models.DialogAdd:
		snap, err := h.roster.OpenAdd(c.Request.Context(), sess)
		h.reply(c, snap, err)
	case models.DialogEdit:
		snap, err := h.roster.OpenEdit(c.Request.Context(), sess, req.StudentID)
		h.reply(c, snap, err)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mode must be add or edit"))
	}
}

// UpdateDialog godoc
// @Summary Edit the dialog's working copy
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body models.StudentForm true "Working copy"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roster/dialog [patch]
func (h *RosterHandler) UpdateDialog(c *gin.Context) {
	var form models.StudentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	snap, err := h.roster.UpdateDialog(c.Request.Context(), sessionFromContext(c), form)
	h.reply(c, snap, err)
}

// SubmitDialog godoc
// @Summary Save the dialog
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roster/dialog/submit [post]
func (h *RosterHandler) SubmitDialog(c *gin.Context) {
	snap, err := h.roster.SubmitDialog(c.Request.Context(), sessionFromContext(c))
	h.reply(c, snap, err)
}

// DismissDialog godoc
// @Summary Close the dialog without saving
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roster/dialog [delete]
func (h *RosterHandler) DismissDialog(c *gin.Context) {
	snap, err := h.roster.DismissDialog(c.Request.Context(), sessionFromContext(c))
	h.reply(c, snap, err)
}

// Export godoc
// @Summary Download the current page
// @Tags Roster
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /roster/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	file, err := h.exporter.ExportPage(c.Request.Context(), sessionFromContext(c), c.DefaultQuery("format", service.ExportCSV))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *RosterHandler) reply(c *gin.Context, snap *models.RosterSnapshot, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if snap.Notice != nil && h.notices != nil {
		h.notices.RecordNotice(string(snap.Notice.Level))
	}
	response.Snapshot(c, snap)
}

// fail writes an error response. An expired session also loses its cookie.
func (h *RosterHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, appErrors.ErrSessionExpired) {
		if clearErr := h.sessions.Clear(c.Writer, c.Request); clearErr != nil {
			h.logger.Warn("clear expired session cookie", zap.Error(clearErr))
		}
	}
	response.Error(c, err)
}

func studentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student id"))
		return 0, false
	}
	return id, true
}
