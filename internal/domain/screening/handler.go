package screening

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medscreen/medscreen/internal/platform/auth"
	"github.com/medscreen/medscreen/internal/platform/blobstore"
	"github.com/medscreen/medscreen/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – every screening role
	readGroup := api.Group("", auth.RequireRole("admin", "recruiter", "reviewer", "supervisor"))
	readGroup.GET("/screenings", h.ListProcesses)
	readGroup.GET("/screenings/:id", h.GetProcess)
	readGroup.GET("/screenings/:id/documents/:document_id/download", h.DownloadDocument)

	// Process progression – admin, recruiter
	recruiterGroup := api.Group("", auth.RequireRole("admin", "recruiter"))
	recruiterGroup.POST("/screenings", h.CreateProcess)
	recruiterGroup.POST("/screenings/:id/steps/:step_type/data", h.SubmitStepData)
	recruiterGroup.POST("/screenings/:id/advance", h.AdvanceStep)
	recruiterGroup.POST("/screenings/:id/documents/:document_id/upload", h.UploadDocument)
	recruiterGroup.POST("/screenings/:id/cancel", h.CancelProcess)

	// Document review – admin, reviewer, supervisor
	reviewGroup := api.Group("", auth.RequireRole("admin", "reviewer", "supervisor"))
	reviewGroup.POST("/screenings/:id/documents/:document_id/review", h.ReviewDocument)
	reviewGroup.POST("/screenings/:id/documents/:document_id/reuse", h.ReuseDocument)
	reviewGroup.POST("/screenings/:id/alerts", h.RaiseAlert)

	// Alert resolution – admin, supervisor only
	supervisorGroup := api.Group("", auth.RequireRole("admin", "supervisor"))
	supervisorGroup.POST("/screenings/:id/alerts/:alert_id/resolve", h.ResolveAlert)
}

// httpError maps engine errors onto HTTP statuses. Guard failures are 422 so
// clients can distinguish "fix your request" from "fix the process state".
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, blobstore.ErrArtifactNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrProcessFinalized), errors.Is(err, ErrAlertConflict), errors.Is(err, ErrAlertResolved):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidStepTransition), errors.Is(err, ErrInvalidDocumentTransition):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidTemplate):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, blobstore.ErrArtifactTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrEmptyArtifact):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

type createProcessRequest struct {
	OrganizationID uuid.UUID  `json:"organization_id"`
	ProfessionalID uuid.UUID  `json:"professional_id"`
	SupervisorID   *uuid.UUID `json:"supervisor_id,omitempty"`
}

func (h *Handler) CreateProcess(c echo.Context) error {
	var req createProcessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.OrganizationID == uuid.Nil || req.ProfessionalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "organization_id and professional_id are required")
	}
	agg, err := h.svc.CreateProcess(c.Request().Context(), req.OrganizationID, req.ProfessionalID, req.SupervisorID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, agg)
}

func (h *Handler) GetProcess(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	agg, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, agg)
}

func (h *Handler) DownloadDocument(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	docID, err := pathUUID(c, "document_id")
	if err != nil {
		return err
	}
	url, err := h.svc.DocumentURL(c.Request().Context(), id, docID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_in": int(artifactURLTTL.Seconds()),
	})
}

func (h *Handler) ListProcesses(c echo.Context) error {
	orgID, err := uuid.Parse(c.QueryParam("organization_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "organization_id query parameter is required")
	}
	status := ProcessStatus(c.QueryParam("status"))

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), orgID, status, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SubmitStepData(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	stepType := c.Param("step_type")
	if !IsValidStepType(stepType) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown step type")
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	agg, err := h.svc.SubmitStepData(c.Request().Context(), id, StepType(stepType), payload)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, agg)
}

func (h *Handler) AdvanceStep(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	agg, err := h.svc.AdvanceStep(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, agg)
}

func (h *Handler) UploadDocument(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	docID, err := pathUUID(c, "document_id")
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > blobstore.MaxArtifactSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.svc.UploadDocument(c.Request().Context(), id, docID, fh.Filename, contentType, data,
		auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

type reviewRequest struct {
	Decision ReviewDecision `json:"decision"`
	Note     string         `json:"note"`
}

func (h *Handler) ReviewDocument(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	docID, err := pathUUID(c, "document_id")
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !validDecisions[req.Decision] {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown review decision")
	}
	if req.Decision == DecisionAlert && req.Note == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "note is required for alert decisions")
	}

	doc, err := h.svc.ReviewDocument(c.Request().Context(), id, docID, req.Decision, req.Note,
		auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) ReuseDocument(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	docID, err := pathUUID(c, "document_id")
	if err != nil {
		return err
	}
	doc, err := h.svc.ReuseDocument(c.Request().Context(), id, docID, auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

type raiseAlertRequest struct {
	Reason   string `json:"reason"`
	Category string `json:"category"`
}

func (h *Handler) RaiseAlert(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req raiseAlertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}
	if !IsValidAlertCategory(req.Category) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown alert category")
	}

	alert, err := h.svc.RaiseAlert(c.Request().Context(), id, req.Reason, AlertCategory(req.Category),
		auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, alert)
}

type resolveAlertRequest struct {
	Resolution string `json:"resolution"`
	Reject     bool   `json:"reject"`
}

func (h *Handler) ResolveAlert(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	alertID, err := pathUUID(c, "alert_id")
	if err != nil {
		return err
	}
	var req resolveAlertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Resolution == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resolution is required")
	}

	agg, err := h.svc.ResolveAlert(c.Request().Context(), id, alertID, req.Resolution, req.Reject,
		auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, agg)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelProcess(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	agg, err := h.svc.Cancel(c.Request().Context(), id, req.Reason, auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, agg)
}
