package labresult

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medportal/medportal/internal/domain/accesslog"
	"github.com/medportal/medportal/internal/platform/auth"
	"github.com/medportal/medportal/pkg/pagination"
	"github.com/medportal/medportal/pkg/sniff"
)

// AuditLister exposes the access trail for staff review.
type AuditLister interface {
	List(ctx context.Context, itemID int64, limit, offset int) ([]*accesslog.Record, int, error)
}

type Handler struct {
	svc    *Service
	audits AuditLister
	logger zerolog.Logger
}

func NewHandler(svc *Service, audits AuditLister, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, audits: audits, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/lab-result", h.GetResult)
	g.GET("/lab-result/download", h.DownloadResult)
	g.GET("/lab-result/access-log", h.GetAccessLog, auth.RequireRole("staff", "admin"))
}

// GetResult serves a lab result payload. action=view renders a PDF inline
// in the browser; any other payload, and action=download, is served as an
// attachment.
func (h *Handler) GetResult(c echo.Context) error {
	mode := ModeView
	switch c.QueryParam("action") {
	case "", "view":
	case "download":
		mode = ModeDownload
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid action")
	}
	return h.deliver(c, mode)
}

// DownloadResult always serves the payload as an attachment.
func (h *Handler) DownloadResult(c echo.Context) error {
	return h.deliver(c, ModeDownload)
}

func (h *Handler) deliver(c echo.Context, mode Mode) error {
	// A malformed id maps to zero so the service orders the checks:
	// authentication is decided before the id is judged.
	itemID, err := strconv.ParseInt(c.QueryParam("item_id"), 10, 64)
	if err != nil {
		itemID = 0
	}

	req := DeliveryRequest{
		Caller:     auth.CallerFromContext(c.Request().Context()),
		ItemID:     itemID,
		Mode:       mode,
		Hint:       parseHint(c.QueryParam("hint")),
		RemoteAddr: c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
	}

	delivery, err := h.svc.Deliver(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		case errors.Is(err, ErrInvalidItemID):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "lab result not found")
		default:
			h.logger.Error().Err(err).Int64("item_id", itemID).Msg("result delivery failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	head := c.Response().Header()
	head.Set("Content-Disposition", delivery.Disposition+`; filename="`+delivery.Filename+`"`)
	head.Set("Content-Length", strconv.Itoa(len(delivery.Content)))
	head.Set("X-Content-Type-Options", "nosniff")
	if delivery.Inline {
		// Inline PDFs render in portal iframes; restrict embedding to the
		// portal origin and allow short-lived private caching. The CSP
		// override matters: browsers let frame-ancestors take precedence
		// over X-Frame-Options, and the global default is 'none'.
		head.Set("X-Frame-Options", "SAMEORIGIN")
		head.Set("Content-Security-Policy", "frame-ancestors 'self'")
		head.Set("Cache-Control", "private, max-age=300")
	} else {
		head.Set("Cache-Control", "no-store")
	}

	return c.Blob(http.StatusOK, delivery.MIME, delivery.Content)
}

// GetAccessLog returns who viewed a result item, newest first.
func (h *Handler) GetAccessLog(c echo.Context) error {
	itemID, err := strconv.ParseInt(c.QueryParam("item_id"), 10, 64)
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	page := pagination.FromContext(c)
	records, total, err := h.audits.List(c.Request().Context(), itemID, page.Limit, page.Offset)
	if err != nil {
		h.logger.Error().Err(err).Int64("item_id", itemID).Msg("access log query failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if records == nil {
		records = []*accesslog.Record{}
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, page.Limit, page.Offset))
}

func parseHint(s string) sniff.Hint {
	switch s {
	case "spreadsheet":
		return sniff.HintSpreadsheet
	case "document":
		return sniff.HintWordDocument
	}
	return sniff.HintNone
}
