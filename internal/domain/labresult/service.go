package labresult

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medportal/medportal/internal/domain/accesslog"
	"github.com/medportal/medportal/internal/platform/auth"
	"github.com/medportal/medportal/pkg/sniff"
)

var (
	// ErrUnauthenticated is returned when the request carries no patient
	// identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidItemID is returned for a missing or non-positive item id.
	ErrInvalidItemID = errors.New("invalid item id")
)

// Mode selects how the payload should be presented to the browser.
type Mode string

const (
	ModeView     Mode = "view"
	ModeDownload Mode = "download"
)

// DeliveryRequest carries everything the service needs to serve one result.
type DeliveryRequest struct {
	Caller     auth.Caller
	ItemID     int64
	Mode       Mode
	Hint       sniff.Hint
	RemoteAddr string
	UserAgent  string
}

// Delivery is a classified payload ready to stream.
type Delivery struct {
	Content     []byte
	MIME        string
	Ext         string
	Filename    string
	Inline      bool
	Disposition string
}

// Auditor records result accesses. Implementations must be best-effort:
// Record has no error return by design of the audit contract.
type Auditor interface {
	Record(ctx context.Context, rec accesslog.Record)
}

// Service orchestrates ownership-checked retrieval, content classification,
// access auditing and filename generation.
type Service struct {
	repo    Repository
	auditor Auditor
	logger  zerolog.Logger
}

func NewService(repo Repository, auditor Auditor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, logger: logger}
}

// Deliver fetches the item for the calling patient and prepares it for
// streaming. Only view mode on a PDF produces an inline delivery; every
// other combination is an attachment.
func (s *Service) Deliver(ctx context.Context, req DeliveryRequest) (*Delivery, error) {
	if !req.Caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if req.ItemID <= 0 {
		return nil, ErrInvalidItemID
	}

	item, err := s.repo.FetchOwned(ctx, req.ItemID, req.Caller.PatientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load result item: %w", err)
	}

	cls := sniff.Classify(item.Payload, req.Hint)
	s.logger.Debug().
		Int64("item_id", item.ID).
		Str("mime", cls.MIME).
		Int("bytes", len(item.Payload)).
		Msg("classified result payload")

	s.auditor.Record(ctx, accesslog.Record{
		ItemID:      item.ID,
		PatientID:   req.Caller.PatientID,
		PatientName: item.PatientName,
		IPAddress:   req.RemoteAddr,
		UserAgent:   req.UserAgent,
	})

	inline := req.Mode == ModeView && cls.MIME == "application/pdf"
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}

	return &Delivery{
		Content:     item.Payload,
		MIME:        cls.MIME,
		Ext:         cls.Ext,
		Filename:    buildFilename(item, cls.Ext),
		Inline:      inline,
		Disposition: disposition,
	}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// sanitizeSegment reduces a filename component to [A-Za-z0-9_-], collapsing
// runs of other characters to a single underscore.
func sanitizeSegment(s string) string {
	return strings.Trim(unsafeFilenameChars.ReplaceAllString(s, "_"), "_")
}

// buildFilename generates the download name:
// Lab_Result[_<patientName>]_<testType>_<resultDate>_Item<id>.<ext>.
// Segments that sanitize to nothing are omitted (patient name) or replaced
// with a fallback (test type).
func buildFilename(item *ResultItem, ext string) string {
	parts := []string{"Lab", "Result"}

	if name := sanitizeSegment(item.PatientName); name != "" {
		parts = append(parts, name)
	}

	testType := sanitizeSegment(item.TestType)
	if testType == "" {
		testType = "Result"
	}
	parts = append(parts, testType)

	if item.ResultDate != nil {
		parts = append(parts, item.ResultDate.Format("2006-01-02"))
	}

	parts = append(parts, fmt.Sprintf("Item%d", item.ID))

	return strings.Join(parts, "_") + "." + ext
}
