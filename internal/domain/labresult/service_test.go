package labresult

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medportal/medportal/internal/domain/accesslog"
	"github.com/medportal/medportal/internal/platform/auth"
	"github.com/medportal/medportal/pkg/sniff"
)

type mockRepo struct {
	items map[int64]*ResultItem
	err   error
}

func (m *mockRepo) FetchOwned(ctx context.Context, itemID int64, patientID uuid.UUID) (*ResultItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	item, ok := m.items[itemID]
	if !ok || item.PatientID != patientID || item.Payload == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

type mockAuditor struct {
	records []accesslog.Record
}

func (m *mockAuditor) Record(ctx context.Context, rec accesslog.Record) {
	m.records = append(m.records, rec)
}

func date(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func testItem(patientID uuid.UUID, payload []byte) *ResultItem {
	return &ResultItem{
		ID:          42,
		OrderID:     7,
		PatientID:   patientID,
		PatientName: "Jordan Reyes",
		TestType:    "Complete Blood Count",
		Status:      StatusCompleted,
		ResultDate:  date("2026-03-15"),
		Payload:     payload,
	}
}

func TestService_Deliver_InlinePDF(t *testing.T) {
	patientID := uuid.New()
	repo := &mockRepo{items: map[int64]*ResultItem{
		42: testItem(patientID, []byte("%PDF-1.7 content")),
	}}
	auditor := &mockAuditor{}
	svc := NewService(repo, auditor, zerolog.Nop())

	d, err := svc.Deliver(context.Background(), DeliveryRequest{
		Caller:     auth.Caller{PatientID: patientID},
		ItemID:     42,
		Mode:       ModeView,
		RemoteAddr: "203.0.113.9",
		UserAgent:  "Mozilla/5.0",
	})
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}

	if !d.Inline || d.Disposition != "inline" {
		t.Errorf("expected inline delivery, got inline=%v disposition=%q", d.Inline, d.Disposition)
	}
	if d.MIME != "application/pdf" {
		t.Errorf("MIME = %q, want application/pdf", d.MIME)
	}
	want := "Lab_Result_Jordan_Reyes_Complete_Blood_Count_2026-03-15_Item42.pdf"
	if d.Filename != want {
		t.Errorf("Filename = %q, want %q", d.Filename, want)
	}

	if len(auditor.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(auditor.records))
	}
	rec := auditor.records[0]
	if rec.ItemID != 42 || rec.PatientID != patientID {
		t.Errorf("unexpected audit record: %+v", rec)
	}
	if rec.IPAddress != "203.0.113.9" || rec.UserAgent != "Mozilla/5.0" {
		t.Errorf("audit record missing request metadata: %+v", rec)
	}
}

func TestService_Deliver_DownloadModePDF(t *testing.T) {
	patientID := uuid.New()
	repo := &mockRepo{items: map[int64]*ResultItem{
		42: testItem(patientID, []byte("%PDF-1.7 content")),
	}}
	svc := NewService(repo, &mockAuditor{}, zerolog.Nop())

	d, err := svc.Deliver(context.Background(), DeliveryRequest{
		Caller: auth.Caller{PatientID: patientID},
		ItemID: 42,
		Mode:   ModeDownload,
	})
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if d.Inline || d.Disposition != "attachment" {
		t.Errorf("expected attachment for download mode, got inline=%v", d.Inline)
	}
}

func TestService_Deliver_ViewModeNonPDFIsAttachment(t *testing.T) {
	patientID := uuid.New()
	repo := &mockRepo{items: map[int64]*ResultItem{
		42: testItem(patientID, []byte("test,result\nHGB,13.5\n")),
	}}
	svc := NewService(repo, &mockAuditor{}, zerolog.Nop())

	d, err := svc.Deliver(context.Background(), DeliveryRequest{
		Caller: auth.Caller{PatientID: patientID},
		ItemID: 42,
		Mode:   ModeView,
	})
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if d.Inline {
		t.Error("view of a non-PDF must not be inline")
	}
	if d.MIME != "text/csv" {
		t.Errorf("MIME = %q, want text/csv", d.MIME)
	}
	if !strings.HasSuffix(d.Filename, ".csv") {
		t.Errorf("expected .csv filename, got %q", d.Filename)
	}
}

func TestService_Deliver_HintUpgradesZip(t *testing.T) {
	patientID := uuid.New()
	repo := &mockRepo{items: map[int64]*ResultItem{
		42: testItem(patientID, []byte{'P', 'K', 0x03, 0x04, 0x14}),
	}}
	svc := NewService(repo, &mockAuditor{}, zerolog.Nop())

	d, err := svc.Deliver(context.Background(), DeliveryRequest{
		Caller: auth.Caller{PatientID: patientID},
		ItemID: 42,
		Mode:   ModeDownload,
		Hint:   sniff.HintSpreadsheet,
	})
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if d.Ext != "xlsx" {
		t.Errorf("Ext = %q, want xlsx", d.Ext)
	}
}

func TestService_Deliver_Errors(t *testing.T) {
	patientID := uuid.New()
	otherPatient := uuid.New()
	repo := &mockRepo{items: map[int64]*ResultItem{
		42: testItem(patientID, []byte("%PDF-1.7")),
	}}
	svc := NewService(repo, &mockAuditor{}, zerolog.Nop())

	tests := []struct {
		name    string
		req     DeliveryRequest
		wantErr error
	}{
		{
			name:    "unauthenticated",
			req:     DeliveryRequest{ItemID: 42, Mode: ModeView},
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "zero item id",
			req:     DeliveryRequest{Caller: auth.Caller{PatientID: patientID}, ItemID: 0},
			wantErr: ErrInvalidItemID,
		},
		{
			name:    "negative item id",
			req:     DeliveryRequest{Caller: auth.Caller{PatientID: patientID}, ItemID: -3},
			wantErr: ErrInvalidItemID,
		},
		{
			name:    "missing item",
			req:     DeliveryRequest{Caller: auth.Caller{PatientID: patientID}, ItemID: 999},
			wantErr: ErrNotFound,
		},
		{
			name:    "owned by another patient",
			req:     DeliveryRequest{Caller: auth.Caller{PatientID: otherPatient}, ItemID: 42},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Deliver(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Deliver() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Deliver_StorageFault(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection reset")}
	svc := NewService(repo, &mockAuditor{}, zerolog.Nop())

	_, err := svc.Deliver(context.Background(), DeliveryRequest{
		Caller: auth.Caller{PatientID: uuid.New()},
		ItemID: 42,
	})
	if err == nil {
		t.Fatal("expected error from storage fault")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidItemID) || errors.Is(err, ErrUnauthenticated) {
		t.Errorf("storage fault must not map to a client error, got %v", err)
	}
}

func TestService_Deliver_NoAuditOnFailure(t *testing.T) {
	auditor := &mockAuditor{}
	repo := &mockRepo{items: map[int64]*ResultItem{}}
	svc := NewService(repo, auditor, zerolog.Nop())

	_, err := svc.Deliver(context.Background(), DeliveryRequest{
		Caller: auth.Caller{PatientID: uuid.New()},
		ItemID: 5,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(auditor.records) != 0 {
		t.Errorf("failed lookups must not be audited, got %d records", len(auditor.records))
	}
}

func TestBuildFilename(t *testing.T) {
	tests := []struct {
		name string
		item ResultItem
		ext  string
		want string
	}{
		{
			name: "full segments",
			item: ResultItem{ID: 42, PatientName: "Jordan Reyes", TestType: "Complete Blood Count", ResultDate: date("2026-03-15")},
			ext:  "pdf",
			want: "Lab_Result_Jordan_Reyes_Complete_Blood_Count_2026-03-15_Item42.pdf",
		},
		{
			name: "punctuation collapsed",
			item: ResultItem{ID: 7, PatientName: "O'Brien, Pat", TestType: "HbA1c (glycated)", ResultDate: date("2026-01-02")},
			ext:  "csv",
			want: "Lab_Result_O_Brien_Pat_HbA1c_glycated_2026-01-02_Item7.csv",
		},
		{
			name: "empty patient name omitted",
			item: ResultItem{ID: 9, TestType: "Lipid Panel", ResultDate: date("2025-12-01")},
			ext:  "pdf",
			want: "Lab_Result_Lipid_Panel_2025-12-01_Item9.pdf",
		},
		{
			name: "test type sanitizes to nothing",
			item: ResultItem{ID: 3, PatientName: "Ana", TestType: "???", ResultDate: date("2026-02-20")},
			ext:  "bin",
			want: "Lab_Result_Ana_Result_2026-02-20_Item3.bin",
		},
		{
			name: "missing result date omitted",
			item: ResultItem{ID: 11, PatientName: "Ana", TestType: "TSH"},
			ext:  "pdf",
			want: "Lab_Result_Ana_TSH_Item11.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildFilename(&tt.item, tt.ext); got != tt.want {
				t.Errorf("buildFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}
