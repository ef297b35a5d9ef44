package report

import (
	"errors"
	"testing"
	"time"

	"visitor-platform/internal/credential"
	"visitor-platform/internal/visit"
)

type staticSource []visit.Visit

func (s staticSource) All() []visit.Visit { return s }

func (s staticSource) Get(id string) (visit.Visit, error) {
	for _, v := range s {
		if v.ID == id {
			return v, nil
		}
	}
	return visit.Visit{}, visit.ErrNotFound
}

func TestSummary_CountsByStatusAndCompliance(t *testing.T) {
	src := staticSource{
		{ID: "v1", Status: visit.StatusPending, DocumentNumber: "0912345678", Date: "2020-01-01"},
		{ID: "v2", Status: visit.StatusApproved, DocumentNumber: "0987654321",
			Credential: &credential.Credential{Code: "123456", UsesRemaining: 0}},
		{ID: "v3", Status: visit.StatusCheckedIn},
		{ID: "v4", Status: visit.StatusCheckedOut, DocumentNumber: "0911111111"},
		{ID: "v5", Status: visit.StatusRejected},
	}
	svc := NewService(src)
	svc.clock = func() time.Time { return time.Date(2025, 11, 26, 12, 0, 0, 0, time.UTC) }

	got := svc.Summary()
	if got.Total != 5 || got.Pending != 1 || got.Approved != 1 || got.OnSite != 1 || got.CheckedOut != 1 || got.Rejected != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.ExhaustedCredentials != 1 {
		t.Fatalf("expected 1 exhausted credential, got %d", got.ExhaustedCredentials)
	}
	if got.OverduePending != 1 {
		t.Fatalf("expected 1 overdue pending, got %d", got.OverduePending)
	}
	if got.DocumentComplianceRatio != 0.6 {
		t.Fatalf("expected 0.6 compliance, got %v", got.DocumentComplianceRatio)
	}
}

func TestSummary_EmptyStore(t *testing.T) {
	svc := NewService(staticSource{})
	got := svc.Summary()
	if got.Total != 0 || got.DocumentComplianceRatio != 0 {
		t.Fatalf("unexpected summary for empty store: %+v", got)
	}
}

func TestExport_ReturnsRecordWithEvidence(t *testing.T) {
	src := staticSource{
		{ID: "v1", Status: visit.StatusCheckedIn, Evidence: &visit.EvidenceBundle{DocPhoto: "d", Signature: "s"}},
	}
	svc := NewService(src)

	out, err := svc.Export("v1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.Visit.ID != "v1" || out.Evidence == nil || out.Evidence.DocPhoto != "d" {
		t.Fatalf("unexpected export: %+v", out)
	}

	if _, err := svc.Export(""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.Export("ghost"); !errors.Is(err, visit.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
