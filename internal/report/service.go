package report

import (
	"errors"
	"time"

	"visitor-platform/internal/visit"
)

// VisitSource supplies the records reporting aggregates over.
// Implemented by visit.Service; reads only, never mutates.
type VisitSource interface {
	All() []visit.Visit
	Get(id string) (visit.Visit, error)
}

// Service computes dashboard aggregates and the export view. Everything
// here is a pure function of current store state.
type Service struct {
	visits VisitSource
	clock  func() time.Time
}

func NewService(visits VisitSource) *Service {
	return &Service{visits: visits, clock: time.Now}
}

var ErrInvalidRequest = errors.New("report: invalid request")

// Summary is the admin dashboard headline block.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	OnSite     int `json:"on_site"`
	CheckedOut int `json:"checked_out"`

	// ExhaustedCredentials counts visits whose both code uses are spent.
	ExhaustedCredentials int `json:"exhausted_credentials"`

	// OverduePending counts pending requests whose date is already past.
	OverduePending int `json:"overdue_pending"`

	// DocumentComplianceRatio is the fraction of visits carrying an
	// identity document number.
	DocumentComplianceRatio float64 `json:"document_compliance_ratio"`
}

func (s *Service) Summary() Summary {
	rows := s.visits.All()
	now := s.clock()

	out := Summary{Total: len(rows)}
	withDocument := 0
	for _, v := range rows {
		switch v.Status {
		case visit.StatusPending:
			out.Pending++
		case visit.StatusApproved:
			out.Approved++
		case visit.StatusRejected:
			out.Rejected++
		case visit.StatusCheckedIn:
			out.OnSite++
		case visit.StatusCheckedOut:
			out.CheckedOut++
		}
		if v.Credential != nil && v.Credential.Exhausted() {
			out.ExhaustedCredentials++
		}
		if v.DocumentNumber != "" {
			withDocument++
		}
		if v.Status == visit.StatusPending && overdue(v.Date, now) {
			out.OverduePending++
		}
	}
	if out.Total > 0 {
		out.DocumentComplianceRatio = float64(withDocument) / float64(out.Total)
	}
	return out
}

// Export is the read-only record handed to the PDF/CSV collaborator:
// the full visit plus its evidence bundle. Formatting is entirely the
// collaborator's concern.
type Export struct {
	Visit    visit.Visit           `json:"visit"`
	Evidence *visit.EvidenceBundle `json:"evidence,omitempty"`
}

func (s *Service) Export(id string) (Export, error) {
	if id == "" {
		return Export{}, ErrInvalidRequest
	}
	v, err := s.visits.Get(id)
	if err != nil {
		return Export{}, err
	}
	return Export{Visit: v, Evidence: v.Evidence}, nil
}

func overdue(date string, now time.Time) bool {
	if date == "" {
		return false
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	// overdue once the requested day has fully passed
	return now.After(d.AddDate(0, 0, 1))
}
