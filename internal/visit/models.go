package visit

import (
	"time"

	"visitor-platform/internal/credential"
)

// Status is the sole driver of which operations are legal on a visit.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusCheckedIn  Status = "checked-in"
	StatusCheckedOut Status = "checked-out"
)

// Residency classification of the visitor's identity document.
type Residency string

const (
	ResidencyNational Residency = "national"
	ResidencyForeign  Residency = "foreign"
)

// Asset is a device the visitor declares on entry (laptop, tooling, ...).
type Asset struct {
	Brand      string `json:"brand"`
	Serial     string `json:"serial"`
	DeviceType string `json:"device_type,omitempty"`
}

// EvidenceBundle carries the images captured at check-in. The values are
// opaque to this service (base64 data URLs from the capture collaborator);
// they are stored and exported, never decoded.
type EvidenceBundle struct {
	DocPhoto   string `json:"doc_photo,omitempty"`
	AssetPhoto string `json:"asset_photo,omitempty"`
	Signature  string `json:"signature,omitempty"`
}

// JudicialCheck is the outcome of a background review performed by
// security, independent of the approve/reject decision.
type JudicialCheck struct {
	Result      string    `json:"result"`
	Observation string    `json:"observation,omitempty"`
	At          time.Time `json:"at"`
}

// Visit is the central entity. Records are replaced whole on every
// mutation (see Store); no caller ever mutates a stored record in place.
type Visit struct {
	ID string `json:"id"`

	// Visitor identity.
	VisitorName    string    `json:"visitor_name"`
	Company        string    `json:"company"`
	Email          string    `json:"email,omitempty"`
	DocumentNumber string    `json:"document_number,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Residency      Residency `json:"residency,omitempty"`
	Asset          *Asset    `json:"asset,omitempty"`
	VehiclePlate   string    `json:"vehicle_plate,omitempty"`

	// Scheduling. Date and Time are the values the visitor requested on
	// the form ("2025-11-26", "10:00"); they are input data, not recorded
	// instants.
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Motive    string `json:"motive,omitempty"`
	VisitType string `json:"visit_type,omitempty"`
	HostID    string `json:"host_id,omitempty"`
	HostName  string `json:"host_name,omitempty"`
	Area      string `json:"area,omitempty"`

	Status Status `json:"status"`

	// Credential is present iff the visit has ever been approved.
	Credential *credential.Credential `json:"credential,omitempty"`

	// Evidence is attached at check-in.
	Evidence *EvidenceBundle `json:"evidence,omitempty"`

	// ExitPermission gates checkout for roles without override. It is
	// reset to false on every check-in and set only by an explicit
	// gatehouse authorization.
	ExitPermission   bool       `json:"exit_permission"`
	ExitAuthorizedBy string     `json:"exit_authorized_by,omitempty"`
	ExitAuthorizedAt *time.Time `json:"exit_authorized_at,omitempty"`

	Judicial *JudicialCheck `json:"judicial,omitempty"`

	// Canonical instants; presentation formats them at the boundary.
	CheckInAt  *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// HasAssets reports whether the visitor declared an asset.
func (v Visit) HasAssets() bool {
	return v.Asset != nil && v.Asset.Brand != ""
}

// clone deep-copies a visit so stored records never share pointers with
// records handed to callers.
func (v Visit) clone() Visit {
	out := v
	if v.Asset != nil {
		a := *v.Asset
		out.Asset = &a
	}
	if v.Credential != nil {
		c := *v.Credential
		out.Credential = &c
	}
	if v.Evidence != nil {
		e := *v.Evidence
		out.Evidence = &e
	}
	if v.Judicial != nil {
		j := *v.Judicial
		out.Judicial = &j
	}
	if v.ExitAuthorizedAt != nil {
		t := *v.ExitAuthorizedAt
		out.ExitAuthorizedAt = &t
	}
	if v.CheckInAt != nil {
		t := *v.CheckInAt
		out.CheckInAt = &t
	}
	if v.CheckOutAt != nil {
		t := *v.CheckOutAt
		out.CheckOutAt = &t
	}
	return out
}
