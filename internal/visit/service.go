package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"visitor-platform/internal/audit"
	"visitor-platform/internal/credential"
	"visitor-platform/internal/notify"
	"visitor-platform/internal/rbac"

	"github.com/google/uuid"
)

// Service is the visit state machine. It owns every legal transition:
//
//	submit    -> pending
//	approve   pending    -> approved   (credential issued, uses reset)
//	reject    pending    -> rejected   (terminal; no re-approval path)
//	checkIn   approved   -> checked-in (evidence attached, exit permission reset)
//	checkOut  checked-in -> checked-out (guarded for non-override roles)
//
// authorizeExit and recordJudicialResult mutate a visit without changing
// its status. Every successful mutation emits exactly one audit entry and
// one notification; a denied checkout emits a critical notification and
// no audit entry.
type Service struct {
	store  *Store
	issuer *credential.Issuer
	audit  *audit.Service
	notify *notify.Center
	clock  func() time.Time
}

func NewService(store *Store, issuer *credential.Issuer, auditSvc *audit.Service, center *notify.Center) *Service {
	return &Service{
		store:  store,
		issuer: issuer,
		audit:  auditSvc,
		notify: center,
		clock:  time.Now,
	}
}

var ErrIllegalTransition = errors.New("visit: illegal status transition")

// ValidationError carries field-level problems detected before any
// transition is attempted. It never reaches the store.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "visit: invalid fields: " + strings.Join(keys, ", ")
}

/* ===================== CREATION ===================== */

type SubmitRequest struct {
	VisitorName    string    `json:"visitor_name"`
	Company        string    `json:"company"`
	Email          string    `json:"email"`
	DocumentNumber string    `json:"document_number"`
	Phone          string    `json:"phone"`
	Residency      Residency `json:"residency"`
	Asset          *Asset    `json:"asset,omitempty"`
	VehiclePlate   string    `json:"vehicle_plate"`

	Date      string `json:"date"`
	Time      string `json:"time"`
	Motive    string `json:"motive"`
	VisitType string `json:"visit_type"`
	HostID    string `json:"host_id"`
	HostName  string `json:"host_name"`
	Area      string `json:"area"`
}

// Submit creates a pending visit from a public portal request.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Visit, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.VisitorName) == "" {
		fields["visitor_name"] = "required"
	}
	if strings.TrimSpace(req.Company) == "" {
		fields["company"] = "required"
	}
	if req.Date == "" {
		fields["date"] = "required"
	}
	if req.Time == "" {
		fields["time"] = "required"
	}
	if req.DocumentNumber != "" && !validDocumentNumber(req.DocumentNumber) {
		fields["document_number"] = "must be 6-13 digits"
	}
	if req.Phone != "" && !validPhone(req.Phone) {
		fields["phone"] = "malformed"
	}
	if len(fields) > 0 {
		return Visit{}, &ValidationError{Fields: fields}
	}

	residency := req.Residency
	if residency == "" {
		residency = ResidencyNational
	}

	v := Visit{
		ID:             uuid.NewString(),
		VisitorName:    strings.TrimSpace(req.VisitorName),
		Company:        strings.TrimSpace(req.Company),
		Email:          strings.TrimSpace(req.Email),
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		Phone:          strings.TrimSpace(req.Phone),
		Residency:      residency,
		Asset:          req.Asset,
		VehiclePlate:   strings.TrimSpace(req.VehiclePlate),
		Date:           req.Date,
		Time:           req.Time,
		Motive:         req.Motive,
		VisitType:      req.VisitType,
		HostID:         req.HostID,
		HostName:       req.HostName,
		Area:           req.Area,
		Status:         StatusPending,
		CreatedAt:      s.clock().UTC(),
	}
	if err := s.store.Insert(v); err != nil {
		return Visit{}, err
	}

	s.log(ctx, audit.CategoryRequest, fmt.Sprintf("Nueva solicitud de %s", v.VisitorName), "Sistema Público")
	s.notify.Info("Solicitud enviada con éxito.")
	return v, nil
}

type WalkInRequest struct {
	VisitorName    string `json:"visitor_name"`
	DocumentNumber string `json:"document_number"`
	Company        string `json:"company"`
	HostName       string `json:"host_name"`
}

// RegisterWalkIn creates a visit directly at the kiosk. Walk-ins skip the
// approval queue and start approved with a live credential, so the visitor
// can proceed straight into the evidence wizard.
func (s *Service) RegisterWalkIn(ctx context.Context, req WalkInRequest) (Visit, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.VisitorName) == "" {
		fields["visitor_name"] = "required"
	}
	if strings.TrimSpace(req.DocumentNumber) == "" {
		fields["document_number"] = "required"
	}
	if len(fields) > 0 {
		return Visit{}, &ValidationError{Fields: fields}
	}

	company := strings.TrimSpace(req.Company)
	if company == "" {
		company = "Particular"
	}
	host := strings.TrimSpace(req.HostName)
	if host == "" {
		host = "Recepción"
	}

	v := Visit{
		ID:             uuid.NewString(),
		VisitorName:    strings.TrimSpace(req.VisitorName),
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		Company:        company,
		HostName:       host,
		VisitType:      "Visitante",
		Status:         StatusApproved,
		CreatedAt:      s.clock().UTC(),
	}
	cred := s.issuer.Issue(v.ID)
	v.Credential = &cred

	if err := s.store.Insert(v); err != nil {
		return Visit{}, err
	}

	s.log(ctx, audit.CategoryRequest, fmt.Sprintf("Registro walk-in de %s", v.VisitorName), "Kiosko")
	s.notify.Info("Registro walk-in completado.")
	return v, nil
}

/* ===================== APPROVAL ===================== */

// Approve moves a pending visit to approved and issues its credential:
// fresh 6-digit code, fresh QR token, uses reset to 2.
func (s *Service) Approve(ctx context.Context, id, actor string) (Visit, error) {
	v, err := s.store.Get(id)
	if err != nil {
		return Visit{}, err
	}
	if v.Status != StatusPending {
		return Visit{}, ErrIllegalTransition
	}

	v.Status = StatusApproved
	cred := s.issuer.Issue(v.ID)
	v.Credential = &cred
	if err := s.store.Put(v); err != nil {
		return Visit{}, err
	}

	s.log(ctx, audit.CategoryStatusChange, fmt.Sprintf("Visita %s cambió a approved", v.ID), actor)
	s.notify.Info("Visita Aprobada")
	return v, nil
}

// Reject moves a pending visit to rejected. No credential is ever issued;
// rejected is terminal (there is no re-approval flow).
func (s *Service) Reject(ctx context.Context, id, actor string) (Visit, error) {
	v, err := s.store.Get(id)
	if err != nil {
		return Visit{}, err
	}
	if v.Status != StatusPending {
		return Visit{}, ErrIllegalTransition
	}

	v.Status = StatusRejected
	if err := s.store.Put(v); err != nil {
		return Visit{}, err
	}

	s.log(ctx, audit.CategoryStatusChange, fmt.Sprintf("Visita %s cambió a rejected", v.ID), actor)
	s.notify.Info("Visita Actualizada")
	return v, nil
}

/* ===================== ENTRY / EXIT ===================== */

// CheckIn moves an approved visit to checked-in, attaching the captured
// evidence. A document photo and signature are mandatory; the asset photo
// is required only when the visit declared an asset. Exit permission is
// always reset so every stay needs a fresh gatehouse authorization.
//
// Credential consumption is a separate step (ConsumeCredential); the
// kiosk invokes it after a successful check-in.
func (s *Service) CheckIn(ctx context.Context, id string, evidence EvidenceBundle) (Visit, error) {
	fields := map[string]string{}
	if evidence.DocPhoto == "" {
		fields["doc_photo"] = "required"
	}
	if evidence.Signature == "" {
		fields["signature"] = "required"
	}
	if len(fields) > 0 {
		return Visit{}, &ValidationError{Fields: fields}
	}

	v, err := s.store.Get(id)
	if err != nil {
		return Visit{}, err
	}
	if v.Status != StatusApproved {
		return Visit{}, ErrIllegalTransition
	}
	if v.HasAssets() && evidence.AssetPhoto == "" {
		return Visit{}, &ValidationError{Fields: map[string]string{"asset_photo": "required for declared assets"}}
	}

	now := s.clock().UTC()
	v.Status = StatusCheckedIn
	v.Evidence = &evidence
	v.ExitPermission = false
	v.ExitAuthorizedBy = ""
	v.ExitAuthorizedAt = nil
	v.CheckInAt = &now
	if err := s.store.Put(v); err != nil {
		return Visit{}, err
	}

	s.log(ctx, audit.CategoryCheckIn, fmt.Sprintf("Ingreso confirmado ID %s con evidencias", v.ID), "Kiosko")
	s.notify.Info("Check-in exitoso. Bienvenido.")
	return v, nil
}

// ConsumeCredential spends one credential use after a successful
// check-in. Floored at zero.
func (s *Service) ConsumeCredential(ctx context.Context, id string) (Visit, error) {
	v, err := s.store.Get(id)
	if err != nil {
		return Visit{}, err
	}
	if v.Credential == nil {
		return v, nil
	}
	c := credential.Consume(*v.Credential)
	v.Credential = &c
	if err := s.store.Put(v); err != nil {
		return Visit{}, err
	}
	return v, nil
}

// AuthorizeExit is the gatehouse validation step: assets and badge are
// physically checked, then the exit permission opens. The visit stays
// checked-in; this is a gating action, not a status transition.
func (s *Service) AuthorizeExit(ctx context.Context, id, guardName string) (Visit, error) {
	v, err := s.store.Get(id)
	if err != nil {
		return Visit{}, err
	}
	if v.Status != StatusCheckedIn {
		return Visit{}, ErrIllegalTransition
	}

	now := s.clock().UTC()
	v.ExitPermission = true
	v.ExitAuthorizedBy = guardName
	v.ExitAuthorizedAt = &now
	if err := s.store.Put(v); err != nil {
		return Visit{}, err
	}

	s.log(ctx, audit.CategoryAssetValidation, fmt.Sprintf("Salida autorizada para %s", v.ID), guardName)
	s.notify.Info("Salida autorizada por Portería.")
	return v, nil
}

// CheckoutDecision is the result of a checkout attempt. A denial is an
// expected business outcome, not an error: the store is untouched and the
// caller branches on Allowed.
type CheckoutDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Visit   Visit  `json:"visit"`
}

// CheckOut moves a checked-in visit to checked-out. Roles without the
// exit-guard override (kiosk) are denied while exit permission is closed;
// any privileged role may force the exit.
func (s *Service) CheckOut(ctx context.Context, id, actorRole string) (CheckoutDecision, error) {
	v, err := s.store.Get(id)
	if err != nil {
		return CheckoutDecision{}, err
	}
	if v.Status != StatusCheckedIn {
		return CheckoutDecision{}, ErrIllegalTransition
	}

	if !rbac.CanOverrideExitGuard(actorRole) && !v.ExitPermission {
		s.notify.Crit("SALIDA DENEGADA: Portería debe validar activos y escarapela primero.")
		return CheckoutDecision{Allowed: false, Reason: "exit permission required", Visit: v}, nil
	}

	now := s.clock().UTC()
	v.Status = StatusCheckedOut
	v.CheckOutAt = &now
	if err := s.store.Put(v); err != nil {
		return CheckoutDecision{}, err
	}

	s.log(ctx, audit.CategoryCheckOut, fmt.Sprintf("Salida registrada para ID %s", v.ID), actorRole)
	s.notify.Info("Salida registrada. Hasta pronto.")
	return CheckoutDecision{Allowed: true, Visit: v}, nil
}

/* ===================== SECURITY REVIEW ===================== */

// RecordJudicialResult attaches a background-check outcome. It never
// changes the visit status and may run at any point of the lifecycle.
func (s *Service) RecordJudicialResult(ctx context.Context, id, result, observation string) (Visit, error) {
	if strings.TrimSpace(result) == "" {
		return Visit{}, &ValidationError{Fields: map[string]string{"result": "required"}}
	}

	v, err := s.store.Get(id)
	if err != nil {
		return Visit{}, err
	}

	v.Judicial = &JudicialCheck{
		Result:      result,
		Observation: observation,
		At:          s.clock().UTC(),
	}
	if err := s.store.Put(v); err != nil {
		return Visit{}, err
	}

	s.log(ctx, audit.CategoryJudicialCheck, fmt.Sprintf("Visita %s: %s", v.ID, result), "Seguridad")
	s.notify.Info(fmt.Sprintf("Verificación judicial: %s", result))
	return v, nil
}

/* ===================== CREDENTIAL SWEEP ===================== */

// RotateCredentials refreshes the validation code of every approved visit
// that still has uses remaining. Exhausted credentials are skipped and
// their codes go stale. Returns the number of rotated visits.
//
// The sweep is idempotent per visit and carries no backlog: a missed tick
// simply means the next one rotates from current time.
func (s *Service) RotateCredentials(now time.Time) int {
	rotated := 0
	for _, v := range s.store.List() {
		if v.Status != StatusApproved || v.Credential == nil || v.Credential.Exhausted() {
			continue
		}
		c := s.issuer.Refresh(*v.Credential)
		v.Credential = &c
		if err := s.store.Put(v); err == nil {
			rotated++
		}
	}
	return rotated
}

/* ===================== LOOKUPS ===================== */

// LookupByCode resolves a live validation code to its approved visit,
// distinguishing wrong, expired and exhausted codes so the portal can
// show the right message.
func (s *Service) LookupByCode(code string) (Visit, error) {
	now := s.clock()
	var lastErr error = credential.ErrCodeNotFound
	for _, v := range s.store.List() {
		if v.Status != StatusApproved || v.Credential == nil {
			continue
		}
		err := credential.Check(*v.Credential, code, now)
		if err == nil {
			return v, nil
		}
		// Keep the most specific reason: a matching code that is stale
		// or spent beats "not found".
		if !errors.Is(err, credential.ErrCodeNotFound) {
			lastErr = err
		}
	}
	return Visit{}, lastErr
}

// LookupByQR resolves a scanned QR token to its visit.
func (s *Service) LookupByQR(token string) (Visit, error) {
	for _, v := range s.store.List() {
		if v.Credential != nil && v.Credential.QRToken == token {
			return v, nil
		}
	}
	return Visit{}, ErrNotFound
}

// Get returns a read-only copy of a visit (export boundary).
func (s *Service) Get(id string) (Visit, error) {
	return s.store.Get(id)
}

/* ===================== HELPERS ===================== */

func (s *Service) log(ctx context.Context, category audit.Category, detail, actor string) {
	// Audit is best-effort; a failed append must not undo the mutation.
	_ = s.audit.Log(ctx, category, detail, actor)
}

func validDocumentNumber(doc string) bool {
	if len(doc) < 6 || len(doc) > 13 {
		return false
	}
	for _, r := range doc {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validPhone(p string) bool {
	digits := 0
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}
