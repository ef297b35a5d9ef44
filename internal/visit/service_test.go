package visit

import (
	"context"
	"errors"
	"testing"
	"time"

	"visitor-platform/internal/audit"
	"visitor-platform/internal/credential"
	"visitor-platform/internal/notify"
	"visitor-platform/internal/rbac"
)

func newTestService(t *testing.T) (*Service, *audit.MemoryRepo, *notify.Center) {
	t.Helper()
	repo := audit.NewMemoryRepo()
	center := notify.NewCenter(time.Minute)
	svc := NewService(NewStore(), credential.NewIssuer(30*time.Second), audit.NewService(repo), center)
	return svc, repo, center
}

func submitVisit(t *testing.T, svc *Service, name string) Visit {
	t.Helper()
	v, err := svc.Submit(context.Background(), SubmitRequest{
		VisitorName: name,
		Company:     "Tech Solutions",
		Date:        "2025-11-26",
		Time:        "10:00",
		HostID:      "h1",
		HostName:    "Ana López",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return v
}

func TestSubmit_CreatesPendingVisit(t *testing.T) {
	svc, repo, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	if v.Status != StatusPending {
		t.Fatalf("expected pending, got %s", v.Status)
	}
	if v.Credential != nil {
		t.Fatalf("pending visit must not carry a credential")
	}

	entries, _ := repo.List(context.Background(), 0)
	if len(entries) != 1 || entries[0].Category != audit.CategoryRequest {
		t.Fatalf("expected one Solicitud entry, got %+v", entries)
	}
}

func TestSubmit_RejectsMissingFields(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), SubmitRequest{Company: "ACME"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["visitor_name"]; !ok {
		t.Fatalf("expected visitor_name field error")
	}

	_, err = svc.Submit(context.Background(), SubmitRequest{
		VisitorName:    "X",
		Company:        "ACME",
		Date:           "2025-11-26",
		Time:           "09:00",
		DocumentNumber: "12AB",
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for malformed document, got %v", err)
	}

	// validation failures never reach the store or the log
	if svc.store.Len() != 0 {
		t.Fatalf("store must stay empty")
	}
	if entries, _ := repo.List(context.Background(), 0); len(entries) != 0 {
		t.Fatalf("log must stay empty")
	}
}

func TestApprove_IssuesCredential(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	approved, err := svc.Approve(context.Background(), v.ID, "Ana")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("expected approved")
	}
	c := approved.Credential
	if c == nil {
		t.Fatalf("expected credential on approval")
	}
	if len(c.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", c.Code)
	}
	if c.UsesRemaining != 2 {
		t.Fatalf("expected 2 uses, got %d", c.UsesRemaining)
	}
	if !c.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry")
	}
	if c.QRToken == "" {
		t.Fatalf("expected qr token")
	}

	// approve is only legal from pending
	if _, err := svc.Approve(context.Background(), v.ID, "Ana"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestReject_IsTerminalAndNeverIssuesCredential(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	rejected, err := svc.Reject(context.Background(), v.ID, "Ana")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("expected rejected")
	}
	if rejected.Credential != nil {
		t.Fatalf("rejected visit must never carry a credential")
	}
	if _, err := svc.Approve(context.Background(), v.ID, "Ana"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected no re-approval path, got %v", err)
	}
}

func TestScenarioA_ConsumeTwiceThenRotateLeavesCodeAlone(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	approved, err := svc.Approve(context.Background(), v.ID, "Ana")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	after, _ := svc.ConsumeCredential(context.Background(), v.ID)
	if after.Credential.UsesRemaining != 1 {
		t.Fatalf("expected 1 use, got %d", after.Credential.UsesRemaining)
	}
	after, _ = svc.ConsumeCredential(context.Background(), v.ID)
	if after.Credential.UsesRemaining != 0 {
		t.Fatalf("expected 0 uses, got %d", after.Credential.UsesRemaining)
	}
	// floored at zero
	after, _ = svc.ConsumeCredential(context.Background(), v.ID)
	if after.Credential.UsesRemaining != 0 {
		t.Fatalf("uses must never go negative")
	}

	exhaustedCode := after.Credential.Code
	exhaustedExpiry := after.Credential.ExpiresAt

	if n := svc.RotateCredentials(time.Now()); n != 0 {
		t.Fatalf("expected no rotations, got %d", n)
	}
	got, _ := svc.Get(v.ID)
	if got.Credential.Code != exhaustedCode || !got.Credential.ExpiresAt.Equal(exhaustedExpiry) {
		t.Fatalf("rotation must skip exhausted credentials")
	}
	_ = approved
}

func TestRotate_RefreshesActiveCodesOnly(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	approved, _ := svc.Approve(context.Background(), v.ID, "Ana")
	before := *approved.Credential

	// retry in the unlikely event the fresh random code repeats
	rotatedCode := before.Code
	for i := 0; i < 5 && rotatedCode == before.Code; i++ {
		if n := svc.RotateCredentials(time.Now()); n != 1 {
			t.Fatalf("expected 1 rotation, got %d", n)
		}
		got, _ := svc.Get(v.ID)
		rotatedCode = got.Credential.Code
	}
	got, _ := svc.Get(v.ID)
	if got.Credential.QRToken != before.QRToken {
		t.Fatalf("rotation must not touch the qr token")
	}
	if got.Credential.UsesRemaining != before.UsesRemaining {
		t.Fatalf("rotation must not touch uses")
	}
	if rotatedCode == before.Code {
		t.Fatalf("code did not rotate")
	}
}

func checkInVisit(t *testing.T, svc *Service, id string) Visit {
	t.Helper()
	v, err := svc.CheckIn(context.Background(), id, EvidenceBundle{
		DocPhoto:  "data:image/jpeg;base64,doc",
		Signature: "data:image/png;base64,sig",
	})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	return v
}

func TestCheckIn_AttachesEvidenceAndResetsExitPermission(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	if _, err := svc.CheckIn(context.Background(), v.ID, EvidenceBundle{DocPhoto: "d", Signature: "s"}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("check-in from pending must fail, got %v", err)
	}

	approved, _ := svc.Approve(context.Background(), v.ID, "Ana")

	// even a stale exit permission is cleared on entry
	approved.ExitPermission = true
	if err := svc.store.Put(approved); err != nil {
		t.Fatalf("put: %v", err)
	}

	in := checkInVisit(t, svc, v.ID)
	if in.Status != StatusCheckedIn {
		t.Fatalf("expected checked-in")
	}
	if in.ExitPermission {
		t.Fatalf("exit permission must be false after check-in")
	}
	if in.Evidence == nil || in.Evidence.DocPhoto == "" || in.Evidence.Signature == "" {
		t.Fatalf("expected evidence attached")
	}
	if in.CheckInAt == nil {
		t.Fatalf("expected check-in instant recorded")
	}
}

func TestCheckIn_RequiresDocumentPhotoAndSignature(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	_, _ = svc.Approve(context.Background(), v.ID, "Ana")

	_, err := svc.CheckIn(context.Background(), v.ID, EvidenceBundle{DocPhoto: "d"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	got, _ := svc.Get(v.ID)
	if got.Status != StatusApproved {
		t.Fatalf("failed check-in must not change status")
	}
}

func TestScenarioB_CheckoutGuard(t *testing.T) {
	svc, repo, center := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	_, _ = svc.Approve(context.Background(), v.ID, "Ana")
	checkInVisit(t, svc, v.ID)

	// kiosk is denied while exit permission is closed
	d, err := svc.CheckOut(context.Background(), v.ID, rbac.RoleKiosk)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if d.Allowed {
		t.Fatalf("expected denial")
	}
	got, _ := svc.Get(v.ID)
	if got.Status != StatusCheckedIn {
		t.Fatalf("denied checkout must not change status")
	}

	// denial surfaces as a critical notification, never a success log
	crit := false
	for _, n := range center.List() {
		if n.Severity == notify.SeverityCrit {
			crit = true
		}
	}
	if !crit {
		t.Fatalf("expected critical notification on denial")
	}
	entries, _ := repo.List(context.Background(), 0)
	for _, e := range entries {
		if e.Category == audit.CategoryCheckOut {
			t.Fatalf("denied checkout must not log a check-out entry")
		}
	}

	// gatehouse authorizes, then the kiosk succeeds
	authorized, err := svc.AuthorizeExit(context.Background(), v.ID, "Guardia Pérez")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !authorized.ExitPermission || authorized.ExitAuthorizedBy != "Guardia Pérez" {
		t.Fatalf("expected exit permission open")
	}

	d, err = svc.CheckOut(context.Background(), v.ID, rbac.RoleKiosk)
	if err != nil || !d.Allowed {
		t.Fatalf("expected allowed checkout, got %+v err=%v", d, err)
	}
	if d.Visit.Status != StatusCheckedOut || d.Visit.CheckOutAt == nil {
		t.Fatalf("expected checked-out with exit instant")
	}
}

func TestScenarioC_PrivilegedRoleOverridesGuard(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	_, _ = svc.Approve(context.Background(), v.ID, "Ana")
	checkInVisit(t, svc, v.ID)

	d, err := svc.CheckOut(context.Background(), v.ID, rbac.RoleAdmin)
	if err != nil || !d.Allowed {
		t.Fatalf("admin must override the exit guard, got %+v err=%v", d, err)
	}

	// checkout is terminal
	if _, err := svc.CheckOut(context.Background(), v.ID, rbac.RoleAdmin); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition after checkout, got %v", err)
	}
}

func TestLookupByCode_DistinguishesOutcomes(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	approved, _ := svc.Approve(context.Background(), v.ID, "Ana")

	found, err := svc.LookupByCode(approved.Credential.Code)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != v.ID {
		t.Fatalf("wrong visit resolved")
	}

	if _, err := svc.LookupByCode("000000"); !errors.Is(err, credential.ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// expired code
	stale, _ := svc.Get(v.ID)
	stale.Credential.ExpiresAt = time.Now().Add(-time.Second)
	_ = svc.store.Put(stale)
	if _, err := svc.LookupByCode(stale.Credential.Code); !errors.Is(err, credential.ErrCodeExpired) {
		t.Fatalf("expected expired, got %v", err)
	}

	// Scenario E: exhausted wins over not-found
	_, _ = svc.ConsumeCredential(context.Background(), v.ID)
	_, _ = svc.ConsumeCredential(context.Background(), v.ID)
	spent, _ := svc.Get(v.ID)
	if _, err := svc.LookupByCode(spent.Credential.Code); !errors.Is(err, credential.ErrCodeExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
}

func TestRegisterWalkIn_StartsApprovedWithCredential(t *testing.T) {
	svc, _, _ := newTestService(t)

	v, err := svc.RegisterWalkIn(context.Background(), WalkInRequest{
		VisitorName:    "María Gomez",
		DocumentNumber: "0987654321",
	})
	if err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if v.Status != StatusApproved {
		t.Fatalf("walk-in must start approved")
	}
	if v.Credential == nil || v.Credential.UsesRemaining != 2 {
		t.Fatalf("walk-in must carry a fresh credential")
	}
	if v.Company != "Particular" || v.HostName != "Recepción" {
		t.Fatalf("expected defaults for omitted fields, got %q / %q", v.Company, v.HostName)
	}

	if _, err := svc.RegisterWalkIn(context.Background(), WalkInRequest{VisitorName: "X"}); err == nil {
		t.Fatalf("expected validation error without document")
	}
}

func TestRecordJudicialResult_LeavesStatusUntouched(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	_, _ = svc.Approve(context.Background(), v.ID, "Ana")
	checkInVisit(t, svc, v.ID)

	got, err := svc.RecordJudicialResult(context.Background(), v.ID, "sin antecedentes", "ok")
	if err != nil {
		t.Fatalf("judicial: %v", err)
	}
	if got.Status != StatusCheckedIn {
		t.Fatalf("judicial result must not change status")
	}
	if got.Judicial == nil || got.Judicial.Result != "sin antecedentes" || got.Judicial.At.IsZero() {
		t.Fatalf("expected judicial result attached")
	}
}

func TestLookupByQR_ResolvesToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	v := submitVisit(t, svc, "Juan Pérez")
	approved, _ := svc.Approve(context.Background(), v.ID, "Ana")

	found, err := svc.LookupByQR(approved.Credential.QRToken)
	if err != nil || found.ID != v.ID {
		t.Fatalf("expected qr resolution, got %v", err)
	}
	if _, err := svc.LookupByQR("QR-nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
