package workspace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/contract"
	"github.com/Brano80/eGarant/directory"
)

type fakeMandates struct {
	byUser map[string][]directory.MandateWithCompany
}

func (f *fakeMandates) ActiveMandatesForUser(ctx context.Context, userID string) ([]directory.MandateWithCompany, error) {
	return f.byUser[userID], nil
}

func (f *fakeMandates) MandateByID(ctx context.Context, id string) (directory.Mandate, error) {
	for _, mandates := range f.byUser {
		for _, mc := range mandates {
			if mc.ID == id {
				return mc.Mandate, nil
			}
		}
	}
	return directory.Mandate{}, directory.ErrMandateNotFound
}

type fakeResolver struct {
	byMail map[string]string
}

func (f *fakeResolver) UserIDByEmail(ctx context.Context, email string) (string, error) {
	id, ok := f.byMail[email]
	if !ok {
		return "", errors.New("no such user")
	}
	return id, nil
}

func (f *fakeResolver) UserNameByID(ctx context.Context, userID string) (string, string, error) {
	for email, id := range f.byMail {
		if id == userID {
			return "User " + userID, email, nil
		}
	}
	return "", "", errors.New("no such user")
}

type engineFixture struct {
	svc       *Service
	store     *MemoryStore
	mandates  *fakeMandates
	contracts *contract.Service
}

func newEngine(t *testing.T) *engineFixture {
	t.Helper()
	store := NewMemoryStore()
	mandates := &fakeMandates{byUser: map[string][]directory.MandateWithCompany{}}
	resolver := &fakeResolver{byMail: map[string]string{
		"alice@example.sk": "u-alice",
		"bob@example.sk":   "u-bob",
		"carol@example.sk": "u-carol",
	}}
	contracts := contract.NewService(contract.NewMemoryRepository())
	svc := NewService(store, mandates, resolver, contracts, audit.NewService(audit.NewMemoryStore()))
	return &engineFixture{svc: svc, store: store, mandates: mandates, contracts: contracts}
}

func activeMandate(id, role, companyCode string) directory.MandateWithCompany {
	return directory.MandateWithCompany{
		Mandate: directory.Mandate{ID: id, Role: role, Status: directory.MandateActive},
		Company: directory.Company{RegistryCode: companyCode},
	}
}

// Full happy path: one document, the open creator plus a gated invitee whose
// mandate satisfies the constraint. Both sign, the cascade completes the
// document and the workspace and records one attestation per signer.
func TestSigningCascadeWithGatedParticipant(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.mandates.byUser["u-carol"] = []directory.MandateWithCompany{
		activeMandate("m-dir", "Director", "X"),
	}

	w, err := f.svc.Create(ctx, "u-alice", "", "", "Predaj nehnuteľnosti")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Kúpna zmluva", "contract")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	invited, err := f.svc.Invite(ctx, "u-alice", w.ID, "carol@example.sk", "Director", "X")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	accepted, err := f.svc.Respond(ctx, "u-carol", invited.ID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != ParticipantAccepted || accepted.BoundMandateID != "m-dir" {
		t.Fatalf("accepted = %+v", accepted)
	}

	sigs, err := f.store.SignaturesByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("signatures: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("signatures = %d, want 2 (creator + gated invitee)", len(sigs))
	}
	for _, sig := range sigs {
		if sig.Status != SignaturePending {
			t.Errorf("signature %s status = %s, want PENDING", sig.ID, sig.Status)
		}
	}

	first, err := f.svc.Sign(ctx, "u-alice", doc.ID, "")
	if err != nil {
		t.Fatalf("first sign: %v", err)
	}
	if first.DocumentCompleted {
		t.Error("document must not complete after one of two signatures")
	}

	second, err := f.svc.Sign(ctx, "u-carol", doc.ID, "súhlasím")
	if err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if !second.DocumentCompleted || !second.WorkspaceCompleted {
		t.Errorf("outcome = %+v, want document and workspace completed", second)
	}
	if second.Signature.MandateID != "m-dir" {
		t.Errorf("signed mandate = %q, want m-dir", second.Signature.MandateID)
	}

	got, err := f.store.GetWorkspace(ctx, w.ID)
	if err != nil {
		t.Fatalf("get workspace: %v", err)
	}
	if got.Status != WorkspaceCompleted {
		t.Errorf("workspace status = %s", got.Status)
	}

	for _, userID := range []string{"u-alice", "u-carol"} {
		atts, err := f.svc.ListAttestations(ctx, userID)
		if err != nil {
			t.Fatalf("attestations %s: %v", userID, err)
		}
		if len(atts) != 1 || atts[0].DocumentTitle != "Kúpna zmluva" {
			t.Errorf("attestations for %s = %+v, want one with the document title", userID, atts)
		}
		if len(atts) == 1 && !strings.HasPrefix(atts[0].ID, "attest_") {
			t.Errorf("attestation id = %q, want attest_ prefix", atts[0].ID)
		}
	}
}

// A gated invitee with no matching mandate is denied with the unmet
// constraint, stays INVITED and gets no signatures.
func TestGatedAcceptDeniedWithoutMandate(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, err := f.svc.Create(ctx, "u-alice", "", "", "Predaj auta")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Zmluva", "contract")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	invited, err := f.svc.Invite(ctx, "u-alice", w.ID, "carol@example.sk", "Director", "X")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	_, err = f.svc.Respond(ctx, "u-carol", invited.ID, true)
	var denied *MandateDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want MandateDeniedError", err)
	}
	if denied.RequiredRole != "Director" || denied.RequiredCompanyCode != "X" {
		t.Errorf("denial = %+v", denied)
	}

	p, err := f.store.GetParticipant(ctx, invited.ID)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.Status != ParticipantInvited {
		t.Errorf("participant status = %s, want INVITED", p.Status)
	}

	sigs, err := f.store.SignaturesByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("signatures: %v", err)
	}
	if len(sigs) != 1 {
		t.Errorf("signatures = %d, want only the creator's", len(sigs))
	}
}

func TestInvitationIsMonotonic(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Workspace")
	invited, err := f.svc.Invite(ctx, "u-alice", w.ID, "bob@example.sk", "", "")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	// Only the invitee may answer.
	if _, err := f.svc.Respond(ctx, "u-carol", invited.ID, true); !errors.Is(err, ErrNotInvitee) {
		t.Errorf("foreign respond err = %v, want ErrNotInvitee", err)
	}

	if _, err := f.svc.Respond(ctx, "u-bob", invited.ID, false); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Respond(ctx, "u-bob", invited.ID, true); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("second respond err = %v, want ErrAlreadyResponded", err)
	}

	p, _ := f.store.GetParticipant(ctx, invited.ID)
	if p.Status != ParticipantRejected {
		t.Errorf("status = %s, want REJECTED", p.Status)
	}
}

func TestDoubleSignDenied(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Workspace")
	doc, _ := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Zmluva", "contract")

	if _, err := f.svc.Sign(ctx, "u-alice", doc.ID, ""); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.svc.Sign(ctx, "u-alice", doc.ID, ""); !errors.Is(err, ErrAlreadySigned) {
		t.Errorf("re-sign err = %v, want ErrAlreadySigned", err)
	}

	atts, _ := f.svc.ListAttestations(ctx, "u-alice")
	if len(atts) != 1 {
		t.Errorf("attestations = %d, want exactly 1", len(atts))
	}
}

func TestSignRequiresAcceptedParticipant(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Workspace")
	doc, _ := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Zmluva", "contract")
	if _, err := f.svc.Invite(ctx, "u-alice", w.ID, "bob@example.sk", "", ""); err != nil {
		t.Fatalf("invite: %v", err)
	}

	if _, err := f.svc.Sign(ctx, "u-carol", doc.ID, ""); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider sign err = %v, want ErrNotParticipant", err)
	}
	if _, err := f.svc.Sign(ctx, "u-bob", doc.ID, ""); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("invited sign err = %v, want ErrNotAccepted", err)
	}
}

// Attaching a document to a completed workspace backfills signatures for the
// accepted participants and reopens the workspace.
func TestAttachDocumentBackfillsAndReopens(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Workspace")
	doc, _ := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Prvá zmluva", "contract")
	outcome, err := f.svc.Sign(ctx, "u-alice", doc.ID, "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !outcome.WorkspaceCompleted {
		t.Fatal("single-signer workspace should complete")
	}

	second, err := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Dodatok", "amendment")
	if err != nil {
		t.Fatalf("attach second: %v", err)
	}
	got, _ := f.store.GetWorkspace(ctx, w.ID)
	if got.Status != WorkspaceActive {
		t.Errorf("workspace status = %s, want active after new document", got.Status)
	}

	sigs, _ := f.store.SignaturesByDocument(ctx, second.ID)
	if len(sigs) != 1 || sigs[0].Status != SignaturePending {
		t.Errorf("backfilled signatures = %+v", sigs)
	}
}

// Documents across two workspaces reference one contract; the contract
// completes only when both documents do.
func TestContractCompletesAcrossWorkspaces(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	c, err := f.contracts.Create(ctx, "u-alice", "", "Rámcová zmluva", "framework")
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	w1, _ := f.svc.Create(ctx, "u-alice", "", c.ID, "Pracovisko 1")
	w2, _ := f.svc.Create(ctx, "u-alice", "", c.ID, "Pracovisko 2")
	d1, _ := f.svc.AttachDocument(ctx, "u-alice", w1.ID, c.ID, "Časť A", "contract")
	d2, _ := f.svc.AttachDocument(ctx, "u-alice", w2.ID, c.ID, "Časť B", "contract")

	first, err := f.svc.Sign(ctx, "u-alice", d1.ID, "")
	if err != nil {
		t.Fatalf("sign d1: %v", err)
	}
	if first.ContractCompleted {
		t.Error("contract must not complete while a referencing document is pending")
	}

	second, err := f.svc.Sign(ctx, "u-alice", d2.ID, "")
	if err != nil {
		t.Fatalf("sign d2: %v", err)
	}
	if !second.ContractCompleted {
		t.Error("contract should complete once every referencing document is complete")
	}

	got, err := f.contracts.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if got.Status != contract.StatusCompleted {
		t.Errorf("contract status = %s", got.Status)
	}
}

func TestReadAccess(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "c-1", "", "Firemné pracovisko")

	if _, err := f.svc.Get(ctx, "u-bob", w.ID); !errors.Is(err, ErrReadForbidden) {
		t.Errorf("outsider read err = %v, want ErrReadForbidden", err)
	}

	// An active mandate at the owning company grants read access.
	f.mandates.byUser["u-bob"] = []directory.MandateWithCompany{
		{Mandate: directory.Mandate{ID: "m-1", CompanyID: "c-1", Status: directory.MandateActive}},
	}
	if _, err := f.svc.Get(ctx, "u-bob", w.ID); err != nil {
		t.Errorf("mandate holder read err = %v", err)
	}

	if _, err := f.svc.Get(ctx, "u-alice", "missing"); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("missing workspace err = %v", err)
	}
}

func TestOnlyCreatorInvites(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Workspace")
	if _, err := f.svc.Invite(ctx, "u-bob", w.ID, "carol@example.sk", "", ""); !errors.Is(err, ErrNotCreator) {
		t.Errorf("err = %v, want ErrNotCreator", err)
	}

	if _, err := f.svc.Invite(ctx, "u-alice", w.ID, "alice@example.sk", "", ""); !errors.Is(err, ErrAlreadyParticipant) {
		t.Errorf("err = %v, want ErrAlreadyParticipant", err)
	}
}

func TestSummaryForUser(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Workspace")
	doc, _ := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Zmluva", "contract")
	if _, err := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Dodatok", "amendment"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := f.svc.Sign(ctx, "u-alice", doc.ID, ""); err != nil {
		t.Fatalf("sign: %v", err)
	}

	sum, err := f.svc.SummaryForUser(ctx, "u-alice")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Workspaces != 1 || sum.ActiveWorkspaces != 1 {
		t.Errorf("workspaces = %d active = %d", sum.Workspaces, sum.ActiveWorkspaces)
	}
	if sum.PendingSignatures != 1 {
		t.Errorf("pending signatures = %d, want 1", sum.PendingSignatures)
	}
	if sum.Attestations != 1 {
		t.Errorf("attestations = %d, want 1", sum.Attestations)
	}
}

func TestAttestationReport(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.mandates.byUser["u-carol"] = []directory.MandateWithCompany{
		{
			Mandate: directory.Mandate{
				ID: "m-reg", Role: "Director", Status: directory.MandateActive,
				Source: "registry", CompanyID: "c-1",
			},
			Company: directory.Company{ID: "c-1", RegistryCode: "X"},
		},
	}

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Report workspace")
	doc, _ := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Zmluva", "contract")
	invited, _ := f.svc.Invite(ctx, "u-alice", w.ID, "carol@example.sk", "Director", "X")
	if _, err := f.svc.Respond(ctx, "u-carol", invited.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := f.svc.Sign(ctx, "u-alice", doc.ID, ""); err != nil {
		t.Fatalf("alice sign: %v", err)
	}

	report, err := f.svc.AttestationReport(ctx, "u-alice", doc.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Signers) != 1 {
		t.Fatalf("signers = %d, want 1", len(report.Signers))
	}
	if report.CompletedAt != nil {
		t.Errorf("completedAt set before full consensus")
	}

	if _, err := f.svc.Sign(ctx, "u-carol", doc.ID, ""); err != nil {
		t.Fatalf("carol sign: %v", err)
	}
	report, err = f.svc.AttestationReport(ctx, "u-carol", doc.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Signers) != 2 {
		t.Fatalf("signers = %d, want 2", len(report.Signers))
	}
	if report.CompletedAt == nil {
		t.Errorf("completedAt missing after full consensus")
	}
	var carol SignerEntry
	for _, e := range report.Signers {
		if e.UserID == "u-carol" {
			carol = e
		}
	}
	if carol.Capacity != "company" || carol.MandateID != "m-reg" || carol.MandateSource != "registry" || carol.Role != "Director" {
		t.Errorf("carol entry = %+v", carol)
	}
	if carol.Email != "carol@example.sk" {
		t.Errorf("carol email = %q", carol.Email)
	}

	if _, err := f.svc.AttestationReport(ctx, "u-stranger", doc.ID); !errors.Is(err, ErrReadForbidden) {
		t.Errorf("stranger report err = %v, want ErrReadForbidden", err)
	}
}

// A user whose earlier participation was rejected can be invited again; the
// stale rejected row must not shadow the accepted one when they sign.
func TestReinvitedParticipantCanSign(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	w, _ := f.svc.Create(ctx, "u-alice", "", "", "Workspace")
	first, err := f.svc.Invite(ctx, "u-alice", w.ID, "bob@example.sk", "", "")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := f.svc.Respond(ctx, "u-bob", first.ID, false); err != nil {
		t.Fatalf("reject: %v", err)
	}

	second, err := f.svc.Invite(ctx, "u-alice", w.ID, "bob@example.sk", "", "")
	if err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	if _, err := f.svc.Respond(ctx, "u-bob", second.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}

	doc, err := f.svc.AttachDocument(ctx, "u-alice", w.ID, "", "Zmluva", "contract")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	outcome, err := f.svc.Sign(ctx, "u-bob", doc.ID, "")
	if err != nil {
		t.Fatalf("re-invited participant sign: %v", err)
	}
	if outcome.Signature.ParticipantID != second.ID {
		t.Errorf("signature bound to participant %s, want %s", outcome.Signature.ParticipantID, second.ID)
	}
}
