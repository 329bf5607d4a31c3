package services

import (
	"testing"
	"time"

	"backend/models"
)

func draftQuote() *models.Quote {
	now := time.Now().UTC()
	return &models.Quote{
		ID:     "q-1",
		Number: "EVT-2026-0001",
		Client: models.ClientSnapshot{
			Name:  "Claire Dubois",
			Email: "claire@example.com",
		},
		Event: models.EventDetails{
			Type: models.EventWedding,
			Date: now.AddDate(0, 3, 0),
		},
		Amounts:       &models.Breakdown{TotalWithTax: 1431},
		Status:        models.StatusDraft,
		CurrentStep:   models.WizardSteps[0],
		ValidityUntil: now.AddDate(0, 0, 30),
	}
}

func TestFullTransitionChain(t *testing.T) {
	q := draftQuote()
	chain := []string{
		models.StatusSubmitted,
		models.StatusUnderReview,
		models.StatusClientApproved,
		models.StatusStaffAccepted,
		models.StatusInterviewScheduled,
		models.StatusInterviewDone,
		models.StatusFinalQuote,
		models.StatusConvertedToContract,
		models.StatusContractSigned,
		models.StatusFinalized,
	}
	for _, target := range chain {
		if err := TransitionQuote(q, target, models.ActorStaff, "Julie"); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}
	if q.Status != models.StatusFinalized {
		t.Errorf("final status = %s", q.Status)
	}
	// One history entry per transition.
	if len(q.History) != len(chain) {
		t.Errorf("history entries = %d, want %d", len(q.History), len(chain))
	}
}

func TestInterviewStepIsOptional(t *testing.T) {
	if !CanTransition(models.StatusStaffAccepted, models.StatusFinalQuote) {
		t.Error("staff_accepted should allow skipping straight to final_quote")
	}
}

func TestIllegalTransitionsRejected(t *testing.T) {
	cases := []struct{ from, to string }{
		{models.StatusSubmitted, models.StatusDraft},
		{models.StatusDraft, models.StatusFinalized},
		{models.StatusFinalized, models.StatusUnderReview},
		{models.StatusRefused, models.StatusSubmitted},
		{models.StatusExpired, models.StatusCancelled},
	}
	for _, c := range cases {
		q := draftQuote()
		q.Status = c.from
		err := TransitionQuote(q, c.to, models.ActorStaff, "Julie")
		if err == nil {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
			continue
		}
		ste, ok := err.(*StateTransitionError)
		if !ok {
			t.Errorf("%s -> %s: expected *StateTransitionError, got %T", c.from, c.to, err)
			continue
		}
		if ste.From != c.from || ste.To != c.to {
			t.Errorf("error carries %s -> %s, want %s -> %s", ste.From, ste.To, c.from, c.to)
		}
		if q.Status != c.from {
			t.Errorf("failed transition mutated status to %s", q.Status)
		}
	}
}

func TestStatusChangeCannotBypassSubmissionChecks(t *testing.T) {
	// Staff moving a draft forward goes through the same preconditions as
	// the client submit button.
	q := &models.Quote{Status: models.StatusDraft}
	err := TransitionQuote(q, models.StatusSubmitted, models.ActorStaff, "Julie")
	if err == nil {
		t.Fatal("empty draft reached submitted via a bare status change")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if q.Status != models.StatusDraft {
		t.Errorf("failed transition mutated status to %s", q.Status)
	}
	if len(q.History) != 0 {
		t.Errorf("failed transition appended %d history entries", len(q.History))
	}
}

func TestSideTerminalsReachableFromAnyActiveState(t *testing.T) {
	active := []string{
		models.StatusSubmitted, models.StatusUnderReview,
		models.StatusClientRevision, models.StatusFinalQuote,
	}
	for _, from := range active {
		for _, to := range []string{models.StatusRefused, models.StatusExpired, models.StatusCancelled} {
			if !CanTransition(from, to) {
				t.Errorf("%s -> %s should be allowed", from, to)
			}
		}
	}
}

func TestSubmitWithoutEventDateNamesField(t *testing.T) {
	q := draftQuote()
	q.Event.Date = time.Time{}

	err := SubmitQuote(q, models.ActorClient, q.Client.Name)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	found := false
	for _, f := range ve.Fields {
		if f == "event.date" {
			found = true
		}
	}
	if !found {
		t.Errorf("fields %v should name event.date", ve.Fields)
	}
	if q.Status != models.StatusDraft {
		t.Errorf("failed submission changed status to %s", q.Status)
	}
}

func TestSubmitSetsTimestampAndProgress(t *testing.T) {
	q := draftQuote()
	if err := SubmitQuote(q, models.ActorClient, q.Client.Name); err != nil {
		t.Fatalf("SubmitQuote: %v", err)
	}
	if q.Status != models.StatusSubmitted {
		t.Errorf("status = %s", q.Status)
	}
	if q.SubmittedAt == nil {
		t.Error("SubmittedAt not set")
	}
	if q.CurrentStep != models.StepDone || q.ProgressPercent != 100 {
		t.Errorf("wizard position = %s / %v", q.CurrentStep, q.ProgressPercent)
	}
}

func TestAdvanceStepRequiresCurrentStep(t *testing.T) {
	q := draftQuote()
	if err := AdvanceStep(q, models.StepServices, models.ActorClient, "c"); err == nil {
		t.Error("advancing from a non-current step should fail")
	}
	if err := AdvanceStep(q, models.StepInfo, models.ActorClient, "c"); err != nil {
		t.Fatalf("AdvanceStep: %v", err)
	}
	if q.CurrentStep != models.StepEventType {
		t.Errorf("CurrentStep = %s, want %s", q.CurrentStep, models.StepEventType)
	}
	if q.ProgressPercent <= 0 {
		t.Errorf("progress did not move: %v", q.ProgressPercent)
	}
}

func TestGoBackStepPreservesData(t *testing.T) {
	q := draftQuote()
	q.CurrentStep = models.StepRecap
	q.LineItems.Services = []models.ServiceLineItem{{Name: "DJ", Quantity: 1, UnitPrice: 500}}

	if err := GoBackStep(q, models.StepServices, models.ActorClient, "c"); err != nil {
		t.Fatalf("GoBackStep: %v", err)
	}
	if q.CurrentStep != models.StepServices {
		t.Errorf("CurrentStep = %s", q.CurrentStep)
	}
	if len(q.LineItems.Services) != 1 {
		t.Error("going back erased line items")
	}

	// Going forward through back navigation is rejected.
	if err := GoBackStep(q, models.StepRecap, models.ActorClient, "c"); err == nil {
		t.Error("back navigation to a later step should fail")
	}
}

func TestExpireIfStale(t *testing.T) {
	now := time.Now().UTC()

	q := draftQuote()
	q.Status = models.StatusSubmitted
	q.ValidityUntil = now.Add(-time.Hour)
	expired, err := ExpireIfStale(q, now)
	if err != nil {
		t.Fatalf("ExpireIfStale: %v", err)
	}
	if !expired || q.Status != models.StatusExpired {
		t.Errorf("stale submitted quote not expired: %v / %s", expired, q.Status)
	}

	// A draft never expires regardless of the window.
	q = draftQuote()
	q.ValidityUntil = now.Add(-time.Hour)
	expired, err = ExpireIfStale(q, now)
	if err != nil || expired {
		t.Errorf("draft expired: %v %v", expired, err)
	}

	// Still inside the window: untouched.
	q = draftQuote()
	q.Status = models.StatusUnderReview
	q.ValidityUntil = now.Add(time.Hour)
	expired, _ = ExpireIfStale(q, now)
	if expired {
		t.Error("quote expired before its validity window passed")
	}
}

func TestSignatureAllowedInTerminalState(t *testing.T) {
	q := draftQuote()
	q.Status = models.StatusFinalized

	sig := models.Signature{
		Party:         models.ActorClient,
		SignerName:    "Claire Dubois",
		SignatureBlob: "data:image/png;base64,xxxx",
	}
	if err := RecordSignature(q, sig); err != nil {
		t.Fatalf("RecordSignature: %v", err)
	}
	if len(q.Signatures) != 1 {
		t.Errorf("signatures = %d", len(q.Signatures))
	}

	// Drafts cannot be signed.
	q = draftQuote()
	if err := RecordSignature(q, sig); err == nil {
		t.Error("signing a draft should fail")
	}
}

func TestClientEditWindow(t *testing.T) {
	q := draftQuote()
	if !ClientMayEdit(q) {
		t.Error("draft should be client-editable")
	}
	q.Status = models.StatusClientRevision
	if !ClientMayEdit(q) {
		t.Error("client_revision should be client-editable")
	}
	q.Status = models.StatusUnderReview
	if ClientMayEdit(q) {
		t.Error("under_review should not be client-editable")
	}
	if !ClientMayAct(q, ClientActionSign) {
		t.Error("post-submission client should be able to sign")
	}
}

func TestRespondToProposal(t *testing.T) {
	q := draftQuote()
	q.Status = models.StatusUnderReview
	if err := RespondToProposal(q, ClientActionAcceptProposal, q.Client.Name); err != nil {
		t.Fatalf("accept from under_review: %v", err)
	}
	if q.Status != models.StatusClientApproved {
		t.Errorf("status = %s, want %s", q.Status, models.StatusClientApproved)
	}

	q = draftQuote()
	q.Status = models.StatusStaffRevision
	if err := RespondToProposal(q, ClientActionRejectProposal, q.Client.Name); err != nil {
		t.Fatalf("reject from staff_revision: %v", err)
	}
	if q.Status != models.StatusRefused {
		t.Errorf("status = %s, want %s", q.Status, models.StatusRefused)
	}

	// Drafts have no proposal to answer.
	q = draftQuote()
	if err := RespondToProposal(q, ClientActionAcceptProposal, q.Client.Name); err == nil {
		t.Error("draft should not accept a proposal response")
	}

	// Unknown actions are named, not silently ignored.
	q = draftQuote()
	q.Status = models.StatusUnderReview
	err := RespondToProposal(q, "shrug", q.Client.Name)
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("expected *ValidationError for unknown action, got %T", err)
	}

	// Terminal states accept no further answers.
	q = draftQuote()
	q.Status = models.StatusFinalized
	if err := RespondToProposal(q, ClientActionAcceptProposal, q.Client.Name); err == nil {
		t.Error("finalized quote accepted a proposal response")
	}
}

func TestClientRevisionAllowsWizardEdits(t *testing.T) {
	q := draftQuote()
	q.Status = models.StatusClientRevision
	q.CurrentStep = models.StepRecap

	if err := GoBackStep(q, models.StepServices, models.ActorClient, "c"); err != nil {
		t.Fatalf("GoBackStep in client_revision: %v", err)
	}
	if err := AdvanceStep(q, models.StepServices, models.ActorClient, "c"); err != nil {
		t.Fatalf("AdvanceStep in client_revision: %v", err)
	}

	// Once staff hold the quote the wizard is locked again.
	q.Status = models.StatusUnderReview
	if err := GoBackStep(q, models.StepInfo, models.ActorClient, "c"); err == nil {
		t.Error("wizard navigation allowed while staff hold the quote")
	}
	if err := AdvanceStep(q, q.CurrentStep, models.ActorClient, "c"); err == nil {
		t.Error("step advance allowed while staff hold the quote")
	}
}
