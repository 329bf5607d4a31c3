package services

import (
	"encoding/json"
	"time"

	"backend/models"
)

// History actions recorded by the workflow.
const (
	ActionStatusChange  = "status_change"
	ActionStepAdvance   = "step_advance"
	ActionStepBack      = "step_back"
	ActionRecompute     = "breakdown_recomputed"
	ActionSubmit        = "submitted"
	ActionSignature     = "signature"
	ActionStaffProposal = "staff_proposal"
	ActionExpired       = "expired"
)

// terminalStatuses stop accepting line-item edits; signature and document
// events remain allowed.
var terminalStatuses = map[string]bool{
	models.StatusFinalized: true,
	models.StatusRefused:   true,
	models.StatusExpired:   true,
	models.StatusCancelled: true,
}

// sideTerminals are reachable from any non-finalized state.
var sideTerminals = []string{
	models.StatusRefused,
	models.StatusExpired,
	models.StatusCancelled,
}

// statusTransitions is the explicit transition table. A target absent from a
// state's list is an illegal transition, full stop.
var statusTransitions = map[string][]string{
	models.StatusDraft:          {models.StatusSubmitted},
	models.StatusSubmitted:      {models.StatusUnderReview},
	models.StatusUnderReview:    {models.StatusStaffRevision, models.StatusClientRevision, models.StatusClientApproved},
	models.StatusStaffRevision:  {models.StatusClientRevision, models.StatusClientApproved},
	models.StatusClientRevision: {models.StatusStaffRevision, models.StatusClientApproved},
	models.StatusClientApproved: {models.StatusStaffAccepted},
	// Interview is optional: staff may go straight to the final quote.
	models.StatusStaffAccepted:       {models.StatusInterviewScheduled, models.StatusFinalQuote},
	models.StatusInterviewScheduled:  {models.StatusInterviewDone},
	models.StatusInterviewDone:       {models.StatusFinalQuote},
	models.StatusFinalQuote:          {models.StatusConvertedToContract},
	models.StatusConvertedToContract: {models.StatusContractSigned},
	models.StatusContractSigned:      {models.StatusFinalized},
}

// expirableStatuses is the unresolved range in which a quote may expire when
// its validity window passes.
var expirableStatuses = map[string]bool{
	models.StatusSubmitted:      true,
	models.StatusUnderReview:    true,
	models.StatusStaffRevision:  true,
	models.StatusClientRevision: true,
	models.StatusClientApproved: true,
}

// IsTerminalStatus reports whether a status accepts no further line-item
// edits or status transitions.
func IsTerminalStatus(status string) bool {
	return terminalStatuses[status]
}

// CanTransition checks the transition table without applying anything.
func CanTransition(from, to string) bool {
	if terminalStatuses[from] {
		return false
	}
	for _, t := range sideTerminals {
		if to == t {
			return true
		}
	}
	for _, t := range statusTransitions[from] {
		if to == t {
			return true
		}
	}
	return false
}

// AppendHistory appends one audit entry. The history list only ever grows.
func AppendHistory(q *models.Quote, actor, actorName, action, field, oldValue, newValue string) {
	q.History = append(q.History, models.HistoryEntry{
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		ActorName: actorName,
		Action:    action,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
	})
}

// RecordBreakdownChange appends the before/after breakdown snapshots so every
// monetary recomputation leaves an audit trail.
func RecordBreakdownChange(q *models.Quote, actor, actorName string, before, after *models.Breakdown) {
	oldJSON := ""
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			oldJSON = string(b)
		}
	}
	newJSON := ""
	if after != nil {
		if b, err := json.Marshal(after); err == nil {
			newJSON = string(b)
		}
	}
	AppendHistory(q, actor, actorName, ActionRecompute, "amounts", oldJSON, newJSON)
}

// TransitionQuote validates the requested status change against the
// transition table and applies it, appending a history entry. Illegal
// transitions return a StateTransitionError and leave the quote untouched.
func TransitionQuote(q *models.Quote, target, actor, actorName string) error {
	if !CanTransition(q.Status, target) {
		return &StateTransitionError{From: q.Status, To: target}
	}
	// The draft exit runs the submission preconditions regardless of who
	// triggers it; staff cannot push an incomplete draft forward.
	if q.Status == models.StatusDraft && target == models.StatusSubmitted {
		if err := ValidateSubmission(q); err != nil {
			return err
		}
	}
	old := q.Status
	q.Status = target
	AppendHistory(q, actor, actorName, ActionStatusChange, "status", old, target)
	return nil
}

// ValidateSubmission checks the draft→submitted preconditions and names every
// missing field at once.
func ValidateSubmission(q *models.Quote) error {
	var fields []string
	if q.Event.Type == "" {
		fields = append(fields, "event.type")
	}
	if q.Event.Date.IsZero() {
		fields = append(fields, "event.date")
	}
	if q.Client.Email == "" && q.Client.Phone == "" {
		fields = append(fields, "client.email")
	}
	if q.Amounts == nil {
		fields = append(fields, "amounts")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// SubmitQuote applies draft→submitted after validating preconditions, and
// timestamps the submission. A degraded travel fee does not block submission;
// the breakdown carries the flag.
func SubmitQuote(q *models.Quote, actor, actorName string) error {
	if q.Status != models.StatusDraft {
		return &StateTransitionError{From: q.Status, To: models.StatusSubmitted}
	}
	if err := ValidateSubmission(q); err != nil {
		return err
	}
	if err := TransitionQuote(q, models.StatusSubmitted, actor, actorName); err != nil {
		return err
	}
	now := time.Now().UTC()
	q.SubmittedAt = &now
	q.CurrentStep = models.StepDone
	q.ProgressPercent = 100
	AppendHistory(q, actor, actorName, ActionSubmit, "", "", "")
	return nil
}

// StepProgress computes the wizard progress percent for a step.
func StepProgress(step string) float64 {
	idx := models.StepIndex(step)
	if idx < 0 {
		return 0
	}
	return Round2(float64(idx) / float64(len(models.WizardSteps)-1) * 100)
}

// AdvanceStep validates that the saved step is the quote's current one and
// moves the wizard forward. Only quotes the client still owns advance.
func AdvanceStep(q *models.Quote, step, actor, actorName string) error {
	if !ClientMayEdit(q) {
		return &StateTransitionError{From: q.Status, To: models.StatusDraft}
	}
	idx := models.StepIndex(step)
	if idx < 0 {
		return NewValidationError("step")
	}
	if step != q.CurrentStep {
		return &StateTransitionError{From: q.CurrentStep, To: step}
	}
	if idx+1 < len(models.WizardSteps) {
		next := models.WizardSteps[idx+1]
		old := q.CurrentStep
		q.CurrentStep = next
		q.ProgressPercent = StepProgress(next)
		AppendHistory(q, actor, actorName, ActionStepAdvance, "current_step", old, next)
	}
	return nil
}

// GoBackStep moves the wizard to an earlier step without touching any data
// entered in later steps. Only while the client owns the quote content.
func GoBackStep(q *models.Quote, target, actor, actorName string) error {
	if !ClientMayEdit(q) {
		return &StateTransitionError{From: q.Status, To: models.StatusDraft}
	}
	targetIdx := models.StepIndex(target)
	if targetIdx < 0 {
		return NewValidationError("step")
	}
	if targetIdx >= models.StepIndex(q.CurrentStep) {
		return &StateTransitionError{From: q.CurrentStep, To: target}
	}
	old := q.CurrentStep
	q.CurrentStep = target
	q.ProgressPercent = StepProgress(target)
	AppendHistory(q, actor, actorName, ActionStepBack, "current_step", old, target)
	return nil
}

// Client actions allowed after submission.
const (
	ClientActionSign           = "sign"
	ClientActionAcceptProposal = "accept_proposal"
	ClientActionRejectProposal = "reject_proposal"
)

// ClientMayEdit reports whether the client still owns the quote content.
func ClientMayEdit(q *models.Quote) bool {
	return q.Status == models.StatusDraft || q.Status == models.StatusClientRevision
}

// ClientMayAct gates the restricted post-submission client actions.
func ClientMayAct(q *models.Quote, action string) bool {
	if q.Status == models.StatusDraft {
		return false
	}
	switch action {
	case ClientActionSign:
		// Terminal states still accept signature events.
		return true
	case ClientActionAcceptProposal, ClientActionRejectProposal:
		return !terminalStatuses[q.Status]
	}
	return false
}

// RespondToProposal applies the client's answer to the latest staff
// proposal: acceptance moves the quote to client_approved, rejection closes
// it as refused. The transition table still decides whether the current
// status allows the move.
func RespondToProposal(q *models.Quote, action, actorName string) error {
	switch action {
	case ClientActionAcceptProposal, ClientActionRejectProposal:
	default:
		return NewValidationError("action")
	}
	if !ClientMayAct(q, action) {
		return &StateTransitionError{From: q.Status, To: action}
	}
	target := models.StatusClientApproved
	if action == ClientActionRejectProposal {
		target = models.StatusRefused
	}
	return TransitionQuote(q, target, models.ActorClient, actorName)
}

// ExpireIfStale applies the expired transition when the validity window has
// passed and the quote sits in the unresolved range. Returns whether the
// transition was applied. The scheduler only triggers the check; eligibility
// is decided here.
func ExpireIfStale(q *models.Quote, now time.Time) (bool, error) {
	if !expirableStatuses[q.Status] {
		return false, nil
	}
	if !now.After(q.ValidityUntil) {
		return false, nil
	}
	if err := TransitionQuote(q, models.StatusExpired, models.ActorSystem, "scheduler"); err != nil {
		return false, err
	}
	AppendHistory(q, models.ActorSystem, "scheduler", ActionExpired, "validity_until",
		q.ValidityUntil.Format(time.RFC3339), now.Format(time.RFC3339))
	return true, nil
}

// RecordSignature appends a signature and its audit entry. Allowed in any
// post-submission state including terminals.
func RecordSignature(q *models.Quote, sig models.Signature) error {
	if q.Status == models.StatusDraft {
		return &StateTransitionError{From: q.Status, To: models.StatusContractSigned}
	}
	if sig.SignerName == "" || sig.SignatureBlob == "" {
		return NewValidationError("signer_name", "signature_blob")
	}
	q.Signatures = append(q.Signatures, sig)
	AppendHistory(q, sig.Party, sig.SignerName, ActionSignature, "signatures", "", sig.Party)
	return nil
}
