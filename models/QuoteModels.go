package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

// Quote lifecycle statuses. Transitions between them are validated by
// services.TransitionQuote; handlers never write the status column directly.
const (
	StatusDraft               = "draft"
	StatusSubmitted           = "submitted"
	StatusUnderReview         = "under_review"
	StatusStaffRevision       = "staff_revision"
	StatusClientRevision      = "client_revision"
	StatusClientApproved      = "client_approved"
	StatusStaffAccepted       = "staff_accepted"
	StatusInterviewScheduled  = "interview_scheduled"
	StatusInterviewDone       = "interview_done"
	StatusFinalQuote          = "final_quote"
	StatusConvertedToContract = "converted_to_contract"
	StatusContractSigned      = "contract_signed"
	StatusFinalized           = "finalized"
	StatusRefused             = "refused"
	StatusExpired             = "expired"
	StatusCancelled           = "cancelled"
)

// Wizard steps, in order. Progress percent derives from the index.
const (
	StepInfo            = "info"
	StepEventType       = "event_type"
	StepDateVenue       = "date_venue"
	StepGuests          = "guests"
	StepServices        = "services"
	StepEquipment       = "equipment"
	StepSpecialRequests = "special_requests"
	StepRecap           = "recap"
	StepValidation      = "validation"
	StepDone            = "done"
)

// Actor kinds recorded in history entries.
const (
	ActorClient = "client"
	ActorStaff  = "staff"
	ActorSystem = "system"
)

// Discount kinds.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Event types offered by the wizard.
const (
	EventWedding      = "wedding"
	EventBirthday     = "birthday"
	EventCorporate    = "corporate"
	EventPrivateParty = "private_party"
	EventGala         = "gala"
	EventOther        = "other"
)

// ClientSnapshot is copied from the client's input at quote creation and is
// never refreshed from a live client record afterwards.
type ClientSnapshot struct {
	Name    string `json:"name" example:"Marie Dupont"`
	Email   string `json:"email" example:"marie@example.com"`
	Phone   string `json:"phone" example:"+33612345678"`
	Address string `json:"address" example:"12 rue de la Paix, 75002 Paris"`
	Company string `json:"company,omitempty" example:"Dupont SARL"`
}

type Venue struct {
	Name       string `json:"name" example:"Château de Vaux"`
	Address    string `json:"address" example:"1 allée du Château"`
	City       string `json:"city" example:"Maincy"`
	PostalCode string `json:"postal_code" example:"77950"`
	VenueType  string `json:"venue_type" example:"castle"`
}

type EventDetails struct {
	Type        string    `json:"type" example:"wedding"`
	Title       string    `json:"title" example:"Mariage Marie & Paul"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time,omitempty" example:"18:00"`
	EndTime     string    `json:"end_time,omitempty" example:"02:00"`
	Venue       Venue     `json:"venue"`
	GuestCount  int       `json:"guest_count,omitempty" example:"120"`
	GuestRange  string    `json:"guest_range,omitempty" example:"100-150"`
	Theme       string    `json:"theme,omitempty" example:"champêtre"`
}

// ServiceLineItem is a priced service entry. ComputedTotal is written by the
// pricing engine only.
type ServiceLineItem struct {
	ServiceRef       int     `json:"service_ref" example:"12"`
	ProviderRef      int     `json:"provider_ref,omitempty" example:"3"`
	Name             string  `json:"name" example:"DJ soirée complète"`
	Category         string  `json:"category" example:"animation"`
	Quantity         int     `json:"quantity" example:"1"`
	UnitPrice        float64 `json:"unit_price" example:"500"`
	WeekendSurcharge float64 `json:"weekend_surcharge,omitempty" example:"50"`
	NightSurcharge   float64 `json:"night_surcharge,omitempty" example:"80"`
	ComputedTotal    float64 `json:"computed_total" example:"500"`
	Notes            string  `json:"notes,omitempty"`
}

type RentalWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EquipmentLineItem is a rental entry. Deposit here is the refundable
// security deposit held per item, not the contractual down payment.
type EquipmentLineItem struct {
	EquipmentRef  int          `json:"equipment_ref" example:"7"`
	ProviderRef   int          `json:"provider_ref,omitempty" example:"2"`
	Name          string       `json:"name" example:"Enceinte active 1000W"`
	Category      string       `json:"category" example:"sonorisation"`
	Quantity      int          `json:"quantity" example:"2"`
	RentalWindow  RentalWindow `json:"rental_window"`
	DailyPrice    float64      `json:"daily_price" example:"50"`
	WeeklyPrice   float64      `json:"weekly_price,omitempty" example:"250"`
	ComputedTotal float64      `json:"computed_total" example:"300"`
	Deposit       float64      `json:"deposit,omitempty" example:"200"`
	Delivery      bool         `json:"delivery,omitempty"`
	DeliveryFee   float64      `json:"delivery_fee,omitempty"`
	Install       bool         `json:"install,omitempty"`
	InstallFee    float64      `json:"install_fee,omitempty"`
}

type LineItems struct {
	Services  []ServiceLineItem   `json:"services"`
	Equipment []EquipmentLineItem `json:"equipment"`
}

type ClientRequest struct {
	Needs          string   `json:"needs,omitempty"`
	BudgetMin      float64  `json:"budget_min,omitempty"`
	BudgetMax      float64  `json:"budget_max,omitempty"`
	Priorities     []string `json:"priorities,omitempty"`
	ReferenceLinks []string `json:"reference_links,omitempty"`
	Constraints    string   `json:"constraints,omitempty"`
}

// Interview modes and statuses.
const (
	InterviewModeNone     = "none"
	InterviewModeInPerson = "in_person"
	InterviewModeVideo    = "video"
)

type Interview struct {
	Requested     bool       `json:"requested"`
	Mode          string     `json:"mode" example:"video"`
	Status        string     `json:"status,omitempty" example:"scheduled"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

// TravelFee is the distance-fee detail object. A non-empty Error means the
// fee is a degraded estimate (geocoding failed); Fee and BillableKm are then
// zero by construction and the value must be displayed as unconfirmed.
type TravelFee struct {
	OneWayKm            float64 `json:"one_way_km"`
	RoundTripKm         float64 `json:"round_trip_km"`
	BillableKm          float64 `json:"billable_km"`
	Fee                 float64 `json:"fee"`
	ResolvedOrigin      string  `json:"resolved_origin,omitempty"`
	ResolvedDestination string  `json:"resolved_destination,omitempty"`
	Error               string  `json:"error,omitempty"`
}

type ExtraFee struct {
	Label  string  `json:"label" example:"Frais de dossier"`
	Amount float64 `json:"amount" example:"45"`
}

type Discount struct {
	Kind   string  `json:"kind" example:"percentage"`
	Value  float64 `json:"value" example:"10"`
	Reason string  `json:"reason,omitempty" example:"Offre de lancement"`
}

type Deposit struct {
	Percentage float64 `json:"percentage" example:"30"`
	Amount     float64 `json:"amount" example:"429.30"`
}

// Breakdown is the authoritative monetary computation. Every field is a pure
// function of the line items, fees, discount and tax rate; consumers read the
// stored rounded values and never recompute with different rounding.
type Breakdown struct {
	ServicesSubtotal  float64    `json:"services_subtotal"`
	EquipmentSubtotal float64    `json:"equipment_subtotal"`
	TravelFee         TravelFee  `json:"travel_fee"`
	ExtraFees         []ExtraFee `json:"extra_fees,omitempty"`
	PreDiscountTotal  float64    `json:"pre_discount_total"`
	Discount          Discount   `json:"discount"`
	DiscountAmount    float64    `json:"discount_amount"`
	PostDiscountTotal float64    `json:"post_discount_total"`
	VATRate           float64    `json:"vat_rate"`
	VATAmount         float64    `json:"vat_amount"`
	TotalWithTax      float64    `json:"total_with_tax"`
	Deposit           Deposit    `json:"deposit"`
	RemainingBalance  float64    `json:"remaining_balance"`
	ComputedAt        time.Time  `json:"computed_at"`
}

// HistoryEntry is one append-only audit record. Entries are never mutated or
// deleted.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor" example:"client"`
	ActorName string    `json:"actor_name,omitempty"`
	Action    string    `json:"action" example:"status_change"`
	Field     string    `json:"field,omitempty" example:"status"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
}

type StaffResponse struct {
	Timestamp       time.Time  `json:"timestamp"`
	StaffID         int        `json:"staff_id"`
	StaffName       string     `json:"staff_name"`
	Message         string     `json:"message"`
	ProposedChanges string     `json:"proposed_changes,omitempty"`
	ProposedAmount  *float64   `json:"proposed_amount,omitempty"`
	Attachments     []string   `json:"attachments,omitempty"`
}

type Signature struct {
	Party         string    `json:"party" example:"client"`
	SignerName    string    `json:"signer_name"`
	Timestamp     time.Time `json:"timestamp"`
	IP            string    `json:"ip"`
	SignatureBlob string    `json:"signature_blob"`
	ConsentTerms  bool      `json:"consent_terms"`
	ConsentData   bool      `json:"consent_data"`
}

// Document kinds tracked in the documents map.
const (
	DocumentQuotePDF    = "quote_pdf"
	DocumentContractPDF = "contract_pdf"
	DocumentInvoice     = "invoice"
)

type DocumentMeta struct {
	URL         string    `json:"url"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     int       `json:"version"`
}

// Quote is the aggregate root. Version is the optimistic-concurrency token:
// every write compares and increments it, stale writes are rejected.
type Quote struct {
	ID              string                  `json:"id" example:"7b1c2e64-0b1a-4f3e-9a43-1f2d3c4b5a69"`
	Number          string                  `json:"number" example:"EVT-2026-0042"`
	Client          ClientSnapshot          `json:"client"`
	Event           EventDetails            `json:"event"`
	LineItems       LineItems               `json:"line_items"`
	ClientRequest   ClientRequest           `json:"client_request"`
	Interview       Interview               `json:"interview"`
	Amounts         *Breakdown              `json:"amounts,omitempty"`
	Status          string                  `json:"status" example:"draft"`
	CurrentStep     string                  `json:"current_step" example:"info"`
	ProgressPercent float64                 `json:"progress_percent" example:"0"`
	History         []HistoryEntry          `json:"history"`
	StaffResponses  []StaffResponse         `json:"staff_responses,omitempty"`
	Signatures      []Signature             `json:"signatures,omitempty"`
	Documents       map[string]DocumentMeta `json:"documents,omitempty"`
	ValidityUntil   time.Time               `json:"validity_until"`
	SubmittedAt     *time.Time              `json:"submitted_at,omitempty"`
	Version         int                     `json:"version"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// WizardSteps is the ordered step list the progress percent derives from.
var WizardSteps = []string{
	StepInfo, StepEventType, StepDateVenue, StepGuests, StepServices,
	StepEquipment, StepSpecialRequests, StepRecap, StepValidation, StepDone,
}

// StepIndex returns the position of a wizard step, or -1 for unknown names.
func StepIndex(step string) int {
	for i, s := range WizardSteps {
		if s == step {
			return i
		}
	}
	return -1
}

// JSONB wraps a value for jsonb column round-trips with database/sql.
type JSONB struct {
	V interface{}
}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j.V)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("jsonb scan: unsupported source type")
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, j.V)
}
