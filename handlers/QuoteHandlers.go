package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"backend/models"
	"backend/repository"
	"backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Steps whose data feeds the pricing engine. Saving one of these triggers a
// breakdown recomputation.
var pricingSteps = map[string]bool{
	models.StepDateVenue: true,
	models.StepServices:  true,
	models.StepEquipment: true,
	models.StepRecap:     true,
}

// CreateQuoteDraft godoc
// @Summary      Create a quote draft
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        body  body      models.ClientSnapshot  true  "Client contact details"
// @Success      201   {object}  models.CreateDraftResponse
// @Failure      400   {object}  models.ErrorResponse
// @Router       /api/quotes/draft [post]
func CreateQuoteDraft(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var client models.ClientSnapshot
		if err := c.ShouldBindJSON(&client); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		settings, err := repository.GetPricingSettings(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		now := time.Now().UTC()
		quote := &models.Quote{
			Client:          client,
			Status:          models.StatusDraft,
			CurrentStep:     models.WizardSteps[0],
			ProgressPercent: 0,
			Interview:       models.Interview{Mode: models.InterviewModeNone},
			Documents:       map[string]models.DocumentMeta{},
			ValidityUntil:   now.AddDate(0, 0, settings.ValidityDays),
		}
		services.AppendHistory(quote, models.ActorClient, client.Name, "created", "", "", models.StatusDraft)

		if err := repository.CreateQuote(db, quote); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, models.CreateDraftResponse{
			ID:              quote.ID,
			Number:          quote.Number,
			Status:          quote.Status,
			CurrentStep:     quote.CurrentStep,
			ProgressPercent: quote.ProgressPercent,
		})
	}
}

// Step payload shapes. Each step unmarshals only its own section so a save
// can never clobber data entered in other steps.
type dateVenueStep struct {
	Date      time.Time    `json:"date"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Venue     models.Venue `json:"venue"`
}

type eventTypeStep struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Theme       string `json:"theme"`
}

type guestsStep struct {
	GuestCount int    `json:"guest_count"`
	GuestRange string `json:"guest_range"`
}

type serviceSelection struct {
	ServiceRef int    `json:"service_ref"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

type servicesStep struct {
	Services []serviceSelection `json:"services"`
}

type equipmentSelection struct {
	EquipmentRef int                 `json:"equipment_ref"`
	Quantity     int                 `json:"quantity"`
	RentalWindow models.RentalWindow `json:"rental_window"`
	Delivery     bool                `json:"delivery"`
	Install      bool                `json:"install"`
}

type equipmentStep struct {
	Equipment []equipmentSelection `json:"equipment"`
}

type specialRequestsStep struct {
	ClientRequest models.ClientRequest `json:"client_request"`
	Interview     models.Interview     `json:"interview"`
}

type rawStepRequest struct {
	Step string          `json:"step" binding:"required"`
	Data json.RawMessage `json:"data"`
}

// applyStepData merges one step's payload into the aggregate. Unknown steps
// and malformed payloads surface as ValidationError.
func applyStepData(q *models.Quote, gdb *gorm.DB, step string, data json.RawMessage) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch step {
	case models.StepInfo:
		var client models.ClientSnapshot
		if err := json.Unmarshal(data, &client); err != nil {
			return services.NewValidationError("data")
		}
		q.Client = client

	case models.StepEventType:
		var payload eventTypeStep
		if err := json.Unmarshal(data, &payload); err != nil {
			return services.NewValidationError("data")
		}
		q.Event.Type = payload.Type
		q.Event.Title = payload.Title
		q.Event.Description = payload.Description
		q.Event.Theme = payload.Theme

	case models.StepDateVenue:
		var payload dateVenueStep
		if err := json.Unmarshal(data, &payload); err != nil {
			return services.NewValidationError("data")
		}
		q.Event.Date = payload.Date
		q.Event.StartTime = payload.StartTime
		q.Event.EndTime = payload.EndTime
		q.Event.Venue = payload.Venue

	case models.StepGuests:
		var payload guestsStep
		if err := json.Unmarshal(data, &payload); err != nil {
			return services.NewValidationError("data")
		}
		q.Event.GuestCount = payload.GuestCount
		q.Event.GuestRange = payload.GuestRange

	case models.StepServices:
		var payload servicesStep
		if err := json.Unmarshal(data, &payload); err != nil {
			return services.NewValidationError("data")
		}
		items := make([]models.ServiceLineItem, 0, len(payload.Services))
		for _, sel := range payload.Services {
			catalog, err := repository.GetCatalogService(gdb, sel.ServiceRef)
			if err != nil {
				return err
			}
			// Snapshot catalog pricing into the line item; later catalog
			// edits must not change an existing quote.
			items = append(items, models.ServiceLineItem{
				ServiceRef:       catalog.ID,
				ProviderRef:      catalog.ProviderID,
				Name:             catalog.Name,
				Category:         catalog.Category,
				Quantity:         sel.Quantity,
				UnitPrice:        catalog.UnitPrice,
				WeekendSurcharge: catalog.WeekendSurcharge,
				NightSurcharge:   catalog.NightSurcharge,
				Notes:            sel.Notes,
			})
		}
		q.LineItems.Services = items

	case models.StepEquipment:
		var payload equipmentStep
		if err := json.Unmarshal(data, &payload); err != nil {
			return services.NewValidationError("data")
		}
		items := make([]models.EquipmentLineItem, 0, len(payload.Equipment))
		for _, sel := range payload.Equipment {
			catalog, err := repository.GetCatalogEquipment(gdb, sel.EquipmentRef)
			if err != nil {
				return err
			}
			items = append(items, models.EquipmentLineItem{
				EquipmentRef: catalog.ID,
				ProviderRef:  catalog.ProviderID,
				Name:         catalog.Name,
				Category:     catalog.Category,
				Quantity:     sel.Quantity,
				RentalWindow: sel.RentalWindow,
				DailyPrice:   catalog.DailyPrice,
				WeeklyPrice:  catalog.WeeklyPrice,
				Deposit:      catalog.Deposit,
				Delivery:     sel.Delivery,
				DeliveryFee:  catalog.DeliveryFee,
				Install:      sel.Install,
				InstallFee:   catalog.InstallFee,
			})
		}
		q.LineItems.Equipment = items

	case models.StepSpecialRequests:
		var payload specialRequestsStep
		if err := json.Unmarshal(data, &payload); err != nil {
			return services.NewValidationError("data")
		}
		q.ClientRequest = payload.ClientRequest
		q.Interview = payload.Interview

	case models.StepRecap, models.StepValidation:
		// No payload of their own; recap triggers the authoritative
		// recomputation below.

	default:
		return services.NewValidationError("step")
	}
	return nil
}

// RecomputeBreakdown rebuilds the quote's authoritative breakdown from its
// line items, the settings and the venue distance. The previous discount and
// extra fees are carried over; only staff actions change them.
func RecomputeBreakdown(c *gin.Context, gdb *gorm.DB, geocoder services.Geocoder, q *models.Quote) error {
	settings, err := repository.GetPricingSettings(gdb)
	if err != nil {
		return err
	}

	var travel *models.TravelFee
	if q.Event.Venue.Address != "" {
		destination := q.Event.Venue.Address + ", " + q.Event.Venue.PostalCode + " " + q.Event.Venue.City
		fee := services.ComputeTravelFee(c.Request.Context(), geocoder,
			settings.BaseAddress, destination, settings.RatePerKm, settings.FreeKmAllowance)
		travel = &fee
	}

	discount, extraFees, vatRate, depositPct := services.CarriedPricingInputs(q.Amounts, settings)

	breakdown, err := services.ComputeBreakdown(
		q.LineItems.Services, q.LineItems.Equipment,
		travel, extraFees, discount, vatRate, depositPct)
	if err != nil {
		return err
	}

	before := q.Amounts
	q.Amounts = breakdown
	services.RecordBreakdownChange(q, models.ActorSystem, "pricing", before, breakdown)
	return nil
}

// SaveQuoteStep godoc
// @Summary      Save a wizard step and advance
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Quote ID"
// @Param        body  body      models.StepRequest true  "Step name and partial data"
// @Success      200   {object}  models.StepResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Failure      409   {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/step [put]
func SaveQuoteStep(db *sql.DB, gdb *gorm.DB, geocoder services.Geocoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rawStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		historyMark := len(quote.History)

		if err := applyStepData(quote, gdb, req.Step, req.Data); err != nil {
			respondServiceError(c, err)
			return
		}

		if pricingSteps[req.Step] {
			if err := RecomputeBreakdown(c, gdb, geocoder, quote); err != nil {
				respondServiceError(c, err)
				return
			}
		}

		if err := services.AdvanceStep(quote, req.Step, models.ActorClient, quote.Client.Name); err != nil {
			respondServiceError(c, err)
			return
		}

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.StepResponse{
			CurrentStep:     quote.CurrentStep,
			ProgressPercent: quote.ProgressPercent,
			Amounts:         quote.Amounts,
			HistoryDelta:    quote.History[historyMark:],
			Version:         quote.Version,
		})
	}
}

// GoBackStep godoc
// @Summary      Navigate the wizard back to an earlier step
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "Quote ID"
// @Param        body  body      object  true  "Target step, e.g. {\"step\": \"services\"}"
// @Success      200   {object}  models.StepResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      409   {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/back [post]
func GoBackStep(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Step string `json:"step" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		historyMark := len(quote.History)

		if err := services.GoBackStep(quote, req.Step, models.ActorClient, quote.Client.Name); err != nil {
			respondServiceError(c, err)
			return
		}

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.StepResponse{
			CurrentStep:     quote.CurrentStep,
			ProgressPercent: quote.ProgressPercent,
			Amounts:         quote.Amounts,
			HistoryDelta:    quote.History[historyMark:],
			Version:         quote.Version,
		})
	}
}

// SubmitQuote godoc
// @Summary      Submit a draft for review
// @Tags         quotes
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/submit [post]
func SubmitQuote(db *sql.DB, email *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if err := services.SubmitQuote(quote, models.ActorClient, quote.Client.Name); err != nil {
			respondServiceError(c, err)
			return
		}

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		email.NotifyStatusChange(quote, models.StatusSubmitted, DefaultCompanyProfile())

		c.JSON(http.StatusOK, gin.H{
			"message":      "Quote submitted",
			"status":       quote.Status,
			"submitted_at": quote.SubmittedAt,
		})
	}
}

// RespondToProposal godoc
// @Summary      Accept or reject the staff proposal
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "Quote ID"
// @Param        body  body      object  true  "Client answer, e.g. {\"action\": \"accept_proposal\"}"
// @Success      200   {object}  models.MessageResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      409   {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/proposal-response [post]
func RespondToProposal(db *sql.DB, email *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Action string `json:"action" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if err := services.RespondToProposal(quote, req.Action, quote.Client.Name); err != nil {
			respondServiceError(c, err)
			return
		}

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		email.NotifyStatusChange(quote, quote.Status, DefaultCompanyProfile())

		c.JSON(http.StatusOK, gin.H{
			"message": "Response recorded",
			"status":  quote.Status,
		})
	}
}

// GetQuote godoc
// @Summary      Fetch a quote with its breakdown
// @Tags         quotes
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  models.Quote
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quotes/{id} [get]
func GetQuote(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

// SignQuote godoc
// @Summary      Record a party signature
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "Quote ID"
// @Param        body  body      models.SignatureRequest  true  "Signature"
// @Success      200   {object}  models.MessageResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      409   {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/signature [post]
func SignQuote(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SignatureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		sig := models.Signature{
			Party:         req.Party,
			SignerName:    req.SignerName,
			Timestamp:     time.Now().UTC(),
			IP:            c.ClientIP(),
			SignatureBlob: req.SignatureBlob,
			ConsentTerms:  req.ConsentTerms,
			ConsentData:   req.ConsentData,
		}
		if err := services.RecordSignature(quote, sig); err != nil {
			respondServiceError(c, err)
			return
		}

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Signature recorded"})
	}
}
