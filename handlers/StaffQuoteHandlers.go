package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"backend/models"
	"backend/repository"
	"backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListQuotes godoc
// @Summary      List quotes for the staff dashboard
// @Tags         staff
// @Produce      json
// @Param        Authorization  header    string  true   "Session ID"
// @Param        status         query     string  false  "Filter by status"
// @Param        page           query     int     false  "Page number"
// @Param        limit          query     int     false  "Page size"
// @Success      200  {object}  models.PaginatedResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/staff/quotes [get]
func ListQuotes(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requireStaff(c, db) == nil {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		status := c.Query("status")

		quotes, pagination, err := repository.ListQuotes(db, status, page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Data:       quotes,
			Pagination: pagination,
		})
	}
}

// UpdateQuoteStatus godoc
// @Summary      Apply a status transition
// @Tags         staff
// @Accept       json
// @Produce      json
// @Param        Authorization  header    string                      true  "Session ID"
// @Param        id             path      string                      true  "Quote ID"
// @Param        body           body      models.StatusChangeRequest  true  "Target status"
// @Success      200  {object}  models.MessageResponse
// @Failure      401  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/staff/quotes/{id}/status [put]
func UpdateQuoteStatus(db *sql.DB, email *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff := requireStaff(c, db)
		if staff == nil {
			return
		}

		var req models.StatusChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		staffName := staff.FirstName + " " + staff.LastName
		if err := services.TransitionQuote(quote, req.Status, models.ActorStaff, staffName); err != nil {
			respondServiceError(c, err)
			return
		}
		if req.Comment != "" {
			services.AppendHistory(quote, models.ActorStaff, staffName, "comment", "status", "", req.Comment)
		}

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		email.NotifyStatusChange(quote, req.Status, DefaultCompanyProfile())

		c.JSON(http.StatusOK, gin.H{"message": "Status updated", "status": quote.Status})
	}
}

// AddStaffResponse godoc
// @Summary      Append a staff proposal to the negotiation thread
// @Tags         staff
// @Accept       json
// @Produce      json
// @Param        Authorization  header    string                       true  "Session ID"
// @Param        id             path      string                       true  "Quote ID"
// @Param        body           body      models.StaffResponseRequest  true  "Proposal"
// @Success      200  {object}  models.MessageResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/staff/quotes/{id}/response [post]
func AddStaffResponse(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff := requireStaff(c, db)
		if staff == nil {
			return
		}

		var req models.StaffResponseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if services.IsTerminalStatus(quote.Status) {
			c.JSON(http.StatusConflict, gin.H{"error": "quote is in a terminal state"})
			return
		}

		staffName := staff.FirstName + " " + staff.LastName
		quote.StaffResponses = append(quote.StaffResponses, models.StaffResponse{
			Timestamp:       time.Now().UTC(),
			StaffID:         staff.ID,
			StaffName:       staffName,
			Message:         req.Message,
			ProposedChanges: req.ProposedChanges,
			ProposedAmount:  req.ProposedAmount,
			Attachments:     req.Attachments,
		})
		services.AppendHistory(quote, models.ActorStaff, staffName, services.ActionStaffProposal, "staff_responses", "", req.Message)

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Response recorded"})
	}
}

type discountRequest struct {
	Kind      string            `json:"kind" binding:"required"`
	Value     float64           `json:"value"`
	Reason    string            `json:"reason,omitempty"`
	ExtraFees []models.ExtraFee `json:"extra_fees,omitempty"`
}

// ApplyDiscount godoc
// @Summary      Set the discount and extra fees, then recompute
// @Tags         staff
// @Accept       json
// @Produce      json
// @Param        Authorization  header    string           true  "Session ID"
// @Param        id             path      string           true  "Quote ID"
// @Param        body           body      discountRequest  true  "Discount"
// @Success      200  {object}  models.Breakdown
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/staff/quotes/{id}/discount [put]
func ApplyDiscount(db *sql.DB, gdb *gorm.DB, geocoder services.Geocoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff := requireStaff(c, db)
		if staff == nil {
			return
		}

		var req discountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Kind != models.DiscountPercentage && req.Kind != models.DiscountFixed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be percentage or fixed"})
			return
		}

		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if services.IsTerminalStatus(quote.Status) {
			c.JSON(http.StatusConflict, gin.H{"error": "quote is in a terminal state"})
			return
		}

		if quote.Amounts == nil {
			quote.Amounts = &models.Breakdown{}
		}
		quote.Amounts.Discount = models.Discount{Kind: req.Kind, Value: req.Value, Reason: req.Reason}
		if req.ExtraFees != nil {
			quote.Amounts.ExtraFees = req.ExtraFees
		}

		if err := RecomputeBreakdown(c, gdb, geocoder, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		staffName := staff.FirstName + " " + staff.LastName
		services.AppendHistory(quote, models.ActorStaff, staffName, "discount_applied", "discount",
			"", fmt.Sprintf("%s %.2f", req.Kind, req.Value))

		if err := repository.UpdateQuote(db, quote); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, quote.Amounts)
	}
}
