package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"backend/models"
	"backend/services"
	"backend/storage"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Validation and transition failures carry enough detail for the client to
// correct itself.
func respondServiceError(c *gin.Context, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
		return
	}

	var ste *services.StateTransitionError
	if errors.As(err, &ste) {
		c.JSON(http.StatusConflict, gin.H{"error": "illegal transition", "from": ste.From, "to": ste.To})
		return
	}

	var nfe *services.NotFoundError
	if errors.As(err, &nfe) {
		c.JSON(http.StatusNotFound, gin.H{"error": nfe.Error()})
		return
	}

	var ce *services.ConflictError
	if errors.As(err, &ce) {
		c.JSON(http.StatusConflict, gin.H{"error": "quote was modified concurrently, reload and retry"})
		return
	}

	var re *services.RenderError
	if errors.As(err, &re) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": re.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// requireStaff resolves the Authorization header to an authenticated staff
// member, or writes the error response and returns nil.
func requireStaff(c *gin.Context, db *sql.DB) *models.Staff {
	sessionID := c.GetHeader("Authorization")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session-id header is required"})
		return nil
	}

	staff, err := storage.GetStaffBySessionID(db, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
		return nil
	}
	return staff
}

// DefaultCompanyProfile is the business identity injected into documents
// and notifications.
func DefaultCompanyProfile() models.CompanyProfile {
	return models.CompanyProfile{
		Name:        "Éclat Événements",
		Slogan:      "Des événements qui vous ressemblent",
		Address:     "18 avenue des Fêtes, 69003 Lyon",
		Phone:       "+33 4 78 00 00 00",
		Email:       "contact@eclat-evenements.fr",
		Website:     "https://eclat-evenements.fr",
		SIRET:       "123 456 789 00012",
		VATNumber:   "FR12345678900",
		TrackingURL: "https://eclat-evenements.fr/devis",
	}
}
