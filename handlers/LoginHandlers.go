package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"backend/models"
	"backend/storage"
	"backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LoginHandler authenticates a staff member.
// @Summary Staff login
// @Description Authenticate a staff member and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/login [post]
func LoginHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginData models.LoginRequest
		if err := c.ShouldBindJSON(&loginData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		staff, err := storage.GetStaffByEmail(db, loginData.Email)
		if err != nil || !utils.ValidatePassword(staff.Password, loginData.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		accessToken, err := utils.GenerateJWT(staff.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		ip := loginData.IP
		if ip == "" {
			ip = c.ClientIP()
		}

		session := models.Session{
			StaffID:   staff.ID,
			SessionID: uuid.New().String(),
			IPAddress: ip,
			Timestamp: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		}
		if err := storage.SaveSession(db, &session); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Message:     "Staff member successfully logged in",
			AccessToken: accessToken,
			SessionID:   session.SessionID,
			StaffID:     staff.ID,
			StaffName:   staff.FirstName + " " + staff.LastName,
		})
	}
}

// RefreshTokenHandler exchanges a still-valid access token for a fresh one.
// @Summary Refresh access token
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/refresh-token [post]
func RefreshTokenHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is required"})
			return
		}

		parsed, err := utils.ValidateJWT(token)
		if err != nil || !parsed.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims structure"})
			return
		}
		email, ok := claims["email"].(string)
		if !ok || email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email claim missing or invalid"})
			return
		}

		if _, err := storage.GetStaffByEmail(db, email); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Staff member not found"})
			return
		}

		fresh, err := utils.GenerateJWT(email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"access_token": fresh})
	}
}

// LogoutHandler closes a staff session.
// @Summary Staff logout
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Session ID"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/logout [post]
func LogoutHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session-id header is required"})
			return
		}

		if err := storage.DeleteSessionByID(db, sessionID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
