package handlers

import (
	"database/sql"
	"net/http"

	"backend/models"
	"backend/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetPricingSettings godoc
// @Summary      Fetch the pricing settings
// @Tags         staff
// @Produce      json
// @Param        Authorization  header    string  true  "Session ID"
// @Success      200  {object}  models.PricingSettings
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/staff/settings [get]
func GetPricingSettings(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requireStaff(c, db) == nil {
			return
		}

		settings, err := repository.GetPricingSettings(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

// UpdatePricingSettings godoc
// @Summary      Update the pricing settings
// @Tags         staff
// @Accept       json
// @Produce      json
// @Param        Authorization  header    string                  true  "Session ID"
// @Param        body           body      models.PricingSettings  true  "New settings"
// @Success      200  {object}  models.PricingSettings
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/staff/settings [put]
func UpdatePricingSettings(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requireStaff(c, db) == nil {
			return
		}

		var req models.PricingSettings
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.RatePerKm < 0 || req.FreeKmAllowance < 0 || req.DefaultVATRate < 0 ||
			req.DefaultDepositPct < 0 || req.DefaultDepositPct > 100 || req.ValidityDays <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "settings values out of range"})
			return
		}

		current, err := repository.GetPricingSettings(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		current.RatePerKm = req.RatePerKm
		current.FreeKmAllowance = req.FreeKmAllowance
		if req.BaseAddress != "" {
			current.BaseAddress = req.BaseAddress
		}
		current.DefaultVATRate = req.DefaultVATRate
		current.DefaultDepositPct = req.DefaultDepositPct
		current.ValidityDays = req.ValidityDays

		if err := repository.UpdatePricingSettings(gdb, current); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, current)
	}
}

// ListCatalogServices godoc
// @Summary      List active catalog services
// @Tags         catalog
// @Produce      json
// @Success      200  {array}  models.CatalogService
// @Router       /api/catalog/services [get]
func ListCatalogServices(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repository.ListCatalogServices(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// ListCatalogEquipment godoc
// @Summary      List active catalog equipment
// @Tags         catalog
// @Produce      json
// @Success      200  {array}  models.CatalogEquipment
// @Router       /api/catalog/equipment [get]
func ListCatalogEquipment(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repository.ListCatalogEquipment(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}
