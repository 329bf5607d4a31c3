package repository

import (
	"errors"
	"fmt"
	"time"

	"backend/models"
	"backend/services"

	"gorm.io/gorm"
)

// Catalog entities and pricing settings go through GORM; the quote aggregate
// stays on raw SQL for its compare-and-swap writes.

// EnsureCatalogSchema migrates the catalog and settings tables.
func EnsureCatalogSchema(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.CatalogService{},
		&models.CatalogEquipment{},
		&models.PricingSettings{},
	)
}

// GetCatalogService loads one active catalog service for line-item
// snapshotting.
func GetCatalogService(gdb *gorm.DB, id int) (*models.CatalogService, error) {
	var svc models.CatalogService
	err := gdb.Where("id = ? AND active = ?", id, true).First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &services.NotFoundError{Entity: "catalog service", ID: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

// GetCatalogEquipment loads one active catalog equipment item.
func GetCatalogEquipment(gdb *gorm.DB, id int) (*models.CatalogEquipment, error) {
	var eq models.CatalogEquipment
	err := gdb.Where("id = ? AND active = ?", id, true).First(&eq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &services.NotFoundError{Entity: "catalog equipment", ID: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, err
	}
	return &eq, nil
}

// ListCatalogServices returns the active services, for the wizard's service
// step.
func ListCatalogServices(gdb *gorm.DB) ([]models.CatalogService, error) {
	var out []models.CatalogService
	err := gdb.Where("active = ?", true).Order("category, name").Find(&out).Error
	return out, err
}

// ListCatalogEquipment returns the active equipment items.
func ListCatalogEquipment(gdb *gorm.DB) ([]models.CatalogEquipment, error) {
	var out []models.CatalogEquipment
	err := gdb.Where("active = ?", true).Order("category, name").Find(&out).Error
	return out, err
}

// GetPricingSettings returns the settings row, seeding the defaults on first
// read. The stored row is the single source of truth for every pricing
// input; the constants only bootstrap it.
func GetPricingSettings(gdb *gorm.DB) (*models.PricingSettings, error) {
	var s models.PricingSettings
	err := gdb.First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = models.PricingSettings{
			RatePerKm:         models.DefaultRatePerKm,
			FreeKmAllowance:   models.DefaultFreeKm,
			BaseAddress:       models.DefaultBaseAddress,
			DefaultVATRate:    models.DefaultVATRate,
			DefaultDepositPct: models.DefaultDepositPercent,
			ValidityDays:      models.DefaultValidityDays,
			UpdatedAt:         time.Now().UTC(),
		}
		if err := gdb.Create(&s).Error; err != nil {
			return nil, fmt.Errorf("failed to seed pricing settings: %v", err)
		}
		return &s, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdatePricingSettings overwrites the settings row.
func UpdatePricingSettings(gdb *gorm.DB, s *models.PricingSettings) error {
	current, err := GetPricingSettings(gdb)
	if err != nil {
		return err
	}
	s.ID = current.ID
	s.UpdatedAt = time.Now().UTC()
	return gdb.Save(s).Error
}
