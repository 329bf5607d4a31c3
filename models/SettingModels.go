package models

import "time"

// PricingSettings is the single source of truth for every configurable
// pricing input. Module-level defaults only seed the first row; all
// computations read the stored values.
type PricingSettings struct {
	ID                 int       `json:"id" gorm:"primaryKey"`
	RatePerKm          float64   `json:"rate_per_km" gorm:"column:rate_per_km" example:"0.5"`
	FreeKmAllowance    float64   `json:"free_km_allowance" gorm:"column:free_km_allowance" example:"30"`
	BaseAddress        string    `json:"base_address" gorm:"column:base_address" example:"18 avenue des Fêtes, 69003 Lyon"`
	DefaultVATRate     float64   `json:"default_vat_rate" gorm:"column:default_vat_rate" example:"20"`
	DefaultDepositPct  float64   `json:"default_deposit_pct" gorm:"column:default_deposit_pct" example:"30"`
	ValidityDays       int       `json:"validity_days" gorm:"column:validity_days" example:"30"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (PricingSettings) TableName() string {
	return "pricing_settings"
}

// Seed values written when no pricing_settings row exists yet.
const (
	DefaultRatePerKm      = 0.50
	DefaultFreeKm         = 30.0
	DefaultVATRate        = 20.0
	DefaultDepositPercent = 30.0
	DefaultValidityDays   = 30
	DefaultBaseAddress    = "18 avenue des Fêtes, 69003 Lyon"
)

// CompanyProfile is the static business identity stamped on documents.
type CompanyProfile struct {
	Name        string `json:"name" example:"Éclat Événements"`
	Slogan      string `json:"slogan,omitempty" example:"Des événements qui vous ressemblent"`
	Address     string `json:"address" example:"18 avenue des Fêtes, 69003 Lyon"`
	Phone       string `json:"phone" example:"+33478000000"`
	Email       string `json:"email" example:"contact@eclat-evenements.fr"`
	Website     string `json:"website,omitempty" example:"https://eclat-evenements.fr"`
	SIRET       string `json:"siret,omitempty" example:"123 456 789 00012"`
	VATNumber   string `json:"vat_number,omitempty" example:"FR12345678900"`
	TrackingURL string `json:"tracking_url,omitempty" example:"https://eclat-evenements.fr/devis"`
}

// CatalogService is a bookable service from the catalog; its price fields are
// snapshotted into quote line items at selection time.
type CatalogService struct {
	ID               int     `json:"id" gorm:"primaryKey"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	ProviderID       int     `json:"provider_id"`
	UnitPrice        float64 `json:"unit_price"`
	WeekendSurcharge float64 `json:"weekend_surcharge"`
	NightSurcharge   float64 `json:"night_surcharge"`
	Active           bool    `json:"active" gorm:"default:true"`
}

func (CatalogService) TableName() string {
	return "catalog_services"
}

// CatalogEquipment is a rentable equipment item from the catalog.
type CatalogEquipment struct {
	ID          int     `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ProviderID  int     `json:"provider_id"`
	DailyPrice  float64 `json:"daily_price"`
	WeeklyPrice float64 `json:"weekly_price"`
	Deposit     float64 `json:"deposit"`
	DeliveryFee float64 `json:"delivery_fee"`
	InstallFee  float64 `json:"install_fee"`
	Active      bool    `json:"active" gorm:"default:true"`
}

func (CatalogEquipment) TableName() string {
	return "catalog_equipment"
}
