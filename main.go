// @title           Éclat Événements API
// @version         1.0
// @description     Event services quote backend - wizard, pricing, documents and staff review.

// @contact.name   API Support
// @contact.url    https://eclat-evenements.fr

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080

// @BasePath  /

// @securityDefinitions.apikey SessionAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	_ "backend/docs"
	"backend/handlers"
	"backend/repository"
	"backend/services"
	"backend/storage"
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var sweepRunning int32

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()

	corsConfig.AllowOrigins = []string{
		"http://localhost:3000",
		"https://eclat-evenements.fr",
	}

	corsConfig.AllowCredentials = true

	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}

	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS",
	}

	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

// runExpirySweep expires quotes whose validity window has passed. Each quote
// is re-read and written with its version check, so a concurrent staff action
// wins and the sweep simply skips that quote.
func runExpirySweep(db *sql.DB, email *services.EmailService) error {
	now := time.Now().UTC()
	ids, err := repository.ListExpirableQuoteIDs(db, now)
	if err != nil {
		return err
	}

	for _, id := range ids {
		quote, err := repository.GetQuoteByID(db, id)
		if err != nil {
			log.Printf("expiry sweep: fetch %s: %v", id, err)
			continue
		}

		expired, err := services.ExpireIfStale(quote, now)
		if err != nil || !expired {
			continue
		}

		if err := repository.UpdateQuote(db, quote); err != nil {
			log.Printf("expiry sweep: update %s: %v", id, err)
			continue
		}

		email.NotifyStatusChange(quote, quote.Status, handlers.DefaultCompanyProfile())
	}
	return nil
}

func main() {
	db := storage.InitDB()
	defer db.Close()

	gdb := storage.InitGormDB()

	if err := repository.EnsureQuoteSchema(db); err != nil {
		log.Fatalf("Failed to ensure quote schema: %v", err)
	}
	if err := storage.EnsureAuthSchema(db); err != nil {
		log.Fatalf("Failed to ensure auth schema: %v", err)
	}
	if err := repository.EnsureCatalogSchema(gdb); err != nil {
		log.Fatalf("Failed to ensure catalog schema: %v", err)
	}

	email := services.NewEmailService()
	geocoder := services.NewHTTPGeocoder(os.Getenv("GEOCODER_URL"))

	// Hourly sweep: expire quotes past their validity window.
	cr := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)
	_, err := cr.AddFunc("@hourly", func() {
		if !atomic.CompareAndSwapInt32(&sweepRunning, 0, 1) {
			log.Println("Previous expiry sweep still running. Skipping this run.")
			return
		}
		defer atomic.StoreInt32(&sweepRunning, 0)

		if err := runExpirySweep(db, email); err != nil {
			log.Printf("Expiry sweep failed: %v", err)
		}
		if err := storage.CleanupExpiredSessions(db); err != nil {
			log.Printf("Session cleanup failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	cr.Start()

	r := gin.Default()
	r.Use(cors.New(CORSConfig()))

	// ==================== 1. AUTH ====================
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh-token", handlers.RefreshTokenHandler(db))
	r.POST("/api/logout", handlers.LogoutHandler(db))

	// ==================== 2. CLIENT QUOTE WIZARD ====================
	r.POST("/api/quotes/draft", handlers.CreateQuoteDraft(db, gdb))
	r.PUT("/api/quotes/:id/step", handlers.SaveQuoteStep(db, gdb, geocoder))
	r.POST("/api/quotes/:id/back", handlers.GoBackStep(db))
	r.POST("/api/quotes/:id/submit", handlers.SubmitQuote(db, email))
	r.GET("/api/quotes/:id", handlers.GetQuote(db))
	r.POST("/api/quotes/:id/proposal-response", handlers.RespondToProposal(db, email))
	r.POST("/api/quotes/:id/signature", handlers.SignQuote(db))

	// ==================== 3. DOCUMENTS ====================
	r.GET("/api/quotes/:id/document", handlers.GetQuoteDocument(db))
	r.GET("/api/quotes/:id/qrcode", handlers.GenerateQuoteQRCode(db))

	// ==================== 4. CATALOG ====================
	r.GET("/api/catalog/services", handlers.ListCatalogServices(gdb))
	r.GET("/api/catalog/equipment", handlers.ListCatalogEquipment(gdb))

	// ==================== 5. STAFF REVIEW ====================
	r.GET("/api/staff/quotes", handlers.ListQuotes(db))
	r.PUT("/api/staff/quotes/:id/status", handlers.UpdateQuoteStatus(db, email))
	r.POST("/api/staff/quotes/:id/response", handlers.AddStaffResponse(db))
	r.PUT("/api/staff/quotes/:id/discount", handlers.ApplyDiscount(db, gdb, geocoder))
	r.GET("/api/staff/quotes/export", handlers.ExportQuotesXLSX(db))

	// ==================== 6. SETTINGS ====================
	r.GET("/api/staff/settings", handlers.GetPricingSettings(db, gdb))
	r.PUT("/api/staff/settings", handlers.UpdatePricingSettings(db, gdb))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := cr.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(20 * time.Second):
		log.Println("Warning: cron jobs did not finish before shutdown")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
