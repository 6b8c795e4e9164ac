package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/aniZ2/soledgic-sub004/docs"
	"github.com/aniZ2/soledgic-sub004/internal/database"
	"github.com/aniZ2/soledgic-sub004/internal/handlers"
	mW "github.com/aniZ2/soledgic-sub004/internal/middleware"
	"github.com/aniZ2/soledgic-sub004/internal/services"
)

// @title Soledgic Ledger API
// @version 1.0
// @description Multi-tenant double-entry posting engine
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("api.key_digest", "API_KEY_DIGEST")
	viper.BindEnv("api.key_salt", "API_KEY_SALT")
	viper.BindEnv("invoice.payment_base_url", "INVOICE_PAYMENT_BASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Soledgic Ledger API"
	docs.SwaggerInfo.Description = "Multi-tenant double-entry posting engine"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	audit := services.NewAuditLogger(db)
	webhooks := services.NewWebhookQueue(redisClient)

	postingService := services.NewPostingService(db, audit, webhooks)
	reversalService := services.NewReversalService(db, postingService, audit, webhooks)
	invoiceService := services.NewInvoiceService(db, postingService, audit, webhooks)
	checkoutService := services.NewCheckoutService(db, postingService, audit, webhooks)
	ledgerService := services.NewLedgerService(db, audit)
	accountStore := services.NewAccountStore(db)
	reportService := services.NewReportService(db)

	ledgerHandler := handlers.NewLedgerHandler(ledgerService, accountStore, reportService)
	postingHandler := handlers.NewPostingHandler(postingService, reversalService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Ledger provisioning happens before ledger-scoped credentials exist
		r.Post("/ledgers", ledgerHandler.CreateLedger)

		// Everything else runs in the context of the authenticated ledger
		r.Group(func(r chi.Router) {
			r.Use(mW.LedgerAuth)

			r.Get("/ledger", ledgerHandler.GetLedger)
			r.Put("/ledger/status", ledgerHandler.SetStatus)

			r.Post("/counterparties", ledgerHandler.CreateCounterparty)
			r.Post("/products", ledgerHandler.CreateProduct)

			r.Get("/accounts", ledgerHandler.ListAccounts)
			r.Get("/accounts/{type}/balance", ledgerHandler.GetBalance)

			r.Post("/sales", postingHandler.RecordSale)
			r.Post("/refunds", postingHandler.RecordRefund)
			r.Post("/bills", postingHandler.RecordBill)
			r.Post("/bill-payments", postingHandler.RecordBillPayment)
			r.Post("/payouts", postingHandler.RecordPayout)
			r.Post("/adjustments", postingHandler.RecordAdjustment)

			r.Get("/transactions", postingHandler.ListTransactions)
			r.Get("/transactions/{id}", postingHandler.GetTransaction)
			r.Post("/transactions/{id}/reverse", postingHandler.ReverseTransaction)

			r.Post("/invoices", invoiceHandler.CreateInvoice)
			r.Get("/invoices/{id}", invoiceHandler.GetInvoice)
			r.Post("/invoices/{id}/send", invoiceHandler.SendInvoice)
			r.Post("/invoices/{id}/payments", invoiceHandler.RecordPayment)
			r.Post("/invoices/{id}/void", invoiceHandler.VoidInvoice)

			r.Post("/checkout/sessions", checkoutHandler.CreateSession)
			r.Post("/checkout/sessions/expire", checkoutHandler.ExpireStale)
			r.Get("/checkout/sessions/{id}", checkoutHandler.GetSession)
			r.Post("/checkout/sessions/{id}/collect", checkoutHandler.StartCollecting)
			r.Post("/checkout/sessions/{id}/claim", checkoutHandler.ClaimSession)
			r.Post("/checkout/sessions/{id}/complete", checkoutHandler.CompleteSession)
			r.Post("/checkout/sessions/{id}/retry", checkoutHandler.RetrySettlement)

			r.Get("/reports/trial-balance", ledgerHandler.TrialBalance)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
