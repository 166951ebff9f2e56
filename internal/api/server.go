// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kosha-finance/internal/logging"
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/service"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/types"
)

// Service interfaces for dependency injection and testing

// DashboardServiceInterface defines the dashboard operations
type DashboardServiceInterface interface {
	GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*service.DashboardSummary, error)
	GetHealthMetrics(ctx context.Context, userID string, period types.Period) (*service.HealthMetrics, error)
	GetTrends(ctx context.Context, userID string, period types.Period, metric types.TrendMetric) ([]service.TrendPoint, error)
}

// InvestmentServiceInterface defines the investment operations
type InvestmentServiceInterface interface {
	AddAsset(ctx context.Context, input *service.AddAssetInput) (*models.Asset, error)
	UpdateAsset(ctx context.Context, input *service.UpdateAssetInput) (*models.Asset, error)
	AddTransaction(ctx context.Context, input *service.AddTransactionInput) (*models.AssetTransaction, error)
	UpdateTransaction(ctx context.Context, input *service.UpdateTransactionInput) (*models.AssetTransaction, error)
	DeleteTransaction(ctx context.Context, transactionID, userID string) error
	GetTransactionHistory(ctx context.Context, userID string, filters *storage.TransactionFilters, limit, offset int) ([]*models.AssetTransaction, int, error)
	RecordPrice(ctx context.Context, input *service.RecordPriceInput) (*models.AssetPrice, error)
	GetPriceHistory(ctx context.Context, symbol string, startDate, endDate time.Time) ([]models.PricePoint, error)
	ListInvestments(ctx context.Context, userID string, assetType *types.AssetType) ([]*service.AssetValuation, error)
	GetPortfolioSummary(ctx context.Context, userID string) (*service.PortfolioSummary, error)
}

// BillServiceInterface defines the bill operations
type BillServiceInterface interface {
	CreateBill(ctx context.Context, input *service.CreateBillInput) (*models.Bill, error)
	ListBills(ctx context.Context, userID string, filters *storage.BillFilters, limit, offset int) (*service.BillPage, error)
	ListUpcomingBills(ctx context.Context, userID string, days int) ([]*models.Bill, error)
	MarkPaid(ctx context.Context, billID, userID string, paymentID *string) (*models.Bill, error)
	ImportStatements(ctx context.Context, userID string) (*service.ImportResult, error)
}

// LedgerServiceInterface is the shared surface of the income and
// expense domains; the summary shapes differ, so those are separate.
type LedgerServiceInterface interface {
	RecordEntry(ctx context.Context, input *service.RecordEntryInput) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, userID string, startDate, endDate *time.Time, limit, offset int) ([]*models.LedgerEntry, error)
	DeleteEntry(ctx context.Context, userID, id string) error
	ImportStatements(ctx context.Context, userID string) (*service.ImportResult, error)
}

// IncomeServiceInterface defines the income operations
type IncomeServiceInterface interface {
	LedgerServiceInterface
	GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error)
}

// ExpenseServiceInterface defines the expense operations
type ExpenseServiceInterface interface {
	LedgerServiceInterface
	GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.ExpenseSummary, error)
}

// NotificationServiceInterface defines the notification operations
type NotificationServiceInterface interface {
	Schedule(ctx context.Context, input *service.ScheduleInput) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error)
	GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) error
}

// Server represents the HTTP API server.
type Server struct {
	router              *mux.Router
	httpServer          *http.Server
	dashboardService    DashboardServiceInterface
	investmentService   InvestmentServiceInterface
	billService         BillServiceInterface
	incomeService       IncomeServiceInterface
	expenseService      ExpenseServiceInterface
	notificationService NotificationServiceInterface
	config              *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	JWTSecret         string
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	dashboardService DashboardServiceInterface,
	investmentService InvestmentServiceInterface,
	billService BillServiceInterface,
	incomeService IncomeServiceInterface,
	expenseService ExpenseServiceInterface,
	notificationService NotificationServiceInterface,
) *Server {
	s := &Server{
		router:              mux.NewRouter(),
		dashboardService:    dashboardService,
		investmentService:   investmentService,
		billService:         billService,
		incomeService:       incomeService,
		expenseService:      expenseService,
		notificationService: notificationService,
		config:              config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Middleware order matters: logging first, auth before rate
	// limiting so the bucket is keyed by user.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(s.config.JWTSecret))
	api.Use(RateLimitMiddleware(rateLimiter))
	s.setupRoutes(api)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes(api *mux.Router) {
	// Dashboard endpoints
	api.HandleFunc("/dashboard/summary", s.handleGetSummary).Methods("GET")
	api.HandleFunc("/dashboard/health", s.handleGetHealthMetrics).Methods("GET")
	api.HandleFunc("/dashboard/trends", s.handleGetTrends).Methods("GET")

	// Investment endpoints
	api.HandleFunc("/investments", s.handleListInvestments).Methods("GET")
	api.HandleFunc("/investments/portfolio", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/investments/assets", s.handleAddAsset).Methods("POST")
	api.HandleFunc("/investments/assets/{id}", s.handleUpdateAsset).Methods("PUT")
	api.HandleFunc("/investments/transactions", s.handleAddTransaction).Methods("POST")
	api.HandleFunc("/investments/transactions", s.handleGetTransactionHistory).Methods("GET")
	api.HandleFunc("/investments/transactions/{id}", s.handleUpdateTransaction).Methods("PUT")
	api.HandleFunc("/investments/transactions/{id}", s.handleDeleteTransaction).Methods("DELETE")
	api.HandleFunc("/investments/prices", s.handleRecordPrice).Methods("POST")
	api.HandleFunc("/investments/prices/{symbol}/history", s.handleGetPriceHistory).Methods("GET")

	// Bill endpoints
	api.HandleFunc("/bills", s.handleCreateBill).Methods("POST")
	api.HandleFunc("/bills", s.handleListBills).Methods("GET")
	api.HandleFunc("/bills/upcoming", s.handleListUpcomingBills).Methods("GET")
	api.HandleFunc("/bills/import", s.handleImportBills).Methods("POST")
	api.HandleFunc("/bills/{id}/pay", s.handleMarkBillPaid).Methods("POST")

	// Income endpoints
	api.HandleFunc("/income", s.handleRecordIncome).Methods("POST")
	api.HandleFunc("/income", s.handleListIncome).Methods("GET")
	api.HandleFunc("/income/summary", s.handleIncomeSummary).Methods("GET")
	api.HandleFunc("/income/import", s.handleImportIncome).Methods("POST")
	api.HandleFunc("/income/{id}", s.handleDeleteIncome).Methods("DELETE")

	// Expense endpoints
	api.HandleFunc("/expenses", s.handleRecordExpense).Methods("POST")
	api.HandleFunc("/expenses", s.handleListExpenses).Methods("GET")
	api.HandleFunc("/expenses/summary", s.handleExpenseSummary).Methods("GET")
	api.HandleFunc("/expenses/import", s.handleImportExpenses).Methods("POST")
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods("DELETE")

	// Notification endpoints
	api.HandleFunc("/notifications", s.handleListNotifications).Methods("GET")
	api.HandleFunc("/notifications", s.handleScheduleNotification).Methods("POST")
	api.HandleFunc("/notifications/preferences", s.handleGetPreferences).Methods("GET")
	api.HandleFunc("/notifications/preferences", s.handleUpdatePreferences).Methods("PUT")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "kosha-finance",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}
