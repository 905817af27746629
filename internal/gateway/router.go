package gateway

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"warehouse-system/config"
	"warehouse-system/internal/cache"
	"warehouse-system/internal/database/models"
	"warehouse-system/internal/events"
	"warehouse-system/internal/gateway/handlers"
	"warehouse-system/internal/gateway/middleware"
	"warehouse-system/internal/health"
	"warehouse-system/internal/metrics"
	audithandler "warehouse-system/internal/services/audit/handler"
	inventoryhandler "warehouse-system/internal/services/inventory/handler"
	ledgerhandler "warehouse-system/internal/services/ledger/handler"
	maintenancehandler "warehouse-system/internal/services/maintenance/handler"
	proposalhandler "warehouse-system/internal/services/proposal/handler"
	reportshandler "warehouse-system/internal/services/reports/handler"
	userhandler "warehouse-system/internal/services/user/handler"
	"warehouse-system/internal/storage"
	sysutils "warehouse-system/internal/utils"
)

// Deps is everything the HTTP layer needs. Cache, Publisher, Metrics,
// Documents and Health may be nil.
type Deps struct {
	Config    config.Config
	DB        *gorm.DB
	Cache     *cache.Store
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Tokens    *sysutils.TokenManager
	Documents *storage.DocumentStore
	Health    *health.Checker
}

var (
	catalogEditors = []models.Role{models.RoleAdmin, models.RoleKeeper}
	borrowers      = []models.Role{models.RoleAdmin, models.RoleKeeper, models.RoleStaff}
	auditors       = []models.Role{models.RoleAdmin, models.RoleDirector, models.RoleKeeper}
	proposers      = []models.Role{models.RoleAdmin, models.RoleKeeper, models.RoleStaff}
	approvers      = []models.Role{models.RoleAdmin, models.RoleDirector}
	purchasers     = []models.Role{models.RoleAdmin, models.RoleDirector, models.RoleKeeper}
)

func NewRouter(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config

	audit := audithandler.NewAuditHandler(deps.DB)
	users := userhandler.NewUserHandler(deps.DB, audit, deps.Tokens)
	inventory := inventoryhandler.NewInventoryHandler(deps.DB, audit, deps.Cache)
	ledger := ledgerhandler.NewLedgerHandler(deps.DB, audit, deps.Cache, deps.Publisher, deps.Metrics)
	maintenance := maintenancehandler.NewMaintenanceHandler(deps.DB, audit, deps.Cache)
	reports := reportshandler.NewReportsHandler(deps.DB, deps.Cache)
	proposals := proposalhandler.NewProposalHandler(deps.DB, audit)

	userHTTP := handlers.NewUserHTTPHandler(users, cfg.Auth.AdminPassword)
	inventoryHTTP := handlers.NewInventoryHTTPHandler(inventory)
	ledgerHTTP := handlers.NewLedgerHTTPHandler(ledger)
	maintenanceHTTP := handlers.NewMaintenanceHTTPHandler(maintenance)
	reportHTTP := handlers.NewReportHTTPHandler(reports, audit)
	proposalHTTP := handlers.NewProposalHTTPHandler(proposals)
	documentHTTP := handlers.NewDocumentHTTPHandler(deps.Documents)

	checker := deps.Health
	if checker == nil {
		checker = health.NewChecker(cfg.ServiceName)
	}
	healthHTTP := handlers.NewHealthHTTPHandler(checker)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.StructuredLogging(deps.Metrics))
	r.Use(middleware.CORS(cfg.HTTP.CORSOrigins))

	r.GET("/health", healthHTTP.Health)
	r.GET("/health/detailed", healthHTTP.Detailed)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.RateLimit.Rate != "" {
		limit, err := middleware.RateLimit(cfg.RateLimit.Rate)
		if err != nil {
			return nil, err
		}
		api.Use(limit)
	}

	// --- Public API Group ---
	{
		api.POST("/auth/login", userHTTP.Login)
		api.POST("/init-data", userHTTP.InitData)
	}

	// --- Protected API Group ---
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(deps.Tokens))
	{
		protected.GET("/auth/me", userHTTP.Me)

		usersGroup := protected.Group("/users", middleware.RequireRole(models.RoleAdmin))
		{
			usersGroup.GET("", userHTTP.ListUsers)
			usersGroup.POST("", userHTTP.CreateUser)
			usersGroup.DELETE("/:id", userHTTP.DeleteUser)
		}

		editors := middleware.RequireRole(catalogEditors...)

		warehouses := protected.Group("/warehouses")
		{
			warehouses.GET("", inventoryHTTP.ListWarehouses)
			warehouses.GET("/:id", inventoryHTTP.GetWarehouse)
			warehouses.POST("", editors, inventoryHTTP.CreateWarehouse)
			warehouses.PUT("/:id", editors, inventoryHTTP.UpdateWarehouse)
			warehouses.DELETE("/:id", editors, inventoryHTTP.DeleteWarehouse)
		}

		suppliers := protected.Group("/suppliers")
		{
			suppliers.GET("", inventoryHTTP.ListSuppliers)
			suppliers.GET("/:id", inventoryHTTP.GetSupplier)
			suppliers.POST("", editors, inventoryHTTP.CreateSupplier)
			suppliers.PUT("/:id", editors, inventoryHTTP.UpdateSupplier)
			suppliers.DELETE("/:id", editors, inventoryHTTP.DeleteSupplier)
		}

		materials := protected.Group("/materials")
		{
			materials.GET("", inventoryHTTP.ListMaterials)
			materials.GET("/:id", inventoryHTTP.GetMaterial)
			materials.POST("", editors, inventoryHTTP.CreateMaterial)
			materials.PUT("/:id", editors, inventoryHTTP.UpdateMaterial)
			materials.DELETE("/:id", editors, inventoryHTTP.DeleteMaterial)
		}

		transactions := protected.Group("/transactions")
		{
			transactions.GET("", ledgerHTTP.ListTransactions)
			transactions.GET("/borrows", ledgerHTTP.ListBorrows)
			transactions.POST("/in", editors, ledgerHTTP.StockIn)
			transactions.POST("/out", editors, ledgerHTTP.StockOut)
			transactions.POST("/borrow", middleware.RequireRole(borrowers...), ledgerHTTP.Borrow)
			transactions.POST("/return", middleware.RequireRole(borrowers...), ledgerHTTP.Return)
		}

		checks := protected.Group("/inventory-checks")
		{
			checks.GET("", ledgerHTTP.ListInventoryChecks)
			checks.POST("", editors, ledgerHTTP.CreateInventoryCheck)
		}

		maintenanceGroup := protected.Group("/maintenance")
		{
			maintenanceGroup.GET("/schedules", maintenanceHTTP.ListSchedules)
			maintenanceGroup.POST("/schedules", editors, maintenanceHTTP.CreateSchedule)
			maintenanceGroup.DELETE("/schedules/:id", editors, maintenanceHTTP.DeleteSchedule)
			maintenanceGroup.POST("/schedules/:id/complete", editors, maintenanceHTTP.Complete)
			maintenanceGroup.GET("/logs", maintenanceHTTP.ListLogs)
		}

		proposalsGroup := protected.Group("/proposals")
		{
			proposalsGroup.GET("", proposalHTTP.ListProposals)
			proposalsGroup.GET("/:id", proposalHTTP.GetProposal)
			proposalsGroup.POST("", middleware.RequireRole(proposers...), proposalHTTP.CreateProposal)
			proposalsGroup.PUT("/:id", middleware.RequireRole(proposers...), proposalHTTP.UpdateProposal)
			proposalsGroup.DELETE("/:id", middleware.RequireRole(proposers...), proposalHTTP.DeleteProposal)
			proposalsGroup.POST("/:id/approve", middleware.RequireRole(approvers...), proposalHTTP.Approve)
			proposalsGroup.POST("/:id/reject", middleware.RequireRole(approvers...), proposalHTTP.Reject)
			proposalsGroup.POST("/:id/purchased", middleware.RequireRole(purchasers...), proposalHTTP.MarkPurchased)
		}

		protected.GET("/logs", middleware.RequireRole(auditors...), reportHTTP.ListLogs)

		reportsGroup := protected.Group("/reports")
		{
			reportsGroup.GET("/dashboard", reportHTTP.Dashboard)
			reportsGroup.GET("/monthly", middleware.RequireRole(auditors...), reportHTTP.MonthlyReport)
		}

		protected.POST("/documents", editors, documentHTTP.Upload)
	}

	return r, nil
}
