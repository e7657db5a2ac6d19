package router

import (
	"net/http"

	"github.com/Evaldo-hub/associacaoufpa/internal/config"
	"github.com/Evaldo-hub/associacaoufpa/internal/handler"
	"github.com/Evaldo-hub/associacaoufpa/internal/middleware"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and the /api routes.
func SetupRouter(cfg *config.Config, db *gorm.DB, svc *service.Services, clock clockwork.Clock) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ====== API ======
	api := r.Group("/api")

	authHandler := handler.NewAuthHandler(svc.Users, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)
	api.POST("/auth/login", authHandler.Login)

	// everything below requires a valid token
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret, db),
		middleware.AccessLog(db),
	)
	admin := protected.Group("")
	admin.Use(middleware.AdminOnly())

	protected.GET("/me", authHandler.Me)
	protected.POST("/me/password", authHandler.ChangePassword)

	playerHandler := handler.NewPlayerHandler(svc.Players)
	protected.GET("/players", playerHandler.List)
	protected.GET("/players/:id", playerHandler.Get)
	admin.POST("/players", playerHandler.Create)
	admin.PUT("/players/:id", playerHandler.Update)
	admin.POST("/players/:id/toggle", playerHandler.Toggle)
	admin.POST("/players/import", playerHandler.ImportCSV)

	matchHandler := handler.NewMatchHandler(svc.Matches, svc.Settlement)
	protected.GET("/matches", matchHandler.List)
	protected.GET("/matches/:id", matchHandler.Sheet)
	admin.POST("/matches", matchHandler.Create)
	admin.PUT("/matches/:id", matchHandler.Update)
	admin.DELETE("/matches/:id", matchHandler.Delete)
	admin.PUT("/matches/:id/score", matchHandler.RecordScore)
	admin.PUT("/matches/:id/report", matchHandler.RecordReport)
	// players confirm themselves here; the service decides what they may change
	protected.POST("/matches/:id/participants", matchHandler.AddParticipant)
	protected.PUT("/matches/:id/attendance", matchHandler.UpdateAttendance)
	admin.DELETE("/matches/:id/participants/:player_id", matchHandler.RemoveParticipant)
	admin.POST("/matches/:id/participants/:player_id/retract", matchHandler.RetractPayment)

	ledgerHandler := handler.NewLedgerHandler(svc.Ledger, svc.Reports)
	protected.GET("/ledger", ledgerHandler.Statement)
	protected.GET("/ledger/:id", ledgerHandler.Get)
	admin.POST("/ledger/income", ledgerHandler.Income)
	admin.POST("/ledger/expense", ledgerHandler.Expense)
	admin.POST("/ledger/:id/reverse", ledgerHandler.Reverse)
	admin.GET("/audits", ledgerHandler.Audits)

	duesHandler := handler.NewDuesHandler(svc.Dues, decimal.NewFromFloat(cfg.Club.DefaultDues))
	protected.GET("/dues", duesHandler.List)
	admin.POST("/dues", duesHandler.Post)
	admin.POST("/dues/:id/reverse", duesHandler.Reverse)

	exportHandler := handler.NewExportHandler(svc.Reports, svc.Dues, clock)
	protected.GET("/export/ledger.csv", exportHandler.CSV)
	protected.GET("/export/ledger.xlsx", exportHandler.XLSX)
	protected.GET("/export/dues.xlsx", exportHandler.DuesXLSX)

	reportHandler := handler.NewReportHandler(svc.Reports)
	protected.GET("/reports/dashboard", reportHandler.Dashboard)
	protected.GET("/reports/rankings", reportHandler.Rankings)
	protected.GET("/reports/scores", reportHandler.Scores)

	userHandler := handler.NewUserHandler(svc.Users)
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Grant)
	admin.PUT("/users/:id/password", userHandler.SetPassword)
	admin.DELETE("/users/:id", userHandler.Remove)

	logHandler := handler.NewLogHandler(db)
	protected.GET("/logs", logHandler.ListLogs)

	return r
}
