package routes

import (
	"net/http"
	"time"

	"github.com/LovationAdmin/expensewise-api/config"
	"github.com/LovationAdmin/expensewise-api/handlers"
	"github.com/LovationAdmin/expensewise-api/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the engine with every route mounted at the root and
// again under /api.
func NewRouter(cfg *config.Config, h *handlers.Handler, log logrus.FieldLogger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(cors.New(corsConfig(cfg.FrontendURL)))

	if cfg.RateLimitPerMinute > 0 {
		router.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware())
	}

	router.GET("/health", h.Health)

	for _, rg := range []*gin.RouterGroup{&router.RouterGroup, router.Group("/api")} {
		SetupLedgerRoutes(rg, h)
		SetupReportRoutes(rg, h)
		SetupAdvisorRoutes(rg, h)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route not found"})
	})
	return router
}

func corsConfig(frontendURL string) cors.Config {
	origins := []string{frontendURL}
	if frontendURL == "*" {
		origins = nil
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowAllOrigins:  frontendURL == "*",
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: frontendURL != "*",
		MaxAge:           12 * time.Hour,
	}
}

// SetupLedgerRoutes sets up expense, category, budget and state routes.
func SetupLedgerRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.GET("/expenses", h.GetExpenses)
	rg.POST("/expenses", h.CreateExpense)
	rg.POST("/expenses/reset", h.ResetExpenses)
	rg.PUT("/expenses/:id", h.UpdateExpense)
	rg.DELETE("/expenses/:id", h.DeleteExpense)

	rg.GET("/categories", h.GetCategories)
	rg.POST("/categories", h.CreateCategory)
	rg.POST("/categories/suggest-icon", h.SuggestIcon)
	rg.DELETE("/categories/:name", h.DeleteCategory)
	rg.GET("/icons", h.GetIcons)

	rg.GET("/budgets", h.GetBudgets)
	rg.POST("/budgets", h.SetBudget)

	rg.GET("/state", h.GetState)
	rg.POST("/state", h.UpdateState)
}

// SetupReportRoutes sets up read-only reporting and export routes.
func SetupReportRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.GET("/reports/summary", h.GetSummary)
	rg.GET("/reports/expenses", h.GetExpenseReport)
	rg.GET("/reports/expenses.csv", h.ExportCSV)
	rg.GET("/reports/expenses.xlsx", h.ExportXLSX)
}

func SetupAdvisorRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.POST("/advisor/analysis", h.AnalyzeSpending)
}
