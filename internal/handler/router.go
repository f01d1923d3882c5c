package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smarttrack/internal/auth"
	"smarttrack/internal/httpmiddleware"
	"smarttrack/internal/model"
	"smarttrack/internal/netprobe"
)

// Router wires every route onto a new gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	origins := h.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", netprobe.Header},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(securityHeaders())

	publicLimit := h.limiter("public", h.cfg.RateLimitPerMin).Middleware(httpmiddleware.ClientIP)
	accountLimit := h.limiter("account", h.cfg.RateLimitPerMin).Middleware(httpmiddleware.Subject)
	loginLimit := h.limiter("login", h.cfg.LoginPerMin).Middleware(httpmiddleware.ClientIP)
	scanLimit := h.limiter("scan", h.cfg.ScansPerMin).Middleware(httpmiddleware.Subject)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	public := v1.Group("", publicLimit)
	{
		public.POST("/devices", h.NewDevice)
		public.POST("/users/register", h.Register)
		public.POST("/auth/login", loginLimit, h.Login)
		public.POST("/auth/refresh", h.Refresh)
	}

	staff := v1.Group("", h.requireRole(model.RoleStaff), accountLimit)
	{
		staff.POST("/periods", h.CreatePeriod)
		staff.GET("/periods", h.ListPeriods)
		staff.GET("/periods/:id/qr.png", h.ownPeriod, h.PeriodQR)
		staff.GET("/periods/:id/records", h.ownPeriod, h.PeriodRecords)
		staff.GET("/periods/:id/report.csv", h.ownPeriod, h.ReportCSV)
		staff.GET("/periods/:id/report.xlsx", h.ownPeriod, h.ReportXLSX)
		staff.GET("/sessions/current", h.CurrentSession)
		staff.DELETE("/sessions/current", h.DismissSession)
		staff.GET("/sessions/current/countdown", h.Countdown)
	}

	student := v1.Group("", h.requireRole(model.RoleStudent), accountLimit, h.requireBinding)
	{
		student.POST("/scans", scanLimit, h.Scan)
		student.POST("/scans/frame", scanLimit, h.ScanFrame)
		student.POST("/scans/arm", h.ArmScanner)
		student.GET("/attendance", h.History)
	}

	adm := v1.Group("/admin", h.requireRole(model.RoleAdmin), accountLimit)
	{
		adm.GET("/users", h.ListUsers)
		adm.DELETE("/users/:id", h.DeleteUser)
		adm.POST("/users/:id/unbind", h.UnbindUser)
		adm.POST("/users/bulk-delete", h.BulkDelete)
		adm.POST("/users/bulk-unbind", h.BulkUnbind)
		adm.GET("/stats", h.Stats)
	}

	return r
}

func (h *Handler) requireRole(role model.Role) gin.HandlerFunc {
	return auth.RequireRole(h.cfg.SigningKey, h.cfg.Issuer, string(role))
}

// limiter builds one request budget on the handler clock; a disabled budget
// yields a nil Limiter, which lets everything through.
func (h *Handler) limiter(scope string, perMinute int) *httpmiddleware.Limiter {
	return httpmiddleware.NewLimiter(httpmiddleware.Budget{Scope: scope, PerMinute: perMinute}, h.cfg.Now, h.deps.Metrics)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
