package handler

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"smarttrack/internal/admin"
	"smarttrack/internal/attendance"
	"smarttrack/internal/auth"
	"smarttrack/internal/cloudinary"
	"smarttrack/internal/metrics"
	"smarttrack/internal/model"
	"smarttrack/internal/netprobe"
	"smarttrack/internal/qrtoken"
	"smarttrack/internal/sentinel"
	"smarttrack/internal/store"
)

// QRHost publishes rendered tokens; *cloudinary.Client satisfies it.
type QRHost interface {
	UploadPNG(ctx context.Context, png []byte, publicID string) (*cloudinary.UploadResult, error)
}

// Config carries the HTTP-level settings.
type Config struct {
	SigningKey  string
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	CORSOrigins []string
	// Request budgets per minute; zero disables one. RateLimitPerMin applies
	// per IP on public routes and per account on authenticated ones. Login
	// and scan routes draw from their own budget as well.
	RateLimitPerMin int
	LoginPerMin     int
	ScansPerMin     int
	// CountdownTick is the interval of the session countdown stream.
	CountdownTick time.Duration
	Now           func() time.Time
}

// Deps are the services the handlers call.
type Deps struct {
	Store    store.Store
	Issuer   *attendance.Issuer
	Verifier *attendance.Verifier
	Reporter *attendance.Reporter
	Guard    *auth.Guard
	Registry *admin.Registry
	// QRHost is optional.
	QRHost  QRHost
	Metrics *metrics.Metrics
	// Checks are reported by /healthz; any false makes it 503.
	Checks   map[string]func(context.Context) bool
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

type Handler struct {
	cfg      Config
	deps     Deps
	scanners *attendance.Scanners
	logger   *slog.Logger
}

func New(cfg Config, deps Deps) *Handler {
	if cfg.CountdownTick <= 0 {
		cfg.CountdownTick = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		cfg:      cfg,
		deps:     deps,
		scanners: attendance.NewScanners(deps.Verifier),
		logger:   deps.Logger,
	}
}

// ---------- Errors ----------

func status(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrExpired):
		return http.StatusGone
	case errors.Is(err, sentinel.ErrPolicyDenied):
		return http.StatusForbidden
	case errors.Is(err, sentinel.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, sentinel.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, sentinel.ErrExternalFailure):
		return http.StatusBadGateway
	case errors.Is(err, attendance.ErrScannerBusy), errors.Is(err, attendance.ErrScannerClosed):
		return http.StatusConflict
	case errors.Is(err, qrtoken.ErrNoToken):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := status(err)
	msg := sentinel.Reason(err)
	switch {
	case code == http.StatusInternalServerError:
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	case errors.Is(err, qrtoken.ErrNoToken):
		msg = qrtoken.ErrNoToken.Error()
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func principal(c *gin.Context) auth.Claims {
	claims, _ := auth.ClaimsFrom(c)
	return claims
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	code := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.deps.Checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			code = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(code, body)
}

// ---------- Devices & accounts ----------

// NewDevice hands out a fresh device id for a client profile.
func (h *Handler) NewDevice(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"device_id": h.deps.Store.NewDeviceID()})
}

func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.deps.Guard.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.Public())
}

type loginRequest struct {
	Role       string `json:"role" binding:"required"`
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
	DeviceID   string `json:"device_id"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.deps.Guard.Authenticate(c.Request.Context(), role, req.Identifier, req.Secret, req.DeviceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	tokens, err := auth.Issue(auth.Principal{
		UserID: res.User.ID,
		Role:   string(res.User.Role),
		Device: res.User.DeviceFingerprint,
	}, h.cfg.Issuer, h.cfg.SigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        res.User.Public(),
		"newly_bound": res.NewlyBound,
		"tokens":      tokens,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := auth.Refresh(req.RefreshToken, h.cfg.Issuer, h.cfg.SigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// requireBinding rejects student tokens whose device no longer matches the
// account, so an admin unbind takes effect before the token expires.
func (h *Handler) requireBinding(c *gin.Context) {
	claims := principal(c)
	user, err := store.FindUser(c.Request.Context(), h.deps.Store, claims.Subject)
	if errors.Is(err, sentinel.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if user.DeviceFingerprint == "" || user.DeviceFingerprint != claims.Device {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": auth.ReasonDeviceMismatch})
		return
	}
	c.Next()
}

// ---------- Staff ----------

type createPeriodRequest struct {
	Subject         string `json:"subject"`
	DurationMinutes int    `json:"duration_minutes"`
	NetworkLock     bool   `json:"network_lock"`
}

func (h *Handler) CreatePeriod(c *gin.Context) {
	var req createPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	period, err := h.deps.Issuer.CreateSession(ctx, attendance.SessionRequest{
		StaffID:            principal(c).Subject,
		Subject:            req.Subject,
		DurationMinutes:    req.DurationMinutes,
		NetworkLock:        req.NetworkLock,
		NetworkFingerprint: netprobe.FromRequest(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{"period": period}
	if url, err := h.deps.Issuer.TokenDataURL(ctx, period.ID); err != nil {
		h.logger.WarnContext(ctx, "qr render failed", "period_id", period.ID, "error", err)
	} else {
		body["qr_data_url"] = url
	}
	if h.deps.QRHost != nil {
		if url, err := h.publishToken(ctx, period.ID); err != nil {
			h.logger.WarnContext(ctx, "qr upload failed", "period_id", period.ID, "error", err)
		} else {
			body["qr_url"] = url
		}
	}
	c.JSON(http.StatusCreated, body)
}

func (h *Handler) publishToken(ctx context.Context, periodID string) (string, error) {
	png, err := h.deps.Issuer.Token(ctx, periodID)
	if err != nil {
		return "", err
	}
	res, err := h.deps.QRHost.UploadPNG(ctx, png, periodID)
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

func (h *Handler) ListPeriods(c *gin.Context) {
	periods, err := h.deps.Issuer.Periods(c.Request.Context(), principal(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// ownPeriod aborts unless the caller issued the period in the :id param.
func (h *Handler) ownPeriod(c *gin.Context) {
	period, err := store.FindPeriod(c.Request.Context(), h.deps.Store, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if period.StaffID != principal(c).Subject {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not your period"})
		return
	}
	c.Next()
}

func (h *Handler) PeriodQR(c *gin.Context) {
	png, err := h.deps.Issuer.Token(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) PeriodRecords(c *gin.Context) {
	records, err := h.deps.Issuer.PeriodRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) ReportCSV(c *gin.Context) {
	rep, err := h.deps.Reporter.Build(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+rep.FileName()+`.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := rep.WriteCSV(c.Writer); err != nil {
		h.logger.WarnContext(c.Request.Context(), "csv write failed", "error", err)
	}
}

func (h *Handler) ReportXLSX(c *gin.Context) {
	rep, err := h.deps.Reporter.Build(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+rep.FileName()+`.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := rep.WriteXLSX(c.Writer); err != nil {
		h.logger.WarnContext(c.Request.Context(), "xlsx write failed", "error", err)
	}
}

func (h *Handler) CurrentSession(c *gin.Context) {
	session, err := h.deps.Issuer.CurrentSession(c.Request.Context(), principal(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":           session,
		"remaining_seconds": attendance.Remaining(session.ExpiresAt, h.cfg.Now()),
	})
}

func (h *Handler) DismissSession(c *gin.Context) {
	session, err := h.deps.Issuer.Dismiss(c.Request.Context(), principal(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Countdown streams the remaining seconds as server-sent events.
func (h *Handler) Countdown(c *gin.Context) {
	ticks, err := h.deps.Issuer.Countdown(c.Request.Context(), principal(c).Subject, h.cfg.CountdownTick)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		left, ok := <-ticks
		if !ok {
			c.SSEvent("end", "closed")
			return false
		}
		c.SSEvent("remaining", left)
		return true
	})
}

// ---------- Students ----------

type scanRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.deps.Verifier.Verify(c.Request.Context(), principal(c).Subject, req.Token, netprobe.FromRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// ScanFrame decodes an uploaded camera frame (multipart field "frame") with
// the student's scanner.
func (h *Handler) ScanFrame(c *gin.Context) {
	file, _, err := c.Request.FormFile("frame")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "frame file is required"})
		return
	}
	defer file.Close()
	frame, _, err := image.Decode(file)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "frame is not a PNG or JPEG image"})
		return
	}

	scanner := h.scanners.For(principal(c).Subject)
	rec, err := scanner.HandleFrame(c.Request.Context(), frame, netprobe.FromRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": rec, "scanner": scanner.State()})
}

// ArmScanner re-arms the student's scanner after an accepted scan.
func (h *Handler) ArmScanner(c *gin.Context) {
	scanner := h.scanners.For(principal(c).Subject)
	scanner.Arm()
	c.JSON(http.StatusOK, gin.H{"scanner": scanner.State()})
}

func (h *Handler) History(c *gin.Context) {
	records, err := h.deps.Verifier.History(c.Request.Context(), principal(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ---------- Admin ----------

func (h *Handler) ListUsers(c *gin.Context) {
	binding, err := admin.ParseBinding(c.Query("binding"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var role model.Role
	if v := c.Query("role"); v != "" {
		if role, err = model.ParseRole(v); err != nil {
			badRequest(c, err)
			return
		}
	}
	users, err := h.deps.Registry.List(c.Request.Context(), admin.Filter{Query: c.Query("q"), Role: role, Binding: binding})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.deps.Registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UnbindUser(c *gin.Context) {
	if err := h.deps.Registry.Unbind(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h *Handler) BulkDelete(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := h.deps.Registry.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": n})
}

func (h *Handler) BulkUnbind(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := h.deps.Registry.BulkUnbind(c.Request.Context(), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": n})
}

func (h *Handler) Stats(c *gin.Context) {
	st, err := h.deps.Registry.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
