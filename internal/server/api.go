package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/repositories"
	"github.com/desertthunder/studyflow/internal/shared"
)

// APIOptions configures [NewAPI].
type APIOptions struct {
	DB     *sql.DB
	Config shared.ServerConfig
	GitHub GitHubIdentity // nil disables POST /auth/github
	Mailer Mailer         // nil logs links
	Logger *log.Logger
	Now    func() time.Time

	// MagicLinkLimit bounds how often sign-in links are issued, server wide.
	MagicLinkLimit rate.Limit
	MagicLinkBurst int
}

// API is the StudyFlow backend: sign-in plus per-user roadmap and task storage.
type API struct {
	db       *sql.DB
	users    *repositories.UserRepository
	roadmaps *repositories.RoadmapRepository
	tasks    *repositories.TaskRepository
	links    *repositories.MagicLinkRepository

	github    GitHubIdentity
	mailer    Mailer
	secret    []byte
	tokenTTL  time.Duration
	linkTTL   time.Duration
	publicURL string
	limiter   *rate.Limiter
	logger    *log.Logger
	now       func() time.Time

	engine *gin.Engine
}

// NewAPI wires repositories over opts.DB and registers all routes.
func NewAPI(opts APIOptions) (*API, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("%w: database is required", shared.ErrInvalidConfig)
	}
	if opts.Config.JWTSecret == "" {
		return nil, fmt.Errorf("%w: server.jwt_secret is required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Mailer == nil {
		opts.Mailer = LogMailer{Logger: opts.Logger}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MagicLinkLimit == 0 {
		opts.MagicLinkLimit = rate.Every(time.Second)
	}
	if opts.MagicLinkBurst <= 0 {
		opts.MagicLinkBurst = 5
	}

	publicURL := opts.Config.PublicURL
	if publicURL == "" {
		publicURL = "http://" + opts.Config.Addr()
	}

	a := &API{
		db:        opts.DB,
		users:     repositories.NewUserRepository(opts.DB),
		roadmaps:  repositories.NewRoadmapRepository(opts.DB),
		tasks:     repositories.NewTaskRepository(opts.DB),
		links:     repositories.NewMagicLinkRepository(opts.DB),
		github:    opts.GitHub,
		mailer:    opts.Mailer,
		secret:    []byte(opts.Config.JWTSecret),
		tokenTTL:  opts.Config.TokenTTL(),
		linkTTL:   opts.Config.MagicLinkTTL(),
		publicURL: strings.TrimRight(publicURL, "/"),
		limiter:   rate.NewLimiter(opts.MagicLinkLimit, opts.MagicLinkBurst),
		logger:    opts.Logger,
		now:       opts.Now,
	}
	a.engine = a.routes()
	return a, nil
}

func (a *API) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())

	r.GET("/health", a.health)

	r.POST("/auth/github", a.githubSignIn)
	r.POST("/auth/magic-link", a.requestMagicLink)
	r.POST("/auth/magic-link/verify", a.verifyMagicLink)
	r.GET("/auth/magic-link/verify", a.verifyMagicLink)

	authed := r.Group("/")
	authed.Use(RequireJWT(a.secret))
	authed.GET("/auth/me", a.me)

	authed.GET("/roadmaps", a.listRoadmaps)
	authed.GET("/roadmaps/:id", a.getRoadmap)
	authed.PUT("/roadmaps/:id", a.putRoadmap)
	authed.DELETE("/roadmaps/:id", a.deleteRoadmap)

	authed.GET("/tasks", a.listTasks)
	authed.GET("/tasks/:id", a.getTask)
	authed.PUT("/tasks/:id", a.putTask)
	authed.DELETE("/tasks/:id", a.deleteTask)
	return r
}

// Handler returns the API as an [http.Handler].
func (a *API) Handler() http.Handler {
	return a.engine
}

// Serve runs the API on addr until ctx is cancelled.
func (a *API) Serve(ctx context.Context, addr string) error {
	return Serve(ctx, addr, a.engine, a.logger)
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// fail writes the status for err. Unmapped errors are logged and hidden from the client.
func (a *API) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrAuthFailed), errors.Is(err, shared.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrStaleWrite):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrGone):
		status = http.StatusGone
	case errors.Is(err, shared.ErrNotImplemented):
		status = http.StatusNotImplemented
	case errors.Is(err, shared.ErrServiceUnavailable):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: msg})
}

func (a *API) health(c *gin.Context) {
	if err := a.db.PingContext(c.Request.Context()); err != nil {
		a.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// issue signs a session token for user.
func (a *API) issue(c *gin.Context, user *models.User) {
	token, expiresAt, err := SignJWT(a.secret, user.ID(), user.Email(), a.tokenTTL, a.now())
	if err != nil {
		a.fail(c, fmt.Errorf("failed to sign token: %w", err))
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      models.NewUserInfo(user),
	})
}

func (a *API) githubSignIn(c *gin.Context) {
	if a.github == nil {
		a.fail(c, fmt.Errorf("%w: github sign-in is not configured", shared.ErrNotImplemented))
		return
	}

	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AccessToken == "" {
		a.fail(c, fmt.Errorf("%w: access_token", shared.ErrMissingArgument))
		return
	}

	gh, err := a.github.User(c.Request.Context(), req.AccessToken)
	if err != nil {
		a.fail(c, err)
		return
	}

	name := gh.Name
	if name == "" {
		name = gh.Login
	}
	user, err := a.users.FindOrCreate(models.ProviderGitHub, gh.ID, gh.Email, name)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.logger.Info("signed in", "provider", models.ProviderGitHub, "user", user.ID())
	a.issue(c, user)
}

func parseEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid email %q", shared.ErrInvalidInput, raw)
	}
	return strings.ToLower(addr.Address), nil
}

func (a *API) requestMagicLink(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	email, err := parseEmail(req.Email)
	if err != nil {
		a.fail(c, err)
		return
	}

	if !a.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "too many sign-in requests"})
		return
	}

	now := a.now()
	if n, err := a.links.Purge(now.Add(-24 * time.Hour)); err != nil {
		a.logger.Warn("failed to purge magic links", "error", err)
	} else if n > 0 {
		a.logger.Debug("purged magic links", "count", n)
	}

	token, err := a.links.Issue(email, a.linkTTL, now)
	if err != nil {
		a.fail(c, err)
		return
	}

	link := a.publicURL + "/auth/magic-link/verify?" + url.Values{"email": {email}, "token": {token}}.Encode()
	if err := a.mailer.SendMagicLink(c.Request.Context(), email, link); err != nil {
		a.fail(c, fmt.Errorf("failed to send magic link: %w", err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (a *API) verifyMagicLink(c *gin.Context) {
	var req struct {
		Email string `json:"email" form:"email"`
		Token string `json:"token" form:"token"`
	}
	if err := c.ShouldBind(&req); err != nil {
		a.fail(c, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if req.Token == "" {
		a.fail(c, fmt.Errorf("%w: token", shared.ErrMissingArgument))
		return
	}
	email, err := parseEmail(req.Email)
	if err != nil {
		a.fail(c, err)
		return
	}

	if err := a.links.Consume(email, req.Token, a.now()); err != nil {
		a.fail(c, err)
		return
	}

	user, err := a.users.FindOrCreate(models.ProviderEmail, email, email, "")
	if err != nil {
		a.fail(c, err)
		return
	}
	a.logger.Info("signed in", "provider", models.ProviderEmail, "user", user.ID())
	a.issue(c, user)
}

func (a *API) me(c *gin.Context) {
	user, err := a.users.Get(userID(c))
	if err != nil {
		a.fail(c, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err))
		return
	}
	c.JSON(http.StatusOK, models.NewUserInfo(user))
}

func (a *API) listRoadmaps(c *gin.Context) {
	roadmaps, err := a.roadmaps.ListByUser(userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roadmaps)
}

func (a *API) getRoadmap(c *gin.Context) {
	rm, err := a.roadmaps.Get(userID(c), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rm)
}

func (a *API) putRoadmap(c *gin.Context) {
	var rm models.Roadmap
	if err := c.ShouldBindJSON(&rm); err != nil {
		a.fail(c, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if rm.ID == "" {
		rm.ID = c.Param("id")
	}
	if rm.ID != c.Param("id") {
		a.fail(c, fmt.Errorf("%w: body id %q does not match path", shared.ErrInvalidInput, rm.ID))
		return
	}

	saved, err := a.roadmaps.Upsert(userID(c), rm)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (a *API) deleteRoadmap(c *gin.Context) {
	if err := a.roadmaps.Delete(userID(c), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) listTasks(c *gin.Context) {
	tasks, err := a.tasks.ListByUser(userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (a *API) getTask(c *gin.Context) {
	t, err := a.tasks.Get(userID(c), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (a *API) putTask(c *gin.Context) {
	var t models.Task
	if err := c.ShouldBindJSON(&t); err != nil {
		a.fail(c, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if t.ID == "" {
		t.ID = c.Param("id")
	}
	if t.ID != c.Param("id") {
		a.fail(c, fmt.Errorf("%w: body id %q does not match path", shared.ErrInvalidInput, t.ID))
		return
	}

	saved, err := a.tasks.Upsert(userID(c), t)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (a *API) deleteTask(c *gin.Context) {
	if err := a.tasks.Delete(userID(c), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
