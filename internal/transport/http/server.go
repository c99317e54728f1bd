package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/domain"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// WebhookPath is where Telegram pushes updates in webhook mode.
const WebhookPath = "/telegram/webhook"

type Config struct {
	Flow *app.Flow
	// Webhook receives Telegram updates; nil disables the route.
	Webhook http.Handler
	// AdminToken guards stats, per-user results and profiling; empty disables those routes.
	AdminToken string
	// WebAuth verifies websocket clients; nil disables /ws.
	WebAuth *WebAuth
	Log     *slog.Logger
}

// NewRouter builds the HTTP surface: health check, metrics, the admin group (profiling,
// stats, results), the websocket endpoint and the optional Telegram webhook.
func NewRouter(c Config) *gin.Engine {
	if c.Log == nil {
		c.Log = slog.Default()
	}

	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	e.Use(gin.Recovery())

	e.GET("/healthz", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	if c.AdminToken != "" {
		admin := e.Group("/", adminAuth(c.AdminToken))
		pprof.RouteRegister(admin, "debug/pprof")

		api := &statsAPI{quiz: c.Flow.Quiz(), log: c.Log}
		admin.GET("/stats", api.stats)
		admin.GET("/users/:id/results", api.results)
	}

	if c.WebAuth != nil {
		ws := NewWSHandler(c.Flow, c.WebAuth, c.Log)
		e.GET("/ws", gin.WrapF(ws.ServeWS))
	}

	if c.Webhook != nil {
		e.POST(WebhookPath, gin.WrapH(c.Webhook))
	}
	return e
}

type statsAPI struct {
	quiz *app.QuizService
	log  *slog.Logger
}

type typeShare struct {
	Type  domain.ResultType `json:"type"`
	Count int               `json:"count"`
	Share decimal.Decimal   `json:"share"`
}

type statsResponse struct {
	Total        int         `json:"total"`
	Today        int         `json:"today"`
	Distribution []typeShare `json:"distribution"`
}

func (a *statsAPI) stats(ctx *gin.Context) {
	stats, err := a.quiz.Stats(ctx.Request.Context())
	if err != nil {
		a.fail(ctx, err)
		return
	}

	resp := statsResponse{Total: stats.Total, Today: stats.Today, Distribution: []typeShare{}}
	for _, tc := range stats.Ranked() {
		resp.Distribution = append(resp.Distribution, typeShare{
			Type:  tc.Type,
			Count: tc.Count,
			Share: stats.Share(tc.Type),
		})
	}
	ctx.JSON(http.StatusOK, resp)
}

func (a *statsAPI) results(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	results, err := a.quiz.Results(ctx.Request.Context(), userID)
	if err != nil {
		a.fail(ctx, err)
		return
	}
	if results == nil {
		results = []domain.Result{}
	}
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

func (a *statsAPI) fail(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
	}
	a.log.ErrorContext(ctx.Request.Context(), "http: request failed", "path", ctx.FullPath(), "error", err)
	ctx.JSON(status, gin.H{"error": http.StatusText(status)})
}
