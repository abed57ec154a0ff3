package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/api/handler"
	"github.com/qs3c/aipara_account_server/internal/api/middleware"
	"github.com/qs3c/aipara_account_server/internal/pkg/metrics"
	"github.com/qs3c/aipara_account_server/internal/pkg/response"
)

type Router struct {
	profileHandler   *handler.ProfileHandler
	accountHandler   *handler.AccountHandler
	websocketHandler *handler.WebSocketHandler
	metrics          *metrics.Metrics
	gatherer         prometheus.Gatherer
	cfg              *config.Config
}

func NewRouter(
	profileHandler *handler.ProfileHandler,
	accountHandler *handler.AccountHandler,
	websocketHandler *handler.WebSocketHandler,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		profileHandler:   profileHandler,
		accountHandler:   accountHandler,
		websocketHandler: websocketHandler,
		metrics:          m,
		gatherer:         gatherer,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))
	engine.Use(middleware.Metrics(r.metrics))

	engine.NoRoute(func(c *gin.Context) {
		response.NotFoundError(c, "接口不存在")
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if r.gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 套餐
		api.GET("/plans", r.accountHandler.ListPlans)

		// 服务入口：登录校验由 dispatcher 在 action 校验之后完成
		service := api.Group("")
		service.Use(middleware.OptionalAuth(r.cfg.JWT.Secret))
		{
			service.POST("/profile-service", r.profileHandler.Invoke)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			account := authenticated.Group("/account")
			{
				account.GET("", r.accountHandler.Get)
				account.GET("/subscriptions", r.accountHandler.ListSubscriptions)
				account.GET("/ledger", r.accountHandler.ListLedger)
				account.POST("/avatar", r.accountHandler.UploadAvatar)

				account.POST("/verification", r.accountHandler.RequestCode)
				account.POST("/password", r.accountHandler.SetPassword)
				account.POST("/password/skip", r.accountHandler.SkipPassword)
				account.POST("/email", r.accountHandler.BindEmail)
				account.POST("/phone", r.accountHandler.BindPhone)
			}
		}
	}

	return engine
}
