package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/tycoon-game/internal/agent"
	"github.com/wfunc/tycoon-game/internal/config"
	"github.com/wfunc/tycoon-game/internal/game"
	"github.com/wfunc/tycoon-game/internal/middleware"
	"github.com/wfunc/tycoon-game/internal/repository"
	"github.com/wfunc/tycoon-game/internal/service"
	"github.com/wfunc/tycoon-game/internal/utils"
	"github.com/wfunc/tycoon-game/internal/ws"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine *gin.Engine
	db     *gorm.DB
	hub    *ws.Hub
	log    *zap.Logger

	authHandler    *AuthHandler
	gameHandler    *GameHandler
	tradeHandler   *TradeHandler
	perkHandler    *PerkHandler
	agentHandler   *AgentHandler
	wsHandler      *WSHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter 创建路由器并完成全部依赖装配
func NewRouter(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	// 服务装配
	userRepo := repository.NewUserRepository(db)
	authRepo := repository.NewUserAuthRepository(db)
	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		7*24*time.Hour,
	)
	hashParams := utils.Argon2Params{
		Time:     cfg.Security.Password.Argon2Time,
		MemoryKB: cfg.Security.Password.Argon2MemoryKB,
		Threads:  cfg.Security.Password.Argon2Threads,
		KeyLen:   cfg.Security.Password.Argon2KeyLen,
	}
	authService := service.NewAuthService(db, userRepo, authRepo, jwtManager, hashParams, log)
	userService := service.NewUserService(userRepo, log)

	// 游戏引擎与事件中心
	gameEngine := game.NewEngine(db, &cfg.Game)
	hub := ws.NewHub(log)
	go hub.Run()

	driver := agent.NewDriver(gameEngine)

	router := &Router{
		engine:         engine,
		db:             db,
		hub:            hub,
		log:            log,
		authHandler:    NewAuthHandler(authService, userService),
		gameHandler:    NewGameHandler(gameEngine, hub),
		tradeHandler:   NewTradeHandler(gameEngine, hub),
		perkHandler:    NewPerkHandler(gameEngine, hub),
		agentHandler:   NewAgentHandler(driver),
		wsHandler:      NewWSHandler(hub, log),
		authMiddleware: middleware.NewAuthMiddleware(authService),
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		// 认证
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.GET("/profile", r.authHandler.GetProfile)
				authRequired.PUT("/profile", r.authHandler.UpdateProfile)
				authRequired.PUT("/password", r.authHandler.UpdatePassword)
			}
		}

		// 对局
		games := v1.Group("/games")
		games.Use(r.authMiddleware.RequireAuth())
		{
			games.GET("", r.gameHandler.ListGames)
			games.POST("", r.gameHandler.CreateGame)
			games.POST("/join", r.gameHandler.JoinGame)
			games.GET("/:id", r.gameHandler.GetSnapshot)
			games.POST("/:id/start", r.gameHandler.StartGame)

			// 回合操作
			games.POST("/:id/turn", r.gameHandler.TakeTurn)
			games.POST("/:id/end-turn", r.gameHandler.EndTurn)
			games.POST("/:id/buy", r.gameHandler.BuyProperty)
			games.POST("/:id/mortgage", r.gameHandler.Mortgage)
			games.POST("/:id/unmortgage", r.gameHandler.Unmortgage)
			games.POST("/:id/settle-debt", r.gameHandler.SettleDebt)
			games.POST("/:id/jail/pay", r.gameHandler.PayJailFine)
			games.POST("/:id/jail/card", r.gameHandler.UseJailCard)
			games.POST("/:id/bankruptcy", r.gameHandler.DeclareBankruptcy)

			// 交易
			games.POST("/:id/trades", r.tradeHandler.ProposeTrade)
			games.POST("/:id/trades/:trade_id/respond", r.tradeHandler.RespondTrade)
			games.DELETE("/:id/trades/:trade_id", r.tradeHandler.DeleteTrade)

			// 特权
			games.GET("/:id/perks", r.perkHandler.ListPerks)
			games.POST("/:id/perks/activate", r.perkHandler.ActivatePerk)

			// AI代理决策
			games.POST("/:id/agent/decision", r.agentHandler.ExecuteDecision)
		}

		// 管理员
		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireRole("admin"))
		{
			admin.POST("/games/:id/perks/grant", r.perkHandler.GrantPerk)
		}
	}

	// WebSocket事件订阅
	wsGroup := r.engine.Group("/ws")
	wsGroup.Use(r.authMiddleware.RequireAuth())
	{
		wsGroup.GET("/games/:id", r.wsHandler.Subscribe)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, Response{Code: 404, Message: "接口不存在"})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{"status": "unhealthy", "message": "数据库连接失败"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{"status": "unhealthy", "message": "数据库ping失败"})
		return
	}
	c.JSON(200, gin.H{"status": "healthy"})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("API服务启动", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（测试用）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
