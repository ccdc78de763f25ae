package handler

import (
	"campus-wallet/internal/adapter/http/middleware"
	redisStore "campus-wallet/internal/adapter/storage/redis"
	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	TransferSvc    ports.TransferService
	StudentSvc     ports.StudentService
	IdentitySvc    ports.IdentityService
	RequestSvc     ports.RequestService
	VendorSvc      ports.VendorService
	ReportingSvc   ports.ReportingService
	AuditSvc       ports.AuditService
	SigSvc         ports.SignatureService
	TokenSvc       ports.TokenService
	GatewaySecret  string
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	authHandler := NewAuthHandler(deps.AuthSvc)
	walletHandler := NewWalletHandler(deps.TransferSvc, deps.ReportingSvc, deps.SigSvc, deps.GatewaySecret)
	studentHandler := NewStudentHandler(deps.StudentSvc, deps.IdentitySvc)
	vendorHandler := NewVendorHandler(deps.TransferSvc, deps.VendorSvc)
	requestHandler := NewRequestHandler(deps.RequestSvc)
	adminHandler := NewAdminHandler(deps.ReportingSvc, deps.StudentSvc, deps.VendorSvc, deps.TransferSvc, deps.AuditSvc)

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register/guardian", rl("auth_register"), authHandler.RegisterGuardian)
		auth.POST("/register/vendor", rl("auth_register"), authHandler.RegisterVendor)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// Gateway confirmation callback authenticates by HMAC signature.
	v1.POST("/wallets/deposit/callback", rl("deposit"), walletHandler.GatewayCallback)

	// --- Student mobile routes ---
	student := v1.Group("/student")
	{
		student.POST("/login", rl("student_login"), authHandler.StudentLogin)

		session := student.Group("", jwtAuth, middleware.RequireRole(domain.RoleStudent))
		{
			session.POST("/device", rl("api"), studentHandler.RegisterDevice)
			session.GET("/device", rl("api"), studentHandler.VerifyDevice)
			session.POST("/otp", rl("otp"), studentHandler.IssueOTP)
		}
	}

	// --- Guardian wallet & transfers ---
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/balance", rl("api"), walletHandler.GetBalance)
		wallets.GET("/transactions", rl("api"), walletHandler.GetTransactions)

		guardian := wallets.Group("", middleware.RequireRole(domain.RoleGuardian))
		{
			guardian.POST("/deposit", rl("deposit"), walletHandler.Deposit)
			guardian.POST("/deposit/initiate", rl("deposit"), walletHandler.InitiateDeposit)
		}
	}

	// --- Student management (guardian) ---
	students := v1.Group("/students", jwtAuth, middleware.RequireRole(domain.RoleGuardian))
	{
		students.POST("", rl("api"), studentHandler.Create)
		students.GET("", rl("api"), studentHandler.ListMine)
		students.POST("/transfer", rl("api"), walletHandler.Transfer)
		students.PATCH("/:studentId/pin", rl("api"), studentHandler.UpdatePIN)
		students.PATCH("/:studentId/status", rl("api"), studentHandler.UpdateStatus)
		students.PUT("/:studentId/limit", rl("api"), studentHandler.SetLimit)
		students.GET("/:studentId/limit", rl("api"), studentHandler.GetLimit)
		students.GET("/:studentId/transactions", rl("api"), studentHandler.Transactions)
	}

	// --- Vendor terminal ---
	vendors := v1.Group("/vendors", jwtAuth)
	{
		vendors.GET("/approved", rl("api"), vendorHandler.ApprovedDirectory)

		terminal := vendors.Group("", middleware.RequireRole(domain.RoleVendor))
		{
			terminal.POST("/charge", rl("charge"), vendorHandler.Charge)
			terminal.GET("/transactions", rl("api"), vendorHandler.Transactions)
			terminal.POST("/withdrawals", rl("api"), vendorHandler.RequestWithdrawal)
		}
	}

	// --- Money requests ---
	requests := v1.Group("/requests", jwtAuth)
	{
		requests.POST("", rl("api"), middleware.RequireRole(domain.RoleStudent), requestHandler.Create)
		requests.GET("", rl("api"), requestHandler.List)
		requests.POST("/:requestId/approve", rl("api"), middleware.RequireRole(domain.RoleGuardian), requestHandler.Approve)
		requests.POST("/:requestId/reject", rl("api"), middleware.RequireRole(domain.RoleGuardian), requestHandler.Reject)
	}

	// --- Admin ---
	admin := v1.Group("/admin", jwtAuth, middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/stats", rl("api"), adminHandler.Stats)
		admin.GET("/transactions", rl("api"), adminHandler.ListTransactions)
		admin.GET("/students", rl("api"), adminHandler.ListStudents)
		admin.GET("/vendors", rl("api"), adminHandler.ListVendors)
		admin.PATCH("/vendors/:vendorId/approval", rl("api"), adminHandler.SetVendorApproval)
		admin.POST("/withdrawals/:transactionId/settle", rl("api"), adminHandler.Settle)
		admin.POST("/withdrawals/:transactionId/reject", rl("api"), adminHandler.RejectWithdrawal)
		admin.GET("/audit-logs", rl("api"), adminHandler.AuditLogs)
	}

	return r
}
