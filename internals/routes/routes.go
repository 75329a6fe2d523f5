package routes

import (
	"context"

	"chat-friendly/internals/config"
	"chat-friendly/internals/controllers"
	"chat-friendly/internals/metrics"
	"chat-friendly/internals/middleware"
	"chat-friendly/internals/storage"
	"chat-friendly/internals/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, logger *zap.Logger) *gin.Engine {
	r := gin.Default()

	appName := config.GetEnvAsStr("APP_NAME", "Chat Friendly")
	clientURL := config.GetEnvAsStr("CLIENT_URL", "http://localhost:5173")
	encryptionKey := config.GetEnv("ENCRYPTION_KEY")
	jwtSecret := config.GetEnv("JWT_SECRET")

	metrics.InitMetrics()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{clientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	emailManager := utils.NewEmailManager(
		&utils.SMTPConfig{
			Host:     config.GetEnvAsStr("SMTP_HOST", "smtp.gmail.com"),
			Port:     config.GetEnvAsInt("SMTP_PORT", 587, true),
			User:     config.GetEnv("SMTP_USER"),
			Password: config.GetEnv("SMTP_PASSWORD"),
			AppName:  appName,
		},
	)

	tokenManager := utils.NewTokenManager(
		&config.CookieConfig{
			Domain:   config.GetEnvAsStr("DOMAIN", ""),
			IsSecure: config.GetEnvAsStr("SECURE_COOKIE", "true") == "true",
			HttpOnly: true, // Always HttpOnly for XSS protection
		},
		jwtSecret,
		config.GetEnvAsInt("SESSION_EXPIRATION_SECONDS", 7*24*60*60, true),
	)

	// Avatar uploads are optional; without a bucket configured, data-URL
	// avatars are rejected and URL avatars still work.
	var avatars *storage.AvatarStore
	if bucket := config.GetEnvAsStr("S3_BUCKET", ""); bucket != "" {
		var err error
		avatars, err = storage.NewAvatarStore(context.Background(), storage.Config{
			Endpoint:  config.GetEnvAsStr("S3_ENDPOINT", ""),
			Region:    config.GetEnvAsStr("S3_REGION", "us-east-1"),
			Bucket:    bucket,
			AccessKey: config.GetEnv("S3_ACCESS_KEY"),
			SecretKey: config.GetEnv("S3_SECRET_KEY"),
			PublicURL: config.GetEnvAsStr("S3_PUBLIC_URL", ""),
		})
		if err != nil {
			logger.Warn("avatar store unavailable", zap.Error(err))
		}
	}

	authMiddleware := middleware.NewRequireAuthMiddleware(db, tokenManager)
	authCtrl := controllers.NewAuthController(db, emailManager, tokenManager, logger)
	verifyCtrl := controllers.NewVerificationController(db, emailManager, tokenManager, logger)
	passwordCtrl := controllers.NewPasswordController(db, emailManager, logger,
		config.GetEnvAsStr("RESET_FLOW", controllers.ResetFlowOTP), clientURL)
	profileCtrl := controllers.NewProfileController(db, avatars, logger)
	mfaCtrl := controllers.NewMFAController(db, tokenManager, logger, appName, encryptionKey)
	googleCtrl := controllers.NewGoogleAuthController(db, tokenManager, logger, clientURL)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "active",
			"message": "Chat Friendly API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authCtrl.Signup)
		auth.POST("/login", authCtrl.Login)
		auth.POST("/logout", authCtrl.Logout)

		auth.POST("/verify-email", verifyCtrl.VerifyEmail)
		auth.POST("/resend-verification", verifyCtrl.ResendVerification)

		auth.POST("/forgot-password", passwordCtrl.ForgotPassword)
		auth.POST("/verify-otp", passwordCtrl.VerifyOTP)
		auth.POST("/reset-password", passwordCtrl.ResetPassword)
		auth.POST("/reset-password/:token", passwordCtrl.ResetPasswordWithToken)

		auth.POST("/2fa/login-verify", mfaCtrl.LoginVerify2FA)

		auth.GET("/google/login", googleCtrl.Login)
		auth.GET("/google/callback", googleCtrl.Callback)

		// Credential validation only: handlers here need just the id
		auth.GET("/check-auth", authMiddleware.VerifyToken, profileCtrl.CheckAuth)

		// Full guard: credential validation plus record resolution
		protected := auth.Group("/")
		protected.Use(authMiddleware.VerifyToken, authMiddleware.ResolveUser)
		{
			protected.GET("/profile", profileCtrl.Profile)
			protected.PUT("/update-profile", profileCtrl.UpdateProfile)

			protected.POST("/2fa/setup", mfaCtrl.Setup2FA)
			protected.POST("/2fa/activate", mfaCtrl.Activate2FA)
		}
	}

	return r
}
