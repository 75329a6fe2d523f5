package main

import (
	"log"

	"chat-friendly/internals/config"
	"chat-friendly/internals/initializers"
	"chat-friendly/internals/logging"
	"chat-friendly/internals/routes"
)

func init() {
	initializers.LoadEnvVariables()
	initializers.ConnectToDb()
	initializers.SyncDatabase()
}

func main() {
	logger, err := logging.New()
	if err != nil {
		log.Fatal("Failed to initialize logger")
	}
	defer logger.Sync()

	initializers.StartJanitor(logger)

	r := routes.SetupRouter(initializers.DB, logger)

	port := config.GetEnvAsStr("PORT", "3000")
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server stopped")
	}
}
