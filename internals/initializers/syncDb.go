package initializers

import (
	"chat-friendly/internals/models"
)

func SyncDatabase() {
	err := DB.AutoMigrate(
		&models.User{},
		&models.RevokedToken{},
	)
	if err != nil {
		panic("Failed to migrate database")
	}
}
