package database

import "bucketlist/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters: referenced tables come before the tables that point at them.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Bucket{},
		&models.Upvote{},
		&models.Comment{},
		&models.BlacklistedToken{},
	}
}
