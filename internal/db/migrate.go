package db

import (
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"strings" // String helpers

	"roundup/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// SeedAdmin creates or promotes an admin account from an "email:password" pair
func SeedAdmin(db *gorm.DB, spec string) error {
	email, password, ok := strings.Cut(spec, ":")
	email = strings.ToLower(strings.TrimSpace(email))
	if !ok || email == "" || len(password) < 8 {
		return errors.New("admin seed must be email:password with a password of at least 8 characters")
	}
	var user domain.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		// Existing user, promote
		if err := db.Model(&user).Updates(map[string]any{"role": domain.RoleAdmin, "is_verified": true}).Error; err != nil {
			return err
		}
		logrus.WithField("email", email).Info("Promoted user to admin")
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user = domain.User{
		Email:        email,
		FirstName:    "Admin",
		LastName:     "User",
		PasswordHash: string(hash),
		IsVerified:   true,
		Role:         domain.RoleAdmin,
	}
	if err := CreateUserWithResources(db, &user, nil); err != nil {
		return err
	}
	logrus.WithField("email", email).Info("Created admin user")
	return nil
}
