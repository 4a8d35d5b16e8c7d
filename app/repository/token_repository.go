package repository

import (
	"time"

	"github.com/ManuelReschke/PlanFox/app/models"
	"gorm.io/gorm"
)

// tokenRepository implements the TokenRepository interface
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository instance
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Create persists a new access token
func (r *tokenRepository) Create(token *models.AccessToken) error {
	return r.db.Create(token).Error
}

// GetByID retrieves a token by its identifier
func (r *tokenRepository) GetByID(id string) (*models.AccessToken, error) {
	var token models.AccessToken
	err := r.db.Where("id = ?", id).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetAll retrieves all tokens, newest first
func (r *tokenRepository) GetAll() ([]models.AccessToken, error) {
	var tokens []models.AccessToken
	err := r.db.Order("created_at DESC").Find(&tokens).Error
	return tokens, err
}

// Update saves token changes (hash rotation, rotation timestamp)
func (r *tokenRepository) Update(token *models.AccessToken) error {
	return r.db.Save(token).Error
}

// Delete removes a token. Returns false when no row was deleted.
func (r *tokenRepository) Delete(id string) (bool, error) {
	res := r.db.Where("id = ?", id).Delete(&models.AccessToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TouchLastUsed updates the last-used timestamp best-effort
func (r *tokenRepository) TouchLastUsed(id string, when time.Time) error {
	return r.db.Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", when).Error
}

// Count returns the number of configured tokens
func (r *tokenRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.AccessToken{}).Count(&count).Error
	return count, err
}
