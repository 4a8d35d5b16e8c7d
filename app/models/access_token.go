package models

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIDPrefix marks access token identifiers in logs and API output.
const TokenIDPrefix = "tk_"

// tokenSecretBytes is the entropy of a raw token secret before encoding.
const tokenSecretBytes = 48

// AccessToken is an API credential. Only the bcrypt hash of the secret is
// stored; the raw secret is disclosed exactly once at creation or rotation.
type AccessToken struct {
	ID            string     `gorm:"primaryKey;type:varchar(40)" json:"id"`
	Name          string     `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=1,max=100"`
	Hash          string     `gorm:"type:varchar(100);not null" json:"-"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastUsedAt    *time.Time `gorm:"type:timestamp;default:null" json:"last_used_at"`
	LastRotatedAt *time.Time `gorm:"type:timestamp;default:null" json:"last_rotated_at"`
}

func (t *AccessToken) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// NewTokenID returns a fresh token identifier.
func NewTokenID() string {
	return TokenIDPrefix + uuid.NewString()
}

// GenerateTokenSecret returns a printable secret with 48 bytes of entropy.
func GenerateTokenSecret() (string, error) {
	b := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// HashTokenSecret produces the salted one-way hash stored for a secret.
func HashTokenSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)

	return string(bytes), err
}

// MatchesSecret compares a presented secret against the stored hash. bcrypt's
// comparison is constant-time.
func (t *AccessToken) MatchesSecret(secret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(t.Hash), []byte(secret))

	return err == nil
}
