package tokenstore

import (
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"time"

	"github.com/ManuelReschke/PlanFox/app/models"
	"github.com/ManuelReschke/PlanFox/app/repository"
)

var (
	// ErrEmptyName rejects token creation without a human-readable name.
	ErrEmptyName = errors.New("token name cannot be empty")
	// ErrNotFound signals an unknown token identifier.
	ErrNotFound = errors.New("token not found")
)

// CreatedToken carries the raw secret back to the operator. This is the only
// place the secret ever appears; it is never stored or logged.
type CreatedToken struct {
	ID     string
	Name   string
	Secret string
}

// Store manages bearer token lifecycle over the token repository.
type Store struct {
	repo repository.TokenRepository
}

// New creates a token store.
func New(repo repository.TokenRepository) *Store {
	return &Store{repo: repo}
}

// Create generates a new token: random secret, bcrypt hash persisted, raw
// secret returned exactly once.
func (s *Store) Create(name string) (*CreatedToken, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	secret, err := models.GenerateTokenSecret()
	if err != nil {
		return nil, err
	}
	hash, err := models.HashTokenSecret(secret)
	if err != nil {
		return nil, err
	}

	token := &models.AccessToken{
		ID:   models.NewTokenID(),
		Name: name,
		Hash: hash,
	}
	if err := token.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(token); err != nil {
		return nil, err
	}

	audit("created", token.ID, "")

	return &CreatedToken{ID: token.ID, Name: token.Name, Secret: secret}, nil
}

// Validate resolves a presented secret to its token id. The comparison per
// token is constant-time (bcrypt); a match updates the last-used timestamp as
// an observable side effect. clientIP is only used, masked, in audit output.
func (s *Store) Validate(rawSecret, clientIP string) (string, bool) {
	tokens, err := s.repo.GetAll()
	if err != nil {
		log.Printf("tokenstore: listing tokens failed: %v", err)
		return "", false
	}

	for i := range tokens {
		if tokens[i].MatchesSecret(rawSecret) {
			if err := s.repo.TouchLastUsed(tokens[i].ID, time.Now()); err != nil {
				log.Printf("tokenstore: updating last-used for %s failed: %v", tokens[i].ID, err)
			}
			return tokens[i].ID, true
		}
	}

	audit("validate_failed", "", clientIP)
	return "", false
}

// Revoke hard-deletes a token. Subsequent validations of its secret fail.
func (s *Store) Revoke(id string) bool {
	deleted, err := s.repo.Delete(id)
	if err != nil {
		log.Printf("tokenstore: revoking %s failed: %v", id, err)
		return false
	}
	if deleted {
		audit("revoked", id, "")
	}
	return deleted
}

// Rotate replaces the stored hash in place, keeping identifier, name and
// creation metadata. The old secret is invalid immediately.
func (s *Store) Rotate(id string) (*CreatedToken, error) {
	token, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	secret, err := models.GenerateTokenSecret()
	if err != nil {
		return nil, err
	}
	hash, err := models.HashTokenSecret(secret)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token.Hash = hash
	token.LastRotatedAt = &now
	if err := s.repo.Update(token); err != nil {
		return nil, err
	}

	audit("rotated", id, "")

	return &CreatedToken{ID: token.ID, Name: token.Name, Secret: secret}, nil
}

// List returns token metadata newest-first. Hashes never leave the model's
// json:"-" field.
func (s *Store) List() ([]models.AccessToken, error) {
	return s.repo.GetAll()
}

// Count reports how many tokens are configured.
func (s *Store) Count() (int64, error) {
	return s.repo.Count()
}

var ipv4Pattern = regexp.MustCompile(`^(\d+\.\d+)\.\d+\.\d+$`)

// MaskIP reduces PII before an address reaches the logs: IPv4 keeps the
// first two octets, everything else is fully redacted.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	if ipv4Pattern.MatchString(ip) {
		return ipv4Pattern.ReplaceAllString(ip, "$1.x.x")
	}
	return "redacted"
}

type auditEntry struct {
	Time    string `json:"time"`
	Action  string `json:"action"`
	TokenID string `json:"token_id,omitempty"`
	IP      string `json:"ip,omitempty"`
}

func audit(action, tokenID, clientIP string) {
	entry := auditEntry{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Action:  action,
		TokenID: tokenID,
		IP:      MaskIP(clientIP),
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	log.Printf("planfox-audit: %s", payload)
}
