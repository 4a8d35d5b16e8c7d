package tokenstore

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/PlanFox/app/models"
)

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.AccessToken

	getAllErr error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*models.AccessToken)}
}

func (f *fakeTokenRepo) Create(token *models.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *fakeTokenRepo) GetByID(id string) (*models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *token
	return &copied, nil
}

func (f *fakeTokenRepo) GetAll() ([]models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	var out []models.AccessToken
	for _, token := range f.tokens {
		out = append(out, *token)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTokenRepo) Update(token *models.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *fakeTokenRepo) Delete(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[id]; !ok {
		return false, nil
	}
	delete(f.tokens, id)
	return true, nil
}

func (f *fakeTokenRepo) TouchLastUsed(id string, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[id]; ok {
		token.LastUsedAt = &when
	}
	return nil
}

func (f *fakeTokenRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.tokens)), nil
}

func TestTokenLifecycle(t *testing.T) {
	repo := newFakeTokenRepo()
	store := New(repo)

	created, err := store.Create("ci-pipeline")
	assert.NoError(t, err)
	assert.Equal(t, "ci-pipeline", created.Name)
	assert.True(t, len(created.Secret) > 0)

	// The stored record never contains the raw secret.
	stored, err := repo.GetByID(created.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, created.Secret, stored.Hash)
	assert.Nil(t, stored.LastUsedAt)

	id, ok := store.Validate(created.Secret, "203.0.113.9")
	assert.True(t, ok)
	assert.Equal(t, created.ID, id)

	// Validation touches last-used.
	stored, _ = repo.GetByID(created.ID)
	assert.NotNil(t, stored.LastUsedAt)

	_, ok = store.Validate("wrong-secret", "203.0.113.9")
	assert.False(t, ok)

	assert.True(t, store.Revoke(created.ID))
	_, ok = store.Validate(created.Secret, "203.0.113.9")
	assert.False(t, ok)

	// Revoking twice reports false.
	assert.False(t, store.Revoke(created.ID))
}

func TestCreateRejectsEmptyName(t *testing.T) {
	store := New(newFakeTokenRepo())
	_, err := store.Create("")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestRotateInvalidatesOldSecret(t *testing.T) {
	repo := newFakeTokenRepo()
	store := New(repo)

	created, err := store.Create("deploy")
	assert.NoError(t, err)

	rotated, err := store.Rotate(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, created.ID, rotated.ID)
	assert.Equal(t, created.Name, rotated.Name)
	assert.NotEqual(t, created.Secret, rotated.Secret)

	_, ok := store.Validate(created.Secret, "")
	assert.False(t, ok)

	id, ok := store.Validate(rotated.Secret, "")
	assert.True(t, ok)
	assert.Equal(t, created.ID, id)

	stored, _ := repo.GetByID(created.ID)
	assert.NotNil(t, stored.LastRotatedAt)
}

func TestRotateUnknownToken(t *testing.T) {
	store := New(newFakeTokenRepo())
	_, err := store.Rotate("tk_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateWithRepositoryError(t *testing.T) {
	repo := newFakeTokenRepo()
	repo.getAllErr = errors.New("db down")
	store := New(repo)

	_, ok := store.Validate("anything", "")
	assert.False(t, ok)
}

func TestCountAndList(t *testing.T) {
	repo := newFakeTokenRepo()
	store := New(repo)

	for _, name := range []string{"a", "b", "c"} {
		_, err := store.Create(name)
		assert.NoError(t, err)
	}

	count, err := store.Count()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)

	tokens, err := store.List()
	assert.NoError(t, err)
	assert.Len(t, tokens, 3)
}

func TestMaskIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "192.168.1.42", want: "192.168.x.x"},
		{in: "10.0.0.1", want: "10.0.x.x"},
		{in: "2001:db8::1", want: "redacted"},
		{in: "not-an-ip", want: "redacted"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := MaskIP(tt.in); got != tt.want {
			t.Fatalf("MaskIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
