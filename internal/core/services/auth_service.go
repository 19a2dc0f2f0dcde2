package services

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/lorrc/vendor-performance/internal/core/errors"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

// AuthService authenticates API clients against bcrypt-hashed keys.
type AuthService struct {
	clients []apiClient
}

type apiClient struct {
	name string
	hash []byte
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new authentication service. keyHashes maps a
// client name to the bcrypt hash of its API key.
func NewAuthService(keyHashes map[string]string) *AuthService {
	clients := make([]apiClient, 0, len(keyHashes))
	for name, hash := range keyHashes {
		clients = append(clients, apiClient{name: name, hash: []byte(hash)})
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].name < clients[j].name })
	return &AuthService{clients: clients}
}

// Authenticate returns the name of the client owning apiKey.
func (s *AuthService) Authenticate(ctx context.Context, apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", apperrors.ErrInvalidCredentials
	}

	for _, client := range s.clients {
		if bcrypt.CompareHashAndPassword(client.hash, []byte(apiKey)) == nil {
			return client.name, nil
		}
	}

	// Don't reveal which clients exist
	return "", apperrors.ErrInvalidCredentials
}

// HashAPIKey returns the bcrypt hash stored in configuration for apiKey.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
