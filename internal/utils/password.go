package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredential holds the bcrypt hash of the admin secret.  The plain
// secret is hashed once at startup and never kept in memory afterwards.
type AdminCredential struct {
	hash []byte
}

// NewAdminCredential hashes secret with the given bcrypt cost.  Costs
// outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewAdminCredential(secret string, cost int) (*AdminCredential, error) {
	if secret == "" {
		return nil, errors.New("empty admin secret")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, err
	}
	return &AdminCredential{hash: h}, nil
}

// Verify reports whether plain matches the admin secret.
func (a *AdminCredential) Verify(plain string) bool {
	return bcrypt.CompareHashAndPassword(a.hash, []byte(plain)) == nil
}
