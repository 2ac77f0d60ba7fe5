package stores

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const (
	minSlugLength = 3
	maxSlugLength = 64
)

// StoreDTO exposes safe tenant data in API responses.
type StoreDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateStoreInput holds creation-time data for a new store.
type CreateStoreInput struct {
	Name string
	Slug string
}

// FromModel maps a store row to its DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Slug:      m.Slug,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// NormalizeSlug lowercases and trims a slug. Inner whitespace and underscores become dashes.
func NormalizeSlug(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	slug = strings.Join(strings.Fields(slug), "-")
	return strings.ReplaceAll(slug, "_", "-")
}

// ValidSlug reports whether a normalized slug is usable in public URLs.
func ValidSlug(slug string) bool {
	if len(slug) < minSlugLength || len(slug) > maxSlugLength {
		return false
	}
	return slugPattern.MatchString(slug)
}
