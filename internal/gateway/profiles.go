package gateway

import (
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/models"
	"github.com/saipul12c/my-portofolio-sub004/pkg/cache"
)

// Directory is a small in-process profile resolver. The portfolio site
// owns the real user records; this directory mirrors whatever it has
// pushed and synthesizes a minimal profile for everyone else so message
// creation never blocks on a missing profile. Pushed profiles expire so
// a stale mirror eventually falls back to the synthesized form.
type Directory struct {
	profiles *cache.Cache
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		profiles: cache.New(cache.Options{
			DefaultExpiration: 24 * time.Hour,
			CleanupInterval:   time.Hour,
		}),
	}
}

// Put registers or replaces a profile.
func (d *Directory) Put(profile models.Profile) {
	d.profiles.Set(profile.UserID, profile)
}

// Resolve returns the known profile for a user, or a synthesized one.
func (d *Directory) Resolve(userID string) models.Profile {
	if v, ok := d.profiles.Get(userID); ok {
		return v.(models.Profile)
	}
	return models.Profile{UserID: userID, DisplayName: userID}
}
