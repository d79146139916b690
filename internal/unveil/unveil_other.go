//go:build !openbsd

package unveil

import "rubyshd/internal/config"

// Setup is a no-op on platforms without unveil(2); filesystem confinement
// is an OpenBSD-specific hardening layer, not a portable requirement.
func Setup(cfg *config.Config) error {
	return nil
}
