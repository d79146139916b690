//go:build openbsd

// Package unveil provides OpenBSD filesystem confinement via the
// unveil(2) syscall (pledge(2) is not called), restricting rubyshd to read-only access to
// exactly the paths it needs once startup has finished opening everything
// else.
package unveil

import (
	"fmt"

	"golang.org/x/sys/unix"

	"rubyshd/internal/config"
)

// Setup unveils every path rubyshd reads at runtime, then locks the unveil
// table so no further paths can ever be exposed. Call once, after Config is
// loaded and before the accept loop starts.
func Setup(cfg *config.Config) error {
	paths := []string{
		"/dev/urandom",
		cfg.PublicRootPath,
		cfg.ErrdocsPath,
		cfg.PartialsPath,
		cfg.DataPath,
		cfg.TLSServerCertificatePEMFilename,
		cfg.TLSServerPrivateKeyPEMFilename,
	}
	if cfg.TLSClientCACertificatePEMFilename != "" {
		paths = append(paths, cfg.TLSClientCACertificatePEMFilename)
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := unix.Unveil(p, "r"); err != nil {
			return fmt.Errorf("unveil: %s: %w", p, err)
		}
	}

	return unix.UnveilBlock()
}
