// Package config loads the recognized environment variables into an
// immutable Config at process startup.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the full set of values rubyshd reads from its environment. It
// is built once at startup and never mutated afterward.
type Config struct {
	PublicRootPath string
	ErrdocsPath    string
	PartialsPath   string
	DataPath       string

	TLSClientCACertificatePEMFilename string // empty disables mutual TLS
	TLSServerCertificatePEMFilename   string
	TLSServerPrivateKeyPEMFilename    string

	MaxRequestHeaderSize int
	TLSListenPort        int
	DefaultHostname      string
}

// Load reads the recognized bare-name environment keys (PUBLIC_ROOT_PATH,
// ERRDOCS_PATH, TLS_LISTEN_PORT, ...) through Viper, bound individually
// rather than through AutomaticEnv since rubyshd has exactly one
// configuration shape rather than the multi-capsule layout a YAML file
// would suit. Path-shaped keys are validated to exist and be readable at
// startup: a bad path here is a fatal misconfiguration, not a request-time
// error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("public_root_path", "")
	v.SetDefault("errdocs_path", "")
	v.SetDefault("partials_path", "")
	v.SetDefault("data_path", "")
	v.SetDefault("tls_client_ca_certificate_pem_filename", "")
	v.SetDefault("tls_server_certificate_pem_filename", "")
	v.SetDefault("tls_server_private_key_pem_filename", "")
	v.SetDefault("max_request_header_size", 2048)
	v.SetDefault("tls_listen_port", 4443)
	v.SetDefault("default_hostname", "ruby.sh")

	bindPairs := [][2]string{
		{"public_root_path", "PUBLIC_ROOT_PATH"},
		{"errdocs_path", "ERRDOCS_PATH"},
		{"partials_path", "PARTIALS_PATH"},
		{"data_path", "DATA_PATH"},
		{"tls_client_ca_certificate_pem_filename", "TLS_CLIENT_CA_CERTIFICATE_PEM_FILENAME"},
		{"tls_server_certificate_pem_filename", "TLS_SERVER_CERTIFICATE_PEM_FILENAME"},
		{"tls_server_private_key_pem_filename", "TLS_SERVER_PRIVATE_KEY_PEM_FILENAME"},
		{"max_request_header_size", "MAX_REQUEST_HEADER_SIZE"},
		{"tls_listen_port", "TLS_LISTEN_PORT"},
		{"default_hostname", "DEFAULT_HOSTNAME"},
	}
	for _, pair := range bindPairs {
		if err := v.BindEnv(pair[0], pair[1]); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", pair[0], err)
		}
	}

	cfg := &Config{
		PublicRootPath:                    v.GetString("public_root_path"),
		ErrdocsPath:                       v.GetString("errdocs_path"),
		PartialsPath:                      v.GetString("partials_path"),
		DataPath:                          v.GetString("data_path"),
		TLSClientCACertificatePEMFilename: v.GetString("tls_client_ca_certificate_pem_filename"),
		TLSServerCertificatePEMFilename:   v.GetString("tls_server_certificate_pem_filename"),
		TLSServerPrivateKeyPEMFilename:    v.GetString("tls_server_private_key_pem_filename"),
		MaxRequestHeaderSize:              v.GetInt("max_request_header_size"),
		TLSListenPort:                     v.GetInt("tls_listen_port"),
		DefaultHostname:                   v.GetString("default_hostname"),
	}

	if err := validatePaths(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validatePaths(cfg *Config) error {
	required := map[string]string{
		"PUBLIC_ROOT_PATH":                   cfg.PublicRootPath,
		"ERRDOCS_PATH":                        cfg.ErrdocsPath,
		"PARTIALS_PATH":                       cfg.PartialsPath,
		"DATA_PATH":                           cfg.DataPath,
		"TLS_SERVER_CERTIFICATE_PEM_FILENAME": cfg.TLSServerCertificatePEMFilename,
		"TLS_SERVER_PRIVATE_KEY_PEM_FILENAME": cfg.TLSServerPrivateKeyPEMFilename,
	}
	for name, path := range required {
		if path == "" {
			return fmt.Errorf("config: %s is required", name)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("config: %s %q: %w", name, path, err)
		}
		f.Close()
	}

	if cfg.TLSClientCACertificatePEMFilename != "" {
		f, err := os.Open(cfg.TLSClientCACertificatePEMFilename)
		if err != nil {
			return fmt.Errorf("config: TLS_CLIENT_CA_CERTIFICATE_PEM_FILENAME %q: %w", cfg.TLSClientCACertificatePEMFilename, err)
		}
		f.Close()
	}

	return nil
}

// MutualTLSEnabled reports whether a client CA bundle was configured.
func (c *Config) MutualTLSEnabled() bool {
	return c.TLSClientCACertificatePEMFilename != ""
}
