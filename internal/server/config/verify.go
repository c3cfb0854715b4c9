package config

import (
	"strings"

	"github.com/yndnr/autoserve/internal/core/domain"
)

// Verify checks rules that span several options and cannot be stated in
// the schema.
func Verify(cfg *ServerConfig) error {
	return verifyServer(&cfg.Server)
}

func verifyServer(s *ServerSection) error {
	if (s.SSLCertPath == "") != (s.SSLKeyPath == "") {
		return domain.ErrConfigInvalid.WithDetails("sslCertPath and sslKeyPath must be set together")
	}
	if s.CallbackPort != 0 && s.CallbackAddress == "" {
		return domain.ErrConfigInvalid.WithDetails("callbackPort requires callbackAddress")
	}

	denied := make(map[string]bool, len(s.DenyInsecure))
	for _, f := range s.DenyInsecure {
		denied[f] = true
	}
	var both []string
	for _, f := range s.AllowInsecure {
		if denied[f] {
			both = append(both, f)
		}
	}
	if len(both) > 0 {
		return domain.ErrConfigInvalid.WithDetailsf("features both allowed and denied: %s", strings.Join(both, ", "))
	}
	return nil
}
