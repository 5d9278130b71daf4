package validator

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateTarget checks that a target is usable for the given probe kind.
// Kinds it does not know about are accepted as is.
func ValidateTarget(kind, target string) error {
	target = strings.TrimSpace(target)

	switch kind {
	case "memory_available":
		return nil
	case "tcp_connect":
		if target == "" {
			return fmt.Errorf("target is required")
		}
		// Проверяем правильность host:port, порт может прийти через params
		if host, _, err := net.SplitHostPort(target); err == nil && host == "" {
			return fmt.Errorf("target %q has no host", target)
		}
		return nil
	case "http_check":
		if target == "" {
			return fmt.Errorf("target is required")
		}
		// Проверяем правильность url http://api.com
		if u, err := url.Parse(target); err == nil && u.Scheme != "" && u.Host != "" {
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("unsupported scheme %q", u.Scheme)
			}
			return nil
		}
		// Проверяем упрощенные ссылки google.com
		if strings.Contains(target, "://") {
			return fmt.Errorf("invalid URL %q", target)
		}
		return nil
	case "dns_lookup":
		if target == "" || strings.ContainsAny(target, " /:") {
			return fmt.Errorf("invalid domain name %q", target)
		}
		return nil
	default:
		if target == "" {
			return fmt.Errorf("target is required")
		}
		return nil
	}
}
