package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// audit logs a security event. Passwords and tokens are never passed here.
func (h *Handler) audit(r *http.Request, action string, attrs ...slog.Attr) {
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	base := []slog.Attr{slog.String("ua", strings.TrimSpace(r.UserAgent()))}
	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		base = append(base, slog.String("ip", ip.String()))
	}
	h.log.LogAttrs(r.Context(), slog.LevelInfo, action, append(base, attrs...)...)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

// parseForwardedIP returns the right-most valid address in an X-Forwarded-For
// list. That entry is the one appended by the proxy in front of us; anything
// to its left came from the client.
func parseForwardedIP(raw string) net.IP {
	parts := strings.Split(raw, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if ip := net.ParseIP(strings.TrimSpace(parts[i])); ip != nil {
			return ip
		}
	}
	return nil
}
