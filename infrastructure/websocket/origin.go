package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open a connection.
// Requests without an Origin header come from non-browser clients and are allowed.
type OriginPolicy struct {
	log      *slog.Logger
	allowed  map[string]struct{}
	allowAll bool
}

func NewOriginPolicy(log *slog.Logger, origins []string) *OriginPolicy {
	p := &OriginPolicy{log: log, allowed: make(map[string]struct{})}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
		case trimmed == "*":
			p.allowAll = true
		default:
			normalized, ok := normalizeOrigin(trimmed)
			if !ok {
				log.Warn("Ignoring invalid origin in configuration", "origin", origin)
				continue
			}
			p.allowed[normalized] = struct{}{}
		}
	}
	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// Check is used as the upgrader's CheckOrigin.
func (p *OriginPolicy) Check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(header)
	if ok {
		if _, found := p.allowed[normalized]; found {
			return true
		}
	}
	p.log.Warn("Blocked connection from disallowed origin", "origin", header)
	return false
}
