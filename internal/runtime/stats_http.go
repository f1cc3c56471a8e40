package runtime

import (
	"net/http"
	"strings"

	"github.com/drblury/mediator/internal/runtime/jsoncodec"
)

// StatsSnapshot is the document served by StatsHandler.
type StatsSnapshot struct {
	Name        string          `json:"name"`
	Middlewares []string        `json:"middlewares"`
	Cache       ResolutionStats `json:"cache"`
	Handlers    []*HandlerInfo  `json:"handlers"`
}

// Stats collects the registered handlers with their statistics.
func (m *Mediator) Stats() StatsSnapshot {
	return StatsSnapshot{
		Name:        m.conf.Name,
		Middlewares: m.Middlewares(),
		Cache:       m.CacheStats(),
		Handlers:    m.Handlers(),
	}
}

// StatsHandler serves Stats as JSON. CORS headers are set for the origins
// listed in Config.StatsCORSAllowedOrigins.
func (m *Mediator) StatsHandler() http.Handler {
	return http.HandlerFunc(m.handleGetStats)
}

func (m *Mediator) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if len(m.conf.StatsCORSAllowedOrigins) > 0 {
		if allowed := m.allowedCORSOrigin(r.Header.Get("Origin")); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
	}

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := jsoncodec.Marshal(m.Stats())
	if err != nil {
		m.logger.Error("Failed to encode stats", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (m *Mediator) allowedCORSOrigin(requestOrigin string) string {
	for _, allowed := range m.conf.StatsCORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
