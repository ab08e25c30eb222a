package handlers

import "net/http"

// Health reports service liveness plus each provider's reachability and
// breaker state. A degraded provider turns the response into a 503 without
// hiding the other provider's status.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	providerHealth := a.Factory.HealthCheck(r.Context())
	status := http.StatusOK
	overall := "ok"
	if !providerHealth.Healthy() {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	a.json(w, status, map[string]any{
		"status":    overall,
		"providers": providerHealth,
	})
}
