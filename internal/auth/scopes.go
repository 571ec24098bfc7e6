package auth

// Scopes guarding the operator endpoints.
const (
	ScopeStatsRead   = "stats:read"
	ScopeMaintenance = "maintenance:run"
)
