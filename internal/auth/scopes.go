package auth

// Scopes embedded in issued tokens.
const (
	ScopeParticipationWrite = "participation:write"
	ScopeReportsRead        = "reports:read"
)
