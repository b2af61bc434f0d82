package domain

// Actor is the acting identity threaded explicitly through every state
// store call. The access layer uses it to scope row visibility: a consumer
// acting for platform A can never claim or finalize platform B's rows.
type Actor struct {
	Name     string
	Platform string // platform scope, or "*" for platform-wide readers/operators
}

// PlatformWildcard grants an actor visibility across all platforms. Used
// by the API-side reader and operator tooling, never by consumers.
const PlatformWildcard = "*"

// CanAccess reports whether the actor may touch rows of the given platform.
func (a Actor) CanAccess(platform string) bool {
	return a.Platform == PlatformWildcard || a.Platform == platform
}
