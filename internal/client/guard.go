package client

// Decision is the outcome of a route authorization check.
type Decision struct {
	Allow          bool
	RedirectTarget string
}

// Authorize decides whether a route may be entered. Unauthenticated callers
// are redirected to the signup page; authenticated callers whose role does
// not match a non-empty requiredRole are redirected to the home page.
func Authorize(isAuthenticated bool, role, requiredRole string) Decision {
	if !isAuthenticated {
		return Decision{RedirectTarget: "/signup"}
	}
	if requiredRole != "" && role != requiredRole {
		return Decision{RedirectTarget: "/"}
	}
	return Decision{Allow: true}
}
