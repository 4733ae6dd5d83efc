package auth

// IsAuthorized reports whether role is one of allowed.
func IsAuthorized(role string, allowed ...string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
