package membership

// SessionPort is the caller's session abstraction. The engine reads and
// instructs it but never owns storage or transport; create one per
// request and discard it after.
type SessionPort interface {
	// SetAuthenticated marks the session as belonging to the user.
	SetAuthenticated(userID string) error
	// Destroy drops the current session state.
	Destroy() error
	// RegenerateID issues a fresh session identifier, keeping fixation
	// attacks from surviving a login or logout.
	RegenerateID() error
	// Remove deletes individual keys from the session.
	Remove(keys ...string) error
}

// CookiePort removes caller owned cookies, such as the remember me
// cookie on logout.
type CookiePort interface {
	Delete(name string)
}

type noopSession struct{}

func (noopSession) SetAuthenticated(string) error { return nil }
func (noopSession) Destroy() error                { return nil }
func (noopSession) RegenerateID() error           { return nil }
func (noopSession) Remove(...string) error        { return nil }

type noopCookies struct{}

func (noopCookies) Delete(string) {}

func normalizeSession(s SessionPort) SessionPort {
	if s == nil {
		return noopSession{}
	}
	return s
}

func normalizeCookies(c CookiePort) CookiePort {
	if c == nil {
		return noopCookies{}
	}
	return c
}
