package warden

// Session is an authenticated identity plus its bearer credential. At most one
// Session is live at a time; its token is the sole credential attached to
// outgoing remote calls.
type Session struct {
	UserID      string
	Username    string
	DisplayName string
	Token       string
	Provider    string
}
