package service

// Viewer identifies who is making a request. The zero value is anonymous.
type Viewer struct {
	UserID int64
}

// Authenticated reports whether the viewer carries a user id.
func (v Viewer) Authenticated() bool { return v.UserID > 0 }
