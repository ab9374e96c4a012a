package domain

// Identity is the caller of an operation. The zero value is anonymous.
type Identity struct {
	UserID int
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// IsAnonymous reports whether no user is attached.
func (i Identity) IsAnonymous() bool {
	return i.UserID <= 0
}
