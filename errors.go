package netsync

// WrongRoleError is returned from client-only [Session] methods
// called on a server session.
type WrongRoleError struct {
	Op   string
	Role Role
}

func (e WrongRoleError) Error() string {
	return e.Op + " is not available to a " + e.Role.String() + " session"
}
