// Package identity resolves bearer tokens from an external identity provider
// into the internal actor that engine operations run as.
package identity

// Actor is the resolved internal user id of the caller, or none. It is passed
// explicitly into every engine call.
type Actor struct {
	id string
}

// Anonymous is the actor of a request without a resolvable identity.
var Anonymous = Actor{}

// For returns the actor for an internal user id. An empty id is Anonymous.
func For(userID string) Actor {
	return Actor{id: userID}
}

// ID returns the internal user id and whether the actor is authenticated.
func (a Actor) ID() (string, bool) {
	return a.id, a.id != ""
}

// Authenticated reports whether the actor resolved to a user.
func (a Actor) Authenticated() bool {
	return a.id != ""
}

func (a Actor) String() string {
	if a.id == "" {
		return "anonymous"
	}
	return a.id
}
