package models

// Caller is the resolved identity of the user making a request. A zero
// Caller means the request carried no usable session; operations branch on
// Authenticated rather than treating its absence as an error.
type Caller struct {
	UserID string
	Name   string
}

// Authenticated reports whether the caller carries a resolved identity.
func (c Caller) Authenticated() bool {
	return c.UserID != ""
}
