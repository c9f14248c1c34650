package domain

// Address identifies an account, token, or yield-source adapter instance.
// The vault never interprets the contents; it only compares addresses for
// identity and passes them through to the token and backend collaborators.
type Address string

// ZeroAddress is the null identity. Ports treat it as "no such party".
const ZeroAddress Address = ""

// IsZero reports whether the address is the null identity.
func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) String() string { return string(a) }
