package domain

// Credential is the account used to open an authenticated session.
type Credential struct {
	Username string
	Password string
}

// String masks the password so a Credential is safe to log.
func (c Credential) String() string {
	if c.Password == "" {
		return c.Username
	}
	return c.Username + ":*****"
}
