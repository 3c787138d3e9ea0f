package delivery

// Token is a stored API key. The empty token means none is stored.
type Token string

// APIKey implements feedback.Credentials.
func (t Token) APIKey() (string, bool) {
	return string(t), t != ""
}
