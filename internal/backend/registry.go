package backend

// Credentials maps provider name to its credential. Providers without an
// entry get zero-value credentials, which works for keyless providers
// such as a local Ollama instance.
type Credentials map[string]Credential

// Get returns the credential for a provider, zero value if absent.
func (c Credentials) Get(provider string) Credential {
	if c == nil {
		return Credential{}
	}
	return c[provider]
}
