package server

type ServerConfig struct {
	port     int32
	database string
	modelDir string
	auth     *AuthConfig
}

func (c *ServerConfig) Port() int32 {
	return c.port
}

// Connection string for database.
func (c *ServerConfig) Database() string {
	return c.database
}

// Directory where model artifacts are stored.
func (c *ServerConfig) ModelDir() string {
	return c.modelDir
}

// Auth is nil when the config carries no auth section.
//
// Without it, mutating endpoints are left open. Meant for development
// setups only.
func (c *ServerConfig) Auth() *AuthConfig {
	return c.auth
}

type AuthConfig struct {
	secret string
	issuer string
}

// Signing secret of HS256 bearer tokens.
func (a *AuthConfig) Secret() string {
	return a.secret
}

// Expected token issuer. default = "cropbase"
func (a *AuthConfig) Issuer() string {
	return a.issuer
}
