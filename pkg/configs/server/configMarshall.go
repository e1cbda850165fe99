package server

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/server.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type ServerConfigMarshall struct {
	Port     int32               `yaml:"port"`
	Database string              `yaml:"database"`
	ModelDir string              `yaml:"modelDir"`
	Auth     *AuthConfigMarshall `yaml:"auth,omitempty"`
}

var _ Marshalled[*ServerConfig] = &ServerConfigMarshall{}

func (m *ServerConfigMarshall) trySeal(path string) *ServerConfig {
	port := m.Port
	if port == 0 {
		port = 8800
	}
	modelDir := m.ModelDir
	if modelDir == "" {
		modelDir = "./models"
	}
	var auth *AuthConfig
	if m.Auth != nil {
		auth = m.Auth.trySeal(path + ".auth")
	}
	return &ServerConfig{
		port:     port,
		database: required(m.Database, path+".database"),
		modelDir: modelDir,
		auth:     auth,
	}
}

type AuthConfigMarshall struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer,omitempty"`
}

func (m *AuthConfigMarshall) trySeal(path string) *AuthConfig {
	issuer := m.Issuer
	if issuer == "" {
		issuer = "cropbase"
	}
	return &AuthConfig{
		secret: required(m.Secret, path+".secret"),
		issuer: issuer,
	}
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
