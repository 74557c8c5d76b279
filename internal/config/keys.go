package config

import "os"

// KeySource says where a secret's value was found.
type KeySource string

const (
	KeySourceEnv    KeySource = "env"
	KeySourceConfig KeySource = "config"
	KeySourceNone   KeySource = "none"
)

// KeyStatus reports one secret without revealing it. Served by /api/config
// and printed by the status command.
type KeyStatus struct {
	Name   string    `json:"name"`
	Source KeySource `json:"source"`
	IsSet  bool      `json:"is_set"`
	Masked string    `json:"masked,omitempty"`
}

// secret pairs a display name with its value and override variable.
type secret struct {
	name  string
	value func(*Config) string
	env   string
}

// secrets lists every credential the server can be configured with. The
// Yahoo endpoints are keyless, so only backends appear here.
var secrets = []secret{
	{
		name:  "Redis Password",
		value: func(c *Config) string { return c.Cache.RedisPassword },
		env:   EnvPrefix + "_CACHE_REDIS_PASSWORD",
	},
}

// CheckKeys reports every secret in cfg.
func CheckKeys(cfg *Config) []KeyStatus {
	out := make([]KeyStatus, 0, len(secrets))
	for _, s := range secrets {
		out = append(out, checkKey(s.name, s.value(cfg), s.env))
	}
	return out
}

// checkKey attributes a non-empty value to the environment when envVar is
// set, otherwise to the config file.
func checkKey(name, value, envVar string) KeyStatus {
	if value == "" {
		return KeyStatus{Name: name, Source: KeySourceNone}
	}
	src := KeySourceConfig
	if os.Getenv(envVar) != "" {
		src = KeySourceEnv
	}
	return KeyStatus{Name: name, Source: src, IsSet: true, Masked: maskKey(value)}
}

// maskKey keeps the first and last three characters of values longer
// than eight.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
