package config

// Settings holds the full cinelist configuration tree persisted to disk.
type Settings struct {
	Server   ServerSettings   `yaml:"server"`
	Database DatabaseSettings `yaml:"database"`
	TMDB     TMDBSettings     `yaml:"tmdb"`
	Auth     AuthSettings     `yaml:"auth"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"baseUrl"`
	LogFile string `yaml:"logFile"`
}

// DatabaseSettings configures the sqlite store.
type DatabaseSettings struct {
	Path string `yaml:"path"`
}

// TMDBSettings configures the movie metadata gateway.
type TMDBSettings struct {
	APIKey string `yaml:"apiKey"`
}

// AuthSettings configures session tokens and the avatar store. Durations
// are plain integers to keep the YAML obvious.
type AuthSettings struct {
	Secret       string `yaml:"secret"`
	TokenMinutes int    `yaml:"tokenMinutes"`
	CookieDays   int    `yaml:"cookieDays"`
	AvatarDir    string `yaml:"avatarDir"`
}

// DefaultSettings returns the settings used when no config file exists yet.
// The TMDB API key and auth secret have no usable defaults; the key must be
// supplied and the secret is generated on first run.
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Addr:    ":8080",
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseSettings{
			Path: "data/cinelist.db",
		},
		Auth: AuthSettings{
			TokenMinutes: 60,
			CookieDays:   30,
			AvatarDir:    "data/avatars",
		},
	}
}
