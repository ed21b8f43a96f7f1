package soundio

import "github.com/tphakala/go-soundio/internal/conf"

// Settings configures a Context. See DefaultSettings for the defaults.
type Settings = conf.Settings

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return conf.Default()
}

// LoadSettings reads a YAML, TOML or JSON file (the extension decides) and
// applies SOUNDIO_* environment overrides on top of the defaults. An empty
// path reads only the environment.
func LoadSettings(path string) (*Settings, error) {
	return conf.Load(path)
}
