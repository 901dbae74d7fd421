package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultServiceFile is the file `openportal serve` reads when no path is given.
const DefaultServiceFile = "openportal.yaml"

// Service is the configuration of the openportal binary.
type Service struct {
	Addr      string  `yaml:"addr" json:"addr"`
	LogLevel  string  `yaml:"log_level" json:"log_level"`
	LogFormat string  `yaml:"log_format" json:"log_format"`
	HTTP      HTTP    `yaml:"http" json:"http"`
	Redis     Redis   `yaml:"redis" json:"redis"`
	Metrics   Metrics `yaml:"metrics" json:"metrics"`
	Actions   Actions `yaml:"actions" json:"actions"`
}

// HTTP configures the outbound client used by apiCall and friends.
type HTTP struct {
	BaseURL  string   `yaml:"base_url" json:"base_url"`
	Timeout  Duration `yaml:"timeout" json:"timeout"`
	CacheTTL Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// Redis enables the redis response cache when Addr is set.
type Redis struct {
	Addr   string `yaml:"addr" json:"addr"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Actions configures the server-side action gateway used by executeAction.
type Actions struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// DefaultService returns the configuration used when no file exists.
func DefaultService() Service {
	return Service{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		HTTP:      HTTP{Timeout: Duration(30 * time.Second)},
		Redis:     Redis{Prefix: "openportal:"},
		Metrics:   Metrics{Enabled: true},
	}
}

// LoadService reads the service file over the defaults. A missing file is
// not an error; the defaults are returned.
func LoadService(path string) (Service, error) {
	cfg := DefaultService()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read service config: %w", err)
	}
	if err := Unmarshal(path, data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration decodes from strings such as "5s" or from integer milliseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Millisecond)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Millisecond)))
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
	return nil
}
