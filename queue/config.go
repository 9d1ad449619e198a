package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format is a configuration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// configKey is the document key holding processor settings.
const configKey = "queue"

// Config is the file form of the processor options, read from the "queue"
// key of a YAML or JSON document:
//
//	queue:
//	  name: render
//	  allocation: on-process
//	  overflow: spill
//	  tombstone_capacity: 512
//	  initial_size: 64
//
// Empty fields keep their defaults.
type Config struct {
	Name              string `koanf:"name"`
	Allocation        string `koanf:"allocation"`
	Overflow          string `koanf:"overflow"`
	TombstoneCapacity int    `koanf:"tombstone_capacity"`
	// InitialSize is the ring size callers should pass to MakePusher.
	InitialSize int `koanf:"initial_size"`
}

// LoadConfig parses data in the given format.
func LoadConfig(data []byte, format Format) (*Config, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidConfig, format)
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf(configKey, &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := cfg.Options(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads a .yaml, .yml or .json file.
func LoadConfigFile(path string) (*Config, error) {
	var format Format
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("%w: unknown extension %q", ErrInvalidConfig, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("queue: read config: %w", err)
	}
	return LoadConfig(data, format)
}

// Options converts c into processor options.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.Name != "" {
		opts = append(opts, WithName(c.Name))
	}
	if c.Allocation != "" {
		a, err := ParseAllocation(c.Allocation)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAllocation(a))
	}
	if c.Overflow != "" {
		o, err := ParseOverflow(c.Overflow)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithOverflow(o))
	}
	if c.TombstoneCapacity != 0 {
		if c.TombstoneCapacity < 0 {
			return nil, fmt.Errorf("%w: tombstone capacity %d", ErrInvalidConfig, c.TombstoneCapacity)
		}
		opts = append(opts, WithTombstoneCapacity(c.TombstoneCapacity))
	}
	if c.InitialSize < 0 {
		return nil, fmt.Errorf("%w: initial size %d", ErrInvalidConfig, c.InitialSize)
	}
	return opts, nil
}
