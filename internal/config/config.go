package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/schemawire/internal/protocol/frame"
	"github.com/danmuck/schemawire/internal/protocol/schema"
)

// Config is the framectl configuration: the frame header layout, limits and
// the message schema set.
type Config struct {
	Header      HeaderConfig                 `toml:"header"`
	Limits      LimitsConfig                 `toml:"limits"`
	SchemaFiles []string                     `toml:"schema_files"`
	Messages    map[string]schema.Definition `toml:"messages"`
}

type HeaderConfig struct {
	IDField   string            `toml:"id_field"`
	SizeField string            `toml:"size_field"`
	Fields    []schema.FieldDef `toml:"fields"`
}

type LimitsConfig struct {
	MaxPayloadBytes uint64 `toml:"max_payload_bytes"`
}

// Load reads a TOML config, merges the JSON schema files it lists (paths are
// relative to the config file) and applies defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Messages == nil {
		cfg.Messages = make(map[string]schema.Definition)
	}
	base := filepath.Dir(path)
	for _, file := range cfg.SchemaFiles {
		if !filepath.IsAbs(file) {
			file = filepath.Join(base, file)
		}
		defs, err := LoadSchemaJSON(file)
		if err != nil {
			return Config{}, err
		}
		for name, def := range defs {
			if _, dup := cfg.Messages[name]; dup {
				return Config{}, fmt.Errorf("config: schema %q defined twice (%s)", name, file)
			}
			cfg.Messages[name] = def
		}
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	md, err := toml.Decode(string(data), out)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadSchemaJSON reads a JSON object mapping schema names to {id, fields}.
func LoadSchemaJSON(path string) (map[string]schema.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema load failed (%s): %w", path, err)
	}
	defs, err := ParseSchemaJSON(data)
	if err != nil {
		return nil, fmt.Errorf("schema parse failed (%s): %w", path, err)
	}
	return defs, nil
}

// ParseSchemaJSON decodes a schema set, rejecting unknown keys.
func ParseSchemaJSON(data []byte) (map[string]schema.Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var defs map[string]schema.Definition
	if err := dec.Decode(&defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Header.Fields) == 0 {
		cfg.Header.Fields = frame.DefaultHeader().Fields
		if cfg.Header.IDField == "" {
			cfg.Header.IDField = frame.FieldMessageID
		}
		if cfg.Header.SizeField == "" {
			cfg.Header.SizeField = frame.FieldSize
		}
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits.MaxPayloadBytes = frame.DefaultLimits().MaxPayloadBytes
	}
}

// Validate checks structure only; type resolution happens when the registry
// is built.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Header.IDField) == "" {
		return fmt.Errorf("header config missing id_field")
	}
	if len(cfg.Messages) == 0 {
		return fmt.Errorf("config declares no messages")
	}
	names := make([]string, 0, len(cfg.Messages))
	for name := range cfg.Messages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ValidateDefinition(name, cfg.Messages[name]); err != nil {
			return fmt.Errorf("messages.%s invalid: %w", name, err)
		}
	}
	return nil
}

func ValidateDefinition(name string, def schema.Definition) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	for i, f := range def.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("field[%d] name is required", i)
		}
		if strings.TrimSpace(f.Type) == "" {
			return fmt.Errorf("field %q type is required", f.Name)
		}
	}
	return nil
}
