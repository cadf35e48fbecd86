package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file looked up in the project root.
const FileName = ".pybundle.yaml"

const (
	pyprojectName   = "pyproject.toml"
	envPrefix       = "PYBUNDLE"
	envKeySeparator = "_"
)

//go:embed schema.json
var schemaJSON []byte

// LoadOptions locates the configuration sources.
type LoadOptions struct {
	// Root is the project directory searched for pyproject.toml and FileName.
	Root string
	// File is an explicit config path. A missing explicit file is an error.
	File string
	// Flags maps config keys to command-line flags that override them when set.
	Flags map[string]*pflag.Flag
}

// Load merges, lowest first: defaults, [tool.pybundle] in pyproject.toml,
// the YAML config file, PYBUNDLE_* environment variables and changed flags.
func Load(opts LoadOptions) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if opts.Root != "" {
		table, err := readPyproject(filepath.Join(opts.Root, pyprojectName))
		if err != nil {
			return nil, err
		}

		if err := mergeDocument(viperCfg, pyprojectName, table); err != nil {
			return nil, err
		}
	}

	path, explicit := opts.File, opts.File != ""
	if !explicit && opts.Root != "" {
		path = filepath.Join(opts.Root, FileName)
	}

	if path != "" {
		doc, err := readYAML(path, explicit)
		if err != nil {
			return nil, err
		}

		if err := mergeDocument(viperCfg, path, doc); err != nil {
			return nil, err
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}

		if err := viperCfg.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no source overrides anything.
func Default() *Config {
	cfg, err := Load(LoadOptions{})
	if err != nil {
		panic(err)
	}

	return cfg
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("bundle.header", DefaultBundleHeader)
	viperCfg.SetDefault("bundle.footer", DefaultBundleFooter)
	viperCfg.SetDefault("bundle.timestamp", DefaultBundleTimestamp)
	viperCfg.SetDefault("bundle.strip_main_guards", DefaultBundleStripMainGuards)

	viperCfg.SetDefault("resolve.strict", DefaultResolveStrict)
	viperCfg.SetDefault("resolve.implicit_relative", DefaultResolveImplicitRelative)
	viperCfg.SetDefault("resolve.include_unreachable", DefaultResolveIncludeUnreachable)

	viperCfg.SetDefault("discovery.exclude", []string{})
	viperCfg.SetDefault("discovery.detect_scripts", DefaultDiscoveryDetectScripts)
	viperCfg.SetDefault("discovery.max_file_size", DefaultDiscoveryMaxFileSize)

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.dir", DefaultCacheDir)
	viperCfg.SetDefault("cache.size", DefaultCacheSize)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
}

// readPyproject returns the [tool.pybundle] table, or nil when absent.
func readPyproject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pyprojectName, err)
	}

	var doc struct {
		Tool struct {
			Pybundle map[string]any `toml:"pybundle"`
		} `toml:"tool"`
	}

	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", pyprojectName, err)
	}

	return doc.Tool.Pybundle, nil
}

func readYAML(path string, required bool) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return doc, nil
}

// mergeDocument validates doc against the schema and layers it over viperCfg.
func mergeDocument(viperCfg *viper.Viper, source string, doc map[string]any) error {
	if len(doc) == 0 {
		return nil
	}

	if err := validateDocument(doc); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	if err := viperCfg.MergeConfigMap(doc); err != nil {
		return fmt.Errorf("merge %s: %w", source, err)
	}

	return nil
}

func validateDocument(doc map[string]any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		problems = append(problems, resultErr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}
