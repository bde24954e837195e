package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/savente93/snakedown/internal/inventory"
	"github.com/savente93/snakedown/internal/render"
	"github.com/savente93/snakedown/internal/suggest"
)

// FileName is the project-level configuration file.
const FileName = "snakedown.toml"

// pyprojectSection holds snakedown settings inside pyproject.toml.
const pyprojectSection = "tool.snakedown"

type ExternalConfig struct {
	Name string `mapstructure:"name" toml:"name,omitempty"`
	URL  string `mapstructure:"url" toml:"url"`
}

type SuggestConfig struct {
	MaxLengthDelta  int `mapstructure:"max_length_delta" toml:"max_length_delta"`
	MaxEditDistance int `mapstructure:"max_edit_distance" toml:"max_edit_distance"`
}

type Config struct {
	PkgPath        string `mapstructure:"pkg_path" toml:"pkg_path"`
	SiteRoot       string `mapstructure:"site_root" toml:"site_root"`
	APIContentPath string `mapstructure:"api_content_path" toml:"api_content_path"`
	// NotebooksPath is a directory of .ipynb files to render; empty
	// disables notebooks.
	NotebooksPath        string                    `mapstructure:"notebooks_path" toml:"notebooks_path,omitempty"`
	NotebooksContentPath string                    `mapstructure:"notebooks_content_path" toml:"notebooks_content_path"`
	SkipUndoc            bool                      `mapstructure:"skip_undoc" toml:"skip_undoc"`
	SkipPrivate          bool                      `mapstructure:"skip_private" toml:"skip_private"`
	SkipWrite            bool                      `mapstructure:"skip_write" toml:"skip_write"`
	Exclude              []string                  `mapstructure:"exclude" toml:"exclude"`
	SSG                  render.Format             `mapstructure:"ssg" toml:"ssg"`
	Externals            map[string]ExternalConfig `mapstructure:"externals" toml:"externals,omitempty"`
	Suggest              SuggestConfig             `mapstructure:"suggest" toml:"suggest"`
}

// Sources returns the configured externals as inventory sources, ordered
// by key.
func (c *Config) Sources() []inventory.Source {
	keys := make([]string, 0, len(c.Externals))
	for k := range c.Externals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sources := make([]inventory.Source, 0, len(keys))
	for _, k := range keys {
		sources = append(sources, inventory.Source{Key: k, URL: c.Externals[k].URL})
	}
	return sources
}

// cacheBase returns the base cache directory for snakedown.
// Checks XDG_CACHE_HOME, then ~/.cache, then the temp dir as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "snakedown")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "snakedown")
	}
	return filepath.Join(os.TempDir(), "snakedown")
}

// CacheDir returns the directory downloaded inventories are kept in.
func CacheDir() string {
	return cacheBase()
}

// InventoryPath returns the cache file for the external named key.
func InventoryPath(key string) string {
	return inventory.CachePath(CacheDir(), key)
}

// UserConfigDir returns the per-user configuration directory.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "snakedown")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "snakedown")
	}
	return ""
}

// LoadOptions control where configuration is read from.
type LoadOptions struct {
	// ConfigFile overrides config file discovery.
	ConfigFile string
	// Dir is searched for pyproject.toml and snakedown.toml; defaults to
	// the working directory.
	Dir string
	// Overrides hold explicitly set command line values, keyed like the
	// config file. They win over every other source.
	Overrides map[string]any
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pkg_path", ".")
	v.SetDefault("site_root", "docs")
	v.SetDefault("api_content_path", "api/")
	v.SetDefault("notebooks_path", "")
	v.SetDefault("notebooks_content_path", "user-guide/")
	v.SetDefault("skip_undoc", true)
	v.SetDefault("skip_private", true)
	v.SetDefault("skip_write", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("ssg", string(render.FormatMarkdown))
	v.SetDefault("suggest.max_length_delta", suggest.DefaultMaxLengthDelta)
	v.SetDefault("suggest.max_edit_distance", suggest.DefaultMaxEditDistance)
}

// Load builds the effective configuration. Sources, lowest precedence
// first: defaults, [tool.snakedown] in pyproject.toml, snakedown.toml
// (or opts.ConfigFile), SNAKEDOWN_* environment variables, overrides.
func Load(opts LoadOptions) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	v := viper.New()
	setDefaults(v)

	if err := mergePyproject(v, filepath.Join(dir, "pyproject.toml")); err != nil {
		return nil, err
	}

	path, err := findConfigFile(opts.ConfigFile, dir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SNAKEDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToFormatHookFunc(),
			stringToExternalConfigHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergePyproject(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	pv := viper.New()
	pv.SetConfigFile(path)
	pv.SetConfigType("toml")
	if err := pv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	sub := pv.Sub(pyprojectSection)
	if sub == nil {
		return nil
	}
	if err := v.MergeConfigMap(sub.AllSettings()); err != nil {
		return fmt.Errorf("failed to merge [%s] from %s: %w", pyprojectSection, path, err)
	}
	return nil
}

// findConfigFile returns the explicit file if given, else the first
// snakedown.toml found in dir or the user config dir, else "".
func findConfigFile(explicit, dir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	candidates := []string{filepath.Join(dir, FileName)}
	if ucd := UserConfigDir(); ucd != "" {
		candidates = append(candidates, filepath.Join(ucd, FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// Validate checks values the decoder cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.PkgPath == "" {
		errs = append(errs, errors.New("pkg_path must not be empty"))
	}
	if filepath.IsAbs(c.NotebooksContentPath) {
		errs = append(errs, errors.New("notebooks_content_path must be relative to the site content root"))
	}
	if c.Suggest.MaxLengthDelta <= 0 || c.Suggest.MaxEditDistance <= 0 {
		errs = append(errs, errors.New("suggest limits must be positive"))
	}
	for key, ext := range c.Externals {
		if _, err := inventory.BaseURL(ext.URL); err != nil {
			errs = append(errs, fmt.Errorf("externals.%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func stringToFormatHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(render.Format("")) || f.Kind() != reflect.String {
			return data, nil
		}
		return render.ParseFormat(data.(string))
	}
}

// stringToExternalConfigHookFunc allows the shorthand `key = "<url>"`.
func stringToExternalConfigHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(ExternalConfig{}) {
			return data, nil
		}
		if f.Kind() == reflect.String {
			return ExternalConfig{URL: data.(string)}, nil
		}
		return data, nil
	}
}

// Write saves cfg as a snakedown.toml at path. It refuses to replace an
// existing file unless force is set.
func Write(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
