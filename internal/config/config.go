package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/elastic/go-ucfg"
	ucfgyaml "github.com/elastic/go-ucfg/yaml"

	"github.com/harshul/coderun/internal/language"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Settings holds the engine-wide knobs that are not tied to one language.
type Settings struct {
	OutputDir     string        `config:"output_dir"`
	TestDir       string        `config:"test_dir"`
	InputSuffix   string        `config:"input_suffix"`
	OutputSuffix  string        `config:"output_suffix"`
	WatchDebounce time.Duration `config:"watch_debounce"`
	HistorySize   int           `config:"history_size"`
	TestTimeout   time.Duration `config:"test_timeout"`
	DetachOnClose bool          `config:"detach_on_close"`
	Scrollback    int           `config:"scrollback"`
}

// FlagProfileSpec is the file form of a flag profile.
type FlagProfileSpec struct {
	Name  string `config:"name"`
	Flags string `config:"flags"`
}

// LanguageSpec is the file form of a language profile.
type LanguageSpec struct {
	Mode         string            `config:"mode"`
	Template     string            `config:"template"`
	Compiler     string            `config:"compiler"`
	OutputFlag   string            `config:"output_flag"`
	Profiles     []FlagProfileSpec `config:"profiles"`
	DirectRun    string            `config:"direct_run"`
	PostBuildRun string            `config:"post_build_run"`
	Extensions   []string          `config:"extensions"`
}

type file struct {
	Settings  Settings                `config:"settings"`
	Languages map[string]LanguageSpec `config:"languages"`
}

// Config is the effective configuration: defaults with the user override
// merged on top.
type Config struct {
	Settings Settings
	Registry *language.Registry
	// Source is the override file that was merged, empty when none was found.
	Source string
}

// DefaultPath returns the conventional location of the user override file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "coderun", "config.yaml")
}

// Load reads the embedded defaults and merges the override at path over them.
// A missing override file is not an error.
func Load(path string) (*Config, error) {
	base, err := ucfgyaml.NewConfig(defaultsYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in defaults: %w", err)
	}

	source := ""
	if path != "" {
		user, err := ucfgyaml.NewConfigWithFile(path)
		switch {
		case err == nil:
			if err := base.Merge(user); err != nil {
				return nil, fmt.Errorf("failed to merge %s: %w", path, err)
			}
			source = path
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
		}
	}

	cfg, err := build(base)
	if err != nil {
		return nil, err
	}
	cfg.Source = source
	return cfg, nil
}

// Parse merges an in-memory override document over the defaults.
func Parse(override []byte) (*Config, error) {
	base, err := ucfgyaml.NewConfig(defaultsYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in defaults: %w", err)
	}
	if len(override) > 0 {
		user, err := ucfgyaml.NewConfig(override)
		if err != nil {
			return nil, fmt.Errorf("failed to parse override: %w", err)
		}
		if err := base.Merge(user); err != nil {
			return nil, fmt.Errorf("failed to merge override: %w", err)
		}
	}
	return build(base)
}

func build(c *ucfg.Config) (*Config, error) {
	var f file
	if err := c.Unpack(&f); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := f.Settings.validate(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(f.Languages))
	for id := range f.Languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	profiles := make([]language.Profile, 0, len(ids))
	for _, id := range ids {
		profiles = append(profiles, f.Languages[id].profile(id))
	}
	reg, err := language.NewRegistry(profiles)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Config{Settings: f.Settings, Registry: reg}, nil
}

func (s Settings) validate() error {
	switch {
	case s.OutputDir == "":
		return errors.New("invalid configuration: settings.output_dir is empty")
	case s.InputSuffix == "" || s.OutputSuffix == "":
		return errors.New("invalid configuration: test suffixes must not be empty")
	case s.InputSuffix == s.OutputSuffix:
		return errors.New("invalid configuration: input_suffix and output_suffix must differ")
	case s.HistorySize < 1:
		return errors.New("invalid configuration: history_size must be at least 1")
	case s.WatchDebounce < 0:
		return errors.New("invalid configuration: watch_debounce must not be negative")
	}
	return nil
}

func (l LanguageSpec) profile(id string) language.Profile {
	p := language.Profile{
		ID:           id,
		Mode:         language.Mode(l.Mode),
		Template:     l.Template,
		Compiler:     l.Compiler,
		OutputFlag:   l.OutputFlag,
		DirectRun:    l.DirectRun,
		PostBuildRun: l.PostBuildRun,
		Extensions:   l.Extensions,
	}
	for _, fp := range l.Profiles {
		p.FlagProfiles = append(p.FlagProfiles, language.FlagProfile{Name: fp.Name, Flags: fp.Flags})
	}
	return p
}
