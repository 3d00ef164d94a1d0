package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type starterSettings struct {
	OutputDir     string `yaml:"output_dir"`
	TestDir       string `yaml:"test_dir"`
	WatchDebounce string `yaml:"watch_debounce"`
	TestTimeout   string `yaml:"test_timeout"`
	DetachOnClose bool   `yaml:"detach_on_close"`
}

type starterProfile struct {
	Name  string `yaml:"name"`
	Flags string `yaml:"flags"`
}

type starterLanguage struct {
	Mode       string           `yaml:"mode"`
	Template   string           `yaml:"template,omitempty"`
	Compiler   string           `yaml:"compiler,omitempty"`
	Profiles   []starterProfile `yaml:"profiles,omitempty"`
	Extensions []string         `yaml:"extensions,omitempty"`
}

type starterFile struct {
	Settings  starterSettings            `yaml:"settings"`
	Languages map[string]starterLanguage `yaml:"languages"`
}

// WriteStarter writes an override file that mirrors the current settings and
// shows how to add or adjust a language. Keys left out keep their defaults.
func WriteStarter(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	starter := starterFile{
		Settings: starterSettings{
			OutputDir:     s.OutputDir,
			TestDir:       s.TestDir,
			WatchDebounce: s.WatchDebounce.String(),
			TestTimeout:   s.TestTimeout.String(),
			DetachOnClose: s.DetachOnClose,
		},
		Languages: map[string]starterLanguage{
			"cpp": {
				Mode:     "compiled",
				Compiler: "g++",
				Profiles: []starterProfile{
					{Name: "Debug", Flags: "-g -O0 -Wall -std=c++20"},
					{Name: "Release", Flags: "-O2 -std=c++20"},
				},
			},
			"perl": {
				Mode:       "interpreted",
				Template:   "perl $FILE",
				Extensions: []string{".pl"},
			},
		},
	}

	data, err := yaml.Marshal(&starter)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}
