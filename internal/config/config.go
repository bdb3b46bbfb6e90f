// Package config loads lensctl.toml: how lenses are drawn, which language
// servers to start and how tracing is set up.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"lensctl/internal/codelens"
	"lensctl/internal/lsp"
)

// FileName is the per-project config file looked up from the edited file
// upwards.
const FileName = ".lensctl.toml"

// Config is the decoded configuration file.
type Config struct {
	// Path is the file the config was read from, empty for defaults.
	Path    string   `toml:"-"`
	Lens    Lens     `toml:"lens"`
	Servers []Server `toml:"server"`
	Trace   Trace    `toml:"trace"`
}

// Lens controls rendering.
type Lens struct {
	Placeholder        string `toml:"placeholder"`
	Separator          string `toml:"separator"`
	Highlight          string `toml:"highlight"`
	SeparatorHighlight string `toml:"separator_highlight"`
	MaxWidth           int    `toml:"max_width"`
}

// Server describes one language server.
type Server struct {
	Name        string   `toml:"name"`
	Command     string   `toml:"command"`
	Args        []string `toml:"args"`
	Extensions  []string `toml:"extensions"`
	RootMarkers []string `toml:"root_markers"`
	LanguageID  string   `toml:"language_id"`
}

// Trace mirrors the --trace* flags; flags win over the file.
type Trace struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration: stock lens style and gopls
// for Go files.
func Default() Config {
	style := codelens.DefaultRenderStyle()
	return Config{
		Lens: Lens{
			Placeholder:        style.Placeholder,
			Separator:          style.Separator,
			Highlight:          style.Highlight,
			SeparatorHighlight: style.SeparatorStyle,
		},
		Servers: []Server{{
			Name:        "gopls",
			Command:     "gopls",
			Extensions:  []string{"go"},
			RootMarkers: []string{"go.work", "go.mod", ".git"},
		}},
	}
}

// RenderStyle converts the [lens] table.
func (c Config) RenderStyle() codelens.RenderStyle {
	return codelens.RenderStyle{
		Placeholder:    c.Lens.Placeholder,
		Separator:      c.Lens.Separator,
		Highlight:      c.Lens.Highlight,
		SeparatorStyle: c.Lens.SeparatorHighlight,
		MaxWidth:       c.Lens.MaxWidth,
	}
}

// ServerSpecs converts the [[server]] tables.
func (c Config) ServerSpecs() []lsp.ServerSpec {
	specs := make([]lsp.ServerSpec, 0, len(c.Servers))
	for _, s := range c.Servers {
		specs = append(specs, lsp.ServerSpec{
			Name:        s.Name,
			Command:     s.Command,
			Args:        s.Args,
			Extensions:  s.Extensions,
			RootMarkers: s.RootMarkers,
			LanguageID:  s.LanguageID,
		})
	}
	return specs
}

// Find returns the config to use for file: explicit when set, else the
// nearest FileName above file, else the user config file. ok is false when
// none exists.
func Find(explicit, file string) (path string, ok bool, err error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", false, fmt.Errorf("config %q: %w", explicit, err)
		}
		return explicit, true, nil
	}
	start := file
	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(userDir, "lensctl", "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		}
	}
	return "", false, nil
}

// Load finds and reads the config for file, falling back to Default.
func Load(explicit, file string) (Config, error) {
	path, ok, err := Find(explicit, file)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path on top of Default. A file with [[server]] tables
// replaces the default server list.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	cfg.Servers = nil
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("server") {
		cfg.Servers = Default().Servers
	}
	for i, s := range cfg.Servers {
		if strings.TrimSpace(s.Name) == "" {
			return Config{}, fmt.Errorf("%s: [[server]] #%d: missing name", path, i+1)
		}
		if strings.TrimSpace(s.Command) == "" {
			return Config{}, fmt.Errorf("%s: [[server]] %q: missing command", path, s.Name)
		}
		if len(s.Extensions) == 0 {
			return Config{}, fmt.Errorf("%s: [[server]] %q: missing extensions", path, s.Name)
		}
	}
	if cfg.Lens.MaxWidth < 0 {
		return Config{}, fmt.Errorf("%s: [lens].max_width must not be negative", path)
	}
	cfg.Path = path
	return cfg, nil
}
