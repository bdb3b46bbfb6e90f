package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `
[lens]
separator = " · "
max_width = 40

[[server]]
name = "rust-analyzer"
command = "rust-analyzer"
extensions = ["rs"]
root_markers = ["Cargo.toml"]

[trace]
level = "cycle"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	style := cfg.RenderStyle()
	if style.Separator != " · " || style.MaxWidth != 40 {
		t.Fatalf("unexpected style: %+v", style)
	}
	if style.Placeholder != "Unresolved lens ..." {
		t.Fatalf("expected default placeholder kept, got %q", style.Placeholder)
	}
	specs := cfg.ServerSpecs()
	if len(specs) != 1 || specs[0].Name != "rust-analyzer" || specs[0].RootMarkers[0] != "Cargo.toml" {
		t.Fatalf("unexpected servers: %+v", specs)
	}
	if cfg.Trace.Level != "cycle" || cfg.Path != path {
		t.Fatalf("unexpected trace/path: %+v %q", cfg.Trace, cfg.Path)
	}
}

func TestLoadFileKeepsDefaultServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "[lens]\nplaceholder = \"...\"\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Servers) != 1 || cfg.Servers[0].Name != "gopls" {
		t.Fatalf("expected default servers, got %+v", cfg.Servers)
	}
}

func TestLoadFileValidation(t *testing.T) {
	cases := map[string]string{
		"missing command":   "[[server]]\nname = \"x\"\nextensions = [\"go\"]\n",
		"missing name":      "[[server]]\ncommand = \"x\"\nextensions = [\"go\"]\n",
		"missing extension": "[[server]]\nname = \"x\"\ncommand = \"x\"\n",
		"unknown keys":      "[lens]\ncolour = \"red\"\n",
		"negative":          "[lens]\nmax_width = -1\n",
		"failed to parse":   "[lens\n",
	}
	for want, content := range cases {
		path := filepath.Join(t.TempDir(), FileName)
		writeFile(t, path, content)
		_, err := LoadFile(path)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("expected error containing %q, got %v", want, err)
		}
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(root, FileName)
	writeFile(t, path, "")
	file := filepath.Join(root, "a", "b", "main.go")
	writeFile(t, file, "package b\n")

	got, ok, err := Find("", file)
	if err != nil || !ok || got != path {
		t.Fatalf("expected %q, got %q ok=%v err=%v", path, got, ok, err)
	}

	explicit := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, explicit, "")
	if got, _, _ := Find(explicit, file); got != explicit {
		t.Fatalf("expected explicit config, got %q", got)
	}
	if _, _, err := Find(filepath.Join(root, "missing.toml"), file); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	cfg, err := Load("", filepath.Join(dir, "main.go"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != "" || len(cfg.Servers) != 1 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
