package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/rtree/internal/utils"
)

func TestInitializeConfigurationCreatesLocalFile(t *testing.T) {
	workingDirectory := t.TempDir()
	options := InitOptions{WorkingDirectory: workingDirectory, Target: InitTargetLocal}
	path, err := InitializeConfiguration(options)
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	expectedPath := filepath.Join(workingDirectory, utils.ConfigFileName)
	if path != expectedPath {
		t.Fatalf("expected path %s, got %s", expectedPath, path)
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read config: %v", readErr)
	}
	if !strings.Contains(string(content), "remote:") || !strings.Contains(string(content), "local:") {
		t.Fatalf("unexpected configuration content: %s", string(content))
	}
}

func TestInitializeConfigurationTemplateLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workingDirectory := t.TempDir()
	if _, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory}); err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	configuration, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory})
	if err != nil {
		t.Fatalf("LoadApplicationConfiguration error: %v", err)
	}
	if configuration.Remote.Mode != "flat" || configuration.Output.Color != "auto" {
		t.Fatalf("unexpected template values: %+v", configuration)
	}
	if !BoolOrDefault(configuration.Local.UseGitignore, false) {
		t.Fatalf("expected use_gitignore enabled in template")
	}
}

func TestInitializeConfigurationHonorsGlobalTarget(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	path, err := InitializeConfiguration(InitOptions{Target: InitTargetGlobal, Force: true})
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	if !strings.HasPrefix(path, homeDir) {
		t.Fatalf("expected configuration under home dir, got %s", path)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected file to exist at %s: %v", path, statErr)
	}
}

func TestInitializeConfigurationPreventsOverwriteWithoutForce(t *testing.T) {
	workingDirectory := t.TempDir()
	path := filepath.Join(workingDirectory, utils.ConfigFileName)
	if err := os.WriteFile(path, []byte("existing"), 0o600); err != nil {
		t.Fatalf("write seed config: %v", err)
	}
	_, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, Target: InitTargetLocal, Force: false})
	if err == nil {
		t.Fatalf("expected error when configuration already exists")
	}
}

func TestInitializeConfigurationWritesThroughFileSystem(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	workingDirectory := filepath.Join("/", "workspace", "project")
	path, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, FileSystem: fileSystem})
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	content, readErr := afero.ReadFile(fileSystem, path)
	if readErr != nil {
		t.Fatalf("read config: %v", readErr)
	}
	if string(content) != defaultConfigurationTemplate {
		t.Fatalf("unexpected template content: %s", string(content))
	}
	if _, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, FileSystem: fileSystem}); err == nil {
		t.Fatalf("expected error for existing configuration")
	}
	if _, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, FileSystem: fileSystem, Force: true}); err != nil {
		t.Fatalf("expected forced overwrite, got %v", err)
	}
}

func TestInitializeConfigurationRejectsUnknownTarget(t *testing.T) {
	_, err := InitializeConfiguration(InitOptions{Target: InitTarget("team"), FileSystem: afero.NewMemMapFs()})
	if err == nil || !strings.Contains(err.Error(), "unsupported init target") {
		t.Fatalf("expected unsupported target error, got %v", err)
	}
}
