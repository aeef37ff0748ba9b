package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/rtree/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Local  LocalConfiguration  `mapstructure:"local"`
	Remote RemoteConfiguration `mapstructure:"remote"`
	Output OutputConfiguration `mapstructure:"output"`
}

// LocalConfiguration configures the local filesystem walk.
type LocalConfiguration struct {
	Depth         *int     `mapstructure:"depth"`
	Exclude       []string `mapstructure:"exclude"`
	UseGitignore  *bool    `mapstructure:"use_gitignore"`
	UseIgnoreFile *bool    `mapstructure:"use_ignore"`
	IncludeGit    *bool    `mapstructure:"include_git"`
}

// RemoteConfiguration configures the remote listing source and acquisition mode.
type RemoteConfiguration struct {
	BaseURL          string `mapstructure:"base_url"`
	Project          string `mapstructure:"project"`
	Mode             string `mapstructure:"mode"`
	Depth            *int   `mapstructure:"depth"`
	Filter           string `mapstructure:"filter"`
	Path             string `mapstructure:"path"`
	AuthorizationEnv string `mapstructure:"authorization_env"`
	TimeoutSeconds   *int   `mapstructure:"timeout_seconds"`
}

// OutputConfiguration controls presentation shared by both commands.
type OutputConfiguration struct {
	Color   string `mapstructure:"color"`
	Summary *bool  `mapstructure:"summary"`
	Copy    *bool  `mapstructure:"copy"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Local.Exclude = utils.DeduplicatePatterns(merged.Local.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName)
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Local = result.Local.merge(override.Local)
	result.Remote = result.Remote.merge(override.Remote)
	result.Output = result.Output.merge(override.Output)
	return result
}

func (config LocalConfiguration) merge(override LocalConfiguration) LocalConfiguration {
	result := config
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	return result
}

func (config RemoteConfiguration) merge(override RemoteConfiguration) RemoteConfiguration {
	result := config
	if override.BaseURL != "" {
		result.BaseURL = override.BaseURL
	}
	if override.Project != "" {
		result.Project = override.Project
	}
	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if override.Filter != "" {
		result.Filter = override.Filter
	}
	if override.Path != "" {
		result.Path = override.Path
	}
	if override.AuthorizationEnv != "" {
		result.AuthorizationEnv = override.AuthorizationEnv
	}
	if override.TimeoutSeconds != nil {
		result.TimeoutSeconds = cloneInt(override.TimeoutSeconds)
	}
	return result
}

func (config OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := config
	if override.Color != "" {
		result.Color = override.Color
	}
	if override.Summary != nil {
		result.Summary = cloneBool(override.Summary)
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	return result
}

// IntOrDefault dereferences value or returns fallback when it is unset.
func IntOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

// BoolOrDefault dereferences value or returns fallback when it is unset.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
