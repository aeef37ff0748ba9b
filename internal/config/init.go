package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/temirov/rtree/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	configurationFileMode      = 0o600
	configurationDirectoryMode = 0o755

	errorUnsupportedInitTarget = "unsupported init target %q"
	errorConfigurationExists   = "configuration file already exists at %s"
	errorInspectConfiguration  = "inspect configuration path %s: %w"
	errorWriteConfiguration    = "write configuration to %s: %w"
	errorCreateConfigDirectory = "create configuration directory %s: %w"
	errorResolveHomeDirectory  = "resolve home directory for configuration: %w"
	errorResolveWorkingDir     = "determine working directory for configuration: %w"

	defaultConfigurationTemplate = `local:
  depth: 0
  exclude:
    - .git
  use_gitignore: true
  use_ignore: true
  include_git: false
remote:
  base_url: ""
  project: ""
  mode: flat
  depth: 0
  filter: ""
  path: /
  authorization_env: RTREE_AUTHORIZATION
  timeout_seconds: 30
output:
  color: auto
  summary: true
  copy: false
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
	// FileSystem receives the template; nil writes to the host filesystem.
	FileSystem afero.Fs
}

// InitializeConfiguration writes the default configuration template and
// returns the path it was written to. Existing files are kept unless Force is set.
func InitializeConfiguration(options InitOptions) (string, error) {
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	destinationPath, resolveErr := resolveInitDestination(options)
	if resolveErr != nil {
		return "", resolveErr
	}

	configurationDirectory := filepath.Dir(destinationPath)
	if err := fileSystem.MkdirAll(configurationDirectory, configurationDirectoryMode); err != nil {
		return "", fmt.Errorf(errorCreateConfigDirectory, configurationDirectory, err)
	}
	exists, existsErr := afero.Exists(fileSystem, destinationPath)
	if existsErr != nil {
		return "", fmt.Errorf(errorInspectConfiguration, destinationPath, existsErr)
	}
	if exists && !options.Force {
		return "", fmt.Errorf(errorConfigurationExists, destinationPath)
	}
	if err := afero.WriteFile(fileSystem, destinationPath, []byte(defaultConfigurationTemplate), configurationFileMode); err != nil {
		return "", fmt.Errorf(errorWriteConfiguration, destinationPath, err)
	}
	return destinationPath, nil
}

func resolveInitDestination(options InitOptions) (string, error) {
	switch options.Target {
	case "", InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			currentDirectory, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf(errorResolveWorkingDir, err)
			}
			workingDirectory = currentDirectory
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf(errorResolveHomeDirectory, err)
		}
		return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), nil
	default:
		return "", fmt.Errorf(errorUnsupportedInitTarget, options.Target)
	}
}
