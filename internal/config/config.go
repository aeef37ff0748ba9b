// Package config loads ignore files and application configuration.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/temirov/rtree/internal/utils"
)

const (
	commentPrefix      = "#"
	anchoredRootPrefix = "/"
)

// ParseGitignore reads ignore-file text and returns its patterns in file order.
// Blank lines and comments are dropped and a single leading "/" is stripped.
// Negation lines are kept verbatim; they carry no special meaning.
func ParseGitignore(reader io.Reader) ([]string, error) {
	var ignorePatterns []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		trimmedLine = strings.TrimPrefix(trimmedLine, anchoredRootPrefix)
		if trimmedLine == "" {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadIgnoreFilePatterns reads a specified ignore file through fileSystem.
// A missing file yields no patterns and no error.
func LoadIgnoreFilePatterns(fileSystem afero.Fs, ignoreFilePath string) ([]string, error) {
	fileHandle, openFileError := fileSystem.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", ignoreFilePath, closeError)
		}
	}()
	return ParseGitignore(fileHandle)
}

// LoadRootIgnorePatterns aggregates patterns from the .gitignore and/or .ignore files
// found directly in rootDirectoryPath. Nested ignore files are not consulted.
func LoadRootIgnorePatterns(fileSystem afero.Fs, rootDirectoryPath string, useGitignore bool, useIgnoreFile bool) ([]string, error) {
	var combinedPatterns []string

	if useGitignore {
		gitIgnoreFilePath := filepath.Join(rootDirectoryPath, utils.GitIgnoreFileName)
		gitIgnoreFilePatterns, loadError := LoadIgnoreFilePatterns(fileSystem, gitIgnoreFilePath)
		if loadError != nil {
			return nil, fmt.Errorf("loading %s from %s: %w", utils.GitIgnoreFileName, rootDirectoryPath, loadError)
		}
		combinedPatterns = append(combinedPatterns, gitIgnoreFilePatterns...)
	}

	if useIgnoreFile {
		ignoreFilePath := filepath.Join(rootDirectoryPath, utils.IgnoreFileName)
		ignoreFilePatterns, loadError := LoadIgnoreFilePatterns(fileSystem, ignoreFilePath)
		if loadError != nil {
			return nil, fmt.Errorf("loading %s from %s: %w", utils.IgnoreFileName, rootDirectoryPath, loadError)
		}
		combinedPatterns = append(combinedPatterns, ignoreFilePatterns...)
	}

	return utils.DeduplicatePatterns(combinedPatterns), nil
}

// ExclusionGlobs normalizes user exclusion globs, appending the Git directory
// unless includeGit is set.
func ExclusionGlobs(exclusionPatterns []string, includeGit bool) []string {
	var globs []string
	for _, pattern := range exclusionPatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		globs = append(globs, trimmedPattern)
	}
	if !includeGit && !utils.ContainsString(globs, utils.GitDirectoryName) {
		globs = append(globs, utils.GitDirectoryName)
	}
	return utils.DeduplicatePatterns(globs)
}
