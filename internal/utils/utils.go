// Package utils contains general helper functions used across the rtree tool.
package utils

import (
	"runtime"
	"strings"
	"unicode/utf8"
)

// Ignore file and configuration constants used across the project.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// ConfigFileName is the name of the local configuration file.
	ConfigFileName = ".rtree.yaml"
	// GlobalConfigFileName is the configuration file name inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".rtree"
)

const (
	pathSegmentSeparator = "/"
	wildcardAnyRun       = '*'
	wildcardSingleRune   = '?'
)

// caseInsensitiveHost reports whether the host compares paths without regard to case.
var caseInsensitiveHost = runtime.GOOS == "windows"

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// JoinRelativePath appends name to a forward-slash relative parent path.
func JoinRelativePath(parentPath string, name string) string {
	if parentPath == "" || parentPath == "." {
		return name
	}
	return parentPath + pathSegmentSeparator + name
}

// MatchesIgnorePattern evaluates one ignore pattern against a candidate.
//
// The rules are a loose subset of gitignore: an exact match on the relative path
// or the bare name; a trailing "/" restricts the pattern to directories; a leading
// "*" is a suffix match on the relative path; anything else matches the path
// itself, any descendant of it, or the bare name. There is no "**", no "!"
// negation, no character classes and no anchoring.
func MatchesIgnorePattern(pattern string, relativePath string, name string, isDirectory bool) bool {
	if pattern == relativePath || pattern == name {
		return true
	}
	if strings.HasSuffix(pattern, pathSegmentSeparator) {
		directoryPattern := strings.TrimSuffix(pattern, pathSegmentSeparator)
		return isDirectory && (relativePath == directoryPattern || name == directoryPattern)
	}
	if strings.HasPrefix(pattern, string(wildcardAnyRun)) {
		return strings.HasSuffix(relativePath, strings.TrimPrefix(pattern, string(wildcardAnyRun)))
	}
	return relativePath == pattern ||
		strings.HasPrefix(relativePath, pattern+pathSegmentSeparator) ||
		name == pattern
}

// FirstMatchingPattern returns the first pattern in order that matches the candidate.
func FirstMatchingPattern(patterns []string, relativePath string, name string, isDirectory bool) (string, bool) {
	for _, pattern := range patterns {
		if MatchesIgnorePattern(pattern, relativePath, name, isDirectory) {
			return pattern, true
		}
	}
	return "", false
}

// MatchesNameGlob matches name against a glob where "*" matches any run of runes,
// "?" matches exactly one rune and every other rune is literal.
func MatchesNameGlob(glob string, name string) bool {
	if caseInsensitiveHost {
		glob = strings.ToLower(glob)
		name = strings.ToLower(name)
	}
	return matchWildcard(glob, name)
}

// MatchesAnyNameGlob reports whether name matches at least one glob.
func MatchesAnyNameGlob(globs []string, name string) bool {
	for _, glob := range globs {
		if MatchesNameGlob(glob, name) {
			return true
		}
	}
	return false
}

// matchWildcard is an iterative matcher with single-star backtracking.
func matchWildcard(glob string, name string) bool {
	globIndex, nameIndex := 0, 0
	starGlobIndex, starNameIndex := -1, 0
	for nameIndex < len(name) {
		if globIndex < len(glob) {
			globRune, globWidth := utf8.DecodeRuneInString(glob[globIndex:])
			nameRune, nameWidth := utf8.DecodeRuneInString(name[nameIndex:])
			switch {
			case globRune == wildcardAnyRun:
				starGlobIndex = globIndex
				starNameIndex = nameIndex
				globIndex += globWidth
				continue
			case globRune == wildcardSingleRune || globRune == nameRune:
				globIndex += globWidth
				nameIndex += nameWidth
				continue
			}
		}
		if starGlobIndex < 0 {
			return false
		}
		_, skippedWidth := utf8.DecodeRuneInString(name[starNameIndex:])
		starNameIndex += skippedWidth
		nameIndex = starNameIndex
		globIndex = starGlobIndex + 1
	}
	for globIndex < len(glob) && glob[globIndex] == byte(wildcardAnyRun) {
		globIndex++
	}
	return globIndex == len(glob)
}

// CompareNames orders two names ordinally, folding case first on hosts with
// case-insensitive paths.
func CompareNames(left string, right string) int {
	if caseInsensitiveHost {
		foldedLeft, foldedRight := strings.ToLower(left), strings.ToLower(right)
		if foldedLeft != foldedRight {
			return strings.Compare(foldedLeft, foldedRight)
		}
	}
	return strings.Compare(left, right)
}
