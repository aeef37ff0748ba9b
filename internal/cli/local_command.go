package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rtree/internal/commands"
	"github.com/temirov/rtree/internal/config"
	"github.com/temirov/rtree/internal/services/stream"
	"github.com/temirov/rtree/internal/types"
	"github.com/temirov/rtree/internal/utils"
)

const (
	localUse              = "local [paths...]"
	localAlias            = "l"
	localShortDescription = "render the directory tree of local folders"
	localLongDescription  = `Render the tree of each local folder in turn. Entries are sorted with directories first.
Paths matched by an exclusion glob, .gitignore or .ignore are omitted together with their contents.`
	localUsageExample = `rtree local
rtree local ./cmd ./internal --depth 2
rtree local . -e vendor -e "*.tmp" --no-gitignore`

	excludeFlagName      = "exclude"
	excludeFlagShorthand = "e"
	noGitignoreFlagName  = "no-gitignore"
	noIgnoreFlagName     = "no-ignore"
	includeGitFlagName   = "git"

	excludeFlagDescription     = "exclude entries whose name matches the glob (repeatable)"
	noGitignoreFlagDescription = "do not use .gitignore"
	noIgnoreFlagDescription    = "do not use .ignore"
	includeGitFlagDescription  = "include the .git directory"
	localDepthFlagDescription  = "maximum depth to render, 0 for unlimited"

	defaultLocalPath = "."

	errorPathNotFound      = "path %s does not exist: %w"
	errorPathNotDirectory  = "path %s is not a directory"
	errorResolveAbsolute   = "resolve absolute path for %s: %w"
	logLocalRootsValidated = "local roots validated"
	logFieldRoots          = "roots"
)

type localOptions struct {
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
	includeGit        bool
	depth             int
	output            outputOptions
}

func createLocalCommand(app *application) *cobra.Command {
	var options localOptions

	command := &cobra.Command{
		Use:     localUse,
		Aliases: []string{localAlias},
		Short:   localShortDescription,
		Long:    localLongDescription,
		Example: localUsageExample,
		RunE: func(command *cobra.Command, arguments []string) error {
			return app.runLocal(command.Context(), command, arguments, options)
		},
	}
	command.Flags().StringArrayVarP(&options.exclusionPatterns, excludeFlagName, excludeFlagShorthand, nil, excludeFlagDescription)
	registerBooleanFlag(command.Flags(), &options.disableGitignore, noGitignoreFlagName, false, noGitignoreFlagDescription)
	registerBooleanFlag(command.Flags(), &options.disableIgnoreFile, noIgnoreFlagName, false, noIgnoreFlagDescription)
	registerBooleanFlag(command.Flags(), &options.includeGit, includeGitFlagName, false, includeGitFlagDescription)
	command.Flags().IntVar(&options.depth, depthFlagName, 0, localDepthFlagDescription)
	addOutputFlags(command, &options.output)
	return command
}

func (app *application) runLocal(ctx context.Context, command *cobra.Command, arguments []string, options localOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	configuration := app.configuration.Local
	depth, depthErr := resolveIntFlag(command, depthFlagName, options.depth, configuration.Depth)
	if depthErr != nil {
		return depthErr
	}

	useGitignore := config.BoolOrDefault(configuration.UseGitignore, true)
	if command.Flags().Changed(noGitignoreFlagName) {
		useGitignore = !options.disableGitignore
	}
	useIgnoreFile := config.BoolOrDefault(configuration.UseIgnoreFile, true)
	if command.Flags().Changed(noIgnoreFlagName) {
		useIgnoreFile = !options.disableIgnoreFile
	}
	includeGit := config.BoolOrDefault(configuration.IncludeGit, false)
	if command.Flags().Changed(includeGitFlagName) {
		includeGit = options.includeGit
	}
	exclusionPatterns := append(append([]string{}, configuration.Exclude...), options.exclusionPatterns...)

	roots, validateErr := app.validateLocalRoots(arguments)
	if validateErr != nil {
		return validateErr
	}
	app.logger.Debug(logLocalRootsValidated, zap.Strings(logFieldRoots, roots))

	renderOptions := options.output.resolve(command, app.configuration.Output)
	traversal := commands.NewTraversalContext()
	localOptions := stream.LocalOptions{
		Roots:          roots,
		FileSystem:     app.fileSystem,
		ExcludeGlobs:   config.ExclusionGlobs(exclusionPatterns, includeGit),
		UseGitignore:   useGitignore,
		UseIgnoreFile:  useIgnoreFile,
		MaxDepth:       depth,
		IncludeSummary: renderOptions.summaryEnabled,
		Traversal:      traversal,
		Logger:         app.logger,
	}
	return app.renderStream(ctx, renderOptions, func() int { return traversal.RootCount }, func(streamCtx context.Context, events chan<- stream.Event) error {
		return stream.StreamLocal(streamCtx, localOptions, events)
	})
}

// validateLocalRoots cleans the requested paths and checks that each one is
// an existing directory. No arguments selects the working directory.
func (app *application) validateLocalRoots(arguments []string) ([]string, error) {
	if len(arguments) == 0 {
		arguments = []string{defaultLocalPath}
	}
	roots := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		cleanedPath := filepath.Clean(argument)
		absolutePath, absErr := filepath.Abs(cleanedPath)
		if absErr != nil {
			return nil, fmt.Errorf(errorResolveAbsolute, argument, absErr)
		}
		validated, statErr := app.statPath(absolutePath)
		if statErr != nil {
			return nil, fmt.Errorf(errorPathNotFound, argument, statErr)
		}
		if !validated.IsDir {
			return nil, fmt.Errorf(errorPathNotDirectory, argument)
		}
		if utils.ContainsString(roots, cleanedPath) {
			continue
		}
		roots = append(roots, cleanedPath)
	}
	return roots, nil
}

func (app *application) statPath(absolutePath string) (types.ValidatedPath, error) {
	fileSystem := app.fileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	info, err := fileSystem.Stat(absolutePath)
	if err != nil {
		return types.ValidatedPath{}, err
	}
	return types.ValidatedPath{AbsolutePath: absolutePath, IsDir: info.IsDir()}, nil
}
