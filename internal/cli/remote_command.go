package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rtree/internal/commands"
	"github.com/temirov/rtree/internal/config"
	"github.com/temirov/rtree/internal/remote"
	"github.com/temirov/rtree/internal/services/stream"
	"github.com/temirov/rtree/internal/types"
	"github.com/temirov/rtree/internal/utils"
)

const (
	remoteUse              = "remote [repositories...]"
	remoteAlias            = "r"
	remoteShortDescription = "render the trees of remote repositories"
	remoteLongDescription  = `Render the tree of each repository of a project in turn. Without arguments every
repository of the project is rendered. Flat mode fetches each repository with one bulk listing.
Incremental mode fetches folder by folder down to --depth and reports failed folders inline.`
	remoteUsageExample = `rtree remote --base-url https://dev.azure.com/acme --project platform
rtree remote service --mode incremental --depth 2
rtree remote service --path /src --filter "*.cs"`

	modeFlagName    = "mode"
	filterFlagName  = "filter"
	pathFlagName    = "path"
	baseURLFlagName = "base-url"
	projectFlagName = "project"

	modeFlagDescription        = "acquisition mode: flat or incremental"
	remoteDepthFlagDescription = "maximum depth to render, 0 for unlimited"
	filterFlagDescription      = "keep only files whose name matches the glob"
	pathFlagDescription        = "scope path inside a single repository"
	baseURLFlagDescription     = "organization base URL of the remote API"
	projectFlagDescription     = "project holding the repositories"

	defaultAuthorizationEnv = "RTREE_AUTHORIZATION"
	defaultScopePath        = "/"
	defaultTimeoutSeconds   = 30

	errorUnsupportedModeFormat = "unsupported mode %q (expected %s or %s)"
	errorListRepositories      = "list repositories: %w"
	errorNoRepositories        = "no repositories found"
	logRepositoriesResolved    = "repositories resolved"
	logFieldMode               = "mode"
	logFieldRepositories       = "repositories"
)

type remoteOptions struct {
	mode      string
	depth     int
	filter    string
	scopePath string
	baseURL   string
	project   string
	output    outputOptions
}

// remoteSettings is the merged view of flags and configuration for one invocation.
type remoteSettings struct {
	mode      string
	depth     int
	filter    string
	scopePath string
	client    remote.Client
}

func createRemoteCommand(app *application) *cobra.Command {
	var options remoteOptions

	command := &cobra.Command{
		Use:     remoteUse,
		Aliases: []string{remoteAlias},
		Short:   remoteShortDescription,
		Long:    remoteLongDescription,
		Example: remoteUsageExample,
		RunE: func(command *cobra.Command, arguments []string) error {
			return app.runRemote(command.Context(), command, arguments, options)
		},
	}
	command.Flags().StringVar(&options.mode, modeFlagName, types.ModeFlat, modeFlagDescription)
	command.Flags().IntVar(&options.depth, depthFlagName, 0, remoteDepthFlagDescription)
	command.Flags().StringVar(&options.filter, filterFlagName, "", filterFlagDescription)
	command.Flags().StringVar(&options.scopePath, pathFlagName, defaultScopePath, pathFlagDescription)
	command.Flags().StringVar(&options.baseURL, baseURLFlagName, "", baseURLFlagDescription)
	command.Flags().StringVar(&options.project, projectFlagName, "", projectFlagDescription)
	addOutputFlags(command, &options.output)
	return command
}

func (app *application) runRemote(ctx context.Context, command *cobra.Command, arguments []string, options remoteOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	settings, settingsErr := app.resolveRemoteSettings(command, options)
	if settingsErr != nil {
		return settingsErr
	}
	repositories, repositoriesErr := resolveRepositories(ctx, settings.client, arguments)
	if repositoriesErr != nil {
		return repositoriesErr
	}
	app.logger.Debug(logRepositoriesResolved,
		zap.String(logFieldMode, settings.mode),
		zap.Strings(logFieldRepositories, repositories),
	)

	renderOptions := options.output.resolve(command, app.configuration.Output)
	traversal := commands.NewTraversalContext()
	remoteOptions := stream.RemoteOptions{
		Source:         settings.client,
		Repositories:   repositories,
		ScopePath:      settings.scopePath,
		MaxDepth:       settings.depth,
		NameFilter:     settings.filter,
		IncludeSummary: renderOptions.summaryEnabled,
		Traversal:      traversal,
		Logger:         app.logger,
	}
	produce := func(streamCtx context.Context, events chan<- stream.Event) error {
		if settings.mode == types.ModeIncremental {
			return stream.StreamIncremental(streamCtx, remoteOptions, events)
		}
		return stream.StreamFlat(streamCtx, remoteOptions, events)
	}
	return app.renderStream(ctx, renderOptions, func() int { return traversal.RootCount }, produce)
}

func (app *application) resolveRemoteSettings(command *cobra.Command, options remoteOptions) (remoteSettings, error) {
	configuration := app.configuration.Remote
	flags := command.Flags()

	mode := pickString(flags.Changed(modeFlagName), options.mode, configuration.Mode, types.ModeFlat)
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != types.ModeFlat && mode != types.ModeIncremental {
		return remoteSettings{}, fmt.Errorf(errorUnsupportedModeFormat, mode, types.ModeFlat, types.ModeIncremental)
	}
	depth, depthErr := resolveIntFlag(command, depthFlagName, options.depth, configuration.Depth)
	if depthErr != nil {
		return remoteSettings{}, depthErr
	}

	authorizationEnv := configuration.AuthorizationEnv
	if authorizationEnv == "" {
		authorizationEnv = defaultAuthorizationEnv
	}
	timeoutSeconds := config.IntOrDefault(configuration.TimeoutSeconds, defaultTimeoutSeconds)
	client := remote.NewClient(app.httpClient).
		WithAPIBase(pickString(flags.Changed(baseURLFlagName), options.baseURL, configuration.BaseURL, "")).
		WithProject(pickString(flags.Changed(projectFlagName), options.project, configuration.Project, "")).
		WithAuthorizationHeader(app.lookupEnv(authorizationEnv))
	if timeoutSeconds > 0 {
		client = client.WithTimeout(time.Duration(timeoutSeconds) * time.Second)
	}

	return remoteSettings{
		mode:      mode,
		depth:     depth,
		filter:    pickString(flags.Changed(filterFlagName), options.filter, configuration.Filter, ""),
		scopePath: pickString(flags.Changed(pathFlagName), options.scopePath, configuration.Path, defaultScopePath),
		client:    client,
	}, nil
}

// resolveRepositories returns the requested repositories, or every repository
// of the project when none were named.
func resolveRepositories(ctx context.Context, client remote.Client, arguments []string) ([]string, error) {
	if len(arguments) > 0 {
		return utils.DeduplicatePatterns(arguments), nil
	}
	listed, listErr := client.ListRepositories(ctx)
	if listErr != nil {
		return nil, fmt.Errorf(errorListRepositories, listErr)
	}
	if len(listed) == 0 {
		return nil, errors.New(errorNoRepositories)
	}
	names := make([]string, 0, len(listed))
	for _, repository := range listed {
		names = append(names, repository.Name)
	}
	return names, nil
}

// pickString prefers an explicitly set flag, then a configured value, then the fallback.
func pickString(flagChanged bool, flagValue string, configured string, fallback string) string {
	if flagChanged {
		return flagValue
	}
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return fallback
}
