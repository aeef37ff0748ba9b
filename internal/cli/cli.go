// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/rtree/internal/config"
	"github.com/temirov/rtree/internal/output"
	"github.com/temirov/rtree/internal/services/clipboard"
	"github.com/temirov/rtree/internal/services/stream"
	"github.com/temirov/rtree/internal/types"
	"github.com/temirov/rtree/internal/utils"
)

const (
	versionFlagName      = "version"
	configFlagName       = "config"
	verboseFlagName      = "verbose"
	colorFlagName        = "color"
	summaryFlagName      = "summary"
	copyFlagName         = "copy"
	depthFlagName        = "depth"
	versionTemplate      = "rtree version: %s\n"
	rootUse              = "rtree"
	rootShortDescription = "rtree renders directory trees of local folders and remote repositories"
	rootLongDescription  = `rtree renders the hierarchy of local directories or remote Git repositories as indented lines.
Local trees honor exclusion globs and ignore files. Remote trees are listed in one bulk call per
repository or expanded folder by folder up to a depth limit. A summary line closes the output.`

	versionFlagDescription = "display application version"
	configFlagDescription  = "path to a configuration file (default ./" + utils.ConfigFileName + ")"
	verboseFlagDescription = "log debug details such as per-folder fetches"
	colorFlagDescription   = "color output: auto, always or never"
	summaryFlagDescription = "print the directory and file totals"
	copyFlagDescription    = "copy the plain output to the clipboard"

	defaultSummaryEnabled = true

	errorLoadConfiguration   = "load configuration: %w"
	errorCopyToClipboard     = "copy output to clipboard: %w"
	errorLoggerReconfigure   = "configure verbose logging: %w"
	errorNoRootRendered      = "no root could be rendered"
	errorNegativeDepthFormat = "depth must be zero or positive, got %d"
	logCopiedToClipboard     = "output copied to clipboard"
)

// application carries the collaborators shared by every command.
type application struct {
	logger     *zap.Logger
	stdout     io.Writer
	stderr     io.Writer
	fileSystem afero.Fs
	httpClient interface{ Do(*http.Request) (*http.Response, error) }
	copier     clipboard.Copier
	lookupEnv  func(string) string
	// workingDirectory anchors local configuration; empty means the process directory.
	workingDirectory string
	configuration    config.ApplicationConfiguration
	configPath       string
	verbose          bool
}

func newApplication(logger *zap.Logger) *application {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &application{
		logger:     logger,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		fileSystem: afero.NewOsFs(),
		copier:     clipboard.NewService(),
		lookupEnv:  os.Getenv,
	}
}

// Execute runs the rtree application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(newApplication(logger))
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(app *application) *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(app.stdout, versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if showVersion && command.HasParent() {
				fmt.Fprintf(app.stdout, versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
			if app.verbose {
				verboseLogger, loggerErr := utils.NewApplicationLogger(true)
				if loggerErr != nil {
					return fmt.Errorf(errorLoggerReconfigure, loggerErr)
				}
				app.logger = verboseLogger
			}
			if command.Name() == initCommandName {
				return nil
			}
			configuration, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{
				WorkingDirectory: app.workingDirectory,
				ExplicitFilePath: app.configPath,
			})
			if loadErr != nil {
				return fmt.Errorf(errorLoadConfiguration, loadErr)
			}
			app.configuration = configuration
			return nil
		},
	}
	rootCommand.SetOut(app.stdout)
	rootCommand.SetErr(app.stderr)
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &app.verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.AddCommand(
		createLocalCommand(app),
		createRemoteCommand(app),
		createInitCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// outputOptions stores the presentation flags shared by the tree commands.
type outputOptions struct {
	color          string
	summaryEnabled bool
	copyEnabled    bool
}

// addOutputFlags registers presentation flags on the command.
func addOutputFlags(command *cobra.Command, options *outputOptions) {
	command.Flags().StringVar(&options.color, colorFlagName, types.ColorAuto, colorFlagDescription)
	registerBooleanFlag(command.Flags(), &options.summaryEnabled, summaryFlagName, defaultSummaryEnabled, summaryFlagDescription)
	registerBooleanFlag(command.Flags(), &options.copyEnabled, copyFlagName, false, copyFlagDescription)
}

// resolve overlays explicitly set flags onto the configured output settings.
func (options outputOptions) resolve(command *cobra.Command, configuration config.OutputConfiguration) outputOptions {
	resolved := outputOptions{
		color:          types.ColorAuto,
		summaryEnabled: config.BoolOrDefault(configuration.Summary, defaultSummaryEnabled),
		copyEnabled:    config.BoolOrDefault(configuration.Copy, false),
	}
	if configuration.Color != "" {
		resolved.color = configuration.Color
	}
	flags := command.Flags()
	if flags.Changed(colorFlagName) {
		resolved.color = options.color
	}
	if flags.Changed(summaryFlagName) {
		resolved.summaryEnabled = options.summaryEnabled
	}
	if flags.Changed(copyFlagName) {
		resolved.copyEnabled = options.copyEnabled
	}
	return resolved
}

// resolveIntFlag returns the flag value when it was set explicitly and the configured value otherwise.
func resolveIntFlag(command *cobra.Command, flagName string, flagValue int, configured *int) (int, error) {
	value := config.IntOrDefault(configured, 0)
	if command.Flags().Changed(flagName) {
		value = flagValue
	}
	if value < 0 {
		return 0, fmt.Errorf(errorNegativeDepthFormat, value)
	}
	return value, nil
}

// renderStream runs produce against a line renderer and exports the plain
// output when requested. It fails when no root could be rendered.
func (app *application) renderStream(
	ctx context.Context,
	options outputOptions,
	renderedRoots func() int,
	produce func(context.Context, chan<- stream.Event) error,
) (err error) {
	mode, modeErr := output.ResolveMode(options.color, app.stdout)
	if modeErr != nil {
		return modeErr
	}
	renderer := output.NewLineRenderer(app.stdout, app.stderr, mode)
	defer func() {
		if flushErr := renderer.Flush(); flushErr != nil && err == nil {
			err = flushErr
		}
		if err == nil && options.copyEnabled {
			if copyErr := app.copier.Copy(renderer.PlainText()); copyErr != nil {
				err = fmt.Errorf(errorCopyToClipboard, copyErr)
				return
			}
			app.logger.Debug(logCopiedToClipboard)
		}
	}()

	if streamErr := dispatchStream(ctx, produce, renderer.Handle); streamErr != nil {
		return streamErr
	}
	if renderedRoots() == 0 {
		return errors.New(errorNoRootRendered)
	}
	return nil
}

func dispatchStream(
	ctx context.Context,
	produce func(context.Context, chan<- stream.Event) error,
	consume func(stream.Event) error,
) error {
	group, streamCtx := errgroup.WithContext(ctx)
	events := make(chan stream.Event)

	group.Go(func() error {
		defer close(events)
		return produce(streamCtx, events)
	})

	group.Go(func() error {
		for {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := consume(event); err != nil {
					return err
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
