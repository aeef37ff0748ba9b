package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/rtree/internal/config"
	"github.com/temirov/rtree/internal/utils"
)

const (
	initCommandName      = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the default configuration template to ./` + utils.ConfigFileName + `, or to the global
configuration directory with --global. An existing file is kept unless --force is given.`

	globalFlagName        = "global"
	forceFlagName         = "force"
	globalFlagDescription = "write the global configuration instead of the local one"
	forceFlagDescription  = "overwrite an existing configuration file"

	initCompletedTemplate = "configuration written to %s\n"
)

func createInitCommand(app *application) *cobra.Command {
	var globalTarget bool
	var force bool

	command := &cobra.Command{
		Use:   initCommandName,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if globalTarget {
				target = config.InitTargetGlobal
			}
			writtenPath, err := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: app.workingDirectory,
				FileSystem:       app.fileSystem,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(app.stdout, initCompletedTemplate, writtenPath)
			return err
		},
	}
	registerBooleanFlag(command.Flags(), &globalTarget, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(command.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return command
}
