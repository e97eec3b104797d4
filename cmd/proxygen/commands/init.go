package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sepcity/proxygen/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Write a sample configuration file with default values.

The file is written to the --config location, or to
$XDG_CONFIG_HOME/proxygen/config.yaml when unset. Existing files are not
overwritten unless --force is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.WriteSample(path, initForce); err != nil {
		return err
	}
	fmt.Printf("Wrote sample configuration to %s\n", path)
	return nil
}
