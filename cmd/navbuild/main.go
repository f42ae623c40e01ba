package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var VERSION = "UNKNOWN"

func main() {
	rootCmd := &cobra.Command{
		Use:           "navbuild",
		Short:         "tiled navmesh builder",
		Version:       VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		GenerateCmd(),
		ExportCmd(),
	)
	err := rootCmd.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
