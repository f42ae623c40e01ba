package main

import (
	"context"

	cfg "navbuild/common/config"

	"github.com/spf13/cobra"

	"navbuild/builder/app"
)

func ExportCmd() *cobra.Command {
	var configFile string
	app.APPVERSION = VERSION
	c := &cobra.Command{
		Use:   "export <package> <output>",
		Short: "dump the world mesh of a level as obj or msgpack",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InitConfig(configFile)
			return app.RunExport(context.Background(), args[0], args[1])
		},
	}
	c.Flags().StringVar(&configFile, "config", "application.hjson", "config file")
	return c
}
