package main

import (
	"context"

	cfg "navbuild/common/config"

	"github.com/spf13/cobra"

	"navbuild/builder/app"
)

func GenerateCmd() *cobra.Command {
	var configFile string
	opts := new(app.GenerateOptions)
	app.APPVERSION = VERSION
	c := &cobra.Command{
		Use:   "generate",
		Short: "build and persist the navmesh tiles of every catalog level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InitConfig(configFile)
			return app.RunGenerate(context.Background(), opts)
		},
	}
	c.Flags().StringVar(&configFile, "config", "application.hjson", "config file")
	c.Flags().StringVar(&opts.Endpoint, "endpoint", "", "database url, overrides database.url")
	c.Flags().StringVar(&opts.World, "world", "", "only build the levels of this world guid")
	c.Flags().IntVar(&opts.Workers, "workers", 0, "tile worker count, overrides build.workers")
	c.Flags().BoolVar(&opts.DryRun, "dry-run", false, "build into memory without persisting")
	return c
}
