package app

import (
	"context"

	"navbuild/builder/level"
	"navbuild/common/config"

	"github.com/flswld/halo/logger"
)

// RunExport writes the world mesh of one catalog package to output.
func RunExport(ctx context.Context, pkg, output string) error {
	initLogger("navbuild")
	defer func() {
		logger.CloseLogger()
	}()
	return export(ctx, pkg, output)
}

func export(ctx context.Context, pkg, output string) error {
	catalog, err := level.LoadCatalog(config.GetConfig().Catalog.Path)
	if err != nil {
		return err
	}
	l, err := catalog.Find(pkg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g, err := level.NewLoader(nil).Load(l.MeshPath())
	if err != nil {
		return err
	}
	err = level.Export(g, output)
	if err != nil {
		logger.Error("export error: %v, package: %v, output: %v", err, pkg, output)
		return err
	}
	logger.Info("export package: %v, output: %v, verts: %v, tris: %v", pkg, output, g.VertCount(), g.TriCount())
	return nil
}
