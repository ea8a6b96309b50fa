// Command cascadio converts STEP and IGES files to GLB (optionally with
// BREP surface metadata) or OBJ. It needs a CAD kernel integration that
// registers itself via cascadio.RegisterLoader; without one the tool can
// only report that no kernel is available.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	cascadio "github.com/flywave/go-cascadio"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		inPath     = flag.String("in", "", "input STEP/IGES file")
		outPath    = flag.String("out", "", "output .glb or .obj file")
		format     = flag.String("format", "", "input format: step or iges (default: from extension)")
		loaderName = flag.String("loader", "", "registered CAD kernel loader to use")

		tolLinear   = flag.Float64("tol-linear", -1, "linear deflection tolerance")
		tolAngular  = flag.Float64("tol-angular", -1, "angular deflection tolerance (radians)")
		tolRelative = flag.Bool("relative", false, "linear tolerance is relative to edge length")
		merge       = flag.Bool("merge", true, "merge all parts into one mesh primitive")
		parallel    = flag.Bool("parallel", true, "parallel meshing and export")
		colors      = flag.Bool("colors", true, "import display colors")

		includeBrep = flag.Bool("brep", false, "embed BREP analytic surface metadata")
		brepTypes   = flag.String("brep-types", "", "comma-separated surface types to include (plane,cylinder,cone,sphere,torus)")
		materials   = flag.Bool("materials", false, "embed material metadata")

		logLevel = flag.String("log-level", "", "log level: debug, info, warn, error")
		logFile  = flag.String("log-file", "", "optional rotating log file")
	)
	flag.Parse()

	cfg := Default()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyFlags(cfg, tolLinear, tolAngular, tolRelative, merge, parallel, colors, includeBrep, brepTypes, materials, logLevel, logFile)

	logger, err := buildLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logging:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	cascadio.SetLogger(logger)

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: cascadio -in model.step -out model.glb [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ft := cascadio.FileTypeUnspecified
	if *format != "" {
		parsed, err := cascadio.ParseFileType(*format)
		if err != nil {
			logger.Fatal("bad format", zap.Error(err))
		}
		ft = parsed
	}

	loader := cascadio.LoaderFor(*loaderName)
	if loader == nil {
		logger.Fatal("no CAD kernel loader registered; build with a kernel integration",
			zap.String("loader", *loaderName))
	}
	exporter := cascadio.NewMeshExporter()

	opt := cascadio.DefaultConvertOptions()
	opt.TolLinear = cfg.Tolerance.Linear
	opt.TolAngular = cfg.Tolerance.Angular
	opt.TolRelative = cfg.Tolerance.Relative
	opt.MergePrimitives = cfg.Export.MergePrimitives
	opt.UseParallel = cfg.Export.Parallel
	opt.UseColors = cfg.Export.Colors
	opt.IncludeBrep = cfg.Brep.Include
	opt.IncludeMaterials = cfg.Materials
	if len(cfg.Brep.Types) > 0 {
		types := make([]cascadio.SurfaceType, 0, len(cfg.Brep.Types))
		for _, t := range cfg.Brep.Types {
			types = append(types, cascadio.SurfaceType(strings.TrimSpace(t)))
		}
		opt.BrepTypes = cascadio.NewTypeSet(types...)
	}

	if strings.HasSuffix(strings.ToLower(*outPath), ".obj") {
		data, err := os.ReadFile(*inPath)
		if err != nil {
			logger.Fatal("read input", zap.Error(err))
		}
		if ft == cascadio.FileTypeUnspecified {
			ft, err = cascadio.ParseFileType(extOf(*inPath))
			if err != nil {
				logger.Fatal("bad input extension", zap.Error(err))
			}
		}
		if err := cascadio.ConvertToOBJ(loader, exporter, data, ft, *outPath, opt); err != nil {
			logger.Fatal("conversion failed", zap.Error(err))
		}
	} else {
		if err := cascadio.ConvertFile(loader, exporter, *inPath, *outPath, ft, opt); err != nil {
			logger.Fatal("conversion failed", zap.Error(err))
		}
	}
	logger.Info("converted", zap.String("in", *inPath), zap.String("out", *outPath))
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(cfg *Config, tolLinear, tolAngular *float64, tolRelative, merge, parallel, colors, includeBrep *bool, brepTypes *string, materials *bool, logLevel, logFile *string) {
	if *tolLinear >= 0 {
		cfg.Tolerance.Linear = *tolLinear
	}
	if *tolAngular >= 0 {
		cfg.Tolerance.Angular = *tolAngular
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["relative"] {
		cfg.Tolerance.Relative = *tolRelative
	}
	if set["merge"] {
		cfg.Export.MergePrimitives = *merge
	}
	if set["parallel"] {
		cfg.Export.Parallel = *parallel
	}
	if set["colors"] {
		cfg.Export.Colors = *colors
	}
	if set["brep"] {
		cfg.Brep.Include = *includeBrep
	}
	if set["brep-types"] {
		cfg.Brep.Types = strings.Split(*brepTypes, ",")
	}
	if set["materials"] {
		cfg.Materials = *materials
	}
	if set["log-level"] {
		cfg.Logging.Level = *logLevel
	}
	if set["log-file"] {
		cfg.Logging.File = *logFile
	}
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
