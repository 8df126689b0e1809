package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend/naga"
	"github.com/Carmen-Shannon/oxy-fx/engine/variants"
	"github.com/gogpu/naga/glsl"
)

func runCompile(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML or TOML configuration file")
	manifestPath := fs.String("manifest", "", "YAML or TOML variant manifest")
	outDir := fs.String("out", "", "write SPIR-V artifacts to this directory (naga backend)")
	withGLSL := fs.Bool("glsl", false, "also write GLSL ES 3.00 artifacts (naga backend)")
	timeout := fs.Duration("timeout", 30*time.Second, "per variant compile limit")
	progress := fs.Bool("progress", true, "draw a progress bar")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifestPath == "" {
		return fmt.Errorf("compile: -manifest is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger(stderr)
	manifest, err := variants.LoadManifest(*manifestPath)
	if err != nil {
		return err
	}

	opts := []backend.BackendBuilderOption{backend.WithLogger(logger)}
	if *withGLSL {
		opts = append(opts, backend.WithTranslationOptions(naga.WithGLSL(glsl.VersionES300)))
	}
	b, err := backend.FromConfig(cfg, opts...)
	if err != nil {
		return err
	}
	defer b.Close()
	if *outDir != "" && b.Type() != renderer.BackendTypeNaga {
		return fmt.Errorf("compile: -out needs the naga backend, configured %s", b.Type())
	}

	r, err := renderer.NewRenderer(b.Compiler(), append(b.RendererOptions(), renderer.WithConfig(cfg))...)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	popts := []variants.PrecompilerBuilderOption{variants.WithTimeout(*timeout)}
	if *progress {
		popts = append(popts, variants.WithProgress(stderr))
	}
	var exportErr error
	if *outDir != "" {
		popts = append(popts, variants.WithOnResult(func(res variants.Result) {
			if res.Err != nil || exportErr != nil {
				return
			}
			if p, ok := res.Effect.Program().(naga.Program); ok {
				_, exportErr = naga.Export(*outDir, p)
			}
		}))
	}

	report, err := variants.NewPrecompiler(r, popts...).Run(ctx, manifest)
	if err != nil {
		return err
	}
	if exportErr != nil {
		return exportErr
	}

	for _, res := range report.Results {
		status := "ok"
		if res.Err != nil {
			status = "FAILED"
		}
		fmt.Fprintf(stdout, "%-6s %s/%s %s (%s)\n", status, res.Material, res.Mesh, strings.ReplaceAll(strings.ReplaceAll(res.Defines, "#define ", ""), "\n", " "), res.Elapsed.Round(time.Microsecond))
	}
	fmt.Fprintf(stdout, "%d variants, %d cached effects, %d failed\n", len(report.Results), r.Cache().Len(), len(report.Failed()))
	return report.Err()
}
