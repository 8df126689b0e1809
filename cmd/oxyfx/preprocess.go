package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

func runPreprocess(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("preprocess", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML or TOML configuration file")
	name := fs.String("shader", "default", "shader name in the store")
	lang := fs.String("lang", "", "shading language, defaults to the configured one")
	stage := fs.String("stage", "", "print only this stage: vertex or fragment")
	var defs, attributes, samplers listFlag
	fs.Var(&defs, "define", "define as NAME or \"NAME value\", repeatable")
	fs.Var(&attributes, "attribute", "vertex attribute name, repeatable")
	fs.Var(&samplers, "sampler", "sampled texture name, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger(stderr)

	language := cfg.Language
	if *lang != "" {
		if language, err = shader.ParseLanguage(*lang); err != nil {
			return err
		}
	}

	store, err := shader.NewStore(shader.WithStoreLogger(logger))
	if err != nil {
		return err
	}
	if cfg.ShaderDir != "" {
		if _, err := store.LoadDir(cfg.ShaderDir); err != nil {
			return err
		}
	}
	src, ok := store.Shader(*name, language)
	if !ok {
		return fmt.Errorf("no %s shader named %q", language, *name)
	}

	pp := shader.NewPreProcessor(language, shader.WithIncludes(store), shader.WithPreProcessorLogger(logger))
	out, err := shader.Compose(pp, src, shader.Unit{
		Defines: defines.NewSet(defs...),
		Declarations: &shader.Declarations{
			Attributes: attributes,
			Samplers:   samplers,
		},
	})
	if err != nil {
		return err
	}

	switch strings.ToLower(*stage) {
	case "":
		fmt.Fprintf(stdout, "// %s vertex\n%s\n// %s fragment\n%s", *name, out.Vertex, *name, out.Fragment)
	case "vertex":
		fmt.Fprint(stdout, out.Vertex)
	case "fragment":
		fmt.Fprint(stdout, out.Fragment)
	default:
		return fmt.Errorf("unknown stage %q", *stage)
	}
	return nil
}
