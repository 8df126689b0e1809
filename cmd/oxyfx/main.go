// Command oxyfx inspects and precompiles material shader variants.
//
//	oxyfx preprocess [-config file] -shader name [-define D]... [-attribute A]... [-sampler S]... [-stage vertex|fragment]
//	oxyfx compile [-config file] -manifest file [-out dir] [-glsl]
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/config"
)

// listFlag collects every occurrence of a repeatable flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// loadConfig returns the configuration at path, or the defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: oxyfx <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  preprocess  print a shader variant after define resolution and include expansion")
	fmt.Fprintln(w, "  compile     compile every material variant listed in a manifest")
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "preprocess":
		return runPreprocess(args[1:], stdout, stderr)
	case "compile":
		return runCompile(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "oxyfx: %v\n", err)
		os.Exit(1)
	}
}
