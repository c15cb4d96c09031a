// Command tocloak builds transformation-optics devices and meshes them.
//
// Usage:
//
//	tocloak [-config file] [-json] [-v] -script file.tocloak
//	tocloak [-config file] [-json] [-v] -device pyramid-cloak
//	tocloak -example-config
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chazu/tocloak/pkg/config"
	"github.com/chazu/tocloak/pkg/device"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tocloak", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath    = fs.String("config", "", "gcfg settings file")
		scriptPath    = fs.String("script", "", "script to evaluate")
		deviceName    = fs.String("device", "", "build a device with default parameters: "+strings.Join(device.Names(), ", "))
		asJSON        = fs.Bool("json", false, "write meshes as JSON to stdout")
		verbose       = fs.Bool("v", false, "debug logging")
		exampleConfig = fs.Bool("example-config", false, "print a commented settings file and exit")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *exampleConfig {
		fmt.Fprintln(stdout, config.ExampleFile)
		return 0
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		return 1
	}

	app := NewApp(cfg, logger)
	var result EvalResult
	switch {
	case *scriptPath != "" && *deviceName != "":
		logger.Error("-script and -device are exclusive")
		return 2
	case *scriptPath != "":
		source, err := os.ReadFile(*scriptPath)
		if err != nil {
			logger.Error("read script", "err", err)
			return 1
		}
		result = app.Evaluate(string(source))
	case *deviceName != "":
		result = app.BuildDevice(*deviceName)
	default:
		fs.Usage()
		return 2
	}

	for _, w := range result.Warnings {
		logger.Warn("face not realised", "device", w.Device, "face", w.Face, "err", w.Message)
	}
	for _, e := range result.Errors {
		logger.Error("evaluation error", "line", e.Line, "msg", e.Message)
	}
	if len(result.Errors) > 0 {
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		if err := enc.Encode(result); err != nil {
			logger.Error("encode", "err", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stdout, "%d meshes, %d vertices, %d triangles\n",
		result.Stats.Meshes, result.Stats.Vertices, result.Stats.Triangles)
	return 0
}
