// Enlisten compiles listening-test scripts into a single narrated audio
// track and serves the compiler over HTTP, gRPC and MQTT.
//
// Usage:
//
//	enlisten compile script.txt -o listening.wav
//	enlisten plan script.txt
//	enlisten serve --config /path/to/enlisten.yaml
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nadzzz/enlisten/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "enlisten",
		Short:         "Compile listening-test scripts into narrated audio",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "path to config file (e.g. configs/enlisten.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: json, text, pretty")

	root.AddCommand(newCompileCmd(), newPlanCmd(), newServeCmd(), newConfigCmd())
	return root
}

// addCompileFlags registers the run-setting flags shared by compile, plan
// and serve. Unset flags fall through to the config file and environment.
func addCompileFlags(fs *pflag.FlagSet) {
	fs.Float64("speed", 0, "speech speed (0.55-1.85)")
	fs.String("korean-voice", "", "voice for Korean sentences")
	fs.String("female-voice", "", "female voice name, random or order")
	fs.String("male-voice", "", "male voice name, random or order")
	fs.Duration("line-gap", 0, "silence after every spoken line")
	fs.Duration("question-gap", 0, "silence before every question after the first")
	fs.String("container", "", "output container: wav or mp3")
	fs.Uint64("seed", 0, "seed for random voice choice (0 = random)")
	fs.String("backend", "", "synthesis backend: openai or piper")
}

// loadConfig loads configuration with the command's flags bound and
// installs the configured logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)
	return cfg, nil
}

// readScript reads the script from the named file, or stdin for "-".
func readScript(stdin io.Reader, arg string) (string, error) {
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(b), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "enlisten:", err)
		os.Exit(1)
	}
}
