package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nadzzz/enlisten/internal/compile"
)

func newCompileCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile [FILE|-]",
		Short: "Synthesize a script into one audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			text, err := readScript(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			opts, err := compile.OptionsFromConfig(cfg.Compile, cfg.TTS.OpenAI.Instructions)
			if err != nil {
				return err
			}
			synth, err := newSynthesizer(cfg.TTS, true)
			if err != nil {
				return err
			}
			defer synth.Close()

			c, err := compile.New(synth, opts)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			art, err := c.Compile(ctx, text)
			if err != nil {
				return err
			}

			if output == "" {
				output = "listening." + string(art.Container)
			}
			if err := writeArtifact(output, art.Audio); err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "wrote %s (%s, %s, %d sentences, %d questions)\n",
				output, humanize.Bytes(uint64(len(art.Audio))), art.Duration.Round(time.Millisecond), art.Chunks, art.Plan.Questions)
			if art.Disclosure != "" {
				fmt.Fprintln(w, art.Disclosure)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default listening.<container>)")
	addCompileFlags(cmd.Flags())
	return cmd
}

// writeArtifact writes audio to path, or stdout for "-".
func writeArtifact(path string, audio []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(audio)
		return err
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
