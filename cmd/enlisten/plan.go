package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nadzzz/enlisten/internal/compile"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("241"))
)

func newPlanCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plan [FILE|-]",
		Short: "Preview speaker, language and voice per sentence without synthesizing",
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
			synth, err := newSynthesizer(cfg.TTS, false)
			if err != nil {
				return err
			}
			defer synth.Close()

			c, err := compile.New(synth, opts)
			if err != nil {
				return err
			}
			p, err := c.Plan(text)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			return renderPlan(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	addCompileFlags(cmd.Flags())
	return cmd
}

// renderPlan writes p as a table, one row per sentence. Sentences that will
// not be spoken are dimmed.
func renderPlan(w io.Writer, p *compile.Plan) error {
	rows := make([][]string, 0, len(p.Cues))
	for _, c := range p.Cues {
		q := ""
		if c.Question != nil {
			q = strconv.Itoa(c.Question.Number)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index + 1),
			q,
			string(c.Speaker),
			string(c.Language),
			c.Voice,
			c.Text,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Q", "Speaker", "Lang", "Voice", "Text").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(p.Cues) && !p.Cues[row].Speakable:
				return mutedStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintf(w, "%s\n%d sentences, %d spoken, %d questions\n",
		t.String(), len(p.Cues), p.Speakable, p.Questions)
	return err
}
