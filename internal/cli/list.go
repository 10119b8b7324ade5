package cli

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/backmassage/codecbench/internal/display"
	"github.com/backmassage/codecbench/internal/matrix"
	"github.com/backmassage/codecbench/internal/naming"
)

type listOptions struct {
	OutputFormat string
}

func newListCommand(a *app) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list [decode|encode|extract]...",
		Short: "Print the benchmark matrix",
		Long:  "Print the cases of the named suites (all suites by default), after applying --run.",
		Example: `  codecbench list
  codecbench list encode
  codecbench list decode --run 'async' -o json`,
		ValidArgs: []string{"decode", "encode", "extract"},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := selectCases(args)
			if err != nil {
				return err
			}
			return a.printCases(matrix.Filter(cases, a.cfg.CaseMatcher()), opts.OutputFormat)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (json or text)")
	cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// selectCases concatenates the matrices of the named suites in argument
// order. No names selects decode, encode and extract.
func selectCases(names []string) ([]matrix.Case, error) {
	if len(names) == 0 {
		names = []string{"decode", "encode", "extract"}
	}
	var cases []matrix.Case
	for _, n := range names {
		switch n {
		case "decode":
			cases = append(cases, matrix.DecodeCases()...)
		case "encode":
			cases = append(cases, matrix.EncodeCases()...)
		case "extract":
			cases = append(cases, matrix.ExtractCases()...)
		default:
			return nil, errors.Errorf("unknown suite %q", n)
		}
	}
	return cases, nil
}

type caseJSON struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Input     string `json:"input"`
	Reference string `json:"reference"`
	Codec     string `json:"codec,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Mime      string `json:"mime,omitempty"`
	BitRate   int    `json:"bitRate,omitempty"`
}

func (a *app) printCases(cases []matrix.Case, format string) error {
	switch format {
	case "json":
		out := make([]caseJSON, len(cases))
		for i, c := range cases {
			out[i] = caseJSON{
				Name:      c.Name(),
				Kind:      c.Kind.String(),
				Input:     c.Input,
				Reference: c.Reference(),
				Codec:     c.Codec,
				Mime:      caseMime(c),
			}
			if c.Kind == matrix.KindDecode {
				out[i].Mode = c.Mode.String()
			}
			if c.BitRate > 0 {
				out[i].BitRate = c.BitRate
			}
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "text":
		rows := make([][]string, len(cases))
		for i, c := range cases {
			rate := "-"
			if c.BitRate > 0 {
				rate = display.FormatBitrateLabel(int64(c.BitRate))
			}
			mode := "-"
			if c.Kind == matrix.KindDecode {
				mode = c.Mode.String()
			}
			rows[i] = []string{c.Name(), c.Input, dash(caseMime(c)), mode, rate}
		}
		return display.RenderTable(a.out, []string{"CASE", "INPUT", "MIME", "MODE", "BITRATE"}, rows)
	}
	return errors.Errorf("invalid output format %q (use json or text)", format)
}

// caseMime is the case's target mime, or for decode and extract cases the
// mime the asset name declares.
func caseMime(c matrix.Case) string {
	if c.Mime != "" {
		return c.Mime
	}
	return naming.ParseAsset(c.Input).Mime()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
