package cli

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandrolain/goxq/pkg/evaluator"
	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/plan"
	"github.com/sandrolain/goxq/pkg/storage"
	"github.com/sandrolain/goxq/pkg/types"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Doc      string   // XML document used as context item
	Bindings []string // name=value pairs for external variables
	Explain  bool     // print the compiled plan instead of evaluating it
	Limit    int      // maximum number of items to pull, 0 for all
}

// RunResult is the JSON payload of a successful run.
type RunResult struct {
	Items  []string `json:"items"`
	Output []string `json:"output,omitempty"`
}

// ExplainResult is the JSON payload of --explain.
type ExplainResult struct {
	Plan        string   `json:"plan"`
	Type        string   `json:"type"`
	Externals   []string `json:"externals,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Compile and evaluate a query plan",
		Long: `Compile a YAML query plan and evaluate it.

The result is pulled lazily: with --limit only the first items are
computed. With --explain the optimized plan and the compiler diagnostics
are printed and nothing is evaluated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Doc, "doc", "d", "", "XML document used as context item")
	cmd.Flags().StringArrayVarP(&opts.Bindings, "bind", "b", nil, "bind an external variable (name=value)")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "print the compiled plan and diagnostics")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of result items")

	return cmd
}

func runQuery(opts *RunOptions, planPath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd)

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeConfig, err)
	}

	p, err := plan.ParseFile(planPath)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeCompile, err)
	}
	q, err := p.Compile(cfg.CompileOptions(logger)...)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeCompile, err)
	}
	f.VerboseLog("compiled query %s: %s", q.ID, q)

	if opts.Explain {
		return explain(f, q)
	}

	bindings, err := parseBindings(cfg.Bindings, opts.Bindings)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeBinding, err)
	}

	var focus any
	if opts.Doc != "" {
		doc, err := loadDocument(opts.Doc, cfg)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeReadFailed, err)
		}
		focus = doc
	}

	ev := evaluator.New(cfg.EvalOptions(logger)...)
	seq, err := ev.EvalWithBindings(cmd.Context(), q, focus, bindings)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeBinding, err)
	}
	defer seq.Close()

	result := RunResult{Items: []string{}}
	for opts.Limit <= 0 || len(result.Items) < opts.Limit {
		item, err := seq.Next()
		if err != nil {
			return fail(f, ExitFailure, ErrCodeGeneric, err)
		}
		if item == nil {
			break
		}
		s := render(item)
		result.Items = append(result.Items, s)
		if f.Format != "json" {
			fmt.Fprintln(f.Writer, s)
		}
	}
	for _, o := range seq.Output() {
		result.Output = append(result.Output, render(o))
	}

	if f.Format == "json" {
		return f.Success(result, q.ID.String())
	}
	for _, o := range result.Output {
		f.Note("output:", o)
	}
	return nil
}

func explain(f *OutputFormatter, q *expr.Query) error {
	res := ExplainResult{Plan: q.String(), Type: q.Root.SeqType().String()}
	for name := range q.Externals {
		res.Externals = append(res.Externals, "$"+name)
	}
	slices.Sort(res.Externals)
	for _, d := range q.Diagnostics {
		res.Diagnostics = append(res.Diagnostics, d.String())
	}
	if f.Format == "json" {
		return f.Success(res, q.ID.String())
	}

	f.Heading("plan")
	fmt.Fprintf(f.Writer, "  %s\n  as %s\n", res.Plan, res.Type)
	if len(res.Externals) > 0 {
		f.Heading("externals")
		fmt.Fprintf(f.Writer, "  %s\n", strings.Join(res.Externals, ", "))
	}
	if len(q.Diagnostics) > 0 {
		f.Heading("diagnostics")
		for _, d := range q.Diagnostics {
			f.Note("  "+d.Code, d.Message)
		}
	}
	return nil
}

// parseBindings merges config bindings with name=value flags. Flag values
// are typed as integer, double or boolean when they parse as such.
func parseBindings(defaults map[string]any, flags []string) (map[string]any, error) {
	out := make(map[string]any, len(defaults)+len(flags))
	for k, v := range defaults {
		out[k] = v
	}
	for _, b := range flags {
		name, raw, ok := strings.Cut(b, "=")
		name = strings.TrimPrefix(strings.TrimSpace(name), "$")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q: name=value expected", b)
		}
		out[name] = bindingValue(raw)
	}
	return out, nil
}

func bindingValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	return raw
}

func loadDocument(path string, cfg *Config) (*nav.Node, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	table, err := storage.ParseXML(fh, append(cfg.XMLOptions(), storage.WithDocumentName(path))...)
	if err != nil {
		return nil, err
	}
	return nav.Open(table, 0), nil
}

// render formats a result item. Nodes show their kind and pre value.
func render(it types.Item) string {
	if n, ok := it.(*nav.Node); ok {
		return fmt.Sprintf("%d: %s", n.Pre(), n)
	}
	return it.String()
}

func fail(f *OutputFormatter, exit int, code string, err error) error {
	_ = f.Error(code, err)
	return WrapExitError(exit, code, err)
}
