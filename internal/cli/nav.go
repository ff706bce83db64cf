package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandrolain/goxq"
	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/storage"
)

// NavOptions holds flags for the nav command.
type NavOptions struct {
	*RootOptions
	Pre  int    // context node, negative to dump the table
	Axis string // axis walked from Pre
}

// NavRow is one node in the JSON output of the nav command.
type NavRow struct {
	Pre     int    `json:"pre"`
	Kind    string `json:"kind"`
	Size    int    `json:"size"`
	AttSize int    `json:"att_size"`
	Parent  int    `json:"parent"`
	Name    string `json:"name,omitempty"`
	Value   string `json:"value,omitempty"`
}

// NewNavCommand creates the nav command.
func NewNavCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NavOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "nav <doc.xml>",
		Short: "Inspect the node table of a document",
		Long: `Load an XML document into a node table and print it.

Without --pre the whole table is dumped. With --pre the nodes on --axis
of that node are listed in axis order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNav(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Pre, "pre", "p", -1, "context node")
	cmd.Flags().StringVarP(&opts.Axis, "axis", "a", "child", "axis walked from the context node")

	return cmd
}

func runNav(opts *NavOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeConfig, err)
	}
	doc, err := loadDocument(path, cfg)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeReadFailed, err)
	}
	table := doc.Accessor().(*storage.Table)
	f.VerboseLog("loaded %d nodes from %s", table.Len(), path)

	if opts.Pre < 0 {
		if f.Format == "json" {
			rows := make([]NavRow, table.Len())
			for pre := range rows {
				rows[pre] = row(table, pre)
			}
			return f.Success(rows, "")
		}
		fmt.Fprint(f.Writer, table)
		return nil
	}

	if opts.Pre >= table.Len() {
		return fail(f, ExitCommandError, ErrCodeGeneric, fmt.Errorf("node %d out of range [0, %d)", opts.Pre, table.Len()))
	}
	axis, ok := nav.ParseAxis(opts.Axis)
	if !ok {
		return fail(f, ExitCommandError, ErrCodeGeneric, fmt.Errorf("unknown axis %q", opts.Axis))
	}

	n := goxq.Open(table, opts.Pre)
	rows := []NavRow{}
	f.Heading(fmt.Sprintf("%s::node() of %d: %s", axis, n.Pre(), n))
	it := n.Iter(axis)
	for c := it.Next(); c != nil; c = it.Next() {
		rows = append(rows, row(table, c.Pre()))
		if f.Format != "json" {
			fmt.Fprintf(f.Writer, "  %s\n", render(c))
		}
	}
	if f.Format == "json" {
		return f.Success(rows, "")
	}
	return nil
}

func row(t *storage.Table, pre int) NavRow {
	return NavRow{
		Pre:     pre,
		Kind:    t.Kind(pre).String(),
		Size:    t.Size(pre),
		AttSize: t.AttSize(pre),
		Parent:  t.Parent(pre),
		Name:    t.Name(pre),
		Value:   t.Value(pre),
	}
}
