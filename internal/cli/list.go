package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/relate/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Namespace string
}

// RecordSummary is the listed form of a record.
type RecordSummary struct {
	Namespace string    `json:"namespace"`
	Key1      string    `json:"key1"`
	Key2      string    `json:"key2"`
	Params    string    `json:"params"`
	BasedOn   string    `json:"based_on,omitempty"`
	Created   time.Time `json:"created"`
	Size      int       `json:"size"`
	Key       string    `json:"key"`
}

func summarize(rec *store.Record) RecordSummary {
	return RecordSummary{
		Namespace: string(rec.Namespace),
		Key1:      rec.Key1,
		Key2:      rec.Key2,
		Params:    rec.ParamsKey,
		BasedOn:   rec.BasedOn.Key(),
		Created:   rec.Created,
		Size:      rec.Size,
		Key:       rec.Key,
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		Long: `List every committed record with its canonical parameters.

Examples:
  relate list
  relate list --namespace Descriptions
  relate list --config relate.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Namespace, "namespace", "n", "", "Descriptions or Collections (default both)")

	return cmd
}

func runList(ctx context.Context, opts *ListOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ns := store.Namespace(opts.Namespace)
	if ns != "" && !ns.Valid() {
		return WrapExitError(ExitCommandError, "invalid namespace", fmt.Errorf("%q", opts.Namespace))
	}

	st, err := openStore(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.List(ctx, ns)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list records", err)
	}

	out := make([]RecordSummary, len(recs))
	for i, rec := range recs {
		out[i] = summarize(rec)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: w}
	return f.Success(out, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAMESPACE\tKEY1\tKEY2\tPARAMS\tBASED ON\tSIZE\tCREATED")
		for _, r := range out {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				r.Namespace, r.Key1, r.Key2, r.Params, r.BasedOn, r.Size, r.Created.Format(time.RFC3339))
		}
		_ = tw.Flush()
	})
}
