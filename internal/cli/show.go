package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/relate/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Params       []string
	BasedOn      string
	BasedOnParam []string
	Payload      bool
}

// ShowResult is the output of the show command.
type ShowResult struct {
	Record  RecordSummary     `json:"record"`
	Info    gojson.RawMessage `json:"info,omitempty"`
	Payload any               `json:"payload,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <namespace> <key1> <key2>",
		Short: "Show the record matching the given parameters",
		Long: `Show the newest record of (namespace, key1, key2) whose parameters
equal the given ones.

Examples:
  relate show Descriptions a1 soap -p rcut=5 -p nmax=9 -p lmax=9
  relate show Collections alloys ler --based-on soap --based-on-param rcut=5 -p epsilon=0.025 --payload`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter name=value (repeatable)")
	cmd.Flags().StringVar(&opts.BasedOn, "based-on", "", "based-on descriptor name")
	cmd.Flags().StringArrayVar(&opts.BasedOnParam, "based-on-param", nil, "based-on parameter name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Payload, "payload", false, "decode and print the payload")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, args []string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := parseParams(opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}
	ref, err := basedOn(opts.BasedOn, opts.BasedOnParam)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid based-on reference", err)
	}

	st, err := openStore(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	q := store.Query{Namespace: store.Namespace(args[0]), Key1: args[1], Key2: args[2], BasedOn: ref, Params: p}
	rec, err := st.Lookup(ctx, q)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitNotFound, "no matching record", err)
		}
		return WrapExitError(ExitFailure, "lookup failed", err)
	}

	res := ShowResult{Record: summarize(rec), Info: rec.Info}
	if opts.Payload {
		if err := st.Load(ctx, rec, &res.Payload); err != nil {
			return WrapExitError(ExitFailure, "failed to load payload", err)
		}
	}

	f := &OutputFormatter{Format: opts.Format, Writer: w}
	return f.Success(res, func(w io.Writer) {
		r := res.Record
		fmt.Fprintf(w, "Record:  %s/%s/%s\n", r.Namespace, r.Key1, r.Key2)
		fmt.Fprintf(w, "Params:  %s\n", r.Params)
		if r.BasedOn != "" {
			fmt.Fprintf(w, "BasedOn: %s\n", r.BasedOn)
		}
		fmt.Fprintf(w, "Created: %s\n", r.Created)
		fmt.Fprintf(w, "Size:    %d\n", r.Size)
		fmt.Fprintf(w, "Key:     %s\n", r.Key)
		if len(res.Info) > 0 {
			fmt.Fprintf(w, "Info:    %s\n", res.Info)
		}
		if opts.Payload {
			data, _ := gojson.Marshal(res.Payload)
			fmt.Fprintf(w, "Payload: %s\n", data)
		}
	})
}
