package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/relate/store"
)

// ClearOptions holds flags for the clear commands.
type ClearOptions struct {
	*RootOptions
	Params       []string
	BasedOn      string
	BasedOnParam []string
	Yes          bool
}

// ClearResult is the output of a clear command.
type ClearResult struct {
	Target string `json:"target"`
}

// NewClearCommand creates the clear command group.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored records",
		Long: `Remove stored records and prune empty parent keys.

Examples:
  relate clear description a1 soap -p rcut=5 -p nmax=9 -p lmax=9
  relate clear descriptions a1 soap
  relate clear descriptor soap
  relate clear result alloys ler --based-on soap --based-on-param rcut=5 -p epsilon=0.025
  relate clear method alloys ler
  relate clear all --yes`,
	}

	cmd.PersistentFlags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter name=value (repeatable)")
	cmd.PersistentFlags().StringVar(&opts.BasedOn, "based-on", "", "based-on descriptor name")
	cmd.PersistentFlags().StringArrayVar(&opts.BasedOnParam, "based-on-param", nil, "based-on parameter name=value (repeatable)")

	sub := func(use, short string, n int, run func(ctx context.Context, st *store.Store, args []string) (string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(n),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runClear(cmd.Context(), opts, args, cmd.OutOrStdout(), run)
			},
		}
	}

	cmd.AddCommand(sub("description <entity> <descriptor>", "Remove one description by exact parameters", 2,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			p, err := parseParams(opts.Params)
			if err != nil {
				return "", err
			}
			return args[0] + "/" + args[1], st.ClearDescription(ctx, args[0], args[1], p)
		}))
	cmd.AddCommand(sub("descriptions <entity> <descriptor>", "Remove all descriptions of an entity by one descriptor", 2,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			return args[0] + "/" + args[1], st.ClearDescriptions(ctx, args[0], args[1])
		}))
	cmd.AddCommand(sub("entity <entity>", "Remove all descriptions of an entity", 1,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			return args[0], st.ClearEntity(ctx, args[0])
		}))
	cmd.AddCommand(sub("descriptor <descriptor>", "Remove a descriptor across all entities", 1,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			return args[0], st.ClearDescriptor(ctx, args[0])
		}))
	cmd.AddCommand(sub("result <collection> <method>", "Remove one collection result by exact parameters", 2,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			p, err := parseParams(opts.Params)
			if err != nil {
				return "", err
			}
			ref, err := basedOn(opts.BasedOn, opts.BasedOnParam)
			if err != nil {
				return "", err
			}
			return args[0] + "/" + args[1], st.ClearCollectionResult(ctx, args[0], args[1], ref, p)
		}))
	cmd.AddCommand(sub("method <collection> <method>", "Remove every result of a method", 2,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			return args[0] + "/" + args[1], st.ClearMethod(ctx, args[0], args[1])
		}))
	cmd.AddCommand(sub("collection <collection>", "Remove every result of a collection", 1,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			return args[0], st.ClearCollection(ctx, args[0])
		}))
	cmd.AddCommand(sub("namespace <namespace>", "Remove everything in Descriptions or Collections", 1,
		func(ctx context.Context, st *store.Store, args []string) (string, error) {
			return args[0], st.ClearNamespace(ctx, store.Namespace(args[0]))
		}))

	all := sub("all", "Remove everything", 0,
		func(ctx context.Context, st *store.Store, _ []string) (string, error) {
			if !opts.Yes {
				return "", fmt.Errorf("refusing to clear the whole store without --yes")
			}
			return "all", st.ClearAll(ctx)
		})
	all.Flags().BoolVar(&opts.Yes, "yes", false, "confirm removing everything")
	cmd.AddCommand(all)

	return cmd
}

func runClear(ctx context.Context, opts *ClearOptions, args []string, w io.Writer, run func(context.Context, *store.Store, []string) (string, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	target, err := run(ctx, st, args)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return WrapExitError(ExitNotFound, "nothing to clear", err)
	case errors.Is(err, store.ErrInvalidArgument):
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	case err != nil:
		return WrapExitError(ExitFailure, "clear failed", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: w}
	return f.Success(ClearResult{Target: target}, func(w io.Writer) {
		fmt.Fprintf(w, "Cleared %s\n", target)
	})
}
