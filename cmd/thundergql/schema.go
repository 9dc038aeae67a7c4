package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hanpama/thundergql/internal/entity"
	"github.com/hanpama/thundergql/internal/gateway"
	"github.com/hanpama/thundergql/internal/runtime"
	"github.com/hanpama/thundergql/internal/schema"
)

func newPrintSchemaCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "print-schema",
		Short: "Print the assembled GraphQL schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, doc, err := gateway.BuildSchema(a.cfg, a.logger)
			if err != nil {
				return err
			}
			sdl := schema.Render(doc)
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SDL to a file instead of stdout")
	return cmd
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List registered field resolvers and their expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, sch, _, err := gateway.BuildSchema(a.cfg, a.logger)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range reg.Keys() {
				e, _ := reg.Lookup(k.Type, k.Field)
				mode := "sync"
				if f := sch.Field(k.Type, k.Field); f == nil {
					mode = "unknown"
				} else if f.Async {
					mode = "async"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", k, mode, e)
			}
			return w.Flush()
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report schema fields and abstract types the registry leaves unresolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, sch, _, err := gateway.BuildSchema(a.cfg, a.logger)
			if err != nil {
				return err
			}
			rep := runtime.Coverage(sch, reg)
			out := cmd.OutOrStdout()
			for _, k := range rep.UnregisteredFields {
				fmt.Fprintf(out, "attribute fallback: %s\n", k)
			}
			for _, t := range rep.MissingTypeResolvers {
				fmt.Fprintf(out, "missing type resolver: %s\n", t)
			}
			for _, k := range rep.UnknownFields {
				fmt.Fprintf(out, "unknown field: %s\n", k)
			}
			if !rep.OK() || (strict && len(rep.UnregisteredFields) > 0) {
				return fmt.Errorf("schema check failed")
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "also fail on fields without a registered expression")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "import <fixtures.yaml>",
		Short: "Import YAML fixtures into the SQLite store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.Store.DSN
			}
			if dsn == "" {
				return fmt.Errorf("no sqlite DSN: set store.dsn or --dsn")
			}
			f, err := entity.LoadFixtures(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := entity.OpenSQL(dsn)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			if err := store.Import(ctx, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entities and %d aliases\n", len(f.Entities), len(f.Aliases))
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "SQLite DSN (defaults to store.dsn)")
	return cmd
}
