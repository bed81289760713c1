package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/HendryAvila/spikeforge/internal/overrides"
	"github.com/HendryAvila/spikeforge/internal/server"
)

// writableStore is a store the CLI can list and modify.
type writableStore interface {
	overrides.Store
	overrides.Writer
}

// target opens the project directory store when project is set, otherwise
// the user-wide SQLite store.
func (c *cli) target(project bool) (writableStore, func(), error) {
	if project {
		dir, err := server.OverridesDir(c.cfg.Overrides.Dir)
		if err != nil {
			return nil, nil, err
		}
		return overrides.NewFileStore(dir), func() {}, nil
	}
	if c.cfg.Overrides.DB == "" {
		return nil, nil, errors.New("no user override database configured (set overrides.db or use --project)")
	}
	db, err := overrides.NewSQLiteStore(c.cfg.Overrides.DB)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

func newOverridesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Manage stored spike definitions",
		Long: `Overrides are spike definitions stored locally. They take precedence over
synthesized spikes with the same id. Project overrides live as JSON or YAML
files under overrides.dir; user overrides live in the SQLite database at
overrides.db.`,
	}
	cmd.AddCommand(newOverridesListCmd(c), newOverridesPutCmd(c), newOverridesDeleteCmd(c))
	return cmd
}

func newOverridesListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List project and user overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFILES\tSCOPE\tUPDATED")

			project, _, err := c.target(true)
			if err != nil {
				return err
			}
			ids, err := project.List(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				m, err := project.LoadMetadata(ctx, id)
				if err != nil {
					fmt.Fprintf(w, "%s\t(invalid: %v)\t-\tproject\t-\n", id, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\tproject\t-\n", m.ID, m.Name, m.FileCount)
			}

			if c.cfg.Overrides.DB != "" {
				db, err := overrides.NewSQLiteStore(c.cfg.Overrides.DB)
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()
				records, err := db.Records(ctx)
				if err != nil {
					return err
				}
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%d\tuser\t%s\n", r.Metadata.ID, r.Metadata.Name, r.Metadata.FileCount, r.UpdatedAt)
				}
			}
			return w.Flush()
		},
	}
}

func newOverridesPutCmd(c *cli) *cobra.Command {
	var project bool
	cmd := &cobra.Command{
		Use:   "put <file>...",
		Short: "Store definition files as overrides",
		Long: `Store one or more definition files (.json, .yaml or .yml). The file name
without extension is the spike id. Every file is validated before anything
is stored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var defs []*definitionFile
			for _, path := range args {
				def, err := readDefinition(path)
				if err != nil {
					return err
				}
				defs = append(defs, def)
			}

			store, closeFn, err := c.target(project)
			if err != nil {
				return err
			}
			defer closeFn()

			for _, d := range defs {
				if err := store.Put(cmd.Context(), d.def); err != nil {
					return fmt.Errorf("storing %s: %w", d.path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ stored %s\n", d.def.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "store in the project overrides directory instead of the user database")
	return cmd
}

func newOverridesDeleteCmd(c *cli) *cobra.Command {
	var project bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an override",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := c.target(project)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, overrides.ErrNotExist) {
					return fmt.Errorf("no override named %q", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "delete from the project overrides directory instead of the user database")
	return cmd
}

type definitionFile struct {
	path string
	def  *catalog.Definition
}

func readDefinition(path string) (*definitionFile, error) {
	id, ok := overrides.IDFromPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: not a definition file (want %v)", path, overrides.Extensions)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := overrides.Decode(id, filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &definitionFile{path: path, def: def}, nil
}
