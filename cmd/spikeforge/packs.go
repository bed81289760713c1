package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/spikeforge/internal/packs"
)

func newPacksCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Install bundles of spike definitions",
	}
	cmd.AddCommand(newPacksInstallCmd(c))
	return cmd
}

func newPacksInstallCmd(c *cli) *cobra.Command {
	var user bool
	cmd := &cobra.Command{
		Use:   "install <url|owner/repo>",
		Short: "Install a .tar.gz pack of definitions",
		Long: `Download a .tar.gz archive of definition files and store them as overrides.
The source is either a direct URL or a GitHub owner/repo, in which case the
first .tar.gz asset of the latest release is used. Nothing is stored unless
every definition in the archive is valid.`,
		Example: `  spikeforge packs install acme/spikes
  spikeforge packs install https://example.com/team-spikes.tar.gz --user`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := c.target(!user)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "⬇️  Downloading %s...\n", args[0])
			res, err := packs.Install(cmd.Context(), args[0], store)
			if err != nil {
				return err
			}
			for _, id := range res.Installed {
				fmt.Fprintf(out, "  + %s\n", id)
			}
			if len(res.Ignored) > 0 {
				fmt.Fprintf(out, "  (ignored %d non-definition files)\n", len(res.Ignored))
			}
			fmt.Fprintf(out, "✅ Installed %d spikes from %s\n", len(res.Installed), res.Source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&user, "user", false, "install into the user database instead of the project overrides directory")
	return cmd
}
