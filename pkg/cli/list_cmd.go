package cli

import (
	"github.com/spf13/cobra"

	"github.com/jlrickert/textpix/pkg/store"
)

func NewListCmd(deps *Deps) *cobra.Command {
	var (
		tags   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list image records, newest first",
		Long: `List image records, newest first.

--tags filters by a tag expression, for example "cat and not draft" or
"(sea || lake) && !night".`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := deps.Service.List(cmd.Context(), tags)
			if err != nil {
				return err
			}
			if asJSON {
				if items == nil {
					items = []store.Summary{}
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}
			return writeSummaries(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringVarP(&tags, "tags", "t", "", "tag expression to filter by")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func NewSearchCmd(deps *Deps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search KEYWORD",
		Short: "find records whose text, description or file name contains KEYWORD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := deps.Service.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				if items == nil {
					items = []store.Summary{}
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}
			return writeSummaries(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}
