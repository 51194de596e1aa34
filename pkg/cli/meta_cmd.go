package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlrickert/textpix/pkg/record"
	"github.com/jlrickert/textpix/pkg/store"
	"github.com/jlrickert/textpix/pkg/textpix"
)

func NewLoadCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "load IMAGE_ID",
		Short: "print the editable view of a record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := deps.Service.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), loaded)
		},
	}
}

func NewMetaCmd(deps *Deps) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "meta IMAGE_ID",
		Short: "print the stored metadata document",
		Long: `Print the metadata document of IMAGE_ID exactly as stored.

Use --yaml to render it as YAML instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := deps.Service.GetMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asYAML {
				raw, err = jsonToYAML(raw)
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(raw); err != nil {
				return err
			}
			if len(raw) > 0 && raw[len(raw)-1] != '\n' {
				_, err = fmt.Fprintln(out)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "render the document as YAML")
	return cmd
}

func NewUpdateTextCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "update-text IMAGE_ID [TEXT...]",
		Short: "replace the text of a record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textFromArgs(cmd, args[1:])
			if err != nil {
				return err
			}
			if _, err := deps.Service.UpdateText(cmd.Context(), args[0], text); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), textpix.MsgTextUpdated)
			return err
		},
	}
}

func NewUpdateMetaCmd(deps *Deps) *cobra.Command {
	var (
		patch store.Patch
		tags  string
	)

	cmd := &cobra.Command{
		Use:   "update-meta IMAGE_ID",
		Short: "set the title, tags or description of a record",
		Long: `Set the title, tags or description of IMAGE_ID. Flags that are not
given leave the stored value unchanged. --tags replaces the whole tag list
with a comma separated list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("tags") {
				patch.Tags = record.ParseTags(tags)
			}
			m, err := deps.Service.UpdateMetadata(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, textpix.MsgMetadataUpdated)
			fmt.Fprintf(out, "title: %s\n", m.Title)
			fmt.Fprintf(out, "tags: %s\n", strings.Join(m.Tags, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&patch.Title, "title", "", "new title")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags")
	cmd.Flags().StringVar(&patch.Description, "description", "", "new description")
	return cmd
}

func NewRmCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "rm IMAGE_ID...",
		Aliases: []string{"delete"},
		Short:   "delete records and all of their files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, id := range args {
				deleted, err := deps.Service.Delete(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				if len(deleted) == 0 {
					fmt.Fprintf(out, "%s: %s\n", id, textpix.MsgAlreadyDeleted)
					continue
				}
				for _, p := range deleted {
					fmt.Fprintln(out, p)
				}
			}
			return nil
		},
	}
}
