package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlrickert/textpix/pkg/textpix"
)

func NewCreateCmd(deps *Deps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create [TEXT...]",
		Short: "generate an image for text and store it",
		Long: `Generate an illustration for TEXT and store it as a new record.

When TEXT is omitted or "-", it is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textFromArgs(cmd, args)
			if err != nil {
				return err
			}
			res, err := deps.Service.Create(cmd.Context(), text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{
					"imageId":         res.ImageID,
					"imageUrl":        res.ImageURL,
					"description":     res.Description,
					"suggestedTitles": res.SuggestedTitles,
					"message":         textpix.MsgCreated,
				})
			}
			fmt.Fprintln(out, res.ImageID)
			fmt.Fprintf(out, "url: %s\n", res.ImageURL)
			fmt.Fprintf(out, "description: %s\n", res.Description)
			fmt.Fprintf(out, "titles: %s\n", strings.Join(res.SuggestedTitles, " | "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func NewRegenerateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "regenerate IMAGE_ID [TEXT...]",
		Aliases: []string{"regen"},
		Short:   "replace the image of a record using new text",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textFromArgs(cmd, args[1:])
			if err != nil {
				return err
			}
			res, err := deps.Service.Regenerate(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.ImageID)
			fmt.Fprintf(out, "url: %s\n", res.ImageURL)
			fmt.Fprintf(out, "description: %s\n", res.Description)
			return nil
		},
	}
	return cmd
}

func NewSaveCmd(deps *Deps) *cobra.Command {
	var in textpix.SaveInput

	cmd := &cobra.Command{
		Use:   "save",
		Short: "mark a record as saved or store a remote image",
		Long: `Mark the record --id as saved, optionally replacing its text.

Without --id the image at --url is downloaded into a new record. Saving the
same URL twice creates two records.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := deps.Service.Save(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ImageID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.ImageID, "id", "", "id of an existing record")
	cmd.Flags().StringVar(&in.ImageURL, "url", "", "remote image to store as a new record")
	cmd.Flags().StringVar(&in.Text, "text", "", "text to store with the record")
	return cmd
}

func NewDescribeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [TEXT...]",
		Short: "print the image prompt that would be drawn for text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textFromArgs(cmd, args)
			if err != nil {
				return err
			}
			desc, err := deps.Service.DescribeText(cmd.Context(), text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), desc)
			return err
		},
	}
}
