package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaedit-api/internal/template"
)

func newTemplatesCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List and create edit templates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print built-in and saved templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				deps, err := loadDeps(cmd, load)
				if err != nil {
					return err
				}
				templates, err := deps.Templates.List(cmd.Context())
				if err != nil {
					return processingError(err)
				}
				return printJSON(cmd.OutOrStdout(), templates)
			},
		},
		&cobra.Command{
			Use:   "defaults",
			Short: "Print the built-in templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printJSON(cmd.OutOrStdout(), template.Defaults())
			},
		},
		newTemplateCreateCmd(load),
	)
	return cmd
}

func newTemplateCreateCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Save a user template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return usageError("template name must not be empty")
			}
			raw, _ := cmd.Flags().GetString("config")
			var cfg template.Config
			if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
				return usageError("config: %w", err)
			}

			deps, err := loadDeps(cmd, load)
			if err != nil {
				return err
			}
			t, err := deps.Templates.Create(cmd.Context(), name, cfg)
			if err != nil {
				return processingError(err)
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().String("config", "", `Template defaults, e.g. {"video":{"speed":1.5},"image":{"blur":2}}`)
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
