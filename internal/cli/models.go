package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the selectable models",
	Long: `List the models questions can be sent to. The first one is the default.

In-process the list comes from ASKWEB_MODELS (or the config file); with
--server it is the server's list.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	models := cfg.Models
	if remote() {
		var err error
		models, err = newClient().Models(context.Background())
		if err != nil {
			return fmt.Errorf("list models: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	for i, m := range models {
		if i == 0 {
			fmt.Fprintf(out, "%s %s\n", m, defaultTheme.hintStyle().Render("(default)"))
			continue
		}
		fmt.Fprintln(out, m)
	}
	return nil
}
