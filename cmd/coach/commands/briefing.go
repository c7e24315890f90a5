package commands

import (
	"fmt"

	"github.com/jpkmiller/coach/internal/logger"
	"github.com/spf13/cobra"
)

// NewBriefingCmd prints the Jean-Philippe briefing for the current time of
// day.
func NewBriefingCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "briefing",
		Short: "Print the assistant briefing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, zapLogger, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			a.Weather.Fetch(ctx)
			fmt.Println(a.JeanPhilippe.GenerateSummary(ctx, force))

			if suggestions := a.Tasks.Suggestions(); len(suggestions) > 0 {
				fmt.Println("\nSuggested tasks:")
				for i, suggestion := range suggestions {
					fmt.Printf("  %d. %s\n", i+1, suggestion)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass the cached briefing")
	return cmd
}
