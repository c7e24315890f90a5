package main

import (
	"fmt"
	"os"

	"github.com/jpkmiller/coach/cmd/coach/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "coach",
		Short: "Personal productivity coach",
		Long:  "Aggregates mail, tasks, calendar and weather and runs the Jean-Philippe assistant over them",
	}

	rootCmd.AddCommand(commands.NewServeCmd())
	rootCmd.AddCommand(commands.NewBriefingCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewMailCmd())
	rootCmd.AddCommand(commands.NewTaskCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
