package commands

import (
	"fmt"
	"strings"

	"github.com/jpkmiller/coach/internal/logger"
	"github.com/spf13/cobra"
)

// NewMailCmd groups the mailbox operations.
func NewMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Work with the mailbox",
	}
	cmd.AddCommand(newMailListCmd())
	cmd.AddCommand(newMailFetchCmd())
	cmd.AddCommand(newMailSummarizeCmd())
	cmd.AddCommand(newMailTriageCmd())
	return cmd
}

func newMailListCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mails, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, zapLogger, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			a.Mails.SetFilter(filter)
			for _, m := range a.Mails.FilteredMails() {
				read := " "
				if m.Read {
					read = "r"
				}
				labels := ""
				if len(m.Labels) > 0 {
					labels = " [" + strings.Join(m.Labels, ", ") + "]"
				}
				fmt.Printf("[%s] %s  %-30s %s%s\n", read, m.ID, m.From, m.Subject, labels)
				if m.Summary != "" {
					fmt.Printf("      %s\n", m.Summary)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Substring or label filter")
	return cmd
}

func newMailFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch new mails from the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, zapLogger, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			a.Mails.Fetch(cmd.Context())
			fmt.Printf("%d mails in mailbox.\n", len(a.Mails.Mails()))
			return nil
		},
	}
}

func newMailSummarizeCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "summarize [mail-id...]",
		Short: "Summarize mails",
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

			if all {
				a.Mails.SelectAll()
			} else {
				for _, id := range args {
					a.Mails.Select(id, true)
				}
			}
			a.Mails.SummarizeAll(ctx)

			for _, m := range a.Mails.Mails() {
				if m.Summary != "" {
					fmt.Printf("%s: %s\n", m.ID, m.Summary)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Summarize every mail")
	return cmd
}

func newMailTriageCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "triage [mail-id...]",
		Short: "Triage mails via assistant tool calls",
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

			if all {
				a.Mails.SelectAll()
			} else {
				for _, id := range args {
					a.Mails.Select(id, true)
				}
			}
			a.Mails.TriageAll(ctx)

			for _, m := range a.Mails.Mails() {
				fmt.Printf("%s read=%t labels=%v\n", m.ID, m.Read, m.Labels)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Triage every mail")
	return cmd
}
