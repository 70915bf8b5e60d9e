package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	cl "arkshop/internal/cli"
	"arkshop/internal/config"
)

func main() {
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "shopctl",
		Short:        "ARK shop points administration",
		SilenceUsage: true,
	}

	root.AddCommand(
		newBalanceCmd(cfg),
		newTransactionsCmd(cfg),
		newTradeCmd(cfg),
		newCreditRetryCmd(cfg),
		newPendingCmd(cfg),
		newFlushCmd(cfg),
		newResetRetriesCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(cfg config.CLIConfig) *cl.Client {
	return cl.NewClient(cfg.APIBaseURL, cfg.AdminToken)
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newBalanceCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <player>",
		Short: "Show a player's point balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Balance(ctx, args[0])
			if err != nil {
				return err
			}
			return renderBalance(out)
		},
	}
}

func newTransactionsCmd(cfg config.CLIConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "transactions <player>",
		Short: "Show a player's recent transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Transactions(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return renderTransactions(out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of transactions")
	return cmd
}

func newTradeCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "trade <from> <to> <amount>",
		Short: "Move points between two players",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer")
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Trade(ctx, args[0], args[1], amount)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sent %d points from %s to %s.", amount, args[0], args[1]))
			return renderBalance(out)
		},
	}
}

func newCreditRetryCmd(cfg config.CLIConfig) *cobra.Command {
	var (
		actor  string
		eosID  string
		pseudo string
	)
	cmd := &cobra.Command{
		Use:   "retry-credit <points>",
		Short: "Re-submit a failed provider credit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || points <= 0 {
				return fmt.Errorf("points must be a positive integer")
			}
			payload := map[string]any{"points": points}
			if eosID != "" {
				payload["eos_id"] = eosID
			}
			if pseudo != "" {
				payload["pseudo"] = pseudo
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).RetryCredit(ctx, actor, payload)
			if err != nil {
				return err
			}
			printSuccess("Credit applied.")
			return renderBalance(out)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "shopctl", "operator identity for the retry budget")
	cmd.Flags().StringVar(&eosID, "eos-id", "", "player EOS id")
	cmd.Flags().StringVar(&pseudo, "pseudo", "", "player in-game name")
	return cmd
}

func newPendingCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List undelivered purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).PendingDeliveries(ctx)
			if err != nil {
				return err
			}
			return renderPending(out)
		},
	}
}

func newFlushCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Re-attempt every undelivered purchase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Flush(ctx)
			if err != nil {
				return err
			}
			return renderFlush(out)
		},
	}
}

func newResetRetriesCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-retries <actor> <subject>",
		Short: "Clear the retry budget for one operator and payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if err := newClient(cfg).ResetRetries(ctx, args[0], args[1]); err != nil {
				return err
			}
			printSuccess("Retry budget cleared.")
			return nil
		},
	}
}
