package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/propertypost/internal/store"
)

func newBalanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Inspect or correct credit balances",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <email>",
		Short: "Print the credit balance for an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			credits, err := store.NewBalanceStore(db).Get(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				credits, err = 0, nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d credits\n", args[0], credits)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <email> <credits>",
		Short: "Overwrite the credit balance for an email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credits, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("credits must be an integer: %q", args[1])
			}
			if credits < 0 {
				return fmt.Errorf("credits must not be negative: %d", credits)
			}

			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.NewBalanceStore(db).Upsert(cmd.Context(), args[0], credits); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d credits\n", args[0], credits)
			return nil
		},
	})

	return cmd
}
