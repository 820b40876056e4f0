package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the work categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()
			categories, err := a.client.ListCategories(ctx)
			if err != nil {
				return err
			}
			for _, c := range categories {
				fmt.Printf("%s  %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}
