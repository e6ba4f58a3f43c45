package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/http-diskcache/pkg/cache"
)

func newKeyCmd(a *app) *cobra.Command {
	var hint []string

	cmd := &cobra.Command{
		Use:   "key METHOD URL",
		Short: "Print the cache key derived for a request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(strings.ToUpper(args[0]), args[1], nil)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			ctx := context.Background()
			if len(hint) > 0 {
				ctx = cache.WithHint(ctx, hint...)
			}
			fmt.Fprintln(a.out, cache.KeyFor(ctx, req))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&hint, "hint", nil, "cache key hint parts")
	return cmd
}
