package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/http-diskcache/pkg/client"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect KEY",
		Short: "Show the cached headers and body size stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Cache.Enabled {
				return errors.New("cache is disabled")
			}

			c, err := client.NewFromConfig(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			manager := c.Cache()
			entry, ok, err := manager.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no cache entry for key %q", args[0])
			}

			fmt.Fprintf(a.out, "key:     %s\n", entry.Key)
			fmt.Fprintf(a.out, "backend: %s\n", manager.Backend().Name())
			fmt.Fprintf(a.out, "body:    %d bytes\n", len(entry.Body))

			names := make([]string, 0, len(entry.Header))
			for name := range entry.Header {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(a.out, "%s: %s\n", name, entry.Header.Get(name))
			}
			return nil
		},
	}
}
