package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/http-diskcache/pkg/batch"
	"github.com/Sternrassler/http-diskcache/pkg/client"
	"github.com/Sternrassler/http-diskcache/pkg/metrics"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		hint        []string
		concurrency int
		printBody   bool
		showMetrics bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Fetch URLs through the cache and the rate limiter",
		Example: `  apicache fetch https://rebrickable.com/api/v3/lego/sets/10497-1/
  apicache fetch --hint sets --hint 10497-1 --body https://rebrickable.com/api/v3/lego/sets/10497-1/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(hint) > 0 && len(args) > 1 {
				return fmt.Errorf("--hint names a single cache entry and needs exactly one URL")
			}
			if format != "tsv" && format != "table" {
				return fmt.Errorf("unsupported --format %q (tsv, table)", format)
			}

			c, err := client.NewFromConfig(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			requests := make([]batch.Request, len(args))
			for i, url := range args {
				requests[i] = batch.Request{URL: url, Hint: hint}
			}

			fetcher := batch.NewFetcher(c, batch.Config{
				MaxConcurrency: concurrency,
				Timeout:        a.cfg.HTTP.Timeout(),
			})
			results, fetchErr := fetcher.FetchAll(cmd.Context(), requests)

			switch {
			case printBody:
				for _, r := range results {
					if r.Err != nil {
						fmt.Fprintf(a.errOut, "%s: %v\n", r.Request.URL, r.Err)
						continue
					}
					if _, err := a.out.Write(r.Body); err != nil {
						return err
					}
				}
			case format == "table":
				fmt.Fprintln(a.out, renderResults(results))
			default:
				for _, r := range results {
					if r.Err != nil {
						fmt.Fprintf(a.errOut, "%s: %v\n", r.Request.URL, r.Err)
						continue
					}
					fmt.Fprintf(a.out, "%d\t%d\t%s\n", r.StatusCode, len(r.Body), r.Request.URL)
				}
			}

			if showMetrics {
				if err := writeMetrics(a.errOut); err != nil {
					return err
				}
			}
			return fetchErr
		},
	}

	cmd.Flags().StringSliceVar(&hint, "hint", nil, "cache key hint parts (single URL only)")
	cmd.Flags().IntVar(&concurrency, "concurrency", batch.DefaultConfig().MaxConcurrency, "parallel requests")
	cmd.Flags().BoolVar(&printBody, "body", false, "print response bodies instead of a summary")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print metrics to stderr when done")
	cmd.Flags().StringVar(&format, "format", "tsv", "summary format: tsv or table")

	return cmd
}

// renderResults draws one row per request with a totals footer.
func renderResults(results []batch.Result) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Status", "Bytes", "URL", "Error"})

	var bytes, failed int
	for _, r := range results {
		status, errText := "", ""
		if r.Err != nil {
			failed++
			errText = r.Err.Error()
		} else {
			status = strconv.Itoa(r.StatusCode)
		}
		bytes += len(r.Body)
		t.AppendRow(table.Row{r.Index + 1, status, len(r.Body), r.Request.URL, errText})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d failed", failed), bytes, fmt.Sprintf("%d requests", len(results)), ""})

	return t.Render()
}

func writeMetrics(w io.Writer) error {
	fmt.Fprintln(w, "# apicache metrics")
	return metrics.WriteText(w)
}
