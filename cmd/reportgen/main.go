package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/huhu-tiger/reportgen/config"
	"github.com/huhu-tiger/reportgen/internal/workflow"
	"github.com/huhu-tiger/reportgen/models"
)

func main() {
	var root = &cobra.Command{Use: "reportgen"}

	root.AddCommand(reportCMD(), modelsCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func reportCMD() *cobra.Command {
	var (
		outPath  string
		noCache  bool
		keywords int
		fanout   int
	)
	var report = &cobra.Command{
		Use:   "report <topic>",
		Short: "Research a topic and write a Markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "[REPORTGEN] ", log.LstdFlags)

			wf, err := workflow.New(cfg, logger, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := workflow.DefaultOptions()
			opts.UseCache = !noCache
			opts.MaxKeywordsUsed = keywords
			opts.FanOut = fanout

			var final string
			for ev := range wf.Run(ctx, args[0], opts) {
				switch ev.Kind {
				case workflow.EventPlanReady:
					logger.Printf("keywords: %s", strings.Join(ev.Plan.Keywords, ", "))
				case workflow.EventCorpusProgress:
					if cfg.General.Verbose() {
						logger.Printf("keyword %q: %d news, %d images",
							ev.Progress.Keyword, ev.Progress.NewsCount, ev.Progress.ImageCount)
					}
				case workflow.EventReportDelta:
					fmt.Fprint(deltaSink(outPath), ev.Delta)
				case workflow.EventReportReady:
					if ev.FromCache {
						logger.Printf("served from cache")
					}
					final = ev.Report
				case workflow.EventRunError:
					return ev.Err
				case workflow.EventRunCancelled:
					return fmt.Errorf("run cancelled")
				}
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(final), 0o644); err != nil {
					return err
				}
				logger.Printf("report written to %s", outPath)
				return nil
			}
			fmt.Print(final)
			return nil
		},
	}
	report.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
	report.Flags().BoolVar(&noCache, "no-cache", false, "skip the report cache")
	report.Flags().IntVar(&keywords, "keywords", 1, fmt.Sprintf("planned keywords to search (1-%d)", models.MaxKeywords))
	report.Flags().IntVar(&fanout, "fanout", 5, "concurrent keyword searches")

	return report
}

// deltaSink picks where streamed report fragments go. With --out the report
// lands in a file, so stdout carries the live stream; without it the final
// report owns stdout and the stream goes to stderr.
func deltaSink(outPath string) io.Writer {
	if outPath != "" {
		return os.Stdout
	}
	return os.Stderr
}

func modelsCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the configured model endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			for _, name := range config.LogicalModels {
				m, ok := cfg.LLM.Models[name]
				if !ok {
					fmt.Printf("%-8s (not configured)\n", name)
					continue
				}
				fmt.Printf("%-8s %s @ %s\n", name, m.Model, m.BaseURL)
			}
			return nil
		},
	}
}
