// Command livenessctl runs the selfie liveness gate against image files, the
// same way the punch flow does, and prints one verdict per file.
//
//	livenessctl analyze --platform web selfie1.jpg selfie2.png
//
// It exits with status 1 when any file is rejected or unreadable.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
	livenessService "github.com/cmlabs-hris/hris-mobile-bff/internal/service/liveness"
	"github.com/spf13/cobra"
)

var errRejected = errors.New("one or more images were rejected")

type result struct {
	File     string `json:"file"`
	Strategy string `json:"strategy,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}

type analyzeOptions struct {
	platform     string
	enforcePixel bool
	asJSON       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "livenessctl",
		Short:         "Inspect selfies with the attendance liveness gate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze image...",
		Short: "Run the liveness strategy of a platform against image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.OutOrStdout(), opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.platform, "platform", "p", string(liveness.PlatformWeb), "capture platform: web, android or ios")
	cmd.Flags().BoolVar(&opts.enforcePixel, "enforce-pixel", false, "run pixel heuristics for native platforms too")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON lines")
	return cmd
}

func runAnalyze(out io.Writer, opts analyzeOptions, paths []string) error {
	selector := livenessService.NewPlatformSelector(
		livenessService.NewPixelHeuristicStrategy(),
		livenessService.NewTrustedCaptureStrategy(),
		opts.enforcePixel,
	)
	strategy, err := selector.For(liveness.Platform(opts.platform))
	if err != nil {
		return fmt.Errorf("platform %q: %w", opts.platform, err)
	}

	results := make([]result, 0, len(paths))
	failed := false
	for _, path := range paths {
		res := analyzeFile(strategy, path)
		if !res.Accepted {
			failed = true
		}
		results = append(results, res)
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
		}
	} else if err := printTable(out, results); err != nil {
		return err
	}

	if failed {
		return errRejected
	}
	return nil
}

func analyzeFile(strategy liveness.Strategy, path string) result {
	res := result{File: path, Strategy: strategy.Name()}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	img, err := livenessService.Decode(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	verdict := strategy.Analyze(img)
	res.Width, res.Height = img.Width, img.Height
	res.Accepted = verdict.Accepted
	res.Reason = verdict.RejectionReason
	return res
}

func printTable(out io.Writer, results []result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTRATEGY\tSIZE\tVERDICT\tREASON")
	for _, res := range results {
		verdict := "rejected"
		if res.Accepted {
			verdict = "accepted"
		}
		reason := res.Reason
		if res.Error != "" {
			verdict, reason = "error", res.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%s\n", res.File, res.Strategy, res.Width, res.Height, verdict, reason)
	}
	return w.Flush()
}
