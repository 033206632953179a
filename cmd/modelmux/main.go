package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/modelmux/pkg/adapter"
	"github.com/zen-systems/modelmux/pkg/config"
	"github.com/zen-systems/modelmux/pkg/cost"
	"github.com/zen-systems/modelmux/pkg/evidence"
	"github.com/zen-systems/modelmux/pkg/router"
)

var (
	configFile  string
	debugFlag   bool
	metricsAddr string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modelmux",
		Short: "Route prompts across interchangeable model backends",
		Long: `modelmux sends each prompt to one of several configured backends,
	fails over to the next backend on rate limits and transient server errors,
	and reports which backend served the response.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to router config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable development logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(candidatesCmd())
	rootCmd.AddCommand(modelsCmd())

	return rootCmd
}

func askCmd() *cobra.Command {
	var streamFlag bool
	var systemFlag string
	var maxTokens int
	var evidenceDir string

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a prompt through the router",
		Long: `Sends the prompt to the candidate chosen by the configured strategy.

	Use --stream to print the response as it is generated.
	Use --evidence-dir to write a JSON record of the call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			req := &adapter.Request{Prompt: args[0], System: systemFlag, MaxTokens: maxTokens}
			var result *callResult
			if streamFlag {
				result, err = app.stream(ctx, req, cmd.OutOrStdout())
			} else {
				result, err = app.generate(ctx, req)
				if err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), result.text)
				}
			}
			if evidenceDir != "" {
				if werr := writeEvidence(evidenceDir, req, result, err); werr != nil {
					app.logger.Warn("failed to write evidence", zap.Error(werr))
				}
			}
			if err != nil {
				return err
			}

			printSelection(cmd.ErrOrStderr(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&streamFlag, "stream", false, "stream the response")
	cmd.Flags().StringVar(&systemFlag, "system", "", "system prompt")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum output tokens (0 uses the backend default)")
	cmd.Flags().StringVar(&evidenceDir, "evidence-dir", "", "directory for call records")

	return cmd
}

func batchCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Route one prompt per line from a file or stdin",
		Long: `Reads prompts one per line (use "-" for stdin) and routes them
	concurrently through a single router, so the strategy and counters are
	shared across all prompts. Prints one line per prompt with the serving
	candidate, followed by a cost summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			prompts, err := readPrompts(in)
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			results := make([]*callResult, len(prompts))
			errs := make([]error, len(prompts))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for i, prompt := range prompts {
				g.Go(func() error {
					results[i], errs[i] = app.generate(gctx, &adapter.Request{Prompt: prompt})
					return nil
				})
			}
			_ = g.Wait()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCANDIDATE\tTOKENS\tRESULT")
			failed := 0
			for i := range prompts {
				if errs[i] != nil {
					failed++
					fmt.Fprintf(w, "%d\t-\t-\terror: %v\n", i, errs[i])
					continue
				}
				r := results[i]
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i, r.label(), r.usage().TotalTokens, firstLine(r.text))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			report := app.tracker.Report()
			fmt.Fprintf(cmd.ErrOrStderr(), "%d prompts, %d failed, %d tokens, est. $%.4f\n",
				len(prompts), failed, report.TotalUsage.TotalTokens, report.TotalAmount)
			if failed > 0 {
				return fmt.Errorf("%d of %d prompts failed", failed, len(prompts))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum prompts in flight")

	return cmd
}

func candidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates",
		Short: "Show the router's candidates and shared capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tNAME\tADAPTER\tMODEL")
			for i, c := range app.router.Candidates() {
				name := c.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, name, c.Adapter.Name(), c.Adapter.ModelID())
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "STRATEGY\t%s\n", app.cfg.Router.Strategy)
			fmt.Fprintf(w, "RETRY ON ERROR\t%t\n", app.router.RetryOnError())
			if err := w.Flush(); err != nil {
				return err
			}

			caps, err := app.router.SupportedURLs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to resolve capabilities: %w", err)
			}
			fmt.Fprintln(out)
			if len(caps) == 0 {
				fmt.Fprintln(out, "No URL capabilities shared by every candidate.")
				return nil
			}
			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tPATTERNS")
			categories := caps.Categories()
			sort.Strings(categories)
			for _, category := range categories {
				patterns := make([]string, len(caps[category]))
				for i, p := range caps[category] {
					patterns[i] = p.String()
				}
				fmt.Fprintf(w, "%s\t%s\n", category, formatList(patterns))
			}
			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	var resolveFlag bool
	var validateFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available adapters, models, and aliases",
		Long: `Lists adapters and their available models.

	Use --resolve to show aliases and what they resolve to.
	Use --validate to check that every model in config.yaml resolves to a known model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, aliases, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if resolveFlag {
				return showAliases(out, aliases)
			}
			if validateFlag {
				return validateAliases(out, cmd.ErrOrStderr(), cfg, aliases)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODELS\tSTATUS")

			providers := aliases.ListProviders()
			if len(providers) == 0 {
				providers = adapter.Kinds
			}
			for _, provider := range providers {
				models := formatList(aliases.GetProviderModels(provider))
				status := "no key"
				if cfg.HasAdapter(provider) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", provider, models, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&resolveFlag, "resolve", false, "show aliases and what they resolve to")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "check that models in config.yaml are known")

	return cmd
}

func showAliases(out io.Writer, aliases *config.ModelAliases) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALIAS\tMODEL\tPROVIDER")

	aliasMap := aliases.ListAliases()
	var names []string
	for name := range aliasMap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, alias := range names {
		model := aliasMap[alias]
		fmt.Fprintf(w, "%s\t%s\t%s\n", alias, model, aliases.GetProviderForModel(model))
	}
	return w.Flush()
}

func validateAliases(out, errOut io.Writer, cfg *config.Config, aliases *config.ModelAliases) error {
	errs := aliases.ValidateRouterConfig(cfg.Router)
	if len(errs) == 0 {
		fmt.Fprintln(out, "All models in the router config are valid.")
		return nil
	}

	fmt.Fprintf(errOut, "Found %d validation errors:\n", len(errs))
	for _, err := range errs {
		fmt.Fprintf(errOut, "  - %s\n", err)
	}
	return fmt.Errorf("validation failed")
}

func printSelection(out io.Writer, r *callResult) {
	if r == nil || !r.selected {
		return
	}
	line := fmt.Sprintf("Served by %s (%s/%s, candidate %d)",
		r.label(), r.selection.Provider, r.selection.ModelID, r.selection.SelectedIndex)
	if r.cost != nil && r.cost.Priced {
		line += fmt.Sprintf(", est. $%.4f", r.cost.Cost.Amount)
	}
	fmt.Fprintln(out, line)
}

func writeEvidence(dir string, req *adapter.Request, result *callResult, callErr error) error {
	writer, err := evidence.NewWriter(dir)
	if err != nil {
		return err
	}

	record := evidence.CallRecord{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Mode:       "generate",
		PromptHash: evidence.Hash([]byte(req.Prompt)),
	}
	if callErr != nil {
		record.Error = callErr.Error()
	}
	if result != nil {
		record.Mode = result.mode
		record.DurationMillis = result.duration.Milliseconds()
		record.FinishReason = result.finishReason
		record.Usage = result.usageReport
		record.Cost = result.cost
		if result.selected {
			sel := result.selection
			record.Selection = &sel
		}
		if result.text != "" {
			hash, err := writer.WriteBlob([]byte(result.text))
			if err != nil {
				return err
			}
			record.OutputHash = hash
		}
	}
	_, err = writer.WriteCall(record)
	return err
}

func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts, scanner.Err()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	const max = 60
	if len([]rune(s)) > max {
		s = string([]rune(s)[:max]) + "…"
	}
	return s
}

func formatList(items []string) string {
	return strings.Join(items, ", ")
}

// callResult is what the CLI reports about one routed call.
type callResult struct {
	mode         string
	text         string
	finishReason string
	usageReport  *adapter.Usage
	selection    router.SelectionMetadata
	selected     bool
	cost         *cost.CallReport
	duration     time.Duration
}

func (r *callResult) label() string {
	if r == nil || !r.selected {
		return "-"
	}
	if r.selection.SelectedName != "" {
		return r.selection.SelectedName
	}
	return r.selection.Provider + ":" + r.selection.ModelID
}

func (r *callResult) usage() adapter.Usage {
	if r == nil || r.usageReport == nil {
		return adapter.Usage{}
	}
	return *r.usageReport
}
