package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"marketflow/pkg/core/agent"
	"marketflow/pkg/core/docstore"
	"marketflow/pkg/core/drive"
	"marketflow/pkg/core/marketdata"
	"marketflow/pkg/core/research"
	"marketflow/pkg/core/review"
	"marketflow/pkg/core/valuation"
	"marketflow/pkg/core/workflow"
)

var log zerolog.Logger

func main() {
	godotenv.Load()
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marketflow",
		Short: "Equity valuation and analysis workflows",
		Long: `Marketflow builds DCF and customer-based valuation models from
Financial Modeling Prep data, reviews AI-written analyses through a
supervised feedback loop, and publishes reports to Google Drive.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("folder", "", "Google Drive folder ID for uploads")
	rootCmd.PersistentFlags().Bool("upload", false, "Upload reports to Google Drive")

	rootCmd.AddCommand(newDCFCmd())
	rootCmd.AddCommand(newCBCVCmd())
	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newScanCmd())

	return rootCmd
}

// buildOrchestrator wires the collaborators a command needs. The uploader is
// attached only when --upload is set so local runs never touch Drive.
func buildOrchestrator(cmd *cobra.Command, deps workflow.Deps) *workflow.Orchestrator {
	folderID, _ := cmd.Flags().GetString("folder")
	upload, _ := cmd.Flags().GetBool("upload")

	if upload && deps.Uploader == nil {
		deps.Uploader = drive.NewService()
	}
	if !upload {
		deps.Uploader = nil
	}

	return workflow.NewOrchestrator(deps,
		workflow.WithDriveFolder(folderID),
		workflow.WithLogger(log),
		workflow.WithStatus(func(stage, message string) {
			log.Info().Str("stage", stage).Msg(message)
		}),
	)
}

func loadManager() *agent.Manager {
	cfg, err := agent.LoadConfig("config/models.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("failed to load model config, using defaults")
	}
	return agent.NewManager(cfg)
}

func newDCFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dcf [TICKER]",
		Short: "Build a DCF model and write the analysis report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			years, _ := cmd.Flags().GetInt("years")
			terminalGrowth, _ := cmd.Flags().GetFloat64("terminal-growth")

			market := marketdata.NewFMPClient()
			mgr := loadManager()
			analyst := agent.NewDCFAnalyst(mgr.RoleProvider("financial_modeling"), nil)

			opts := valuation.DCFOptions{ProjectionYears: years}
			if cmd.Flags().Changed("terminal-growth") {
				opts.TerminalGrowthRate = &terminalGrowth
			}

			o := buildOrchestrator(cmd, workflow.Deps{Market: market, Analyst: analyst})
			result, err := o.RunDCFAnalysis(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			fmt.Println(result.Report)
			if result.ReportURL != "" {
				fmt.Printf("\nReport uploaded: %s\n", result.ReportURL)
			}
			return nil
		},
	}

	cmd.Flags().Int("years", 5, "Projection years")
	cmd.Flags().Float64("terminal-growth", 0.025, "Terminal growth rate")
	return cmd
}

func newCBCVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cbcv [TICKER]",
		Short: "Build a customer-based valuation model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customers, _ := cmd.Flags().GetInt("customers")
			years, _ := cmd.Flags().GetInt("years")
			tam, _ := cmd.Flags().GetInt("tam")

			inputs := valuation.CBCVInputs{
				TotalCustomers:  customers,
				ProjectionYears: years,
				TAM:             tam,
			}
			if cmd.Flags().Changed("arpu") {
				arpu, _ := cmd.Flags().GetFloat64("arpu")
				inputs.ARPU = &arpu
			}
			if cmd.Flags().Changed("churn") {
				churn, _ := cmd.Flags().GetFloat64("churn")
				inputs.ChurnRate = &churn
			}
			if cmd.Flags().Changed("cac") {
				cac, _ := cmd.Flags().GetFloat64("cac")
				inputs.CAC = &cac
			}

			market := marketdata.NewFMPClient()
			result, err := valuation.BuildCBCVModel(cmd.Context(), market, args[0], inputs)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().Int("customers", 0, "Total current customers (required)")
	cmd.Flags().Float64("arpu", 0, "Annual revenue per user override")
	cmd.Flags().Float64("churn", 0, "Annual churn rate override")
	cmd.Flags().Float64("cac", 0, "Customer acquisition cost override")
	cmd.Flags().Int("years", 10, "Projection years")
	cmd.Flags().Int("tam", 0, "Total addressable market cap on customers (0 = uncapped)")
	cmd.MarkFlagRequired("customers")
	return cmd
}

func newReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review [TICKER]",
		Short: "Run the supervised analyst/reviewer loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			market := marketdata.NewFMPClient()
			mgr := loadManager()
			producer := agent.NewAnalyst(mgr.RoleProvider("financial_modeling"), market, nil)
			reviewer := review.NewBossReviewer(mgr.RoleProvider("boss"), nil)

			o := buildOrchestrator(cmd, workflow.Deps{
				Market:   market,
				Producer: producer,
				Reviewer: reviewer,
			})
			result, err := o.RunAgentsWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(result.FinalAnalysis)
			fmt.Printf("\nApproved: %v after %d iteration(s)\n", result.Approved, result.Iterations)
			if result.ReportURL != "" {
				fmt.Printf("Report uploaded: %s\n", result.ReportURL)
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [COMPANY]",
		Short: "Run the combined industry, financial and synthesis research",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			researcher, err := research.NewAgent(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer researcher.Close()

			o := buildOrchestrator(cmd, workflow.Deps{
				Research: researcher,
				Docs:     docstore.NewGeminiStore(""),
			})
			result, err := o.RunCompanyAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(result.Synthesis)
			for label, url := range map[string]string{
				"Industry analysis":  result.IndustryURL,
				"Financial modeling": result.FinancialURL,
				"Synthesis":          result.SynthesisURL,
			} {
				if url != "" {
					fmt.Printf("%s: %s\n", label, url)
				}
			}
			return nil
		},
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [TICKER...]",
		Short: "Batch DCF valuation over multiple tickers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			market := marketdata.NewFMPClient()
			o := buildOrchestrator(cmd, workflow.Deps{Market: market})

			out, err := o.ScanTickers(cmd.Context(), args, valuation.DCFOptions{})
			if err != nil {
				return err
			}

			tickers := make([]string, 0, len(out.Results))
			for t := range out.Results {
				tickers = append(tickers, t)
			}
			sort.Strings(tickers)

			fmt.Printf("%-8s %12s %12s %10s\n", "TICKER", "PRICE", "INTRINSIC", "UPSIDE")
			for _, t := range tickers {
				r := out.Results[t]
				upside := "n/a"
				if r.Upside != nil {
					upside = fmt.Sprintf("%+.1f%%", *r.Upside)
				}
				fmt.Printf("%-8s %12.2f %12.2f %10s\n", t, r.CurrentPrice, r.IntrinsicValue, upside)
			}
			for t, err := range out.Errors {
				fmt.Printf("%-8s failed: %v\n", t, err)
			}
			return nil
		},
	}
}
