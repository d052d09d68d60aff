package main

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rwkvgo/pkg/rwkv"
)

// resolveThreads mirrors rwkv_cpp_model.py's default: an unset thread
// count (0) becomes half the available CPUs, at least one.
func resolveThreads(n int) int {
	if n > 0 {
		return n
	}
	if auto := runtime.NumCPU() / 2; auto > 1 {
		return auto
	}
	return 1
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	cfg := config{Threads: 0, LogLevel: "info"}

	root := &cobra.Command{
		Use:           "rwkv",
		Short:         "Single-token streaming inference over RWKV model files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fileCfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if fileCfg.Threads != 0 && !cmd.Flags().Changed("threads") {
				cfg.Threads = fileCfg.Threads
			}
			if fileCfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
				cfg.LogLevel = fileCfg.LogLevel
			}
			cfg.PrintErrors = cfg.PrintErrors || fileCfg.PrintErrors

			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
			}
			log.Logger = log.Logger.Level(level)
			rwkv.SetPrintErrors(cfg.PrintErrors)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().IntVar(&cfg.Threads, "threads", cfg.Threads, "worker goroutines for matrix-vector products")
	root.PersistentFlags().BoolVar(&cfg.PrintErrors, "print-errors", false, "log model load failures as they occur")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "zerolog level: debug|info|warn|error")

	root.AddCommand(buildInfoCmd(), buildEvalCmd(&cfg), buildQuantizeCmd())
	return root
}

func buildInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print detected CPU features",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(rwkv.SystemInfoString())
			return nil
		},
	}
}

func buildEvalCmd(cfg *config) *cobra.Command {
	var modelPath, promptText string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Stream a prompt through a model and print the final logits' top token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				return fmt.Errorf("--model is required")
			}
			session, err := rwkv.LoadModel(modelPath, resolveThreads(cfg.Threads))
			if err != nil {
				return err
			}
			defer session.Close()

			state := make([]float32, session.StateElementCount())
			logits := make([]float32, session.LogitsElementCount())

			var in []float32
			for i := 0; i < len(promptText); i++ {
				if err := session.Eval(uint32(promptText[i]), in, state, logits); err != nil {
					return fmt.Errorf("eval byte %d (%q): %w", i, promptText[i], err)
				}
				in = state
			}

			best, bestLogit := 0, float32(math.Inf(-1))
			for i, v := range logits {
				if v > bestLogit {
					best, bestLogit = i, v
				}
			}
			fmt.Printf("tokens=%d top_token=%d top_logit=%g\n", len(promptText), best, bestLogit)
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "path to a model file")
	cmd.Flags().StringVar(&promptText, "prompt", "", "prompt text, evaluated one byte per token")
	return cmd
}

func buildQuantizeCmd() *cobra.Command {
	var input, output, target string
	cmd := &cobra.Command{
		Use:   "quantize",
		Short: "Requantize a model file's eligible tensors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" {
				return fmt.Errorf("--in and --out are required")
			}
			report, err := rwkv.QuantizeModelFile(input, output, target)
			if err != nil {
				return err
			}
			fmt.Printf("quantized=%d passthrough=%d total_elements=%d\n",
				report.QuantizedCount, report.PassthroughCount, report.TotalElements)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "in", "", "source model file")
	cmd.Flags().StringVar(&output, "out", "", "destination model file")
	cmd.Flags().StringVar(&target, "type", "Q4_0", "target type: F32, Q4_0, Q4_1, Q5_0, Q5_1, Q8_0")
	return cmd
}
