package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dialogue-tutor/utils"
	"dialogue-tutor/work-flows/client"
	"dialogue-tutor/work-flows/gateway"
	"dialogue-tutor/work-flows/managers"
	"dialogue-tutor/work-flows/models"
	"dialogue-tutor/work-flows/services"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var (
	configPath string
	apiURL     string
	debug      bool
)

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tutor",
		Short: "Practice Mandarin dialogues with a tutoring service",
		Long: `tutor runs scenario-based Mandarin conversations against a tutoring
service. Pick a scenario, reply in Chinese, and ask for a review at the end.`,
		SilenceUsage: true,
		RunE:         runChat,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/chinese-tutor/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "tutoring service base URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Line-mode dialogue in the terminal",
			RunE:  runChat,
		},
		&cobra.Command{
			Use:   "tui",
			Short: "Full-screen dialogue",
			RunE:  runTUI,
		},
		&cobra.Command{
			Use:   "scenarios",
			Short: "List available scenarios",
			RunE:  runScenarios,
		},
		newConfigCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "tutor %s\n", version)
			},
		},
	)

	return rootCmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				cyan := color.New(color.FgCyan)
				cyan.Fprintf(cmd.OutOrStdout(), "# %s\n", resolvedConfigPath())
				fmt.Fprintf(cmd.OutOrStdout(), "api_base_url: %s\n", cfg.APIBaseURL)
				fmt.Fprintf(cmd.OutOrStdout(), "default_scenario: %s\n", cfg.DefaultScenario)
				fmt.Fprintf(cmd.OutOrStdout(), "show_pinyin: %t\n", cfg.ShowPinyin)
				fmt.Fprintf(cmd.OutOrStdout(), "show_english: %t\n", cfg.ShowEnglish)
				fmt.Fprintf(cmd.OutOrStdout(), "features.per_turn_feedback: %t\n", cfg.Features.PerTurnFeedback)
				fmt.Fprintf(cmd.OutOrStdout(), "features.end_of_session_review: %t\n", cfg.Features.EndOfSessionReview)
				fmt.Fprintf(cmd.OutOrStdout(), "log_file: %s\n", cfg.LogFile)
				fmt.Fprintf(cmd.OutOrStdout(), "log_level: %s\n", cfg.LogLevel)
				fmt.Fprintf(cmd.OutOrStdout(), "export_dir: %s\n", cfg.ExportDir)
				fmt.Fprintf(cmd.OutOrStdout(), "gloss_target: %s\n", cfg.GlossTarget)
				return nil
			},
		},
		&cobra.Command{
			Use:       "set <key> <value>",
			Short:     "Change one setting and save it",
			Args:      cobra.ExactArgs(2),
			ValidArgs: utils.ConfigKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := resolvedConfigPath()
				cfg, err := utils.LoadFileConfig(path)
				if err != nil {
					return err
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := utils.SaveAppConfig(path, cfg); err != nil {
					return err
				}
				utils.PrintSuccess(fmt.Sprintf("%s = %s", args[0], args[1]))
				return nil
			},
		},
	)

	return configCmd
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return utils.DefaultConfigPath()
}

func loadConfig() (*utils.AppConfig, error) {
	cfg, err := utils.LoadAppConfig(resolvedConfigPath())
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	return cfg, nil
}

// session bundles what both front-ends need.
type session struct {
	cfg        *utils.AppConfig
	logger     *zap.Logger
	controller *managers.DialogueController
	scenarios  []managers.ScenarioOption
}

func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(cfg.LogFile, cfg.LogLevel, debug)
	if err != nil {
		return nil, err
	}

	apiClient := client.NewTutorClient(cfg.APIBaseURL)
	controller := managers.NewDialogueController(apiClient,
		managers.WithLogger(logger),
		managers.WithCapabilities(models.Capabilities{
			PerTurnFeedback:    cfg.Features.PerTurnFeedback,
			EndOfSessionReview: cfg.Features.EndOfSessionReview,
		}),
		managers.WithDisplayOptions(models.DisplayOptions{
			ShowPinyin:  cfg.ShowPinyin,
			ShowEnglish: cfg.ShowEnglish,
		}),
		managers.WithScenario(models.Scenario(cfg.DefaultScenario)),
	)

	logger.Debug("session configured",
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.Bool("per_turn_feedback", cfg.Features.PerTurnFeedback),
		zap.Bool("end_of_session_review", cfg.Features.EndOfSessionReview))

	return &session{
		cfg:        cfg,
		logger:     logger,
		controller: controller,
		scenarios:  scenarioOptions(cfg.Scenarios),
	}, nil
}

func scenarioOptions(configured []utils.ScenarioConfig) []managers.ScenarioOption {
	if len(configured) == 0 {
		return managers.DefaultScenarioOptions()
	}
	options := make([]managers.ScenarioOption, 0, len(configured))
	for _, sc := range configured {
		label := sc.Label
		if label == "" {
			label = sc.ID
		}
		options = append(options, managers.ScenarioOption{
			ID:          models.Scenario(sc.ID),
			Label:       label,
			Description: sc.Description,
		})
	}
	return options
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	chat := gateway.NewConsoleChat(s.controller,
		gateway.WithScenarios(s.scenarios),
		gateway.WithExportDir(s.cfg.ExportDir),
		gateway.WithTranslator(services.NewTranslator("zh-CN", s.cfg.GlossTarget)),
		gateway.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
	)
	if err := chat.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	return gateway.RunTUI(ctx, s.controller, s.scenarios)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	white := color.New(color.FgWhite)
	for _, opt := range scenarioOptions(cfg.Scenarios) {
		marker := " "
		if string(opt.ID) == cfg.DefaultScenario {
			marker = "*"
		}
		green.Fprintf(cmd.OutOrStdout(), "%s %-12s", marker, opt.ID)
		white.Fprintf(cmd.OutOrStdout(), " %s", opt.Label)
		if opt.Description != "" {
			white.Fprintf(cmd.OutOrStdout(), " - %s", opt.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
