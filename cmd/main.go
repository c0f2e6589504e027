package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/pagechat/pkg/config"
)

var (
	cfg        *config.Config
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "pagechat",
	Short:        "Scrape a web page and chat about it",
	Long:         "Renders a page in headless Chrome, keeps its text in memory and answers questions about it with a hosted LLM.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}

		if errs := c.Validate(); len(errs) > 0 {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
			return eris.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
