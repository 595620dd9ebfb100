package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/factlens/internal/model"
)

// version is overridden at build time with -ldflags "-X"
var version = "0.1.0"

const envPrefix = "FACTLENS"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factlens",
	Short: "factlens - autonomous web research into categorized, sourced findings",
	Long: `factlens investigates a question on the open web.

A planning model decides what to search for next, sources are discovered and
ranked by authority, pages are fetched and chunked, and relevant chunks are
mined for findings sorted into a fixed set of categories. The result is a
deduplicated report in which every item points back at the page it came from.

factlens collects evidence; it does not decide what is true.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "factlens v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.factlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FACTLENS_RESEARCH_MAX_TOOL_ITERATIONS maps to research.max_tool_iterations
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".factlens"), nil
}

// setDefaults registers every key of defaults with v so nested keys resolve
// from the environment even when no config file sets them
func setDefaults(v *viper.Viper, defaults *model.Config) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setTree(v, "", tree)
	return nil
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok && len(sub) > 0 {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// decodeConfig resolves v into a configuration and applies credentials from
// getenv. Every key must already be registered with setDefaults.
func decodeConfig(v *viper.Viper, getenv func(string) string) (*model.Config, error) {
	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	applyCredentials(cfg, getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyCredentials reads API keys and endpoints that never live in the config file
func applyCredentials(cfg *model.Config, getenv func(string) string) {
	cfg.LLM.OpenAIKey = getenv("OPENAI_API_KEY")
	cfg.LLM.AnthropicKey = getenv("ANTHROPIC_API_KEY")
	cfg.LLM.GeminiKey = getenv("GEMINI_API_KEY")
	if cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = getenv("GOOGLE_API_KEY")
	}
	if u := getenv("OLLAMA_BASE_URL"); u != "" {
		cfg.LLM.OllamaBaseURL = u
	}
	if u := getenv("OPENAI_BASE_URL"); u != "" && cfg.LLM.OpenAIBaseURL == "" {
		cfg.LLM.OpenAIBaseURL = u
	}
	cfg.Search.TavilyKey = getenv("TAVILY_API_KEY")
}

func loadConfig() (*model.Config, error) {
	return decodeConfig(viper.GetViper(), os.Getenv)
}
