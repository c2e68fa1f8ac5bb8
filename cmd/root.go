package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wpembed/toolscope/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `  _              _
 | |_ ___   ___ | |___  ___ ___  _ __   ___
 | __/ _ \ / _ \| / __|/ __/ _ \| '_ \ / _ \
 | || (_) | (_) | \__ \ (_| (_) | |_) |  __/
  \__\___/ \___/|_|___/\___\___/| .__/ \___|
                                |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolscope",
	Short: "An assistant that embeds interactive tools into your WordPress posts.",
	Long: LOGO + `toolscope connects to a WordPress site, scores posts for interactive-tool
opportunity with a generative-AI provider (Gemini, OpenAI, Anthropic, or
OpenRouter), and generates self-contained HTML tools you can preview locally
and publish straight into your posts.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.toolscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("provider", "p", "", "AI provider: gemini, openai, anthropic, openrouter (default from config)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A local .env file can carry the API keys; missing is fine.
	godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".toolscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.toolscope.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("provider", "gemini")
	viper.SetDefault("wordpress.url", "")
	viper.SetDefault("wordpress.username", "")
	viper.SetDefault("wordpress.app_password", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.fast_model", "")
	viper.SetDefault("gemini.pro_model", "")
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "")
	viper.SetDefault("openrouter.api_key", "")
	viper.SetDefault("openrouter.model", "")
	viper.SetDefault("cache.path", "")
	viper.SetDefault("cache.ttl_days", 7)

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
