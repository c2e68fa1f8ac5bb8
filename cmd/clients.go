package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/wpembed/toolscope/pkg/providers"
	"github.com/wpembed/toolscope/pkg/providers/anthropic"
	"github.com/wpembed/toolscope/pkg/providers/gemini"
	"github.com/wpembed/toolscope/pkg/providers/openai"
	"github.com/wpembed/toolscope/pkg/providers/openrouter"
	"github.com/wpembed/toolscope/pkg/storage"
	"github.com/wpembed/toolscope/pkg/wordpress"
)

// envKeyReplacer maps config keys to env vars: openai.api_key -> OPENAI_API_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// newProvider builds the configured AI provider. The --provider flag wins
// over the config file.
func newProvider(flagProvider string) (providers.Provider, error) {
	name := strings.TrimSpace(flagProvider)
	if name == "" {
		name = viper.GetString("provider")
	}

	switch strings.ToLower(name) {
	case "gemini":
		return gemini.New(gemini.Config{
			APIKey:    viper.GetString("gemini.api_key"),
			FastModel: viper.GetString("gemini.fast_model"),
			ProModel:  viper.GetString("gemini.pro_model"),
		})
	case "openai":
		return openai.New(openai.Config{
			APIKey: viper.GetString("openai.api_key"),
			Model:  viper.GetString("openai.model"),
		})
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey: viper.GetString("anthropic.api_key"),
			Model:  viper.GetString("anthropic.model"),
		})
	case "openrouter":
		return openrouter.New(openrouter.Config{
			APIKey: viper.GetString("openrouter.api_key"),
			Model:  viper.GetString("openrouter.model"),
		})
	}
	return nil, fmt.Errorf("unknown provider %q (available: gemini, openai, anthropic, openrouter)", name)
}

func newWordPressClient() (*wordpress.Client, error) {
	url := viper.GetString("wordpress.url")
	user := viper.GetString("wordpress.username")
	pass := viper.GetString("wordpress.app_password")
	if url == "" || user == "" || pass == "" {
		return nil, fmt.Errorf("wordpress.url, wordpress.username and wordpress.app_password must be set in the config (see ~/.toolscope.yaml)")
	}
	return wordpress.NewClient(url, user, pass), nil
}

func openCache() (*storage.Store, error) {
	path := viper.GetString("cache.path")
	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".toolscope", "scores.sqlite")
	}
	ttl := time.Duration(viper.GetInt("cache.ttl_days")) * 24 * time.Hour
	return storage.Open(path, ttl)
}
