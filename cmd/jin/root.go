package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hrayleung/jin-llm/config"
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/media"
	"github.com/hrayleung/jin-llm/llm/providers"
)

type adapterFactory func(family llm.ProviderFamily, apiKey string, cfg providers.Config) (llm.Adapter, error)

// app carries what every command needs once flags and config are loaded.
type app struct {
	out, errOut io.Writer

	configPath string
	logLevel   string
	provider   string

	settings config.Settings
	logger   *slog.Logger
	// level follows log.level in the config file while a command runs,
	// unless --log-level pinned it.
	level slog.LevelVar

	newAdapter adapterFactory
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	return newRootCmdWith(out, errOut, providers.New)
}

func newRootCmdWith(out, errOut io.Writer, newAdapter adapterFactory) *cobra.Command {
	a := &app{out: out, errOut: errOut, newAdapter: newAdapter}

	root := &cobra.Command{
		Use:           "jin",
		Short:         "Talk to LLM providers through one canonical interface",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", os.Getenv("JIN_CONFIG"), "config file (yaml, json or toml)")
	pf.StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	pf.StringVarP(&a.provider, "provider", "p", "", "provider family (defaults to default_provider)")

	root.AddCommand(
		newSendCmd(a),
		newModelsCmd(a),
		newCapsCmd(a),
		newDraftCmd(a),
		newValidateKeyCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.LoadSettings(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.settings = cfg.Get()

	level := a.settings.Log
	if a.logLevel != "" {
		level.Level = a.logLevel
	}
	a.level.Set(level.SlogLevel())
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: &a.level}))
	cfg.OnChange(a.reload)
	return nil
}

// reload applies a config file edit to the running command. Adapters are
// already built by then, so only the log level takes effect.
func (a *app) reload(old, cur config.Settings) {
	if a.logLevel != "" || old.Log == cur.Log {
		return
	}
	a.level.Set(cur.Log.SlogLevel())
	a.logger.Info("log level reloaded", "path", a.configPath, "level", a.level.Level())
}

// family resolves --provider, falling back to default_provider.
func (a *app) family() (llm.ProviderFamily, error) {
	name := a.provider
	if name == "" {
		name = a.settings.DefaultProvider
	}
	f, ok := llm.ParseFamily(name)
	if !ok {
		return "", fmt.Errorf("unknown provider %q", name)
	}
	return f, nil
}

// adapter builds the adapter for family from the loaded settings. key
// replaces the configured API key when set.
func (a *app) adapter(family llm.ProviderFamily, key string) (llm.Adapter, error) {
	ps := a.settings.Provider(family)
	if key == "" {
		key = ps.APIKey
	}
	return a.newAdapter(family, key, providers.Config{
		BaseURL:      ps.BaseURL,
		Logger:       a.logger,
		MediaStore:   media.NewStore(a.settings.Media.Dir),
		PollInterval: a.settings.Media.PollInterval,
		JobTimeout:   a.settings.Media.Timeout,
	})
}

// model picks --model, falling back to the provider's configured model.
func (a *app) model(family llm.ProviderFamily, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if m := a.settings.Provider(family).Model; m != "" {
		return m, nil
	}
	return "", fmt.Errorf("no model: pass --model or set providers.%s.model", family)
}
