package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/pantry/internal/dashboard"
	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "PANTRY"

	cfgKeyProvider      = "provider"
	cfgKeyDataDir       = "data_dir"
	cfgKeyLatency       = "latency"
	cfgKeyRemoteBaseURL = "remote.base_url"
	cfgKeyRemoteToken   = "remote.token"
	cfgKeyRemoteTimeout = "remote.timeout"
	cfgKeySQLitePath    = "sqlite.path"
	cfgKeySessionUser   = "session.user"
	cfgKeyServeAddr     = "serve.addr"
	cfgKeyServeToken    = "serve.token"

	defaultProvider  = types.ProviderSQLite
	defaultServeAddr = ":1337"
)

// envKeys are the keys that PANTRY_* variables may override. data_dir is
// resolved by paths.ResolveDataDir so that config.yaml keeps precedence over
// PANTRY_DATA_DIR.
var envKeys = []string{
	cfgKeyProvider,
	cfgKeyLatency,
	cfgKeyRemoteBaseURL,
	cfgKeyRemoteToken,
	cfgKeyRemoteTimeout,
	cfgKeySQLitePath,
	cfgKeySessionUser,
	cfgKeyServeAddr,
	cfgKeyServeToken,
}

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Pantry CLI configuration
# Every key may also be set through a PANTRY_ environment variable,
# e.g. PANTRY_PROVIDER or PANTRY_REMOTE_BASE_URL.

# Data provider: memory, sqlite or remote
provider: sqlite

# Simulated latency per call (e.g. 400ms); 0 keeps the provider default
latency: 0

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

remote:
  base_url: ""
  token: ""
  timeout: 30s

sqlite:
  # Defaults to pantry.db inside the data directory
  path: ""

session:
  user: u_1

serve:
  addr: ":1337"
  token: ""
`

// settings is everything a command needs from flags, config.yaml and the
// environment.
type settings struct {
	ConfigDir  string       `json:"config_dir"`
	Driver     types.Config `json:"driver"`
	User       string       `json:"user"`
	ServeAddr  string       `json:"serve_addr"`
	ServeToken string       `json:"-"`
}

// loadSettings resolves the config directory, reads config.yaml and applies
// flag overrides.
func loadSettings() (settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	s := settings{
		ConfigDir: configDir,
		Driver: types.Config{
			Provider: v.GetString(cfgKeyProvider),
			DataDir:  dataDir,
			Latency:  v.GetDuration(cfgKeyLatency),
			Remote: types.RemoteConfig{
				BaseURL: v.GetString(cfgKeyRemoteBaseURL),
				Token:   v.GetString(cfgKeyRemoteToken),
				Timeout: v.GetDuration(cfgKeyRemoteTimeout),
			},
			SQLite: types.SQLiteConfig{Path: v.GetString(cfgKeySQLitePath)},
		},
		User:       v.GetString(cfgKeySessionUser),
		ServeAddr:  v.GetString(cfgKeyServeAddr),
		ServeToken: v.GetString(cfgKeyServeToken),
	}
	if flags.provider != "" {
		s.Driver.Provider = flags.provider
	}
	if flags.user != "" {
		s.User = flags.user
	}
	return s, nil
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyProvider, defaultProvider)
	v.SetDefault(cfgKeyLatency, time.Duration(0))
	v.SetDefault(cfgKeySessionUser, dashboard.DefaultUser)
	v.SetDefault(cfgKeyServeAddr, defaultServeAddr)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := current.settings
			if s.Driver.Remote.Token != "" {
				s.Driver.Remote.Token = "********"
			}
			if flags.jsonMode {
				out, err := json.MarshalIndent(s, "", "  ")
				if err != nil {
					return sysError("marshal config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "config file: %s\n", filepath.Join(s.ConfigDir, configFileExt))
			fmt.Fprintf(w, "provider:    %s\n", s.Driver.Provider)
			fmt.Fprintf(w, "data dir:    %s\n", s.Driver.DataDir)
			fmt.Fprintf(w, "latency:     %s\n", s.Driver.Latency)
			if s.Driver.Provider == types.ProviderSQLite {
				fmt.Fprintf(w, "database:    %s\n", paths.DatabaseFile(s.Driver.DataDir, s.Driver.SQLite.Path))
			}
			if s.Driver.Remote.BaseURL != "" {
				fmt.Fprintf(w, "remote url:  %s\n", s.Driver.Remote.BaseURL)
			}
			fmt.Fprintf(w, "user:        %s\n", s.User)
			fmt.Fprintf(w, "serve addr:  %s\n", s.ServeAddr)
			return nil
		},
	}
}
