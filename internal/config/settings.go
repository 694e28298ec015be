package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/1broseidon/yctrl/internal/runtimepath"
)

// Settings are the daemon's process settings. Unlike RuntimeConfig they are
// fixed for the life of the process.
type Settings struct {
	Socket      string          `mapstructure:"socket"`
	Manager     ManagerSettings `mapstructure:"manager"`
	ConnTimeout time.Duration   `mapstructure:"conn_timeout"`
	SettleDelay time.Duration   `mapstructure:"settle_delay"`
	Log         LogSettings     `mapstructure:"log"`
	Seed        string          `mapstructure:"seed"`
	WatchSeed   bool            `mapstructure:"watch_seed"`
}

// ManagerSettings locate and bound calls to the yabai socket.
type ManagerSettings struct {
	// Socket overrides the derived /tmp/<namespace>_<user>.socket path.
	Socket     string        `mapstructure:"socket"`
	Namespace  string        `mapstructure:"namespace"`
	User       string        `mapstructure:"user"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`

	// ReconcileInterval is how often yabai is probed for a restart; zero
	// disables probing.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

// LoadSettings reads settings from path (optional) and YCTRL_* environment
// variables, e.g. YCTRL_MANAGER_TIMEOUT=5s.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("settings")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/yctrl")
	}

	v.SetEnvPrefix("YCTRL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading settings file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error parsing settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("socket", runtimepath.ControlSocketPath())

	v.SetDefault("manager.socket", "")
	v.SetDefault("manager.namespace", runtimepath.DefaultManagerNamespace)
	v.SetDefault("manager.user", "")
	v.SetDefault("manager.timeout", 2*time.Second)
	v.SetDefault("manager.max_retries", 8)
	v.SetDefault("manager.reconcile_interval", 10*time.Second)

	v.SetDefault("conn_timeout", 30*time.Second)
	v.SetDefault("settle_delay", 150*time.Millisecond)
	v.SetDefault("log.level", "info")

	seed, err := DefaultSeedPath()
	if err != nil {
		seed = ""
	}
	v.SetDefault("seed", seed)
	v.SetDefault("watch_seed", true)
}

// Validate checks settings after decoding.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Socket) == "" {
		return &ValidationError{Path: "socket", Err: fmt.Errorf("socket must not be empty")}
	}
	if s.Manager.Timeout <= 0 {
		return &ValidationError{Path: "manager.timeout", Err: fmt.Errorf("timeout must be > 0")}
	}
	if s.Manager.MaxRetries < 0 {
		return &ValidationError{Path: "manager.max_retries", Err: fmt.Errorf("max_retries must be >= 0")}
	}
	if s.Manager.ReconcileInterval < 0 {
		return &ValidationError{Path: "manager.reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}
	if s.ConnTimeout <= 0 {
		return &ValidationError{Path: "conn_timeout", Err: fmt.Errorf("conn_timeout must be > 0")}
	}
	if s.SettleDelay < 0 {
		return &ValidationError{Path: "settle_delay", Err: fmt.Errorf("settle_delay must be >= 0")}
	}
	if _, err := ParseLogLevel(s.Log.Level); err != nil {
		return &ValidationError{Path: "log.level", Err: err}
	}
	return nil
}

// ManagerSocketPath resolves the yabai socket path.
func (s *Settings) ManagerSocketPath() (string, error) {
	if s.Manager.Socket != "" {
		return s.Manager.Socket, nil
	}
	return runtimepath.ManagerSocketPath(s.Manager.Namespace, s.Manager.User)
}

// ParseLogLevel maps debug, info, warn (or warning) and error to slog levels.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log level must be one of: debug, info, warn, error")
}
