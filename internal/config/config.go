package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the bridge.
type Config struct {
	Server  Server
	List    List
	Logging Logging
	Flags   map[string]string
	Args    []string
}

type Server struct {
	// Socket is the unix socket path the JSON-RPC listener binds.
	Socket string
	// Headless disables the terminal inspector and runs the bridge alone.
	Headless bool
	Verbose  bool
}

type List struct {
	WindowSize     int
	EndThreshold   float64
	ScrollInterval time.Duration
}

type Logging struct {
	FilePath string
	Trace    bool
}

const (
	envSocket         = "UIBRIDGE_SOCKET"
	envHeadless       = "UIBRIDGE_HEADLESS"
	envWindowSize     = "UIBRIDGE_WINDOW_SIZE"
	envEndThreshold   = "UIBRIDGE_END_THRESHOLD"
	envScrollInterval = "UIBRIDGE_SCROLL_INTERVAL_MS"
	envVerbose        = "UIBRIDGE_VERBOSE"
	envTrace          = "UIBRIDGE_TRACE"
	envLogFile        = "UIBRIDGE_LOG_FILE"
)

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs allows tests to supply specific args/environment.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	fs := flag.NewFlagSet("uibridge", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	socket := fs.String("socket", envOrDefault(env, envSocket, defaultSocket()), "unix socket path for the JSON-RPC listener")
	headless := fs.Bool("headless", envOrBool(env, envHeadless, false), "run without the terminal inspector")
	windowSize := fs.Int("window-size", envOrInt(env, envWindowSize, 0), "list realization window size (0 uses the built-in default)")
	endThreshold := fs.Int("end-threshold", envOrInt(env, envEndThreshold, 0), "distance from the content end that triggers onEndReached (0 uses the default)")
	scrollMs := fs.Int("scroll-interval", envOrInt(env, envScrollInterval, 0), "minimum milliseconds between onScroll events (0 uses the default)")
	trace := fs.Bool("trace", envOrBool(env, envTrace, false), "enable verbose JSON trace logging")
	verbose := fs.Bool("verbose", envOrBool(env, envVerbose, false), "log every processed operation")
	logFile := fs.String("log-file", envOrDefault(env, envLogFile, ""), "path to the log file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *windowSize < 0 {
		return Config{}, fmt.Errorf("window-size must be >= 0 (got %d)", *windowSize)
	}
	if *endThreshold < 0 {
		return Config{}, fmt.Errorf("end-threshold must be >= 0 (got %d)", *endThreshold)
	}
	if *scrollMs < 0 {
		return Config{}, fmt.Errorf("scroll-interval must be >= 0 (got %d)", *scrollMs)
	}

	cfg := Config{
		Server: Server{
			Socket:   *socket,
			Headless: *headless,
			Verbose:  *verbose,
		},
		List: List{
			WindowSize:     *windowSize,
			EndThreshold:   float64(*endThreshold),
			ScrollInterval: time.Duration(*scrollMs) * time.Millisecond,
		},
		Logging: Logging{
			FilePath: *logFile,
			Trace:    *trace,
		},
		Flags: map[string]string{
			"socket":         *socket,
			"headless":       strconv.FormatBool(*headless),
			"windowSize":     strconv.Itoa(*windowSize),
			"endThreshold":   strconv.Itoa(*endThreshold),
			"scrollInterval": strconv.Itoa(*scrollMs),
			"trace":          strconv.FormatBool(*trace),
			"verbose":        strconv.FormatBool(*verbose),
			"logFile":        *logFile,
		},
		Args: append([]string(nil), args...),
	}

	return cfg, nil
}

func defaultSocket() string {
	dir := os.TempDir()
	return dir + string(os.PathSeparator) + "uibridge.sock"
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

func envOrInt(env map[string]string, key string, fallback int) int {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(env map[string]string, key string, fallback bool) bool {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate ensures required minimum configuration is present.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Server.Socket) == "" {
		return fmt.Errorf("socket path must not be empty")
	}
	return nil
}
