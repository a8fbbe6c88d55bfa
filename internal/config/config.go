// Package config loads client settings from flags, environment variables
// and an optional .env file. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/hammamikhairi/concierge/internal/i18n"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Env var names.
const (
	EnvBackendURL = "CONCIERGE_BACKEND_URL"
	EnvCamera     = "CONCIERGE_CAMERA"
	EnvLat        = "CONCIERGE_LAT"
	EnvLon        = "CONCIERGE_LON"
	EnvLang       = "CONCIERGE_LANG"
)

// Defaults.
const (
	DefaultBackendURL   = "http://127.0.0.1:8000"
	DefaultLogFile      = ".concierge-logs/concierge.log"
	DefaultTimeout      = 60 * time.Second
	DefaultWhisperBin   = "whisper-cli"
	DefaultWhisperModel = "bin/ggml-small.bin"
	DefaultDictateSecs  = 4
)

// Config is the resolved client configuration.
type Config struct {
	BackendURL string
	Camera     string

	// Latitude and Longitude are meaningful only when HasCoords is set.
	Latitude  float64
	Longitude float64
	HasCoords bool
	IPLocate  bool

	Lang language.Tag

	NoAudio    bool
	SampleRate int

	LogLevel logger.Level
	LogFile  string
	Timeout  time.Duration

	WhisperBin   string
	WhisperModel string
	DictateSecs  int
}

// DictateDuration is the length of one dictation recording.
func (c Config) DictateDuration() time.Duration {
	return time.Duration(c.DictateSecs) * time.Second
}

// Load reads .env (if present), then parses args (without the program
// name). Invalid values are returned as errors.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()
	return parse(args, os.LookupEnv, os.Stderr)
}

// parse is Load without touching the process environment.
func parse(args []string, lookup func(string) (string, bool), usage io.Writer) (Config, error) {
	env := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	fs := flag.NewFlagSet("concierge", flag.ContinueOnError)
	fs.SetOutput(usage)

	backend := fs.String("backend", env(EnvBackendURL, DefaultBackendURL), "concierge backend base URL")
	camera := fs.String("camera", env(EnvCamera, ""), "camera source: a JPEG file or a directory of JPEGs")
	lat := fs.String("lat", env(EnvLat, ""), "fixed latitude")
	lon := fs.String("lon", env(EnvLon, ""), "fixed longitude")
	ipLocate := fs.Bool("ip-locate", false, "estimate location from the public IP when -lat/-lon are unset")
	lang := fs.String("lang", env(EnvLang, "en"), "interface language (en|zh)")
	noAudio := fs.Bool("no-audio", false, "disable narration playback")
	sampleRate := fs.Int("sample-rate", 24000, "audio device sample rate")
	verbose := fs.Bool("verbose", false, "enable verbose/debug logging")
	quiet := fs.Bool("quiet", false, "disable all logging")
	logFile := fs.String("log-file", DefaultLogFile, "file to write logs to (use \"stderr\" to log to console)")
	timeout := fs.Duration("timeout", DefaultTimeout, "per-request backend timeout")
	whisperBin := fs.String("whisper-bin", DefaultWhisperBin, "path to the whisper-cpp CLI binary")
	whisperModel := fs.String("whisper-model", DefaultWhisperModel, "path to the Whisper GGML model file")
	dictateSecs := fs.Int("dictate-secs", DefaultDictateSecs, "seconds per dictation recording")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{
		Camera:       *camera,
		IPLocate:     *ipLocate,
		NoAudio:      *noAudio,
		SampleRate:   *sampleRate,
		LogFile:      *logFile,
		Timeout:      *timeout,
		WhisperBin:   *whisperBin,
		WhisperModel: *whisperModel,
		DictateSecs:  *dictateSecs,
	}

	var errs []error

	u, err := url.Parse(strings.TrimSpace(*backend))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend: %q is not an http(s) URL", *backend))
	} else {
		cfg.BackendURL = strings.TrimRight(u.String(), "/")
	}

	switch {
	case *lat == "" && *lon == "":
	case *lat == "" || *lon == "":
		errs = append(errs, errors.New("lat/lon: both or neither must be set"))
	default:
		la, err := parseCoord(*lat, 90)
		if err != nil {
			errs = append(errs, fmt.Errorf("lat: %w", err))
		}
		lo, err := parseCoord(*lon, 180)
		if err != nil {
			errs = append(errs, fmt.Errorf("lon: %w", err))
		}
		cfg.Latitude, cfg.Longitude, cfg.HasCoords = la, lo, true
	}

	if cfg.Lang, err = i18n.ParseLang(*lang); err != nil {
		errs = append(errs, fmt.Errorf("lang: %w", err))
	}

	if cfg.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample-rate: must be positive, got %d", cfg.SampleRate))
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout: must be positive, got %s", cfg.Timeout))
	}
	if cfg.DictateSecs <= 0 {
		errs = append(errs, fmt.Errorf("dictate-secs: must be positive, got %d", cfg.DictateSecs))
	}

	cfg.LogLevel = logger.LevelNormal
	if *verbose {
		cfg.LogLevel = logger.LevelVerbose
	}
	if *quiet {
		cfg.LogLevel = logger.LevelOff
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%v out of range [-%v, %v]", v, limit, limit)
	}
	return v, nil
}
