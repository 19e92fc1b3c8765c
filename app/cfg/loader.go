package cfg

import (
	"cmp"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Upstream CMS
	WPBaseURL    string `long:"wp-base-url" env:"WP_BASE_URL" description:"WordPress base URL (e.g., https://cms.example.com/wp); empty serves the fallback corpus only"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; PressCombBot/1.0)" description:"User agent string for upstream requests"`
	FetchTries   int    `long:"fetch-tries" env:"FETCH_TRIES" default:"2" description:"Attempts per upstream request on transport failure"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"8" description:"Per-attempt upstream timeout in seconds"`
	PageSize     int    `long:"page-size" env:"PAGE_SIZE" default:"20" description:"Default listing page size (max 100)"`
	CategoryTTL  int    `long:"category-ttl" env:"CATEGORY_TTL" default:"300" description:"Category slug resolution cache in seconds"`

	// Content policy
	FallbackMinPosts int    `long:"fallback-min-posts" env:"FALLBACK_MIN_POSTS" default:"8" description:"Live listings shorter than this are replaced by the fallback corpus"`
	FallbackFile     string `long:"fallback-file" env:"FALLBACK_FILE" description:"Optional YAML fallback corpus definition (reloaded on change)"`
	NavTTL           int    `long:"nav-ttl" env:"NAV_TTL" default:"60" description:"Navigation cache freshness window in seconds"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL of the site (e.g., https://callatispress.ro)"`
	DBPath            string `long:"db-path" env:"DB_PATH" default:"./data/snapshot.db" description:"SQLite snapshot database path"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Revalidation interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"Access key for cache invalidation endpoints (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Europe/Bucharest" description:"Timezone for date labels (e.g., UTC, Europe/Bucharest)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns nil, nil when help was
// requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		WPBaseURL:         strings.TrimRight(strings.TrimSpace(raw.WPBaseURL), "/"),
		UserAgent:         raw.UserAgent,
		FetchTries:        max(raw.FetchTries, 1),
		FetchTimeout:      seconds(raw.FetchTimeout),
		PageSize:          min(max(raw.PageSize, 1), 100),
		CategoryTTL:       seconds(raw.CategoryTTL),
		FallbackMinPosts:  max(raw.FallbackMinPosts, 0),
		FallbackFile:      raw.FallbackFile,
		NavTTL:            seconds(raw.NavTTL),
		Port:              raw.Port,
		BaseUrl:           strings.TrimRight(raw.BaseUrl, "/"),
		DBPath:            raw.DBPath,
		WorkerCount:       max(raw.WorkerCount, 1),
		SchedulerInterval: seconds(raw.SchedulerInterval),
		APIAccessKey:      raw.APIAccessKey,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if cfg.BaseUrl == "" {
		cfg.BaseUrl = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
