package cfg

import (
	"time"
)

type Cfg struct {
	// Upstream CMS
	WPBaseURL    string
	UserAgent    string
	FetchTries   int
	FetchTimeout time.Duration
	PageSize     int
	CategoryTTL  time.Duration

	// Content policy
	FallbackMinPosts int
	FallbackFile     string
	NavTTL           time.Duration

	// Application configuration
	Port              string
	BaseUrl           string
	DBPath            string
	WorkerCount       int
	SchedulerInterval time.Duration
	APIAccessKey      string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
