package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Remote command channel
	Channel            string        // "ssm" | "shell"
	AWSRegion          string        // ex: "eu-west-3"
	AWSAccessKeyID     string        // optional, default credential chain when empty
	AWSSecretAccessKey string        // optional
	CommandTimeout     time.Duration // per-command execution timeout on the host (ex: 60s)
	WaitDelay          time.Duration // delay between SSM invocation polls (ex: 2s)

	// Targets: either a YAML file or a single target from the environment
	TargetsFile  string // path to targets.yaml (empty = single target from env)
	TargetName   string // single target name
	InstanceID   string // single target instance id
	Container    string // single target container (default: TargetName)
	Port         int    // single target local port
	ExternalHost string // single target public address for the direct probe (optional)

	// Verification policy
	MaxRetries        int           // status attempts (default: 10)
	RetryDelay        time.Duration // delay between attempts (default: 10s)
	HealthPath        string        // local health endpoint path (default: /api/health)
	ProbeTimeout      time.Duration // external probe timeout (default: 5s)
	StabilityChecks   int           // extra status checks after start (default: 0 = off)
	StabilityInterval time.Duration // delay between stability checks (default: 5s)
	FailOnUnstable    bool          // fail the run if a stability check fails

	// Serve mode
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	WatchInterval   time.Duration // interval between verification rounds (default: 5m)
	GCInterval      time.Duration // interval between report garbage collections (default: 1h)
	ReportRetention time.Duration // how long reports are kept (default: 7 days)
	AllowedCIDRS    []string      // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy      bool          // true => trust X-Forwarded-For headers

	// Redis (optional report history)
	RedisAddr             string        // ex: "localhost:6379", empty = disabled
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts
}

func Load() *Config {
	cfg := &Config{
		// Logging
		LogLevel:  getenv("SHIPCHECK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHIPCHECK_PRETTY_LOG", true),

		// Channel
		Channel:            strings.ToLower(getenv("SHIPCHECK_CHANNEL", "ssm")),
		AWSRegion:          getenv("SHIPCHECK_AWS_REGION", getenv("AWS_REGION", "us-east-1")),
		AWSAccessKeyID:     getenv("SHIPCHECK_AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getenv("SHIPCHECK_AWS_SECRET_ACCESS_KEY", ""),
		CommandTimeout:     mustDuration("SHIPCHECK_COMMAND_TIMEOUT", 60*time.Second),
		WaitDelay:          mustDuration("SHIPCHECK_WAIT_DELAY", 2*time.Second),

		// Targets
		TargetsFile:  getenv("SHIPCHECK_TARGETS_FILE", ""),
		TargetName:   getenv("SHIPCHECK_TARGET_NAME", "app"),
		InstanceID:   getenv("SHIPCHECK_INSTANCE_ID", ""),
		Container:    getenv("SHIPCHECK_CONTAINER", ""),
		Port:         getenvInt("SHIPCHECK_PORT", 80),
		ExternalHost: getenv("SHIPCHECK_EXTERNAL_HOST", ""),

		// Verification policy
		MaxRetries:        getenvInt("SHIPCHECK_MAX_RETRIES", 10),
		RetryDelay:        mustDuration("SHIPCHECK_RETRY_DELAY", 10*time.Second),
		HealthPath:        getenv("SHIPCHECK_HEALTH_PATH", "/api/health"),
		ProbeTimeout:      mustDuration("SHIPCHECK_PROBE_TIMEOUT", 5*time.Second),
		StabilityChecks:   getenvInt("SHIPCHECK_STABILITY_CHECKS", 0),
		StabilityInterval: mustDuration("SHIPCHECK_STABILITY_INTERVAL", 5*time.Second),
		FailOnUnstable:    mustBool("SHIPCHECK_FAIL_ON_UNSTABLE", false),

		// Serve mode
		ListenPort:      getenv("SHIPCHECK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHIPCHECK_SHUTDOWN_TIMEOUT", 5*time.Second),
		WatchInterval:   mustDuration("SHIPCHECK_WATCH_INTERVAL", 5*time.Minute),
		GCInterval:      mustDuration("SHIPCHECK_GC_INTERVAL", time.Hour),
		ReportRetention: mustDuration("SHIPCHECK_REPORT_RETENTION", 7*24*time.Hour),
		AllowedCIDRS:    parseAllowedIPs(getenv("SHIPCHECK_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("SHIPCHECK_TRUST_PROXY", false),

		// Redis settings
		RedisAddr:             getenv("SHIPCHECK_REDIS_ADDR", ""),
		RedisUser:             getenv("SHIPCHECK_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SHIPCHECK_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("SHIPCHECK_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SHIPCHECK_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Validate rejects combinations the verifier cannot run with.
func (c *Config) Validate() error {
	switch c.Channel {
	case "ssm", "shell":
	default:
		return fmt.Errorf("SHIPCHECK_CHANNEL must be ssm or shell, got %q", c.Channel)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("SHIPCHECK_MAX_RETRIES must be >= 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("SHIPCHECK_RETRY_DELAY must be >= 0, got %v", c.RetryDelay)
	}
	if c.StabilityChecks < 0 {
		return fmt.Errorf("SHIPCHECK_STABILITY_CHECKS must be >= 0, got %d", c.StabilityChecks)
	}
	if c.RedisAddr != "" && c.RedisPasswordRequired && c.RedisPassword == "" {
		return fmt.Errorf("SHIPCHECK_REDIS_PASSWORD is required when SHIPCHECK_REDIS_PASSWORD_REQUIRED=true")
	}
	return nil
}

// RedisEnabled reports whether report history is mirrored to Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.AWSSecretAccessKey != "" {
		cp.AWSSecretAccessKey = "***REDACTED***"
	}
	if cp.AWSAccessKeyID != "" {
		cp.AWSAccessKeyID = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
