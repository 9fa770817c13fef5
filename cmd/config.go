package cmd

import (
	"time"

	"github.com/khanhnv2901/webscan/internal/checker"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultPassiveTimeoutSecs = int(consts.DefaultPassiveTimeout / time.Second)
	defaultActiveTimeoutSecs  = int(consts.DefaultActiveTimeout / time.Second)
	defaultServeAddr          = "127.0.0.1:5000"
	defaultServeRateLimit     = 10
	defaultServeRateBurst     = 20
	defaultServeMaxPages      = 50
	defaultServeJobs          = 2
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	AdviceFile string
	Passive    PassiveConfig
	Active     ActiveConfig
	Serve      ServeConfig
}

// PassiveConfig holds crawl limits for passive scans.
type PassiveConfig struct {
	MaxPages    int
	MaxDepth    int
	TimeoutSecs int
	Rate        float64 // requests per second, 0 = unthrottled
	UserAgent   string
}

// ActiveConfig holds nmap settings.
type ActiveConfig struct {
	TimeoutSecs int
	Binary      string
}

// ServeConfig holds API server settings.
type ServeConfig struct {
	Addr        string
	AuthToken   string
	CORSOrigins []string
	RateLimit   int
	RateBurst   int
	MaxPages    int
	Jobs        int
	TrustProxy  bool
	Metrics     bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	crawl := checker.DefaultCrawlOptions()
	return &CLIConfig{
		Passive: PassiveConfig{
			MaxPages:    crawl.MaxPages,
			MaxDepth:    crawl.MaxDepth,
			TimeoutSecs: defaultPassiveTimeoutSecs,
			UserAgent:   crawl.UserAgent,
		},
		Active: ActiveConfig{
			TimeoutSecs: defaultActiveTimeoutSecs,
			Binary:      "nmap",
		},
		Serve: ServeConfig{
			Addr:      defaultServeAddr,
			RateLimit: defaultServeRateLimit,
			RateBurst: defaultServeRateBurst,
			MaxPages:  defaultServeMaxPages,
			Jobs:      defaultServeJobs,
			Metrics:   true,
		},
	}
}

// crawlOptions converts the passive settings for the crawler.
func (c *CLIConfig) crawlOptions() checker.CrawlOptions {
	return checker.CrawlOptions{
		MaxPages:          c.Passive.MaxPages,
		MaxDepth:          c.Passive.MaxDepth,
		Timeout:           time.Duration(c.Passive.TimeoutSecs) * time.Second,
		UserAgent:         c.Passive.UserAgent,
		RequestsPerSecond: c.Passive.Rate,
	}
}

// applyConfigDefaults merges config file and WEBSCAN_* env values into the runtime
// config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults() {
	if viper.IsSet("advice_file") {
		applyStringDefault(adviceCmd.Flags(), "advice-file", viper.GetString("advice_file"), func(v string) { cliConfig.AdviceFile = v })
	}

	passiveFlags := passiveCmd.Flags()
	if viper.IsSet("passive.max_pages") {
		applyIntDefault(passiveFlags, "max-pages", viper.GetInt("passive.max_pages"), func(v int) { cliConfig.Passive.MaxPages = v })
	}
	if viper.IsSet("passive.max_depth") {
		applyIntDefault(passiveFlags, "max-depth", viper.GetInt("passive.max_depth"), func(v int) { cliConfig.Passive.MaxDepth = v })
	}
	if viper.IsSet("passive.timeout_secs") {
		applyIntDefault(passiveFlags, "timeout", viper.GetInt("passive.timeout_secs"), func(v int) { cliConfig.Passive.TimeoutSecs = v })
	}
	if viper.IsSet("passive.rate") {
		applyFloatDefault(passiveFlags, "rate", viper.GetFloat64("passive.rate"), func(v float64) { cliConfig.Passive.Rate = v })
	}
	if viper.IsSet("passive.user_agent") {
		applyStringDefault(passiveFlags, "user-agent", viper.GetString("passive.user_agent"), func(v string) { cliConfig.Passive.UserAgent = v })
	}

	activeFlags := activeCmd.Flags()
	if viper.IsSet("active.timeout_secs") {
		applyIntDefault(activeFlags, "timeout", viper.GetInt("active.timeout_secs"), func(v int) { cliConfig.Active.TimeoutSecs = v })
	}
	if viper.IsSet("active.binary") {
		applyStringDefault(activeFlags, "nmap-binary", viper.GetString("active.binary"), func(v string) { cliConfig.Active.Binary = v })
	}

	serveFlags := serveCmd.Flags()
	if viper.IsSet("serve.addr") {
		applyStringDefault(serveFlags, "addr", viper.GetString("serve.addr"), func(v string) { cliConfig.Serve.Addr = v })
	}
	if viper.IsSet("serve.auth_token") {
		applyStringDefault(serveFlags, "auth-token", viper.GetString("serve.auth_token"), func(v string) { cliConfig.Serve.AuthToken = v })
	}
	if viper.IsSet("serve.cors_origins") {
		if flag := serveFlags.Lookup("cors-origins"); flag == nil || !flag.Changed {
			cliConfig.Serve.CORSOrigins = viper.GetStringSlice("serve.cors_origins")
		}
	}
	if viper.IsSet("serve.rate_limit") {
		applyIntDefault(serveFlags, "rate-limit", viper.GetInt("serve.rate_limit"), func(v int) { cliConfig.Serve.RateLimit = v })
	}
	if viper.IsSet("serve.rate_burst") {
		applyIntDefault(serveFlags, "rate-burst", viper.GetInt("serve.rate_burst"), func(v int) { cliConfig.Serve.RateBurst = v })
	}
	if viper.IsSet("serve.max_pages") {
		applyIntDefault(serveFlags, "max-pages-cap", viper.GetInt("serve.max_pages"), func(v int) { cliConfig.Serve.MaxPages = v })
	}
	if viper.IsSet("serve.jobs") {
		applyIntDefault(serveFlags, "jobs", viper.GetInt("serve.jobs"), func(v int) { cliConfig.Serve.Jobs = v })
	}
	if viper.IsSet("serve.trust_proxy") {
		applyBoolDefault(serveFlags, "trust-proxy", viper.GetBool("serve.trust_proxy"), func(v bool) { cliConfig.Serve.TrustProxy = v })
	}
	if viper.IsSet("serve.metrics") {
		applyBoolDefault(serveFlags, "metrics", viper.GetBool("serve.metrics"), func(v bool) { cliConfig.Serve.Metrics = v })
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyFloatDefault(flags *pflag.FlagSet, name string, value float64, setter func(float64)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
