package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/adqa/browser-test-harness/config"
	"github.com/adqa/browser-test-harness/framework/bttest"
)

type commandParams struct {
	configFile   string
	driversDir   string
	historyPath  string
	scenario     string
	url          string
	headless     bool
	userAgent    string
	pollInterval time.Duration
	repeat       int
	artifactsDir string
	filters      bttest.EngineFilters
	fixtures     bool
	debug        bool
	debugAll     bool
	jUnitFile    string
	metricsFile  string
	traceFile    string

	sqlite           string
	redis            string
	redisStream      string
	dynamoDBTable    string
	dynamoDBRegion   string
	dynamoDBEndpoint string
	consul           string
	consulPrefix     string
	nats             string
	natsStream       string

	// set holds the names of the flags that were given, so that only those override the
	// configuration file.
	set map[string]bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.configFile, "config", "", "YAML or JSON configuration file")
	fs.StringVar(&c.driversDir, "drivers", config.DefaultDriversDir, "directory containing one subdirectory per engine executable")
	fs.StringVar(&c.historyPath, "history", "", "CSV history file (default test_history/<scenario>_<dd_mm_yyyy>.csv)")
	fs.StringVar(&c.scenario, "scenario", config.DefaultScenario, "name of the scenario to run")
	fs.StringVar(&c.url, "url", "", "page for the scenario to open, instead of its default")
	fs.BoolVar(&c.headless, "headless", false, "run browsers without a window")
	fs.StringVar(&c.userAgent, "user-agent", "", "browser user agent (default is a mobile user agent)")
	fs.DurationVar(&c.pollInterval, "poll-interval", config.DefaultPollInterval, "how often waits re-check their condition")
	fs.IntVar(&c.repeat, "repeat", 1, "number of times to run the scenario on every engine")
	fs.StringVar(&c.artifactsDir, "artifacts", config.DefaultArtifactsDir, "directory for screenshots of failed runs")
	fs.Var(&c.filters.MustMatch, "engine", "regex pattern(s) to select engines to run")
	fs.Var(&c.filters.MustNotMatch, "skip-engine", "regex pattern(s) to select engines not to run")
	fs.BoolVar(&c.fixtures, "fixtures", false, "serve a local copy of the scenario's pages and open that instead")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed engines")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all engines")
	fs.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")
	fs.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to the specified path at the end of the run")
	fs.StringVar(&c.traceFile, "trace", "", `write OpenTelemetry spans to the specified path ("-" for standard output)`)

	fs.StringVar(&c.sqlite, "sqlite", "", "also append history to this SQLite database")
	fs.StringVar(&c.redis, "redis", "", "also append history to a stream on this Redis server")
	fs.StringVar(&c.redisStream, "redis-stream", "", "Redis stream name")
	fs.StringVar(&c.dynamoDBTable, "dynamodb-table", "", "also append history to this DynamoDB table")
	fs.StringVar(&c.dynamoDBRegion, "dynamodb-region", "", "DynamoDB region")
	fs.StringVar(&c.dynamoDBEndpoint, "dynamodb-endpoint", "", "DynamoDB endpoint, for a local DynamoDB")
	fs.StringVar(&c.consul, "consul", "", "also append history to the KV store of this Consul agent")
	fs.StringVar(&c.consulPrefix, "consul-prefix", "", "Consul key prefix")
	fs.StringVar(&c.nats, "nats", "", "also append history to a JetStream stream on this NATS server")
	fs.StringVar(&c.natsStream, "nats-stream", "", "JetStream stream name")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return false
	}
	c.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { c.set[f.Name] = true })
	return true
}

// apply overrides the configuration with every flag that was given on the command line.
func (c *commandParams) apply(cfg *config.Config) {
	setString := func(name string, target *string, value string) {
		if c.set[name] {
			*target = value
		}
	}
	setString("drivers", &cfg.DriversDir, c.driversDir)
	setString("history", &cfg.HistoryPath, c.historyPath)
	setString("scenario", &cfg.Scenario, c.scenario)
	setString("url", &cfg.URL, c.url)
	setString("user-agent", &cfg.UserAgent, c.userAgent)
	setString("artifacts", &cfg.ArtifactsDir, c.artifactsDir)
	setString("sqlite", &cfg.Mirrors.SQLite, c.sqlite)
	setString("redis", &cfg.Mirrors.Redis.Address, c.redis)
	setString("redis-stream", &cfg.Mirrors.Redis.Stream, c.redisStream)
	setString("dynamodb-table", &cfg.Mirrors.DynamoDB.Table, c.dynamoDBTable)
	setString("dynamodb-region", &cfg.Mirrors.DynamoDB.Region, c.dynamoDBRegion)
	setString("dynamodb-endpoint", &cfg.Mirrors.DynamoDB.Endpoint, c.dynamoDBEndpoint)
	setString("consul", &cfg.Mirrors.Consul.Address, c.consul)
	setString("consul-prefix", &cfg.Mirrors.Consul.Prefix, c.consulPrefix)
	setString("nats", &cfg.Mirrors.NATS.URL, c.nats)
	setString("nats-stream", &cfg.Mirrors.NATS.Stream, c.natsStream)
	if c.set["headless"] {
		cfg.Headless = c.headless
	}
	if c.set["poll-interval"] {
		cfg.PollInterval = c.pollInterval
	}
	if c.set["repeat"] {
		cfg.Repeat = c.repeat
	}
}
