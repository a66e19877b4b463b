package params

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
	"github.com/uhyunpark/flowgen/pkg/sim"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Target struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Run struct {
	Users      int    `mapstructure:"users"`
	Orders     int    `mapstructure:"orders"`
	Symbol     string `mapstructure:"symbol"`
	QuoteAsset string `mapstructure:"quote_asset"`
	// Seed feeds the order-flow RNG only; bootstrap and seeding are unseeded.
	Seed        int64         `mapstructure:"seed"`
	TickDelay   time.Duration `mapstructure:"tick_delay"`
	SampleEvery int           `mapstructure:"sample_every"`
}

type Price struct {
	Base       float64 `mapstructure:"base"`
	Spread     float64 `mapstructure:"spread"`
	Trend      string  `mapstructure:"trend"`
	TrendRate  float64 `mapstructure:"trend_rate"`
	Volatility float64 `mapstructure:"volatility"`
}

type Flow struct {
	MinQty     int     `mapstructure:"min_qty"`
	MaxQty     int     `mapstructure:"max_qty"`
	WavePeriod int     `mapstructure:"wave_period"`
	WaveBias   float64 `mapstructure:"wave_bias"`
}

type Ladder struct {
	Levels int     `mapstructure:"levels"`
	Step   float64 `mapstructure:"step"`
	MinQty int     `mapstructure:"min_qty"`
	MaxQty int     `mapstructure:"max_qty"`
}

type Funding struct {
	QuoteAmount    float64 `mapstructure:"quote_amount"`
	TradableAmount float64 `mapstructure:"tradable_amount"`
	Policy         string  `mapstructure:"policy"`
}

type Report struct {
	ChartPath  string `mapstructure:"chart_path"`
	ArchiveDir string `mapstructure:"archive_dir"`
	WSAddr     string `mapstructure:"ws_addr"`
}

type Log struct {
	File string `mapstructure:"file"`
}

type Config struct {
	Target    Target           `mapstructure:"target"`
	Endpoints client.Endpoints `mapstructure:"endpoints"`
	Run       Run              `mapstructure:"run"`
	Price     Price            `mapstructure:"price"`
	Flow      Flow             `mapstructure:"flow"`
	Ladder    Ladder           `mapstructure:"seed"`
	Funding   Funding          `mapstructure:"funding"`
	Report    Report           `mapstructure:"report"`
	Log       Log              `mapstructure:"log"`

	// Replay names an archived run to report instead of running.
	Replay   string `mapstructure:"-"`
	ListRuns bool   `mapstructure:"-"`
}

// Default is the BTC/USD load test.
func Default() Config {
	return Config{
		Target: Target{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Endpoints: client.DefaultEndpoints(),
		Run: Run{
			Users:       12,
			Orders:      800,
			Symbol:      "BTC",
			QuoteAsset:  "USD",
			Seed:        42,
			TickDelay:   5 * time.Millisecond,
			SampleEvery: 100,
		},
		Price: Price{
			Base:       30000,
			Spread:     1200,
			Trend:      string(market.Uptrend),
			TrendRate:  0.5,
			Volatility: 1.5,
		},
		Flow: Flow{
			MinQty:     2,
			MaxQty:     8,
			WavePeriod: 60,
			WaveBias:   market.DefaultWaveBias,
		},
		Ladder: Ladder{
			Levels: 12,
			Step:   50,
			MinQty: 2,
			MaxQty: 10,
		},
		Funding: Funding{
			QuoteAmount:    2.5e9,
			TradableAmount: 10000,
			Policy:         string(sim.BestEffort),
		},
		Report: Report{
			ChartPath: "btc_price_evolution.png",
		},
	}
}

// DemoDefaults is the strict two-party AAPL walkthrough.
func DemoDefaults() Config {
	cfg := Default()
	cfg.Target.Timeout = 5 * time.Second
	cfg.Run.Users = 2
	cfg.Run.Symbol = "AAPL"
	cfg.Funding.Policy = string(sim.Strict)
	cfg.Report.ChartPath = ""
	return cfg
}

// Load builds the load-test configuration from args.
// Priority: flags > env > .env file > defaults.
func Load(args []string) (Config, error) {
	return load("flowgen", Default(), args)
}

// LoadDemo is Load for the demo scenario.
func LoadDemo(args []string) (Config, error) {
	return load("demo", DemoDefaults(), args)
}

func load(name string, base Config, args []string) (Config, error) {
	fs := newFlagSet(name, base)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// A missing .env file is not an error.
	envFile, _ := fs.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v, base)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("target.base_url", "TARGET_BASE_URL", "BASE_URL")
	_ = v.BindEnv("endpoints.add_balance", "ENDPOINTS_ADD_BALANCE", "ADD_BALANCE_PATH")
	_ = v.BindEnv("log.file", "LOG_FILE")

	for key, flag := range flagKeys {
		if f := fs.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Replay, _ = fs.GetString("replay")
	cfg.ListRuns, _ = fs.GetBool("list-runs")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	defaults := map[string]any{
		"target.base_url":         c.Target.BaseURL,
		"target.timeout":          c.Target.Timeout,
		"endpoints.register_user": c.Endpoints.RegisterUser,
		"endpoints.add_balance":   c.Endpoints.AddBalance,
		"endpoints.order":         c.Endpoints.Order,
		"endpoints.top_of_book":   c.Endpoints.TopOfBook,
		"endpoints.order_book":    c.Endpoints.OrderBook,
		"endpoints.users":         c.Endpoints.Users,
		"run.users":               c.Run.Users,
		"run.orders":              c.Run.Orders,
		"run.symbol":              c.Run.Symbol,
		"run.quote_asset":         c.Run.QuoteAsset,
		"run.seed":                c.Run.Seed,
		"run.tick_delay":          c.Run.TickDelay,
		"run.sample_every":        c.Run.SampleEvery,
		"price.base":              c.Price.Base,
		"price.spread":            c.Price.Spread,
		"price.trend":             c.Price.Trend,
		"price.trend_rate":        c.Price.TrendRate,
		"price.volatility":        c.Price.Volatility,
		"flow.min_qty":            c.Flow.MinQty,
		"flow.max_qty":            c.Flow.MaxQty,
		"flow.wave_period":        c.Flow.WavePeriod,
		"flow.wave_bias":          c.Flow.WaveBias,
		"seed.levels":             c.Ladder.Levels,
		"seed.step":               c.Ladder.Step,
		"seed.min_qty":            c.Ladder.MinQty,
		"seed.max_qty":            c.Ladder.MaxQty,
		"funding.quote_amount":    c.Funding.QuoteAmount,
		"funding.tradable_amount": c.Funding.TradableAmount,
		"funding.policy":          c.Funding.Policy,
		"report.chart_path":       c.Report.ChartPath,
		"report.archive_dir":      c.Report.ArchiveDir,
		"report.ws_addr":          c.Report.WSAddr,
		"log.file":                c.Log.File,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"target.base_url":       "base-url",
	"target.timeout":        "timeout",
	"endpoints.add_balance": "add-balance-path",
	"run.users":             "users",
	"run.orders":            "orders",
	"run.symbol":            "symbol",
	"run.seed":              "seed",
	"run.tick_delay":        "tick-delay",
	"run.sample_every":      "sample-every",
	"price.base":            "base",
	"price.spread":          "spread",
	"price.trend":           "trend",
	"price.trend_rate":      "trend-rate",
	"price.volatility":      "volatility",
	"flow.min_qty":          "min-qty",
	"flow.max_qty":          "max-qty",
	"flow.wave_period":      "wave-period",
	"flow.wave_bias":        "wave-bias",
	"seed.levels":           "seed-levels",
	"seed.step":             "seed-step",
	"seed.min_qty":          "seed-min-qty",
	"seed.max_qty":          "seed-max-qty",
	"funding.policy":        "funding-policy",
	"report.chart_path":     "chart",
	"report.archive_dir":    "archive",
	"report.ws_addr":        "ws-addr",
	"log.file":              "log-file",
}

func newFlagSet(name string, c Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.String("env-file", "", "load environment from this file instead of ./.env")
	fs.String("base-url", c.Target.BaseURL, "matching service base URL")
	fs.Duration("timeout", c.Target.Timeout, "per-request timeout")
	fs.String("add-balance-path", c.Endpoints.AddBalance, "balance funding endpoint path")

	fs.Int("users", c.Run.Users, "number of synthetic participants")
	fs.Int("orders", c.Run.Orders, "organic orders to place")
	fs.String("symbol", c.Run.Symbol, "tradable asset ticker")
	fs.Int64("seed", c.Run.Seed, "order-flow RNG seed")
	fs.Duration("tick-delay", c.Run.TickDelay, "pause between orders")
	fs.Int("sample-every", c.Run.SampleEvery, "observe the top of book every N orders")

	fs.Float64("base", c.Price.Base, "base price")
	fs.Float64("spread", c.Price.Spread, "price noise scale")
	fs.String("trend", c.Price.Trend, "price pattern: uptrend, downtrend, sideways, volatile")
	fs.Float64("trend-rate", c.Price.TrendRate, "drift per order")
	fs.Float64("volatility", c.Price.Volatility, "noise divisor for trending modes (higher = calmer)")

	fs.Int("min-qty", c.Flow.MinQty, "minimum organic order quantity")
	fs.Int("max-qty", c.Flow.MaxQty, "maximum organic order quantity")
	fs.Int("wave-period", c.Flow.WavePeriod, "orders per buy/sell wave")
	fs.Float64("wave-bias", c.Flow.WaveBias, "probability of trading with the wave")

	fs.Int("seed-levels", c.Ladder.Levels, "initial ladder levels per side")
	fs.Float64("seed-step", c.Ladder.Step, "price step between ladder levels")
	fs.Int("seed-min-qty", c.Ladder.MinQty, "minimum ladder order quantity")
	fs.Int("seed-max-qty", c.Ladder.MaxQty, "maximum ladder order quantity")

	fs.String("funding-policy", c.Funding.Policy, "best_effort or strict")

	fs.String("chart", c.Report.ChartPath, "chart output path (empty disables)")
	fs.String("archive", c.Report.ArchiveDir, "sample archive directory (empty disables)")
	fs.String("ws-addr", c.Report.WSAddr, "live feed listen address (empty disables)")
	fs.String("log-file", c.Log.File, "also log JSON to this file")

	fs.String("replay", "", "report an archived run instead of running")
	fs.Bool("list-runs", false, "list archived runs and exit")
	return fs
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Target.BaseURL != "", "target.base_url is empty")
	check(c.Target.Timeout > 0, "target.timeout must be > 0, got %v", c.Target.Timeout)
	for name, path := range map[string]string{
		"register_user": c.Endpoints.RegisterUser,
		"add_balance":   c.Endpoints.AddBalance,
		"order":         c.Endpoints.Order,
		"top_of_book":   c.Endpoints.TopOfBook,
		"order_book":    c.Endpoints.OrderBook,
		"users":         c.Endpoints.Users,
	} {
		check(strings.HasPrefix(path, "/"), "endpoints.%s must start with /, got %q", name, path)
	}

	check(c.Run.Users >= 1, "run.users must be >= 1, got %d", c.Run.Users)
	check(c.Run.Orders >= 0, "run.orders must be >= 0, got %d", c.Run.Orders)
	check(c.Run.Symbol != "", "run.symbol is empty")
	check(c.Run.QuoteAsset != "", "run.quote_asset is empty")
	check(c.Run.TickDelay >= 0, "run.tick_delay must be >= 0, got %v", c.Run.TickDelay)
	check(c.Run.SampleEvery >= 1, "run.sample_every must be >= 1, got %d", c.Run.SampleEvery)

	check(c.Price.Base > 0, "price.base must be > 0, got %v", c.Price.Base)
	check(c.Price.Spread >= 0, "price.spread must be >= 0, got %v", c.Price.Spread)
	check(c.Price.Volatility > 0, "price.volatility must be > 0, got %v", c.Price.Volatility)
	if _, err := market.ParseTrend(c.Price.Trend); err != nil {
		errs = append(errs, err)
	}

	check(c.Flow.MinQty >= 1, "flow.min_qty must be >= 1, got %d", c.Flow.MinQty)
	check(c.Flow.MaxQty >= c.Flow.MinQty, "flow.max_qty %d is below flow.min_qty %d", c.Flow.MaxQty, c.Flow.MinQty)
	check(c.Flow.WavePeriod >= 1, "flow.wave_period must be >= 1, got %d", c.Flow.WavePeriod)
	check(c.Flow.WaveBias > 0 && c.Flow.WaveBias <= 1, "flow.wave_bias must be in (0,1], got %v", c.Flow.WaveBias)

	check(c.Ladder.Levels >= 0, "seed.levels must be >= 0, got %d", c.Ladder.Levels)
	check(c.Ladder.Levels == 0 || c.Ladder.Step > 0, "seed.step must be > 0, got %v", c.Ladder.Step)
	check(c.Ladder.MinQty >= 1, "seed.min_qty must be >= 1, got %d", c.Ladder.MinQty)
	check(c.Ladder.MaxQty >= c.Ladder.MinQty, "seed.max_qty %d is below seed.min_qty %d", c.Ladder.MaxQty, c.Ladder.MinQty)

	if _, err := sim.ParseFundingPolicy(c.Funding.Policy); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Warnings lists settings that are valid but probably wrong.
func (c Config) Warnings() []string {
	var out []string
	if c.Endpoints.AddBalance == client.MisspelledAddBalancePath {
		out = append(out, fmt.Sprintf("endpoints.add_balance is %q; the service routes /addBalance", client.MisspelledAddBalancePath))
	}
	return out
}

// PathParams is the price-path configuration. Call after Validate.
func (c Config) PathParams() market.PathParams {
	trend, _ := market.ParseTrend(c.Price.Trend)
	return market.PathParams{
		Trend:      trend,
		Base:       c.Price.Base,
		Spread:     c.Price.Spread,
		TrendRate:  c.Price.TrendRate,
		Volatility: c.Price.Volatility,
	}
}

func (c Config) fundingPolicy() sim.FundingPolicy {
	p, _ := sim.ParseFundingPolicy(c.Funding.Policy)
	return p
}

// LoadTest converts the configuration into a load-test plan.
func (c Config) LoadTest() sim.LoadTestConfig {
	return sim.LoadTestConfig{
		Bootstrap: sim.BootstrapConfig{
			Users:    c.Run.Users,
			Quote:    sim.Grant{Asset: c.Run.QuoteAsset, Amount: c.Funding.QuoteAmount},
			Tradable: sim.Grant{Asset: c.Run.Symbol, Amount: c.Funding.TradableAmount},
			Policy:   c.fundingPolicy(),
		},
		Ladder: market.LadderParams{
			Symbol: c.Run.Symbol,
			Base:   c.Price.Base,
			Step:   c.Ladder.Step,
			Levels: c.Ladder.Levels,
			MinQty: c.Ladder.MinQty,
			MaxQty: c.Ladder.MaxQty,
		},
		Driver: sim.DriverConfig{
			Orders:      c.Run.Orders,
			SampleEvery: c.Run.SampleEvery,
			TickDelay:   c.Run.TickDelay,
			Seed:        c.Run.Seed,
			Flow: market.FlowParams{
				Symbol:     c.Run.Symbol,
				MinQty:     c.Flow.MinQty,
				MaxQty:     c.Flow.MaxQty,
				WavePeriod: c.Flow.WavePeriod,
				WaveBias:   c.Flow.WaveBias,
				Path:       c.PathParams(),
			},
		},
	}
}

// Demo converts the configuration into the two-party demo.
func (c Config) Demo() sim.DemoScenario {
	sc := sim.DefaultDemoScenario(c.Run.Symbol, c.Run.QuoteAsset)
	sc.Policy = c.fundingPolicy()
	return sc
}
