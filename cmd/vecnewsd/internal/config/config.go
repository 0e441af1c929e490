package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"git.tdpain.net/codemicro/vecnews/kv"
	"git.tdpain.net/codemicro/vecnews/newssource"
	"github.com/joho/godotenv"
	"go.akpain.net/cfger"
)

const (
	ProviderNewsAPI = "newsapi"
	ProviderRSS     = "rss"
)

type Config struct {
	HTTPAddress string
	LogLevel    slog.Level

	Store kv.Options

	NewsProvider   string
	NewsAPIKey     string
	NewsAPIURL     string
	NewsAPICountry string
	FetchTimeout   time.Duration
	RSSFeeds       []newssource.Feed

	KafkaBroker string
	KafkaTopic  string

	RateLimit  float64
	RateBurst  int
	TrustProxy bool
}

// LoadDotEnvs loads .env files in order of decreasing priority. Variables
// already present in the environment are never overwritten.
func LoadDotEnvs() {
	env := os.Getenv("VECNEWS_ENV")
	if env == "" {
		env = "dev"
	}

	// Missing files are expected.
	_ = godotenv.Load(".env." + env + ".local")
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")
}

func Get() (*Config, error) {
	LoadDotEnvs()

	cl := cfger.New()
	var conf = &Config{
		HTTPAddress: cl.GetEnv("VECNEWS_HTTP_ADDR").WithDefault(":9231").AsString(),
		Store: kv.Options{
			Backend:        cl.GetEnv("VECNEWS_STORE").WithDefault(kv.BackendSQLite).AsString(),
			SQLiteFilename: cl.GetEnv("VECNEWS_DATABASE_FILENAME").WithDefault("vecnews.sqlite3.db").AsString(),
			MongoDSN:       cl.GetEnv("VECNEWS_MONGO_DSN").AsString(),
			MongoDatabase:  cl.GetEnv("VECNEWS_MONGO_DATABASE").WithDefault("vecnews").AsString(),
			RedisAddr:      cl.GetEnv("VECNEWS_REDIS_ADDR").AsString(),
			RedisPassword:  cl.GetEnv("VECNEWS_REDIS_PASSWORD").AsString(),
		},
		NewsProvider:   strings.ToLower(cl.GetEnv("VECNEWS_NEWS_PROVIDER").WithDefault(ProviderNewsAPI).AsString()),
		NewsAPIKey:     cl.GetEnv("VECNEWS_NEWSAPI_KEY").AsString(),
		NewsAPIURL:     cl.GetEnv("VECNEWS_NEWSAPI_URL").WithDefault(newssource.DefaultNewsAPIURL).AsString(),
		NewsAPICountry: cl.GetEnv("VECNEWS_NEWSAPI_COUNTRY").WithDefault(newssource.DefaultCountry).AsString(),
		KafkaBroker:    cl.GetEnv("VECNEWS_KAFKA_BROKER").AsString(),
		KafkaTopic:     cl.GetEnv("VECNEWS_KAFKA_TOPIC").WithDefault("vecnews-posts").AsString(),
	}

	var err error

	if conf.FetchTimeout, err = time.ParseDuration(cl.GetEnv("VECNEWS_FETCH_TIMEOUT").WithDefault("10s").AsString()); err != nil {
		return nil, fmt.Errorf("parse VECNEWS_FETCH_TIMEOUT: %w", err)
	}

	if conf.RateLimit, err = strconv.ParseFloat(cl.GetEnv("VECNEWS_RATE_LIMIT").WithDefault("5").AsString(), 64); err != nil {
		return nil, fmt.Errorf("parse VECNEWS_RATE_LIMIT: %w", err)
	}

	if conf.RateBurst, err = strconv.Atoi(cl.GetEnv("VECNEWS_RATE_BURST").WithDefault("10").AsString()); err != nil {
		return nil, fmt.Errorf("parse VECNEWS_RATE_BURST: %w", err)
	}

	if conf.TrustProxy, err = strconv.ParseBool(cl.GetEnv("VECNEWS_TRUST_PROXY").WithDefault("false").AsString()); err != nil {
		return nil, fmt.Errorf("parse VECNEWS_TRUST_PROXY: %w", err)
	}

	if err := conf.LogLevel.UnmarshalText([]byte(cl.GetEnv("VECNEWS_LOG_LEVEL").WithDefault("info").AsString())); err != nil {
		return nil, fmt.Errorf("parse VECNEWS_LOG_LEVEL: %w", err)
	}

	if conf.RSSFeeds, err = newssource.ParseFeeds(cl.GetEnv("VECNEWS_RSS_FEEDS").AsString()); err != nil {
		return nil, fmt.Errorf("parse VECNEWS_RSS_FEEDS: %w", err)
	}

	switch conf.NewsProvider {
	case ProviderNewsAPI:
	case ProviderRSS:
		if len(conf.RSSFeeds) == 0 {
			return nil, fmt.Errorf("VECNEWS_NEWS_PROVIDER is %q but VECNEWS_RSS_FEEDS is empty", ProviderRSS)
		}
	default:
		return nil, fmt.Errorf("unknown VECNEWS_NEWS_PROVIDER %q", conf.NewsProvider)
	}

	return conf, nil
}
