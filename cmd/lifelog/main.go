package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/tsumugi-lab/lifelog/internal/api"
	"github.com/tsumugi-lab/lifelog/internal/flow"
	"github.com/tsumugi-lab/lifelog/internal/genai"
	"github.com/tsumugi-lab/lifelog/internal/messaging"
	"github.com/tsumugi-lab/lifelog/internal/notion"
	"github.com/tsumugi-lab/lifelog/internal/store"
	"github.com/tsumugi-lab/lifelog/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for lifelog state data
	DefaultStateDir = "/var/lib/lifelog"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "lifelog.db"
	// DefaultAPIAddr is the default webhook server listen address
	DefaultAPIAddr = ":5000"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	slog.Info("Bootstrapping lifelog")
	if err := run(flags); err != nil {
		slog.Error("lifelog failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("lifelog exited successfully")
}

// Config holds environment configuration
type Config struct {
	ChannelSecret    string
	ChannelToken     string
	OpenAIKey        string
	NotionToken      string
	NotionMemoToken  string
	LifeDatabaseID   string
	ReviewDatabaseID string
	DatabaseURL      string
	StateDir         string
	APIAddr          string
}

// Flags holds command line flag values
type Flags struct {
	channelSecret    *string
	channelToken     *string
	openaiKey        *string
	notionToken      *string
	notionMemoToken  *string
	lifeDatabaseID   *string
	reviewDatabaseID *string
	dbDSN            *string
	apiAddr          *string
}

// initializeLogger sets up structured logging. LIFELOG_DEBUG=true enables
// debug-level output.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("LIFELOG_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		ChannelSecret:    os.Getenv("LINE_CHANNEL_SECRET"),
		ChannelToken:     os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionMemoToken:  os.Getenv("NOTION_MEMO_SECRET"),
		LifeDatabaseID:   os.Getenv("NOTION_DBID"),
		ReviewDatabaseID: os.Getenv("NOTION_REVIEW_DBID"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         util.EnvOrDefault("LIFELOG_STATE_DIR", DefaultStateDir),
		APIAddr:          util.EnvOrDefault("API_ADDR", DefaultAPIAddr),
	}

	// Memo workspace defaults to the main Notion integration.
	if config.NotionMemoToken == "" {
		config.NotionMemoToken = config.NotionToken
	}

	// Without a database URL, dedup state lives in SQLite under the state
	// directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"LINE_CHANNEL_SECRET_SET", config.ChannelSecret != "",
		"LINE_CHANNEL_ACCESS_TOKEN_SET", config.ChannelToken != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"NOTION_TOKEN_SET", config.NotionToken != "",
		"NOTION_DBID", config.LifeDatabaseID,
		"NOTION_REVIEW_DBID", config.ReviewDatabaseID,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"LIFELOG_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		channelSecret:    flag.String("line-channel-secret", config.ChannelSecret, "LINE channel secret (overrides $LINE_CHANNEL_SECRET)"),
		channelToken:     flag.String("line-channel-token", config.ChannelToken, "LINE channel access token (overrides $LINE_CHANNEL_ACCESS_TOKEN)"),
		openaiKey:        flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		notionToken:      flag.String("notion-token", config.NotionToken, "Notion integration token (overrides $NOTION_TOKEN)"),
		notionMemoToken:  flag.String("notion-memo-token", config.NotionMemoToken, "Notion memo workspace token (overrides $NOTION_MEMO_SECRET)"),
		lifeDatabaseID:   flag.String("notion-dbid", config.LifeDatabaseID, "Notion life5 database ID (overrides $NOTION_DBID)"),
		reviewDatabaseID: flag.String("notion-review-dbid", config.ReviewDatabaseID, "Notion review database ID (overrides $NOTION_REVIEW_DBID)"),
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "dedup database DSN (overrides $DATABASE_URL)"),
		apiAddr:          flag.String("api-addr", config.APIAddr, "webhook server address (overrides $API_ADDR)"),
	}
	flag.Parse()

	slog.Debug("flags parsed",
		"channelSecretSet", *flags.channelSecret != "",
		"channelTokenSet", *flags.channelToken != "",
		"openaiKeySet", *flags.openaiKey != "",
		"notionTokenSet", *flags.notionToken != "",
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// newDedupStore selects the dedup backend from the DSN shape.
func newDedupStore(dsn string) (store.DedupRepo, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// run wires the modules and serves the webhook until the server stops.
func run(flags Flags) error {
	dedup, err := newDedupStore(*flags.dbDSN)
	if err != nil {
		return err
	}

	line, err := messaging.NewLineService(*flags.channelToken)
	if err != nil {
		return err
	}

	ai, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		return err
	}

	recorder, err := notion.NewClient(
		notion.WithToken(*flags.notionToken),
		notion.WithMemoToken(*flags.notionMemoToken),
		notion.WithLifeDatabaseID(*flags.lifeDatabaseID),
		notion.WithReviewDatabaseID(*flags.reviewDatabaseID),
	)
	if err != nil {
		return err
	}

	stateManager := flow.NewInMemoryStateManager()
	memo := flow.NewMemoFlow(stateManager, line, recorder)
	review := flow.NewReviewFlow(stateManager, line, ai, recorder)
	life5 := flow.NewLife5Flow(stateManager, line, ai, recorder)
	router := flow.NewRouter(memo, review, life5, line)

	server, err := api.NewServer(api.Config{
		Addr:          *flags.apiAddr,
		ChannelSecret: *flags.channelSecret,
		Router:        router,
		Messenger:     line,
		Media:         line,
		Transcriber:   ai,
		Dedup:         dedup,
	})
	if err != nil {
		return err
	}

	return server.Run()
}
