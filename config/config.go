package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"linknexy/models"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	Redis     *redis.Client
	AppConfig Config
)

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

// LinkedInConfig points at the automation provider that fronts the
// connected LinkedIn accounts.
type LinkedInConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"`
}

// SchedulerConfig carries the two daily trigger cadences as cron
// expressions so tests and deployments can move them without a rebuild.
type SchedulerConfig struct {
	CampaignCron string `json:"campaign_cron"`
	SyncCron     string `json:"sync_cron"`
}

type Config struct {
	Environment       string          `json:"environment"`
	ServerPort        string          `json:"server_port"`
	DBHost            string          `json:"db_host"`
	DBPort            string          `json:"db_port"`
	DBUser            string          `json:"db_user"`
	DBPassword        string          `json:"-"`
	DBName            string          `json:"db_name"`
	DBSSLMode         string          `json:"db_ssl_mode"`
	DBMaxIdleConns    int             `json:"db_max_idle_conns"`
	DBMaxOpenConns    int             `json:"db_max_open_conns"`
	Redis             RedisConfig     `json:"redis"`
	LinkedIn          LinkedInConfig  `json:"linkedin"`
	Scheduler         SchedulerConfig `json:"scheduler"`
	SentryDSN         string          `json:"-"`
	PipelineAPIKey    string          `json:"-"`
	RateLimitDispatch int             `json:"rate_limit_dispatch"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "linknexy"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		LinkedIn: LinkedInConfig{
			BaseURL: getEnv("LINKEDIN_API_BASE_URL", ""),
			APIKey:  getEnv("LINKEDIN_API_KEY", ""),
		},

		// 9:00 UTC for outreach, 9:30 UTC for the sync-only pass
		Scheduler: SchedulerConfig{
			CampaignCron: getEnv("SCHEDULER_CAMPAIGN_CRON", "0 9 * * *"),
			SyncCron:     getEnv("SCHEDULER_SYNC_CRON", "30 9 * * *"),
		},

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		PipelineAPIKey:    getEnv("PIPELINE_API_KEY", ""),
		RateLimitDispatch: getEnvAsInt("RATE_LIMIT_DISPATCH", 5),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.LinkedIn.BaseURL == "" {
		return fmt.Errorf("LINKEDIN_API_BASE_URL is required")
	}
	if AppConfig.LinkedIn.APIKey == "" {
		return fmt.Errorf("LINKEDIN_API_KEY is required")
	}
	if AppConfig.Environment == "production" && AppConfig.PipelineAPIKey == "" {
		return fmt.Errorf("PIPELINE_API_KEY is required in production")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

func ConnectRedis() error {
	Redis = redis.NewClient(&redis.Options{
		Addr:     AppConfig.Redis.Address,
		Password: AppConfig.Redis.Password,
		DB:       AppConfig.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to redis")
	return nil
}

// MigrateDB runs the schema migration for all pipeline models.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserSettings{},
		&models.LinkedInAccount{},
		&models.Campaign{},
		&models.Prospect{},
		&models.CampaignProspect{},
		&models.PendingAction{},
		&models.ActivityLog{},
	)
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Scheduler: campaigns %q, sync %q",
		AppConfig.Scheduler.CampaignCron,
		AppConfig.Scheduler.SyncCron)
}
