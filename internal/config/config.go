package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort    string
	StorageDriver string

	// RedisURL is optional. Without it comment events are not published and
	// the reconcile worker does not run.
	RedisURL    string
	WorkerCount int

	// JWTSecret is optional. When empty the bearer token is taken as the
	// user id as-is.
	JWTSecret string

	AuthorCacheSize int
	AuthorCacheTTL  time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// ExpoPushEnabled turns on Expo pushes; Expo needs no credentials.
	ExpoPushEnabled bool
	ExpoPushURL     string

	FCMProjectID   string
	FCMClientEmail string
	FCMPrivateKey  string

	DefaultAvatarURL   string
	CORSAllowedOrigins []string

	// AdminUserIDs are granted the admin role at startup.
	AdminUserIDs []string
}

const defaultAvatarURL = "https://cdn-icons-png.flaticon.com/512/149/149071.png"

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	storageDriver := strings.ToLower(os.Getenv("STORAGE_DRIVER"))
	if storageDriver != StorageMemory {
		storageDriver = StoragePostgres
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	cacheSize, err := strconv.Atoi(os.Getenv("AUTHOR_CACHE_SIZE"))
	if err != nil || cacheSize <= 0 {
		cacheSize = 1000
	}

	cacheTTL, err := strconv.Atoi(os.Getenv("AUTHOR_CACHE_TTL_SECONDS"))
	if err != nil || cacheTTL <= 0 {
		cacheTTL = 300
	}

	avatar := os.Getenv("DEFAULT_AVATAR_URL")
	if avatar == "" {
		avatar = defaultAvatarURL
	}

	expoEnabled, _ := strconv.ParseBool(os.Getenv("EXPO_PUSH_ENABLED"))

	origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  sslMode,

		ServerPort:    serverPort,
		StorageDriver: storageDriver,

		RedisURL:    os.Getenv("REDIS_URL"),
		WorkerCount: workerCount,

		JWTSecret: os.Getenv("JWT_SECRET"),

		AuthorCacheSize: cacheSize,
		AuthorCacheTTL:  time.Duration(cacheTTL) * time.Second,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		ExpoPushEnabled: expoEnabled,
		ExpoPushURL:     os.Getenv("EXPO_PUSH_URL"),

		FCMProjectID:   os.Getenv("FCM_PROJECT_ID"),
		FCMClientEmail: os.Getenv("FCM_CLIENT_EMAIL"),
		FCMPrivateKey:  os.Getenv("FCM_PRIVATE_KEY"),

		DefaultAvatarURL:   avatar,
		CORSAllowedOrigins: origins,

		AdminUserIDs: splitList(os.Getenv("ADMIN_USER_IDS")),
	}, nil
}

// MediaEnabled reports whether every R2 setting needed for presigning is present.
func (c *Config) MediaEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

// FCMEnabled reports whether Firebase service-account settings are present.
func (c *Config) FCMEnabled() bool {
	return c.FCMProjectID != "" && c.FCMClientEmail != "" && c.FCMPrivateKey != ""
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
