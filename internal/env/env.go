package env

import (
	"os"
)

// Prefix is prepended to every configuration key read from the environment.
const Prefix = "AICHATBOT"

const (
	ConfigFile     = "AICHATBOT_CONFIG"
	WidgetID       = "AICHATBOT_WIDGET_ID"
	APIURL         = "AICHATBOT_API_URL"
	StorageDriver  = "AICHATBOT_STORAGE_DRIVER"
	SQLitePath     = "AICHATBOT_STORAGE_SQLITE_PATH"
	RedisAddr      = "AICHATBOT_STORAGE_REDIS_ADDR"
	RedisPass      = "AICHATBOT_STORAGE_REDIS_PASSWORD"
	DynamoTable    = "AICHATBOT_STORAGE_DYNAMO_TABLE"
	AWSRegion      = "AWS_REGION"
	AWSID          = "AWS_ACCESS_KEY_ID"
	AWSSecret      = "AWS_SECRET_ACCESS_KEY"
	AWSToken       = "AWS_SESSION_TOKEN"
	DynamoEndpoint = "DYNAMODB_ENDPOINT"
	JWTSecret      = "AICHATBOT_MOCKAPI_JWT_SECRET"
	AdminPassword  = "AICHATBOT_MOCKAPI_ADMIN_PASSWORD"
	LogLevel       = "AICHATBOT_LOG_LEVEL"
)

// Bindings maps dotted configuration keys to the environment variables that
// override them when the generic AICHATBOT_ prefix rule is not enough.
var Bindings = map[string]string{
	"widget.id":              WidgetID,
	"widget.api_url":         APIURL,
	"storage.driver":         StorageDriver,
	"storage.sqlite_path":    SQLitePath,
	"storage.redis_addr":     RedisAddr,
	"storage.redis_password": RedisPass,
	"storage.dynamo_table":   DynamoTable,
	"aws.region":             AWSRegion,
	"aws.access_key_id":      AWSID,
	"aws.secret_access_key":  AWSSecret,
	"aws.session_token":      AWSToken,
	"aws.endpoint":           DynamoEndpoint,
	"mockapi.jwt_secret":     JWTSecret,
	"mockapi.admin_password": AdminPassword,
	"log.level":              LogLevel,
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
