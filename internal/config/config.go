package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the agreements backend.
type Config struct {
	Addr    string `env:"ADDR,default=:8080"`
	DBDSN   string `env:"DB_DSN,required"`
	NATSURL string `env:"NATS_URL"`

	AuthSigningKey string `env:"AUTH_SIGNING_KEY,required"`

	S3Endpoint       string `env:"S3_ENDPOINT,required"`
	S3Region         string `env:"S3_REGION,default=us-east-1"`
	S3AccessKey      string `env:"S3_ACCESS_KEY,required"`
	S3SecretKey      string `env:"S3_SECRET_KEY,required"`
	S3Bucket         string `env:"S3_BUCKET,default=agreements"`
	S3PublicBaseURL  string `env:"S3_PUBLIC_BASE_URL"`
	S3DisableTLS     bool   `env:"S3_DISABLE_TLS,default=false"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE,default=true"`

	AppBaseURL string `env:"APP_BASE_URL,default=https://app.my-agreements.com"`

	BillingAPIURL        string `env:"BILLING_API_URL,default=https://api.lemonsqueezy.com/v1"`
	BillingAPIKey        string `env:"BILLING_API_KEY"`
	BillingStoreID       string `env:"BILLING_STORE_ID"`
	BillingWebhookSecret string `env:"BILLING_WEBHOOK_SECRET"`
	// SubscriptionGating toggles plan quota enforcement on create/share.
	SubscriptionGating bool   `env:"SUBSCRIPTION_GATING,default=true"`
	PlanTablePath      string `env:"PLAN_TABLE_PATH"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL,default=gpt-4o"`

	MailAPIURL   string `env:"MAIL_API_URL,default=https://api.zeptomail.com/v1.1/email"`
	MailAPIKey   string `env:"MAIL_API_KEY"`
	MailFrom     string `env:"MAIL_FROM,default=noreply@my-agreements.com"`
	MailFromName string `env:"MAIL_FROM_NAME,default=My Agreements"`

	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=https://app.my-agreements.com"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=60s"`
	// EnableCron runs the expiry sweep and status reconciliation in-process.
	// Disable when an external scheduler invokes the /jobs endpoints instead.
	EnableCron bool `env:"ENABLE_CRON,default=true"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
