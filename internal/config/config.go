package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8000"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"1"`

	JWTSecret            string `env:"SECRET_KEY"`
	JWTAccessTTLMinutes  int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"60"`
	JWTRefreshTTLMinutes int    `env:"REFRESH_TOKEN_EXPIRE_MINUTES" envDefault:"10080"`
	CookieSecure         bool   `env:"COOKIE_SECURE" envDefault:"false"`

	LLMAPIKey          string `env:"LLM_API_KEY"`
	LLMBaseURL         string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel           string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMClassifierModel string `env:"LLM_CLASSIFIER_MODEL" envDefault:"gpt-4o-mini"`

	WhatsAppProvider     string `env:"WHATSAPP_PROVIDER" envDefault:"twilio"`
	TwilioAccountSID     string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `env:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppNumber string `env:"TWILIO_WHATSAPP_NUMBER"`
	// TwilioValidateSignature exige X-Twilio-Signature en POST /webhook/.
	// TwilioWebhookURL es la URL pública exacta configurada en la consola.
	TwilioValidateSignature bool   `env:"TWILIO_VALIDATE_SIGNATURE" envDefault:"false"`
	TwilioWebhookURL        string `env:"TWILIO_WEBHOOK_URL"`
	WhatsAppToken        string `env:"WHATSAPP_TOKEN"`
	PhoneNumberID        string `env:"PHONE_NUMBER_ID"`
	WhatsAppAPIVersion   string `env:"WHATSAPP_API_VERSION" envDefault:"v19.0"`
	VerifyToken          string `env:"VERIFY_TOKEN"`

	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173"`
	APIRateLimit       int           `env:"API_RATE_LIMIT" envDefault:"100"`
	APIRateLimitWindow time.Duration `env:"API_RATE_LIMIT_WINDOW" envDefault:"60s"`
	LoginRateLimit     int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	PaymentLinkBaseURL string        `env:"PAYMENT_LINK_BASE_URL" envDefault:"https://pagos.example.com/pay"`
	PaymentLinkTTL     time.Duration `env:"PAYMENT_LINK_TTL" envDefault:"24h"`

	WebhookWorkers          int           `env:"WEBHOOK_WORKERS" envDefault:"4"`
	WebhookQueueSize        int           `env:"WEBHOOK_QUEUE_SIZE" envDefault:"100"`
	CampaignSendConcurrency int           `env:"CAMPAIGN_SEND_CONCURRENCY" envDefault:"5"`
	CampaignLaunchTimeout   time.Duration `env:"CAMPAIGN_LAUNCH_TIMEOUT" envDefault:"15m"`
	UploadMaxBytes          int64         `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
