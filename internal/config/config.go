package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	Server   ServerConfig
	Sheets   SheetsConfig
	Telegram TelegramConfig
	Vision   VisionConfig
	Rabbit   RabbitConfig
	SMTP     SMTPConfig
}

type ServerConfig struct {
	Port string `env:"PORT" env-default:"4000"`
}

type SheetsConfig struct {
	SpreadsheetID   string `env:"SPREADSHEET_ID" env-required:"true"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" env-required:"true"`
	DefaultTab      string `env:"SHEET_DEFAULT_TAB" env-default:"Registros"`
}

type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN" env-required:"true"`
	ChatID   int64  `env:"TELEGRAM_CHAT_ID" env-required:"true"`
}

type VisionConfig struct {
	APIKey string `env:"GEMINI_API_KEY" env-required:"true"`
	Model  string `env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`
}

// RabbitConfig is optional: when URL is empty the async e-mail pipeline is off.
type RabbitConfig struct {
	URL      string `env:"RABBIT_URL"`
	Exchange string `env:"RABBIT_EXCHANGE" env-default:"registrations"`
	Queue    string `env:"RABBIT_QUEUE" env-default:"registration-emails"`
}

type SMTPConfig struct {
	Addr     string `env:"SMTP_ADDR"`
	From     string `env:"SMTP_FROM"`
	Password string `env:"SMTP_PASSWORD"`
}

func (c RabbitConfig) Enabled() bool {
	return c.URL != ""
}

func (c SMTPConfig) Enabled() bool {
	return c.Addr != "" && c.From != ""
}

// MustLoad reads the environment (plus an optional .env file) and refuses to
// start when a required credential is missing.
func MustLoad(log *zerolog.Logger) *Config {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to read configuration from environment")
	}
	return &cfg
}
