package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`
	LogSQL  bool   `json:"log_sql"`

	Database string `json:"database"` // "sqlite3", "postgres" ou "mysql"
	DbPath   string `json:"db_path"`  // só sqlite3
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	// Timezone usado para interpretar "DD/MM/AAAA HH:MM" e para o calendário.
	Timezone string `json:"timezone"`

	Bot struct {
		AgencyName       string `json:"agency_name"`
		ContactText      string `json:"contact_text"`
		ReferencePattern string `json:"reference_pattern"`
		MaxWorkers       int    `json:"max_workers"`
	} `json:"bot"`

	Sessions struct {
		Backend       string `json:"backend"` // "memory" ou "redis"
		RedisURL      string `json:"redis_url"`
		RedisPrefix   string `json:"redis_prefix"`
		IdleMinutes   int    `json:"idle_minutes"`
		SweepInterval int    `json:"sweep_interval_minutes"`
	} `json:"sessions"`

	OpenAI struct {
		ApiKey         string  `json:"api_key"`
		BaseURL        string  `json:"base_url"` // vazio = api.openai.com; ex: http://localhost:11434/v1 (Ollama)
		Model          string  `json:"model"`
		EmbeddingModel string  `json:"embedding_model"`
		SystemPrompt   string  `json:"system_prompt"`
		EnableAnswerer bool    `json:"enable_answerer"`
		EnableRanker   bool    `json:"enable_ranker"`
		EnableManual   bool    `json:"enable_manual"` // manual interno como contexto do answerer
		MinScore       float64 `json:"min_score"`
		ManualMinScore float64 `json:"manual_min_score"`
		TimeoutSeconds int     `json:"timeout_seconds"`
		IndexEvery     int     `json:"index_every_minutes"`
	} `json:"openai"`

	WhatsApp struct {
		AccessToken   string `json:"access_token"`
		PhoneNumberID string `json:"phone_number_id"`
		ApiVersion    string `json:"api_version"`
		VerifyToken   string `json:"verify_token"`
		AppSecret     string `json:"app_secret"`
		NoSend        bool   `json:"no_send"` // POC: guarda a resposta no evento e não envia
	} `json:"whatsapp"`

	Calendar struct {
		Enabled         bool   `json:"enabled"`
		CredentialsFile string `json:"credentials_file"`
		CalendarID      string `json:"calendar_id"`
		DurationMinutes int    `json:"duration_minutes"`
		TimeoutSeconds  int    `json:"timeout_seconds"`
	} `json:"calendar"`

	Security struct {
		JwtSecret      string   `json:"jwt_secret"`
		AdminPassword  string   `json:"admin_password"`
		TokenHours     int      `json:"token_hours"`
		AllowedOrigins []string `json:"allowed_origins"`
	} `json:"security"`
}

// Get lê o arquivo de configuração (JSON), aplica o .env e as variáveis de ambiente por cima
// e completa os defaults. Um arquivo ausente não é fatal: ficam só env + defaults.
func Get(path string) Configuration {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using system env vars")
	}

	var c Configuration
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(b, &c); err != nil {
			log.Fatal(err)
		}
	case os.IsNotExist(err):
		log.Printf("config: %s not found, using env vars and defaults", path)
	default:
		log.Fatal(err)
	}

	c.applyEnv()
	c.applyDefaults()
	return c
}

func (c *Configuration) applyEnv() {
	override(&c.ApiPort, "PORT")
	override(&c.Database, "DATABASE")
	override(&c.DbPath, "DB_PATH")
	override(&c.DbHost, "DB_HOST")
	override(&c.DbPort, "DB_PORT")
	override(&c.DbUser, "DB_USER")
	override(&c.DbName, "DB_NAME")
	override(&c.DbPass, "DB_PASS")
	override(&c.Timezone, "TIMEZONE")

	override(&c.Sessions.Backend, "SESSION_BACKEND")
	override(&c.Sessions.RedisURL, "REDIS_URL")

	override(&c.OpenAI.ApiKey, "OPENAI_API_KEY")
	override(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	override(&c.OpenAI.Model, "OPENAI_MODEL")
	override(&c.OpenAI.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	override(&c.OpenAI.SystemPrompt, "OPENAI_SYSTEM_PROMPT")
	if v := strings.TrimSpace(os.Getenv("RAG_MIN_SCORE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= -1 && f <= 1 {
			c.OpenAI.MinScore = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RAG_MANUAL_MIN_SCORE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= -1 && f <= 1 {
			c.OpenAI.ManualMinScore = f
		}
	}

	override(&c.WhatsApp.AccessToken, "WHATSAPP_ACCESS_TOKEN")
	override(&c.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	override(&c.WhatsApp.VerifyToken, "WEBHOOK_VERIFY_TOKEN")
	override(&c.WhatsApp.AppSecret, "WEBHOOK_APP_SECRET")
	if strings.EqualFold(strings.TrimSpace(os.Getenv("POC_NO_WHATSAPP")), "true") {
		c.WhatsApp.NoSend = true
	}

	override(&c.Calendar.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	override(&c.Security.JwtSecret, "JWT_SECRET")
	override(&c.Security.AdminPassword, "ADMIN_PASSWORD")
}

func (c *Configuration) applyDefaults() {
	// defaults (pra evitar nil/zero chato)
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.DbPath == "" {
		c.DbPath = "db/inmobiliaria.db"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Madrid"
	}

	if c.Bot.AgencyName == "" {
		c.Bot.AgencyName = "nuestra inmobiliaria"
	}
	if c.Bot.ContactText == "" {
		c.Bot.ContactText = "Oficina abierta de lunes a sábado de 9:00 a 20:00."
	}
	if c.Bot.MaxWorkers <= 0 {
		c.Bot.MaxWorkers = 8
	}

	if c.Sessions.Backend == "" {
		c.Sessions.Backend = "memory"
	}
	if c.Sessions.RedisURL == "" {
		c.Sessions.RedisURL = "localhost:6379"
	}
	if c.Sessions.RedisPrefix == "" {
		c.Sessions.RedisPrefix = "inmobot:session:"
	}
	if c.Sessions.IdleMinutes <= 0 {
		c.Sessions.IdleMinutes = 60
	}
	if c.Sessions.SweepInterval <= 0 {
		c.Sessions.SweepInterval = 10
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4.1-mini"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.MinScore == 0 {
		c.OpenAI.MinScore = 0.3
	}
	if c.OpenAI.ManualMinScore == 0 {
		c.OpenAI.ManualMinScore = 0.5
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = 20
	}
	if c.OpenAI.IndexEvery <= 0 {
		c.OpenAI.IndexEvery = 30
	}

	if c.WhatsApp.ApiVersion == "" {
		c.WhatsApp.ApiVersion = "v20.0"
	}

	if c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = "primary"
	}
	if c.Calendar.DurationMinutes <= 0 {
		c.Calendar.DurationMinutes = 60
	}
	if c.Calendar.TimeoutSeconds <= 0 {
		c.Calendar.TimeoutSeconds = 10
	}

	if c.Security.JwtSecret == "" {
		c.Security.JwtSecret = "CHANGE_ME"
	}
	if c.Security.TokenHours <= 0 {
		c.Security.TokenHours = 12
	}
}

// Location resolves Timezone, falling back to UTC when the zone is unknown.
func (c Configuration) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func (c Configuration) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

func (c Configuration) CalendarTimeout() time.Duration {
	return time.Duration(c.Calendar.TimeoutSeconds) * time.Second
}

func (c Configuration) SessionIdle() time.Duration {
	return time.Duration(c.Sessions.IdleMinutes) * time.Minute
}

func override(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
