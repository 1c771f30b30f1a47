package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"inmobot/config"
	"inmobot/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var conf config.Configuration

func SetConfigurations(configuration config.Configuration) {
	conf = configuration
}

// Connect abre conexão com DB (sqlite3 por padrão) e faz automigrate básico.
// Para habilitar automigrate fora do sqlite, exporte AUTOMIGRATE=1.
func Connect() (*gorm.DB, error) {
	database := conf.Database
	if database == "" {
		database = "sqlite3"
	}

	var (
		db  *gorm.DB
		err error
	)

	switch database {
	case "postgres", "postgresql":
		log.Println("db: using postgresql")
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass + " sslmode=disable"
		db, err = gorm.Open("postgres", path)
	case "mysql":
		log.Println("db: using mysql")
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			conf.DbUser, conf.DbPass, conf.DbHost, conf.DbPort, conf.DbName)
		db, err = gorm.Open("mysql", dsn)
	default:
		log.Println("db: using sqlite3")
		if dir := filepath.Dir(conf.DbPath); dir != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
		db, err = gorm.Open("sqlite3", conf.DbPath)
		if err == nil {
			// sqlite serializa escritas; uma conexão evita "database is locked".
			db.DB().SetMaxOpenConns(1)
		}
	}

	if err != nil {
		log.Println("db: connect error: " + err.Error())
		return nil, err
	}

	db.LogMode(conf.LogSQL)

	if database == "sqlite3" || getenv("AUTOMIGRATE", "0") == "1" {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate creates or updates the tables used by the bot.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Listing{},
		&models.Visit{},
		&models.Event{},
		&models.ManualChunk{},
	).Error
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
