package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var C *gorm.DB

func NewGorm() error {
	dsn := viper.GetString("database.dsn")

	var dialector gorm.Dialector
	switch driver := viper.GetString("database.driver"); driver {
	case "", "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	source, err := Open(dialector, viper.GetString("database.prefix"), viper.GetBool("debug.database"))
	if err != nil {
		return err
	}

	C = source
	return nil
}

func Open(dialector gorm.Dialector, prefix string, debug bool) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: prefix,
		},
		Logger: logger.New(&log.Logger, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			Colorful:                  true,
			IgnoreRecordNotFoundError: true,
			LogLevel:                  lo.Ternary(debug, logger.Info, logger.Silent),
		}),
	})
}
