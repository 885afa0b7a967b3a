package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the connection pool. Driver errors such as unique violations
// are translated into gorm errors so callers can match gorm.ErrDuplicatedKey.
func Connect(databaseURL string) (*gorm.DB, error) {
	return Open(postgres.Open(databaseURL))
}

// Open is Connect for an arbitrary dialector.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return db, nil
}

// Models lists every table owned by this service, parents first.
func Models() []any {
	return []any{
		&Gender{},
		&Cohort{},
		&Track{},
		&Role{},
		&WorkingSector{},
		&Country{},
		&State{},
		&District{},
		&Sector{},
		&ProfileImage{},
		&Organization{},
		&User{},
		&Notification{},
		&WorkerJob{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
