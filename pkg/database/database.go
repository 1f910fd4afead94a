package database

import (
	"fmt"
	"log"

	"kiosco_escolar_backend/internal/config"
	"kiosco_escolar_backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Curso{},
		&model.Contenido{},
		&model.Progreso{},
		&model.Pregunta{},
		&model.Opcion{},
		&model.Respuesta{},
		&model.Mensaje{},
		&model.RefreshToken{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// Seed a default tutor account so a fresh install can log in.
	var count int64
	db.Model(&model.User{}).Where("role = ?", model.Tutor).Count(&count)
	if count == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte("tutor123"), bcrypt.DefaultCost)
		if err == nil {
			db.Create(&model.User{
				Matricula: "T0001",
				Nombre:    "Tutor Principal",
				Email:     "tutor@kiosco.local",
				Password:  string(hashed),
				Role:      model.Tutor,
			})
		}
	}

	return db, nil
}
