// Package database 数据库初始化
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smysle/sakura-dvr-go/internal/config"
	"github.com/smysle/sakura-dvr-go/internal/database/models"
	"github.com/smysle/sakura-dvr-go/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接
func Init(cfg *config.DatabaseConfig) error {
	// 配置 GORM
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
				return fmt.Errorf("创建数据库目录失败: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormConfig)
		if err == nil {
			// sqlite 默认不启用外键约束，级联删除依赖它
			db.Exec("PRAGMA foreign_keys = ON")
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接池失败: %w", err)
	}

	// 配置连接池
	if cfg.Driver == "mysql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// sqlite 单写者
		sqlDB.SetMaxOpenConns(1)
	}

	// 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	DB = db
	logger.Info().Str("driver", cfg.Driver).Msg("数据库连接成功")
	return nil
}

// autoMigrate 自动迁移表结构
// 顺序遵循外键依赖：Lineup → Station → Program → Schedule → Recording
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Lineup{},
		&models.Station{},
		&models.Program{},
		&models.Schedule{},
		&models.Recording{},
		&models.SyncStatus{},
	)
}

// Close 关闭数据库连接
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return DB
}
