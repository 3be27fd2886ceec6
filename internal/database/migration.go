package database

import (
	"fmt"
	"time"

	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/logger"
	"github.com/wfunc/casino-builder/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 需要迁移的模型
var migrationModels = []interface{}{
	&models.Casino{},
	&models.SpinRecord{},
	&models.SessionState{},
}

// 额外索引：表名 -> 索引名 -> 列
var extraIndexes = []struct {
	table   string
	name    string
	columns string
}{
	{"spin_records", "idx_spin_records_casino_strategy", "casino_id, strategy"},
	{"spin_records", "idx_spin_records_created_at", "created_at"},
	{"casinos", "idx_casinos_updated_at", "updated_at"},
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return apperrors.New(apperrors.ErrDatabaseConnect, "数据库未初始化")
	}
	log := logger.GetModuleLogger(logger.ModuleDatabase)

	// SQLite 文件库使用迁移锁，避免多个进程同时迁移
	if path := sqliteFilePath(db); path != "" {
		CleanupStaleLocks(path)
		lockFile, err := acquireMigrationLock(path)
		if err != nil {
			log.Error("无法获取迁移锁", zap.Error(err))
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "获取迁移锁失败")
		}
		defer releaseMigrationLock(lockFile)
	}

	log.Info("开始数据库迁移...")
	for _, model := range migrationModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return apperrors.Wrapf(err, apperrors.ErrDatabaseUpdate, "迁移 %T 失败", model)
		}
		log.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes(db, log)

	log.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引，失败只记录警告
func createIndexes(db *gorm.DB, log *zap.Logger) {
	for _, idx := range extraIndexes {
		sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.name, idx.table, idx.columns)
		start := time.Now()
		err := db.Exec(sql).Error
		logger.LogDatabaseOperation("create_index", idx.table, time.Since(start), err)
		if err != nil {
			log.Warn("创建索引失败", zap.String("index", idx.name), zap.Error(err))
		}
	}
}

// DropAllTables 删除所有业务表（仅用于测试环境）
func DropAllTables(db *gorm.DB) error {
	for i := len(migrationModels) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(migrationModels[i]); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseDelete, "删除表失败")
		}
	}
	return nil
}
