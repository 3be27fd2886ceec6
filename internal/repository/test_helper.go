package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/casino-builder/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建迁移好的内存数据库
func SetupTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库每个连接独立，限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Casino{},
		&models.SpinRecord{},
		&models.SessionState{},
	))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestCasino 创建测试赌场配置
func CreateTestCasino(name string) *models.Casino {
	return &models.Casino{
		Name:        name,
		Description: "测试赌场: " + name,
		Owner:       "tester",
		Theme: models.CasinoTheme{
			PrimaryColor: "#1a1a2e",
			AccentColor:  "#e94560",
			Layout:       "neon",
			SoundPack:    "arcade",
		},
		Slots: models.SlotSettings{
			ReelCount:         5,
			Symbols:           []string{"🍒", "🍋", "🍊", "🍇", "7️⃣", "⭐", "💎"},
			StripRepeat:       3,
			AllowedStrategies: []string{"basicStandard", "tease", "cascade"},
			MinBet:            1,
			MaxBet:            50,
		},
	}
}
