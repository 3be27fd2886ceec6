package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Security  SecurityConfig  `mapstructure:"security"`
	System    SystemConfig    `mapstructure:"system"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path              string        `mapstructure:"path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	SendBuffer        int           `mapstructure:"send_buffer"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// GameConfig 游戏配置
type GameConfig struct {
	Slots      SlotsConfig      `mapstructure:"slots"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	SFX        SFXConfig        `mapstructure:"sfx"`
}

// SlotsConfig 老虎机卷轴配置
type SlotsConfig struct {
	ReelCount         int           `mapstructure:"reel_count"`
	Symbols           []string      `mapstructure:"symbols"`
	StripRepeat       int           `mapstructure:"strip_repeat"`
	Timing            TimingConfig  `mapstructure:"timing"`
	AllowedStrategies []string      `mapstructure:"allowed_strategies"`
	MinBet            float64       `mapstructure:"min_bet"`
	MaxBet            float64       `mapstructure:"max_bet"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	MaxSessions       int           `mapstructure:"max_sessions"`
}

// TimingConfig 卷轴时序配置
type TimingConfig struct {
	BaseDelay          time.Duration `mapstructure:"base_delay"`
	Stagger            time.Duration `mapstructure:"stagger"`
	NearMissPause      time.Duration `mapstructure:"near_miss_pause"`
	CascadeInterval    time.Duration `mapstructure:"cascade_interval"`
	SimultaneousWindow time.Duration `mapstructure:"simultaneous_window"`
}

// SettlementConfig 结算配置
type SettlementConfig struct {
	Mode     string        `mapstructure:"mode"` // demo, remote
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	APIKey   string        `mapstructure:"api_key"`
	DemoSeed uint64        `mapstructure:"demo_seed"` // 0表示按时间播种
}

// SFXConfig 音效配置
type SFXConfig struct {
	Enabled   bool                     `mapstructure:"enabled"`
	Cooldowns map[string]time.Duration `mapstructure:"cooldowns"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MonitorConfig 监控配置
type MonitorConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	Timezone string      `mapstructure:"timezone"`
	Cache    CacheConfig `mapstructure:"cache"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化全局配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = newViper(configPath)
		var loaded *Config
		loaded, err = load(v)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})
	return err
}

// Load 读取一份独立的配置，不影响全局实例
func Load(configPath string) (*Config, error) {
	return load(newViper(configPath))
}

func newViper(configPath string) *viper.Viper {
	nv := viper.New()

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath("./config")
		nv.AddConfigPath(".")
	}

	nv.SetEnvPrefix("CASINO")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	setDefaults(nv)
	return nv
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigLoad)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigParse)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/casino-builder.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// WebSocket默认配置
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.enable_compression", false)

	// 卷轴默认配置
	v.SetDefault("game.slots.reel_count", 5)
	v.SetDefault("game.slots.symbols", []string{"🍒", "🍋", "🍊", "🍇", "7️⃣", "⭐", "💎"})
	v.SetDefault("game.slots.strip_repeat", 3)
	v.SetDefault("game.slots.timing.base_delay", "1s")
	v.SetDefault("game.slots.timing.stagger", "200ms")
	v.SetDefault("game.slots.timing.near_miss_pause", "800ms")
	v.SetDefault("game.slots.timing.cascade_interval", "80ms")
	v.SetDefault("game.slots.timing.simultaneous_window", "120ms")
	v.SetDefault("game.slots.allowed_strategies", []string{})
	v.SetDefault("game.slots.min_bet", 1)
	v.SetDefault("game.slots.max_bet", 100)
	v.SetDefault("game.slots.session_timeout", "30m")
	v.SetDefault("game.slots.cleanup_interval", "1m")
	v.SetDefault("game.slots.max_sessions", 1000)

	// 结算默认配置
	v.SetDefault("game.settlement.mode", "demo")
	v.SetDefault("game.settlement.timeout", "5s")
	v.SetDefault("game.settlement.demo_seed", 0)

	// 音效默认配置
	v.SetDefault("game.sfx.enabled", true)
	v.SetDefault("game.sfx.cooldowns", map[string]string{
		"spin":     "300ms",
		"reelStop": "40ms",
		"nearMiss": "1s",
		"win":      "500ms",
		"bigWin":   "2s",
		"jackpot":  "5s",
	})

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "casino-builder.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 监控默认配置
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.metrics_path", "/metrics")

	// 安全默认配置
	v.SetDefault("security.jwt.secret", "change-me-in-production")
	v.SetDefault("security.jwt.issuer", "casino-builder")
	v.SetDefault("security.jwt.expire_hours", 24*30)

	// 系统默认配置
	v.SetDefault("system.timezone", "Local")
	v.SetDefault("system.cache.enabled", true)
	v.SetDefault("system.cache.size", 256)
	v.SetDefault("system.cache.ttl", "5m")
}

// Validate 校验配置
func (c *Config) Validate() error {
	slots := c.Game.Slots
	switch {
	case slots.ReelCount < 1:
		return apperrors.Newf(apperrors.ErrConfigValidate, "game.slots.reel_count必须大于0: %d", slots.ReelCount)
	case len(slots.Symbols) == 0:
		return apperrors.New(apperrors.ErrConfigValidate, "game.slots.symbols不能为空")
	case slots.MinBet <= 0:
		return apperrors.Newf(apperrors.ErrConfigValidate, "game.slots.min_bet必须大于0: %v", slots.MinBet)
	case slots.MaxBet < slots.MinBet:
		return apperrors.Newf(apperrors.ErrConfigValidate, "game.slots.max_bet小于min_bet: %v < %v", slots.MaxBet, slots.MinBet)
	}

	settlement := c.Game.Settlement
	switch settlement.Mode {
	case "demo":
	case "remote":
		if settlement.BaseURL == "" {
			return apperrors.New(apperrors.ErrConfigMissing, "remote结算需要game.settlement.base_url")
		}
	default:
		return apperrors.Newf(apperrors.ErrConfigValidate, "未知的结算模式: %s", settlement.Mode)
	}
	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Printf("配置已重新加载: %s\n", e.Name)
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}
