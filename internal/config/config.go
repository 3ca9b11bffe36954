package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	WebSocket WebSocket `mapstructure:"websocket"`
	Game      Game      `mapstructure:"game"`
	Log       Log       `mapstructure:"log"`
	Security  Security  `mapstructure:"security"`
}

// Server 服务器配置
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database 数据库配置
type Database struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WebSocket WebSocket配置
type WebSocket struct {
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// Game 游戏规则配置
// 监狱三振与车站/公用事业租金倍率均为配置项而非硬编码，默认取标准大富翁数值。
type Game struct {
	StartingBalance     int64   `mapstructure:"starting_balance"`      // 开局资金
	PassGoCredit        int64   `mapstructure:"pass_go_credit"`        // 经过GO的奖励
	JailFine            int64   `mapstructure:"jail_fine"`             // 出狱罚金
	JailMaxAttempts     int     `mapstructure:"jail_max_attempts"`     // 掷双失败上限
	MortgageRate        float64 `mapstructure:"mortgage_rate"`         // 抵押可得价款比例
	RailroadRents       []int64 `mapstructure:"railroad_rents"`        // 按持有车站数的租金表
	UtilityMultipliers  []int64 `mapstructure:"utility_multipliers"`   // 按持有公用事业数的骰点倍率
	MinPlayers          int     `mapstructure:"min_players"`
	MaxPlayers          int     `mapstructure:"max_players"`
	CardDrawPolicy      string  `mapstructure:"card_draw_policy"`      // sequential, random
	InstantCashRewards  []int64 `mapstructure:"instant_cash_rewards"`  // 即时奖金档位表
	PropertyDiscount    float64 `mapstructure:"property_discount"`     // 购地折扣特权的折扣率
}

// Log 日志配置
type Log struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFile           `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFile 日志文件配置
type LogFile struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Security 安全配置
type Security struct {
	JWT      JWT      `mapstructure:"jwt"`
	Password Password `mapstructure:"password"`
}

// Password 密码哈希参数（argon2id）
type Password struct {
	Argon2Time     uint32 `mapstructure:"argon2_time"`
	Argon2MemoryKB uint32 `mapstructure:"argon2_memory_kb"`
	Argon2Threads  uint8  `mapstructure:"argon2_threads"`
	Argon2KeyLen   uint32 `mapstructure:"argon2_key_len"`
}

// JWT JWT配置
type JWT struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("TYCOON_GAME")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		err = v.Unmarshal(cfg)
	})

	return err
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
	v.SetDefault("database.dsn", "./data/tycoon-game.db")
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
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")

	// 游戏规则默认配置（标准大富翁数值）
	v.SetDefault("game.starting_balance", 1500)
	v.SetDefault("game.pass_go_credit", 200)
	v.SetDefault("game.jail_fine", 50)
	v.SetDefault("game.jail_max_attempts", 3)
	v.SetDefault("game.mortgage_rate", 0.5)
	v.SetDefault("game.railroad_rents", []int64{25, 50, 100, 200})
	v.SetDefault("game.utility_multipliers", []int64{4, 10})
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.max_players", 6)
	v.SetDefault("game.card_draw_policy", "sequential")
	v.SetDefault("game.instant_cash_rewards", []int64{50, 100, 200, 500})
	v.SetDefault("game.property_discount", 0.5)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "tycoon-game.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 安全默认配置
	v.SetDefault("security.jwt.secret", "change-me")
	v.SetDefault("security.jwt.expire_hours", 24)
	v.SetDefault("security.password.argon2_time", 1)
	v.SetDefault("security.password.argon2_memory_kb", 65536)
	v.SetDefault("security.password.argon2_threads", 4)
	v.SetDefault("security.password.argon2_key_len", 32)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// DefaultGame 返回默认游戏规则配置（测试与未初始化场景使用）
func DefaultGame() *Game {
	return &Game{
		StartingBalance:    1500,
		PassGoCredit:       200,
		JailFine:           50,
		JailMaxAttempts:    3,
		MortgageRate:       0.5,
		RailroadRents:      []int64{25, 50, 100, 200},
		UtilityMultipliers: []int64{4, 10},
		MinPlayers:         2,
		MaxPlayers:         6,
		CardDrawPolicy:     "sequential",
		InstantCashRewards: []int64{50, 100, 200, 500},
		PropertyDiscount:   0.5,
	}
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载")
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

// GetBool 获取布尔配置
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}
