package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`

	AuthorityURL string `mapstructure:"authority_url"`
	OracleURL    string `mapstructure:"oracle_url"`
	// LookupTimeout bounds every authority/oracle call; on expiry the
	// operation fails closed.
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`

	// StudentLead: how long before lesson start a student may join.
	// Short in production, long in dev configs to ease testing.
	StudentLead time.Duration `mapstructure:"student_lead"`
	// TeacherLead: 0 leaves teachers unrestricted.
	TeacherLead time.Duration `mapstructure:"teacher_lead"`

	OpenRoomCapacity int           `mapstructure:"open_room_capacity"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	// ReconnectPolicy: evict | deny, see gateway.ReconnectPolicy.
	ReconnectPolicy string `mapstructure:"reconnect_policy"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("issuer", "lingora")
	v.SetDefault("lookup_timeout", "3s")
	v.SetDefault("student_lead", "15m")
	v.SetDefault("teacher_lead", "0s")
	v.SetDefault("open_room_capacity", 5)
	v.SetDefault("sweep_interval", "5m")
	v.SetDefault("reconnect_policy", "evict")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	return &cfg, nil
}
