package config

import "github.com/spf13/viper"

type Config struct {
	UpbitAPIBase string `mapstructure:"UPBIT_API_BASE"`
	Port         string `mapstructure:"PORT"`
	DB_DSN       string `mapstructure:"DB_DSN"`
	NatsURL      string `mapstructure:"NATS_URL"`
	ChartDir     string `mapstructure:"CHART_DIR"`
	ChartBaseURL string `mapstructure:"CHART_BASE_URL"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`
}

func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("UPBIT_API_BASE", "https://api.upbit.com/v1")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("CHART_DIR", "./charts")
	viper.SetDefault("CHART_BASE_URL", "")
	viper.SetDefault("LOG_LEVEL", "info")

	err = viper.ReadInConfig()
	// If config file not found, we can still use env vars
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	}

	if err != nil {
		return Config{}, err
	}
	err = viper.Unmarshal(&config)
	return
}
