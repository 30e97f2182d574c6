package config

import (
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v8"
)

type Config struct {
	Address        string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	WebhookAddress string `env:"NOTIFY_WEBHOOK_ADDRESS"`
	KafkaBrokers   string `env:"NOTIFY_KAFKA_BROKERS"`
	KafkaTopic     string `env:"NOTIFY_KAFKA_TOPIC" envDefault:"order-status-events"`
}

func NewConfig() (Config, error) {
	config := Config{}

	config.parseFlags()

	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	if err := config.validateConfig(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) parseFlags() {
	flag.StringVar(&c.Address, "a", c.Address, "Service address")
	flag.StringVar(&c.DatabaseURI, "d", c.DatabaseURI, "Database URI")
	flag.StringVar(&c.WebhookAddress, "w", c.WebhookAddress, "Status-event webhook address")
	flag.StringVar(&c.KafkaBrokers, "k", c.KafkaBrokers, "Status-event kafka brokers, comma separated")
	flag.StringVar(&c.KafkaTopic, "t", c.KafkaTopic, "Status-event kafka topic")

	flag.Parse()
}

func (c *Config) validateConfig() error {
	if c.Address == "" {
		return fmt.Errorf("service address is required")
	}

	if c.DatabaseURI == "" {
		return fmt.Errorf("database URI is required")
	}

	if c.WebhookAddress != "" {
		if _, err := url.ParseRequestURI(c.WebhookAddress); err != nil {
			return err
		}
	}

	return nil
}

// BrokerList splits the comma-separated broker config.
func (c *Config) BrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}

	brokers := make([]string, 0)
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}
