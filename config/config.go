package config

import (
	"strings"
	"time"
)

// Config contains all application settings
type Config struct {
	BindPort    int    `mapstructure:"PORT" yaml:"port"`
	BindHost    string `mapstructure:"HOST" yaml:"host"`
	MetricsPort int    `mapstructure:"METRICS_PORT" yaml:"metrics_port"`

	DatabaseURL   string `mapstructure:"DATABASE_URL" yaml:"database_url"`
	NATSServerURL string `mapstructure:"NATS_URL" yaml:"nats_url"`
	NotifySubject string `mapstructure:"NOTIFY_SUBJECT" yaml:"notify_subject"`

	// StoreBackend selects the anomaly record store: memory, postgres
	// or redis.
	StoreBackend string `mapstructure:"STORE_BACKEND" yaml:"store_backend"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"REDIS_DB" yaml:"redis_db"`

	KafkaBrokers       string `mapstructure:"KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaTopic         string `mapstructure:"KAFKA_TOPIC" yaml:"kafka_topic"`
	KafkaDetectorGroup string `mapstructure:"KAFKA_DETECTOR_GROUP" yaml:"kafka_detector_group"`
	KafkaArchiverGroup string `mapstructure:"KAFKA_ARCHIVER_GROUP" yaml:"kafka_archiver_group"`

	Threshold           int64         `mapstructure:"THRESHOLD" yaml:"threshold"`
	DetectorWorkers     int           `mapstructure:"DETECTOR_WORKERS" yaml:"detector_workers"`
	DetectorMaxAttempts int           `mapstructure:"DETECTOR_MAX_ATTEMPTS" yaml:"detector_max_attempts"`
	DetectorRetryDelay  time.Duration `mapstructure:"DETECTOR_RETRY_DELAY" yaml:"detector_retry_delay"`

	ClickHouseAddr     string `mapstructure:"CLICKHOUSE_ADDR" yaml:"clickhouse_addr"`
	ClickHouseDatabase string `mapstructure:"CLICKHOUSE_DATABASE" yaml:"clickhouse_database"`
	ClickHouseUsername string `mapstructure:"CLICKHOUSE_USERNAME" yaml:"clickhouse_username"`
	ClickHousePassword string `mapstructure:"CLICKHOUSE_PASSWORD" yaml:"clickhouse_password"`

	ArchiveBatchSize     int           `mapstructure:"ARCHIVE_BATCH_SIZE" yaml:"archive_batch_size"`
	ArchiveFlushInterval time.Duration `mapstructure:"ARCHIVE_FLUSH_INTERVAL" yaml:"archive_flush_interval"`

	ProduceRate  time.Duration `mapstructure:"PRODUCE_RATE" yaml:"produce_rate"`
	ProduceCount int           `mapstructure:"PRODUCE_COUNT" yaml:"produce_count"`
	ProduceBanks int           `mapstructure:"PRODUCE_BANKS" yaml:"produce_banks"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}

// BrokerList splits the comma separated Kafka broker addresses.
func (c *Config) BrokerList() []string {
	brokers := make([]string, 0)
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// DeadLetterTopic is the topic terminally failing events are diverted
// to.
func (c *Config) DeadLetterTopic() string {
	return c.KafkaTopic + ".dlq"
}
