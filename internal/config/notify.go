package config

import "time"

// NotifyConfig configures real-time event fan-out. Each sink is optional:
// an empty AMQPURL disables the broker sink and RedisChannelPrefix only
// matters when a Redis client is available.
type NotifyConfig struct {
	QueueSize          int
	AMQPURL            string
	AMQPExchange       string
	AuditQueue         string
	AuditLogPath       string
	RedisChannelPrefix string
	PublishTimeout     time.Duration
}

func LoadNotifyConfig() NotifyConfig {
	url := envStr("RABBITMQ_URL", "")
	if url == "" {
		url = envStr("AMQP_URL", "")
	}
	cfg := NotifyConfig{
		QueueSize:          envInt("NOTIFY_QUEUE_SIZE", 256),
		AMQPURL:            url,
		AMQPExchange:       envStr("NOTIFY_AMQP_EXCHANGE", "cafe.events"),
		AuditQueue:         envStr("NOTIFY_AUDIT_QUEUE", "order-events.audit"),
		AuditLogPath:       envStr("NOTIFY_AUDIT_LOG", "logs/order-events.log"),
		RedisChannelPrefix: envStr("NOTIFY_REDIS_PREFIX", "cafe"),
		PublishTimeout:     envDur("NOTIFY_PUBLISH_TIMEOUT", 3*time.Second),
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return cfg
}

// TracingConfig selects the OTLP/HTTP trace exporter. Tracing stays on the
// global no-op provider while Endpoint is empty.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
	SampleRatio float64
}

func LoadTracingConfig() TracingConfig {
	return TracingConfig{
		Endpoint:    envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName: envStr("OTEL_SERVICE_NAME", "cafe-pos"),
		Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRatio: envFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
	}
}
