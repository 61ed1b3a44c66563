package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// BLEAdapter is the HCI adapter to scan and connect on.
	BLEAdapter string

	// BatteryCount is how many batteries discovery waits for before the
	// monitoring sessions start.
	BatteryCount    int
	DiscoverTimeout time.Duration

	// PollInterval is the gap between polling rounds; CommandGap is the
	// pause between the individual request commands within a round. The
	// battery needs the gap to finish streaming one reply before the next
	// request lands.
	PollInterval time.Duration
	CommandGap   time.Duration

	// ReportInterval controls the periodic success-counter log line.
	ReportInterval time.Duration

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// MQTTBroker enables the secondary MQTT sink when non-empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	bleAdapter := strings.TrimSpace(os.Getenv("BLE_ADAPTER"))
	if bleAdapter == "" {
		bleAdapter = "hci0"
	}

	batteryCountStr := strings.TrimSpace(os.Getenv("BATTERY_COUNT"))
	if batteryCountStr == "" {
		batteryCountStr = "1"
	}
	batteryCount, err := strconv.Atoi(batteryCountStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid BATTERY_COUNT %q: %w", batteryCountStr, err)
	}
	if batteryCount < 1 {
		return Config{}, fmt.Errorf("BATTERY_COUNT must be at least 1, got %d", batteryCount)
	}

	discoverTimeout, err := durationEnv("DISCOVER_TIMEOUT", "60s")
	if err != nil {
		return Config{}, err
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", "30s")
	if err != nil {
		return Config{}, err
	}

	commandGap, err := durationEnv("COMMAND_GAP", "1s")
	if err != nil {
		return Config{}, err
	}

	reportInterval, err := durationEnv("REPORT_INTERVAL", "5m")
	if err != nil {
		return Config{}, err
	}

	influxURL := strings.TrimSpace(os.Getenv("INFLUX_URL"))
	if influxURL == "" {
		influxURL = "http://localhost:8086"
	}
	influxToken := strings.TrimSpace(os.Getenv("INFLUX_TOKEN"))
	influxOrg := strings.TrimSpace(os.Getenv("INFLUX_ORG"))
	if influxOrg == "" {
		influxOrg = "home"
	}
	influxBucket := strings.TrimSpace(os.Getenv("INFLUX_BUCKET"))
	if influxBucket == "" {
		influxBucket = "batteries"
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "bmv"
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		BLEAdapter:      bleAdapter,
		BatteryCount:    batteryCount,
		DiscoverTimeout: discoverTimeout,
		PollInterval:    pollInterval,
		CommandGap:      commandGap,
		ReportInterval:  reportInterval,
		InfluxURL:       influxURL,
		InfluxToken:     influxToken,
		InfluxOrg:       influxOrg,
		InfluxBucket:    influxBucket,
		MQTTBroker:      mqttBroker,
		MQTTPort:        mqttPort,
		MQTTClientID:    mqttClientID,
	}, nil
}

func durationEnv(name, fallback string) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		s = fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
