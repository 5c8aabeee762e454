package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Discovery
	ScanDelay      time.Duration `env:"SCAN_DELAY,default=300ms"`
	HandshakeDelay time.Duration `env:"HANDSHAKE_DELAY,default=2s"`
	DriftInterval  time.Duration `env:"DRIFT_INTERVAL,default=3s"`
	DriftAmplitude int           `env:"DRIFT_AMPLITUDE,default=5"`

	// Delivery pipeline
	SentDelay      time.Duration `env:"SENT_DELAY,default=1s"`
	DeliveredDelay time.Duration `env:"DELIVERED_DELAY,default=2s"`

	// Plumbing
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=3s"`
	BufferSize        int           `env:"BUFFER_SIZE,default=256"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=5s"`

	// History / moderation
	LimitMessages   *int   `env:"LIMIT_MESSAGES"`
	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Words splits the configured censored-word list. An empty variable means no
// moderation.
func (c Config) Words() []string {
	if strings.TrimSpace(c.CensoredWords) == "" {
		return nil
	}
	parts := strings.Split(c.CensoredWords, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if w := strings.TrimSpace(p); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
