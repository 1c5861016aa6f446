package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/multibank/gateway/internal/domain"
)

type Config struct {
	Team   Team          `yaml:"team"`
	Server Server        `yaml:"server"`
	Banks  []domain.Bank `yaml:"banks"`
}

// Team is the process-wide identity used for the client-credentials
// exchange with every partner bank.
type Team struct {
	ID     string `yaml:"id"`
	Secret string `yaml:"secret"`
}

type Server struct {
	ListenAddr            string `yaml:"listenAddr"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
	EnableTrace           bool   `yaml:"enableTrace"`
	TraceEndpoint         string `yaml:"traceEndpoint"`
}

// RequestTimeout is the per-call timeout for outbound partner requests.
func (s Server) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

const defaultRequestTimeout = 10 * time.Second

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	// credentials may come from the environment instead of the file
	if v := os.Getenv("OPEN_BANKINGAPI_TEAM_ID"); v != "" {
		config.Team.ID = v
	}
	if v := os.Getenv("OPEN_BANKINGAPI_PASSWORD"); v != "" {
		config.Team.Secret = v
	}

	if config.Team.ID == "" {
		return Config{}, fmt.Errorf("team id is not configured")
	}
	if len(config.Banks) == 0 {
		return Config{}, fmt.Errorf("no partner banks configured")
	}
	for i, b := range config.Banks {
		if b.ID == "" || b.BaseURL == "" {
			return Config{}, fmt.Errorf("bank entry %d is missing id or baseUrl", i)
		}
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8000"
	}

	return config, nil
}
