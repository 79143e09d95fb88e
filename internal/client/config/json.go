package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/custodia-project/custodia/internal/flagx"
	"github.com/custodia-project/custodia/internal/timex"
)

type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	APIToken           string         `json:"api_token"`
	CaseID             string         `json:"case_id"`
	MaxParallelUploads int            `json:"max_parallel_uploads"`
	RetryAttempts      int            `json:"retry_attempts"`
	RetryBackoff       timex.Duration `json:"retry_backoff"`
}

func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.ServerEndpointAddr = c.ServerEndpointAddr
	config.APIToken = c.APIToken
	config.CaseID = c.CaseID
	config.MaxParallelUploads = c.MaxParallelUploads
	config.RetryAttempts = c.RetryAttempts
	config.RetryBackoff = time.Duration(c.RetryBackoff.Duration)
}
