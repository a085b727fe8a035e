package customHttpClient

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/GroundedRAG/internal/config"
)

var (
	once         sync.Once
	pooledClient *http.Client
)

// GetClient returns the process-wide pooled client shared by the embedding and llm providers.
func GetClient() *http.Client {
	once.Do(func() {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConns = config.MaxIdleConns
		transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		transport.IdleConnTimeout = config.IdleConnTimeout

		pooledClient = &http.Client{
			Transport: transport,
			Timeout:   90 * time.Second,
		}
	})
	return pooledClient
}
