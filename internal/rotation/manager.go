package rotation

import (
	"math/rand"
	"sync"
)

// defaultUserAgents is used when no list is configured.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// Manager rotates user agents and proxies across fetch attempts. Lists
// come from configuration rather than package state so tests can pin a
// single agent and disable proxies.
type Manager struct {
	userAgents []string
	proxies    []string

	mu         sync.Mutex
	rng        *rand.Rand
	proxyIndex int
}

func NewManager(userAgents, proxies []string, seed int64) *Manager {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return &Manager{
		userAgents: userAgents,
		proxies:    proxies,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// UserAgent returns a random user agent string.
func (m *Manager) UserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAgents[m.rng.Intn(len(m.userAgents))]
}

// Proxy returns the next proxy URL, rotating sequentially, or "" when
// no proxies are configured.
func (m *Manager) Proxy() string {
	if len(m.proxies) == 0 {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy
}
