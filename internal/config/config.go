package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/route"
	cp "github.com/otiai10/copy"
	"gopkg.in/yaml.v3"
)

var (
	cfgMux   sync.RWMutex
	Walker   *WalkerCfg
	Profiles map[string]*ProfileCfg
	Version  = "dev"

	rootDir = "config"
)

const (
	walkerFile      = "walker.yaml"
	profileFile     = "config.yaml"
	templateProfile = "template"
)

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrProfileExists  = errors.New("configuration with that name already exists")
)

const (
	ConnectorBridge = "bridge"
	ConnectorSim    = "sim"

	AuthCache  = "cache"
	AuthStatic = "static"

	RouteDefault = "default"
	RouteInline  = "inline"
	RouteFile    = "file"
	RouteStore   = "store"

	MessagingMQTT  = "mqtt"
	MessagingKafka = "kafka"
)

type WalkerCfg struct {
	Debug struct {
		Log bool `yaml:"log"`
	} `yaml:"debug"`
	LogSaveDirectory string `yaml:"logSaveDirectory"`
	RouteStorePath   string `yaml:"routeStorePath"`
	Viewer           struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"viewer"`
	Discord struct {
		Enabled    bool     `yaml:"enabled"`
		BotAdmins  []string `yaml:"botAdmins"`
		ChannelID  string   `yaml:"channelId"`
		Token      string   `yaml:"token"`
		UseWebhook bool     `yaml:"useWebhook"`
		WebhookURL string   `yaml:"webhookUrl"`
	} `yaml:"discord"`
	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		ChatID  int64  `yaml:"chatId"`
		Token   string `yaml:"token"`
	} `yaml:"telegram"`
	Ngrok struct {
		Enabled       bool   `yaml:"enabled"`
		SendURL       bool   `yaml:"sendUrl"`
		Authtoken     string `yaml:"authtoken"`
		Region        string `yaml:"region"`
		Domain        string `yaml:"domain"`
		BasicAuthUser string `yaml:"basicAuthUser"`
		BasicAuthPass string `yaml:"basicAuthPass"`
	} `yaml:"ngrok"`
	PingMonitor struct {
		Enabled           bool `yaml:"enabled"`
		HighPingThreshold int  `yaml:"highPingThreshold"` // ms
		SustainedDuration int  `yaml:"sustainedDuration"` // seconds
	} `yaml:"pingMonitor"`
	Messaging struct {
		Enabled     bool     `yaml:"enabled"`
		Backend     string   `yaml:"backend"`
		Brokers     []string `yaml:"brokers"`
		TopicPrefix string   `yaml:"topicPrefix"`
		ClientID    string   `yaml:"clientId"`
	} `yaml:"messaging"`
}

type ProfileCfg struct {
	ConfigFolderName string `yaml:"-"`
	Enabled          bool   `yaml:"enabled"`
	Username         string `yaml:"username"`
	Auth             struct {
		Method      string `yaml:"method"`
		CacheDir    string `yaml:"cacheDir"`
		AccessToken string `yaml:"accessToken"`
	} `yaml:"auth"`
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	// ReconnectDelay is waited after every terminated session or failed connect.
	ReconnectDelay time.Duration `yaml:"reconnectDelay"`
	// SpawnTimeout bounds the wait for the first spawn; negative disables it.
	SpawnTimeout time.Duration `yaml:"spawnTimeout"`
	Movement     struct {
		MaxAttempts int `yaml:"maxAttempts"`
		// AttemptDelay is left nil when the key is absent; 0 is a valid delay.
		AttemptDelay *time.Duration `yaml:"attemptDelay"`
		Recovery     string         `yaml:"recovery"`
		GestureHold  time.Duration  `yaml:"gestureHold"`
	} `yaml:"movement"`
	Route struct {
		Source    string         `yaml:"source"`
		File      string         `yaml:"file"`
		Name      string         `yaml:"name"`
		Waypoints []route.Record `yaml:"waypoints"`
	} `yaml:"route"`
	Connector struct {
		Kind      string `yaml:"kind"`
		BridgeURL string `yaml:"bridgeUrl"`
		Sim       struct {
			SpawnDelay      time.Duration   `yaml:"spawnDelay"`
			Blocked         []game.Waypoint `yaml:"blocked"`
			DisconnectAfter time.Duration   `yaml:"disconnectAfter"`
		} `yaml:"sim"`
	} `yaml:"connector"`
}

// Root is the directory Load last read from.
func Root() string {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	return rootDir
}

func GetProfile(name string) (*ProfileCfg, bool) {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	p, exists := Profiles[name]
	return p, exists
}

// GetProfiles returns every loaded profile except the template.
func GetProfiles() map[string]*ProfileCfg {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	copy := make(map[string]*ProfileCfg, len(Profiles))
	for k, v := range Profiles {
		if k != templateProfile {
			copy[k] = v
		}
	}
	return copy
}

// ProfileNames lists every loaded profile except the template, sorted.
func ProfileNames() []string {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		if name != templateProfile {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load reads walker.yaml and every profile directory under root.
func Load(root string) error {
	cfgMux.Lock()
	defer cfgMux.Unlock()

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("error resolving config directory: %w", err)
	}

	walkerCfg := &WalkerCfg{}
	if err := decodeFile(filepath.Join(abs, walkerFile), walkerCfg); err != nil {
		return fmt.Errorf("error loading %s: %w", walkerFile, err)
	}
	walkerCfg.Validate()

	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("error reading config directory %s: %w", abs, err)
	}

	profiles := make(map[string]*ProfileCfg)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p := &ProfileCfg{}
		path := filepath.Join(abs, entry.Name(), profileFile)
		if err := decodeFile(path, p); err != nil {
			return fmt.Errorf("error reading %s profile config: %w", entry.Name(), err)
		}
		p.ConfigFolderName = entry.Name()
		p.Validate()
		profiles[entry.Name()] = p
	}

	rootDir = abs
	Walker = walkerCfg
	Profiles = profiles
	return nil
}

func decodeFile(path string, out any) error {
	r, err := os.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := yaml.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("error reading config %s: %w", path, err)
	}
	return nil
}

func (c *WalkerCfg) Validate() {
	if c.LogSaveDirectory == "" {
		c.LogSaveDirectory = "logs"
	}
	if c.RouteStorePath == "" {
		c.RouteStorePath = "routes.db"
	}
	if c.Viewer.Host == "" {
		c.Viewer.Host = "localhost"
	}
	if c.Viewer.Port == 0 {
		c.Viewer.Port = 3000
	}
	if c.PingMonitor.HighPingThreshold <= 0 {
		c.PingMonitor.HighPingThreshold = 500
	}
	if c.PingMonitor.SustainedDuration <= 0 {
		c.PingMonitor.SustainedDuration = 15
	}
	c.Messaging.Backend = strings.ToLower(c.Messaging.Backend)
	if c.Messaging.Backend == "" {
		c.Messaging.Backend = MessagingMQTT
	}
	if c.Messaging.TopicPrefix == "" {
		c.Messaging.TopicPrefix = "walker"
	}
	c.Messaging.TopicPrefix = strings.TrimSuffix(c.Messaging.TopicPrefix, "/")
	if c.Discord.UseWebhook {
		c.Discord.WebhookURL = strings.TrimSpace(c.Discord.WebhookURL)
	}
}

// Validate fills the profile defaults in place.
func (p *ProfileCfg) Validate() {
	if p.Username == "" {
		p.Username = p.ConfigFolderName
	}
	p.Auth.Method = strings.ToLower(p.Auth.Method)
	if p.Auth.Method == "" {
		p.Auth.Method = AuthCache
	}
	if p.Auth.CacheDir == "" {
		p.Auth.CacheDir = "auth_cache"
	}
	if p.Server.Host == "" {
		p.Server.Host = "localhost"
	}
	if p.Server.Port == 0 {
		p.Server.Port = 25565
	}
	if p.ReconnectDelay <= 0 {
		p.ReconnectDelay = 10 * time.Second
	}
	if p.SpawnTimeout == 0 {
		p.SpawnTimeout = 60 * time.Second
	}

	policy := p.RetryPolicy()
	if p.Movement.MaxAttempts == 0 {
		policy.MaxAttempts = game.DefaultRetryPolicy.MaxAttempts
	}
	policy = policy.Clamped()
	p.Movement.MaxAttempts = policy.MaxAttempts
	p.Movement.AttemptDelay = &policy.AttemptDelay

	p.Route.Source = strings.ToLower(p.Route.Source)
	if p.Route.Source == "" {
		p.Route.Source = RouteDefault
	}
	p.Connector.Kind = strings.ToLower(p.Connector.Kind)
	if p.Connector.Kind == "" {
		p.Connector.Kind = ConnectorBridge
	}
	if p.Connector.BridgeURL == "" {
		p.Connector.BridgeURL = "ws://localhost:8765/bridge"
	}
}

func (p *ProfileCfg) RetryPolicy() game.RetryPolicy {
	policy := game.RetryPolicy{MaxAttempts: p.Movement.MaxAttempts, AttemptDelay: game.DefaultRetryPolicy.AttemptDelay}
	if p.Movement.AttemptDelay != nil {
		policy.AttemptDelay = *p.Movement.AttemptDelay
	}
	return policy
}

// SpawnWait is the spawn timeout as the supervisor expects it, zero when disabled.
func (p *ProfileCfg) SpawnWait() time.Duration {
	if p.SpawnTimeout < 0 {
		return 0
	}
	return p.SpawnTimeout
}

// CreateFromTemplate copies the template profile into a new profile directory.
func CreateFromTemplate(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	root := Root()
	dst := filepath.Join(root, name)
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrProfileExists, name)
	}

	if err := cp.Copy(filepath.Join(root, templateProfile), dst); err != nil {
		return fmt.Errorf("error copying template: %w", err)
	}

	return Load(root)
}

func SaveProfileConfig(name string, p *ProfileCfg) error {
	if _, ok := GetProfile(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	p.ConfigFolderName = name
	p.Validate()
	d, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	root := Root()
	if err := os.WriteFile(filepath.Join(root, name, profileFile), d, 0644); err != nil {
		return fmt.Errorf("error writing profile config: %w", err)
	}

	return Load(root)
}
