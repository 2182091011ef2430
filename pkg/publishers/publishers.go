package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeFile  = "file"
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderAzure  = "azure"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

var ErrEmptyRegistry = errors.New("publishers file contains no publishers entries")

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one destination declared in a publishers file.
type PublisherConfig struct {
	ID         string                `json:"id" yaml:"id"`
	Type       string                `json:"type" yaml:"type"`
	Enabled    *bool                 `json:"enabled" yaml:"enabled"`
	Primary    bool                  `json:"primary" yaml:"primary"`
	Checkpoint *bool                 `json:"checkpoint" yaml:"checkpoint"`
	File       *FilePublisherConfig  `json:"file" yaml:"file"`
	Queue      *QueuePublisherConfig `json:"queue" yaml:"queue"`
	HTTP       *HTTPPublisherConfig  `json:"http" yaml:"http"`
}

// FilePublisherConfig points at a document on local disk.
type FilePublisherConfig struct {
	Path string `json:"path" yaml:"path"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string                 `json:"provider" yaml:"provider"`
	AWS      *AWSSQSPublisherConfig `json:"aws" yaml:"aws"`
	SNS      *AWSSNSPublisherConfig `json:"sns" yaml:"sns"`
	Azure    *AzureQueueConfig      `json:"azure" yaml:"azure"`
	GCP      *GCPQueueConfig        `json:"gcp" yaml:"gcp"`
}

// AWSSQSPublisherConfig holds AWS SQS settings. Keys are optional; without
// them the default AWS credential chain is used.
type AWSSQSPublisherConfig struct {
	QueueURL        string `json:"uri" yaml:"uri"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AWSSNSPublisherConfig holds AWS SNS settings.
type AWSSNSPublisherConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AzureQueueConfig is accepted in files but has no sender.
type AzureQueueConfig struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
	QueueName        string `json:"queue" yaml:"queue"`
}

// GCPQueueConfig holds Pub/Sub topic settings.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds generic HTTP endpoint settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConfigRegistry holds validated publisher definitions in file order.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry reads publisher definitions from a YAML or JSON file after
// expanding ${ENV} references.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file configFile
	if err := decodeRegistry([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path), &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, ErrEmptyRegistry
	}
	return NewConfigRegistry(file.Publishers)
}

// decodeRegistry uses JSON for .json files and YAML for everything else.
func decodeRegistry(data []byte, ext string, out *configFile) error {
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode json publishers: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode yaml publishers: %w", err)
	}
	return nil
}

// NewConfigRegistry normalizes and validates publisher definitions. At most
// one entry may be marked primary.
func NewConfigRegistry(cfgs []PublisherConfig) (*ConfigRegistry, error) {
	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(cfgs)),
		idx:        make(map[string]PublisherConfig, len(cfgs)),
	}

	var primary string
	for i, cfg := range cfgs {
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		if cfg.Primary {
			if primary != "" {
				return nil, fmt.Errorf("publishers %q and %q both marked primary", primary, cfg.ID)
			}
			primary = cfg.ID
		}
		reg.publishers = append(reg.publishers, cfg)
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

// FileConfigs turns plain output paths into file publisher definitions. The
// first path is the primary destination.
func FileConfigs(paths []string) []PublisherConfig {
	out := make([]PublisherConfig, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, PublisherConfig{
			ID:      fmt.Sprintf("file-%d", len(out)+1),
			Type:    TypeFile,
			Primary: len(out) == 0,
			File:    &FilePublisherConfig{Path: p},
		})
	}
	return out
}

func (cfg *PublisherConfig) normalize() {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.File != nil {
		f := *cfg.File
		f.Path = strings.TrimSpace(f.Path)
		cfg.File = &f
	}
	if cfg.Queue != nil {
		q := *cfg.Queue
		q.normalize()
		cfg.Queue = &q
	}
	if cfg.HTTP != nil {
		h := *cfg.HTTP
		h.normalize()
		cfg.HTTP = &h
	}
}

func (q *QueuePublisherConfig) normalize() {
	q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
	if q.AWS != nil {
		a := *q.AWS
		trimAll(&a.QueueURL, &a.Region, &a.AccessKeyID, &a.SecretAccessKey)
		q.AWS = &a
	}
	if q.SNS != nil {
		s := *q.SNS
		trimAll(&s.TopicARN, &s.Region, &s.AccessKeyID, &s.SecretAccessKey)
		q.SNS = &s
	}
	if q.Azure != nil {
		a := *q.Azure
		trimAll(&a.ConnectionString, &a.QueueName)
		q.Azure = &a
	}
	if q.GCP != nil {
		g := *q.GCP
		trimAll(&g.ProjectID, &g.Topic, &g.CredentialsFile)
		q.GCP = &g
	}
}

func (h *HTTPPublisherConfig) normalize() {
	h.URL = strings.TrimSpace(h.URL)
	h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
	if h.Method == "" {
		h.Method = httpDefaultMethod
	}
	if h.TimeoutSeconds <= 0 {
		h.TimeoutSeconds = httpDefaultTimeoutSeconds
	}

	var headers map[string]string
	for k, v := range h.Headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if headers == nil {
			headers = make(map[string]string, len(h.Headers))
		}
		headers[k] = v
	}
	h.Headers = headers
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeFile:
		if cfg.File == nil || cfg.File.Path == "" {
			return fmt.Errorf("file.path is required for publisher %q", cfg.ID)
		}
	case TypeHTTP:
		if cfg.HTTP == nil || cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for publisher %q", cfg.ID)
		}
	case TypeQueue:
		if cfg.Queue == nil {
			return fmt.Errorf("queue config required for publisher %q", cfg.ID)
		}
		return cfg.Queue.validate(cfg.ID)
	default:
		return fmt.Errorf("type %q not supported for publisher %q", cfg.Type, cfg.ID)
	}
	return nil
}

func (q QueuePublisherConfig) validate(id string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	pairedKeys := func(prefix, keyID, secret string) error {
		if (keyID == "") != (secret == "") {
			return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", prefix, prefix, id)
		}
		return nil
	}

	switch q.Provider {
	case QueueProviderAWSSQS:
		if q.AWS == nil {
			return fmt.Errorf("sqs config required for publisher %q", id)
		}
		require("sqs.uri", q.AWS.QueueURL)
		require("sqs.region", q.AWS.Region)
		if err := pairedKeys("sqs", q.AWS.AccessKeyID, q.AWS.SecretAccessKey); err != nil {
			return err
		}
	case QueueProviderAWSSNS:
		if q.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", id)
		}
		require("sns.topic_arn", q.SNS.TopicARN)
		require("sns.region", q.SNS.Region)
		if err := pairedKeys("sns", q.SNS.AccessKeyID, q.SNS.SecretAccessKey); err != nil {
			return err
		}
	case QueueProviderGCP:
		if q.GCP == nil {
			return fmt.Errorf("gcp config required for publisher %q", id)
		}
		require("gcp.project_id", q.GCP.ProjectID)
		require("gcp.topic", q.GCP.Topic)
	case QueueProviderAzure:
		return fmt.Errorf("queue provider %q not implemented for publisher %q", q.Provider, id)
	default:
		return fmt.Errorf("queue provider %q not supported for publisher %q", q.Provider, id)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s required for publisher %q", strings.Join(missing, ", "), id)
	}
	return nil
}

// All returns all configured publishers in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// CheckpointValue reports whether in-progress documents go to this
// publisher. File publishers checkpoint unless disabled; others opt in.
func (cfg PublisherConfig) CheckpointValue() bool {
	if cfg.Checkpoint == nil {
		return cfg.Type == TypeFile
	}
	return *cfg.Checkpoint
}
