package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/paneltree"
	"github.com/aretw0/paneltree/internal/logging"
	"github.com/aretw0/paneltree/pkg/adapters/file"
	"github.com/aretw0/paneltree/pkg/adapters/memory"
	"github.com/aretw0/paneltree/pkg/adapters/redis"
	"github.com/aretw0/paneltree/pkg/document"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/observability"
	"github.com/aretw0/paneltree/pkg/ports"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Options holds the global command-line configuration.
type Options struct {
	Catalog    string
	AllowList  []string
	SubStack   bool
	PinTo      string
	Store      string
	DataDir    string
	FileFormat string
	RedisAddr  string
	LogLevel   string
}

// Logger builds the application logger for the configured level.
func (o Options) Logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(o.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// Engine builds the engine with CLI conventions: log hooks at debug level
// and, when metrics is not nil, Prometheus hooks.
func (o Options) Engine(logger *slog.Logger, metrics *observability.Metrics) (*paneltree.Engine, error) {
	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	if metrics != nil {
		hooks = append(hooks, metrics.Hooks())
	}

	opts := []paneltree.Option{
		paneltree.WithLogger(logger),
		paneltree.WithLifecycleHooks(domain.ChainHooks(hooks...)),
	}
	if o.Catalog != "" {
		opts = append(opts, paneltree.WithCatalog(o.Catalog))
	}
	if len(o.AllowList) > 0 {
		opts = append(opts, paneltree.WithAllowList(o.AllowList...))
	}
	if o.SubStack {
		opts = append(opts, paneltree.WithSubStackFilter())
	}
	if o.PinTo != "" {
		opts = append(opts, paneltree.WithPinFallback(o.PinTo))
	}

	engine, err := paneltree.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// DocumentStore opens the configured store. The redis backend also returns
// a distributed locker over the same connection.
func (o Options) DocumentStore(codec domain.Codec) (ports.DocumentStore, ports.DistributedLocker, error) {
	switch o.Store {
	case "", StoreMemory:
		return memory.NewStore(), nil, nil
	case StoreFile:
		dir := o.DataDir
		if dir == "" {
			dir = defaultDataDir()
		}
		format := file.FormatJSON
		if o.FileFormat == string(file.FormatYAML) {
			format = file.FormatYAML
		}
		store, err := file.New(dir, file.WithFormat(format), file.WithCodec(codec))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case StoreRedis:
		store := redis.New(o.RedisAddr, redis.WithCodec(codec))
		return store, redis.NewLocker(store.Client(), "paneltree:lock:"), nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (memory, file, redis)", o.Store)
	}
}

// Manager opens the store and wraps it in a document manager.
func (o Options) Manager(codec domain.Codec, logger *slog.Logger) (*document.Manager, error) {
	store, locker, err := o.DocumentStore(codec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	opts := []document.Option{document.WithLogger(logger)}
	if locker != nil {
		opts = append(opts, document.WithLocker(locker))
	}
	return document.NewManager(store, opts...), nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "paneltree", "documents")
	}
	return filepath.Join(".paneltree", "documents")
}
