package config

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/shawkym/chatpane/pkg/log"
)

// DefaultDebounce absorbs the burst of events editors produce on one save.
const DefaultDebounce = 250 * time.Millisecond

// ChangeHandler receives the configuration before and after a reload.
type ChangeHandler func(prev, next *Config)

// Watcher keeps a configuration file loaded and reloads it when it changes.
type Watcher struct {
	path     string
	v        *viper.Viper
	debounce time.Duration

	reloadMu sync.Mutex // serializes Reload

	mu       sync.Mutex
	current  *Config
	handlers []ChangeHandler
	pending  *time.Timer
}

// NewWatcher loads path. Watching starts with Watch.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper cannot read %s: %w", path, err)
	}
	return &Watcher{path: path, v: v, debounce: DefaultDebounce, current: cfg}, nil
}

// Current returns the last configuration that loaded and validated.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// OnChange adds a handler. Handlers run in the order they were added.
func (w *Watcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Watch reloads on file events until ctx is done.
func (w *Watcher) Watch(ctx context.Context) {
	w.v.OnConfigChange(func(e fsnotify.Event) {
		log.WithField("op", e.Op.String()).Debug("config file event")
		w.schedule()
	})
	w.v.WatchConfig()
	log.WithField("path", w.path).Info("config watch started")

	<-ctx.Done()

	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
}

// schedule pushes the next reload back by the debounce interval.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		if _, err := w.Reload(); err != nil {
			log.WithError(err).WithField("path", w.path).Warn("keeping previous config")
		}
	})
}

// Reload reads the file again. It reports whether the configuration
// changed. A file that fails to load or validate leaves the current
// configuration in place and is returned as the error.
func (w *Watcher) Reload() (bool, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	next, err := LoadConfig(w.path)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	prev := w.current
	if reflect.DeepEqual(prev, next) {
		w.mu.Unlock()
		return false, nil
	}
	w.current = next
	handlers := append([]ChangeHandler(nil), w.handlers...)
	w.mu.Unlock()

	log.WithFields(map[string]interface{}{
		"path":  w.path,
		"title": next.Server.Title,
	}).Info("config reloaded")
	for _, h := range handlers {
		callHandler(h, prev, next)
	}
	return true, nil
}

func callHandler(h ChangeHandler, prev, next *Config) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("config change handler panicked")
		}
	}()
	h(prev, next)
}
