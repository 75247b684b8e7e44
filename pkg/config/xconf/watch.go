package xconf

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 是 Watch 的缺省防抖时间。
const DefaultDebounce = 100 * time.Millisecond

// WatchCallback 在每次重载后调用，err 非 nil 表示重载失败（旧配置保留）或监视出错。
type WatchCallback func(cfg Config, err error)

// WatchOption 配置 Watch。
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载。非正值被忽略。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 监视配置文件并自动重载。
type Watcher struct {
	cfg      *koanfConfig
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	filename string

	mu     sync.Mutex
	closed bool
	timer  *time.Timer

	stop chan struct{}
	wg   sync.WaitGroup
}

// Watch 开始监视 cfg 的配置文件，立即返回。调用方需在结束时 Close。
// 只支持 New 创建的配置，否则返回 ErrNotReloadable。
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok || kc.path == "" {
		return nil, ErrNotReloadable
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	// 监视目录而非文件：编辑器保存时常先写临时文件再 rename。
	dir := filepath.Dir(kc.path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", dir, err), fsw.Close())
	}

	w := &Watcher{
		cfg:      kc,
		fs:       fsw,
		callback: callback,
		debounce: DefaultDebounce,
		filename: filepath.Base(kc.path),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Close 停止监视，幂等。返回后不会再触发新的重载。
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	close(w.stop)
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.notify(fmt.Errorf("xconf: watch: %w", err))
		}
	}
}

// relevant 过滤出目标文件的写入、创建和 rename 事件。
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.filename {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.notify(w.cfg.Reload())
	})
}

func (w *Watcher) notify(err error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed || w.callback == nil {
		return
	}
	w.callback(w.cfg, err)
}
