package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/core"
	"golang.org/x/exp/slices"
)

const (
	vertexSuffix   = ".vert.spv"
	fragmentSuffix = ".frag.spv"
)

var ErrProgramNotFound = errors.New("shader program not found")

// ShaderProgram is the SPIR-V of a vertex and fragment stage pair sharing a
// name, compiled from <name>.vert and <name>.frag.
type ShaderProgram struct {
	Name     string
	Vertex   []uint32
	Fragment []uint32
}

type AssetInfo struct {
	Path       string
	Program    string
	LastLoaded time.Time
}

// AssetManager indexes the compiled shaders of one directory. With hot reload
// on, it watches the directory and reports programs whose stages changed.
type AssetManager struct {
	dir    string
	loader *loaders.ShaderLoader
	assets map[string]AssetInfo

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changed  chan string
}

func NewAssetManager(dir string, hotReload bool) (*AssetManager, error) {
	am := &AssetManager{
		dir:     dir,
		loader:  &loaders.ShaderLoader{},
		assets:  make(map[string]AssetInfo),
		done:    make(chan struct{}),
		changed: make(chan string, 16),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			am.handleFileEvent(filepath.Join(dir, e.Name()))
		}
	}

	if hotReload {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		if err := fsWatch.Add(dir); err != nil {
			fsWatch.Close()
			return nil, err
		}
		am.fsnotify = fsWatch
		am.wg.Add(1)
		go am.start()
		core.LogInfo("watching %s for shader changes", dir)
	}
	return am, nil
}

// LoadShaderProgram reads both stages of the named program from disk.
func (am *AssetManager) LoadShaderProgram(name string) (*ShaderProgram, error) {
	vertPath := filepath.Join(am.dir, name+vertexSuffix)
	fragPath := filepath.Join(am.dir, name+fragmentSuffix)

	am.mutex.RLock()
	_, hasVert := am.assets[vertPath]
	_, hasFrag := am.assets[fragPath]
	am.mutex.RUnlock()
	if !hasVert || !hasFrag {
		return nil, fmt.Errorf("%w: %s in %s", ErrProgramNotFound, name, am.dir)
	}

	vert, err := am.loader.Load(vertPath)
	if err != nil {
		return nil, err
	}
	frag, err := am.loader.Load(fragPath)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	now := time.Now()
	for _, p := range []string{vertPath, fragPath} {
		info := am.assets[p]
		info.LastLoaded = now
		am.assets[p] = info
	}
	am.mutex.Unlock()

	return &ShaderProgram{Name: name, Vertex: vert, Fragment: frag}, nil
}

// Programs lists the names that have both stages on disk.
func (am *AssetManager) Programs() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	stages := make(map[string]int)
	for _, info := range am.assets {
		stages[info.Program]++
	}
	var out []string
	for name, n := range stages {
		if n == 2 {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// ChangedPrograms drains the pending change notifications without blocking.
// Each program is listed once, in name order.
func (am *AssetManager) ChangedPrograms() []string {
	var out []string
	for {
		select {
		case name := <-am.changed:
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
		default:
			slices.Sort(out)
			return out
		}
	}
}

func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.wg.Wait()
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			var program string
			switch {
			case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
				program = am.handleFileEvent(e.Name)
			case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				am.removeAsset(e.Name)
			}
			if program == "" {
				continue
			}
			select {
			case am.changed <- program:
			case <-am.done:
				return
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

// handleFileEvent indexes a shader stage and returns its program name, or ""
// for files that are not compiled stages.
func (am *AssetManager) handleFileEvent(path string) string {
	program := programName(path)
	if program == "" {
		return ""
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:    path,
		Program: program,
	}
	return program
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func programName(path string) string {
	base := filepath.Base(path)
	for _, suffix := range []string{vertexSuffix, fragmentSuffix} {
		if name, ok := strings.CutSuffix(base, suffix); ok && name != "" {
			return name
		}
	}
	return ""
}
