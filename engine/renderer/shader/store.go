package shader

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed assets
var assets embed.FS

// includeDir is the sub directory includes are loaded from, both embedded and on disk.
const includeDir = "include"

// Source is the pair of stage sources of one shader.
type Source struct {
	Vertex   string
	Fragment string
}

// Stage returns the source of one stage.
func (s Source) Stage(stage Stage) string {
	if stage == StageFragment {
		return s.Fragment
	}
	return s.Vertex
}

// storeKey addresses one shader or include in one language.
type storeKey struct {
	name string
	lang Language
}

// store is the implementation of the Store interface.
type store struct {
	mu       sync.RWMutex
	shaders  map[storeKey]Source
	includes map[storeKey]string
	logger   *slog.Logger
}

// Store holds named shader sources and includes per language. It ships with the embedded
// defaults and can be extended from a directory laid out as
//
//	<name>.vertex.<lang>
//	<name>.fragment.<lang>
//	include/<name>.<lang>
//
// A Store is safe for concurrent use; Watch reloads files from its own goroutine.
type Store interface {
	IncludeResolver

	// Shader returns both stage sources of a named shader.
	//
	// Parameters:
	//   - name: the shader name
	//   - lang: the language
	//
	// Returns:
	//   - Source: the sources
	//   - bool: false if either stage is missing
	Shader(name string, lang Language) (Source, bool)

	// SetShader registers or replaces one stage of a named shader.
	SetShader(name string, lang Language, stage Stage, source string)

	// SetInclude registers or replaces a named include.
	SetInclude(name string, lang Language, source string)

	// Names returns the sorted names of all shaders in any language.
	Names() []string

	// LoadDir loads every shader and include file under dir, replacing existing entries.
	//
	// Parameters:
	//   - dir: the directory to load
	//
	// Returns:
	//   - int: the number of files loaded
	//   - error: an error if the directory or a file cannot be read
	LoadDir(dir string) (int, error)

	// Watch reloads files under dir as they change until ctx is done. onChange is called from the
	// watcher goroutine with the shader name of every reloaded stage file, or "" when an include
	// changed since any shader may use it.
	//
	// Parameters:
	//   - ctx: stops the watcher when done
	//   - dir: the directory to watch, as given to LoadDir
	//   - onChange: receives changed shader names
	//
	// Returns:
	//   - error: an error if the watcher cannot be started
	Watch(ctx context.Context, dir string, onChange func(name string)) error
}

var _ Store = &store{}

// NewStore creates a Store pre-populated with the embedded shaders.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Store: the store
//   - error: an error if the embedded assets cannot be read
func NewStore(options ...StoreBuilderOption) (Store, error) {
	s := &store{
		shaders:  make(map[storeKey]Source),
		includes: make(map[storeKey]string),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	if _, err := s.loadFS(assets, "assets"); err != nil {
		return nil, fmt.Errorf("loading embedded shaders: %w", err)
	}
	return s, nil
}

func (s *store) Shader(name string, lang Language) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.shaders[storeKey{name, lang}]
	if !ok || src.Vertex == "" || src.Fragment == "" {
		return Source{}, false
	}
	return src, true
}

func (s *store) Include(name string, lang Language) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.includes[storeKey{name, lang}]
	return src, ok
}

func (s *store) SetShader(name string, lang Language, stage Stage, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey{name, lang}
	src := s.shaders[key]
	if stage == StageFragment {
		src.Fragment = source
	} else {
		src.Vertex = source
	}
	s.shaders[key] = src
}

func (s *store) SetInclude(name string, lang Language, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.includes[storeKey{name, lang}] = source
}

func (s *store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for k := range s.shaders {
		if !slices.Contains(names, k.name) {
			names = append(names, k.name)
		}
	}
	slices.Sort(names)
	return names
}

func (s *store) LoadDir(dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("shader directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("shader directory: %s is not a directory", dir)
	}
	return s.loadFS(os.DirFS(dir), ".")
}

func (s *store) loadFS(fsys fs.FS, root string) (int, error) {
	n := 0
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, root), "/")
		if s.storeFile(rel, string(data)) {
			n++
		}
		return nil
	})
	return n, err
}

// storeFile files one source by its relative path. Unrecognised files are skipped.
//
// Returns:
//   - bool: false if the path is not a shader or include file
func (s *store) storeFile(rel, source string) bool {
	parsed, ok := s.classify(rel)
	if !ok {
		return false
	}
	if parsed.include {
		s.SetInclude(parsed.name, parsed.lang, source)
	} else {
		s.SetShader(parsed.name, parsed.lang, parsed.stage, source)
	}
	s.logger.Debug("shader source loaded", "path", rel, "name", parsed.name, "lang", parsed.lang.String())
	return true
}

// parsedPath is the meaning of one file name under a shader directory.
type parsedPath struct {
	name    string
	lang    Language
	stage   Stage
	include bool
}

func (s *store) classify(rel string) (parsedPath, bool) {
	rel = filepath.ToSlash(rel)
	dir, file := filepath.Split(rel)
	dir = strings.Trim(filepath.ToSlash(dir), "/")

	ext := filepath.Ext(file)
	lang, err := ParseLanguage(strings.TrimPrefix(ext, "."))
	if err != nil || ext == "" {
		return parsedPath{}, false
	}
	base := strings.TrimSuffix(file, ext)

	if dir == includeDir {
		return parsedPath{name: base, lang: lang, include: true}, true
	}
	if dir != "" {
		return parsedPath{}, false
	}
	name, stageName, ok := strings.Cut(base, ".")
	if !ok {
		return parsedPath{}, false
	}
	switch stageName {
	case "vertex", "vx":
		return parsedPath{name: name, lang: lang, stage: StageVertex}, true
	case "fragment", "fx":
		return parsedPath{name: name, lang: lang, stage: StageFragment}, true
	}
	return parsedPath{}, false
}

func (s *store) Watch(ctx context.Context, dir string, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("shader watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("shader watcher: %w", err)
	}
	if info, err := os.Stat(filepath.Join(dir, includeDir)); err == nil && info.IsDir() {
		if err := watcher.Add(filepath.Join(dir, includeDir)); err != nil {
			watcher.Close()
			return fmt.Errorf("shader watcher: %w", err)
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				rel, err := filepath.Rel(dir, ev.Name)
				if err != nil {
					continue
				}
				parsed, ok := s.classify(rel)
				if !ok {
					continue
				}
				data, err := os.ReadFile(ev.Name)
				if err != nil {
					s.logger.Warn("shader reload failed", "path", ev.Name, "error", err)
					continue
				}
				s.storeFile(rel, string(data))
				s.logger.Info("shader reloaded", "path", rel)
				if onChange != nil {
					if parsed.include {
						onChange("")
					} else {
						onChange(parsed.name)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("shader watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Compose runs both stages of src through pp.
//
// Parameters:
//   - pp: the pre-processor of the target language
//   - src: the stored sources
//   - unit: the defines and declarations; its Stage and Source are set per stage
//
// Returns:
//   - Source: the processed sources
//   - error: the first stage error, wrapped with the stage name
func Compose(pp PreProcessor, src Source, unit Unit) (Source, error) {
	var out Source
	for _, stage := range []Stage{StageVertex, StageFragment} {
		unit.Stage = stage
		unit.Source = src.Stage(stage)
		processed, err := pp.Process(unit)
		if err != nil {
			return Source{}, fmt.Errorf("%s stage: %w", stage, err)
		}
		if stage == StageVertex {
			out.Vertex = processed
		} else {
			out.Fragment = processed
		}
	}
	return out, nil
}
