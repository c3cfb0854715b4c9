package confloader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
	"github.com/yndnr/autoserve/internal/schema/errfmt"
	"github.com/yndnr/autoserve/internal/schema/validate"
)

// PackageProp is the package.json key that holds an embedded config.
const PackageProp = "autoserve"

const packageJSON = "package.json"

// SearchPlaces are the file names tried in each directory, in order.
var SearchPlaces = []string{
	".autoserverc",
	".autoserverc.json",
	".autoserverc.yaml",
	".autoserverc.yml",
	"autoserve.config.json",
	"autoserve.config.yaml",
	"autoserve.config.yml",
	packageJSON,
}

// Load results reported to the Recorder.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultEmpty    = "empty"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// LocateResult is a located config file. The zero value means nothing was
// found.
type LocateResult struct {
	Config   map[string]any `json:"config,omitempty"`
	Filepath string         `json:"filepath,omitempty"`
	IsEmpty  bool           `json:"isEmpty,omitempty"`
}

// Found reports whether a file was located.
func (r LocateResult) Found() bool {
	return r.Filepath != ""
}

// LoadResult is a located, validated and normalized config file.
type LoadResult struct {
	LocateResult
	Errors []validate.ValidationError `json:"errors"`
	Reason string                     `json:"reason,omitempty"`
	Items  []errfmt.Item              `json:"-"`
}

// LoadOptions controls Load.
type LoadOptions struct {
	// SchemaID is the schema the config is checked against. Defaults to
	// the core schema.
	SchemaID string
	// Pretty selects the human-readable reason format.
	Pretty bool
	Color  bool
}

// Recorder receives load metrics. A nil Recorder is valid.
type Recorder interface {
	ConfigLoaded(result string)
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(l *Loader) {
		l.recorder = rec
	}
}

// WithValidator shares a validator, and its compile cache, with the loader.
func WithValidator(v *validate.Validator) Option {
	return func(l *Loader) {
		if v != nil {
			l.validator = v
		}
	}
}

// WithSearchDir sets the directory the search starts in. Defaults to the
// working directory.
func WithSearchDir(dir string) Option {
	return func(l *Loader) {
		l.searchDir = dir
	}
}

// WithStopDir sets the last directory the search visits. Defaults to the
// filesystem root.
func WithStopDir(dir string) Option {
	return func(l *Loader) {
		l.stopDir = dir
	}
}

// Loader locates config files and checks them against the schema registry.
type Loader struct {
	reg        *schema.Registry
	validator  *validate.Validator
	normalizer *schema.Normalizer
	logger     *slog.Logger
	recorder   Recorder
	searchDir  string
	stopDir    string

	mu  sync.Mutex
	raw map[string][]byte // absolute path -> source text
}

// NewLoader creates a loader backed by reg.
func NewLoader(reg *schema.Registry, opts ...Option) *Loader {
	l := &Loader{
		reg:        reg,
		normalizer: schema.NewNormalizer(reg),
		logger:     slog.Default(),
		raw:        make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.validator == nil {
		l.validator = validate.New(reg, validate.WithLogger(l.logger))
	}
	return l
}

// Locate reads the config file at path. With an empty path it searches the
// conventional file names from the search directory upwards; finding
// nothing is not an error.
func (l *Loader) Locate(path string) (LocateResult, error) {
	if path != "" {
		return l.readExplicit(path)
	}
	return l.search()
}

// Load locates, validates and normalizes a config file. The returned
// config is normalized even when it has validation errors. The raw source
// text cached while reading is always released before Load returns.
func (l *Loader) Load(path string, opts LoadOptions) (LoadResult, error) {
	log := l.logger.With("load_id", ulid.Make().String())
	if opts.SchemaID == "" {
		opts.SchemaID = schema.CoreID
	}
	if path != "" {
		defer l.Forget(path)
	}

	located, err := l.Locate(path)
	if err != nil {
		log.Debug("config locate failed", "path", path, "error", err)
		if errors.Is(err, domain.ErrConfigNotFound) {
			l.record(ResultNotFound)
		} else {
			l.record(ResultError)
		}
		return LoadResult{}, err
	}
	if located.Found() {
		defer l.Forget(located.Filepath)
	}

	res := LoadResult{LocateResult: located, Errors: []validate.ValidationError{}}
	if !located.Found() || located.IsEmpty {
		log.Debug("no config to load", "filepath", located.Filepath, "empty", located.IsEmpty)
		l.record(ResultEmpty)
		return res, nil
	}
	log.Debug("config located", "filepath", located.Filepath)

	errs, err := l.validator.Validate(located.Config, opts.SchemaID)
	if err != nil {
		l.record(ResultError)
		return LoadResult{}, fmt.Errorf("validate %s: %w", located.Filepath, err)
	}
	res.Errors = errs
	if len(errs) > 0 {
		src, _ := l.Source(located.Filepath)
		formatted := errfmt.Format(errs, l.reg, errfmt.Options{
			Pretty: opts.Pretty,
			Source: src,
			Color:  opts.Color,
		})
		res.Reason = formatted.Text
		res.Items = formatted.Items
		log.Info("config has validation errors", "filepath", located.Filepath, "count", len(errs))
	}

	normalized, err := l.normalizer.Normalize(located.Config, opts.SchemaID)
	if err != nil {
		l.record(ResultError)
		return LoadResult{}, fmt.Errorf("normalize %s: %w", located.Filepath, err)
	}
	res.Config = normalized

	if len(errs) > 0 {
		l.record(ResultInvalid)
	} else {
		l.record(ResultOK)
	}
	log.Debug("config loaded", "filepath", located.Filepath, "keys", len(normalized))
	return res, nil
}

// Source returns the cached raw text of the JSON or YAML config at path.
// package.json sources are not cached.
func (l *Loader) Source(path string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.raw[absPath(path)]
	return src, ok
}

func (l *Loader) remember(path string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raw[path] = data
}

// Forget drops the cached raw text of the config at path.
func (l *Loader) Forget(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.raw, absPath(path))
}

func (l *Loader) readExplicit(path string) (LocateResult, error) {
	res, err := l.read(absPath(path))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return LocateResult{}, domain.NewDomainError(domain.ErrConfigNotFound.Code,
			fmt.Sprintf("config not found at user-provided path: %s", path)).WithCause(err)
	case err != nil:
		return LocateResult{}, domain.NewDomainError(domain.ErrConfigInvalid.Code,
			fmt.Sprintf("config at user-provided path %s is invalid:\n%s", path, err.Error())).WithCause(err)
	}
	if res.Config == nil {
		res.IsEmpty = true
	}
	return res, nil
}

func (l *Loader) search() (LocateResult, error) {
	dir := l.searchDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return LocateResult{}, fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}
	dir = absPath(dir)
	stop := ""
	if l.stopDir != "" {
		stop = absPath(l.stopDir)
	}

	for {
		for _, name := range SearchPlaces {
			p := filepath.Join(dir, name)
			info, err := os.Stat(p)
			if err != nil || info.IsDir() {
				continue
			}
			res, err := l.read(p)
			if err != nil {
				return LocateResult{}, domain.ErrConfigInvalid.WithDetails(p).WithCause(err)
			}
			if name == packageJSON && res.Config == nil && !res.IsEmpty {
				continue
			}
			l.logger.Debug("config file found", "filepath", p)
			return res, nil
		}
		parent := filepath.Dir(dir)
		if dir == stop || parent == dir {
			return LocateResult{}, nil
		}
		dir = parent
	}
}

// read parses one config file. A package.json without the autoserve key
// yields a result with a nil config that is not empty.
func (l *Loader) read(path string) (LocateResult, error) {
	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return LocateResult{}, err
	}
	res := LocateResult{Filepath: path}
	if len(bytes.TrimSpace(data)) == 0 {
		res.IsEmpty = true
		return res, nil
	}

	switch {
	case filepath.Base(path) == packageJSON:
		var pkg map[string]any
		if err := json.Unmarshal(data, &pkg); err != nil {
			return LocateResult{}, err
		}
		if v, ok := pkg[PackageProp]; ok {
			cfg, ok := v.(map[string]any)
			if !ok {
				return LocateResult{}, fmt.Errorf("%q key must hold an object", PackageProp)
			}
			res.Config = cfg
		}
	case isJSON(path):
		var cfg map[string]any
		if err := json.Unmarshal(data, &cfg); err != nil {
			return LocateResult{}, err
		}
		res.Config = cfg
		l.remember(path, data)
	default:
		cfg, err := yaml.Parser().Unmarshal(data)
		if err != nil {
			return LocateResult{}, err
		}
		res.Config = cfg
		l.remember(path, data)
	}

	if res.Config == nil && filepath.Base(path) != packageJSON {
		res.IsEmpty = true
	}
	return res, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func (l *Loader) record(result string) {
	if l.recorder != nil {
		l.recorder.ConfigLoaded(result)
	}
}
