package contracts

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/toncenter/ton-indexer/ton-tracing-go/abi"
	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

const DefaultCacheSize = 256

// Entry describes one known contract. ABI is a path relative to the manifest.
type Entry struct {
	Name      string   `yaml:"name"`
	ABI       string   `yaml:"abi"`
	CodeHash  string   `yaml:"code_hash"`
	Addresses []string `yaml:"addresses"`
}

type Manifest struct {
	Contracts []Entry `yaml:"contracts"`
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse contracts manifest: %w", err)
	}
	return &m, nil
}

// Registry resolves contracts by account address or code hash. Address
// entries take precedence so a single deployed instance can be described even
// when its code is shared with other contracts.
type Registry struct {
	fsys   fs.FS
	byCode map[string]*Entry
	byAddr map[string]*Entry
	cache  *lru.ARCCache
	group  singleflight.Group
	logger *logrus.Logger

	reads int64 // updated atomically
	hits  int64 // updated atomically
}

// Load reads the manifest at path; ABI files are resolved relative to it.
func Load(manifestPath string, cacheSize int, logger *logrus.Logger) (*Registry, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read contracts manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	return New(m, os.DirFS(filepath.Dir(manifestPath)), cacheSize, logger)
}

func New(m *Manifest, fsys fs.FS, cacheSize int, logger *logrus.Logger) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("new arc: %w", err)
	}
	r := &Registry{
		fsys:   fsys,
		byCode: make(map[string]*Entry),
		byAddr: make(map[string]*Entry),
		cache:  cache,
		logger: logger,
	}
	for i := range m.Contracts {
		e := &m.Contracts[i]
		if e.Name == "" || e.ABI == "" {
			return nil, fmt.Errorf("contract #%d: name and abi are required", i)
		}
		if e.CodeHash != "" {
			h, err := NormalizeCodeHash(e.CodeHash)
			if err != nil {
				return nil, fmt.Errorf("contract %s: %w", e.Name, err)
			}
			e.CodeHash = h
			r.byCode[h] = e
		}
		for _, a := range e.Addresses {
			addr, err := trace.NormalizeAddress(a)
			if err != nil {
				return nil, fmt.Errorf("contract %s: %w", e.Name, err)
			}
			r.byAddr[addr] = e
		}
	}
	return r, nil
}

// ResolveContract implements trace.ContractResolver. Unknown contracts resolve
// to nil; an unreadable or malformed ABI is an error.
func (r *Registry) ResolveContract(ctx context.Context, codeHash string, addr string) (*trace.Contract, error) {
	e, ok := r.byAddr[addr]
	if !ok && codeHash != "" {
		if h, err := NormalizeCodeHash(codeHash); err == nil {
			e, ok = r.byCode[h]
		}
	}
	if !ok {
		return nil, nil
	}
	parsed, err := r.loadABI(ctx, e.ABI)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", e.Name, err)
	}
	return &trace.Contract{Name: e.Name, CodeHash: e.CodeHash, Abi: parsed}, nil
}

func (r *Registry) loadABI(ctx context.Context, name string) (*abi.Contract, error) {
	atomic.AddInt64(&r.reads, 1)
	if v, ok := r.cache.Get(name); ok {
		atomic.AddInt64(&r.hits, 1)
		return v.(*abi.Contract), nil
	}
	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(r.fsys, path.Clean(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read abi: %w", err)
		}
		parsed, err := abi.Parse(data)
		if err != nil {
			return nil, err
		}
		r.cache.Add(name, parsed)
		r.logger.WithFields(logrus.Fields{
			"abi":       name,
			"functions": len(parsed.Functions),
			"events":    len(parsed.Events),
		}).Debug("abi loaded")
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*abi.Contract), nil
}

// HitRate returns the share of ABI lookups served from the cache.
func (r *Registry) HitRate() float64 {
	reads := atomic.LoadInt64(&r.reads)
	if reads == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&r.hits)) / float64(reads)
}

func (r *Registry) Len() int {
	return len(r.byCode) + len(r.byAddr)
}

// NormalizeCodeHash accepts a 32-byte hash in hex, base64 or base64url and
// returns it in standard base64, the form the indexer stores hashes in.
func NormalizeCodeHash(value string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) == 64 {
		if b, err := hex.DecodeString(value); err == nil {
			return base64.StdEncoding.EncodeToString(b), nil
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding} {
		if b, err := enc.DecodeString(value); err == nil && len(b) == 32 {
			return base64.StdEncoding.EncodeToString(b), nil
		}
	}
	return "", fmt.Errorf("invalid code hash '%s'", value)
}
