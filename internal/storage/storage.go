// Package storage archives uploaded documents and fetches them back by
// reference.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/spigell/talenthub/internal/document"
)

const (
	TypeNone  = "none"
	TypeLocal = "local"
	TypeS3    = "s3"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidRef = errors.New("invalid document reference")

	unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Ref identifies a stored document. It is a flat key, never a path.
type Ref string

type Store interface {
	Put(ctx context.Context, doc document.Document) (Ref, error)
	Get(ctx context.Context, ref Ref) (document.Document, error)
}

type Config struct {
	Type  string       `mapstructure:"type"`
	Local *LocalConfig `mapstructure:"local"`
	S3    *S3Config    `mapstructure:"s3"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type S3Config struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	Prefix        string `mapstructure:"prefix"`
	AccessKeyFile string `mapstructure:"access-key-file"`
	SecretKeyFile string `mapstructure:"secret-key-file"`
	// Resolved from the files or the environment by the caller.
	AccessKey string `mapstructure:"-"`
	SecretKey string `mapstructure:"-"`
}

// New builds the configured store. A nil store with a nil error means
// archiving is disabled.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", TypeNone:
		return nil, nil
	case TypeLocal:
		p := "./uploads"
		if cfg.Local != nil && cfg.Local.Path != "" {
			p = cfg.Local.Path
		}
		local, err := NewLocal(p)
		if err != nil {
			return nil, err
		}
		return local, nil
	case TypeS3:
		if cfg.S3 == nil {
			return nil, errors.New("storage.s3 section is required for s3 storage")
		}
		remote, err := NewS3(ctx, *cfg.S3)
		if err != nil {
			return nil, err
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// newRef builds a unique key that keeps the original file name readable.
func newRef(doc document.Document) Ref {
	name := sanitizeName(doc.Name)
	if name == "" {
		name = "document"
	}
	return Ref(uuid.NewString() + "_" + name)
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
}

// originalName strips the uuid prefix added by newRef.
func originalName(ref Ref) string {
	s := string(ref)
	if i := strings.IndexByte(s, '_'); i == 36 {
		return s[i+1:]
	}
	return s
}

func (r Ref) validate() error {
	s := string(r)
	if s == "" || strings.ContainsAny(s, "/\\") || s == "." || s == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return nil
}
