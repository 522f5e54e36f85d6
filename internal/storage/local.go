package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spigell/talenthub/internal/document"
)

// Local keeps documents as files under a single directory.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Put(ctx context.Context, doc document.Document) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.IsZero() {
		return "", errors.New("refusing to store an empty document")
	}

	ref := newRef(doc)
	if err := os.WriteFile(filepath.Join(l.root, string(ref)), doc.Data, 0o600); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return ref, nil
}

func (l *Local) Get(ctx context.Context, ref Ref) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	if err := ref.validate(); err != nil {
		return document.Document{}, err
	}

	data, err := os.ReadFile(filepath.Join(l.root, string(ref)))
	if errors.Is(err, fs.ErrNotExist) {
		return document.Document{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to read file: %w", err)
	}

	name := originalName(ref)
	return document.Document{Name: name, MediaType: document.Normalize("", name, data), Data: data}, nil
}
