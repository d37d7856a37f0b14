package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/manavgt54/idesync/internal/store"
)

// Digester computes a content digest for a file. Implementations must be safe
// for concurrent use. The digest is an auxiliary integrity field: a failed
// digest never blocks an upload.
type Digester interface {
	DigestFile(file *store.FileRecord, content []byte) (string, error)
}

// SHA256Digester renders a SHA-256 digest as lowercase hex.
type SHA256Digester struct{}

func (SHA256Digester) DigestFile(_ *store.FileRecord, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

const digestCacheSize = 4096

// CachedDigester memoizes digests keyed by path, size and mtime so files that
// reappear unchanged across runs skip re-hashing.
type CachedDigester struct {
	inner Digester
	cache *expirable.LRU[string, string]
}

func NewCachedDigester(inner Digester) *CachedDigester {
	return &CachedDigester{
		inner: inner,
		cache: expirable.NewLRU[string, string](digestCacheSize, nil, 0),
	}
}

func (d *CachedDigester) DigestFile(file *store.FileRecord, content []byte) (string, error) {
	key := fmt.Sprintf("%s|%d|%d", file.Path, file.Size, file.ModTime.UnixNano())
	if digest, ok := d.cache.Get(key); ok {
		return digest, nil
	}

	digest, err := d.inner.DigestFile(file, content)
	if err != nil {
		return "", err
	}
	d.cache.Add(key, digest)
	return digest, nil
}
