package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// AssetURIPrefix is the prefix scripts use to refer to an asset by handle.
const AssetURIPrefix = "asset://"

// AssetType describes the kind of content an asset holds.
type AssetType string

const (
	AssetTypeJSON   AssetType = "json"
	AssetTypeText   AssetType = "text"
	AssetTypeImage  AssetType = "image"
	AssetTypeBinary AssetType = "binary"
)

// Validate checks if the AssetType is a valid enum value.
func (at AssetType) Validate() error {
	switch at {
	case AssetTypeJSON, AssetTypeText, AssetTypeImage, AssetTypeBinary:
		return nil
	default:
		return invalidArgument("unknown asset type %q", string(at))
	}
}

// ErrAssetNotFound is returned by an AssetManager when a handle is unknown.
var ErrAssetNotFound = errors.New("asset not found")

// AssetContent is a named blob of content identified by the hash of that content.
type AssetContent struct {
	Handle string
	Name   string
	Type   AssetType
	Data   []byte
}

// NewAsset builds an asset and derives its content-addressed handle.
func NewAsset(name string, assetType AssetType, data []byte) *AssetContent {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &AssetContent{
		Handle: AssetHandle(cp),
		Name:   name,
		Type:   assetType,
		Data:   cp,
	}
}

// AssetHandle returns the content-addressed handle for data.
func AssetHandle(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AssetHandleFromString extracts the handle from an "asset://<handle>" reference.
// The second return is false when s does not use the asset convention.
func AssetHandleFromString(s string) (string, bool) {
	if !strings.HasPrefix(s, AssetURIPrefix) {
		return "", false
	}
	handle := strings.TrimPrefix(s, AssetURIPrefix)
	if handle == "" {
		return "", false
	}
	return handle, true
}

// AssetURI renders a handle using the "asset://" convention.
func AssetURI(handle string) string {
	return AssetURIPrefix + handle
}

// IsJSONArray reports whether the asset content is a JSON array.
func (a *AssetContent) IsJSONArray() bool {
	return a.Type == AssetTypeJSON && gjson.ValidBytes(a.Data) && gjson.ParseBytes(a.Data).IsArray()
}

// IsJSONObject reports whether the asset content is a JSON object.
func (a *AssetContent) IsJSONObject() bool {
	return a.Type == AssetTypeJSON && gjson.ValidBytes(a.Data) && gjson.ParseBytes(a.Data).IsObject()
}

// AssetManager resolves asset handles to content and registers new assets.
// Get may block on I/O; callers must not hold locks they cannot afford to wait on.
type AssetManager interface {
	Get(ctx context.Context, handle string) (*AssetContent, error)
	Put(ctx context.Context, a *AssetContent) error
}

// MemoryAssetStore is an in-process AssetManager. Content is copied on save
// and retrieval so callers cannot mutate stored bytes.
type MemoryAssetStore struct {
	mu     sync.RWMutex
	assets map[string]*AssetContent // handle -> asset
}

// NewMemoryAssetStore returns an empty in-memory asset store.
func NewMemoryAssetStore() *MemoryAssetStore {
	return &MemoryAssetStore{assets: make(map[string]*AssetContent)}
}

// Get returns a copy of the asset or ErrAssetNotFound.
func (s *MemoryAssetStore) Get(_ context.Context, handle string) (*AssetContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[handle]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return copyAsset(a), nil
}

// Put stores the asset under its handle. Storing the same content twice is a no-op.
func (s *MemoryAssetStore) Put(_ context.Context, a *AssetContent) error {
	if a == nil || a.Handle == "" {
		return invalidArgument("asset handle cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.Handle] = copyAsset(a)
	return nil
}

// Handles returns the handles currently stored. The slice is a snapshot.
func (s *MemoryAssetStore) Handles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handles := make([]string, 0, len(s.assets))
	for h := range s.assets {
		handles = append(handles, h)
	}
	return handles
}

func copyAsset(a *AssetContent) *AssetContent {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &AssetContent{Handle: a.Handle, Name: a.Name, Type: a.Type, Data: data}
}
