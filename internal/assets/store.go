package assets

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed datastore.AssetManager. Each asset is a hash at
// gamedata:{instance}:asset:{handle}; the set of handles is kept alongside so
// the store can be listed without SCAN.
// The store is safe for concurrent use.
type Store struct {
	rdb          *redis.Client
	instanceName string
}

var _ datastore.AssetManager = (*Store)(nil)

// NewStore creates an asset store for the given instance.
// Returns an error if instanceName is not a valid instance name.
func NewStore(redisOpts *redis.Options, instanceName string) (*Store, error) {
	if err := ValidateInstanceName(instanceName); err != nil {
		return nil, err
	}

	return &Store{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Put writes an asset and announces its handle on the asset events channel.
// Assets are content-addressed, so writing the same asset twice is safe.
func (s *Store) Put(ctx context.Context, a *datastore.AssetContent) error {
	if err := validateAsset(a); err != nil {
		return fmt.Errorf("invalid asset: %w", err)
	}

	key := AssetKey(s.instanceName, a.Handle)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, assetToHash(a))
	pipe.SAdd(ctx, AssetIndexKey(s.instanceName), a.Handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write asset to Redis: %w", err)
	}

	if err := s.rdb.Publish(ctx, AssetEventsChannel(s.instanceName), a.Handle).Err(); err != nil {
		return fmt.Errorf("failed to publish asset event: %w", err)
	}

	log.Printf("[Assets] Stored %s asset %q (%s)", a.Type, a.Name, a.Handle)
	return nil
}

// Get retrieves an asset by handle.
// Returns datastore.ErrAssetNotFound if no asset is stored under handle.
func (s *Store) Get(ctx context.Context, handle string) (*datastore.AssetContent, error) {
	hashData, err := s.rdb.HGetAll(ctx, AssetKey(s.instanceName, handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read asset from Redis: %w", err)
	}

	// HGetAll returns an empty map for missing keys
	if len(hashData) == 0 {
		return nil, datastore.ErrAssetNotFound
	}

	a, err := hashToAsset(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize asset %s: %w", handle, err)
	}
	return a, nil
}

// Exists checks whether an asset is stored without fetching its content.
func (s *Store) Exists(ctx context.Context, handle string) (bool, error) {
	n, err := s.rdb.Exists(ctx, AssetKey(s.instanceName, handle)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check asset existence: %w", err)
	}
	return n > 0, nil
}

// Handles returns every stored handle, sorted.
func (s *Store) Handles(ctx context.Context) ([]string, error) {
	handles, err := s.rdb.SMembers(ctx, AssetIndexKey(s.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	sort.Strings(handles)
	return handles, nil
}

// Missing returns the handles from want that the store does not hold.
func (s *Store) Missing(ctx context.Context, want []string) ([]string, error) {
	if len(want) == 0 {
		return []string{}, nil
	}
	members := make([]interface{}, len(want))
	for i, h := range want {
		members[i] = h
	}
	present, err := s.rdb.SMIsMember(ctx, AssetIndexKey(s.instanceName), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check asset handles: %w", err)
	}
	missing := []string{}
	for i, ok := range present {
		if !ok {
			missing = append(missing, want[i])
		}
	}
	return missing, nil
}

// Delete removes an asset. Deleting a missing asset is a no-op.
func (s *Store) Delete(ctx context.Context, handle string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, AssetKey(s.instanceName, handle))
	pipe.SRem(ctx, AssetIndexKey(s.instanceName), handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// Subscribe delivers the handles of assets stored after the call. The
// returned channel is closed when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context) (<-chan string, error) {
	pubsub := s.rdb.Subscribe(ctx, AssetEventsChannel(s.instanceName))
	// Wait for the subscription to be confirmed so no event is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to asset events: %w", err)
	}

	handles := make(chan string, 10)
	go func() {
		defer close(handles)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case handles <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return handles, nil
}
