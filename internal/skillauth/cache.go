package skillauth

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CertificateStore keeps fetched PEM bytes keyed by certificate URL.
type CertificateStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachingFetcher serves certificates from a store and falls back to the
// wrapped fetcher on a miss. Entries never outlive the certificate itself.
// Cached bytes are still validated on every request by the Verifier.
type CachingFetcher struct {
	next   CertificateFetcher
	store  CertificateStore
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	group  singleflight.Group
}

// NewCachingFetcher wraps next; ttl caps the lifetime of an entry.
func NewCachingFetcher(next CertificateFetcher, store CertificateStore, ttl time.Duration, logger *zap.Logger) *CachingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingFetcher{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (f *CachingFetcher) Fetch(ctx context.Context, certificateURL string) ([]byte, error) {
	if pemData, ok, err := f.store.Get(ctx, certificateURL); err != nil {
		f.logger.Warn("certificate cache read failed", zap.String("certificateUrl", certificateURL), zap.Error(err))
	} else if ok {
		return pemData, nil
	}

	// the shared fetch must not be cut short by the first caller giving up
	fetchCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(certificateURL, func() (interface{}, error) {
		pemData, err := f.next.Fetch(fetchCtx, certificateURL)
		if err != nil {
			return nil, err
		}
		if ttl := f.entryTTL(pemData); ttl > 0 {
			if err := f.store.Set(fetchCtx, certificateURL, pemData, ttl); err != nil {
				f.logger.Warn("certificate cache write failed", zap.String("certificateUrl", certificateURL), zap.Error(err))
			}
		}
		return pemData, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.([]byte), nil
	}
}

// entryTTL is the configured ttl bounded by the certificate's expiry.
// Unparseable data is not cached.
func (f *CachingFetcher) entryTTL(pemData []byte) time.Duration {
	pc, err := ParseCertificate(pemData)
	if err != nil {
		return 0
	}
	ttl := pc.ValidTo.Sub(f.now())
	if f.ttl > 0 && f.ttl < ttl {
		ttl = f.ttl
	}
	return ttl
}

// MemoryStore is an in-process store backed by go-cache.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

// RedisStore shares fetched certificates between gateway instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "skillgate:cert:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}
