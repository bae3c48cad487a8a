package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/codec"
	"github.com/hupe1980/relate/params"
)

// Store is the result store. It is safe for concurrent use.
type Store struct {
	backend backend.Backend
	opts    Options
	logger  *slog.Logger
	locks   *keyedMutex

	mu   sync.RWMutex
	meta map[string]*Metadata // metadata by info key
}

// New creates a store over b.
func New(b backend.Backend, optFns ...func(o *Options)) *Store {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}

	return &Store{
		backend: b,
		opts:    opts,
		logger:  opts.Logger.With("component", "store"),
		locks:   newKeyedMutex(),
		meta:    make(map[string]*Metadata),
	}
}

// Backend returns the underlying persistence medium.
func (s *Store) Backend() backend.Backend { return s.backend }

// Close closes the backend if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Exists reports whether a committed record matches q.
func (s *Store) Exists(ctx context.Context, q Query) (bool, error) {
	_, err := s.Lookup(ctx, q)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Lookup returns the newest committed record matching q.
//
// Undecodable metadata under the same key path cannot match any query; it
// is logged and left to Clear or the next replacing Put.
func (s *Store) Lookup(ctx context.Context, q Query) (*Record, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	recs, _, err := s.scan(ctx, q)
	if err != nil {
		return nil, err
	}

	for _, rec := range recs {
		if rec.matches(q) {
			s.opts.Metrics.RecordLookup(q.Namespace, true, time.Since(start))
			s.logger.Debug("hit", "namespace", q.Namespace, "key1", q.Key1, "key2", q.Key2, "record", rec.Key)
			return rec, nil
		}
	}

	s.opts.Metrics.RecordLookup(q.Namespace, false, time.Since(start))
	s.logger.Debug("miss", "namespace", q.Namespace, "key1", q.Key1, "key2", q.Key2, "params", q.Params.Key())
	return nil, &NotFoundError{Namespace: q.Namespace, Key1: q.Key1, Key2: q.Key2, ParamsKey: q.Params.Key()}
}

// Put encodes payload and commits it under q. info, if not nil, is stored
// with the metadata and can be read back with Metadata.DecodeInfo.
func (s *Store) Put(ctx context.Context, q Query, payload, info any) (*Record, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	rec, n, err := s.put(ctx, q, payload, info)
	s.opts.Metrics.RecordWrite(q.Namespace, n, time.Since(start), err)
	if err != nil {
		s.logger.Error("store failed", "namespace", q.Namespace, "key1", q.Key1, "key2", q.Key2, "error", err)
		return nil, err
	}

	s.logger.Info("stored", "namespace", q.Namespace, "key1", q.Key1, "key2", q.Key2, "record", rec.Key, "bytes", n)
	return rec, nil
}

func (s *Store) put(ctx context.Context, q Query, payload, info any) (*Record, int, error) {
	body, err := codec.Envelope{Codec: s.opts.Codec, Compression: s.opts.Compression}.Seal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("store: encode payload: %w", err)
	}

	var rawInfo gojson.RawMessage
	if info != nil {
		if rawInfo, err = gojson.Marshal(info); err != nil {
			return nil, 0, fmt.Errorf("store: encode info: %w", err)
		}
	}

	unlock, err := s.lock(ctx, q.lockName())
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	recs, corrupt, err := s.scan(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	var older []*Record
	for _, rec := range recs {
		if rec.matches(q) {
			older = append(older, rec)
		}
	}
	if s.opts.WriteMode == WriteExclusive && len(older) > 0 {
		return nil, 0, &ConflictError{Existing: older[0]}
	}

	id, err := s.opts.NewID()
	if err != nil {
		return nil, 0, fmt.Errorf("store: new record id: %w", err)
	}
	payloadKey, infoKey := recordNames(q, id)

	md := Metadata{
		Namespace:   q.Namespace,
		Key1:        q.Key1,
		Key2:        q.Key2,
		Params:      q.Params.Clone(),
		ParamsKey:   q.Params.Key(),
		Created:     s.opts.Now().UTC(),
		Codec:       s.opts.Codec.Name(),
		Compression: s.opts.Compression.String(),
		Size:        len(body),
		Info:        rawInfo,
	}
	if q.BasedOn != nil {
		md.BasedOn = &Reference{Name: q.BasedOn.Name, Params: q.BasedOn.Params.Clone()}
	}

	head, err := codec.Envelope{Codec: s.opts.Codec}.Seal(&md)
	if err != nil {
		return nil, 0, fmt.Errorf("store: encode metadata: %w", err)
	}

	if err := s.backend.Put(ctx, payloadKey, body); err != nil {
		return nil, 0, fmt.Errorf("store: write payload %s: %w", payloadKey, err)
	}
	if err := s.backend.Put(ctx, infoKey, head); err != nil {
		if derr := s.backend.Delete(ctx, payloadKey); derr != nil {
			s.logger.Warn("remove orphaned payload", "record", payloadKey, "error", derr)
		}
		return nil, 0, fmt.Errorf("store: write metadata %s: %w", infoKey, err)
	}

	s.cacheMeta(infoKey, &md)

	for _, old := range older {
		if err := s.remove(ctx, old); err != nil {
			s.logger.Warn("remove replaced record", "record", old.Key, "error", err)
		}
	}
	for _, c := range corrupt {
		if err := s.removeCorrupt(ctx, c); err != nil {
			s.logger.Warn("remove undecodable record", "record", c.Key, "error", err)
		}
	}

	return &Record{Key: payloadKey, InfoKey: infoKey, ID: id, Metadata: md}, len(body), nil
}

// Load decodes the payload of rec into out.
func (s *Store) Load(ctx context.Context, rec *Record, out any) error {
	start := time.Now()
	err := s.load(ctx, rec, out)
	s.opts.Metrics.RecordLoad(rec.Namespace, time.Since(start), err)
	return err
}

func (s *Store) load(ctx context.Context, rec *Record, out any) error {
	data, err := s.backend.Get(ctx, rec.Key)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return &DeserializationError{Key: rec.Key, cause: fmt.Errorf("payload missing: %w", err)}
		}
		return fmt.Errorf("store: read %s: %w", rec.Key, err)
	}
	if err := codec.Open(data, out); err != nil {
		return &DeserializationError{Key: rec.Key, cause: err}
	}
	return nil
}

// Get looks up q and decodes the payload into out.
func (s *Store) Get(ctx context.Context, q Query, out any) (*Record, error) {
	rec, err := s.Lookup(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx, rec, out); err != nil {
		return nil, err
	}
	return rec, nil
}

// StoreDescription commits a description of entityID.
func (s *Store) StoreDescription(ctx context.Context, payload, info any, entityID, descriptor string, p params.Params) (*Record, error) {
	return s.Put(ctx, DescriptionQuery(entityID, descriptor, p), payload, info)
}

// StoreCollectionResult commits a collection-wide result.
func (s *Store) StoreCollectionResult(ctx context.Context, payload, info any, collection, method string, basedOn *Reference, p params.Params) (*Record, error) {
	return s.Put(ctx, CollectionQuery(collection, method, basedOn, p), payload, info)
}

// GetDescription decodes the matching description into out.
func (s *Store) GetDescription(ctx context.Context, entityID, descriptor string, p params.Params, out any) (*Record, error) {
	return s.Get(ctx, DescriptionQuery(entityID, descriptor, p), out)
}

// GetCollectionResult decodes the matching collection result into out.
func (s *Store) GetCollectionResult(ctx context.Context, collection, method string, basedOn *Reference, p params.Params, out any) (*Record, error) {
	return s.Get(ctx, CollectionQuery(collection, method, basedOn, p), out)
}

// Clear removes every record matching q, together with undecodable metadata
// records under the same key path. It returns ErrNotFound if nothing was
// removed.
func (s *Store) Clear(ctx context.Context, q Query) error {
	if err := q.validate(); err != nil {
		return err
	}

	removed, err := s.clear(ctx, q)
	s.opts.Metrics.RecordClear(q.Namespace, removed, err)
	if err != nil {
		return err
	}
	if removed == 0 {
		return &NotFoundError{Namespace: q.Namespace, Key1: q.Key1, Key2: q.Key2, ParamsKey: q.Params.Key()}
	}

	s.logger.Info("cleared", "namespace", q.Namespace, "key1", q.Key1, "key2", q.Key2, "params", q.Params.Key(), "records", removed)
	return nil
}

func (s *Store) clear(ctx context.Context, q Query) (int, error) {
	unlock, err := s.lock(ctx, q.lockName())
	if err != nil {
		return 0, err
	}
	defer unlock()

	recs, corrupt, err := s.scan(ctx, q)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range recs {
		if !rec.matches(q) {
			continue
		}
		if err := s.remove(ctx, rec); err != nil {
			return removed, err
		}
		removed++
	}

	for _, c := range corrupt {
		if err := s.removeCorrupt(ctx, c); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// removeCorrupt deletes an undecodable metadata record and its payload.
func (s *Store) removeCorrupt(ctx context.Context, c *DeserializationError) error {
	payloadKey := path.Join(path.Dir(c.Key), strings.TrimPrefix(path.Base(c.Key), infoPrefix))
	return s.deleteKeys(ctx, c.Key, payloadKey)
}

// ClearDescription removes the description of entityID matching p.
func (s *Store) ClearDescription(ctx context.Context, entityID, descriptor string, p params.Params) error {
	return s.Clear(ctx, DescriptionQuery(entityID, descriptor, p))
}

// ClearCollectionResult removes the collection result matching basedOn and p.
func (s *Store) ClearCollectionResult(ctx context.Context, collection, method string, basedOn *Reference, p params.Params) error {
	return s.Clear(ctx, CollectionQuery(collection, method, basedOn, p))
}

// ClearDescriptions removes all descriptions of entityID computed by descriptor.
func (s *Store) ClearDescriptions(ctx context.Context, entityID, descriptor string) error {
	if err := validateName("entity", entityID); err != nil {
		return err
	}
	if err := validateName("descriptor", descriptor); err != nil {
		return err
	}
	return s.clearPrefix(ctx, Descriptions, backend.Join(string(Descriptions), entityID, descriptor)+"/", nil)
}

// ClearEntity removes all descriptions of entityID.
func (s *Store) ClearEntity(ctx context.Context, entityID string) error {
	if err := validateName("entity", entityID); err != nil {
		return err
	}
	return s.clearPrefix(ctx, Descriptions, backend.Join(string(Descriptions), entityID)+"/", nil)
}

// ClearDescriptor removes the descriptor subtree across all entities.
func (s *Store) ClearDescriptor(ctx context.Context, descriptor string) error {
	if err := validateName("descriptor", descriptor); err != nil {
		return err
	}
	return s.clearPrefix(ctx, Descriptions, string(Descriptions)+"/", func(key string) bool {
		parts := backend.Split(key)
		return len(parts) > 2 && parts[2] == descriptor
	})
}

// ClearMethod removes the method subtree of collection.
func (s *Store) ClearMethod(ctx context.Context, collection, method string) error {
	if err := validateName("collection", collection); err != nil {
		return err
	}
	if err := validateName("method", method); err != nil {
		return err
	}
	return s.clearPrefix(ctx, Collections, backend.Join(string(Collections), collection, method)+"/", nil)
}

// ClearCollection removes every result of collection.
func (s *Store) ClearCollection(ctx context.Context, collection string) error {
	if err := validateName("collection", collection); err != nil {
		return err
	}
	return s.clearPrefix(ctx, Collections, backend.Join(string(Collections), collection)+"/", nil)
}

// ClearNamespace removes everything in ns.
func (s *Store) ClearNamespace(ctx context.Context, ns Namespace) error {
	if !ns.Valid() {
		return &InvalidArgumentError{Field: "namespace", Reason: fmt.Sprintf("unknown namespace %q", ns)}
	}
	return s.clearPrefix(ctx, ns, string(ns)+"/", nil)
}

// ClearAll removes everything in both namespaces.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, ns := range []Namespace{Descriptions, Collections} {
		if err := s.ClearNamespace(ctx, ns); err != nil {
			return err
		}
	}
	return nil
}

// clearPrefix removes every key under prefix accepted by keep (all when nil).
// Metadata records go first so no result is visible half-removed. Clearing
// an empty subtree is not an error.
func (s *Store) clearPrefix(ctx context.Context, ns Namespace, prefix string, keep func(key string) bool) error {
	removed, err := s.clearKeys(ctx, prefix, keep)
	s.invalidate(prefix)
	s.opts.Metrics.RecordClear(ns, removed, err)
	if err != nil {
		return err
	}
	s.logger.Info("cleared", "namespace", ns, "prefix", prefix, "records", removed)
	return nil
}

// invalidate drops cached metadata and backend read caches below prefix,
// including entries for keys that are already gone from the listing.
func (s *Store) invalidate(prefix string) {
	if inv, ok := s.backend.(backend.Invalidator); ok {
		inv.InvalidatePrefix(prefix)
	}
	s.mu.Lock()
	for key := range s.meta {
		if strings.HasPrefix(key, prefix) {
			delete(s.meta, key)
		}
	}
	s.mu.Unlock()
}

func (s *Store) clearKeys(ctx context.Context, prefix string, keep func(key string) bool) (int, error) {
	keys, err := s.backend.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("store: list %s: %w", prefix, err)
	}

	var infos, rest []string
	for _, key := range keys {
		if keep != nil && !keep(key) {
			continue
		}
		if strings.HasPrefix(path.Base(key), infoPrefix) {
			infos = append(infos, key)
		} else {
			rest = append(rest, key)
		}
	}

	if err := s.deleteKeys(ctx, infos...); err != nil {
		return 0, err
	}
	if err := s.deleteKeys(ctx, rest...); err != nil {
		return len(infos), err
	}
	return len(infos), nil
}

// List returns every committed record of ns, or of both namespaces when ns
// is empty, ordered by key path and creation.
func (s *Store) List(ctx context.Context, ns Namespace) ([]*Record, error) {
	var spaces []Namespace
	switch {
	case ns == "":
		spaces = []Namespace{Collections, Descriptions}
	case ns.Valid():
		spaces = []Namespace{ns}
	default:
		return nil, &InvalidArgumentError{Field: "namespace", Reason: fmt.Sprintf("unknown namespace %q", ns)}
	}

	var out []*Record
	for _, space := range spaces {
		keys, err := s.backend.List(ctx, string(space)+"/")
		if err != nil {
			return nil, fmt.Errorf("store: list %s: %w", space, err)
		}

		for _, key := range keys {
			parts := backend.Split(key)
			if len(parts) != 4 {
				continue
			}
			q := Query{Namespace: space, Key1: parts[1], Key2: parts[2]}
			id, payloadKey, ok := parseInfoName(q, key)
			if !ok {
				continue
			}

			md, err := s.metadata(ctx, key)
			if err != nil {
				if errors.Is(err, backend.ErrNotFound) {
					continue
				}
				return nil, err
			}
			out = append(out, &Record{Key: payloadKey, InfoKey: key, ID: id, Metadata: *md})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		if a.Key1 != b.Key1 {
			return a.Key1 < b.Key1
		}
		if a.Key2 != b.Key2 {
			return a.Key2 < b.Key2
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	return out, nil
}

// scan decodes the metadata records filed under q's key path, newest first.
// Undecodable metadata is returned separately.
func (s *Store) scan(ctx context.Context, q Query) ([]*Record, []*DeserializationError, error) {
	keys, err := s.backend.List(ctx, q.dir())
	if err != nil {
		return nil, nil, fmt.Errorf("store: list %s: %w", q.dir(), err)
	}

	var (
		recs    []*Record
		corrupt []*DeserializationError
	)
	for _, key := range keys {
		id, payloadKey, ok := parseInfoName(q, key)
		if !ok {
			continue
		}

		md, err := s.metadata(ctx, key)
		if err != nil {
			var derr *DeserializationError
			switch {
			case errors.Is(err, backend.ErrNotFound):
				continue
			case errors.As(err, &derr):
				s.logger.Warn("undecodable metadata", "record", key, "error", err)
				corrupt = append(corrupt, derr)
				continue
			default:
				return nil, nil, err
			}
		}
		recs = append(recs, &Record{Key: payloadKey, InfoKey: key, ID: id, Metadata: *md})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return bytes.Compare(recs[i].ID[:], recs[j].ID[:]) > 0
	})
	return recs, corrupt, nil
}

// metadata reads and decodes a metadata record, consulting the cache first.
func (s *Store) metadata(ctx context.Context, key string) (*Metadata, error) {
	s.mu.RLock()
	md, ok := s.meta[key]
	s.mu.RUnlock()
	if ok {
		return md, nil
	}

	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}

	md = new(Metadata)
	if err := codec.Open(data, md); err != nil {
		return nil, &DeserializationError{Key: key, cause: err}
	}

	s.cacheMeta(key, md)
	return md, nil
}

func (s *Store) cacheMeta(key string, md *Metadata) {
	s.mu.Lock()
	s.meta[key] = md
	s.mu.Unlock()
}

// remove deletes a committed record, metadata first.
func (s *Store) remove(ctx context.Context, rec *Record) error {
	return s.deleteKeys(ctx, rec.InfoKey, rec.Key)
}

func (s *Store) deleteKeys(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("store: delete %s: %w", key, err)
		}
		s.mu.Lock()
		delete(s.meta, key)
		s.mu.Unlock()
	}
	return nil
}
