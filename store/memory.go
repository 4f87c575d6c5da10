package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/G0V1NDS/city-list/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryCollection is an in-process Collection. Documents are kept BSON
// encoded so callers never share memory with the stored copy. Unique fields
// are enforced among active documents the same way the Mongo partial
// indexes are.
type MemoryCollection[T any, P entityPtr[T]] struct {
	mu     sync.RWMutex
	name   string
	docs   map[primitive.ObjectID]bson.Raw
	order  []primitive.ObjectID
	unique []string
	now    func() time.Time
}

func NewMemoryCollection[T any, P entityPtr[T]](name string, uniqueFields ...string) *MemoryCollection[T, P] {
	return &MemoryCollection[T, P]{
		name:   name,
		docs:   make(map[primitive.ObjectID]bson.Raw),
		unique: uniqueFields,
		now:    time.Now,
	}
}

func isActive(raw bson.Raw) bool {
	status, _ := raw.Lookup("status").StringValueOK()
	return status == models.StatusActive
}

func nameOf(raw bson.Raw) string {
	name, _ := raw.Lookup("name").StringValueOK()
	return name
}

func (c *MemoryCollection[T, P]) decode(raw bson.Raw) (*T, error) {
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return &doc, nil
}

func (c *MemoryCollection[T, P]) Find(ctx context.Context, q Query) ([]*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var search *regexp.Regexp
	if q.Search != "" {
		search = regexp.MustCompile("(?i)" + regexp.QuoteMeta(q.Search))
	}

	matched := []bson.Raw{}
	for _, id := range c.order {
		raw := c.docs[id]
		if !isActive(raw) {
			continue
		}
		if search != nil && !search.MatchString(nameOf(raw)) {
			continue
		}
		matched = append(matched, raw)
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, key := range q.Sort {
				cmp := compareRaw(matched[i].Lookup(key.Key), matched[j].Lookup(key.Key))
				if cmp == 0 {
					continue
				}
				if dir, ok := key.Value.(int); ok && dir < 0 {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	start := q.Skip
	if start > int64(len(matched)) {
		start = int64(len(matched))
	}
	end := start + q.limit()
	if end > int64(len(matched)) {
		end = int64(len(matched))
	}

	docs := make([]*T, 0, end-start)
	for _, raw := range matched[start:end] {
		doc, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func compareRaw(a, b bson.RawValue) int {
	if s1, ok := a.StringValueOK(); ok {
		s2, _ := b.StringValueOK()
		switch {
		case s1 < s2:
			return -1
		case s1 > s2:
			return 1
		}
		return 0
	}
	if t1, ok := a.DateTimeOK(); ok {
		t2, _ := b.DateTimeOK()
		switch {
		case t1 < t2:
			return -1
		case t1 > t2:
			return 1
		}
		return 0
	}
	return bytes.Compare(a.Value, b.Value)
}

func (c *MemoryCollection[T, P]) findOne(match func(bson.Raw) bool) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		raw := c.docs[id]
		if match(raw) {
			return c.decode(raw)
		}
	}
	return nil, NotFound()
}

func (c *MemoryCollection[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return c.findOne(func(raw bson.Raw) bool {
		return isActive(raw) && raw.Lookup("_id").ObjectID() == oid
	})
}

func (c *MemoryCollection[T, P]) FindByIDAnyStatus(ctx context.Context, id string) (*T, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return c.findOne(func(raw bson.Raw) bool {
		return raw.Lookup("_id").ObjectID() == oid
	})
}

func (c *MemoryCollection[T, P]) FindByName(ctx context.Context, name string) (*T, error) {
	return c.findOne(func(raw bson.Raw) bool {
		return isActive(raw) && nameOf(raw) == name
	})
}

func (c *MemoryCollection[T, P]) CheckDuplicate(ctx context.Context, name, excludedID string) error {
	excluded := primitive.NilObjectID
	if excludedID != "" {
		oid, err := parseID(excludedID)
		if err != nil {
			return err
		}
		excluded = oid
	}

	existing, err := c.findOne(func(raw bson.Raw) bool {
		return isActive(raw) && nameOf(raw) == name && raw.Lookup("_id").ObjectID() != excluded
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return Conflict(existing)
}

// violatesUnique must be called with the write lock held.
func (c *MemoryCollection[T, P]) violatesUnique(candidate bson.Raw, self primitive.ObjectID) (bson.Raw, bool) {
	if !isActive(candidate) {
		return nil, false
	}
	for _, id := range c.order {
		if id == self {
			continue
		}
		raw := c.docs[id]
		if !isActive(raw) {
			continue
		}
		for _, field := range c.unique {
			v := candidate.Lookup(field)
			if v.Type == 0 {
				continue
			}
			if v.Equal(raw.Lookup(field)) {
				return raw, true
			}
		}
	}
	return nil, false
}

func (c *MemoryCollection[T, P]) Create(ctx context.Context, doc *T) error {
	prepareCreate(P(doc), c.now())
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := P(doc).GetID()
	if _, exists := c.docs[id]; exists {
		return Conflict(nil)
	}
	if existing, clash := c.violatesUnique(raw, id); clash {
		conflicting, err := c.decode(existing)
		if err != nil {
			return err
		}
		return Conflict(conflicting)
	}
	c.docs[id] = raw
	c.order = append(c.order, id)
	return nil
}

func (c *MemoryCollection[T, P]) UpdateExisting(ctx context.Context, doc *T) error {
	p := P(doc)
	p.Touch(c.now())
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.docs[p.GetID()]
	if !ok || !isActive(current) {
		return NotFound()
	}
	if _, clash := c.violatesUnique(raw, p.GetID()); clash {
		return Conflict(nil)
	}
	c.docs[p.GetID()] = raw
	return nil
}

func (c *MemoryCollection[T, P]) Update(ctx context.Context, f Filter, fields bson.M) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched, modified := 0, 0
	for _, id := range c.order {
		raw := c.docs[id]
		if !isActive(raw) {
			continue
		}
		if !f.ID.IsZero() && id != f.ID {
			continue
		}
		if f.Name != "" && nameOf(raw) != f.Name {
			continue
		}
		matched++

		updated, changed, err := applySet(raw, fields)
		if err != nil {
			return fmt.Errorf("update %s: %w", c.name, err)
		}
		if changed {
			c.docs[id] = updated
			modified++
		}
	}

	if matched == 0 {
		return NotFound()
	}
	if modified == 0 {
		return UpdateFailed()
	}
	return nil
}

// applySet is the $set of a single document: top-level fields only.
func applySet(raw bson.Raw, fields bson.M) (bson.Raw, bool, error) {
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, false, err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changed := false
	for _, key := range keys {
		t, data, err := bson.MarshalValue(fields[key])
		if err != nil {
			return nil, false, err
		}
		old := raw.Lookup(key)
		if old.Type == t && bytes.Equal(old.Value, data) {
			continue
		}
		changed = true

		replaced := false
		for i := range doc {
			if doc[i].Key == key {
				doc[i].Value = fields[key]
				replaced = true
				break
			}
		}
		if !replaced {
			doc = append(doc, bson.E{Key: key, Value: fields[key]})
		}
	}
	if !changed {
		return raw, false, nil
	}

	updated, err := bson.Marshal(doc)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func (c *MemoryCollection[T, P]) RemoveByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return c.Update(ctx, Filter{ID: oid}, removeFields(c.now()))
}
