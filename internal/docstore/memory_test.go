package docstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
	now   time.Time
	seq   int
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.seq = 0
	s.store = NewMemory(
		WithMemoryClock(func() time.Time { return s.now }),
		WithIDGenerator(func() string {
			s.seq++
			return fmt.Sprintf("doc-%03d", s.seq)
		}),
	)
}

func (s *MemoryStoreSuite) TestAddAndGet() {
	ctx := context.Background()

	s.Run("server timestamp is resolved on write", func() {
		id, err := s.store.Add(ctx, "requests", map[string]any{
			"name":        "Rosetta Stone",
			"submittedAt": ServerTimestamp,
		})
		s.Require().NoError(err)

		doc, err := s.store.Get(ctx, "requests", id)
		s.Require().NoError(err)
		s.Equal("Rosetta Stone", doc.Data["name"])
		s.Equal("2025-03-01T10:00:00Z", doc.Data["submittedAt"])
	})

	s.Run("missing document returns ErrNotFound", func() {
		_, err := s.store.Get(ctx, "requests", "nope")
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("returned data is a copy", func() {
		id, err := s.store.Add(ctx, "locations", map[string]any{"name": "Giza"})
		s.Require().NoError(err)

		doc, err := s.store.Get(ctx, "locations", id)
		s.Require().NoError(err)
		doc.Data["name"] = "changed"

		again, err := s.store.Get(ctx, "locations", id)
		s.Require().NoError(err)
		s.Equal("Giza", again.Data["name"])
	})
}

func (s *MemoryStoreSuite) TestUpdateMerges() {
	ctx := context.Background()
	id, err := s.store.Add(ctx, "locations", map[string]any{"name": "Knossos", "era": "Ancient"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Update(ctx, "locations", id, map[string]any{"isDisabled": false}))

	doc, err := s.store.Get(ctx, "locations", id)
	s.Require().NoError(err)
	s.Equal("Knossos", doc.Data["name"])
	s.Equal("Ancient", doc.Data["era"])
	s.Equal(false, doc.Data["isDisabled"])

	err = s.store.Update(ctx, "locations", "missing", map[string]any{"isDisabled": true})
	s.ErrorIs(err, ErrNotFound)
}

func (s *MemoryStoreSuite) TestDeleteIsUnconditional() {
	ctx := context.Background()
	id, err := s.store.Add(ctx, "requests", map[string]any{"name": "x"})
	s.Require().NoError(err)

	s.NoError(s.store.Delete(ctx, "requests", id))
	s.NoError(s.store.Delete(ctx, "requests", id))

	_, err = s.store.Get(ctx, "requests", id)
	s.ErrorIs(err, ErrNotFound)
}

func (s *MemoryStoreSuite) TestQuery() {
	ctx := context.Background()
	seed := []map[string]any{
		{"type": "Museum", "isDisabled": false},
		{"type": "Artifact", "isDisabled": false, "museumIds": []string{"doc-001"}},
		{"type": "Artifact", "isDisabled": true, "museumIds": []string{"doc-001"}},
		{"type": "Site"},
		{"type": "Artifact", "isDisabled": false, "museumIds": []string{"doc-009"}},
	}
	for _, d := range seed {
		_, err := s.store.Add(ctx, "locations", d)
		s.Require().NoError(err)
	}

	s.Run("equality excludes documents missing the field", func() {
		docs, err := s.store.Query(ctx, Query{
			Collection: "locations",
			Filters:    []Filter{Eq("isDisabled", false)},
		})
		s.Require().NoError(err)
		s.Equal([]string{"doc-001", "doc-002", "doc-005"}, ids(docs))
	})

	s.Run("array membership", func() {
		docs, err := s.store.Query(ctx, Query{
			Collection: "locations",
			Filters:    []Filter{Eq("type", "Artifact"), ArrayContains("museumIds", "doc-001")},
		})
		s.Require().NoError(err)
		s.Equal([]string{"doc-002", "doc-003"}, ids(docs))
	})

	s.Run("id set", func() {
		docs, err := s.store.Query(ctx, Query{
			Collection: "locations",
			Filters:    []Filter{IDIn([]string{"doc-004", "doc-001", "doc-404"})},
		})
		s.Require().NoError(err)
		s.Equal([]string{"doc-001", "doc-004"}, ids(docs))
	})

	s.Run("cursor and limit page in id order", func() {
		first, err := s.store.Query(ctx, Query{Collection: "locations", Limit: 2})
		s.Require().NoError(err)
		s.Equal([]string{"doc-001", "doc-002"}, ids(first))

		second, err := s.store.Query(ctx, Query{Collection: "locations", After: "doc-002", Limit: 2})
		s.Require().NoError(err)
		s.Equal([]string{"doc-003", "doc-004"}, ids(second))

		last, err := s.store.Query(ctx, Query{Collection: "locations", After: "doc-004", Limit: 2})
		s.Require().NoError(err)
		s.Equal([]string{"doc-005"}, ids(last))
	})
}

func (s *MemoryStoreSuite) TestLock() {
	ctx := context.Background()

	s.Require().NoError(s.store.Lock(ctx, "backfill", "a", time.Minute))
	s.ErrorIs(s.store.Lock(ctx, "backfill", "b", time.Minute), ErrLocked)

	s.now = s.now.Add(2 * time.Minute)
	s.NoError(s.store.Lock(ctx, "backfill", "b", time.Minute))

	s.Require().NoError(s.store.Unlock(ctx, "backfill"))
	s.NoError(s.store.Lock(ctx, "backfill", "c", time.Minute))
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
