package dbstore

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yiblet/clipvault/internal/content"
	"github.com/yiblet/clipvault/internal/store"
)

func insertInput(t *testing.T, st *SQLiteStore, in *store.InsertInput) *store.Record {
	t.Helper()
	rec, err := st.Records().Insert(in)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return rec
}

func fetchPositions(t *testing.T, st *SQLiteStore, opts store.FetchOptions) []int64 {
	t.Helper()
	records, err := st.Records().Fetch(opts)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	positions := make([]int64, len(records))
	for i, rec := range records {
		positions[i] = rec.Position
	}
	return positions
}

func TestFetchPagination(t *testing.T) {
	st := setupTestStore(t, Options{})
	for i := 0; i < 7; i++ {
		insertText(t, st, "item")
	}

	tests := []struct {
		name string
		opts store.FetchOptions
		want []int64
	}{
		{name: "first page", opts: store.FetchOptions{Limit: 3}, want: []int64{7, 6, 5}},
		{name: "second page", opts: store.FetchOptions{Limit: 3, Offset: 3}, want: []int64{4, 3, 2}},
		{name: "tail page", opts: store.FetchOptions{Limit: 3, Offset: 6}, want: []int64{1}},
		{name: "no limit", opts: store.FetchOptions{}, want: []int64{7, 6, 5, 4, 3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fetchPositions(t, st, tt.opts); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("positions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchKeyword(t *testing.T) {
	st := setupTestStore(t, Options{})
	hello1 := insertText(t, st, "hello world")
	hello2 := insertText(t, st, "say hello to everyone")
	insertText(t, st, "goodbye")

	records, err := st.Records().Fetch(store.FetchOptions{Keyword: "hello"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d results, want 2", len(records))
	}
	// Ordering contract holds under keyword filtering too.
	if records[0].ID != hello2.ID || records[1].ID != hello1.ID {
		t.Error("keyword results out of position order")
	}
}

func TestFetchKeywordReservedCharactersFallback(t *testing.T) {
	st := setupTestStore(t, Options{})
	target := insertText(t, st, "rate is 10*3 per hour")
	insertText(t, st, "rate is 103 per hour")

	// "10*3" contains an index-reserved character; the engine must take
	// the substring path instead of raising a syntax error, and match
	// exactly what a manual substring scan would.
	records, err := st.Records().Fetch(store.FetchOptions{Keyword: "10*3"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != target.ID {
		t.Errorf("reserved-character search returned %d results", len(records))
	}
}

func TestFetchFallsBackWhenIndexCorrupted(t *testing.T) {
	st := setupTestStore(t, Options{})
	if !st.ftsOK {
		t.Skip("full-text index not available in this build")
	}
	target := insertText(t, st, "fallback needle here")
	insertText(t, st, "unrelated entry")

	// Break the index underneath the live store: MATCH now errors at
	// execution time, and the scan must recover via raw content.
	if err := st.db.Exec(`DROP TABLE clipboard_items_fts`).Error; err != nil {
		t.Fatal(err)
	}
	if err := st.db.Exec(`CREATE TABLE clipboard_items_fts (item_id TEXT, content TEXT)`).Error; err != nil {
		t.Fatal(err)
	}

	records, err := st.Records().Fetch(store.FetchOptions{Keyword: "needle"})
	if err != nil {
		t.Fatalf("Fetch() over corrupted index error = %v", err)
	}
	if len(records) != 1 || records[0].ID != target.ID {
		t.Errorf("corrupted-index fallback returned %d results", len(records))
	}
}

func TestFetchKeywordLikeWildcardsAreLiteral(t *testing.T) {
	st := setupTestStore(t, Options{})
	target := insertText(t, st, "total (50%) off")
	insertText(t, st, "total (50x) off")

	// "(" routes the keyword to the substring scan; "%" inside it must
	// match only itself, never act as a wildcard.
	records, err := st.Records().Fetch(store.FetchOptions{Keyword: "(50%)"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != target.ID {
		t.Errorf("wildcard keyword returned %d results, want 1 literal match", len(records))
	}
}

func TestFetchKeywordTrimsWhitespace(t *testing.T) {
	st := setupTestStore(t, Options{})
	insertText(t, st, "trimmed keyword")

	records, err := st.Records().Fetch(store.FetchOptions{Keyword: "  trimmed \n"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("got %d results, want 1", len(records))
	}
}

func TestFetchImageContentNotIndexed(t *testing.T) {
	st := setupTestStore(t, Options{})
	if !st.ftsOK {
		// The raw-payload fallback matches bytes indiscriminately.
		t.Skip("full-text index not available in this build")
	}
	insertInput(t, st, &store.InsertInput{Type: content.TypeImage, Payload: []byte("findme-bytes")})
	insertText(t, st, "findme in text")

	records, err := st.Records().Fetch(store.FetchOptions{Keyword: "findme"})
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if rec.Type == content.TypeImage {
			t.Error("image payload matched a keyword search")
		}
	}
}

func TestFetchTagFilterDistinct(t *testing.T) {
	st := setupTestStore(t, Options{})
	tagged := insertText(t, st, "tagged twice")
	insertText(t, st, "untagged")

	work, err := st.Tags().Create("work", "")
	if err != nil {
		t.Fatal(err)
	}
	urgent, err := st.Tags().Create("urgent", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Tags().SetForItem(tagged.ID, []uuid.UUID{work.ID, urgent.ID}); err != nil {
		t.Fatal(err)
	}

	// A record matching both requested tags must not repeat.
	records, err := st.Records().Fetch(store.FetchOptions{TagIDs: []uuid.UUID{work.ID, urgent.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d results, want 1 distinct record", len(records))
	}
	if records[0].ID != tagged.ID {
		t.Error("wrong record returned for tag filter")
	}
}

func TestFetchKeywordAndTagCombined(t *testing.T) {
	st := setupTestStore(t, Options{})
	match := insertText(t, st, "meeting notes for launch")
	other := insertText(t, st, "meeting notes for retro")
	tag, err := st.Tags().Create("launch", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Tags().Add(match.ID, tag.ID); err != nil {
		t.Fatal(err)
	}
	_ = other

	records, err := st.Records().Fetch(store.FetchOptions{
		Keyword: "meeting",
		TagIDs:  []uuid.UUID{tag.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != match.ID {
		t.Errorf("combined filter returned %d results", len(records))
	}
}

func TestRankOf(t *testing.T) {
	st := setupTestStore(t, Options{})
	recs := make([]*store.Record, 5)
	for i := range recs {
		recs[i] = insertText(t, st, "item")
	}

	// Newest record ranks 0 in the descending-position ordering.
	for i, want := range []int64{4, 3, 2, 1, 0} {
		rank, err := st.Records().RankOf(recs[i].ID)
		if err != nil {
			t.Fatal(err)
		}
		if rank != want {
			t.Errorf("RankOf(recs[%d]) = %d, want %d", i, rank, want)
		}
	}

	// Deleting a newer record shifts older ranks up.
	if err := st.Records().Delete(recs[4].ID); err != nil {
		t.Fatal(err)
	}
	rank, err := st.Records().RankOf(recs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if rank != 3 {
		t.Errorf("RankOf after delete = %d, want 3", rank)
	}
}

func TestPinnedItemsClassification(t *testing.T) {
	st := setupTestStore(t, Options{})

	direct := insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("direct"), IsPinned: true})
	viaTag := insertText(t, st, "via tag")
	both := insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("both"), IsPinned: true})
	insertText(t, st, "unpinned")

	pinnedTag, err := st.Tags().Create("keepers", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Tags().SetPinned(pinnedTag.ID, true); err != nil {
		t.Fatal(err)
	}
	// Two tag rows for "both" ensures the EXISTS probe cannot duplicate.
	secondPinned, err := st.Tags().Create("keepers2", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Tags().SetPinned(secondPinned.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := st.Tags().Add(viaTag.ID, pinnedTag.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.Tags().Add(both.ID, pinnedTag.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.Tags().Add(both.ID, secondPinned.ID); err != nil {
		t.Fatal(err)
	}

	pinned, err := st.Records().PinnedItems()
	if err != nil {
		t.Fatalf("PinnedItems() error = %v", err)
	}

	got := make(map[uuid.UUID]store.PinType)
	for _, p := range pinned {
		if _, dup := got[p.Record.ID]; dup {
			t.Errorf("record %s returned more than once", p.Record.ID)
		}
		got[p.Record.ID] = p.Pin
	}
	want := map[uuid.UUID]store.PinType{
		direct.ID: store.PinDirect,
		viaTag.ID: store.PinViaTag,
		both.ID:   store.PinBoth,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("classification = %v, want %v", got, want)
	}
}

func TestSourceApps(t *testing.T) {
	st := setupTestStore(t, Options{})
	insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("a"), SourceApp: "Editor"})
	insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("b"), SourceApp: "Browser"})
	insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("c"), SourceApp: "Editor"})
	insertText(t, st, "no provenance")

	apps, err := st.Records().SourceApps()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Browser", "Editor"}
	if !reflect.DeepEqual(apps, want) {
		t.Errorf("SourceApps() = %v, want %v", apps, want)
	}
}

func TestAggregates(t *testing.T) {
	st := setupTestStore(t, Options{EnableExternalStorage: true, LargeFileThreshold: 10})
	insertText(t, st, "tiny")                            // 4 bytes, inline
	insertText(t, st, strings.Repeat("blob content", 4)) // 48 bytes, external

	count, err := st.Records().Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}

	total, err := st.Records().TotalContentSize()
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(4 + 48); total != want {
		t.Errorf("TotalContentSize() = %d, want %d", total, want)
	}

	stats, err := st.Records().Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Count != 2 || stats.TotalContentSize != total || stats.ExternalCount != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestAgeOrderedQueries(t *testing.T) {
	st := setupTestStore(t, Options{})
	oldest := insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("a"), CreatedAt: 1000})
	middle := insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("b"), CreatedAt: 2000})
	newest := insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: []byte("c"), CreatedAt: 3000})

	older, err := st.Records().ItemsOlderThan(2500)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 2 || older[0].ID != oldest.ID || older[1].ID != middle.ID {
		t.Errorf("ItemsOlderThan() wrong records or order: %d results", len(older))
	}

	firstTwo, err := st.Records().OldestItems(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(firstTwo) != 2 || firstTwo[0].ID != oldest.ID || firstTwo[1].ID != middle.ID {
		t.Errorf("OldestItems() wrong records or order: %d results", len(firstTwo))
	}
	_ = newest
}

func TestMigrationCandidateQueries(t *testing.T) {
	st := setupTestStore(t, Options{EnableExternalStorage: false})
	small := insertText(t, st, "tiny")
	big := insertInput(t, st, &store.InsertInput{Type: content.TypeText, Payload: make([]byte, 200)})

	large, err := st.Records().ItemsLargerThan(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(large) != 1 || large[0].ID != big.ID {
		t.Errorf("ItemsLargerThan() = %d results", len(large))
	}

	if err := st.Records().MigrateToExternal(big.ID); err != nil {
		t.Fatal(err)
	}
	// Already-external records are not migration candidates.
	large, err = st.Records().ItemsLargerThan(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(large) != 0 {
		t.Errorf("ItemsLargerThan() after migration = %d results, want 0", len(large))
	}

	external, err := st.Records().ExternalItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(external) != 1 || external[0].ID != big.ID {
		t.Errorf("ExternalItems() = %d results", len(external))
	}
	_ = small
}
