package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"mood-mate-go/internal/model"
	"strings"
	"testing"
	"time"
)

// fakeStore 是 storage.ObjectStore 的内存实现。
type fakeStore struct {
	objects map[string][]byte
	listErr error
	getErr  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, getErr: map[string]bool{}}
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, _ string) error {
	f.objects[key] = data
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr[key] {
		return nil, fmt.Errorf("get failed for %s", key)
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}

func (f *fakeStore) addRecord(t *testing.T, rec model.CheckinRecord) string {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	key := fmt.Sprintf("mood_checkins/%s/%s.json", rec.UserID, rec.ID)
	f.objects[key] = data
	return key
}

func recordAt(userID string, ts int64, label, text string) model.CheckinRecord {
	return model.CheckinRecord{
		ID:           fmt.Sprintf("%s_%d", userID, ts*1000),
		UserID:       userID,
		InputText:    text,
		EmotionLabel: label,
		RiskLevel:    1,
		ModelReply:   "reply",
		Timestamp:    ts,
		Date:         time.Unix(ts, 0).Format("2006-01-02 15:04:05"),
	}
}

func TestFetchRecentWindowBoundaryInclusive(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	boundary := now.Unix() - 7*86400

	store := newFakeStore()
	store.addRecord(t, recordAt("u1", boundary, "calm", "right on the boundary"))
	store.addRecord(t, recordAt("u1", boundary-1, "sad", "one second too old"))

	repo := &objectCheckinRepository{store: store, now: func() time.Time { return now }}
	view := repo.FetchRecent(context.Background(), "u1", 7)

	if len(view.Records) != 1 {
		t.Fatalf("Records=%d, want 1", len(view.Records))
	}
	if view.Records[0].Timestamp != boundary {
		t.Fatalf("Timestamp=%d, want %d", view.Records[0].Timestamp, boundary)
	}
}

func TestFetchRecentSkipsMalformedItems(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	store := newFakeStore()
	good := recordAt("u1", now.Unix()-100, "happy", "fine")
	store.addRecord(t, good)
	// key 中没有下划线分隔的时间戳段
	store.objects["mood_checkins/u1/nounderscore.json"] = []byte(`{}`)
	// 时间戳段不是数字
	store.objects["mood_checkins/u1/u1_notanumber.json"] = []byte(`{}`)
	// key 合法但内容不是 JSON
	store.objects[fmt.Sprintf("mood_checkins/u1/u1_%d.json", (now.Unix()-50)*1000)] = []byte("not json")
	// key 合法但读取失败
	failKey := store.addRecord(t, recordAt("u1", now.Unix()-60, "angry", "boom"))
	store.getErr[failKey] = true

	repo := &objectCheckinRepository{store: store, now: func() time.Time { return now }}
	view := repo.FetchRecent(context.Background(), "u1", 7)

	if len(view.Records) != 1 {
		t.Fatalf("Records=%d, want 1", len(view.Records))
	}
	if view.Records[0].EmotionLabel != "happy" {
		t.Fatalf("EmotionLabel=%q", view.Records[0].EmotionLabel)
	}
}

func TestFetchRecentStoreUnavailable(t *testing.T) {
	t.Parallel()

	repo := NewCheckinRepository(nil)
	view := repo.FetchRecent(context.Background(), "u1", 7)
	if len(view.Records) != 0 || len(view.PromptSummaries) != 0 {
		t.Fatalf("expected empty view, got %+v", view)
	}

	store := newFakeStore()
	store.listErr = fmt.Errorf("store unreachable")
	repo = NewCheckinRepository(store)
	view = repo.FetchRecent(context.Background(), "u1", 7)
	if len(view.Records) != 0 {
		t.Fatalf("expected empty view on list failure, got %d records", len(view.Records))
	}
}

func TestFetchRecentOrdering(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	store := newFakeStore()
	older := recordAt("u1", now.Unix()-5000, "sad", "earlier entry")
	newer := recordAt("u1", now.Unix()-100, "happy", "later entry")
	store.addRecord(t, older)
	store.addRecord(t, newer)

	repo := &objectCheckinRepository{store: store, now: func() time.Time { return now }}
	view := repo.FetchRecent(context.Background(), "u1", 7)

	if len(view.Records) != 2 {
		t.Fatalf("Records=%d, want 2", len(view.Records))
	}
	if view.Records[0].Timestamp != newer.Timestamp {
		t.Fatalf("display records not newest-first: %d", view.Records[0].Timestamp)
	}
	// 摘要按格式化文本降序（非时间序）
	if len(view.PromptSummaries) != 2 || view.PromptSummaries[0] < view.PromptSummaries[1] {
		t.Fatalf("prompt summaries not in descending string order: %v", view.PromptSummaries)
	}
}

func TestFetchRecentSummaryTruncation(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	longText := strings.Repeat("a", 60)
	store := newFakeStore()
	store.addRecord(t, recordAt("u1", now.Unix()-10, "anxious", longText))

	repo := &objectCheckinRepository{store: store, now: func() time.Time { return now }}
	view := repo.FetchRecent(context.Background(), "u1", 7)

	if len(view.PromptSummaries) != 1 {
		t.Fatalf("PromptSummaries=%d, want 1", len(view.PromptSummaries))
	}
	summary := view.PromptSummaries[0]
	if !strings.HasSuffix(summary, strings.Repeat("a", 50)+"...") {
		t.Fatalf("summary not truncated to 50 chars: %q", summary)
	}
	if strings.Contains(summary, strings.Repeat("a", 51)) {
		t.Fatalf("summary contains more than 50 chars of input: %q", summary)
	}
}

func TestSaveAndFetchRoundTrip(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	repo := NewCheckinRepository(store)

	record := model.NewCheckinRecord("u1", "I feel okay today", model.AnalysisResult{
		EmotionLabel: "calm",
		RiskLevel:    1,
		TextReply:    "glad to hear",
	})
	if err := repo.Save(context.Background(), record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	wantKey := fmt.Sprintf("mood_checkins/u1/%s.json", record.ID)
	if _, ok := store.objects[wantKey]; !ok {
		t.Fatalf("record not stored under %q, keys: %v", wantKey, store.objects)
	}

	view := repo.FetchRecent(context.Background(), "u1", 7)
	if len(view.Records) != 1 {
		t.Fatalf("Records=%d, want 1", len(view.Records))
	}
	got := view.Records[0]
	if got.EmotionLabel != record.EmotionLabel || got.RiskLevel != record.RiskLevel || got.Date != record.Date {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, record)
	}
}

func TestSaveStoreUnconfigured(t *testing.T) {
	t.Parallel()

	repo := NewCheckinRepository(nil)
	record := model.NewCheckinRecord("u1", "text", model.AnalysisResult{EmotionLabel: "neutral"})
	if err := repo.Save(context.Background(), record); err != nil {
		t.Fatalf("Save with nil store should be a no-op, got: %v", err)
	}
}

func TestParseKeyTimestamp(t *testing.T) {
	t.Parallel()

	ts, ok := parseKeyTimestamp("mood_checkins/u1/u1_1700000000123.json")
	if !ok || ts != 1700000000 {
		t.Fatalf("ts=%d ok=%v", ts, ok)
	}
	if _, ok := parseKeyTimestamp("mood_checkins/u1/plain.json"); ok {
		t.Fatalf("key without underscore should not parse")
	}
	if _, ok := parseKeyTimestamp("mood_checkins/u1/u1_abc.json"); ok {
		t.Fatalf("non-numeric segment should not parse")
	}
}
