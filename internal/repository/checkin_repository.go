// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"mood-mate-go/internal/model"
	"mood-mate-go/pkg/log"
	"mood-mate-go/pkg/storage"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

const (
	// checkinKeyPrefix 是所有打卡记录在对象存储中的公共前缀。
	checkinKeyPrefix = "mood_checkins"
	// summaryTextLimit 限制摘要中用户原文的长度，控制 prompt 体积。
	summaryTextLimit = 50
)

// CheckinRepository 定义了打卡记录的读写操作。
type CheckinRepository interface {
	// FetchRecent 构建指定用户在时间窗口内的历史视图，永不失败：
	// 单条记录的读取或解析错误被跳过，存储不可用时返回空视图。
	FetchRecent(ctx context.Context, userID string, windowDays int) model.HistoryView
	// Save 持久化一条打卡记录，尽力而为；存储未配置时直接跳过。
	Save(ctx context.Context, record model.CheckinRecord) error
}

type objectCheckinRepository struct {
	store storage.ObjectStore
	now   func() time.Time
}

// NewCheckinRepository 创建一个基于对象存储的 CheckinRepository。
// store 为 nil 时所有操作退化为空操作。
func NewCheckinRepository(store storage.ObjectStore) CheckinRepository {
	return &objectCheckinRepository{store: store, now: time.Now}
}

// FetchRecent 列出用户前缀下的全部对象，按 key 中的毫秒时间戳过滤出窗口内的记录。
func (r *objectCheckinRepository) FetchRecent(ctx context.Context, userID string, windowDays int) model.HistoryView {
	view := model.HistoryView{
		PromptSummaries: []string{},
		Records:         []model.CheckinRecord{},
	}
	if r.store == nil {
		log.Warnf("[CheckinRepo] 对象存储未配置，跳过历史检索")
		return view
	}

	threshold := r.now().Unix() - int64(windowDays)*86400
	prefix := fmt.Sprintf("%s/%s/", checkinKeyPrefix, userID)

	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		log.Errorf("[CheckinRepo] 列出对象失败, prefix: %s, error: %v", prefix, err)
		return view
	}

	for _, key := range keys {
		ts, ok := parseKeyTimestamp(key)
		if !ok {
			continue
		}
		// 窗口边界为闭区间：恰好等于阈值的记录保留。
		if ts < threshold {
			continue
		}

		data, err := r.store.Get(ctx, key)
		if err != nil {
			log.Errorf("[CheckinRepo] 读取对象失败, key: %s, error: %v", key, err)
			continue
		}
		var record model.CheckinRecord
		if err := json.Unmarshal(data, &record); err != nil {
			log.Errorf("[CheckinRepo] 解析对象失败, key: %s, error: %v", key, err)
			continue
		}

		view.PromptSummaries = append(view.PromptSummaries,
			fmt.Sprintf("Date: %s, Mood: %s, Text: %s...", record.Date, record.EmotionLabel, truncateRunes(record.InputText, summaryTextLimit)))
		view.Records = append(view.Records, record)
	}

	sort.Slice(view.Records, func(i, j int) bool {
		return view.Records[i].Timestamp > view.Records[j].Timestamp
	})
	// 摘要按格式化文本降序，并非按记录时间排序。
	sort.Sort(sort.Reverse(sort.StringSlice(view.PromptSummaries)))

	return view
}

// Save 以确定性 key 写入记录：mood_checkins/<user_id>/<id>.json。
func (r *objectCheckinRepository) Save(ctx context.Context, record model.CheckinRecord) error {
	if r.store == nil {
		log.Warnf("[CheckinRepo] 对象存储未配置，跳过保存")
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		log.Errorf("[CheckinRepo] 序列化打卡记录失败, id: %s, error: %v", record.ID, err)
		return err
	}

	key := fmt.Sprintf("%s/%s/%s.json", checkinKeyPrefix, record.UserID, record.ID)
	if err := r.store.Put(ctx, key, data, "application/json"); err != nil {
		// 区分 S3 客户端错误（认证/桶）与连接类错误，便于排障。
		if errResp := minio.ToErrorResponse(err); errResp.Code != "" {
			log.Errorf("[CheckinRepo] S3 客户端错误 (Auth/Bucket), key: %s, code: %s, error: %v", key, errResp.Code, err)
		} else {
			log.Errorf("[CheckinRepo] 连接错误，请检查对象存储 endpoint, key: %s, error: %v", key, err)
		}
		return err
	}

	log.Infof("[CheckinRepo] 打卡记录已保存, key: %s", key)
	return nil
}

// parseKeyTimestamp 从 key 末段解析毫秒时间戳并换算为秒。
// key 形如 mood_checkins/<user>/<user>_<ms>.json；无下划线分段的 key 返回 false。
func parseKeyTimestamp(key string) (int64, bool) {
	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		return 0, false
	}
	segment := key[idx+1:]
	if dot := strings.Index(segment, "."); dot >= 0 {
		segment = segment[:dot]
	}
	ms, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms / 1000, true
}

// truncateRunes 按字符截断字符串，避免在多字节字符中间断开。
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
