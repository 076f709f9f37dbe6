// Package storage 提供了与 S3 兼容对象存储服务（如 Tigris、MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mood-mate-go/internal/config"
	"mood-mate-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore 定义了管道所需的对象存储操作。
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinIO 初始化对象存储客户端并确保存储桶存在。
// 凭证或桶名缺失时返回 nil（禁用依赖对象存储的功能），而不是中断启动。
func NewMinIO(cfg config.StoreConfig) ObjectStore {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		log.Warnf("[Storage] 对象存储凭证或 endpoint 缺失，相关功能已禁用")
		return nil
	}
	if cfg.BucketName == "" {
		log.Warnf("[Storage] 未配置存储桶名称，相关功能已禁用")
		return nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Error("[Storage] 初始化对象存储客户端失败，相关功能已禁用", err)
		return nil
	}

	// 检查存储桶是否存在，不存在则创建；失败仅告警，写入时会再次暴露错误。
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		log.Warnf("[Storage] 检查存储桶 '%s' 失败: %v", cfg.BucketName, err)
	} else if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Warnf("[Storage] 创建存储桶 '%s' 失败: %v", cfg.BucketName, err)
		} else {
			log.Infof("[Storage] 存储桶 '%s' 创建成功", cfg.BucketName)
		}
	}

	log.Info("[Storage] 对象存储客户端初始化成功")
	return &minioStore{client: client, bucket: cfg.BucketName}
}

// Put 将数据写入指定 key 的对象。
func (s *minioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// List 返回指定前缀下所有对象的 key。
func (s *minioStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

// Get 读取指定 key 的对象全部内容。
func (s *minioStore) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}
