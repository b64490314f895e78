package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI はS3Storeが使うS3クライアントの操作。
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config はS3互換ストレージの接続設定。
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // 空の場合はAWSの既定のエンドポイントを使う
	AccessKeyID     string // 空の場合はAWSの既定の認証情報チェーンを使う
	SecretAccessKey string
	PublicURL       string
}

// S3Store はS3互換のオブジェクトストレージにファイルを保存する。
type S3Store struct {
	client    PutObjectAPI
	bucket    string
	publicURL string
}

// NewS3Store は設定からS3クライアントを構築してS3Storeを生成する。
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, cfg.Bucket, cfg.PublicURL), nil
}

// NewS3StoreWithClient は既存のクライアントでS3Storeを生成する。
func NewS3StoreWithClient(client PutObjectAPI, bucket, publicURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// Store はデータを "<uuid>.<ext>" というキーでバケットに保存する。
func (s *S3Store) Store(ctx context.Context, data []byte, mimeType string) (string, error) {
	key, err := newFilename(mimeType)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return key, nil
}

// URL はオブジェクトの公開URLを返す。
func (s *S3Store) URL(filename string) string {
	return s.publicURL + "/" + filename
}

// Name は保存先の名前を返す。
func (s *S3Store) Name() string {
	return "s3"
}

// compile-time interface check
var _ FileStore = (*S3Store)(nil)
