package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/checksum"
	"github.com/starford/doclib/internal/models"
)

// S3Config configures the S3 backend. Endpoint may point at MinIO or any
// S3-compatible server; path-style addressing is always used.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// S3 implements Provider on an S3 bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string // "" or "dir/"
	exts   extFilter
}

// NewS3 creates the backend and ensures the bucket exists.
func NewS3(ctx context.Context, cfg S3Config, exts []string) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	b := &S3{client: client, bucket: cfg.Bucket, prefix: prefix, exts: newExtFilter(exts)}
	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *S3) ensureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err == nil {
		return nil
	}
	if _, cerr := b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(b.bucket)}); cerr != nil {
		return fmt.Errorf("storage: bucket %s does not exist and cannot be created: %w", b.bucket, cerr)
	}
	slog.Info("storage: created bucket", slog.String("bucket", b.bucket))
	return nil
}

// key maps a relative path to an object key, rejecting traversal.
func (b *S3) key(p string) (string, error) {
	rel := strings.Trim(p, "/")
	if rel == "" {
		return "", errors.New("storage: empty path")
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("storage: path escapes root: %s", p)
		}
	}
	return b.prefix + path.Clean(rel), nil
}

// Allowed reports whether p has a served extension and is not hidden.
func (b *S3) Allowed(p string) bool {
	base := path.Base(p)
	return !strings.HasPrefix(base, ".") && b.exts.allowed(base)
}

// Digest reports MD5, the ETag of a single-part put.
func (b *S3) Digest() checksum.Algo { return checksum.MD5 }

// List pages through every object under dir.
func (b *S3) List(ctx context.Context, dir string) ([]models.ObjectInfo, error) {
	prefix := b.prefix
	if d := strings.Trim(dir, "/"); d != "" {
		prefix += d + "/"
	}
	var out []models.ObjectInfo
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if rel == "" || strings.HasSuffix(rel, "/") || !b.Allowed(rel) {
				continue
			}
			out = append(out, models.ObjectInfo{
				Path:      rel,
				Checksum:  strings.Trim(aws.ToString(obj.ETag), `"`),
				Size:      aws.ToInt64(obj.Size),
				UpdatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

// Read downloads an object.
func (b *S3) Read(ctx context.Context, p string) ([]byte, error) {
	k, err := b.key(p)
	if err != nil {
		return nil, err
	}
	res, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(k)})
	if err != nil {
		var nk *types.NoSuchKey
		if errors.As(err, &nk) {
			return nil, fmt.Errorf("storage: read %s: %w", p, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Write uploads an object. S3 puts are atomic.
func (b *S3) Write(ctx context.Context, p string, content []byte) error {
	k, err := b.key(p)
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(k),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", p, err)
	}
	return nil
}

// Delete removes an object.
func (b *S3) Delete(ctx context.Context, p string) error {
	k, err := b.key(p)
	if err != nil {
		return err
	}
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(k)}); err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	return nil
}

// Move copies then deletes.
func (b *S3) Move(ctx context.Context, oldPath, newPath string) error {
	src, err := b.key(oldPath)
	if err != nil {
		return err
	}
	dst, err := b.key(newPath)
	if err != nil {
		return err
	}
	_, err = b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(b.bucket + "/" + src),
	})
	if err != nil {
		return fmt.Errorf("storage: copy %s -> %s: %w", oldPath, newPath, err)
	}
	return b.Delete(ctx, oldPath)
}
