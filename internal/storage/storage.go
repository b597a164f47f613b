// internal/storage/storage.go
package storage

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/imagestore/image-store-backend/internal/config"
)

const (
	rawPrefix         = "OR"
	watermarkedPrefix = "WM"

	rawFolder         = "raws"
	watermarkedFolder = "wm"
)

// Store persists raw and watermarked assets under generated unique filenames.
// Files go to the local public directory by default, or to S3 when AWS
// credentials are configured. Writes are append-only per filename, so no two
// writers ever target the same object.
type Store struct {
	cfg      config.StorageConfig
	s3Client *s3.S3
}

func New(cfg config.StorageConfig) (*Store, error) {
	store := &Store{cfg: cfg}

	if cfg.S3AccessKeyID != "" {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.S3Region),
			Credentials: credentials.NewStaticCredentials(
				cfg.S3AccessKeyID,
				cfg.S3SecretAccessKey,
				"",
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		store.s3Client = s3.New(sess)
		return store, nil
	}

	for _, dir := range []string{cfg.RawDir, cfg.WatermarkedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
		}
	}
	return store, nil
}

// SaveRaw stores the original upload and returns its generated filename.
func (s *Store) SaveRaw(data []byte, ext string) (string, error) {
	name := generateFilename(rawPrefix, ext)
	if err := s.save(rawFolder, s.cfg.RawDir, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// SaveWatermarked stores the protected preview and returns its generated filename.
func (s *Store) SaveWatermarked(data []byte, ext string) (string, error) {
	name := generateFilename(watermarkedPrefix, ext)
	if err := s.save(watermarkedFolder, s.cfg.WatermarkedDir, name, data); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Store) save(folder, localDir, name string, data []byte) error {
	if s.s3Client != nil {
		_, err := s.s3Client.PutObject(&s3.PutObjectInput{
			Bucket:        aws.String(s.cfg.S3Bucket),
			Key:           aws.String(folder + "/" + name),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s to S3: %w", name, err)
		}
		return nil
	}

	path := filepath.Join(localDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// OpenRaw opens a stored original for reading, e.g. for mail attachments.
func (s *Store) OpenRaw(filename string) (io.ReadCloser, error) {
	name := filepath.Base(filename)

	if s.s3Client != nil {
		out, err := s.s3Client.GetObject(&s3.GetObjectInput{
			Bucket: aws.String(s.cfg.S3Bucket),
			Key:    aws.String(rawFolder + "/" + name),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s from S3: %w", name, err)
		}
		return out.Body, nil
	}

	f, err := os.Open(filepath.Join(s.cfg.RawDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open raw asset %s: %w", name, err)
	}
	return f, nil
}

// PublicURL maps a watermarked filename to its fully-qualified public URL.
func (s *Store) PublicURL(filename string) string {
	name := filepath.Base(filename)

	if s.s3Client != nil {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s/%s",
			s.cfg.S3Bucket, s.cfg.S3Region, watermarkedFolder, name)
	}
	return fmt.Sprintf("%s/images/%s/%s", s.cfg.PublicBaseURL, watermarkedFolder, name)
}

// generateFilename builds "<prefix>-<unixms>-<rand><ext>" with a four-digit
// random suffix, preserving the original extension.
func generateFilename(prefix, ext string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	suffix := int64(1000)
	if err == nil {
		suffix += n.Int64()
	}
	return fmt.Sprintf("%s-%d-%d%s", prefix, time.Now().UnixMilli(), suffix, ext)
}
