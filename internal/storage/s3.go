package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iters = 100_000
	saltLen     = 16
)

// S3Client exports and re-imports document bytes. When a password is given,
// payloads are sealed with AES-GCM under a pbkdf2-derived key; the salt and
// nonce travel with the object.
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucketName string
}

// NewS3Client creates a new S3 client against the given bucket.
func NewS3Client(ctx context.Context, bucketName string) (*S3Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		downloader: manager.NewDownloader(cli),
		bucketName: bucketName,
	}, nil
}

// Upload stores data under key. An empty password stores plaintext.
func (s *S3Client) Upload(ctx context.Context, key, name string, data []byte, password string) error {
	encrypted := password != ""
	payload := data
	if encrypted {
		var err error
		payload, err = seal(data, password)
		if err != nil {
			return fmt.Errorf("failed to encrypt payload: %w", err)
		}
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/pdf"),
		Metadata: map[string]string{
			"name":      name,
			"encrypted": fmt.Sprintf("%t", encrypted),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("bucket", s.bucketName).Str("key", key).Int("size", len(data)).Bool("encrypted", encrypted).Msg("document exported to s3")
	return nil
}

// Download fetches and, when needed, unseals an exported document.
func (s *S3Client) Download(ctx context.Context, key, password string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	data := buf.Bytes()
	if password == "" {
		return data, nil
	}
	plain, err := open(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return plain, nil
}

// seal encrypts data with AES-GCM; output is salt || nonce || ciphertext.
func seal(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := append(append([]byte(nil), salt...), nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// open reverses seal.
func open(data []byte, password string) ([]byte, error) {
	if len(data) < saltLen {
		return nil, fmt.Errorf("payload too short")
	}
	salt, rest := data[:saltLen], data[saltLen:]
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("payload too short")
	}
	nonce, ct := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, nil)
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iters, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
