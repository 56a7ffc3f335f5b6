package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"talksphere/internal/config"
	domain "talksphere/internal/model"
)

const (
	// presignExpiry is how long a presigned upload URL stays valid.
	presignExpiry = 15 * time.Minute

	// Uploaded post images larger than this are scaled down to fit.
	postImageMaxDimension = 1600
	postImageQuality      = 85
	postImageCacheControl = "public, max-age=31536000, immutable"
)

// MediaService handles post image uploads to Cloudflare R2.
type MediaService struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.MediaEnabled() {
		return nil, domain.ErrMediaDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &MediaService{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

// PresignPostImage returns a presigned PUT URL so the client can upload a
// post image straight to R2.
func (s *MediaService) PresignPostImage(ctx context.Context, userID string, req domain.PresignImageRequest) (*domain.PresignImageResponse, error) {
	ext, ok := domain.ImageExtension(req.ContentType)
	if !ok {
		return nil, domain.ErrInvalidImageType
	}
	if req.FileSize <= 0 || req.FileSize > domain.MaxPostImageSize {
		return nil, domain.ErrFileTooLarge
	}

	key := postImageKey(ext)
	out, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.FileSize),
		CacheControl:  aws.String(postImageCacheControl),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	log.Printf("[MediaService] Presigned post image for user %s key=%s", userID, key)
	return &domain.PresignImageResponse{
		UploadURL:  out.URL,
		PublicURL:  fmt.Sprintf("%s/%s", s.publicURL, key),
		Key:        key,
		ExpiresInS: int(presignExpiry.Seconds()),
	}, nil
}

// UploadPostImage enforces size/type, scales large images down and uploads
// the result to R2. It returns the public URL to store on the post.
func (s *MediaService) UploadPostImage(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (string, error) {
	data, contentType, err := readAndValidateImage(file, header, domain.MaxPostImageSize)
	if err != nil {
		return "", err
	}

	body, contentType, err := normalizePostImage(data, contentType)
	if err != nil {
		return "", err
	}

	ext, _ := domain.ImageExtension(contentType)
	key := postImageKey(ext)
	if err := s.putObject(ctx, key, body, contentType, postImageCacheControl); err != nil {
		return "", err
	}

	log.Printf("[MediaService] Uploaded post image for user %s key=%s size=%d", userID, key, len(body))
	return fmt.Sprintf("%s/%s", s.publicURL, key), nil
}

func postImageKey(ext string) string {
	return fmt.Sprintf("%s/%s%s", domain.PostImageFolder, uuid.NewString(), ext)
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	limitedReader := io.LimitReader(file, maxSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if _, ok := domain.ImageExtension(contentType); !ok {
		return nil, "", domain.ErrInvalidImageType
	}

	return data, contentType, nil
}

// normalizePostImage re-encodes still images that exceed the maximum
// dimension as JPEG. GIFs and images already within bounds pass through.
func normalizePostImage(data []byte, contentType string) ([]byte, string, error) {
	if contentType == domain.ContentTypeGIF || contentType == domain.ContentTypeWebP {
		return data, contentType, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", domain.ErrInvalidImageType
	}

	b := img.Bounds()
	if b.Dx() <= postImageMaxDimension && b.Dy() <= postImageMaxDimension {
		return data, contentType, nil
	}

	resized := imaging.Fit(img, postImageMaxDimension, postImageMaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(postImageQuality)); err != nil {
		return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), domain.ContentTypeJPEG, nil
}

// putObject uploads bytes to R2 with metadata.
func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}
