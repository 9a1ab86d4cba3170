// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage archives rendered exports in S3-compatible object storage
// and hands out time-limited download links for them. It wraps the AWS SDK
// v2 and is configured for path-style access (required by CEPH/Hetzner/MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxPresignExpiry is the longest validity S3 accepts for a presigned URL.
const MaxPresignExpiry = 7 * 24 * time.Hour

// Archive stores exported PDFs in a single private bucket.
type Archive struct {
	s3        *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// New creates an S3 archive configured with path-style addressing.
// Returns (nil, nil) if endpoint, credentials or bucket are empty, allowing
// the app to start without storage.
func New(endpoint, region, accessKey, secretKey, bucket string) (*Archive, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}
	if region == "" {
		return nil, fmt.Errorf("s3 archive: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 archive config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(strings.TrimRight(endpoint, "/"))
		o.UsePathStyle = true
	})

	return &Archive{
		s3:        s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    bucket,
	}, nil
}

// ExportKey returns the object key of a preset's archived PDF.
func ExportKey(presetID uuid.UUID) string {
	return "exports/" + presetID.String() + ".pdf"
}

// Put uploads a complete PDF, replacing any previous archive of the preset.
// The object only becomes visible once the upload has succeeded.
func (a *Archive) Put(ctx context.Context, presetID uuid.UUID, filename string, pdf []byte) error {
	key := ExportKey(presetID)
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(pdf),
		ContentLength:      aws.Int64(int64(len(pdf))),
		ContentType:        aws.String("application/pdf"),
		ContentDisposition: aws.String(`attachment; filename="` + filename + `"`),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", a.bucket, key, err)
	}
	return nil
}

// Delete removes a preset's archived PDF. Deleting a missing object succeeds.
func (a *Archive) Delete(ctx context.Context, presetID uuid.UUID) error {
	key := ExportKey(presetID)
	_, err := a.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", a.bucket, key, err)
	}
	return nil
}

// PresignedURL generates a pre-signed GET URL for a preset's archived PDF.
// Expiry is clamped to MaxPresignExpiry.
func (a *Archive) PresignedURL(ctx context.Context, presetID uuid.UUID, expires time.Duration) (string, error) {
	if expires > MaxPresignExpiry {
		expires = MaxPresignExpiry
	}
	key := ExportKey(presetID)
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s/%s: %w", a.bucket, key, err)
	}
	return req.URL, nil
}

// Bucket returns the name of the archive bucket.
func (a *Archive) Bucket() string {
	return a.bucket
}
