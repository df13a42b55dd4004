package cloudsave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

var (
	// ErrNoBackup is returned by Latest when a profile has no backups.
	ErrNoBackup = errors.New("no backup found")

	// ErrChecksum is returned by Restore when the downloaded snapshot does
	// not match the checksum recorded at backup time.
	ErrChecksum = errors.New("backup checksum mismatch")
)

const (
	metaChecksum = "Checksum"
	metaSize     = "Raw-Size"

	objectSuffix = ".bolt.sz"
	contentType  = "application/x-snappy-framed"
	stampLayout  = "20060102T150405.000Z"
)

// Snapshotter writes a consistent copy of a save file, e.g.
// savedata.BoltStore.
type Snapshotter interface {
	Snapshot(w io.Writer) (int64, error)
}

// Backup describes an uploaded snapshot.
type Backup struct {
	Object   string
	Size     int64
	Checksum uint64
}

// Service uploads and downloads save backups.
type Service struct {
	client Client
	bucket string
	log    *zap.Logger
	now    func() time.Time
}

func NewService(client Client, bucket string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, bucket: bucket, log: log, now: time.Now}
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Service) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("creating bucket %q: %w", s.bucket, err)
	}
	s.log.Info("created bucket", zap.String("bucket", s.bucket))
	return nil
}

// Backup uploads a snapshot of src under profile.
func (s *Service) Backup(ctx context.Context, profile string, src Snapshotter) (*Backup, error) {
	if profile == "" || strings.Contains(profile, "/") {
		return nil, fmt.Errorf("invalid profile %q", profile)
	}
	var raw bytes.Buffer
	if _, err := src.Snapshot(&raw); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	sum := xxhash.Sum64(raw.Bytes())

	var body bytes.Buffer
	w := snappy.NewBufferedWriter(&body)
	if _, err := w.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s/%s-%s%s", profile, s.now().UTC().Format(stampLayout), uuid.NewString(), objectSuffix)
	_, err := s.client.PutObject(ctx, s.bucket, name, &body, int64(body.Len()), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			metaChecksum: strconv.FormatUint(sum, 16),
			metaSize:     strconv.Itoa(raw.Len()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}
	s.log.Info("backup uploaded", zap.String("object", name), zap.Int("size", raw.Len()), zap.Int("compressed", body.Len()))
	return &Backup{Object: name, Size: int64(raw.Len()), Checksum: sum}, nil
}

// List returns the backup objects of profile, oldest first.
func (s *Service) List(ctx context.Context, profile string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: profile + "/", Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", profile, obj.Err)
		}
		if strings.HasSuffix(obj.Key, objectSuffix) {
			names = append(names, obj.Key)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Latest returns the newest backup object of profile.
func (s *Service) Latest(ctx context.Context, profile string) (string, error) {
	names, err := s.List(ctx, profile)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w for %q", ErrNoBackup, profile)
	}
	return names[len(names)-1], nil
}

// Restore downloads object, verifies it and writes the snapshot to dst.
// Nothing is written to dst unless verification succeeds.
func (s *Service) Restore(ctx context.Context, object string, dst io.Writer) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", object, err)
	}
	want, err := strconv.ParseUint(info.UserMetadata[metaChecksum], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: missing or invalid checksum metadata: %w", object, err)
	}

	rc, err := s.client.GetObject(ctx, s.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", object, err)
	}
	defer rc.Close()

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, snappy.NewReader(rc)); err != nil {
		return 0, fmt.Errorf("decompressing %s: %w", object, err)
	}
	if got := xxhash.Sum64(raw.Bytes()); got != want {
		return 0, fmt.Errorf("%w: %s: got %016x, wanted %016x", ErrChecksum, object, got, want)
	}
	n, err := raw.WriteTo(dst)
	if err != nil {
		return n, err
	}
	s.log.Info("backup restored", zap.String("object", object), zap.Int64("size", n))
	return n, nil
}

// Prune removes all but the newest keep backups of profile and returns how
// many were removed.
func (s *Service) Prune(ctx context.Context, profile string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	names, err := s.List(ctx, profile)
	if err != nil {
		return 0, err
	}
	if len(names) <= keep {
		return 0, nil
	}
	doomed := names[:len(names)-keep]
	for i, name := range doomed {
		if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			return i, fmt.Errorf("removing %s: %w", name, err)
		}
	}
	s.log.Info("pruned backups", zap.String("profile", profile), zap.Int("removed", len(doomed)))
	return len(doomed), nil
}
