// Package cloudsave backs up save files to S3-compatible object storage
// (MinIO, AWS S3) and restores them.
//
// # Layout
//
// Backups of a profile live under "<profile>/" in the configured bucket,
// named "<UTC timestamp>-<uuid>.bolt.sz", so lexical order is chronological.
// The object body is the snappy-framed bolt snapshot. The xxhash64 of the
// uncompressed snapshot is stored in the object's user metadata and verified
// on Restore.
//
// # Usage
//
//	client, _ := cloudsave.NewClient(cfg)
//	svc := cloudsave.NewService(client, cfg.Bucket, log)
//	b, err := svc.Backup(ctx, "player-1", boltStore)
//	...
//	name, _ := svc.Latest(ctx, "player-1")
//	_, err = svc.Restore(ctx, name, file)
package cloudsave
