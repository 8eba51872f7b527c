package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkovs/fieldvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-k string   byte-store backend ("local", "s3", "memory")
//	-o string   storage root directory for the local backend
//	-m int      maximum object size, MiB
//	-z int      compression threshold, bytes
//	-n int      default retained versions per item
//	-s string   download grant HMAC secret
//	-t int      download grant validity, minutes
//	-w int      retention sweep interval, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-d", "-k", "-o", "-m", "-z", "-n", "-s", "-t", "-w", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "byte-store backend")
	fs.StringVar(&config.StorageRoot, "o", config.StorageRoot, "storage root directory")

	maxObjectSize := fs.Int64("m", config.MaxObjectSize>>20, "maximum object size (in MiB)")
	fs.Int64Var(&config.CompressionThreshold, "z", config.CompressionThreshold, "compression threshold (in bytes)")
	fs.IntVar(&config.DefaultMaxVersions, "n", config.DefaultMaxVersions, "default retained versions per item")

	fs.StringVar(&config.GrantSecret, "s", config.GrantSecret, "download grant secret")
	grantTTL := fs.Int("t", int(config.GrantTTL.Minutes()), "grant_ttl (in minutes)")
	sweepInterval := fs.Int("w", int(config.SweepInterval.Minutes()), "sweep_interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxObjectSize = *maxObjectSize << 20
	config.GrantTTL = time.Duration(*grantTTL) * time.Minute
	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
}
