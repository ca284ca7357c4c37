package config

import (
	"flag"
	"os"
	"time"

	"github.com/campusshare/campusshare/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-a string   metrics bind address (e.g., ":9090")
//	-k string   blob backend kind ("fs" or "s3")
//	-f string   blob directory for the filesystem backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-r int      retention window, days
//	-i int      sweep interval, minutes
//	-o int      orphan grace period, minutes
//	-n int      max clips per account
//	-l int      max characters per clip
//	-q int      default storage limit for new accounts, bytes
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-a", "-k", "-f", "-u", "-p", "-b", "-g", "-e", "-r", "-i", "-o", "-n", "-l", "-q"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MetricsAddr, "a", config.MetricsAddr, "metrics bind address")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend kind (fs|s3)")
	fs.StringVar(&config.BlobDir, "f", config.BlobDir, "blob directory (fs backend)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.IntVar(&config.RetentionDays, "r", config.RetentionDays, "retention window (in days)")
	sweepInterval := fs.Int("i", int(config.SweepInterval.Minutes()), "sweep interval (in minutes)")
	orphanGrace := fs.Int("o", int(config.OrphanGrace.Minutes()), "orphan grace period (in minutes)")

	fs.IntVar(&config.MaxClipCount, "n", config.MaxClipCount, "max clips per account")
	fs.IntVar(&config.MaxClipChars, "l", config.MaxClipChars, "max characters per clip")
	fs.Int64Var(&config.DefaultStorageLimitBytes, "q", config.DefaultStorageLimitBytes, "default storage limit (in bytes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
	config.OrphanGrace = time.Duration(*orphanGrace) * time.Minute
}
