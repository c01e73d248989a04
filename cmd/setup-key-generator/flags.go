package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

const envVarPrefix = "SETUP_KEYGEN"

func PrefixEnvVar(suffix string) []string {
	return []string{envVarPrefix + "_" + suffix}
}

var (
	CircuitsFlag = &cli.StringSliceFlag{
		Name:    "circuits",
		Usage:   "Circuit types to process (default: all in the catalog)",
		EnvVars: PrefixEnvVar("CIRCUITS"),
	}
	ForceFlag = &cli.BoolFlag{
		Name:    "force",
		Usage:   "Regenerate keys even if a valid artifact already exists",
		EnvVars: PrefixEnvVar("FORCE"),
	}
	OutputFlag = &cli.StringFlag{
		Name:    "output",
		Usage:   "Directory to publish setup-key artifacts to",
		EnvVars: PrefixEnvVar("OUTPUT"),
		Value:   "keys/",
	}
	S3BucketFlag = &cli.StringFlag{
		Name:    "s3-bucket",
		Usage:   "Publish artifacts to this S3 bucket instead of the local output directory",
		EnvVars: PrefixEnvVar("S3_BUCKET"),
	}
	S3RegionFlag = &cli.StringFlag{
		Name:    "s3-region",
		Usage:   "AWS region of the artifact bucket",
		EnvVars: PrefixEnvVar("S3_REGION"),
		Value:   "us-east-1",
	}
	DevicesFlag = &cli.StringFlag{
		Name:    "devices",
		Usage:   "Compute devices to synthesize on, e.g. gpu:0,gpu:1 or cpu:2",
		EnvVars: PrefixEnvVar("DEVICES"),
		Value:   "cpu",
	}
	MaxAttemptsFlag = &cli.IntFlag{
		Name:    "max-attempts",
		Usage:   "Synthesis attempts per circuit before giving up on transient failures",
		EnvVars: PrefixEnvVar("MAX_ATTEMPTS"),
		Value:   3,
	}
	RetryBackoffFlag = &cli.DurationFlag{
		Name:    "retry-backoff",
		Usage:   "Wait before the first retry; doubles after each transient failure",
		EnvVars: PrefixEnvVar("RETRY_BACKOFF"),
		Value:   2 * time.Second,
	}
)

var Flags = []cli.Flag{
	CircuitsFlag,
	ForceFlag,
	OutputFlag,
	S3BucketFlag,
	S3RegionFlag,
	DevicesFlag,
	MaxAttemptsFlag,
	RetryBackoffFlag,
}
