// FILE: lixenwraith/props/cmd/props/flags.go
package main

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var logJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var logDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var logUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

// Source flags, highest priority first: --set, env, files, discovered file,
// hcl, sqlite, git, vault, s3.
var setFlag = &cli.StringSliceFlag{
	Name:  "set",
	Usage: "override a property, name=value (repeatable)",
}
var envPrefixFlag = &cli.StringFlag{
	Name:    "env-prefix",
	Usage:   "read properties from environment variables with this prefix, e.g. APP_",
	EnvVars: []string{"PROPS_ENV_PREFIX"},
}
var fileFlag = &cli.StringSliceFlag{
	Name:    "file",
	Aliases: []string{"f"},
	Usage:   "properties document (toml, json, yaml, properties); repeatable, first wins",
}
var appFlag = &cli.StringFlag{
	Name:  "app",
	Usage: "discover <app>.{toml,yaml,json,properties} in the working and XDG config dirs",
}
var hclFlag = &cli.StringFlag{
	Name:  "hcl",
	Usage: "HCL document",
}
var sqliteFlag = &cli.StringFlag{
	Name:  "sqlite",
	Usage: "SQLite database with a properties(name, value) table",
}
var sqliteTableFlag = &cli.StringFlag{
	Name:  "sqlite-table",
	Value: "properties",
	Usage: "table holding the properties",
}
var gitDirFlag = &cli.StringFlag{
	Name:  "git-dir",
	Usage: "git repository holding a properties document",
}
var gitPathFlag = &cli.StringFlag{
	Name:  "git-path",
	Usage: "document path inside --git-dir",
}
var gitRevFlag = &cli.StringFlag{
	Name:  "git-rev",
	Value: "HEAD",
	Usage: "revision to read --git-path at",
}
var vaultPathFlag = &cli.StringFlag{
	Name:  "vault-path",
	Usage: "Vault KV v2 secret path (VAULT_ADDR and VAULT_TOKEN from the environment)",
}
var vaultMountFlag = &cli.StringFlag{
	Name:  "vault-mount",
	Value: "secret",
	Usage: "Vault KV mount",
}
var s3BucketFlag = &cli.StringFlag{
	Name:  "s3-bucket",
	Usage: "S3 bucket holding a properties document",
}
var s3KeyFlag = &cli.StringFlag{
	Name:  "s3-key",
	Usage: "object key inside --s3-bucket",
}
var s3EndpointFlag = &cli.StringFlag{
	Name:  "s3-endpoint",
	Usage: "custom S3 endpoint (path-style addressing)",
}
var s3AccessKeyFlag = &cli.StringFlag{
	Name:    "s3-access-key",
	Usage:   "static access key for --s3-endpoint stores",
	EnvVars: []string{"PROPS_S3_ACCESS_KEY"},
}
var s3SecretKeyFlag = &cli.StringFlag{
	Name:    "s3-secret-key",
	Usage:   "static secret key for --s3-endpoint stores",
	EnvVars: []string{"PROPS_S3_SECRET_KEY"},
}

// Processor keys. Secrets come from the environment by default.
var aesKeyFlag = &cli.StringFlag{
	Name:    "aes-key",
	Usage:   "base64 AES key for enc:aes-gcm values",
	EnvVars: []string{"PROPS_AES_KEY"},
}
var passphraseFlag = &cli.StringFlag{
	Name:    "passphrase",
	Usage:   "passphrase for enc:xchacha20 values",
	EnvVars: []string{"PROPS_PASSPHRASE"},
}
var ageIdentityFlag = &cli.StringFlag{
	Name:    "age-identity",
	Usage:   "file with age identities for enc:age values",
	EnvVars: []string{"PROPS_AGE_IDENTITY"},
}

var commonFlags = []cli.Flag{
	logJSONFlag,
	logDebugFlag,
	logUIDFlag,
}

var sourceFlags = []cli.Flag{
	setFlag,
	envPrefixFlag,
	fileFlag,
	appFlag,
	hclFlag,
	sqliteFlag,
	sqliteTableFlag,
	gitDirFlag,
	gitPathFlag,
	gitRevFlag,
	vaultPathFlag,
	vaultMountFlag,
	s3BucketFlag,
	s3KeyFlag,
	s3EndpointFlag,
	s3AccessKeyFlag,
	s3SecretKeyFlag,
	aesKeyFlag,
	passphraseFlag,
	ageIdentityFlag,
}

func setupLogger(cCtx *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if cCtx.Bool(logDebugFlag.Name) {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	// Stdout carries command output
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cCtx.Bool(logJSONFlag.Name) {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler).With("service", "props")

	if cCtx.Bool(logUIDFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}
