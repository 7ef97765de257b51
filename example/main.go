// FILE: lixenwraith/props/example/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lixenwraith/props"
	"github.com/lixenwraith/props/metrics"
)

// ServerConfig is populated with BindStruct.
type ServerConfig struct {
	Host    string        `prop:"host"`
	Port    int           `prop:"port"`
	Timeout time.Duration `prop:"timeout" default:"30s"`
	Origins []string      `prop:"origins"`
	TLS     struct {
		Enabled bool   `prop:"enabled" default:"false"`
		Cert    string `prop:"cert" default:"/etc/ssl/server.pem"`
	} `prop:"tls"`
}

const document = `
[server]
host = "${BIND_HOST:0.0.0.0}"
port = 8080
origins = ["https://a.example", "https://b.example"]

[db]
user = "app"
url = "postgres://${db.user}:${db.password}@${db.host:localhost}/main"
`

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// =========================================================================
	// PART 1: SOURCES
	// A TOML document on disk, the environment, and in-memory overrides.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 1: Preparing sources...")

	dir, err := os.MkdirTemp("", "props-example")
	if err != nil {
		log.Fatalf("❌ Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "app.toml")
	if err := os.WriteFile(path, []byte(document), 0644); err != nil {
		log.Fatalf("❌ Failed to write document: %v", err)
	}
	fileSource, err := props.NewFileSource(path)
	if err != nil {
		log.Fatalf("❌ Failed to load %s: %v", path, err)
	}

	// The db password is stored encrypted; only the key is handed to the resolver.
	key := []byte("0123456789abcdef0123456789abcdef")
	secret, err := props.EncryptAESGCM(key, []byte("hunter2"))
	if err != nil {
		log.Fatalf("❌ Failed to encrypt: %v", err)
	}
	decryptor, err := props.NewAESGCMDecryptor(key)
	if err != nil {
		log.Fatalf("❌ Failed to create decryptor: %v", err)
	}

	os.Setenv("EXAMPLE_SERVER_PORT", "9090")
	defer os.Unsetenv("EXAMPLE_SERVER_PORT")

	overrides := props.NewMapSource("overrides", map[string]string{
		"db.password": secret,
		"db.host":     "db.internal",
	})
	log.Printf("✅ File %s, env prefix EXAMPLE_, %d overrides.", filepath.Base(path), len(overrides.Keys()))

	// =========================================================================
	// PART 2: WIRING
	// Sources are listed highest priority first.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 2: Building the resolver...")

	collector, err := metrics.NewCollector(&metrics.Config{Namespace: "example"})
	if err != nil {
		log.Fatalf("❌ Failed to create metrics: %v", err)
	}

	p, err := props.NewBuilder().
		WithSources(overrides, props.NewEnvSource("EXAMPLE_"), fileSource).
		WithProcessors(props.Base64Processor{}, props.NewDecryptProcessor(decryptor)).
		WithLogger(logger).
		WithObserver(collector).
		Build()
	if err != nil {
		log.Fatalf("❌ Failed to build: %v", err)
	}
	log.Printf("✅ Sources in order: %s", strings.Join(p.Sources(), " > "))

	// =========================================================================
	// PART 3: TYPED LOOKUPS
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 3: Resolving properties...")

	port := props.MustGet[int](ctx, p, "server.port")
	log.Printf("   server.port = %d (environment wins over the file)", port)

	host := props.MustGet[string](ctx, p, "server.host")
	log.Printf("   server.host = %s (placeholder default)", host)

	url := props.MustGet[string](ctx, p, "db.url")
	log.Printf("   db.url = %s (nested placeholders, decrypted password)", url)

	retries, err := props.GetOr(ctx, p, "client.retries", 3)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("   client.retries = %d (typed default)", retries)

	if _, err := props.Get[string](ctx, p, "missing.key"); props.IsNotFound(err) {
		log.Printf("   missing.key: %v", err)
	}

	// =========================================================================
	// PART 4: SCHEMA AND STRUCT BINDING
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 4: Binding...")

	schema := props.NewSchema("db")
	dbUser := props.Define[string](schema, "user")
	dbPool := props.Define[int](schema, "pool", props.WithDefault(10))
	view, err := schema.Bind(ctx, p)
	if err != nil {
		log.Fatalf("❌ Schema failed: %v", err)
	}
	log.Printf("   %s = %s, %s = %d", dbUser.Name(), dbUser.MustGet(ctx, view), dbPool.Name(), dbPool.MustGet(ctx, view))

	var server ServerConfig
	if err := props.BindStruct(ctx, p, "server", &server); err != nil {
		log.Fatalf("❌ BindStruct failed: %v", err)
	}
	log.Printf("   server = %+v", server)

	// =========================================================================
	// PART 5: INVALIDATION AND STATS
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 5: Invalidation...")

	overrides.Set("server.port", "7070")
	log.Printf("   cached server.port = %d", props.MustGet[int](ctx, p, "server.port"))
	p.Invalidate("server.port")
	log.Printf("   after Invalidate  = %d", props.MustGet[int](ctx, p, "server.port"))

	stats := p.Stats()
	log.Printf("✅ hits=%d misses=%d failures=%d", stats.CacheHits, stats.CacheMisses, stats.Failures)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "example_cache_requests_total") {
			fmt.Println("   " + line)
		}
	}
}
