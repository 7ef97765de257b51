// File: lixenwraith/props/doc.go

// Package props resolves typed configuration properties from an ordered chain
// of sources, with placeholder expansion, marker-triggered processing such as
// decryption, type conversion and a resolution cache.
//
// Features:
//   - Ordered sources, first hit wins; backend failures are logged and skipped
//   - ${name} and ${name:default} placeholders, nested and cycle-checked
//   - Processors for base64: and enc:<algorithm>: values (AES-GCM, XChaCha20, age)
//   - Converters for primitives, enums, lists, arrays, sets and well-known types
//   - Per (name, type) cache with explicit invalidation only
//   - Schema accessors and struct binding
//
// Quick Start:
//
//	p, err := props.NewBuilder().
//	    WithSources(
//	        props.NewEnvSource("MYAPP_"),
//	        props.NewMapSource("defaults", map[string]string{
//	            "db.host": "${DB_HOST:localhost}",
//	            "db.port": "5432",
//	        }),
//	    ).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	host, _ := props.Get[string](ctx, p, "db.host")
//	port, _ := props.Get[int](ctx, p, "db.port")
//
// Resolution order for a Get call:
//  1. Cache lookup by (name, descriptor)
//  2. Source chain, then placeholder expansion of the raw value
//  3. Absent with a default: the default is returned and cached as-is
//  4. Processor pipeline
//  5. Converter registry
//
// Errors wrap one of ErrNotFound, ErrCircularReference, ErrMissingPlaceholder,
// ErrExpansionDepth, ErrProcessing or ErrConversion inside a *PropertyError.
//
// Thread Safety:
// A Properties instance is safe for concurrent use. Only the cache is mutable;
// it is guarded by a read-write mutex.
package props
