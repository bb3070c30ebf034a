package embed

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/purego"

	"github.com/raglite-go/raglite/internal/store"
)

// CLIPDimensions is the output dimension of the joint text/image embedding
// space (CLIP ViT-B/32 and similar variants all converge on 512).
const CLIPDimensions = 512

// CLIP default configuration
const (
	// DefaultCLIPLibraryPath is the shared library dlopen'd for native
	// inference. Callers typically override this via CLIPConfig.LibraryPath
	// to point at a model-specific build (ViT-B/32, ViT-L/14, ...).
	DefaultCLIPLibraryPath = "libclip.so"

	// DefaultCLIPModel selects the bundled checkpoint inside the library.
	DefaultCLIPModel = "ViT-B-32"

	// DefaultCLIPBaseTimeout bounds a single native call; unlike the HTTP
	// embedders there is no network round trip, but large batches or a
	// cold model load can still stall.
	DefaultCLIPBaseTimeout = 30 * time.Second
)

// CLIPConfig holds configuration for the native CLIP embedder.
type CLIPConfig struct {
	// LibraryPath is the path (or dlopen search name) of the native CLIP
	// inference library.
	LibraryPath string

	// Model selects the checkpoint the library should load.
	Model string

	// SkipLoad defers purego.Dlopen/RegisterLibFunc until Load is called
	// explicitly (for testing without the native library present).
	SkipLoad bool
}

// DefaultCLIPConfig returns default CLIP configuration.
func DefaultCLIPConfig() CLIPConfig {
	return CLIPConfig{
		LibraryPath: DefaultCLIPLibraryPath,
		Model:       DefaultCLIPModel,
	}
}

// clipNativeFuncs holds the function pointers purego.RegisterLibFunc binds
// against the dlopen'd library. Signatures mirror a minimal C ABI:
//
//	int clip_load(const char* model_name);
//	int clip_embed_text(const char* text, float* out, int out_len);
//	int clip_embed_image(const unsigned char* data, int data_len, float* out, int out_len);
//	void clip_unload(void);
type clipNativeFuncs struct {
	load       func(modelName string) int32
	embedText  func(text string, out []float32, outLen int32) int32
	embedImage func(data []byte, dataLen int32, out []float32, outLen int32) int32
	unload     func()
}

// CLIPEmbedder generates joint text/image embeddings using a native CLIP
// library bridged in-process via purego (dlopen + RegisterLibFunc), rather
// than a remote HTTP model server: CLIP inference is cheap enough to run
// in-process and avoids the endpoint-lifecycle management the HTTP-based
// embedders need.
type CLIPEmbedder struct {
	config CLIPConfig

	mu      sync.RWMutex
	handle  uintptr
	funcs   *clipNativeFuncs
	loaded  bool
	closed  bool
	lastErr error
}

// Verify interface implementation at compile time
var _ Embedder = (*CLIPEmbedder)(nil)

// NewCLIPEmbedder creates a new CLIP embedder. Unless cfg.SkipLoad is set,
// it dlopens the native library and binds its entry points immediately so
// construction failures surface at startup rather than on first use.
func NewCLIPEmbedder(ctx context.Context, cfg CLIPConfig) (*CLIPEmbedder, error) {
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = DefaultCLIPLibraryPath
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCLIPModel
	}

	e := &CLIPEmbedder{config: cfg}

	if !cfg.SkipLoad {
		if err := e.Load(ctx); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// dlopenFlags returns the platform-appropriate RTLD flags; purego only
// supports dlopen on darwin and linux.
func dlopenFlags() (uintptr, error) {
	switch runtime.GOOS {
	case "darwin", "linux":
		return purego.RTLD_NOW | purego.RTLD_GLOBAL, nil
	default:
		return 0, fmt.Errorf("clip embedder: unsupported OS %s", runtime.GOOS)
	}
}

// Load dlopens the native library, binds its functions, and calls
// clip_load(model). Idempotent: a second call on an already-loaded
// embedder is a no-op, matching the Embedder.Load state-machine contract.
func (e *CLIPEmbedder) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}
	if e.closed {
		return fmt.Errorf("clip embedder is closed")
	}

	flags, err := dlopenFlags()
	if err != nil {
		return err
	}

	handle, err := purego.Dlopen(e.config.LibraryPath, flags)
	if err != nil {
		return fmt.Errorf("failed to load clip library %q: %w", e.config.LibraryPath, err)
	}

	funcs := &clipNativeFuncs{}
	purego.RegisterLibFunc(&funcs.load, handle, "clip_load")
	purego.RegisterLibFunc(&funcs.embedText, handle, "clip_embed_text")
	purego.RegisterLibFunc(&funcs.embedImage, handle, "clip_embed_image")
	purego.RegisterLibFunc(&funcs.unload, handle, "clip_unload")

	if rc := funcs.load(e.config.Model); rc != 0 {
		_ = purego.Dlclose(handle)
		return fmt.Errorf("clip_load(%q) failed with code %d", e.config.Model, rc)
	}

	e.handle = handle
	e.funcs = funcs
	e.loaded = true
	return nil
}

// EmbedText generates a joint-space embedding for text. CLIP's text tower
// always produces a valid joint-space vector, so unlike a text-only
// bi-encoder being asked for a text embedding, there is no degraded path
// here: EmbedText and EmbedImage land in the same 512-dim space.
func (e *CLIPEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if !e.loaded {
		return nil, fmt.Errorf("clip embedder not loaded: call Load first")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, CLIPDimensions), nil
	}

	out := make([]float32, CLIPDimensions)
	if rc := e.funcs.embedText(trimmed, out, int32(CLIPDimensions)); rc != 0 {
		return nil, fmt.Errorf("clip_embed_text failed with code %d", rc)
	}
	return normalizeVector(out), nil
}

// EmbedImage generates a joint-space embedding for raw image bytes.
func (e *CLIPEmbedder) EmbedImage(ctx context.Context, data []byte, mime string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if !e.loaded {
		return nil, fmt.Errorf("clip embedder not loaded: call Load first")
	}
	if len(data) == 0 {
		return make([]float32, CLIPDimensions), nil
	}

	out := make([]float32, CLIPDimensions)
	if rc := e.funcs.embedImage(data, int32(len(data)), out, int32(CLIPDimensions)); rc != 0 {
		return nil, fmt.Errorf("clip_embed_image failed with code %d (mime=%s)", rc, mime)
	}
	return normalizeVector(out), nil
}

// EmbedBatch generates embeddings for multiple texts. The native library
// exposes no batch entry point, so this calls EmbedText per item; batching
// here exists for Embedder conformance, not for a performance win.
func (e *CLIPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		emb, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// ModelInfo describes this embedder.
func (e *CLIPEmbedder) ModelInfo() ModelInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ModelInfo{
		Name:          fmt.Sprintf("clip-%s", e.config.Model),
		Type:          store.ModelTypeCLIP,
		Dimensions:    CLIPDimensions,
		SupportsImage: true,
	}
}

// IsLoaded reports whether clip_load has succeeded and Cleanup has not run.
func (e *CLIPEmbedder) IsLoaded(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded && !e.closed
}

// Cleanup calls clip_unload and dlcloses the library.
func (e *CLIPEmbedder) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.loaded && e.funcs != nil {
		e.funcs.unload()
	}
	if e.handle != 0 {
		if err := purego.Dlclose(e.handle); err != nil {
			return fmt.Errorf("failed to close clip library: %w", err)
		}
	}
	e.loaded = false
	return nil
}

// SetBatchIndex is a no-op: in-process native inference has no thermal
// timeout progression to track (no HTTP round trips to scale back).
func (e *CLIPEmbedder) SetBatchIndex(_ int) {}

// SetFinalBatch is a no-op for the same reason.
func (e *CLIPEmbedder) SetFinalBatch(_ bool) {}

// clipLibraryPathFromEnv resolves a library path override, falling back to
// cfg's default. Kept as a small helper so factory.go's env var handling
// stays symmetric with the sentencetransformer/static providers.
func clipLibraryPathFromEnv(cfg CLIPConfig) CLIPConfig {
	if path := os.Getenv("RAGLITE_CLIP_LIBRARY"); path != "" {
		cfg.LibraryPath = path
	}
	if model := os.Getenv("RAGLITE_CLIP_MODEL"); model != "" {
		cfg.Model = model
	}
	return cfg
}
