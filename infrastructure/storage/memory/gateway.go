// Package memory provides an in-memory object store used for dry runs and
// as a recording fake in tests.
package memory

import (
	"context"
	"io"
	"maps"
	"os"
	"sync"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// Call records one PutObject invocation.
type Call struct {
	Bucket     string
	Key        string
	SourcePath string
	Headers    map[string]string
}

// Object is a stored object.
type Object struct {
	Data    []byte
	Size    int64
	Headers map[string]string
}

// Gateway is an in-memory implementation of artifact.Gateway.
type Gateway struct {
	mu          sync.RWMutex
	objects     map[string]Object
	calls       []Call
	err         error
	keepContent bool
}

// New creates a gateway that keeps uploaded bytes.
func New() *Gateway {
	return &Gateway{
		objects:     make(map[string]Object),
		keepContent: true,
	}
}

// NewDryRun creates a gateway that records sizes but discards bytes.
func NewDryRun() *Gateway {
	return &Gateway{
		objects: make(map[string]Object),
	}
}

// FailWith makes every following PutObject return err after recording
// the call. A nil err restores normal behavior.
func (g *Gateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// PutObject implements artifact.Gateway.
func (g *Gateway) PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return artifact.NewGatewayError(artifact.FailureNetwork, "put", err)
	}

	g.mu.Lock()
	g.calls = append(g.calls, Call{
		Bucket:     bucket,
		Key:        key,
		SourcePath: sourcePath,
		Headers:    maps.Clone(headers),
	})
	failure := g.err
	keep := g.keepContent
	g.mu.Unlock()

	if failure != nil {
		return failure
	}

	obj, err := readObject(sourcePath, keep)
	if err != nil {
		return artifact.NewGatewayError(artifact.FailureServer, "read", err)
	}
	obj.Headers = maps.Clone(headers)

	g.mu.Lock()
	g.objects[bucket+"/"+key] = obj
	g.mu.Unlock()
	return nil
}

func readObject(path string, keep bool) (Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return Object{}, err
	}
	defer f.Close()

	if keep {
		data, err := io.ReadAll(f)
		if err != nil {
			return Object{}, err
		}
		return Object{Data: data, Size: int64(len(data))}, nil
	}

	info, err := f.Stat()
	if err != nil {
		return Object{}, err
	}
	return Object{Size: info.Size()}, nil
}

// Calls returns the recorded PutObject calls in order.
func (g *Gateway) Calls() []Call {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// Object returns the stored object at bucket/key.
func (g *Gateway) Object(bucket, key string) (Object, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	obj, ok := g.objects[bucket+"/"+key]
	return obj, ok
}

// Len returns the number of stored objects.
func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

// Reset clears objects, calls and any configured failure.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects = make(map[string]Object)
	g.calls = nil
	g.err = nil
}

var _ artifact.Gateway = (*Gateway)(nil)
