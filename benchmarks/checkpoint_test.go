package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// LargeState represents a larger state for realistic benchmarks.
type LargeState struct {
	ID       string            `json:"id"`
	Values   []int             `json:"values"`
	Metadata map[string]string `json:"metadata"`
	Messages []string          `json:"messages"`
}

func largeStateJSON() []byte {
	s := LargeState{ID: "bench", Metadata: map[string]string{}}
	for i := range 100 {
		s.Values = append(s.Values, i)
		s.Metadata[fmt.Sprintf("key%d", i)] = fmt.Sprintf("value%d", i)
		s.Messages = append(s.Messages, fmt.Sprintf("message number %d with some text", i))
	}
	data, _ := json.Marshal(s)
	return data
}

func benchStores(b *testing.B) map[string]checkpoint.Store {
	b.Helper()
	sqlite, err := checkpoint.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	mr := miniredis.RunT(b)
	stores := map[string]checkpoint.Store{
		"memory": checkpoint.NewMemoryStore(),
		"sqlite": sqlite,
		"redis":  checkpoint.NewRedisStore(mr.Addr(), "", 0),
	}
	b.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func BenchmarkStore_Put(b *testing.B) {
	data := largeStateJSON()
	for name, store := range benchStores(b) {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			step := 0
			for b.Loop() {
				_ = store.Put(ctx, checkpoint.New("put-"+name, step, data))
				step++
			}
		})
	}
}

func BenchmarkStore_Latest(b *testing.B) {
	data := largeStateJSON()
	for name, store := range benchStores(b) {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			for step := range 50 {
				if err := store.Put(ctx, checkpoint.New("latest", step, data)); err != nil {
					b.Fatal(err)
				}
			}
			for b.Loop() {
				_, _ = store.Latest(ctx, "latest")
			}
		})
	}
}

func BenchmarkStore_List(b *testing.B) {
	data := largeStateJSON()
	for name, store := range benchStores(b) {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			for step := range 50 {
				if err := store.Put(ctx, checkpoint.New("list", step, data)); err != nil {
					b.Fatal(err)
				}
			}
			for b.Loop() {
				_, _ = store.List(ctx, "list")
			}
		})
	}
}

// BenchmarkCheckpoint_Marshal measures checkpoint serialization.
func BenchmarkCheckpoint_Marshal(b *testing.B) {
	cp := checkpoint.New("t", 1, largeStateJSON())
	for b.Loop() {
		_, _ = cp.Marshal()
	}
}
