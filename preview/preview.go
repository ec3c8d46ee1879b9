// Package preview keeps a downscaled, in-memory copy of every frame of a
// merge so a client can scrub through the result without decoding the video.
package preview

import (
	"context"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"layercast/compositor"
	"layercast/layers"
	"layercast/logger"
)

// Thumbnail bounds used for cached frames.
const (
	ThumbWidth  = 400
	ThumbHeight = 300
)

// Cache holds the frames of one merge, downscaled to fit the thumbnail box.
// It is safe for concurrent use.
type Cache struct {
	ID string

	mu     sync.RWMutex
	frames []*image.RGBA
}

// NewCache returns an empty cache sized for numFrames frames.
func NewCache(id string, numFrames int) *Cache {
	return &Cache{ID: id, frames: make([]*image.RGBA, numFrames)}
}

// Add stores a thumbnail of img at index. The cache keeps its own copy.
func (c *Cache) Add(index int, img image.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.frames) {
		return fmt.Errorf("preview: frame %d out of range [0,%d)", index, len(c.frames))
	}
	c.frames[index] = Thumbnail(img, ThumbWidth, ThumbHeight)
	return nil
}

// Frame returns the cached frame at index, or false if it is not cached yet.
func (c *Cache) Frame(index int) (*image.RGBA, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.frames) || c.frames[index] == nil {
		return nil, false
	}
	return c.frames[index], true
}

// Len returns the number of frame slots.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Build composites every frame of set sequentially and caches it. It runs
// on the calling goroutine and stops at the first error.
func Build(ctx context.Context, id string, set *layers.LayerSet, comp *compositor.Compositor) (*Cache, error) {
	cache := NewCache(id, set.NumFrames())
	for _, job := range set.Jobs() {
		img, err := comp.CompositeFrame(ctx, job.Index, job.Paths)
		if err != nil {
			return nil, err
		}
		if err := cache.Add(job.Index, img); err != nil {
			return nil, err
		}
	}
	logger.Debugf("preview %s: cached %d frames", id, cache.Len())
	return cache, nil
}

// Thumbnail scales img to fit inside maxW x maxH, keeping its aspect ratio.
// Images that already fit are copied unscaled.
func Thumbnail(img image.Image, maxW, maxH int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxW || h > maxH {
		if w*maxH > h*maxW {
			h = max(1, h*maxW/w)
			w = maxW
		} else {
			w = max(1, w*maxH/h)
			h = maxH
		}
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
		return out
	}
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}

// Store holds the most recent preview cache. Setting a new cache replaces
// the previous one.
type Store struct {
	mu     sync.RWMutex
	latest *Cache
}

// Set replaces the stored cache.
func (s *Store) Set(c *Cache) {
	s.mu.Lock()
	s.latest = c
	s.mu.Unlock()
}

// Get returns the stored cache if its ID matches.
func (s *Store) Get(id string) (*Cache, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil || s.latest.ID != id {
		return nil, false
	}
	return s.latest, true
}

// Latest returns the stored cache, if any.
func (s *Store) Latest() (*Cache, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Default is the process-wide preview store.
var Default = &Store{}
