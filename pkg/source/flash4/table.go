package flash4

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/pradreader/pkg/cache"
	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/observability"
	"github.com/matzehuels/pradreader/pkg/source"
)

// cacheKeyType labels cache events and prefixes cache keys.
const cacheKeyType = "flash4"

// tableVersion is bumped whenever the cached table encoding changes.
const tableVersion = 1

const ctxCheckEvery = 1 << 16

var errShortTable = errors.New("truncated table payload")

// loadTable returns the fractional (x, y) coordinates of every proton,
// from the cache when a valid entry exists for this exact file.
func loadTable(ctx context.Context, path string, opts source.Options) ([][2]float64, error) {
	c := opts.CacheOrNull()
	logger := opts.Log()
	hooks := observability.Cache()

	key, keyErr := cache.FileKey(cacheKeyType, path, tableVersion)
	if keyErr == nil {
		data, hit, err := c.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("cache read failed", "path", path, "err", err)
		case hit:
			coords, err := decodeTable(data)
			if err == nil {
				hooks.OnCacheHit(ctx, cacheKeyType)
				logger.Debug("proton table from cache", "path", path, "protons", len(coords))
				return coords, nil
			}
			logger.Warn("discarding unreadable cache entry", "path", path, "err", err)
		}
		hooks.OnCacheMiss(ctx, cacheKeyType)
	}

	coords, err := parseTable(ctx, path)
	if err != nil {
		return nil, err
	}

	if keyErr == nil {
		data, err := encodeTable(coords)
		if err == nil {
			err = c.Set(ctx, key, data, 0)
		}
		if err != nil {
			logger.Warn("cache write failed", "path", path, "err", err)
		} else {
			hooks.OnCacheSet(ctx, cacheKeyType, len(data))
		}
	}
	return coords, nil
}

// parseTable reads the whitespace table, keeping the first two columns.
func parseTable(ctx context.Context, path string) ([][2]float64, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var coords [][2]float64
	sc := source.NewScanner(rc)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(coords)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		f := strings.Fields(line)
		if len(f) < 2 {
			return nil, source.Mismatch(path, lineNo, "expected at least 2 columns, got %d", len(f))
		}
		x, errX := strconv.ParseFloat(f[0], 64)
		y, errY := strconv.ParseFloat(f[1], 64)
		if errX != nil || errY != nil {
			return nil, source.Mismatch(path, lineNo, "non-numeric coordinates %q %q", f[0], f[1])
		}
		coords = append(coords, [2]float64{x, y})
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(perr.ErrCodeInvalidInput, err, "read %s", path)
	}
	return coords, nil
}

// encodeTable packs coordinates as little-endian float64 pairs behind a
// count and compresses the result with zstd.
func encodeTable(coords [][2]float64) ([]byte, error) {
	raw := make([]byte, 8+16*len(coords))
	binary.LittleEndian.PutUint64(raw, uint64(len(coords)))
	for i, c := range coords {
		off := 8 + 16*i
		binary.LittleEndian.PutUint64(raw[off:], math.Float64bits(c[0]))
		binary.LittleEndian.PutUint64(raw[off+8:], math.Float64bits(c[1]))
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func decodeTable(data []byte) ([][2]float64, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	if len(raw) < 8 {
		return nil, errShortTable
	}
	n := binary.LittleEndian.Uint64(raw)
	if uint64(len(raw)-8) != 16*n {
		return nil, errShortTable
	}
	coords := make([][2]float64, n)
	for i := range coords {
		off := 8 + 16*i
		coords[i][0] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
		coords[i][1] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off+8:]))
	}
	return coords, nil
}
