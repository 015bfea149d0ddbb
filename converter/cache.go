// Copyright 2019, 2020 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/UNO-SOFT/filecache"
)

var (
	lastTrimMu sync.Mutex
	lastTrim   time.Time
)

// cacheKey hashes the engine name and the contents of the images, in order.
func cacheKey(engine string, images []string) (filecache.ActionID, error) {
	hsh := filecache.NewHash()
	hsh.Write([]byte(engine + ":" + strconv.Itoa(len(images)) + ":"))
	for _, fn := range images {
		fh, err := os.Open(fn)
		if err != nil {
			return filecache.ActionID{}, err
		}
		n, err := io.Copy(hsh, fh)
		fh.Close()
		if err != nil {
			return filecache.ActionID{}, err
		}
		hsh.Write([]byte(":" + strconv.FormatInt(n, 10) + ":"))
	}
	return filecache.ActionID(hsh.SumID()), nil
}

// fromCache copies the cached PDF for key to destfn, reporting whether it was found.
func fromCache(cache *filecache.Cache, logger *slog.Logger, key filecache.ActionID, destfn string) bool {
	if cache == nil {
		return false
	}
	fn, _, err := cache.GetFile(key)
	if err != nil {
		return false
	}
	if err = copyFile(fn, destfn); err != nil {
		logger.Warn("copy from cache", "source", fn, "dest", destfn, "error", err)
		return false
	}
	logger.Debug("served from cache", "dest", destfn)
	return true
}

// toCache stores destfn under key.
func toCache(cache *filecache.Cache, logger *slog.Logger, key filecache.ActionID, destfn string) {
	if cache == nil {
		return
	}
	ofh, err := os.Open(destfn)
	if err != nil {
		logger.Warn("open for cache", "dest", destfn, "error", err)
		return
	}
	defer ofh.Close()

	lastTrimMu.Lock()
	now := time.Now()
	if lastTrim.IsZero() || lastTrim.Add(time.Hour).Before(now) {
		lastTrim = now
		cache.Trim()
	}
	lastTrimMu.Unlock()

	_, _, err = cache.Put(key, ofh)
	logger.Debug("store into cache", "dest", destfn, "key", hex.EncodeToString(key[:]), "error", err)
}
