// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func setTestLogger(t *testing.T) func() {
	old := SetLogger(slog.New(logr.ToSlogHandler(testr.New(t))))
	return func() { SetLogger(old) }
}

var testDir string

func TestMain(m *testing.M) {
	var err error
	testDir, err = os.MkdirTemp("", "img2pdf-test-")
	if err != nil {
		fmt.Println(err)
		os.Exit(13)
	}
	*ConfWorkdir = testDir
	_ = LoadConfig(context.Background(), "")
	code := m.Run()
	_ = os.RemoveAll(testDir)
	os.Exit(code)
}

func testImage(width, height int) image.Image {
	palette := []color.RGBA{{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, {A: 0xff}, {R: 0xff, A: 0xff}}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, palette[(x+y)%len(palette)])
		}
	}
	return img
}

// writeImage writes a width x height image into dir/name, encoded according to its extension.
func writeImage(t testing.TB, dir, name string, width, height int) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	fh, err := os.Create(fn)
	if err != nil {
		t.Fatal(err)
	}
	img := testImage(width, height)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		err = png.Encode(fh, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(fh, img, nil)
	case ".gif":
		err = gif.Encode(fh, img, nil)
	case ".bmp":
		err = bmp.Encode(fh, img)
	case ".tif", ".tiff":
		err = tiff.Encode(fh, img, nil)
	default:
		_, err = io.WriteString(fh, "not an image\n")
	}
	if closeErr := fh.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		t.Fatalf("write %s: %+v", fn, err)
	}
	return fn
}

// writeCorrupt writes a file with an image extension but no image content.
func writeCorrupt(t testing.TB, dir, name string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	if err := os.WriteFile(fn, []byte("this is definitely not a JPEG\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return fn
}
