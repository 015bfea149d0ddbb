// Copyright 2019 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectImageType(t *testing.T) {
	dir := t.TempDir()
	for name, want := range map[string]string{
		"a.png":   "image/png",
		"b.jpg":   "image/jpeg",
		"c.gif":   "image/gif",
		"d.bmp":   "image/bmp",
		"e.tiff":  "image/tiff",
		"f.txt":   "text/plain",
		"png.jpg": "image/png",
	} {
		var fn string
		if name == "png.jpg" {
			// the content decides, not the extension
			fn = filepath.Join(dir, name)
			writeImage(t, dir, "tmp.png", 3, 3)
			if err := copyFile(filepath.Join(dir, "tmp.png"), fn); err != nil {
				t.Fatal(err)
			}
		} else {
			fn = writeImage(t, dir, name, 3, 3)
		}
		got, err := DetectImageType(fn)
		if err != nil {
			t.Fatalf("%s: %+v", name, err)
		}
		if got != want {
			t.Errorf("%s: got %q, wanted %q", name, got, want)
		}
	}
}

func TestCheckImages(t *testing.T) {
	dir := t.TempDir()
	good := []string{writeImage(t, dir, "a.png", 4, 4), writeImage(t, dir, "b.jpeg", 4, 4)}
	if err := CheckImages(good); err != nil {
		t.Fatalf("%q: %+v", good, err)
	}
	bad := writeCorrupt(t, dir, "c.jpg")
	err := CheckImages(append(good, bad))
	if err == nil {
		t.Fatal("corrupt image accepted")
	}
	if !strings.Contains(err.Error(), "c.jpg") {
		t.Errorf("error %q should name the file", err)
	}
	if err = CheckImages([]string{filepath.Join(dir, "missing.png")}); err == nil {
		t.Error("missing file accepted")
	}
}
