// Copyright 2024 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Encoder writes a PDF to w, with one page per image, in the given order,
// each page sized to its source image.
type Encoder interface {
	Encode(ctx context.Context, w io.Writer, images []string) error
}

// EncoderFunc is an Encoder implemented by a function.
type EncoderFunc func(ctx context.Context, w io.Writer, images []string) error

// Encode calls f.
func (f EncoderFunc) Encode(ctx context.Context, w io.Writer, images []string) error {
	return f(ctx, w, images)
}

// Names of the available engines.
const (
	EnginePdfCPU = "pdfcpu"
	EngineDirect = "direct"
	EngineGm     = "gm"
)

var encoders = map[string]Encoder{
	EnginePdfCPU: EncoderFunc(ImagesToPdfPdfCPU),
	EngineDirect: EncoderFunc(ImagesToPdfDirect),
	EngineGm:     EncoderFunc(ImagesToPdfGm),
}

// Engines returns the names of the known engines, sorted.
func Engines() []string {
	names := make([]string, 0, len(encoders))
	for k := range encoders {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// GetEncoder returns the encoder for the engine name.
func GetEncoder(name string) (Encoder, error) {
	if name == "" {
		name = EnginePdfCPU
	}
	if enc, ok := encoders[strings.ToLower(name)]; ok {
		return enc, nil
	}
	return nil, fmt.Errorf("unknown engine %q (known: %s)", name, strings.Join(Engines(), ", "))
}

// EncodingError is returned when a group of images cannot be encoded.
type EncodingError struct {
	Images []string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %q: %v", e.Images, e.Err)
}
func (e *EncodingError) Unwrap() error { return e.Err }

// WriteError is returned when the encoded PDF cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
