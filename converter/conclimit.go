// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import "context"

// RateLimiter is the interface for rate limiting
type RateLimiter interface {
	// Acquire acquires a token (blocks if none accessible, until the context is done)
	Acquire(context.Context) (Token, error)
	// TryAcquire acquires a token if one is accessible right now
	TryAcquire() (Token, bool)
	// Release releases the token
	Release(Token)
}

// Token is a token
type Token struct{}

// RunLimit allows only one conversion run at a time.
var RunLimit = NewRateLimiter(1)

// NewRateLimiter returns a RateLimiter
func NewRateLimiter(n int) RateLimiter {
	rl := &rateLimiter{tokens: make(chan Token, n)}
	var t Token
	for i := 0; i < n; i++ {
		rl.tokens <- t
	}
	return rl
}

type rateLimiter struct {
	tokens chan Token
}

// Acquire pulls a token
func (rl *rateLimiter) Acquire(ctx context.Context) (Token, error) {
	select {
	case t := <-rl.tokens:
		return t, nil
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

// TryAcquire pulls a token without waiting
func (rl *rateLimiter) TryAcquire() (Token, bool) {
	select {
	case t := <-rl.tokens:
		return t, true
	default:
		return Token{}, false
	}
}

// Release pushes back the token
func (rl *rateLimiter) Release(t Token) {
	select {
	case rl.tokens <- t:
	default:
	}
}
