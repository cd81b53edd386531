// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

// Token is a binary completion signal from one pipeline stage to the next
// on one buffer half. The producer calls Set when it is done with the half;
// the consumer calls Wait, which blocks until the token is set and clears
// it again.
//
// Setting a token that is already set means two producers released the same
// half, which the stage protocol rules out. Set panics in that case.
type Token struct {
	ch chan struct{}
}

// NewToken returns a cleared token.
func NewToken() Token {
	return Token{ch: make(chan struct{}, 1)}
}

// Set marks the token as signaled.
func (t Token) Set() {
	select {
	case t.ch <- struct{}{}:
	default:
		panic("pipeline: token set twice without an intervening wait")
	}
}

// Wait blocks until the token is set, then clears it.
func (t Token) Wait() {
	<-t.ch
}

// IsSet reports whether the token is currently set.
func (t Token) IsSet() bool {
	return len(t.ch) == 1
}
