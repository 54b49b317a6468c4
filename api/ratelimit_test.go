// Copyright 2026 Blink Labs Software
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

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPKey(t *testing.T) {
	testDefs := []struct {
		remoteAddr string
		expected   string
	}{
		{remoteAddr: "192.0.2.10:4321", expected: "192.0.2.10"},
		{remoteAddr: "[::ffff:192.0.2.10]:80", expected: "192.0.2.10"},
		{remoteAddr: "[2001:db8:1:2:3:4:5:6]:80", expected: "2001:db8:1:2::/64"},
		{remoteAddr: "[2001:db8:1:2:ffff::1]:80", expected: "2001:db8:1:2::/64"},
		{remoteAddr: "@", expected: ""},
		{remoteAddr: "localhost:80", expected: ""},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.expected, ipKey(testDef.remoteAddr), testDef.remoteAddr)
	}
}

func TestIPLimiterAcquireRelease(t *testing.T) {
	l := newIPLimiter(2)
	assert.True(t, l.acquire("a"))
	assert.True(t, l.acquire("a"))
	assert.False(t, l.acquire("a"))
	assert.True(t, l.acquire("b"))
	assert.Equal(t, 2, l.count("a"))
	l.release("a")
	assert.True(t, l.acquire("a"))
	l.release("a")
	l.release("a")
	assert.Equal(t, 0, l.count("a"))
	assert.NotContains(t, l.inFlight, "a")
	// unkeyed clients are never limited
	for range 5 {
		assert.True(t, l.acquire(""))
	}
	assert.Empty(t, l.count(""))
}

func TestIPLimiterMiddleware(t *testing.T) {
	l := newIPLimiter(1)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	handler := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			close(entered)
			<-unblock
		}
		w.WriteHeader(http.StatusOK)
	}))

	slow := httptest.NewRequest(http.MethodGet, "/slow", nil)
	slow.RemoteAddr = "192.0.2.1:1000"
	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, slow)
		done <- rec.Code
	}()
	<-entered

	fast := httptest.NewRequest(http.MethodGet, "/fast", nil)
	fast.RemoteAddr = "192.0.2.1:1001"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, fast)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/fast", nil)
	other.RemoteAddr = "192.0.2.2:1000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)

	close(unblock)
	require.Equal(t, http.StatusOK, <-done)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, fast)
	assert.Equal(t, http.StatusOK, rec.Code)
}
