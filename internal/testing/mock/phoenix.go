// Copyright 2025 Tom Barlow
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

package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tombee/postgen/pkg/phoenix"
)

// Phoenix is a fake Phoenix server that records span annotations.
type Phoenix struct {
	*httptest.Server

	mu          sync.Mutex
	status      int
	calls       int
	annotations []phoenix.SpanAnnotation
	auth        string
}

// NewPhoenix starts a fake Phoenix server that answers annotation requests
// with status. It is closed when the test ends.
func NewPhoenix(t testing.TB, status int) *Phoenix {
	t.Helper()
	p := &Phoenix{status: status}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serveHTTP))
	t.Cleanup(p.Close)
	return p
}

func (p *Phoenix) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/healthz":
		w.WriteHeader(http.StatusOK)
	case "/v1/span_annotations":
		var req phoenix.SpanAnnotationsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		p.mu.Lock()
		p.calls++
		p.auth = r.Header.Get("Authorization")
		status := p.status
		if status == http.StatusOK {
			p.annotations = append(p.annotations, req.Data...)
		}
		p.mu.Unlock()

		w.WriteHeader(status)
	default:
		http.NotFound(w, r)
	}
}

// SetStatus changes the status returned for annotation requests.
func (p *Phoenix) SetStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// Calls returns the number of annotation requests received.
func (p *Phoenix) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Annotations returns the annotations that were accepted.
func (p *Phoenix) Annotations() []phoenix.SpanAnnotation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]phoenix.SpanAnnotation(nil), p.annotations...)
}

// Authorization returns the Authorization header of the last request.
func (p *Phoenix) Authorization() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auth
}
