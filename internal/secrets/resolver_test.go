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

package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

type mockBackend struct {
	name      string
	priority  int
	available bool
	readOnly  bool
	secrets   map[string]string
}

func newMockBackend(name string, priority int) *mockBackend {
	return &mockBackend{
		name:      name,
		priority:  priority,
		available: true,
		secrets:   make(map[string]string),
	}
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Get(ctx context.Context, key string) (string, error) {
	if value, ok := m.secrets[key]; ok {
		return value, nil
	}
	return "", ErrSecretNotFound
}

func (m *mockBackend) Set(ctx context.Context, key string, value string) error {
	if m.readOnly {
		return ErrReadOnlyBackend
	}
	m.secrets[key] = value
	return nil
}

func (m *mockBackend) Delete(ctx context.Context, key string) error {
	if m.readOnly {
		return ErrReadOnlyBackend
	}
	if _, ok := m.secrets[key]; !ok {
		return ErrSecretNotFound
	}
	delete(m.secrets, key)
	return nil
}

func (m *mockBackend) Available() bool { return m.available }
func (m *mockBackend) Priority() int   { return m.priority }
func (m *mockBackend) ReadOnly() bool  { return m.readOnly }

func TestResolver_PriorityOrder(t *testing.T) {
	low := newMockBackend("low", 10)
	high := newMockBackend("high", 100)
	low.secrets["k"] = "low-value"
	high.secrets["k"] = "high-value"

	r := NewResolver(low, high)

	got, err := r.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "high-value" {
		t.Errorf("Get() = %q, want high-value", got)
	}
	if r.Backends()[0].Name() != "high" {
		t.Errorf("expected high priority backend first")
	}
}

func TestResolver_SkipsUnavailable(t *testing.T) {
	off := newMockBackend("off", 100)
	off.available = false
	on := newMockBackend("on", 10)

	r := NewResolver(off, on)
	if len(r.Backends()) != 1 {
		t.Fatalf("expected 1 backend, got %d", len(r.Backends()))
	}

	empty := NewResolver(off)
	if _, err := empty.Get(context.Background(), "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestResolver_NotFound(t *testing.T) {
	r := NewResolver(newMockBackend("a", 1))
	if _, err := r.Get(context.Background(), "missing"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestResolver_SetSkipsReadOnly(t *testing.T) {
	ro := newMockBackend("env", 100)
	ro.readOnly = true
	rw := newMockBackend("keychain", 50)

	r := NewResolver(ro, rw)
	ctx := context.Background()

	if err := r.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if rw.secrets["k"] != "v" {
		t.Errorf("expected value in writable backend")
	}
	if len(ro.secrets) != 0 {
		t.Errorf("read-only backend must not be written")
	}

	if err := r.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := r.Delete(ctx, "k"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestResolver_SetNoWritableBackend(t *testing.T) {
	ro := newMockBackend("env", 100)
	ro.readOnly = true

	if err := NewResolver(ro).Set(context.Background(), "k", "v"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestDefaultResolver_EnvOverridesKeychain(t *testing.T) {
	keyring.MockInit()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("POSTGEN_SECRET_OPENAI_API_KEY", "")
	ctx := context.Background()

	r := NewDefaultResolver()
	if err := r.Set(ctx, KeyOpenAIAPIKey, "sk-keychain"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := r.Get(ctx, KeyOpenAIAPIKey); got != "sk-keychain" {
		t.Errorf("Get() = %q, want keychain value", got)
	}

	t.Setenv("OPENAI_API_KEY", "sk-env")
	if got, _ := r.Get(ctx, KeyOpenAIAPIKey); got != "sk-env" {
		t.Errorf("Get() = %q, want env value", got)
	}
}
