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

package tracing

import (
	"fmt"
	"time"
)

// DefaultProjectName is the Phoenix project spans are grouped under.
const DefaultProjectName = "social-media-post-generator"

// DefaultPhoenixTracesEndpoint is the OTLP/HTTP receiver of a local Phoenix.
const DefaultPhoenixTracesEndpoint = "http://localhost:6006/v1/traces"

// Config holds observability configuration.
type Config struct {
	// Enabled controls whether spans are exported. When false a provider is
	// still created so span IDs are minted, but nothing leaves the process.
	Enabled bool

	// ServiceName identifies this service in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// ProjectName is recorded as openinference.project.name on the resource.
	ProjectName string

	// SampleRate is the fraction of root traces to record (0.0 - 1.0).
	SampleRate float64

	// Exporters configures export destinations.
	Exporters []ExporterConfig

	// Storage configures the local span store used by `postgen history`.
	Storage StorageConfig

	// BatchInterval switches exporters to a batch processor flushing at this
	// interval. Zero exports each span synchronously when it ends.
	BatchInterval time.Duration
}

// StorageConfig controls local span storage.
type StorageConfig struct {
	// Enabled turns the local store on.
	Enabled bool

	// Path is the SQLite database path.
	Path string
}

// ExporterConfig defines an export destination.
type ExporterConfig struct {
	// Type is the exporter type: "otlp-http", "otlp", "console" or "none".
	Type string

	// Endpoint is the receiver. A full URL for otlp-http, host:port for otlp.
	Endpoint string

	// Headers are additional headers, used for Phoenix Cloud authentication.
	Headers map[string]string

	// TLS configures secure connections.
	TLS TLSConfig
}

// TLSConfig configures TLS for exporters.
type TLSConfig struct {
	// Enabled activates TLS.
	Enabled bool

	// VerifyCertificate controls certificate validation.
	VerifyCertificate bool

	// CACertPath is the path to the CA certificate.
	CACertPath string
}

// DefaultConfig returns configuration that exports to a local Phoenix.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		ServiceName:    "postgen",
		ServiceVersion: "unknown",
		ProjectName:    DefaultProjectName,
		SampleRate:     1.0,
		Exporters: []ExporterConfig{
			{Type: "otlp-http", Endpoint: DefaultPhoenixTracesEndpoint},
		},
	}
}

// Validate checks the configuration for values the SDK would reject.
func (c Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %v", c.SampleRate)
	}
	for i, exp := range c.Exporters {
		switch exp.Type {
		case "otlp-http", "otlp_http", "otlp", "console", "none", "":
		default:
			return fmt.Errorf("exporter %d: unknown type %q", i, exp.Type)
		}
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage enabled but no path set")
	}
	return nil
}
