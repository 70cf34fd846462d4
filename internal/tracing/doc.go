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

/*
Package tracing provides OpenTelemetry tracing and Prometheus metrics for postgen.

Spans are exported over OTLP to Arize Phoenix, grouped under the project named
by the openinference.project.name resource attribute. Every generation produces
a CHAIN span whose 64-bit span ID is the key users attach feedback to, and a
child LLM span created by WrapProvider.

# Quick Start

	cfg := tracing.DefaultConfig()
	cfg.ProjectName = "social-media-post-generator"

	provider, err := tracing.NewProviderFromConfig(ctx, cfg, logger)
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	tracer := provider.Tracer("postgen")
	llmProvider := tracing.WrapProviderWithMetrics(openai, tracer, provider.Metrics())

The provider is not installed as the OpenTelemetry global. Pass the tracer to
the components that need it.

# Metrics

Metrics are exposed by OTelProvider.MetricsHandler:

  - postgen_generations_total{status}
  - postgen_generation_duration_seconds{status}
  - postgen_feedback_total{polarity,status}
  - postgen_llm_requests_total{provider,model,status}
  - postgen_llm_latency_seconds{provider,model,status}
  - postgen_tokens_total{provider,model,type}

# Subpackages

  - export: OTLP HTTP, OTLP gRPC and console exporters
  - storage: SQLite span store backing `postgen history`
*/
package tracing
