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

package observability

// OpenInference semantic convention keys understood by Phoenix.
const (
	AttrSpanKind    = "openinference.span.kind"
	AttrProjectName = "openinference.project.name"

	AttrInputValue  = "input.value"
	AttrOutputValue = "output.value"

	AttrLLMModelName            = "llm.model_name"
	AttrLLMProvider             = "llm.provider"
	AttrLLMSystem               = "llm.system"
	AttrLLMInvocationParameters = "llm.invocation_parameters"
	AttrLLMInputMessages        = "llm.input_messages"
	AttrLLMOutputMessages       = "llm.output_messages"
	AttrLLMTokenCountPrompt     = "llm.token_count.prompt"
	AttrLLMTokenCountCompletion = "llm.token_count.completion"
	AttrLLMTokenCountTotal      = "llm.token_count.total"

	AttrMessageRole    = "message.role"
	AttrMessageContent = "message.content"
)

// OpenInference span kinds.
const (
	KindChain = "CHAIN"
	KindLLM   = "LLM"
)
