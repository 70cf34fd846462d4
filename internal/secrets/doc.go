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

// Package secrets resolves credentials from the environment and the system
// keychain.
//
// Keys are slash-separated names such as "openai/api_key". The environment
// backend is consulted first so that OPENAI_API_KEY and PHOENIX_API_KEY always
// override anything stored with `postgen auth set-key`.
package secrets
